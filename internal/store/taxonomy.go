package store

import (
	"fmt"

	"votewallet/internal/types"
)

// UpsertCategory inserts or updates a category by name and returns its ID.
func (s *Store) UpsertCategory(c *types.Category) (int64, error) {
	keywords, err := marshalStrings(c.Keywords)
	if err != nil {
		return 0, fmt.Errorf("marshal category keywords: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO categories (name, description, icon, color, keywords, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			icon = excluded.icon,
			color = excluded.color,
			keywords = excluded.keywords,
			active = excluded.active`,
		c.Name, c.Description, c.Icon, c.Color, keywords, boolToInt(c.Active))
	if err != nil {
		return 0, fmt.Errorf("upsert category %s: %w", c.Name, err)
	}

	var id int64
	if err := s.db.QueryRow(`SELECT id FROM categories WHERE name = ?`, c.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve category id for %s: %w", c.Name, err)
	}
	c.ID = id
	return id, nil
}

// ListCategories returns active categories ordered by name.
func (s *Store) ListCategories() ([]types.Category, error) {
	rows, err := s.db.Query(`SELECT id, name, description, icon, color, keywords, active
		FROM categories WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []types.Category
	for rows.Next() {
		var (
			c        types.Category
			keywords string
			active   int
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &keywords, &active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.Keywords, err = unmarshalStrings(keywords); err != nil {
			return nil, fmt.Errorf("unmarshal category keywords: %w", err)
		}
		c.Active = active != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertTag inserts or updates a tag by name and returns its ID.
func (s *Store) UpsertTag(t *types.Tag) (int64, error) {
	keywords, err := marshalStrings(t.Keywords)
	if err != nil {
		return 0, fmt.Errorf("marshal tag keywords: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO tags (name, description, keywords, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			keywords = excluded.keywords,
			active = excluded.active`,
		t.Name, t.Description, keywords, boolToInt(t.Active))
	if err != nil {
		return 0, fmt.Errorf("upsert tag %s: %w", t.Name, err)
	}

	var id int64
	if err := s.db.QueryRow(`SELECT id FROM tags WHERE name = ?`, t.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve tag id for %s: %w", t.Name, err)
	}
	t.ID = id
	return id, nil
}

// ListTags returns active tags ordered by name.
func (s *Store) ListTags() ([]types.Tag, error) {
	rows, err := s.db.Query(`SELECT id, name, description, keywords, active
		FROM tags WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []types.Tag
	for rows.Next() {
		var (
			t        types.Tag
			keywords string
			active   int
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &keywords, &active); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if t.Keywords, err = unmarshalStrings(keywords); err != nil {
			return nil, fmt.Errorf("unmarshal tag keywords: %w", err)
		}
		t.Active = active != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetBusinessTags replaces the tag relations for a business with the given
// tag names. Unknown tag names are skipped.
func (s *Store) SetBusinessTags(businessID string, tagNames []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tag update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM business_tags WHERE business_id = ?`, businessID); err != nil {
		return fmt.Errorf("clear business tags: %w", err)
	}

	for _, name := range tagNames {
		res, err := tx.Exec(`INSERT OR IGNORE INTO business_tags (business_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, businessID, name)
		if err != nil {
			return fmt.Errorf("attach tag %s: %w", name, err)
		}
		_ = res
	}

	return tx.Commit()
}

// GetBusinessTags returns the tag names attached to a business.
func (s *Store) GetBusinessTags(businessID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT t.name FROM business_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.business_id = ? ORDER BY t.name`, businessID)
	if err != nil {
		return nil, fmt.Errorf("get business tags: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
