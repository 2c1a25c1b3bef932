package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const businessColumns = `id, name, description, category, secondary_categories, tags,
	address, city, state, zip, country, lat, lon,
	website, phone, hours, price_range, founded_year, employee_count,
	logo_url, photo_urls, attributes, data_source, data_quality, active,
	created_at, updated_at`

// InsertBusiness persists a new business. A missing ID gets a fresh UUID;
// missing timestamps get the current time. Returns the stored ID.
func (s *Store) InsertBusiness(b *types.Business) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	secondary, err := marshalStrings(b.SecondaryCategories)
	if err != nil {
		return "", fmt.Errorf("marshal secondary categories: %w", err)
	}
	tags, err := marshalStrings(b.Tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	photos, err := marshalStrings(b.PhotoURLs)
	if err != nil {
		return "", fmt.Errorf("marshal photo urls: %w", err)
	}
	attrs, err := b.Attributes.MarshalDB()
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO businesses (`+businessColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Description, b.Category, secondary, tags,
		b.Address, b.City, b.State, b.Zip, b.Country, b.Lat, b.Lon,
		b.Website, b.Phone, b.Hours, b.PriceRange, b.FoundedYear, b.EmployeeCount,
		b.LogoURL, photos, attrs, b.DataSource, b.DataQuality, boolToInt(b.Active),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("insert business %s: %w", b.Name, err)
	}

	logging.StoreDebug("inserted business %s (%s)", b.Name, b.ID)
	return b.ID, nil
}

// UpdateBusiness rewrites every mutable column of an existing business and
// bumps updated_at.
func (s *Store) UpdateBusiness(b *types.Business) error {
	if b.ID == "" {
		return fmt.Errorf("update business: missing id")
	}
	b.UpdatedAt = time.Now().UTC()

	secondary, err := marshalStrings(b.SecondaryCategories)
	if err != nil {
		return fmt.Errorf("marshal secondary categories: %w", err)
	}
	tags, err := marshalStrings(b.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	photos, err := marshalStrings(b.PhotoURLs)
	if err != nil {
		return fmt.Errorf("marshal photo urls: %w", err)
	}
	attrs, err := b.Attributes.MarshalDB()
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	res, err := s.db.Exec(`UPDATE businesses SET
		name = ?, description = ?, category = ?, secondary_categories = ?, tags = ?,
		address = ?, city = ?, state = ?, zip = ?, country = ?, lat = ?, lon = ?,
		website = ?, phone = ?, hours = ?, price_range = ?, founded_year = ?, employee_count = ?,
		logo_url = ?, photo_urls = ?, attributes = ?, data_source = ?, data_quality = ?, active = ?,
		updated_at = ?
		WHERE id = ?`,
		b.Name, b.Description, b.Category, secondary, tags,
		b.Address, b.City, b.State, b.Zip, b.Country, b.Lat, b.Lon,
		b.Website, b.Phone, b.Hours, b.PriceRange, b.FoundedYear, b.EmployeeCount,
		b.LogoURL, photos, attrs, b.DataSource, b.DataQuality, boolToInt(b.Active),
		formatTime(b.UpdatedAt), b.ID)
	if err != nil {
		return fmt.Errorf("update business %s: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update business %s: not found", b.ID)
	}
	return nil
}

// GetBusiness fetches one business by ID. Returns (nil, nil) when absent.
func (s *Store) GetBusiness(id string) (*types.Business, error) {
	row := s.db.QueryRow(`SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id)
	return scanBusiness(row)
}

// GetBusinessByNameCity resolves a business by case-insensitive name and
// city. This is the dedup identity key. Returns (nil, nil) when absent.
func (s *Store) GetBusinessByNameCity(name, city string) (*types.Business, error) {
	row := s.db.QueryRow(`SELECT `+businessColumns+` FROM businesses
		WHERE lower(name) = lower(?) AND lower(city) = lower(?)`, name, city)
	return scanBusiness(row)
}

// ListBusinesses returns active businesses ordered by name. A limit of 0
// means no limit.
func (s *Store) ListBusinesses(limit int) ([]*types.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE active = 1 ORDER BY name`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	var out []*types.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBusinessesWithoutLogo returns active businesses with no logo URL, for
// the image sourcing pass.
func (s *Store) ListBusinessesWithoutLogo(limit int) ([]*types.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses
		WHERE active = 1 AND logo_url = '' ORDER BY name`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list businesses without logo: %w", err)
	}
	defer rows.Close()

	var out []*types.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeactivateBusiness soft-deletes a business. The row stays for provenance.
func (s *Store) DeactivateBusiness(id string) error {
	res, err := s.db.Exec(`UPDATE businesses SET active = 0, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("deactivate business %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("deactivate business %s: not found", id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row scanner) (*types.Business, error) {
	var (
		b                              types.Business
		secondary, tags, photos, attrs string
		active                         int
		createdAt, updatedAt           string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Category, &secondary, &tags,
		&b.Address, &b.City, &b.State, &b.Zip, &b.Country, &b.Lat, &b.Lon,
		&b.Website, &b.Phone, &b.Hours, &b.PriceRange, &b.FoundedYear, &b.EmployeeCount,
		&b.LogoURL, &photos, &attrs, &b.DataSource, &b.DataQuality, &active,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan business: %w", err)
	}

	if b.SecondaryCategories, err = unmarshalStrings(secondary); err != nil {
		return nil, fmt.Errorf("unmarshal secondary categories: %w", err)
	}
	if b.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if b.PhotoURLs, err = unmarshalStrings(photos); err != nil {
		return nil, fmt.Errorf("unmarshal photo urls: %w", err)
	}
	if b.Attributes, err = types.UnmarshalDB(attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	b.Active = active != 0
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
