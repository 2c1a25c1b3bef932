package store

import (
	"database/sql"
	"fmt"
	"time"

	"votewallet/internal/types"
)

// UpsertBusinessAlignment writes the single alignment row for a business,
// replacing any previous vector.
func (s *Store) UpsertBusinessAlignment(a *types.BusinessAlignment) error {
	if a.BusinessID == "" {
		return fmt.Errorf("upsert alignment: missing business id")
	}
	a.UpdatedAt = time.Now().UTC()

	_, err := s.db.Exec(`INSERT INTO business_alignments
		(business_id, liberal, conservative, libertarian, green, centrist, confidence, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(business_id) DO UPDATE SET
			liberal = excluded.liberal,
			conservative = excluded.conservative,
			libertarian = excluded.libertarian,
			green = excluded.green,
			centrist = excluded.centrist,
			confidence = excluded.confidence,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		a.BusinessID, a.Vector.Liberal, a.Vector.Conservative, a.Vector.Libertarian,
		a.Vector.Green, a.Vector.Centrist, a.Confidence, a.Source, formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert alignment for %s: %w", a.BusinessID, err)
	}
	return nil
}

// GetBusinessAlignment fetches a business's alignment row. Returns (nil, nil)
// when no alignment has been computed yet.
func (s *Store) GetBusinessAlignment(businessID string) (*types.BusinessAlignment, error) {
	var (
		a         types.BusinessAlignment
		updatedAt string
	)
	err := s.db.QueryRow(`SELECT business_id, liberal, conservative, libertarian, green, centrist,
		confidence, source, updated_at
		FROM business_alignments WHERE business_id = ?`, businessID).
		Scan(&a.BusinessID, &a.Vector.Liberal, &a.Vector.Conservative, &a.Vector.Libertarian,
			&a.Vector.Green, &a.Vector.Centrist, &a.Confidence, &a.Source, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alignment for %s: %w", businessID, err)
	}
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// UpsertUserAlignment writes a user's alignment preferences.
func (s *Store) UpsertUserAlignment(a *types.UserAlignment) error {
	if a.UserID == "" {
		return fmt.Errorf("upsert user alignment: missing user id")
	}
	a.UpdatedAt = time.Now().UTC()

	_, err := s.db.Exec(`INSERT INTO user_alignments
		(user_id, liberal, conservative, libertarian, green, centrist, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			liberal = excluded.liberal,
			conservative = excluded.conservative,
			libertarian = excluded.libertarian,
			green = excluded.green,
			centrist = excluded.centrist,
			updated_at = excluded.updated_at`,
		a.UserID, a.Vector.Liberal, a.Vector.Conservative, a.Vector.Libertarian,
		a.Vector.Green, a.Vector.Centrist, formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert user alignment for %s: %w", a.UserID, err)
	}
	return nil
}

// GetUserAlignment fetches a user's alignment preferences. Returns (nil, nil)
// when the user has none.
func (s *Store) GetUserAlignment(userID string) (*types.UserAlignment, error) {
	var (
		a         types.UserAlignment
		updatedAt string
	)
	err := s.db.QueryRow(`SELECT user_id, liberal, conservative, libertarian, green, centrist, updated_at
		FROM user_alignments WHERE user_id = ?`, userID).
		Scan(&a.UserID, &a.Vector.Liberal, &a.Vector.Conservative, &a.Vector.Libertarian,
			&a.Vector.Green, &a.Vector.Centrist, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user alignment for %s: %w", userID, err)
	}
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
