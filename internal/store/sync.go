package store

import (
	"database/sql"
	"fmt"
	"time"

	"votewallet/internal/types"
)

// InsertActivity appends a political activity event. Events are append-only;
// there is no update path.
func (s *Store) InsertActivity(a *types.PoliticalActivity) (int64, error) {
	if a.BusinessID == "" {
		return 0, fmt.Errorf("insert activity: missing business id")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`INSERT INTO political_activities
		(business_id, type, date, amount, impact, axis, description, source_url, source_type, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.BusinessID, string(a.Type), formatTime(a.Date), a.Amount, string(a.Impact),
		a.Axis, a.Description, a.SourceURL, a.SourceType, a.Confidence, formatTime(a.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert activity for %s: %w", a.BusinessID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

// ListActivitiesByBusiness returns a business's activity events, newest
// first.
func (s *Store) ListActivitiesByBusiness(businessID string) ([]types.PoliticalActivity, error) {
	rows, err := s.db.Query(`SELECT id, business_id, type, date, amount, impact, axis,
		description, source_url, source_type, confidence, created_at
		FROM political_activities WHERE business_id = ?
		ORDER BY date DESC, id DESC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("list activities for %s: %w", businessID, err)
	}
	defer rows.Close()

	var out []types.PoliticalActivity
	for rows.Next() {
		var (
			a            types.PoliticalActivity
			atype        string
			impact       string
			date, create string
		)
		if err := rows.Scan(&a.ID, &a.BusinessID, &atype, &date, &a.Amount, &impact,
			&a.Axis, &a.Description, &a.SourceURL, &a.SourceType, &a.Confidence, &create); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = types.ActivityType(atype)
		a.Impact = types.Impact(impact)
		a.Date = parseTime(date)
		a.CreatedAt = parseTime(create)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertDataSource writes a data source configuration row.
func (s *Store) UpsertDataSource(d *types.DataSource) error {
	_, err := s.db.Exec(`INSERT INTO data_sources (name, requests_per_hour, api_key_env, active, last_synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			requests_per_hour = excluded.requests_per_hour,
			api_key_env = excluded.api_key_env,
			active = excluded.active,
			last_synced_at = excluded.last_synced_at`,
		d.Name, d.RequestsPerHour, d.APIKeyEnv, boolToInt(d.Active), formatTime(d.LastSyncedAt))
	if err != nil {
		return fmt.Errorf("upsert data source %s: %w", d.Name, err)
	}
	return nil
}

// TouchDataSource records a successful sync for a source.
func (s *Store) TouchDataSource(name string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE data_sources SET last_synced_at = ? WHERE name = ?`,
		formatTime(at), name)
	if err != nil {
		return fmt.Errorf("touch data source %s: %w", name, err)
	}
	return nil
}

// ListDataSources returns every configured data source row.
func (s *Store) ListDataSources() ([]types.DataSource, error) {
	rows, err := s.db.Query(`SELECT name, requests_per_hour, api_key_env, active, last_synced_at
		FROM data_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var out []types.DataSource
	for rows.Next() {
		var (
			d      types.DataSource
			active int
			synced string
		)
		if err := rows.Scan(&d.Name, &d.RequestsPerHour, &d.APIKeyEnv, &active, &synced); err != nil {
			return nil, fmt.Errorf("scan data source: %w", err)
		}
		d.Active = active != 0
		d.LastSyncedAt = parseTime(synced)
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertSyncLog opens a sync audit row in the running state and returns its
// row ID.
func (s *Store) InsertSyncLog(l *types.SyncLog) (int64, error) {
	if l.StartedAt.IsZero() {
		l.StartedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = types.SyncRunning
	}
	errs, err := marshalStrings(l.Errors)
	if err != nil {
		return 0, fmt.Errorf("marshal sync errors: %w", err)
	}

	res, err := s.db.Exec(`INSERT INTO sync_logs
		(run_id, source, region, started_at, finished_at, processed, added, updated, failed, status, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.RunID, l.Source, l.Region, formatTime(l.StartedAt), formatTime(l.FinishedAt),
		l.Processed, l.Added, l.Updated, l.Failed, string(l.Status), errs)
	if err != nil {
		return 0, fmt.Errorf("insert sync log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	l.ID = id
	return id, nil
}

// UpdateSyncLog finalizes a sync audit row with counters and terminal status.
func (s *Store) UpdateSyncLog(l *types.SyncLog) error {
	if l.ID == 0 {
		return fmt.Errorf("update sync log: missing id")
	}
	errs, err := marshalStrings(l.Errors)
	if err != nil {
		return fmt.Errorf("marshal sync errors: %w", err)
	}

	_, err = s.db.Exec(`UPDATE sync_logs SET
		finished_at = ?, processed = ?, added = ?, updated = ?, failed = ?, status = ?, errors = ?
		WHERE id = ?`,
		formatTime(l.FinishedAt), l.Processed, l.Added, l.Updated, l.Failed,
		string(l.Status), errs, l.ID)
	if err != nil {
		return fmt.Errorf("update sync log %d: %w", l.ID, err)
	}
	return nil
}

// GetSyncLog fetches one sync audit row by ID. Returns (nil, nil) when
// absent.
func (s *Store) GetSyncLog(id int64) (*types.SyncLog, error) {
	var (
		l                 types.SyncLog
		status            string
		started, finished string
		errs              string
	)
	err := s.db.QueryRow(`SELECT id, run_id, source, region, started_at, finished_at,
		processed, added, updated, failed, status, errors
		FROM sync_logs WHERE id = ?`, id).
		Scan(&l.ID, &l.RunID, &l.Source, &l.Region, &started, &finished,
			&l.Processed, &l.Added, &l.Updated, &l.Failed, &status, &errs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync log %d: %w", id, err)
	}
	l.Status = types.SyncStatus(status)
	l.StartedAt = parseTime(started)
	l.FinishedAt = parseTime(finished)
	if l.Errors, err = unmarshalStrings(errs); err != nil {
		return nil, fmt.Errorf("unmarshal sync errors: %w", err)
	}
	return &l, nil
}

// ListRecentSyncLogs returns the most recent sync runs, newest first.
func (s *Store) ListRecentSyncLogs(limit int) ([]types.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, run_id, source, region, started_at, finished_at,
		processed, added, updated, failed, status, errors
		FROM sync_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var out []types.SyncLog
	for rows.Next() {
		var (
			l                 types.SyncLog
			status            string
			started, finished string
			errs              string
		)
		if err := rows.Scan(&l.ID, &l.RunID, &l.Source, &l.Region, &started, &finished,
			&l.Processed, &l.Added, &l.Updated, &l.Failed, &status, &errs); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		l.Status = types.SyncStatus(status)
		l.StartedAt = parseTime(started)
		l.FinishedAt = parseTime(finished)
		if l.Errors, err = unmarshalStrings(errs); err != nil {
			return nil, fmt.Errorf("unmarshal sync errors: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
