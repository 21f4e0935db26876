package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobradar/internal/config"
	"jobradar/pkg/models"
)

// PostgresStore is the durable PersistenceStore backed by pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates and verifies a Postgres-backed store.
func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Storage.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Storage.Postgres.MaxConns)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Postgres.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if cfg.Storage.Postgres.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, nil
}

// Migrate creates the schema when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS postings (
			id UUID PRIMARY KEY,
			site TEXT NOT NULL,
			normalized_url TEXT NOT NULL,
			primary_hash TEXT NOT NULL,
			fuzzy_hashes TEXT[] NOT NULL DEFAULT '{}',
			data JSONB NOT NULL,
			alert_sent_at TIMESTAMPTZ,
			application_status TEXT NOT NULL DEFAULT 'none',
			found_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_postings_site_url ON postings (site, normalized_url)`,
		`CREATE INDEX IF NOT EXISTS idx_postings_primary_hash ON postings (primary_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_postings_fuzzy_hashes ON postings USING GIN (fuzzy_hashes)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY,
			profile_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			score INT NOT NULL,
			data JSONB NOT NULL,
			matched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS run_history (
			execution_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			report JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS workflow_state (
			key TEXT PRIMARY KEY,
			value TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) SavePosting(ctx context.Context, posting models.NormalizedPosting) (*models.StoredPosting, error) {
	stored := &models.StoredPosting{
		ID:                uuid.New().String(),
		NormalizedPosting: posting,
		ApplicationStatus: models.StatusNone,
		FoundAt:           time.Now(),
	}

	data, err := json.Marshal(posting)
	if err != nil {
		return nil, fmt.Errorf("marshal posting: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO postings (id, site, normalized_url, primary_hash, fuzzy_hashes, data, application_status, found_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stored.ID, posting.Site, posting.NormalizedURL, posting.PrimaryHash,
		posting.FuzzyHashes, data, string(stored.ApplicationStatus), stored.FoundAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert posting: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) FindByURL(ctx context.Context, site, normalizedURL string) (*models.StoredPosting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, data, alert_sent_at, application_status, found_at
		 FROM postings
		 WHERE site = $1 AND normalized_url = $2
		 ORDER BY found_at DESC
		 LIMIT 1`,
		site, normalizedURL,
	)
	return scanPosting(row)
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*models.StoredPosting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, data, alert_sent_at, application_status, found_at
		 FROM postings
		 WHERE primary_hash = $1 OR $1 = ANY(fuzzy_hashes)
		 ORDER BY found_at DESC
		 LIMIT 1`,
		hash,
	)
	return scanPosting(row)
}

func (s *PostgresStore) FindBySite(ctx context.Context, site string, limit int) ([]*models.StoredPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data, alert_sent_at, application_status, found_at
		 FROM postings
		 WHERE site = $1
		 ORDER BY found_at DESC
		 LIMIT $2`,
		site, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostings(rows)
}

func (s *PostgresStore) GroupByHash(ctx context.Context, hash string) ([]*models.StoredPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data, alert_sent_at, application_status, found_at
		 FROM postings
		 WHERE primary_hash = $1 OR $1 = ANY(fuzzy_hashes)`,
		hash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostings(rows)
}

func (s *PostgresStore) SaveMatch(ctx context.Context, result *models.MatchResult) (string, error) {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal match: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO matches (id, profile_id, owner_id, score, data, matched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.ID, result.ProfileID, result.OwnerID, result.Score, data, result.MatchedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert match: %w", err)
	}
	return result.ID, nil
}

func (s *PostgresStore) DeletePosting(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM postings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdatePostingFlags(ctx context.Context, id string, alertSentAt *time.Time, status models.ApplicationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings SET alert_sent_at = $2, application_status = $3 WHERE id = $1`,
		id, alertSentAt, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LoadLastRunTimestamp(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM workflow_state WHERE key = 'last_run'`,
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) SaveLastRunTimestamp(ctx context.Context, t time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workflow_state (key, value) VALUES ('last_run', $1)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		t,
	)
	return err
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *models.ExecutionReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_history (execution_id, status, started_at, finished_at, report)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (execution_id) DO UPDATE SET status = EXCLUDED.status, finished_at = EXCLUDED.finished_at, report = EXCLUDED.report`,
		report.ExecutionID, string(report.Status), report.StartedAt, report.FinishedAt, data,
	)
	return err
}

func (s *PostgresStore) FindReport(ctx context.Context, executionID string) (*models.ExecutionReport, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM run_history WHERE execution_id = $1`,
		executionID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var report models.ExecutionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPosting(row pgx.Row) (*models.StoredPosting, error) {
	var (
		stored models.StoredPosting
		data   []byte
		status string
	)
	err := row.Scan(&stored.ID, &data, &stored.AlertSentAt, &status, &stored.FoundAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &stored.NormalizedPosting); err != nil {
		return nil, fmt.Errorf("unmarshal posting: %w", err)
	}
	stored.ApplicationStatus = models.ApplicationStatus(status)
	return &stored, nil
}

func scanPostings(rows pgx.Rows) ([]*models.StoredPosting, error) {
	var out []*models.StoredPosting
	for rows.Next() {
		var (
			stored models.StoredPosting
			data   []byte
			status string
		)
		if err := rows.Scan(&stored.ID, &data, &stored.AlertSentAt, &status, &stored.FoundAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &stored.NormalizedPosting); err != nil {
			return nil, fmt.Errorf("unmarshal posting: %w", err)
		}
		stored.ApplicationStatus = models.ApplicationStatus(status)
		out = append(out, &stored)
	}
	return out, rows.Err()
}
