// Package storage defines the persistence collaborator the workflow core
// depends on, with Postgres, Redis-cached and in-memory implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"jobradar/pkg/models"
)

// ErrNotFound is returned by lookups that target a specific record.
var ErrNotFound = errors.New("record not found")

// PersistenceStore is the storage collaborator of the matching pipeline.
// Find methods that probe for possible duplicates return (nil, nil) when
// nothing matches; only errors are real failures.
type PersistenceStore interface {
	// SavePosting stores a normalized posting and returns the stored record.
	SavePosting(ctx context.Context, posting models.NormalizedPosting) (*models.StoredPosting, error)

	// FindByURL looks up a stored posting by site and normalized URL.
	FindByURL(ctx context.Context, site, normalizedURL string) (*models.StoredPosting, error)

	// FindByHash looks up a stored posting whose primary or fuzzy hash set
	// contains the given hash.
	FindByHash(ctx context.Context, hash string) (*models.StoredPosting, error)

	// FindBySite returns up to limit stored postings from one source site,
	// most recently found first. Used by the similarity dedup tier.
	FindBySite(ctx context.Context, site string, limit int) ([]*models.StoredPosting, error)

	// GroupByHash returns all stored postings sharing the given hash.
	GroupByHash(ctx context.Context, hash string) ([]*models.StoredPosting, error)

	// SaveMatch persists a match result and returns its identifier.
	SaveMatch(ctx context.Context, result *models.MatchResult) (string, error)

	// DeletePosting removes a stored posting; consolidation uses this for
	// non-retained group members.
	DeletePosting(ctx context.Context, id string) error

	// UpdatePostingFlags overwrites the alert/application bookkeeping of a
	// stored posting.
	UpdatePostingFlags(ctx context.Context, id string, alertSentAt *time.Time, status models.ApplicationStatus) error

	// LoadLastRunTimestamp returns the incremental watermark, or nil on the
	// first-ever run.
	LoadLastRunTimestamp(ctx context.Context) (*time.Time, error)

	// SaveLastRunTimestamp advances the incremental watermark.
	SaveLastRunTimestamp(ctx context.Context, t time.Time) error

	// SaveReport persists a run's execution report.
	SaveReport(ctx context.Context, report *models.ExecutionReport) error

	// FindReport returns a persisted execution report by execution ID.
	FindReport(ctx context.Context, executionID string) (*models.ExecutionReport, error)

	// Ping verifies connectivity; run setup fails when this does.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
