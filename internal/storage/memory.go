package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobradar/pkg/models"
)

// MemoryStore is an in-memory PersistenceStore used by tests and the
// default development configuration.
type MemoryStore struct {
	mu       sync.RWMutex
	postings map[string]*models.StoredPosting
	matches  map[string]*models.MatchResult
	reports  map[string]*models.ExecutionReport
	lastRun  *time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		postings: make(map[string]*models.StoredPosting),
		matches:  make(map[string]*models.MatchResult),
		reports:  make(map[string]*models.ExecutionReport),
	}
}

func (s *MemoryStore) SavePosting(ctx context.Context, posting models.NormalizedPosting) (*models.StoredPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := &models.StoredPosting{
		ID:                uuid.New().String(),
		NormalizedPosting: posting,
		ApplicationStatus: models.StatusNone,
		FoundAt:           time.Now(),
	}
	s.postings[stored.ID] = stored
	return stored, nil
}

func (s *MemoryStore) FindByURL(ctx context.Context, site, normalizedURL string) (*models.StoredPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.postings {
		if p.NormalizedPosting.Site == site && p.NormalizedPosting.NormalizedURL == normalizedURL {
			return p, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindByHash(ctx context.Context, hash string) (*models.StoredPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.postings {
		if postingHasHash(p, hash) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindBySite(ctx context.Context, site string, limit int) ([]*models.StoredPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.StoredPosting
	for _, p := range s.postings {
		if p.NormalizedPosting.Site == site {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FoundAt.After(result[j].FoundAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) GroupByHash(ctx context.Context, hash string) ([]*models.StoredPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var group []*models.StoredPosting
	for _, p := range s.postings {
		if postingHasHash(p, hash) {
			group = append(group, p)
		}
	}
	return group, nil
}

func (s *MemoryStore) SaveMatch(ctx context.Context, result *models.MatchResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	s.matches[result.ID] = result
	return result.ID, nil
}

func (s *MemoryStore) DeletePosting(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.postings[id]; !exists {
		return ErrNotFound
	}
	delete(s.postings, id)
	return nil
}

func (s *MemoryStore) UpdatePostingFlags(ctx context.Context, id string, alertSentAt *time.Time, status models.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.postings[id]
	if !exists {
		return ErrNotFound
	}
	p.AlertSentAt = alertSentAt
	p.ApplicationStatus = status
	return nil
}

func (s *MemoryStore) LoadLastRunTimestamp(ctx context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRun == nil {
		return nil, nil
	}
	t := *s.lastRun
	return &t, nil
}

func (s *MemoryStore) SaveLastRunTimestamp(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRun = &t
	return nil
}

func (s *MemoryStore) SaveReport(ctx context.Context, report *models.ExecutionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.ExecutionID] = report
	return nil
}

func (s *MemoryStore) FindReport(ctx context.Context, executionID string) (*models.ExecutionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[executionID]
	if !exists {
		return nil, ErrNotFound
	}
	return report, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Matches returns all persisted match results; test helper.
func (s *MemoryStore) Matches() []*models.MatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.MatchResult, 0, len(s.matches))
	for _, m := range s.matches {
		result = append(result, m)
	}
	return result
}

// PostingCount returns the number of stored postings; test helper.
func (s *MemoryStore) PostingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}

func postingHasHash(p *models.StoredPosting, hash string) bool {
	if p.NormalizedPosting.PrimaryHash == hash {
		return true
	}
	for _, fh := range p.NormalizedPosting.FuzzyHashes {
		if fh == hash {
			return true
		}
	}
	return false
}
