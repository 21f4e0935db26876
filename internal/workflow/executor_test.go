package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"jobradar/internal/config"
	"jobradar/internal/dedup"
	"jobradar/internal/logging"
	"jobradar/internal/notify"
	"jobradar/internal/retry"
	"jobradar/internal/scraper"
	"jobradar/internal/storage"
	"jobradar/pkg/models"
)

type fakeSite struct {
	name     string
	searchFn func(ctx context.Context, query models.SearchQuery) ([]models.RawPosting, error)
	calls    atomic.Int64
}

func (f *fakeSite) Name() string    { return f.name }
func (f *fakeSite) IsHealthy() bool { return true }

func (f *fakeSite) Search(ctx context.Context, query models.SearchQuery) ([]models.RawPosting, error) {
	f.calls.Add(1)
	return f.searchFn(ctx, query)
}

type fakeFactory struct {
	sites map[string]*fakeSite
}

func (f *fakeFactory) CreateSite(name string) (scraper.Site, error) {
	site, ok := f.sites[name]
	if !ok {
		return nil, fmt.Errorf("site %q not configured", name)
	}
	return site, nil
}

func (f *fakeFactory) GetSupportedSites() []string {
	names := make([]string, 0, len(f.sites))
	for name := range f.sites {
		names = append(names, name)
	}
	return names
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workflow.PoolSize = 2
	cfg.Workflow.MaxReportErrors = 50
	cfg.Retry.MaxRetries = 3
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	cfg.Retry.Multiplier = 2
	cfg.Retry.JitterMax = time.Millisecond
	cfg.Retry.FailureThreshold = 5
	cfg.Retry.CooldownWindow = time.Minute
	cfg.Dedup.SimilarityThreshold = 0.85
	cfg.Dedup.StrictThreshold = 0.9
	cfg.Dedup.CandidateLimit = 500
	cfg.Notify.Channel = "log"
	return cfg
}

func testExecutor(cfg *config.Config, store *storage.MemoryStore, factory scraper.SiteFactory) (*Executor, *retry.Handler) {
	logger := logging.GetGlobalLogger()
	retrier := retry.NewHandler(cfg, logger)
	detector := dedup.NewDetector(store, cfg, logger)
	dispatcher := notify.NewDispatcher(cfg, store, logger)
	return NewExecutor(cfg, store, factory, retrier, detector, dispatcher, logger), retrier
}

func rawPosting(title, url string, postedAt time.Time) models.RawPosting {
	return models.RawPosting{
		Title:      title,
		Company:    "Acme",
		Location:   "Remote",
		SalaryText: "$100k - $130k",
		URL:        url,
		PostedAt:   postedAt,
		Site:       "siteA",
	}
}

func engineerProfile() models.SearchProfile {
	minSalary := 100000
	return models.SearchProfile{
		ID:      "profile-1",
		OwnerID: "alice",
		Title:   "Software Engineer",
		Location: models.LocationCriteria{
			RemoteAllowed: true,
		},
		SalaryRange: &models.SalaryRange{Min: &minSalary},
	}
}

func TestRunWorkflowPersistsMatchesAndAdvancesWatermark(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Now()

	site := &fakeSite{
		name: "siteA",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return []models.RawPosting{
				rawPosting("Senior Software Engineer", "https://a.example.com/1", now),
				rawPosting("Data Analyst", "https://a.example.com/2", now),
			}, nil
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": site}})

	report, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	if report.Status != models.RunCompleted {
		t.Errorf("status = %s, want completed", report.Status)
	}
	if report.Units != 1 || report.PostingsFetched != 2 {
		t.Errorf("units = %d, fetched = %d", report.Units, report.PostingsFetched)
	}
	if report.MatchesPersisted != 1 {
		t.Errorf("matchesPersisted = %d, want 1 (analyst does not match)", report.MatchesPersisted)
	}
	if report.SuccessfulOperations != 1 || report.FailedOperations != 0 {
		t.Errorf("ops = %d/%d, want 1/0", report.SuccessfulOperations, report.FailedOperations)
	}
	if report.NewWatermark == nil || !report.NewWatermark.Equal(report.StartedAt) {
		t.Errorf("newWatermark = %v, want run start %v", report.NewWatermark, report.StartedAt)
	}

	saved, err := store.LoadLastRunTimestamp(context.Background())
	if err != nil || saved == nil || !saved.Equal(report.StartedAt) {
		t.Errorf("persisted watermark = %v (%v), want %v", saved, err, report.StartedAt)
	}

	matches := store.Matches()
	if len(matches) != 1 {
		t.Fatalf("stored matches = %d, want 1", len(matches))
	}
	if matches[0].OwnerID != "alice" || matches[0].Score < 80 {
		t.Errorf("match = owner %s score %d", matches[0].OwnerID, matches[0].Score)
	}

	// Delivered digests flag the posting.
	stored, err := store.FindByURL(context.Background(), "siteA", "https://a.example.com/1")
	if err != nil || stored == nil {
		t.Fatalf("stored posting lookup: %v, %v", stored, err)
	}
	if stored.AlertSentAt == nil {
		t.Error("expected alert-sent flag after dispatch")
	}
}

func TestRunWorkflowFiltersAtWatermark(t *testing.T) {
	store := storage.NewMemoryStore()
	watermark := time.Now().Add(-time.Hour)
	if err := store.SaveLastRunTimestamp(context.Background(), watermark); err != nil {
		t.Fatalf("SaveLastRunTimestamp: %v", err)
	}

	site := &fakeSite{
		name: "siteA",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return []models.RawPosting{
				rawPosting("Software Engineer Old", "https://a.example.com/old", watermark.Add(-time.Minute)),
				rawPosting("Software Engineer Exact", "https://a.example.com/exact", watermark),
				rawPosting("Software Engineer New", "https://a.example.com/new", watermark.Add(time.Minute)),
			}, nil
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": site}})

	report, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	if report.Watermark == nil || !report.Watermark.Equal(watermark) {
		t.Errorf("report watermark = %v, want %v", report.Watermark, watermark)
	}
	if report.PostingsFetched != 3 {
		t.Errorf("fetched = %d, want 3", report.PostingsFetched)
	}
	// Only strictly-after postings pass the filter.
	if report.PostingsAfterWatermark != 1 {
		t.Errorf("afterWatermark = %d, want 1", report.PostingsAfterWatermark)
	}
	if report.MatchesPersisted != 1 {
		t.Errorf("matchesPersisted = %d, want 1", report.MatchesPersisted)
	}
}

func TestRunWorkflowSkipsDuplicates(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Now()

	posting := rawPosting("Senior Software Engineer", "https://a.example.com/1", now)
	site := &fakeSite{
		name: "siteA",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return []models.RawPosting{posting, posting}, nil
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": site}})

	report, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	if report.DuplicatesSkipped != 1 {
		t.Errorf("duplicatesSkipped = %d, want 1", report.DuplicatesSkipped)
	}
	if report.MatchesPersisted != 1 {
		t.Errorf("matchesPersisted = %d, want 1", report.MatchesPersisted)
	}
	if store.PostingCount() != 1 {
		t.Errorf("stored postings = %d, want 1", store.PostingCount())
	}
}

func TestRunWorkflowIsolatesFailingSite(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Now()

	good := &fakeSite{
		name: "siteA",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return []models.RawPosting{rawPosting("Senior Software Engineer", "https://a.example.com/1", now)}, nil
		},
	}
	bad := &fakeSite{
		name: "siteB",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return nil, errors.New("unauthorized")
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": good, "siteB": bad}})

	report, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA", "siteB"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	if report.Status != models.RunCompleted {
		t.Errorf("status = %s, want completed (unit failures are recovered)", report.Status)
	}
	if report.SuccessfulOperations != 1 || report.FailedOperations != 1 {
		t.Errorf("ops = %d/%d, want 1/1", report.SuccessfulOperations, report.FailedOperations)
	}
	if report.MatchesPersisted != 1 {
		t.Errorf("matchesPersisted = %d, want 1", report.MatchesPersisted)
	}
	if len(report.Errors) != 1 || report.Errors[0].Site != "siteB" {
		t.Errorf("errors = %+v, want one for siteB", report.Errors)
	}
	if report.NewWatermark == nil {
		t.Error("completed run with recovered failures still advances the watermark")
	}
}

func TestRunWorkflowUnknownSiteFailsItsUnits(t *testing.T) {
	store := storage.NewMemoryStore()
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{}})

	report, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"nope"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}
	if report.Units != 1 || report.FailedOperations != 1 {
		t.Errorf("units = %d, failed = %d, want 1/1", report.Units, report.FailedOperations)
	}
}

func TestRunWorkflowOpensCircuitAcrossUnits(t *testing.T) {
	store := storage.NewMemoryStore()

	bad := &fakeSite{
		name: "siteB",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return nil, errors.New("connection reset")
		},
	}
	cfg := testConfig()
	cfg.Workflow.PoolSize = 1 // serialize units so breaker state is deterministic
	executor, retrier := testExecutor(cfg, store, &fakeFactory{sites: map[string]*fakeSite{"siteB": bad}})

	profiles := []models.SearchProfile{engineerProfile(), {ID: "profile-2", OwnerID: "bob", Title: "Engineer"}}
	report, err := executor.RunWorkflow(context.Background(), profiles, []string{"siteB"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	if report.FailedOperations != 2 {
		t.Errorf("failedOperations = %d, want 2", report.FailedOperations)
	}
	if got := retrier.CircuitState("siteB"); got != retry.CircuitOpen {
		t.Errorf("circuit state = %s, want open", got)
	}
	// First unit burns 4 attempts, the fifth failure opens the circuit;
	// the second unit's remaining attempts fail fast without calling out.
	if calls := bad.calls.Load(); calls != 5 {
		t.Errorf("site calls = %d, want 5", calls)
	}
}

func TestRunWorkflowCancelledRunDoesNotAdvanceWatermark(t *testing.T) {
	store := storage.NewMemoryStore()

	site := &fakeSite{
		name: "siteA",
		searchFn: func(ctx context.Context, _ models.SearchQuery) ([]models.RawPosting, error) {
			return nil, ctx.Err()
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": site}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := executor.RunWorkflow(ctx, []models.SearchProfile{engineerProfile()}, []string{"siteA"})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if report.Status != models.RunFailed {
		t.Errorf("status = %s, want failed", report.Status)
	}
	if report.NewWatermark != nil {
		t.Error("cancelled run must not advance the watermark")
	}

	saved, err := store.LoadLastRunTimestamp(context.Background())
	if err != nil {
		t.Fatalf("LoadLastRunTimestamp: %v", err)
	}
	if saved != nil {
		t.Errorf("persisted watermark = %v, want none", saved)
	}
}

func TestRunWorkflowSingleFlight(t *testing.T) {
	store := storage.NewMemoryStore()

	release := make(chan struct{})
	started := make(chan struct{})
	site := &fakeSite{
		name: "siteA",
		searchFn: func(ctx context.Context, _ models.SearchQuery) ([]models.RawPosting, error) {
			close(started)
			<-release
			return nil, nil
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": site}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA"})
	}()

	<-started
	if _, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA"}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping run error = %v, want ErrRunInProgress", err)
	}

	status, _ := executor.Status()
	if status != models.RunRunning {
		t.Errorf("status = %s, want running", status)
	}

	close(release)
	<-done

	status, _ = executor.Status()
	if status != models.RunCompleted {
		t.Errorf("status after run = %s, want completed", status)
	}
}

func TestRunWorkflowPersistsReport(t *testing.T) {
	store := storage.NewMemoryStore()
	site := &fakeSite{
		name: "siteA",
		searchFn: func(context.Context, models.SearchQuery) ([]models.RawPosting, error) {
			return nil, nil
		},
	}
	executor, _ := testExecutor(testConfig(), store, &fakeFactory{sites: map[string]*fakeSite{"siteA": site}})

	report, err := executor.RunWorkflow(context.Background(), []models.SearchProfile{engineerProfile()}, []string{"siteA"})
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}

	persisted, err := store.FindReport(context.Background(), report.ExecutionID)
	if err != nil {
		t.Fatalf("FindReport: %v", err)
	}
	if persisted.Status != models.RunCompleted {
		t.Errorf("persisted status = %s, want completed", persisted.Status)
	}
}
