// Package workflow orchestrates one aggregation run: fan out
// (profile x site) units over a bounded pool, scrape behind the retry
// handler, normalize, watermark-filter, dedup, match and persist, then
// assemble the execution report.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jobradar/internal/config"
	"jobradar/internal/dedup"
	"jobradar/internal/logging"
	"jobradar/internal/match"
	"jobradar/internal/normalize"
	"jobradar/internal/notify"
	"jobradar/internal/retry"
	"jobradar/internal/scraper"
	"jobradar/internal/storage"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"
)

// ErrRunInProgress is returned when a run is requested while another one
// is still executing. Runs never overlap.
var ErrRunInProgress = errors.New("workflow run already in progress")

// Executor drives workflow runs. One executor serves the whole process;
// it serializes runs and keeps the latest report for the status surface.
type Executor struct {
	cfg        *config.Config
	store      storage.PersistenceStore
	factory    scraper.SiteFactory
	retrier    *retry.Handler
	detector   *dedup.Detector
	dispatcher *notify.Dispatcher
	logger     logging.Logger

	mu           sync.Mutex
	running      bool
	currentID    string
	lastReport   *models.ExecutionReport
	lastProfiles []models.SearchProfile
	lastSites    []string
}

// NewExecutor wires a workflow executor from its collaborators.
func NewExecutor(
	cfg *config.Config,
	store storage.PersistenceStore,
	factory scraper.SiteFactory,
	retrier *retry.Handler,
	detector *dedup.Detector,
	dispatcher *notify.Dispatcher,
	logger logging.Logger,
) *Executor {
	return &Executor{
		cfg:        cfg,
		store:      store,
		factory:    factory,
		retrier:    retrier,
		detector:   detector,
		dispatcher: dispatcher,
		logger:     logger.WithField("component", "workflow"),
	}
}

// RunWorkflow executes one aggregation run over the given profiles and
// sites. The report is persisted and returned even for failed runs. The
// incremental watermark is the run's start time and is only advanced
// when the run completes.
func (e *Executor) RunWorkflow(ctx context.Context, profiles []models.SearchProfile, sites []string) (*models.ExecutionReport, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrRunInProgress
	}
	startedAt := time.Now()
	executionID := utils.GenerateExecutionID(startedAt)
	e.running = true
	e.currentID = executionID
	e.lastProfiles = profiles
	e.lastSites = sites
	e.mu.Unlock()

	report := &models.ExecutionReport{
		ExecutionID: executionID,
		Status:      models.RunRunning,
		StartedAt:   startedAt,
	}

	defer func() {
		report.FinishedAt = time.Now()
		if err := e.store.SaveReport(ctx, report); err != nil {
			e.logger.Error("Failed to persist execution report", map[string]interface{}{
				"execution_id": executionID,
				"error":        err.Error(),
			})
		}
		e.mu.Lock()
		e.running = false
		e.currentID = ""
		e.lastReport = report
		e.mu.Unlock()
	}()

	e.logger.Info("Workflow run starting", map[string]interface{}{
		"execution_id": executionID,
		"profiles":     len(profiles),
		"sites":        sites,
	})

	watermark, err := e.store.LoadLastRunTimestamp(ctx)
	if err != nil {
		report.Status = models.RunFailed
		e.appendError(report, "", "", fmt.Sprintf("load watermark: %v", err))
		return report, fmt.Errorf("load watermark: %w", err)
	}
	report.Watermark = watermark

	if len(sites) == 0 {
		sites = e.cfg.EnabledSites()
	}

	// Build the unit set. A site whose adapter cannot be created fails
	// all of its units up front.
	var jobs []unitJob
	for _, siteName := range sites {
		site, err := e.factory.CreateSite(siteName)
		if err != nil {
			e.appendError(report, siteName, "", fmt.Sprintf("create adapter: %v", err))
			report.FailedOperations += len(profiles)
			report.Units += len(profiles)
			continue
		}
		for _, profile := range profiles {
			jobs = append(jobs, unitJob{profile: profile, site: site})
		}
	}
	report.Units += len(jobs)

	pool := newUnitPool(e.cfg.Workflow.PoolSize, e.logger)
	results := pool.Run(ctx, jobs, func(ctx context.Context, job unitJob) unitResult {
		return e.runUnit(ctx, watermark, job)
	})

	var alerts []notify.Alert
	for _, r := range results {
		report.PostingsFetched += r.fetched
		report.PostingsAfterWatermark += r.afterWatermark
		report.DuplicatesSkipped += r.duplicatesSkipped
		report.MatchesPersisted += r.matchesPersisted
		if r.err != nil {
			report.FailedOperations++
			e.appendError(report, r.site, r.profileID, r.err.Error())
			continue
		}
		report.SuccessfulOperations++
		for _, a := range r.alerts {
			alerts = append(alerts, notify.Alert{PostingID: a.postingID, Match: a.match})
		}
	}

	if ctx.Err() != nil {
		// Cancelled runs never advance the watermark.
		report.Status = models.RunFailed
		e.appendError(report, "", "", fmt.Sprintf("run cancelled: %v", ctx.Err()))
		e.logger.Warn("Workflow run cancelled", map[string]interface{}{
			"execution_id": executionID,
		})
		return report, ctx.Err()
	}

	if err := e.dispatcher.Dispatch(ctx, alerts); err != nil {
		e.appendError(report, "", "", fmt.Sprintf("dispatch digests: %v", err))
	}

	// A watermark that fails to persist must not be reported as advanced;
	// the run is failed so the loss is visible.
	if err := e.store.SaveLastRunTimestamp(ctx, startedAt); err != nil {
		report.Status = models.RunFailed
		e.appendError(report, "", "", fmt.Sprintf("save watermark: %v", err))
		return report, fmt.Errorf("save watermark: %w", err)
	}
	report.Status = models.RunCompleted
	t := startedAt
	report.NewWatermark = &t

	e.logger.Info("Workflow run completed", map[string]interface{}{
		"execution_id":       executionID,
		"postings_fetched":   report.PostingsFetched,
		"matches_persisted":  report.MatchesPersisted,
		"duplicates_skipped": report.DuplicatesSkipped,
		"failed_operations":  report.FailedOperations,
		"duration":           utils.FormatDuration(time.Since(startedAt)),
	})
	return report, nil
}

// runUnit processes one (profile x site) pairing: scrape behind the
// retry handler, then normalize, filter, dedup and match each posting.
func (e *Executor) runUnit(ctx context.Context, watermark *time.Time, job unitJob) unitResult {
	result := unitResult{site: job.site.Name(), profileID: job.profile.ID}

	unitCtx := ctx
	if e.cfg.Workflow.UnitTimeout > 0 {
		var cancel context.CancelFunc
		unitCtx, cancel = context.WithTimeout(ctx, e.cfg.Workflow.UnitTimeout)
		defer cancel()
	}

	query := scraper.QueryFromProfile(job.profile)

	var raws []models.RawPosting
	err := e.retrier.ExecuteWithRetry(unitCtx, job.site.Name(), func(ctx context.Context) error {
		var searchErr error
		raws, searchErr = job.site.Search(ctx, query)
		return searchErr
	})
	if err != nil {
		result.err = fmt.Errorf("search %s: %w", job.site.Name(), err)
		return result
	}
	result.fetched = len(raws)

	for _, raw := range raws {
		if unitCtx.Err() != nil {
			result.err = unitCtx.Err()
			return result
		}

		posting := normalize.Normalize(raw)

		// Strictly-after watermark filter. Postings without a usable
		// timestamp are kept; dedup catches re-fetches.
		if watermark != nil && !posting.PostedAt.IsZero() && !posting.PostedAt.After(*watermark) {
			continue
		}
		result.afterWatermark++

		dupResult, err := e.detector.IsDuplicate(unitCtx, posting)
		if err != nil {
			result.err = fmt.Errorf("duplicate check: %w", err)
			return result
		}
		if dupResult.IsDuplicate {
			result.duplicatesSkipped++
			// Concurrent units can store the same posting before either
			// recognizes the other; collapse any group that formed.
			if existing := dupResult.MatchedExisting; existing != nil {
				group, groupErr := e.store.GroupByHash(unitCtx, existing.NormalizedPosting.PrimaryHash)
				if groupErr == nil && len(group) > 1 {
					if _, cErr := e.detector.Consolidate(unitCtx, group); cErr != nil {
						e.logger.Warn("Duplicate consolidation failed", map[string]interface{}{
							"site":  job.site.Name(),
							"error": cErr.Error(),
						})
					}
				}
			}
			continue
		}

		detail := match.Evaluate(posting, job.profile)
		if !match.AllPassed(detail) {
			continue
		}

		stored, err := e.store.SavePosting(unitCtx, posting)
		if err != nil {
			result.err = fmt.Errorf("save posting: %w", err)
			return result
		}

		matchResult := &models.MatchResult{
			ProfileID: job.profile.ID,
			OwnerID:   job.profile.OwnerID,
			Posting:   posting,
			Score:     match.Score(detail),
			Detail:    detail,
			MatchedAt: time.Now(),
		}
		if _, err := e.store.SaveMatch(unitCtx, matchResult); err != nil {
			result.err = fmt.Errorf("save match: %w", err)
			return result
		}
		result.matchesPersisted++
		result.alerts = append(result.alerts, alertEntry{postingID: stored.ID, match: matchResult})
	}

	return result
}

// appendError records a recovered failure, bounded so a pathological run
// cannot grow the report without limit.
func (e *Executor) appendError(report *models.ExecutionReport, site, profileID, message string) {
	if len(report.Errors) >= e.cfg.Workflow.MaxReportErrors {
		return
	}
	report.Errors = append(report.Errors, models.ExecutionError{
		Site:      site,
		ProfileID: profileID,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Status reports whether a run is in flight and the current execution ID.
func (e *Executor) Status() (models.RunStatus, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return models.RunRunning, e.currentID
	}
	if e.lastReport != nil {
		return e.lastReport.Status, e.lastReport.ExecutionID
	}
	return models.RunIdle, ""
}

// LastReport returns the most recent run's report, or nil before the
// first run.
func (e *Executor) LastReport() *models.ExecutionReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReport
}

// LastSubmission returns the profiles and sites of the most recent run,
// which the scheduler re-runs on its interval.
func (e *Executor) LastSubmission() ([]models.SearchProfile, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastProfiles, e.lastSites
}

// HealthCheck verifies the executor's collaborators.
func (e *Executor) HealthCheck(ctx context.Context) map[string]string {
	checks := make(map[string]string)
	if err := e.store.Ping(ctx); err != nil {
		checks["storage"] = "unhealthy: " + err.Error()
	} else {
		checks["storage"] = "healthy"
	}
	for _, name := range e.factory.GetSupportedSites() {
		site, err := e.factory.CreateSite(name)
		if err != nil {
			continue // not configured; nothing to report
		}
		if site.IsHealthy() {
			checks["site_"+name] = "healthy"
		} else {
			checks["site_"+name] = "degraded"
		}
	}
	return checks
}
