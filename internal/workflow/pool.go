package workflow

import (
	"context"
	"sync"

	"jobradar/internal/logging"
	"jobradar/internal/scraper"
	"jobradar/pkg/models"
)

// unitJob is one (profile x site) pairing to be processed by the pool.
type unitJob struct {
	profile models.SearchProfile
	site    scraper.Site
}

// unitResult carries one unit's counters and recovered errors back to the
// run aggregator. A unit failure never aborts sibling units.
type unitResult struct {
	site      string
	profileID string

	fetched           int
	afterWatermark    int
	duplicatesSkipped int
	matchesPersisted  int

	alerts []alertEntry
	err    error
}

type alertEntry struct {
	postingID string
	match     *models.MatchResult
}

// unitPool fans unit jobs out over a bounded set of workers. Workers
// drain the job queue even after the context is cancelled; the process
// function observes cancellation itself and returns quickly.
type unitPool struct {
	size   int
	logger logging.Logger
}

func newUnitPool(size int, logger logging.Logger) *unitPool {
	if size < 1 {
		size = 1
	}
	return &unitPool{size: size, logger: logger}
}

// Run processes every job and returns all results once the workers have
// drained the queue.
func (p *unitPool) Run(ctx context.Context, jobs []unitJob, process func(ctx context.Context, job unitJob) unitResult) []unitResult {
	jobChan := make(chan unitJob)
	resultChan := make(chan unitResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				p.logger.Debug("Processing unit", map[string]interface{}{
					"worker_id":  workerID,
					"site":       job.site.Name(),
					"profile_id": job.profile.ID,
				})
				resultChan <- process(ctx, job)
			}
		}(i + 1)
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()
	close(resultChan)

	results := make([]unitResult, 0, len(jobs))
	for r := range resultChan {
		results = append(results, r)
	}
	return results
}
