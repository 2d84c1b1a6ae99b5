package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/discovery"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

// jobRunner owns one job's scheduling state, workers, and render pool.
type jobRunner struct {
	id             string
	seeds          []string
	canonicalSeeds []string
	opts           Options
	canonOpts      urlcanon.Options
	scopeMode      urlcanon.MatchMode

	state *state

	store    interfaces.Store
	pool     interfaces.RenderSlotPool
	progress interfaces.ProgressBus
	logError func(source, message string, context map[string]string)
	logger   arbor.ILogger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	recordMu sync.Mutex
	record   *models.Job
}

func (s *Service) newRunner(jobID string, seeds []string, opts Options) (*jobRunner, error) {
	opts = opts.normalized()

	canonOpts := urlcanon.Options{StableQuery: !opts.UnstableQuery}
	canonicalSeeds := make([]string, 0, len(seeds))
	for _, raw := range seeds {
		c, err := urlcanon.Canonicalize(raw, canonOpts)
		if err != nil {
			continue
		}
		canonicalSeeds = append(canonicalSeeds, c)
	}
	if len(canonicalSeeds) == 0 {
		return nil, fmt.Errorf("capture: no seed resolvable")
	}

	pool, err := s.newPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("capture: creating render pool: %w", err)
	}

	now := time.Now()
	record := &models.Job{
		ID:             jobID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Seeds:          seeds,
		CanonicalSeeds: canonicalSeeds,
		Status:         models.JobStatusPending,
		Options: models.JobOptions{
			Workers:             opts.Workers,
			PageLimitPerSeed:    opts.PageLimitPerSeed,
			StrictPath:          opts.StrictPath,
			SkipCache:           opts.SkipCache,
			UseIncognito:        opts.UseIncognito,
			FollowExternal:      opts.FollowExternal,
			MaxExternalHops:     opts.MaxExternalHops,
			InterRequestDelayMs: opts.InterRequestDelayMs,
			UnstableQuery:       opts.UnstableQuery,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &jobRunner{
		id:             jobID,
		seeds:          seeds,
		canonicalSeeds: canonicalSeeds,
		opts:           opts,
		canonOpts:      canonOpts,
		scopeMode:      s.scopeMode,
		state:          newState(),
		store:          s.store,
		pool:           pool,
		progress:       s.progress,
		logError:       s.logErrorAdapter(),
		logger:         s.logger,
		ctx:            ctx,
		cancelFunc:     cancel,
		record:         record,
	}, nil
}

func (s *Service) newRunnerFromJob(job *models.Job, opts Options) (*jobRunner, error) {
	opts = opts.normalized()
	canonOpts := urlcanon.Options{StableQuery: !opts.UnstableQuery}

	pool, err := s.newPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("capture: creating render pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &jobRunner{
		id:             job.ID,
		seeds:          job.Seeds,
		canonicalSeeds: job.CanonicalSeeds,
		opts:           opts,
		canonOpts:      canonOpts,
		scopeMode:      s.scopeMode,
		state:          newState(),
		store:          s.store,
		pool:           pool,
		progress:       s.progress,
		logError:       s.logErrorAdapter(),
		logger:         s.logger,
		ctx:            ctx,
		cancelFunc:     cancel,
		record:         job,
	}, nil
}

// rehydrate reconstructs completed, dedup, and perSeedCount from persisted
// pages on resume. skippedByLimit is not persisted (see DESIGN.md) and
// starts empty on resume.
func (r *jobRunner) rehydrate(ctx context.Context) error {
	pages, err := r.store.GetPagesByJobID(ctx, r.id)
	if err != nil {
		return err
	}

	r.state.mu.Lock()
	for _, p := range pages {
		r.state.completed[p.CanonicalURL] = true
		for _, alt := range p.AlternateURLs {
			r.state.completed[alt] = true
		}
		r.state.dedup.Put(p.ContentHash, p.ID)

		seedIdx := r.seedIndexForLocked(p.CanonicalURL)
		if seedIdx >= 0 {
			r.state.perSeedCount[seedIdx]++
		}
		r.state.pagesProcessed++
		r.state.pagesFound++
	}
	r.state.mu.Unlock()
	return nil
}

// seedIndexForLocked returns the earliest seed index whose scope contains u,
// or -1. Caller holds state.mu (read-only access to canonicalSeeds, which is
// immutable after construction, so no lock is strictly required, but kept
// consistent with call sites that already hold it).
func (r *jobRunner) seedIndexForLocked(u string) int {
	mode := r.scopeMode
	if r.opts.StrictPath {
		mode = urlcanon.MatchStrict
	}
	for i, seed := range r.canonicalSeeds {
		if urlcanon.InScope(u, seed, mode) {
			return i
		}
	}
	return -1
}

// start seeds the queue (Phase A) and spawns workers. seeder may be nil, in
// which case only the seed URLs themselves are enqueued and sitemap
// discovery is skipped.
func (r *jobRunner) start(seeder *discovery.Seeder) {
	r.recordMu.Lock()
	r.record.Status = models.JobStatusPending
	r.recordMu.Unlock()

	for seedIdx, seed := range r.canonicalSeeds {
		r.state.mu.Lock()
		if !r.state.scheduled(seed) {
			r.state.enqueueLocked(seed, 0, seedIdx, 0)
		}
		r.state.mu.Unlock()

		if seeder == nil {
			continue
		}
		for _, found := range seeder.SeedFromSitemap(r.ctx, seed) {
			r.state.mu.Lock()
			if !r.state.scheduled(found.CanonicalURL) {
				r.state.enqueueLocked(found.CanonicalURL, 0, seedIdx, 0)
			}
			r.state.mu.Unlock()
		}
	}

	r.recordMu.Lock()
	r.record.Status = models.JobStatusInProgress
	r.recordMu.Unlock()
	r.persistRecordAsync()

	r.wg.Add(r.opts.Workers)
	for i := 0; i < r.opts.Workers; i++ {
		workerIndex := i
		common.SafeGo(r.logger, fmt.Sprintf("capture-worker-%d", workerIndex), func() {
			r.runWorker(workerIndex)
		})
	}
	common.SafeGo(r.logger, "capture-finalize", r.finalize)
}

// finalize waits for all workers to exit, then sets the job's terminal status.
func (r *jobRunner) finalize() {
	r.wg.Wait()

	r.recordMu.Lock()
	r.record.UpdatedAt = time.Now()
	r.state.mu.Lock()
	r.record.PagesFound = r.state.pagesFound
	r.record.PagesProcessed = r.state.pagesProcessed
	r.record.PagesFailed = r.state.pagesFailed
	cancelled := r.state.cancelled
	poolFailed := r.state.poolFailed
	lastErr := r.state.lastError
	r.state.mu.Unlock()
	switch {
	case poolFailed:
		r.record.Status = models.JobStatusFailed
		if lastErr != nil {
			r.record.AppendError(lastErr.Error())
		}
	case cancelled:
		r.record.Status = models.JobStatusInterrupted
	default:
		r.record.Status = models.JobStatusCompleted
	}
	record := *r.record
	r.recordMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.store.UpdateJob(ctx, &record); err != nil && r.logger != nil {
		r.logger.Error().Err(err).Str("job_id", r.id).Msg("failed to persist final job status")
	}

	eventType := interfaces.ProgressJobCompleted
	switch {
	case poolFailed:
		eventType = interfaces.ProgressJobFailed
	case cancelled:
		eventType = interfaces.ProgressJobCancelled
	}
	if r.progress != nil {
		r.progress.Publish(context.Background(), interfaces.ProgressEvent{
			Type:  eventType,
			JobID: r.id,
			Payload: map[string]interface{}{
				"pages_processed": record.PagesProcessed,
				"pages_found":     record.PagesFound,
				"pages_failed":    record.PagesFailed,
			},
		})
	}
}

func (r *jobRunner) persistRecordAsync() {
	record := r.snapshotRecord()
	common.SafeGo(r.logger, "capture-persist-record", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.UpdateJob(ctx, record); err != nil && r.logger != nil {
			r.logger.Warn().Err(err).Str("job_id", r.id).Msg("failed to persist job status transition")
		}
	})
}

// snapshotRecord returns a consistent, up-to-date copy of the job record.
func (r *jobRunner) snapshotRecord() *models.Job {
	r.recordMu.Lock()
	defer r.recordMu.Unlock()

	r.state.mu.Lock()
	r.record.PagesFound = r.state.pagesFound
	r.record.PagesProcessed = r.state.pagesProcessed
	r.record.PagesFailed = r.state.pagesFailed
	r.state.mu.Unlock()

	cp := *r.record
	return &cp
}

// cancel requests cooperative termination: workers observe state.cancelled
// and the cancelled context on their next dequeue/render boundary.
func (r *jobRunner) cancel() {
	r.state.mu.Lock()
	r.state.cancelled = true
	r.state.mu.Unlock()
	r.cancelFunc()
}

func (r *jobRunner) appendErrorLocked(msg string) {
	r.recordMu.Lock()
	r.record.AppendError(msg)
	r.recordMu.Unlock()
}

func newPageID() string {
	return "page_" + uuid.New().String()
}
