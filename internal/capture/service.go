package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/discovery"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

// ErrAlreadyActive is returned by Start when another job is currently live;
// the service serializes active jobs to one per process.
var ErrAlreadyActive = fmt.Errorf("capture: a job is already active")

// ErrorLogFunc records a diagnostic entry; implemented by internal/errlog.
type ErrorLogFunc func(source, level, message string, context map[string]string)

// Service runs capture jobs, enforcing at most one active job per process.
type Service struct {
	mu     sync.Mutex
	active *jobRunner

	store       interfaces.Store
	newPool     func(size int) (interfaces.RenderSlotPool, error)
	progress    interfaces.ProgressBus
	logError    ErrorLogFunc
	logger      arbor.ILogger
	scopeMode   urlcanon.MatchMode
}

// NewService builds a capture Service. newPool constructs a fresh RenderSlotPool
// of the given size for each job (the pool is job-scoped and closed on job end).
func NewService(store interfaces.Store, newPool func(size int) (interfaces.RenderSlotPool, error), progress interfaces.ProgressBus, logError ErrorLogFunc, logger arbor.ILogger, scopeMode urlcanon.MatchMode) *Service {
	return &Service{
		store:     store,
		newPool:   newPool,
		progress:  progress,
		logError:  logError,
		logger:    logger,
		scopeMode: scopeMode,
	}
}

var _ interfaces.CaptureService = (*Service)(nil)

func toCaptureOptions(o interfaces.CaptureOptions) Options {
	return Options{
		Workers:             o.Workers,
		PageLimitPerSeed:    o.PageLimitPerSeed,
		StrictPath:          o.StrictPath,
		SkipCache:           o.SkipCache,
		UseIncognito:        o.UseIncognito,
		FollowExternal:      o.FollowExternal,
		MaxExternalHops:     o.MaxExternalHops,
		InterRequestDelayMs: o.InterRequestDelayMs,
		UnstableQuery:       o.UnstableQuery,
	}
}

// Start begins a new job over seeds. It fails with ErrAlreadyActive if
// another job is currently running.
func (s *Service) Start(ctx context.Context, seeds []string, opts interfaces.CaptureOptions) (string, error) {
	if len(seeds) == 0 {
		return "", fmt.Errorf("capture: at least one seed URL is required")
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return "", ErrAlreadyActive
	}
	s.mu.Unlock()

	jobID := "job_" + uuid.New().String()
	runner, err := s.newRunner(jobID, seeds, toCaptureOptions(opts))
	if err != nil {
		return "", err
	}

	job := runner.record
	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("capture: persisting new job: %w", err)
	}

	s.mu.Lock()
	s.active = runner
	s.mu.Unlock()

	runner.start(discovery.NewSeeder(s.logger, runner.canonOpts, s.scopeMode, s.logErrorAdapter()))
	go s.awaitCompletion(runner)

	return jobID, nil
}

// Resume restarts a job left interrupted by process termination.
func (s *Service) Resume(ctx context.Context, jobID string) error {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("capture: loading job for resume: %w", err)
	}

	opts := Options{
		Workers:             job.Options.Workers,
		PageLimitPerSeed:    job.Options.PageLimitPerSeed,
		StrictPath:          job.Options.StrictPath,
		SkipCache:           job.Options.SkipCache,
		UseIncognito:        job.Options.UseIncognito,
		FollowExternal:      job.Options.FollowExternal,
		MaxExternalHops:     job.Options.MaxExternalHops,
		InterRequestDelayMs: job.Options.InterRequestDelayMs,
		UnstableQuery:       job.Options.UnstableQuery,
	}

	runner, err := s.newRunnerFromJob(job, opts)
	if err != nil {
		return err
	}

	if err := runner.rehydrate(ctx); err != nil {
		return fmt.Errorf("capture: rehydrating job state: %w", err)
	}

	s.mu.Lock()
	s.active = runner
	s.mu.Unlock()

	runner.start(discovery.NewSeeder(s.logger, runner.canonOpts, s.scopeMode, s.logErrorAdapter()))
	go s.awaitCompletion(runner)

	return nil
}

func (s *Service) awaitCompletion(runner *jobRunner) {
	runner.wg.Wait()
	runner.pool.Close()
	s.mu.Lock()
	if s.active == runner {
		s.active = nil
	}
	s.mu.Unlock()
}

// Status returns a consistent snapshot of a job.
func (s *Service) Status(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	runner := s.active
	s.mu.Unlock()

	if runner != nil && runner.id == jobID {
		return runner.snapshotRecord(), nil
	}
	return s.store.GetJob(ctx, jobID)
}

// Cancel requests cooperative termination of the active job.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	runner := s.active
	s.mu.Unlock()

	if runner == nil || runner.id != jobID {
		return fmt.Errorf("capture: job %s is not active", jobID)
	}
	runner.cancel()
	return nil
}

// ListJobs delegates to the store.
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.ListOptions) ([]*models.Job, error) {
	return s.store.ListJobs(ctx, opts)
}

// Close cancels any active job and waits for it to unwind.
func (s *Service) Close() error {
	s.mu.Lock()
	runner := s.active
	s.mu.Unlock()
	if runner != nil {
		runner.cancel()
		runner.wg.Wait()
	}
	return nil
}

func (s *Service) logErrorAdapter() func(source, message string, context map[string]string) {
	return func(source, message string, ctx map[string]string) {
		if s.logError != nil {
			s.logError(source, "warn", message, ctx)
		}
	}
}
