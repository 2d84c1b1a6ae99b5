package interfaces

import (
	"context"

	"github.com/quarryhq/sitecapture/internal/models"
)

// CaptureOptions configures a capture job, mirroring models.JobOptions for
// the call boundary (the capture package owns the concrete type; this is
// the dependency-free view used by callers that only hold an interface).
type CaptureOptions struct {
	Workers             int
	PageLimitPerSeed    int
	StrictPath          bool
	SkipCache           bool
	UseIncognito        bool
	FollowExternal      bool
	MaxExternalHops     int
	InterRequestDelayMs int
	UnstableQuery       bool // true disables query-key sorting; sorted is the default
	ExcludeExtensions   []string
}

// CaptureService runs and tracks capture jobs. At most one job is active per
// process; Start returns an error if a job is already in progress.
type CaptureService interface {
	// Start begins a new job over seeds and returns its ID immediately; the
	// job runs asynchronously until completion, cancellation, or failure.
	Start(ctx context.Context, seeds []string, opts CaptureOptions) (jobID string, err error)

	// Status returns the current snapshot of a job.
	Status(ctx context.Context, jobID string) (*models.Job, error)

	// Cancel requests cooperative termination of a running job. It returns
	// once the cancellation has been recorded, not once the job has stopped.
	Cancel(ctx context.Context, jobID string) error

	// Resume restarts a job left interrupted by process termination,
	// reconstructing scheduler state from persisted pages and the job record.
	Resume(ctx context.Context, jobID string) error

	// ListJobs returns jobs with optional pagination.
	ListJobs(ctx context.Context, opts *ListOptions) ([]*models.Job, error)

	// Close cleanly shuts down the service, cancelling any active job.
	Close() error
}
