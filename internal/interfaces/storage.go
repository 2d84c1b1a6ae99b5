package interfaces

import (
	"context"
	"time"

	"github.com/quarryhq/sitecapture/internal/models"
)

// ListOptions paginates/filters job listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// JobStorage is the job-facing persistence surface.
type JobStorage interface {
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, opts *ListOptions) ([]*models.Job, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// PageStorage is the page-facing persistence surface.
type PageStorage interface {
	SavePage(ctx context.Context, page *models.Page) error
	GetPagesByJobID(ctx context.Context, jobID string) ([]*models.Page, error)
	FindPageByContentHash(ctx context.Context, jobID, hash string) (*models.Page, error)
	AddAlternateURL(ctx context.Context, pageID, url string) error
	SearchPagesByURLSubstring(ctx context.Context, q string) ([]*models.Page, error)
	// FindCachedRender returns a previously rendered page matching canonicalURL
	// across jobs, for cache-hit reuse when a job does not request a fresh
	// render. Returns (nil, nil) when no cached render exists.
	FindCachedRender(ctx context.Context, canonicalURL string) (*models.Page, error)
}

// ErrorLogStorage is the error-log persistence surface.
type ErrorLogStorage interface {
	SaveErrorLog(ctx context.Context, entry *models.ErrorLog) error
	ListErrorLogs(ctx context.Context, limit int) ([]*models.ErrorLog, error)
	ClearErrorLogs(ctx context.Context) error
	PurgeErrorLogsOlderThan(ctx context.Context, ts time.Time) (int, error)
}

// Store is the full persistence contract consumed by the core.
// Every method returns a single value or a typed error; there is no streaming.
type Store interface {
	JobStorage
	PageStorage
	ErrorLogStorage
	Close() error
}
