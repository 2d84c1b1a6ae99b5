// Package mcpapi implements the programmatic capability surface shared by
// the HTTP control surface and the MCP stdio binary: a fixed set of
// input-typed operations, each returning a complete, delivery-free result.
package mcpapi

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/errlog"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

// API implements the crawl/pages/convert/export/diagnostics capability
// surface over a CaptureService, a Store, and an Error Logger. Both
// cmd/sitecapture's HTTP handlers and cmd/sitecapture-mcp's tool handlers
// call through the same API value, so the two binaries never diverge in
// behavior.
type API struct {
	capture interfaces.CaptureService
	store   interfaces.Store
	errlog  *errlog.Logger
	logger  arbor.ILogger
}

// New builds an API.
func New(capture interfaces.CaptureService, store interfaces.Store, errlogger *errlog.Logger, logger arbor.ILogger) *API {
	return &API{capture: capture, store: store, errlog: errlogger, logger: logger}
}

// CrawlStart begins a new job. See interfaces.CaptureService.Start.
func (a *API) CrawlStart(ctx context.Context, seeds []string, opts interfaces.CaptureOptions) (string, error) {
	jobID, err := a.capture.Start(ctx, seeds, opts)
	if err != nil {
		return "", err
	}
	if a.logger != nil {
		a.logger.Info().Str("job_id", jobID).Int("seeds", len(seeds)).Msg("mcpapi: crawl.start")
	}
	return jobID, nil
}

// CrawlStatus returns the merged snapshot + job record for jobID.
func (a *API) CrawlStatus(ctx context.Context, jobID string) (*models.Job, error) {
	return a.capture.Status(ctx, jobID)
}

// CrawlCancelResult is the fixed {cancelled:true} shape crawl.cancel returns.
type CrawlCancelResult struct {
	Cancelled bool `json:"cancelled"`
}

// CrawlCancel requests cooperative termination of jobID.
func (a *API) CrawlCancel(ctx context.Context, jobID string) (CrawlCancelResult, error) {
	if err := a.capture.Cancel(ctx, jobID); err != nil {
		return CrawlCancelResult{}, err
	}
	return CrawlCancelResult{Cancelled: true}, nil
}

// CrawlResume restarts a job left interrupted by process termination.
func (a *API) CrawlResume(ctx context.Context, jobID string) (string, error) {
	if err := a.capture.Resume(ctx, jobID); err != nil {
		return "", err
	}
	return jobID, nil
}

// PagesList returns every page persisted for jobID.
func (a *API) PagesList(ctx context.Context, jobID string) ([]*models.Page, error) {
	return a.store.GetPagesByJobID(ctx, jobID)
}

// PagesSearch returns pages whose canonical URL contains urlSubstring.
func (a *API) PagesSearch(ctx context.Context, urlSubstring string) ([]*models.Page, error) {
	if urlSubstring == "" {
		return nil, fmt.Errorf("mcpapi: pages.search requires a non-empty urlSubstring")
	}
	return a.store.SearchPagesByURLSubstring(ctx, urlSubstring)
}

// DiagnosticsGetReport returns the full diagnostic bundle in the requested format.
func (a *API) DiagnosticsGetReport(ctx context.Context, format errlog.ReportFormat) (string, error) {
	return a.errlog.Report(ctx, format, 0)
}

// GetErrorsOptions controls diagnostics.getErrors.
type GetErrorsOptions struct {
	CountOnly bool
	Limit     int
}

// GetErrorsResult is the result of diagnostics.getErrors.
type GetErrorsResult struct {
	Count   int                 `json:"count"`
	Entries []*models.ErrorLog `json:"entries,omitempty"`
}

// DiagnosticsGetErrors lists recent error log entries, or just a count when
// opts.CountOnly is set.
func (a *API) DiagnosticsGetErrors(ctx context.Context, opts GetErrorsOptions) (GetErrorsResult, error) {
	entries, err := a.store.ListErrorLogs(ctx, opts.Limit)
	if err != nil {
		return GetErrorsResult{}, err
	}
	if opts.CountOnly {
		return GetErrorsResult{Count: len(entries)}, nil
	}
	return GetErrorsResult{Count: len(entries), Entries: entries}, nil
}

// DiagnosticsClearErrors wipes every retained error log entry.
func (a *API) DiagnosticsClearErrors(ctx context.Context) error {
	return a.errlog.Clear(ctx)
}
