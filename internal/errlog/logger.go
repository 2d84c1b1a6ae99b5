package errlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

// Logger is the append-only, retention-bounded Error Logger: every write
// persists one record and sweeps entries older than models.ErrorLogRetention,
// so retention is enforced continuously rather than only on a schedule.
type Logger struct {
	store      interfaces.ErrorLogStorage
	logger     arbor.ILogger
	appVersion string
}

// NewLogger builds a Logger. appVersion is stamped on every record and
// reported verbatim by Report, so operators can correlate a diagnostic
// bundle with the build that produced it.
func NewLogger(store interfaces.ErrorLogStorage, logger arbor.ILogger, appVersion string) *Logger {
	return &Logger{store: store, logger: logger, appVersion: appVersion}
}

// Log persists one failure record and purges anything past retention.
func (l *Logger) Log(ctx context.Context, source, level, message string, entryContext map[string]string) error {
	entry := &models.ErrorLog{
		ID:         "errlog_" + uuid.New().String(),
		Timestamp:  time.Now(),
		Source:     source,
		Level:      level,
		Message:    message,
		Context:    entryContext,
		AppVersion: l.appVersion,
	}

	if err := l.store.SaveErrorLog(ctx, entry); err != nil {
		return fmt.Errorf("errlog: saving entry: %w", err)
	}

	if _, err := l.store.PurgeErrorLogsOlderThan(ctx, time.Now().Add(-models.ErrorLogRetention)); err != nil && l.logger != nil {
		l.logger.Warn().Err(err).Msg("errlog: retention purge after write failed")
	}
	return nil
}

// Clear wipes every retained entry on explicit user request.
func (l *Logger) Clear(ctx context.Context) error {
	return l.store.ClearErrorLogs(ctx)
}

// ReportFormat is the output encoding for a diagnostic bundle.
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatText ReportFormat = "text"
)

// reportBundle is a deterministic diagnostic snapshot: the app version, the
// most recent entries, and aggregate counts by level and source.
type reportBundle struct {
	AppVersion string              `json:"app_version"`
	TotalCount int                 `json:"total_count"`
	ByLevel    map[string]int      `json:"by_level"`
	BySource   map[string]int      `json:"by_source"`
	Recent     []*models.ErrorLog  `json:"recent"`
}

// Report renders a diagnostic bundle of the most recent limit entries (0 =
// all retained entries) in the requested format.
func (l *Logger) Report(ctx context.Context, format ReportFormat, limit int) (string, error) {
	entries, err := l.store.ListErrorLogs(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("errlog: listing entries for report: %w", err)
	}

	bundle := reportBundle{
		AppVersion: l.appVersion,
		TotalCount: len(entries),
		ByLevel:    make(map[string]int),
		BySource:   make(map[string]int),
		Recent:     entries,
	}
	for _, e := range entries {
		bundle.ByLevel[e.Level]++
		bundle.BySource[e.Source]++
	}

	switch format {
	case ReportFormatJSON, "":
		return marshalIndent(bundle)
	case ReportFormatText:
		return renderText(bundle), nil
	default:
		return "", fmt.Errorf("errlog: unknown report format %q", format)
	}
}
