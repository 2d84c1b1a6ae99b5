package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/quarryhq/sitecapture/internal/models"
)

// errorLogStorage implements interfaces.ErrorLogStorage over a BadgerDB.
type errorLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func newErrorLogStorage(db *BadgerDB, logger arbor.ILogger) *errorLogStorage {
	return &errorLogStorage{db: db, logger: logger}
}

func (s *errorLogStorage) SaveErrorLog(ctx context.Context, entry *models.ErrorLog) error {
	if entry.ID == "" {
		return fmt.Errorf("error log ID is required")
	}
	if err := s.db.Store().Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save error log: %w", err)
	}
	return nil
}

func (s *errorLogStorage) ListErrorLogs(ctx context.Context, limit int) ([]*models.ErrorLog, error) {
	var logs []models.ErrorLog
	if err := s.db.Store().Find(&logs, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list error logs: %w", err)
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	result := make([]*models.ErrorLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}

func (s *errorLogStorage) ClearErrorLogs(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.ErrorLog{}, nil); err != nil {
		return fmt.Errorf("failed to clear error logs: %w", err)
	}
	return nil
}

func (s *errorLogStorage) PurgeErrorLogsOlderThan(ctx context.Context, ts time.Time) (int, error) {
	before, err := s.db.Store().Count(&models.ErrorLog{}, badgerhold.Where("Timestamp").Lt(ts))
	if err != nil {
		return 0, fmt.Errorf("failed to count stale error logs: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.ErrorLog{}, badgerhold.Where("Timestamp").Lt(ts)); err != nil {
		return 0, fmt.Errorf("failed to purge error logs: %w", err)
	}
	return int(before), nil
}
