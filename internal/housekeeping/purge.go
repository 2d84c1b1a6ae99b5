package housekeeping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

// Service runs the scheduled sweep of Error Logger entries past retention.
// This is complementary to the Error Logger's own purge-on-every-write
// behavior: a quiet deployment that logs nothing still gets swept on a
// schedule instead of carrying stale entries indefinitely.
type Service struct {
	store    interfaces.ErrorLogStorage
	cron     *cron.Cron
	logger   arbor.ILogger
	mu       sync.Mutex
	running  bool
	lastRun  *time.Time
	lastErr  string
	entryID  cron.EntryID
	schedule string
}

// NewService builds a Service. schedule must already have passed
// common.ValidateCronSchedule.
func NewService(store interfaces.ErrorLogStorage, schedule string, logger arbor.ILogger) *Service {
	return &Service{
		store:    store,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the purge job and starts the cron scheduler.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("housekeeping: already running")
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runPurge)
	if err != nil {
		return fmt.Errorf("housekeeping: registering purge job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.running = true

	if s.logger != nil {
		s.logger.Info().Str("schedule", s.schedule).Msg("housekeeping: error log purge scheduled")
	}
	return nil
}

// Stop halts the cron scheduler, waiting for an in-flight purge to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	ctx := c.Stop()
	<-ctx.Done()

	if s.logger != nil {
		s.logger.Info().Msg("housekeeping: stopped")
	}
}

// RunNow triggers an out-of-band purge, independent of the cron schedule.
func (s *Service) RunNow() {
	s.runPurge()
}

// LastRun reports when the purge job last completed and, if it failed,
// the error message from that attempt.
func (s *Service) LastRun() (*time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Service) runPurge() {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("housekeeping: recovered from panic in purge job")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-models.ErrorLogRetention)
	purged, err := s.store.PurgeErrorLogsOlderThan(ctx, cutoff)

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		if s.logger != nil {
			s.logger.Error().Err(err).Msg("housekeeping: error log purge failed")
		}
		return
	}

	if s.logger != nil {
		s.logger.Debug().Int("purged", purged).Msg("housekeeping: error log purge completed")
	}
}
