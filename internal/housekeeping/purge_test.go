package housekeeping

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/sitecapture/internal/models"
)

type fakeErrorLogStore struct {
	mu      sync.Mutex
	entries []*models.ErrorLog
	purges  int
}

func (f *fakeErrorLogStore) SaveErrorLog(ctx context.Context, entry *models.ErrorLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeErrorLogStore) ListErrorLogs(ctx context.Context, limit int) ([]*models.ErrorLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.ErrorLog{}, f.entries...), nil
}

func (f *fakeErrorLogStore) ClearErrorLogs(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	return nil
}

func (f *fakeErrorLogStore) PurgeErrorLogsOlderThan(ctx context.Context, ts time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	kept := f.entries[:0]
	purged := 0
	for _, e := range f.entries {
		if e.Timestamp.Before(ts) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return purged, nil
}

func TestRunNowPurgesStaleEntries(t *testing.T) {
	store := &fakeErrorLogStore{}
	store.entries = []*models.ErrorLog{
		{ID: "old", Timestamp: time.Now().Add(-40 * 24 * time.Hour)},
		{ID: "fresh", Timestamp: time.Now()},
	}

	svc := NewService(store, "0 0 * * * *", nil)
	svc.RunNow()

	remaining, err := store.ListErrorLogs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)

	lastRun, lastErr := svc.LastRun()
	require.NotNil(t, lastRun)
	assert.Empty(t, lastErr)
}

func TestStartTwiceFails(t *testing.T) {
	store := &fakeErrorLogStore{}
	svc := NewService(store, "0 0 * * * *", nil)

	require.NoError(t, svc.Start())
	defer svc.Stop()

	err := svc.Start()
	assert.Error(t, err)
}
