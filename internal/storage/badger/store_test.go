package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

func newTestStore(t *testing.T) interfaces.Store {
	t.Helper()
	s, err := NewStore(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestJobRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := &models.Job{
		ID:        "job_1",
		CreatedAt: time.Now(),
		Seeds:     []string{"http://example.com/"},
		Status:    models.JobStatusPending,
	}
	require.NoError(t, store.CreateJob(ctx, job))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.Seeds, got.Seeds)

	got.Status = models.JobStatusCompleted
	require.NoError(t, store.UpdateJob(ctx, got))

	reloaded, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, reloaded.Status)

	jobs, err := store.ListJobs(ctx, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	_, err = store.GetJob(ctx, job.ID)
	require.Error(t, err)
}

func TestPageDedupAndCachedRender(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	page := &models.Page{
		ID:           "page_1",
		JobID:        "job_1",
		CanonicalURL: "http://example.com/",
		ContentHash:  "hash-a",
		Status:       models.PageStatusSuccess,
		ExtractedAt:  time.Now(),
	}
	require.NoError(t, store.SavePage(ctx, page))

	found, err := store.FindPageByContentHash(ctx, "job_1", "hash-a")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, page.ID, found.ID)

	missing, err := store.FindPageByContentHash(ctx, "job_1", "hash-missing")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, store.AddAlternateURL(ctx, page.ID, "http://example.com/mirror"))
	pages, err := store.GetPagesByJobID(ctx, "job_1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.True(t, pages[0].HasAlternate("http://example.com/mirror"))

	cached, err := store.FindCachedRender(ctx, "http://example.com/")
	require.NoError(t, err)
	require.NotNil(t, cached)
}

func TestErrorLogRetentionPurge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := &models.ErrorLog{ID: "err_old", Timestamp: time.Now().Add(-40 * 24 * time.Hour), Level: "error", Message: "stale"}
	fresh := &models.ErrorLog{ID: "err_fresh", Timestamp: time.Now(), Level: "error", Message: "recent"}
	require.NoError(t, store.SaveErrorLog(ctx, old))
	require.NoError(t, store.SaveErrorLog(ctx, fresh))

	purged, err := store.PurgeErrorLogsOlderThan(ctx, time.Now().Add(-models.ErrorLogRetention))
	require.NoError(t, err)
	require.Equal(t, 1, purged)

	remaining, err := store.ListErrorLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "err_fresh", remaining[0].ID)

	require.NoError(t, store.ClearErrorLogs(ctx))
	remaining, err = store.ListErrorLogs(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, remaining)
}
