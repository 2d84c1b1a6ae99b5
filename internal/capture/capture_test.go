package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

func testService(store *mockStore, pool interfaces.RenderSlotPool, progress *mockProgress) *Service {
	return NewService(
		store,
		func(size int) (interfaces.RenderSlotPool, error) { return pool, nil },
		progress,
		nil,
		nil,
		urlcanon.MatchLoose,
	)
}

// runAndWait starts a job directly against a runner (bypassing the Service's
// goroutine-driven Start, so the test can block on completion deterministically)
// and returns the finished job record.
func runAndWait(t *testing.T, svc *Service, seeds []string, opts Options) *models.Job {
	t.Helper()
	runner, err := svc.newRunner("job_test", seeds, opts)
	require.NoError(t, err)

	require.NoError(t, svc.store.CreateJob(context.Background(), runner.record))
	runner.start(nil)
	runner.wg.Wait()
	runner.pool.Close()

	return waitForTerminal(t, runner)
}

// waitForTerminal polls the runner's record until finalize, which runs on its
// own goroutine after the workers exit, has set a terminal status.
func waitForTerminal(t *testing.T, runner *jobRunner) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job := runner.snapshotRecord()
		switch job.Status {
		case models.JobStatusCompleted, models.JobStatusInterrupted, models.JobStatusFailed:
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not reach a terminal status (last: %s)", job.ID, job.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCapture_DedupAltURL(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{pages: map[string]mockPage{
		"http://example.com/":  {text: "shared content", links: []string{"http://example.com/mirror"}},
		"http://example.com/mirror": {text: "shared content"},
	}}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	job := runAndWait(t, svc, []string{"http://example.com/"}, Options{Workers: 2, InterRequestDelayMs: 1})

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.PagesProcessed)

	pages, err := store.GetPagesByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.True(t, pages[0].HasAlternate("http://example.com/"))
	assert.True(t, pages[0].HasAlternate("http://example.com/mirror"))
}

func TestCapture_StrictScopeRejectsExternalSibling(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{pages: map[string]mockPage{
		"http://example.com/api": {text: "api home", links: []string{"http://example.com/api-docs"}},
	}}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	job := runAndWait(t, svc, []string{"http://example.com/api"}, Options{
		Workers: 1, InterRequestDelayMs: 1, StrictPath: true, FollowExternal: false,
	})

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.PagesProcessed)

	pages, err := store.GetPagesByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestCapture_ExternalHopLimitStopsFollowing(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{pages: map[string]mockPage{
		"http://example.com/":   {text: "home", links: []string{"http://other.com/a"}},
		"http://other.com/a":    {text: "hop1", links: []string{"http://other.com/b"}},
		"http://other.com/b":    {text: "hop2"},
	}}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	job := runAndWait(t, svc, []string{"http://example.com/"}, Options{
		Workers: 1, InterRequestDelayMs: 1, FollowExternal: true, MaxExternalHops: 1,
	})

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.PagesProcessed)

	pages, err := store.GetPagesByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range pages {
		seen[p.CanonicalURL] = true
	}
	assert.True(t, seen["http://example.com/"])
	assert.True(t, seen["http://other.com/a"])
	assert.False(t, seen["http://other.com/b"])
}

func TestCapture_PerSeedPageLimit(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{pages: map[string]mockPage{
		"http://example.com/":  {text: "home", links: []string{"http://example.com/a", "http://example.com/b"}},
		"http://example.com/a": {text: "page a"},
		"http://example.com/b": {text: "page b"},
	}}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	job := runAndWait(t, svc, []string{"http://example.com/"}, Options{
		Workers: 1, InterRequestDelayMs: 1, PageLimitPerSeed: 1,
	})

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.PagesProcessed)

	pages, err := store.GetPagesByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestCapture_CancelMidFlight(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{pages: map[string]mockPage{
		"http://example.com/": {text: "home", links: []string{"http://example.com/a"}},
	}}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	runner, err := svc.newRunner("job_cancel", []string{"http://example.com/"}, Options{Workers: 1, InterRequestDelayMs: 1})
	require.NoError(t, err)
	require.NoError(t, store.CreateJob(context.Background(), runner.record))

	runner.cancel()
	runner.start(nil)
	runner.wg.Wait()
	runner.pool.Close()

	job := waitForTerminal(t, runner)
	assert.Equal(t, models.JobStatusInterrupted, job.Status)
}

func TestCapture_RenderFailureIsLoggedNotFatal(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{
		pages: map[string]mockPage{"http://example.com/": {text: "home", links: []string{"http://example.com/broken"}}},
		fail: map[string]*interfaces.RenderError{
			"http://example.com/broken": {Kind: interfaces.RenderErrorNavigationFailed, Message: "boom"},
		},
	}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	job := runAndWait(t, svc, []string{"http://example.com/"}, Options{Workers: 1, InterRequestDelayMs: 1})

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.PagesFailed)
	assert.NotEmpty(t, job.Errors)
}

func TestCapture_RenderPoolExhaustionFailsJob(t *testing.T) {
	store := newMockStore()
	progress := &mockProgress{}
	svc := testService(store, &failingPool{}, progress)

	job := runAndWait(t, svc, []string{"http://example.com/"}, Options{Workers: 1, InterRequestDelayMs: 1})

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Errors)
}

func TestCapture_StartRejectsWhileJobActive(t *testing.T) {
	store := newMockStore()
	slot := &mockSlot{pages: map[string]mockPage{"http://example.com/": {text: "home"}}}
	pool := &mockPool{slot: slot}
	progress := &mockProgress{}
	svc := testService(store, pool, progress)

	_, err := svc.Start(context.Background(), []string{"http://example.com/"}, interfaces.CaptureOptions{Workers: 1})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), []string{"http://example.com/"}, interfaces.CaptureOptions{Workers: 1})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	require.NoError(t, svc.Close())
}
