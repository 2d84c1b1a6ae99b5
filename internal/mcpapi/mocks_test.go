package mcpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

type mockStore struct {
	mu        sync.Mutex
	jobs      map[string]*models.Job
	pages     map[string][]*models.Page
	errorLogs []*models.ErrorLog
}

func newMockStore() *mockStore {
	return &mockStore{jobs: make(map[string]*models.Job), pages: make(map[string][]*models.Page)}
}

func (m *mockStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockStore) UpdateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockStore) DeleteJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

func (m *mockStore) ListJobs(ctx context.Context, opts *interfaces.ListOptions) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Job
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *mockStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return j, nil
}

func (m *mockStore) SavePage(ctx context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.JobID] = append(m.pages[page.JobID], page)
	return nil
}

func (m *mockStore) GetPagesByJobID(ctx context.Context, jobID string) ([]*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[jobID], nil
}

func (m *mockStore) FindPageByContentHash(ctx context.Context, jobID, hash string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages[jobID] {
		if p.ContentHash == hash {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockStore) AddAlternateURL(ctx context.Context, pageID, url string) error {
	return nil
}

func (m *mockStore) SearchPagesByURLSubstring(ctx context.Context, q string) ([]*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Page
	for _, pages := range m.pages {
		for _, p := range pages {
			if containsSub(p.CanonicalURL, q) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *mockStore) FindCachedRender(ctx context.Context, canonicalURL string) (*models.Page, error) {
	return nil, nil
}

func (m *mockStore) SaveErrorLog(ctx context.Context, entry *models.ErrorLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorLogs = append(m.errorLogs, entry)
	return nil
}

func (m *mockStore) ListErrorLogs(ctx context.Context, limit int) ([]*models.ErrorLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && len(m.errorLogs) > limit {
		return m.errorLogs[:limit], nil
	}
	return m.errorLogs, nil
}

func (m *mockStore) ClearErrorLogs(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorLogs = nil
	return nil
}

func (m *mockStore) PurgeErrorLogsOlderThan(ctx context.Context, ts time.Time) (int, error) {
	return 0, nil
}

func (m *mockStore) Close() error { return nil }

func containsSub(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && stringContains(s, sub))
}

func stringContains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// mockCaptureService is a minimal interfaces.CaptureService for API tests
// that don't exercise the real scheduler.
type mockCaptureService struct {
	mu         sync.Mutex
	started    []string
	cancelled  []string
	resumed    []string
	statusJob  *models.Job
	startErr   error
	cancelErr  error
}

func (m *mockCaptureService) Start(ctx context.Context, seeds []string, opts interfaces.CaptureOptions) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("job_%d", len(m.started)+1)
	m.started = append(m.started, id)
	return id, nil
}

func (m *mockCaptureService) Status(ctx context.Context, jobID string) (*models.Job, error) {
	if m.statusJob != nil {
		return m.statusJob, nil
	}
	return &models.Job{ID: jobID, Status: models.JobStatusInProgress}, nil
}

func (m *mockCaptureService) Cancel(ctx context.Context, jobID string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, jobID)
	return nil
}

func (m *mockCaptureService) Resume(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumed = append(m.resumed, jobID)
	return nil
}

func (m *mockCaptureService) ListJobs(ctx context.Context, opts *interfaces.ListOptions) ([]*models.Job, error) {
	return nil, nil
}

func (m *mockCaptureService) Close() error { return nil }
