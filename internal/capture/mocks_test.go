package capture

import (
	"context"
	"sync"
	"time"

	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

// mockStore is an in-memory interfaces.Store for deterministic tests.
type mockStore struct {
	mu          sync.Mutex
	jobs        map[string]*models.Job
	pages       map[string]*models.Page
	byHash      map[string]*models.Page
	saveHook    func(p *models.Page) error
	cachedPages map[string]*models.Page
}

func newMockStore() *mockStore {
	return &mockStore{
		jobs:        make(map[string]*models.Job),
		pages:       make(map[string]*models.Page),
		byHash:      make(map[string]*models.Page),
		cachedPages: make(map[string]*models.Page),
	}
}

func (m *mockStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockStore) UpdateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
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
	out := make([]*models.Job, 0, len(m.jobs))
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
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *mockStore) SavePage(ctx context.Context, page *models.Page) error {
	if m.saveHook != nil {
		if err := m.saveHook(page); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *page
	m.pages[page.ID] = &cp
	m.byHash[page.ContentHash] = &cp
	return nil
}

func (m *mockStore) GetPagesByJobID(ctx context.Context, jobID string) ([]*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Page, 0)
	for _, p := range m.pages {
		if p.JobID == jobID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) FindPageByContentHash(ctx context.Context, jobID, hash string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byHash[hash]
	if !ok || p.JobID != jobID {
		return nil, nil
	}
	return p, nil
}

func (m *mockStore) AddAlternateURL(ctx context.Context, pageID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[pageID]
	if !ok {
		return nil
	}
	p.AddAlternate(url)
	return nil
}

func (m *mockStore) SearchPagesByURLSubstring(ctx context.Context, q string) ([]*models.Page, error) {
	return nil, nil
}

func (m *mockStore) FindCachedRender(ctx context.Context, canonicalURL string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.cachedPages[canonicalURL]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (m *mockStore) SaveErrorLog(ctx context.Context, entry *models.ErrorLog) error { return nil }
func (m *mockStore) ListErrorLogs(ctx context.Context, limit int) ([]*models.ErrorLog, error) {
	return nil, nil
}
func (m *mockStore) ClearErrorLogs(ctx context.Context) error { return nil }
func (m *mockStore) PurgeErrorLogsOlderThan(ctx context.Context, ts time.Time) (int, error) {
	return 0, nil
}
func (m *mockStore) Close() error { return nil }

// mockSlot renders a fixed page graph: pages maps a canonical URL to
// the text/links a "render" of that URL would surface.
type mockSlot struct {
	pages map[string]mockPage
	fail  map[string]*interfaces.RenderError
}

type mockPage struct {
	text  string
	links []string
}

func (s *mockSlot) Render(ctx context.Context, url string, opts interfaces.RenderOptions) (*interfaces.RenderResult, error) {
	if err, ok := s.fail[url]; ok {
		return nil, err
	}
	p, ok := s.pages[url]
	if !ok {
		p = mockPage{text: url}
	}
	links := make([]interfaces.DiscoveredLink, 0, len(p.links))
	for _, l := range p.links {
		links = append(links, interfaces.DiscoveredLink{URL: l})
	}
	return &interfaces.RenderResult{
		HTML:  "<html></html>",
		Text:  p.text,
		Links: links,
	}, nil
}

// mockPool hands out a single shared mockSlot; fine for deterministic,
// low-concurrency tests where render outcomes don't depend on which worker
// calls them.
type mockPool struct {
	slot   *mockSlot
	closed bool
}

func (p *mockPool) Acquire(ctx context.Context) (interfaces.RenderSlot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return p.slot, nil
}

func (p *mockPool) Release(slot interfaces.RenderSlot) {}

func (p *mockPool) Close() error {
	p.closed = true
	return nil
}

func (p *mockPool) Size() int { return 1 }

// failingPool always fails Acquire, simulating render-infrastructure exhaustion.
type failingPool struct{}

func (p *failingPool) Acquire(ctx context.Context) (interfaces.RenderSlot, error) {
	return nil, context.DeadlineExceeded
}
func (p *failingPool) Release(slot interfaces.RenderSlot) {}
func (p *failingPool) Close() error                       { return nil }
func (p *failingPool) Size() int                          { return 1 }

// mockProgress records every published event.
type mockProgress struct {
	mu     sync.Mutex
	events []interfaces.ProgressEvent
}

func (m *mockProgress) Subscribe(jobID string) (interfaces.ProgressSubscriber, func()) {
	return nil, func() {}
}

func (m *mockProgress) Publish(ctx context.Context, event interfaces.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockProgress) Close() error { return nil }

func (m *mockProgress) count(t interfaces.ProgressEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
