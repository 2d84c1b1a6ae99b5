// Package capture implements the capture orchestrator: the job/queue/worker
// scheduler that interleaves URL discovery, render requests, content
// deduplication, per-seed page-limit accounting, and incremental persistence.
package capture

import (
	"sync"

	"github.com/quarryhq/sitecapture/internal/hashindex"
)

// queueEntry is one pending URL in a job's scheduling queue.
type queueEntry struct {
	canonicalURL string
	depth        int
	seedIdx      int
	externalHops int
}

// Options configures a single capture job. InterRequestDelayMs defaults to
// 500 when zero.
type Options struct {
	Workers             int
	PageLimitPerSeed    int // 0 = unlimited
	StrictPath          bool
	SkipCache           bool
	UseIncognito        bool
	FollowExternal      bool
	MaxExternalHops     int // default 1, range 1-5
	InterRequestDelayMs int // default 500
	UnstableQuery       bool // true disables query-key sorting; zero value keeps the default sorted canonicalization
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 5
	}
	if o.Workers > 10 {
		o.Workers = 10
	}
	if o.InterRequestDelayMs <= 0 {
		o.InterRequestDelayMs = 500
	}
	if o.MaxExternalHops <= 0 {
		o.MaxExternalHops = 1
	}
	if o.MaxExternalHops > 5 {
		o.MaxExternalHops = 5
	}
	return o
}

// state is the single mutex-guarded block of mutable scheduling state for one
// job instance. All mutable job state lives here behind one mutex; critical
// sections stay short.
type state struct {
	mu sync.Mutex

	queue          []queueEntry
	inFlight       map[string]bool
	completed      map[string]bool
	skippedByLimit map[string]bool
	perSeedCount   map[int]int
	depths         map[string]int
	cancelled      bool

	pagesFound     int
	pagesProcessed int
	pagesFailed    int

	poolFailed bool
	lastError  error

	dedup *hashindex.Index
}

func newState() *state {
	return &state{
		inFlight:       make(map[string]bool),
		completed:      make(map[string]bool),
		skippedByLimit: make(map[string]bool),
		perSeedCount:   make(map[int]int),
		depths:         make(map[string]int),
		dedup:          hashindex.NewIndex(),
	}
}

// scheduled reports whether u already occupies any of
// queue/inFlight/completed/skippedByLimit, so callers never double-schedule
// a URL.
func (s *state) scheduled(u string) bool {
	if s.inFlight[u] || s.completed[u] || s.skippedByLimit[u] {
		return true
	}
	for _, e := range s.queue {
		if e.canonicalURL == u {
			return true
		}
	}
	return false
}

// enqueueLocked appends an entry and records pagesFound; caller holds mu.
func (s *state) enqueueLocked(u string, depth, seedIdx, externalHops int) {
	s.queue = append(s.queue, queueEntry{canonicalURL: u, depth: depth, seedIdx: seedIdx, externalHops: externalHops})
	s.depths[u] = depth
	s.pagesFound++
}

// dequeueLocked pops the head of the queue; caller holds mu.
func (s *state) dequeueLocked() (queueEntry, bool) {
	if len(s.queue) == 0 {
		return queueEntry{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// snapshotLocked is a consistent read of progress counters; caller holds mu.
type snapshot struct {
	PagesProcessed int
	PagesFound     int
	QueueSize      int
	InProgress     []string
}

func (s *state) snapshotLocked() snapshot {
	inProgress := make([]string, 0, len(s.inFlight))
	for u := range s.inFlight {
		inProgress = append(inProgress, u)
	}
	return snapshot{
		PagesProcessed: s.pagesProcessed,
		PagesFound:     s.pagesFound,
		QueueSize:      len(s.queue),
		InProgress:     inProgress,
	}
}
