package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/interfaces"
)

// Pool is a fixed-size chromedp browser-context pool implementing
// interfaces.RenderSlotPool. Slots are handed out via a buffered channel
// acting as a semaphore: Acquire blocks until a slot is returned or ctx is
// cancelled.
type Pool struct {
	slots chan *chromeSlot
	all   []*chromeSlot
	size  int
	mu    sync.Mutex
	closed bool
}

// NewPoolFactory returns the pool-factory function consumed by
// capture.NewService: each job gets its own pool of `size` browser contexts,
// closed when the job finishes.
func NewPoolFactory(cfg common.RenderConfig, logger arbor.ILogger) func(size int) (interfaces.RenderSlotPool, error) {
	return func(size int) (interfaces.RenderSlotPool, error) {
		return NewPool(size, cfg, logger)
	}
}

// NewPool creates size browser contexts up front, failing if even one cannot
// be started (a half-started pool would silently run under capacity).
func NewPool(size int, cfg common.RenderConfig, logger arbor.ILogger) (*Pool, error) {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		slots: make(chan *chromeSlot, size),
		all:   make([]*chromeSlot, 0, size),
		size:  size,
	}

	for i := 0; i < size; i++ {
		s, err := newChromeSlot(cfg, logger)
		if err != nil {
			p.closeAll()
			return nil, fmt.Errorf("render: starting browser instance %d: %w", i, err)
		}
		p.all = append(p.all, s)
		p.slots <- s
	}

	return p, nil
}

func (p *Pool) Acquire(ctx context.Context) (interfaces.RenderSlot, error) {
	select {
	case s, ok := <-p.slots:
		if !ok {
			return nil, fmt.Errorf("render: pool is closed")
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) Release(slot interfaces.RenderSlot) {
	s, ok := slot.(*chromeSlot)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.slots <- s
}

func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.slots)
	p.mu.Unlock()

	p.closeAll()
	return nil
}

func (p *Pool) closeAll() {
	for _, s := range p.all {
		s.close()
	}
}

func (p *Pool) Size() int { return p.size }

// newChromeSlot starts one allocator+browser context pair and verifies it
// responds before handing it back, mirroring the startup self-test a pool
// of browser instances needs to avoid silently running degraded.
func newChromeSlot(cfg common.RenderConfig, logger arbor.ILogger) (*chromeSlot, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.ChromeExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromeExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser startup test failed: %w", err)
	}

	return &chromeSlot{
		browserCtx:   browserCtx,
		browserCancel: browserCancel,
		allocCancel:  allocCancel,
		cfg:          cfg,
		logger:       logger,
	}, nil
}
