package progress

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/interfaces"
)

// channelSubscriber delivers events over a buffered channel. Notify never
// blocks: once the channel is full, the oldest undelivered event is
// discarded to make room, since a stalled subscriber must never stall the
// publisher.
type channelSubscriber struct {
	events chan interfaces.ProgressEvent
}

func newChannelSubscriber(queueSize int) *channelSubscriber {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &channelSubscriber{events: make(chan interfaces.ProgressEvent, queueSize)}
}

func (c *channelSubscriber) Notify(event interfaces.ProgressEvent) {
	select {
	case c.events <- event:
		return
	default:
	}
	// queue full: drop the oldest event and retry once
	select {
	case <-c.events:
	default:
	}
	select {
	case c.events <- event:
	default:
	}
}

// Bus is the in-process fan-out implementation of interfaces.ProgressBus.
// Subscribers are scoped per job ID; publishing to a job with no subscribers
// is a no-op beyond a map lookup.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[*channelSubscriber]bool
	queueSize   int
	logger      arbor.ILogger
	closed      bool
}

// NewBus constructs a Bus. queueSize bounds the per-subscriber backlog before
// older events are dropped in favor of newer ones.
func NewBus(queueSize int, logger arbor.ILogger) *Bus {
	return &Bus{
		subscribers: make(map[string]map[*channelSubscriber]bool),
		queueSize:   queueSize,
		logger:      logger,
	}
}

func (b *Bus) Subscribe(jobID string) (interfaces.ProgressSubscriber, func()) {
	sub := newChannelSubscriber(b.queueSize)

	b.mu.Lock()
	if b.subscribers[jobID] == nil {
		b.subscribers[jobID] = make(map[*channelSubscriber]bool)
	}
	b.subscribers[jobID][sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers[jobID], sub)
		if len(b.subscribers[jobID]) == 0 {
			delete(b.subscribers, jobID)
		}
		b.mu.Unlock()
		close(sub.events)
	}
	return sub, unsubscribe
}

// SubscribeChan is like Subscribe but returns the raw delivery channel,
// for consumers (the websocket handler) that need to select on it directly
// rather than go through the Notify interface.
func (b *Bus) SubscribeChan(jobID string) (<-chan interfaces.ProgressEvent, func()) {
	sub, unsubscribe := b.Subscribe(jobID)
	return sub.(*channelSubscriber).events, unsubscribe
}

func (b *Bus) Publish(ctx context.Context, event interfaces.ProgressEvent) {
	b.mu.RLock()
	subs := b.subscribers[event.JobID]
	targets := make([]*channelSubscriber, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.Notify(event)
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for jobID, subs := range b.subscribers {
		for s := range subs {
			close(s.events)
		}
		delete(b.subscribers, jobID)
	}
	return nil
}
