package events

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 256

type subscriber struct {
	name    string
	ch      chan PageEvent
	handler Handler
}

// Bus fans events out to subscribers. Each subscriber owns a buffered queue
// drained by its own goroutine; when the queue is full the event is dropped
// for that subscriber and a warning is logged.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	buffer int
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewBus creates a bus whose subscribers get queues of buffer events.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{buffer: buffer, ctx: ctx, cancel: cancel, logger: logger}
}

// Subscribe registers handler under name and starts its worker.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	sub := &subscriber{name: name, ch: make(chan PageEvent, b.buffer), handler: handler}
	b.subs = append(b.subs, sub)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for ev := range sub.ch {
			b.deliver(sub, ev)
		}
	}()
}

func (b *Bus) deliver(sub *subscriber, ev PageEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked", "subscriber", sub.name, "panic", r)
		}
	}()
	sub.handler(b.ctx, ev)
}

// Publish enqueues ev for every subscriber without blocking.
func (b *Bus) Publish(ctx context.Context, ev PageEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("event dropped, subscriber queue full",
				"subscriber", sub.name,
				"type", ev.Type,
				"path", pagePath(ev),
			)
		}
	}
}

// Close stops accepting events, lets workers drain their queues and waits
// for them to exit.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.cancel()
}

func pagePath(ev PageEvent) string {
	if ev.Page == nil {
		return ""
	}
	return ev.Page.Path
}
