package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"wikitree/internal/domain/models/wiki"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(8, testLogger())

	var mu sync.Mutex
	var got []Type
	bus.Subscribe("recorder", func(ctx context.Context, ev PageEvent) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})

	ctx := context.Background()
	bus.Publish(ctx, PageEvent{Type: TypeDelete, Page: &wiki.Page{Path: "/a"}})
	bus.Publish(ctx, PageEvent{Type: TypeCreate, Page: &wiki.Page{Path: "/b"}})
	bus.Close()

	if len(got) != 2 || got[0] != TypeDelete || got[1] != TypeCreate {
		t.Errorf("got %v, want [delete create]", got)
	}
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(1, testLogger())

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	delivered := 0
	bus.Subscribe("slow", func(ctx context.Context, ev PageEvent) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	ctx := context.Background()
	bus.Publish(ctx, PageEvent{Type: TypeCreate})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first event")
	}

	// Worker is blocked on the first event: one more fits the queue, the rest drop.
	for range 5 {
		bus.Publish(ctx, PageEvent{Type: TypeUpdate})
	}

	close(release)
	bus.Close()

	if delivered != 2 {
		t.Errorf("delivered %d events, want 2", delivered)
	}
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(1, testLogger())
	called := false
	bus.Subscribe("s", func(ctx context.Context, ev PageEvent) { called = true })
	bus.Close()

	bus.Publish(context.Background(), PageEvent{Type: TypeCreate})
	bus.Close()

	if called {
		t.Error("handler ran after close")
	}
}

func TestBus_RecoversSubscriberPanic(t *testing.T) {
	bus := NewBus(4, testLogger())
	count := 0
	bus.Subscribe("flaky", func(ctx context.Context, ev PageEvent) {
		count++
		if ev.Type == TypeDelete {
			panic("boom")
		}
	})

	ctx := context.Background()
	bus.Publish(ctx, PageEvent{Type: TypeDelete})
	bus.Publish(ctx, PageEvent{Type: TypeCreate})
	bus.Close()

	if count != 2 {
		t.Errorf("handler ran %d times, want 2", count)
	}
}
