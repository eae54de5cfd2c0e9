package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"wikitree/internal/domain/models/wiki"
)

func setupTestRedis(t *testing.T) *redis.Client {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisRelay_Publish(t *testing.T) {
	client := setupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	relay := NewRedisRelay(client, "", "instance-a", testLogger())
	relay.Handle(ctx, PageEvent{Type: TypeUpdate, Page: &wiki.Page{ID: "p1", Path: "/a"}})

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Origin != "instance-a" || env.Event.Type != TypeUpdate || env.Event.Page.Path != "/a" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestRedisRelay_ListenSkipsOwnEvents(t *testing.T) {
	client := setupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := NewRedisRelay(client, "", "instance-a", testLogger())
	b := NewRedisRelay(client, "", "instance-b", testLogger())

	received := make(chan PageEvent, 4)
	stop, err := a.Listen(ctx, func(ctx context.Context, ev PageEvent) { received <- ev })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer stop()

	if err := a.Publish(ctx, PageEvent{Type: TypeCreate, Page: &wiki.Page{Path: "/own"}}); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(ctx, PageEvent{Type: TypeDelete, Page: &wiki.Page{Path: "/remote"}}); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-received:
		if ev.Page.Path != "/remote" || ev.Type != TypeDelete {
			t.Errorf("got %s %s, want delete /remote", ev.Type, ev.Page.Path)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for relayed event")
	}

	select {
	case ev := <-received:
		t.Errorf("unexpected extra event %s %s", ev.Type, ev.Page.Path)
	case <-time.After(100 * time.Millisecond):
	}
}
