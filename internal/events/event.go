// Package events carries page lifecycle events from the wiki service to its
// subscribers: the realtime hub, the search indexer and the Redis relay.
package events

import (
	"context"
	"time"

	"wikitree/internal/domain/models/wiki"
)

// Type names a page lifecycle transition.
type Type string

const (
	TypeCreate Type = "create"
	TypeUpdate Type = "update"
	TypeDelete Type = "delete"

	// TypeRedirect announces a redirect stub left at a renamed page's old
	// path. Stubs are not content and are never indexed.
	TypeRedirect Type = "redirect"
)

// PageEvent is emitted after a page mutation has been persisted.
type PageEvent struct {
	Type           Type       `json:"type"`
	Page           *wiki.Page `json:"page"`
	User           *wiki.User `json:"user,omitempty"`
	SocketClientID string     `json:"socket_client_id,omitempty"`
	At             time.Time  `json:"at"`
}

// Publisher accepts events. Publish never blocks on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev PageEvent)
}

// Handler consumes one event.
type Handler func(ctx context.Context, ev PageEvent)

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, PageEvent) {}
