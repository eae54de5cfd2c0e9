// Package realtime pushes page events to connected browsers over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/events"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is what a client receives for a page event.
type Message struct {
	Type           events.Type `json:"type"`
	Page           PageSummary `json:"page"`
	UserID         string      `json:"userId,omitempty"`
	SocketClientID string      `json:"socketClientId,omitempty"`
	At             time.Time   `json:"at"`
}

// PageSummary is the part of a page sent to clients.
type PageSummary struct {
	ID         string      `json:"id"`
	Path       string      `json:"path"`
	Status     wiki.Status `json:"status"`
	RedirectTo *string     `json:"redirectTo,omitempty"`
	Revision   *string     `json:"revision,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Hub tracks connected clients. Registration and broadcast are serialized
// through Run's loop.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan events.PageEvent
	clients    map[*client]struct{}
	done       chan struct{}
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan events.PageEvent, events.DefaultBuffer),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("socket connected", "socket_client_id", c.id, "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("socket disconnected", "socket_client_id", c.id, "clients", len(h.clients))
			}
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Handle is an events.Handler feeding the hub.
func (h *Hub) Handle(ctx context.Context, ev events.PageEvent) {
	if ev.Page == nil {
		return
	}
	select {
	case h.broadcast <- ev:
	case <-h.done:
	case <-ctx.Done():
	}
}

func (h *Hub) fanOut(ev events.PageEvent) {
	payload, err := json.Marshal(newMessage(ev))
	if err != nil {
		h.logger.Error("encode socket message", "error", err)
		return
	}
	for c := range h.clients {
		if ev.SocketClientID != "" && c.id == ev.SocketClientID {
			continue
		}
		if !canSee(c.user, ev.Page) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// slow client, drop it
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("socket client too slow, disconnected", "socket_client_id", c.id)
		}
	}
}

func newMessage(ev events.PageEvent) Message {
	msg := Message{
		Type:           ev.Type,
		SocketClientID: ev.SocketClientID,
		At:             ev.At,
		Page: PageSummary{
			ID:         ev.Page.ID,
			Path:       ev.Page.Path,
			Status:     ev.Page.Status,
			RedirectTo: ev.Page.RedirectTo,
			Revision:   ev.Page.RevisionID,
			UpdatedAt:  ev.Page.UpdatedAt,
		},
	}
	if ev.User != nil {
		msg.UserID = ev.User.ID
	}
	return msg
}

// canSee is a membership-free approximation of the viewer filter: public
// pages go to everyone, other pages to their creator and granted users.
// Link-only pages are never listed for anyone else, and group pages reach
// only their creator.
func canSee(user *wiki.User, page *wiki.Page) bool {
	switch page.Grant {
	case wiki.GrantPublic, 0:
		return true
	}
	if user == nil {
		return false
	}
	return page.IsCreator(user.ID) || page.IsGrantedUser(user.ID)
}
