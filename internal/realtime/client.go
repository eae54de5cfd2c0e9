package realtime

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wikitree/internal/domain/models/wiki"
)

type client struct {
	id   string
	user *wiki.User
	conn *websocket.Conn
	send chan []byte
}

// hello is the first frame a client receives.
type hello struct {
	Type           string `json:"type"`
	SocketClientID string `json:"socketClientId"`
}

// UserFunc extracts the viewer of an upgrade request.
type UserFunc func(r *http.Request) *wiki.User

// Handler upgrades requests to WebSocket connections served by hub.
type Handler struct {
	hub      *Hub
	userOf   UserFunc
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler returns the /api/realtime endpoint. allowOrigin decides the
// Origin check; nil accepts every origin.
func NewHandler(hub *Hub, userOf UserFunc, allowOrigin func(r *http.Request) bool, logger *slog.Logger) *Handler {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:    hub,
		userOf: userOf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin,
		},
		logger: logger,
	}
}

// ServeHTTP registers the connection under the socketClientId query
// parameter, or a fresh id when absent. Events a client caused itself are
// not echoed back to it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	id := r.URL.Query().Get("socketClientId")
	if id == "" {
		id = uuid.NewString()
	}
	c := &client{id: id, user: h.userOf(r), conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.hub.register <- c:
	case <-h.hub.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	// queued events wait in c.send until the write pump starts
	if err := conn.WriteJSON(hello{Type: "hello", SocketClientID: id}); err != nil {
		h.hub.leave(c)
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client frames; it only tracks liveness and close.
func (h *Handler) readPump(c *client) {
	defer func() {
		h.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) &&
				(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
				return
			}
			h.logger.Debug("websocket read ended", "socket_client_id", c.id, "error", err)
			return
		}
	}
}

func (h *Handler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", "socket_client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
