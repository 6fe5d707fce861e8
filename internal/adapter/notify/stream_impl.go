package notify

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamBuffer       = 16
)

// Event is one message pushed to stream subscribers.
type Event struct {
	ID    uuid.UUID `json:"id"`
	Kind  string    `json:"kind"`
	Title string    `json:"title,omitempty"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

// Hub broadcasts notifications to connected websocket clients. Slow clients
// miss events rather than stall the scheduler.
type Hub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	now     func() time.Time
}

type streamClient struct {
	conn *websocket.Conn
	send chan Event
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*streamClient]struct{}), now: time.Now}
}

func (h *Hub) Notify(_ context.Context, title, body string) error {
	h.broadcast(Event{ID: uuid.New(), Kind: "notification", Title: title, Body: body, At: h.now().UTC()})
	return nil
}

func (h *Hub) SendDirectAlert(_ context.Context, text string) error {
	h.broadcast(Event{ID: uuid.New(), Kind: "alert", Body: text, At: h.now().UTC()})
	return nil
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Stream upgrade failed", "error", err)
		return
	}
	c := &streamClient{conn: conn, send: make(chan Event, streamBuffer)}
	h.add(c)
	defer h.remove(c)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slog.Warn("Stream client too slow, dropping event", "kind", ev.Kind)
		}
	}
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
