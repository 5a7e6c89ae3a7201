// Package ws streams review workflow events to connected clients over
// WebSocket. Delivery is scoped: a connection only receives events for its
// own company, and can narrow further to a single project.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/revisant/dictum/internal/middleware"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn is a single subscriber with its delivery scope.
type conn struct {
	ws        *websocket.Conn
	cancel    context.CancelFunc
	companyID string
	projectID string // empty subscribes to every project in the company
}

// wants reports whether an event with the given scope should be delivered to
// this connection. An empty scope side matches everything, so unscoped
// messages still reach every subscriber.
func (c *conn) wants(companyID, projectID string) bool {
	if companyID != "" && c.companyID != "" && companyID != c.companyID {
		return false
	}
	if projectID != "" && c.projectID != "" && projectID != c.projectID {
		return false
	}
	return true
}

// Hub tracks subscribers and routes events to the ones whose scope matches.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*conn]struct{})}
}

// HandleWS upgrades the request to a WebSocket subscription. The company
// scope comes from the request context; an optional ?project= query narrows
// the subscription to one project.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{
		ws:        sock,
		cancel:    cancel,
		companyID: middleware.CompanyIDFromContext(r.Context()),
		projectID: r.URL.Query().Get("project"),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected",
		"remote", r.RemoteAddr, "company_id", c.companyID, "project_id", c.projectID)

	// Read loop: detects disconnects and consumes pings. Clients never send
	// application messages.
	go func() {
		defer func() {
			h.remove(c)
			_ = sock.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := sock.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a message to every connection regardless of scope.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	h.send(ctx, "", "", msg)
}

// send delivers msg to the connections whose scope matches.
func (h *Hub) send(ctx context.Context, companyID, projectID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !c.wants(companyID, projectID) {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "company_id", c.companyID)
	}
}
