// Package realtime maintains per-organization sets of live connections
// and fans broadcast events out to them. Delivery is fire-and-forget: a
// connection that fails a write is evicted, never retried.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/me/teamplan/pkg/model"
)

// Conn is a writable client connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Hub keys live connections by organization. Safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	conns  map[string][]Conn
	logger *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string][]Conn),
		logger: logger.With("component", "realtime"),
	}
}

// Add registers a connection under the organization.
func (h *Hub) Add(orgID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[orgID] = append(h.conns[orgID], c)
	h.logger.Debug("connection added", "org_id", orgID, "count", len(h.conns[orgID]))
}

// Remove unregisters a connection. Removing an unknown connection is a
// no-op.
func (h *Hub) Remove(orgID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(orgID, c)
}

func (h *Hub) removeLocked(orgID string, c Conn) {
	conns := h.conns[orgID]
	for i, existing := range conns {
		if existing == c {
			h.conns[orgID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[orgID]) == 0 {
		delete(h.conns, orgID)
	}
}

// Broadcast sends the event to every connection of the organization.
// Connections that fail the write are closed and evicted.
func (h *Hub) Broadcast(orgID string, event model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[orgID]
	var failed []Conn
	for _, c := range conns {
		if err := c.WriteJSON(event); err != nil {
			h.logger.Debug("broadcast write failed, evicting", "org_id", orgID, "error", err)
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		c.Close()
		h.removeLocked(orgID, c)
	}
	h.logger.Debug("broadcast", "org_id", orgID, "type", event.Type, "delivered", len(conns)-len(failed))
}

// Count returns the number of live connections for the organization.
func (h *Hub) Count(orgID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[orgID])
}
