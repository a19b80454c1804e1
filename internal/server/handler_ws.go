package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/me/teamplan/pkg/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is consumed cross-origin by the web frontend.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn serializes writes to one websocket connection. Broadcasts arrive
// from handler goroutines while the read loop answers pings, and gorilla
// permits only one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	*websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

func (c *wsConn) writeText(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, msg)
}

// handleWebSocket upgrades the connection and registers it with the hub
// under the caller's organization. Browsers cannot set headers on
// websocket dials, so the session token travels as a query parameter.
// GET /api/v1/ws?token=
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var org string
	if s.config.Auth.Secret == "" {
		org = r.URL.Query().Get("org_id")
	} else {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing authentication token", http.StatusUnauthorized)
			return
		}
		sess, err := s.verifyToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		org = sess.OrgID
	}
	if org == "" {
		http.Error(w, "missing organization", http.StatusUnauthorized)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := &wsConn{Conn: raw}

	s.hub.Add(org, conn)
	s.logger.Info("websocket connected", "org_id", org)

	conn.WriteJSON(model.Event{
		Type:    model.EventConnected,
		Payload: map[string]string{"org_id": org},
	})

	go s.readLoop(conn, org)
}

// readLoop drains inbound frames until the peer goes away, answering
// "ping" text frames to keep intermediaries from idling the connection
// out.
func (s *Server) readLoop(conn *wsConn, org string) {
	defer func() {
		s.hub.Remove(org, conn)
		conn.Close()
		s.logger.Info("websocket disconnected", "org_id", org)
	}()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == websocket.TextMessage && string(data) == "ping" {
			if err := conn.writeText([]byte("pong")); err != nil {
				return
			}
		}
	}
}
