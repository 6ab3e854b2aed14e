// Package websocket pushes notification updates and notices to the open
// tabs of a portal client.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"naspac-portal/internal/observability"
)

// Message types sent to the browser
const (
	TypeNotifications = "notifications"
	TypeBadge         = "badge"
	TypeNotice        = "notice"
	TypeSession       = "session"
	TypeError         = "error"
)

// ServerMessage is the envelope of every message pushed to a tab
type ServerMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type envelope struct {
	clientID string
	kind     string
	payload  []byte
}

// Hub tracks the connections of every client and fans messages out to them
type Hub struct {
	// connections by portal client id; a client has one per open tab
	clients map[string]map[*Conn]bool

	broadcast  chan *envelope
	register   chan *Conn
	unregister chan *Conn

	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Conn]bool),
		broadcast:  make(chan *envelope, 256),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case conn := <-h.register:
			if h.clients[conn.clientID] == nil {
				h.clients[conn.clientID] = make(map[*Conn]bool)
			}
			h.clients[conn.clientID][conn] = true
			observability.WebSocketConnectionsActive.Inc()
			slog.Debug("connection registered", slog.String("client_id", conn.clientID))

		case conn := <-h.unregister:
			h.remove(conn)

		case env := <-h.broadcast:
			for conn := range h.clients[env.clientID] {
				select {
				case conn.send <- env.payload:
					observability.WebSocketMessagesSent.WithLabelValues(env.kind).Inc()
				default:
					// a tab that cannot keep up is dropped
					h.remove(conn)
				}
			}
		}
	}
}

// remove deletes conn and closes its send channel. Only the hub goroutine calls it.
func (h *Hub) remove(conn *Conn) {
	conns, ok := h.clients[conn.clientID]
	if !ok || !conns[conn] {
		return
	}

	delete(conns, conn)
	close(conn.send)
	observability.WebSocketConnectionsActive.Dec()
	slog.Debug("connection unregistered", slog.String("client_id", conn.clientID))

	if len(conns) == 0 {
		delete(h.clients, conn.clientID)
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	for clientID, conns := range h.clients {
		for conn := range conns {
			close(conn.send)
			observability.WebSocketConnectionsActive.Dec()
		}
		delete(h.clients, clientID)
	}
	slog.Info("hub shutdown complete")
}

// Send pushes a message to every open tab of clientID. It does not block
// once the hub has stopped.
func (h *Hub) Send(clientID, kind string, data any) error {
	payload, err := json.Marshal(ServerMessage{Type: kind, Data: data})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &envelope{clientID: clientID, kind: kind, payload: payload}:
	case <-h.done:
	}
	return nil
}

// Register adds conn to the hub
func (h *Hub) Register(conn *Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes conn from the hub
func (h *Hub) Unregister(conn *Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}
