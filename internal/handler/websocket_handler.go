package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"naspac-portal/internal/service"
	ws "naspac-portal/internal/websocket"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades notification feed connections
type WebSocketHandler struct {
	hub           *ws.Hub
	notifications *service.NotificationService
	interval      time.Duration
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler accepts same-origin connections and those from allowedOrigins
func NewWebSocketHandler(hub *ws.Hub, notifications *service.NotificationService, interval time.Duration, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		notifications: notifications,
		interval:      interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return u.Host == r.Host || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleConnection serves one tab until it disconnects. Every poll pushes
// the notification feed of the client's current session.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "client_id", c.ID)
		return
	}

	feed := func(ctx context.Context) (any, error) {
		return h.notifications.Feed(ctx, c)
	}
	ws.NewConn(r.Context(), h.hub, conn, c.ID, feed, h.interval).Serve()
}
