package handler

import (
	"errors"
	"io"
	"net/http"

	"naspac-portal/internal/observability"
	"naspac-portal/internal/service"
	ws "naspac-portal/internal/websocket"
)

// Broadcaster pushes a message to every open tab of a client
type Broadcaster interface {
	Send(clientID, kind string, data any) error
}

// NotificationHandler serves the notification feed and badge
type NotificationHandler struct {
	notifications *service.NotificationService
	broadcaster   Broadcaster
}

func NewNotificationHandler(notifications *service.NotificationService, broadcaster Broadcaster) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, broadcaster: broadcaster}
}

// MarkViewedRequest lists the ids to mark; empty marks the whole feed
type MarkViewedRequest struct {
	IDs []int64 `json:"ids"`
}

// BadgeUpdate is pushed to the client's tabs when the badge changes
type BadgeUpdate struct {
	Unviewed int `json:"unviewed"`
}

// List returns the notification feed of the session
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}

	feed, err := h.notifications.Feed(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// MarkViewed records viewed notifications and updates the badge on every tab
func (h *NotificationHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}

	var req MarkViewedRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	feed, err := h.notifications.MarkViewed(r.Context(), c, req.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.broadcaster.Send(c.ID, ws.TypeBadge, BadgeUpdate{Unviewed: feed.Unviewed}); err != nil {
		observability.FromContext(r.Context()).Warn("failed to broadcast badge", "error", err)
	}
	writeJSON(w, http.StatusOK, feed)
}
