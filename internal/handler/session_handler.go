package handler

import (
	"net/http"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/service"
	"naspac-portal/internal/session"
)

// Reloader rebuilds the session of a client
type Reloader interface {
	Reload(c *service.Client) *session.Store
}

// SessionHandler exposes the session snapshot of the calling client
type SessionHandler struct {
	reloader Reloader
}

func NewSessionHandler(reloader Reloader) *SessionHandler {
	return &SessionHandler{reloader: reloader}
}

// SessionResponse is the snapshot returned to the browser. Notices are
// handed out once.
type SessionResponse struct {
	Session   domain.SessionState `json:"session"`
	CSRFToken string              `json:"csrfToken"`
	Notices   []domain.Notice     `json:"notices"`
}

// Get returns the current session state
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Session:   c.Session().State(),
		CSRFToken: c.CSRFToken,
		Notices:   c.Notices.Drain(),
	})
}

// Reload replaces the session with a fresh one that revalidates the stored
// credential, like a full page reload.
func (h *SessionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	c, ok := requireClient(w, r)
	if !ok {
		return
	}
	st := h.reloader.Reload(c)
	writeJSON(w, http.StatusAccepted, SessionResponse{
		Session:   st.State(),
		CSRFToken: c.CSRFToken,
		Notices:   []domain.Notice{},
	})
}
