package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/middleware"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/service"
	"naspac-portal/internal/views"
)

// ErrorResponse is the body of every JSON error
type ErrorResponse struct {
	Error string `json:"error"`
}

// RestrictedResponse replaces a view the role may not open
type RestrictedResponse struct {
	Restricted bool   `json:"restricted"`
	Message    string `json:"message"`
}

// MessageResponse carries a user-facing confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeRestricted(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, RestrictedResponse{Restricted: true, Message: views.RestrictedMessage})
}

// writeServiceError maps service and backend errors onto HTTP responses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		input  *domain.InputError
		reject *domain.AuthError
		flow   *service.FlowError
		status *backend.StatusError
	)

	switch {
	case errors.As(err, &input):
		writeError(w, http.StatusBadRequest, input.Message)
	case errors.As(err, &reject):
		writeError(w, http.StatusUnauthorized, reject.Message)
	case errors.As(err, &flow):
		code := http.StatusBadGateway
		// a backend 4xx such as an unknown reset token is the caller's problem
		if errors.As(err, &status) && status.Code >= 400 && status.Code < 500 {
			code = status.Code
		}
		observability.FromContext(r.Context()).Warn("auth flow failed", "error", err)
		writeError(w, code, flow.Message)
	case errors.Is(err, domain.ErrNotAuthenticated), backend.IsStatus(err, http.StatusUnauthorized):
		// a backend 401 means the credential went stale after the guard admitted the request
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, domain.ErrAccessRestricted):
		writeRestricted(w)
	case errors.Is(err, views.ErrUnknownView):
		writeError(w, http.StatusNotFound, "View not found")
	default:
		observability.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, http.StatusBadGateway, "Backend request failed")
	}
}

// requireClient fetches the portal client bound by the client middleware
func requireClient(w http.ResponseWriter, r *http.Request) (*service.Client, bool) {
	c, ok := middleware.GetClient(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return c, true
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}
