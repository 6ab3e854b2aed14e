package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"naspac-portal/internal/security"
)

// CSRF validates the client's CSRF token on state-changing requests.
// The token is issued with the session snapshot and must come back in the
// X-CSRF-Token header (or X-XSRF-Token, or a csrf_token form field).
func CSRF(tm *security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			client, ok := GetClient(r.Context())
			if !ok {
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			submitted := extractCSRFToken(r)
			if err := tm.Verify(client.CSRFToken, submitted); err != nil {
				reason := "invalid token"
				if submitted == "" {
					reason = "missing token"
				}
				logCSRFFailure(r, client.ID, reason)
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

func isExemptPath(path string) bool {
	for _, exempt := range []string{"/health", "/metrics", "/ws/"} {
		if strings.HasPrefix(path, exempt) {
			return true
		}
	}
	return false
}

// extractCSRFToken checks the headers before the form so JSON bodies are not parsed
func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	if token := r.Header.Get("X-XSRF-Token"); token != "" {
		return token
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return r.FormValue("csrf_token")
	}
	return ""
}

func logCSRFFailure(r *http.Request, clientID, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("client_id", clientID),
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.RequestURI),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
