package middleware

import (
	"net/http"
	"strings"

	"naspac-portal/internal/guard"
)

// RouteGuard admits requests only once the client's session has resolved
// to a signed-in user. While the session is loading it answers 202 so the
// caller retries. Without a session, pages are redirected to loginPath and
// API calls get 401 with the login location. The requested location is not
// remembered.
func RouteGuard(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, ok := GetClient(r.Context())
			if !ok {
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			switch guard.Decide(client.Session().State()) {
			case guard.RenderLoading:
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusAccepted, map[string]string{"outcome": guard.RenderLoading.String()})
			case guard.RedirectLogin:
				if wantsJSON(r) {
					writeJSON(w, http.StatusUnauthorized, map[string]string{
						"error":    "Not authenticated",
						"outcome":  guard.RedirectLogin.String(),
						"location": loginPath,
					})
					return
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
