package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/security"
	"naspac-portal/internal/testutil"
)

func TestCSRF(t *testing.T) {
	c := newClient(t, "", domain.RoleNone, false)
	handler := CSRF(security.NewTokenManager())(okHandler)

	tests := []struct {
		name   string
		method string
		path   string
		setup  func(r *http.Request)
		status int
	}{
		{"safe method", http.MethodGet, "/api/v1/session", nil, http.StatusOK},
		{"exempt path", http.MethodPost, "/health", nil, http.StatusOK},
		{"missing token", http.MethodPost, "/api/v1/auth/logout", nil, http.StatusForbidden},
		{"wrong token", http.MethodPost, "/api/v1/auth/logout", func(r *http.Request) {
			r.Header.Set("X-CSRF-Token", "other")
		}, http.StatusForbidden},
		{"header token", http.MethodPost, "/api/v1/auth/logout", func(r *http.Request) {
			r.Header.Set("X-CSRF-Token", "csrf-token")
		}, http.StatusOK},
		{"alternate header", http.MethodPost, "/api/v1/auth/logout", func(r *http.Request) {
			r.Header.Set("X-XSRF-Token", "csrf-token")
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, withClient(req, c))
			testutil.AssertStatusCode(t, w, tt.status)
		})
	}
}

func TestCSRF_FormField(t *testing.T) {
	c := newClient(t, "", domain.RoleNone, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", strings.NewReader("csrf_token=csrf-token"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	CSRF(security.NewTokenManager())(okHandler).ServeHTTP(w, withClient(req, c))

	testutil.AssertStatusCode(t, w, http.StatusOK)
}

func TestCSRF_NoClient(t *testing.T) {
	w := httptest.NewRecorder()
	CSRF(security.NewTokenManager())(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	testutil.AssertJSONError(t, w, http.StatusForbidden, "Forbidden")
}
