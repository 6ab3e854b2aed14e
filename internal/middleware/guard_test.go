package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/testutil"
)

func TestRouteGuard_Loading(t *testing.T) {
	c := newClient(t, "tok", domain.RoleAdmin, false)

	w := httptest.NewRecorder()
	RouteGuard("/personnel-login")(okHandler).ServeHTTP(w, withClient(httptest.NewRequest(http.MethodGet, "/app/", nil), c))

	testutil.AssertStatusCode(t, w, http.StatusAccepted)
	testutil.AssertHeader(t, w, "Retry-After", "1")
	body := testutil.DecodeJSON[map[string]string](t, w)
	testutil.AssertEqual(t, body["outcome"], "loading")
}

func TestRouteGuard_AnonymousPageRedirects(t *testing.T) {
	c := newClient(t, "", domain.RoleNone, true)

	req := withClient(httptest.NewRequest(http.MethodGet, "/app/endorsement?tab=2", nil), c)
	w := httptest.NewRecorder()
	RouteGuard("/personnel-login")(okHandler).ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusSeeOther)
	// the requested location is not carried over
	testutil.AssertHeader(t, w, "Location", "/personnel-login")
}

func TestRouteGuard_AnonymousAPIGets401(t *testing.T) {
	c := newClient(t, "", domain.RoleNone, true)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"api prefix", httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil)},
		{"accept header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/app/", nil)
			r.Header.Set("Accept", "application/json")
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RouteGuard("/personnel-login")(okHandler).ServeHTTP(w, withClient(tt.req, c))

			testutil.AssertStatusCode(t, w, http.StatusUnauthorized)
			body := testutil.DecodeJSON[map[string]string](t, w)
			testutil.AssertEqual(t, body["location"], "/personnel-login")
			testutil.AssertEqual(t, body["outcome"], "redirect")
		})
	}
}

func TestRouteGuard_AuthenticatedPasses(t *testing.T) {
	for _, role := range domain.Roles {
		t.Run(string(role), func(t *testing.T) {
			c := newClient(t, "tok", role, true)

			w := httptest.NewRecorder()
			RouteGuard("/personnel-login")(okHandler).ServeHTTP(w, withClient(httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil), c))

			testutil.AssertStatusCode(t, w, http.StatusOK)
		})
	}
}

func TestRouteGuard_NoClient(t *testing.T) {
	w := httptest.NewRecorder()
	RouteGuard("/personnel-login")(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app/", nil))
	testutil.AssertStatusCode(t, w, http.StatusInternalServerError)
}
