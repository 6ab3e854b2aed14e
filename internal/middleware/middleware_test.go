package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/repository/memory"
	"naspac-portal/internal/service"
	"naspac-portal/internal/testutil"
)

const testClientID = "0b8f3f2e-3c55-4b7e-9d0c-1f2e3d4c5b6a"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

// newClient builds a client over a backend stub. With token set the stub
// validates it as role; started clients have finished Initialize.
func newClient(t *testing.T, token string, role domain.Role, start bool) *service.Client {
	t.Helper()
	stub := testutil.NewBackendStub(t)
	if role != domain.RoleNone {
		stub.JSON("GET /auth/validate", http.StatusOK, map[string]any{"success": true, "role": role, "userId": 5})
	}

	kv := repository.Scope(memory.NewStorageRepository(), testClientID)
	c := service.NewClient(testClientID, kv, backend.NewClient(stub.URL, time.Second))
	c.CSRFToken = "csrf-token"
	if token != "" {
		testutil.AssertNoError(t, c.Credentials.Set(context.Background(), token))
	}
	if start {
		c.Start(context.Background())
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := c.Session().Wait(ctx)
		testutil.AssertNoError(t, err)
	}
	return c
}

func withClient(r *http.Request, c *service.Client) *http.Request {
	return r.WithContext(WithClient(r.Context(), c))
}

type fakeResolver struct {
	client  *service.Client
	created bool
	err     error
	gotID   string
	gotTab  string
}

func (f *fakeResolver) ResolveTab(id, tab string) (*service.Client, bool, error) {
	f.gotID = id
	f.gotTab = tab
	return f.client, f.created, f.err
}
