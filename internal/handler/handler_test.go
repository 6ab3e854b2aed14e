package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/credential"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/middleware"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/repository/memory"
	"naspac-portal/internal/service"
	"naspac-portal/internal/testutil"

	"github.com/stretchr/testify/require"
)

const testClientID = "9c1d2e3f-4a5b-4c6d-8e7f-0a1b2c3d4e5f"

// newTestClient returns a client whose initial revalidation has finished
func newTestClient(t *testing.T, stub *testutil.BackendStub, token string) *service.Client {
	t.Helper()
	ctx := context.Background()

	kv := repository.Scope(memory.NewStorageRepository(), testClientID)
	if token != "" {
		require.NoError(t, kv.Set(ctx, credential.TokenKey, token))
	}

	c := service.NewClient(testClientID, kv, backend.NewClient(stub.URL, 2*time.Second))
	c.CSRFToken = "csrf"
	c.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := c.Session().Wait(waitCtx)
	require.NoError(t, err)
	return c
}

func scriptIdentity(stub *testutil.BackendStub, role domain.Role, userID int64) {
	stub.JSON("GET /auth/validate", http.StatusOK, map[string]any{
		"success": true,
		"role":    role,
		"userId":  userID,
		"email":   "kofi@naspac.test",
		"name":    "Kofi Boateng",
	})
	stub.JSON("GET /users/profile", http.StatusOK, map[string]any{
		"name":  "Kofi Boateng",
		"email": "kofi@naspac.test",
		"role":  role,
	})
}

func signedIn(t *testing.T, role domain.Role) (*testutil.BackendStub, *service.Client) {
	t.Helper()
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, role, 42)
	return stub, newTestClient(t, stub, "tok")
}

func withClient(r *http.Request, c *service.Client) *http.Request {
	return r.WithContext(middleware.WithClient(r.Context(), c))
}

type sentMessage struct {
	clientID string
	kind     string
	data     any
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (b *recordingBroadcaster) Send(clientID, kind string, data any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMessage{clientID, kind, data})
	return nil
}

func (b *recordingBroadcaster) messages() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentMessage(nil), b.sent...)
}
