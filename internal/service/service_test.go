package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/credential"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/repository/memory"
	"naspac-portal/internal/testutil"

	"github.com/stretchr/testify/require"
)

const testClientID = "5f0c2a7e-8d1b-4f6a-9a43-1c2d3e4f5a6b"

// newTestClient returns a started client whose initial revalidation has completed
func newTestClient(t *testing.T, stub *testutil.BackendStub, token string, opts ...func(*Client)) *Client {
	t.Helper()
	ctx := context.Background()

	kv := repository.Scope(memory.NewStorageRepository(), testClientID)
	if token != "" {
		require.NoError(t, kv.Set(ctx, credential.TokenKey, token))
	}

	c := NewClient(testClientID, kv, backend.NewClient(stub.URL, 2*time.Second))
	for _, opt := range opts {
		opt(c)
	}
	c.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := c.Session().Wait(waitCtx)
	require.NoError(t, err)
	return c
}

// scriptIdentity makes the stub validate and describe a signed-in user
func scriptIdentity(stub *testutil.BackendStub, role domain.Role, userID int64) {
	stub.JSON("GET /auth/validate", http.StatusOK, map[string]any{
		"success": true,
		"role":    role,
		"userId":  userID,
		"email":   "ama@naspac.test",
		"name":    "Ama Mensah",
	})
	stub.JSON("GET /users/profile", http.StatusOK, map[string]any{
		"name":  "Ama Mensah",
		"email": "ama@naspac.test",
		"role":  role,
	})
}

func storedToken(t *testing.T, c *Client) string {
	t.Helper()
	token, err := c.Credentials.Token(context.Background())
	if err != nil {
		return ""
	}
	return token
}
