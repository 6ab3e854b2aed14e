package cmd

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"naspac-portal/internal/session"
	"naspac-portal/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	stub   *testutil.BackendStub
	store  string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "naspac.yaml")
	require.NoError(t, os.WriteFile(config, []byte("log_level: error\ninit_timeout: 2s\nbackend_timeout: 2s\n"), 0o600))

	return &cli{
		t:      t,
		stub:   testutil.NewBackendStub(t),
		store:  filepath.Join(dir, "state", "naspac.db"),
		config: config,
	}
}

// run executes one invocation, like a fresh process over the same store
func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer

	root := NewRootCommand()
	root.SetArgs(append([]string{"--config", c.config, "--backend-url", c.stub.URL, "--store", c.store}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func (c *cli) scriptAdmin(token string) {
	c.stub.JSON("POST /auth/login-staff-admin", http.StatusOK, map[string]any{"accessToken": token, "role": "ADMIN"})
	c.stub.JSON("GET /auth/validate", http.StatusOK, map[string]any{"success": true, "role": "ADMIN", "userId": 7})
	c.stub.JSON("GET /users/profile", http.StatusOK, map[string]any{"name": "Ama Boateng", "email": "ama@naspac.test", "role": "ADMIN"})
}

func TestCLI_StaffSessionAcrossInvocations(t *testing.T) {
	c := newCLI(t)
	c.scriptAdmin(signedToken(t, time.Now().Add(time.Hour)))
	c.stub.JSON("POST /auth/logout", http.StatusOK, map[string]any{"success": true})

	out, stderr, err := c.run("", "login", "staff", "--staff-id", "S-1", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ADMIN")
	assert.Contains(t, stderr, "Login successful!")

	out, _, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Role:    ADMIN")
	assert.Contains(t, out, "User ID: 7")
	assert.Contains(t, out, "Ama Boateng")

	out, _, err = c.run("", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "Staff Management")
	assert.Contains(t, out, "/dept-placements")

	out, _, err = c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session:    ADMIN")
	assert.Contains(t, out, "expires at")

	_, stderr, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, stderr, session.NoticeLoggedOut)

	out, _, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, notSignedIn)
	assert.Equal(t, 1, c.stub.Calls("POST /auth/logout"))
}

func TestCLI_LogoutFailureKeepsSession(t *testing.T) {
	c := newCLI(t)
	c.scriptAdmin(signedToken(t, time.Now().Add(time.Hour)))
	c.stub.JSON("POST /auth/logout", http.StatusInternalServerError, map[string]any{"message": "down"})

	_, _, err := c.run("", "login", "staff", "--staff-id", "S-1", "--password", "pw")
	require.NoError(t, err)

	_, stderr, err := c.run("", "logout")
	require.Error(t, err)
	assert.Contains(t, stderr, session.NoticeLogoutFailed)

	out, _, err := c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Role:    ADMIN")
}

func TestCLI_StaffLoginWithOTP(t *testing.T) {
	c := newCLI(t)
	c.stub.JSON("POST /auth/login-staff-admin", http.StatusOK, map[string]any{"tempToken": "tmp-1", "message": "Code sent to your email"})
	c.stub.JSON("POST /auth/verify-otp", http.StatusOK, map[string]any{"accessToken": "tok-s", "role": "SUPERVISOR"})
	c.stub.JSON("GET /auth/validate", http.StatusOK, map[string]any{"success": true, "role": "SUPERVISOR", "userId": 8})

	out, _, err := c.run("", "login", "staff", "--staff-id", "S-2", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Code sent to your email")
	assert.Contains(t, out, "--temp-token tmp-1")

	out, _, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, notSignedIn)

	out, _, err = c.run("", "verify-otp", "--temp-token", "tmp-1", "--otp", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as SUPERVISOR")

	out, _, err = c.run("", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "Dashboard")
	assert.NotContains(t, out, "Staff Management")
}

func TestCLI_PersonnelLogin(t *testing.T) {
	c := newCLI(t)
	c.stub.JSON("POST /auth/login-personnel", http.StatusOK, map[string]any{"accessToken": "tok-p"})
	c.stub.JSON("GET /auth/validate", http.StatusOK, map[string]any{"success": true, "role": "PERSONNEL", "userId": 30})
	c.stub.JSON("GET /users/onboarding-status", http.StatusOK, map[string]any{"hasSubmitted": false})

	out, _, err := c.run("secret\n", "login", "personnel", "--nss", "NSS123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as PERSONNEL")
	assert.Contains(t, out, "Next: /onboarding-form")

	// personnel status is not scripted, so the document entries stay disabled
	out, stderr, err := c.run("", "menu")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Onboarding status unavailable")
	assert.Contains(t, out, "disabled")

	out, _, err = c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "stored (not a JWT)")
}

func TestCLI_LoginErrors(t *testing.T) {
	c := newCLI(t)
	c.stub.JSON("POST /auth/login-personnel", http.StatusUnauthorized, map[string]any{})

	_, _, err := c.run("", "login", "personnel", "--nss", "", "--password", "pw")
	require.Error(t, err)
	assert.Equal(t, "Please enter both NSS number and Password", err.Error())
	assert.Equal(t, 0, c.stub.Calls("POST /auth/login-personnel"))

	_, _, err = c.run("", "login", "personnel", "--nss", "NSS1", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials. Please try again.", err.Error())
}

func TestCLI_ForgotPassword(t *testing.T) {
	c := newCLI(t)
	c.stub.JSON("POST /auth/request-forgot-password", http.StatusOK, map[string]any{})

	out, _, err := c.run("", "forgot-password", "--email", "ama@naspac.test")
	require.NoError(t, err)
	assert.Contains(t, out, "If an account exists, a reset link will be sent")

	_, _, err = c.run("", "forgot-password", "--email", "not-an-email")
	require.Error(t, err)
	assert.Equal(t, "Please enter a valid email address", err.Error())
}

func TestCLI_ClientsKeepSeparateSessions(t *testing.T) {
	c := newCLI(t)
	c.scriptAdmin("tok-a")

	_, _, err := c.run("", "--client", "work", "login", "staff", "--staff-id", "S-1", "--password", "pw")
	require.NoError(t, err)

	out, _, err := c.run("", "--client", "work", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ADMIN")

	out, _, err = c.run("", "--client", "home", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, notSignedIn)
}

func TestCLI_BackendURLFromEnvironment(t *testing.T) {
	c := newCLI(t)
	c.stub.JSON("POST /auth/request-forgot-password", http.StatusOK, map[string]any{"message": "Check your inbox"})
	t.Setenv("NASPAC_BACKEND_URL", c.stub.URL)

	var stdout bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"--config", c.config, "--store", c.store, "forgot-password", "--email", "ama@naspac.test"})
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "Check your inbox")
}

func TestCLI_Version(t *testing.T) {
	c := newCLI(t)
	out, _, err := c.run("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "naspac "+Version)
}

func TestDescribeExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"valid", signedToken(t, now.Add(90*time.Minute)), "expires at 2026-03-01T13:30:00Z (in 1h30m0s)"},
		{"expired", signedToken(t, now.Add(-time.Minute)), "expired at 2026-03-01T11:59:00Z"},
		{"no expiry", noExp, "stored (no expiry)"},
		{"opaque", "opaque-token", "stored (not a JWT)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeExpiry(tt.token, now))
		})
	}
}
