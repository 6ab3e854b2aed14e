package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/credential"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/repository/memory"
	"naspac-portal/internal/security"
	"naspac-portal/internal/session"
	"naspac-portal/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, stub *testutil.BackendStub, repo domain.StorageRepository, cfg RegistryConfig, opts ...RegistryOption) *ClientRegistry {
	t.Helper()
	if cfg.InitTimeout == 0 {
		cfg.InitTimeout = time.Second
	}
	r := NewClientRegistry(repo, backend.NewClient(stub.URL, time.Second), security.NewTokenManager(), cfg, opts...)
	t.Cleanup(r.Close)
	return r
}

func waitSession(t *testing.T, st *session.Store) domain.SessionState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	state, err := st.Wait(ctx)
	require.NoError(t, err)
	return state
}

func TestRegistry_ResolveCreatesOnce(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{})

	c, created, err := r.Resolve("")
	require.NoError(t, err)
	assert.True(t, created)
	_, perr := uuid.Parse(c.ID)
	assert.NoError(t, perr)
	assert.Len(t, c.CSRFToken, 64)

	again, created, err := r.Resolve(c.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, c, again)
	assert.Equal(t, 1, r.Len())

	state := waitSession(t, c.Session())
	testutil.AssertAnonymous(t, state)
}

func TestRegistry_MalformedIDIsReplaced(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{})

	c, created, err := r.Resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "../../etc/passwd", c.ID)
}

func TestRegistry_ConcurrentResolveSharesClient(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{})
	id := uuid.NewString()

	var wg sync.WaitGroup
	clients := make([]*Client, 20)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := r.Resolve(id)
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RevalidatesPersistedCredential(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RoleAdmin, 11)
	repo := memory.NewStorageRepository()
	id := uuid.NewString()
	require.NoError(t, repository.Scope(repo, id).Set(context.Background(), credential.TokenKey, "tok-1"))

	r := newTestRegistry(t, stub, repo, RegistryConfig{})
	c, _, err := r.Resolve(id)
	require.NoError(t, err)

	state := waitSession(t, c.Session())
	assert.Equal(t, domain.RoleAdmin, state.Role)
	assert.Equal(t, "Bearer tok-1", stub.LastAuthorization("GET /auth/validate"))
}

func TestRegistry_ReloadStartsLoadingAgain(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	release := make(chan struct{})
	stub.Handle("GET /auth/validate", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})
	repo := memory.NewStorageRepository()
	r := newTestRegistry(t, stub, repo, RegistryConfig{})

	c, _, err := r.Resolve("")
	require.NoError(t, err)
	first := c.Session()
	waitSession(t, first)

	require.NoError(t, c.Credentials.Set(context.Background(), "tok-2"))
	reloaded := r.Reload(c)

	assert.NotSame(t, first, reloaded)
	assert.Same(t, reloaded, c.Session())
	assert.True(t, reloaded.State().Loading)

	close(release)
	state := waitSession(t, reloaded)
	testutil.AssertAnonymous(t, state)
	assert.Empty(t, storedToken(t, c))
	assert.Equal(t, []string{session.NoticeSessionExpired}, noticeMessages(c.Notices.Drain()))
}

func TestRegistry_TabsKeepSeparateSessions(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RoleAdmin, 11)
	repo := memory.NewStorageRepository()
	id := uuid.NewString()
	require.NoError(t, repository.Scope(repo, id).Set(context.Background(), credential.TokenKey, "tok-1"))
	r := newTestRegistry(t, stub, repo, RegistryConfig{})

	tabA, tabB := uuid.NewString(), uuid.NewString()
	a, created, err := r.ResolveTab(id, tabA)
	require.NoError(t, err)
	assert.True(t, created)
	b, created, err := r.ResolveTab(id, tabB)
	require.NoError(t, err)
	assert.True(t, created)

	assert.NotSame(t, a, b)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, id, b.ID)
	assert.Equal(t, tabA, a.TabID)
	assert.NotEqual(t, a.CSRFToken, b.CSRFToken)
	assert.Equal(t, 2, r.Len())

	// each tab revalidated on its own from the shared storage
	assert.Equal(t, domain.RoleAdmin, waitSession(t, a.Session()).Role)
	assert.Equal(t, domain.RoleAdmin, waitSession(t, b.Session()).Role)
	assert.Equal(t, 2, stub.Calls("GET /auth/validate"))

	require.NoError(t, a.Storage.Set(context.Background(), "theme", "dark"))
	value, err := b.Storage.Get(context.Background(), "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)

	release := make(chan struct{})
	defer close(release)
	stub.Handle("GET /auth/validate", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})

	sessionB := b.Session()
	reloaded := r.Reload(a)
	assert.True(t, reloaded.State().Loading)

	assert.Same(t, sessionB, b.Session())
	st := b.Session().State()
	assert.False(t, st.Loading, "reloading one tab must not reload the others")
	assert.Equal(t, domain.RoleAdmin, st.Role)

	again, created, err := r.ResolveTab(id, tabB)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, b, again)
}

func TestRegistry_MalformedTabUsesDefaultTab(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{})

	def, _, err := r.Resolve("")
	require.NoError(t, err)

	c, created, err := r.ResolveTab(def.ID, "<script>")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, def, c)
	assert.Empty(t, c.TabID)

	got, ok := r.GetTab(def.ID, "")
	assert.True(t, ok)
	assert.Same(t, def, got)
}

func TestRegistry_EvictIdleKeepsStorage(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	repo := memory.NewStorageRepository()
	r := newTestRegistry(t, stub, repo, RegistryConfig{IdleTTL: 30 * time.Minute})

	now := time.Now()
	r.now = func() time.Time { return now }

	idle, _, err := r.Resolve("")
	require.NoError(t, err)
	require.NoError(t, idle.Storage.Set(context.Background(), "theme", "dark"))
	active, _, err := r.Resolve("")
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	active.Touch(now)

	assert.Equal(t, 1, r.EvictIdle())
	_, ok := r.Get(idle.ID)
	assert.False(t, ok)
	_, ok = r.Get(active.ID)
	assert.True(t, ok)

	value, err := repository.Scope(repo, idle.ID).Get(context.Background(), "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)
}

func TestRegistry_EvictIdleDisabled(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{})
	_, _, err := r.Resolve("")
	require.NoError(t, err)

	assert.Zero(t, r.EvictIdle())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_PurgeStorage(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	var cutoff time.Time
	repo := &stubStorage{
		StorageRepository: memory.NewStorageRepository(),
		deleteStale: func(before time.Time) (int64, error) {
			cutoff = before
			return 3, nil
		},
	}
	r := newTestRegistry(t, stub, repo, RegistryConfig{Retention: 24 * time.Hour})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	n, err := r.PurgeStorage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, now.Add(-24*time.Hour), cutoff)
}

func TestRegistry_NoticeListener(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	var (
		mu   sync.Mutex
		seen []string
	)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{},
		WithNoticeListener(func(clientID string, n domain.Notice) {
			mu.Lock()
			seen = append(seen, clientID+":"+n.Message)
			mu.Unlock()
		}))

	c, _, err := r.Resolve("")
	require.NoError(t, err)
	c.Notices.Notify(context.Background(), domain.Notice{Level: domain.NoticeInfo, Message: "hello"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{c.ID + ":hello"}, seen)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	r := newTestRegistry(t, stub, memory.NewStorageRepository(), RegistryConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type stubStorage struct {
	domain.StorageRepository
	deleteStale func(before time.Time) (int64, error)
}

func (s *stubStorage) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	return s.deleteStale(before)
}

func noticeMessages(notices []domain.Notice) []string {
	out := make([]string, len(notices))
	for i, n := range notices {
		out[i] = n.Message
	}
	return out
}
