package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/security"
	"naspac-portal/internal/session"

	"github.com/google/uuid"
)

const (
	clientCleanupInterval = time.Minute
	storagePurgeInterval  = time.Hour
)

// RegistryConfig holds the lifetimes used by the ClientRegistry
type RegistryConfig struct {
	InitTimeout time.Duration
	IdleTTL     time.Duration
	Retention   time.Duration
}

// ClientRegistry keeps one Client per browser tab. A browser is named by the
// client cookie and its tabs by a tab id; every tab of a browser has its own
// Session Store over the storage scope of that browser. Requests without a
// tab id, such as page navigations, use the browser's default tab. Idle
// clients are evicted from memory while their storage is kept.
type ClientRegistry struct {
	repo   domain.StorageRepository
	api    *backend.Client
	csrf   *security.TokenManager
	cfg    RegistryConfig
	events domain.SessionEventPublisher

	onNotice func(clientID string, notice domain.Notice)

	mu      sync.RWMutex
	clients map[string]*Client

	baseCtx context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// RegistryOption configures a ClientRegistry
type RegistryOption func(*ClientRegistry)

// WithSessionEvents publishes lifecycle events of every client session
func WithSessionEvents(p domain.SessionEventPublisher) RegistryOption {
	return func(r *ClientRegistry) { r.events = p }
}

// WithNoticeListener is called with every notice queued for a client
func WithNoticeListener(fn func(clientID string, notice domain.Notice)) RegistryOption {
	return func(r *ClientRegistry) { r.onNotice = fn }
}

func NewClientRegistry(repo domain.StorageRepository, api *backend.Client, csrf *security.TokenManager, cfg RegistryConfig, opts ...RegistryOption) *ClientRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &ClientRegistry{
		repo:    repo,
		api:     api,
		csrf:    csrf,
		cfg:     cfg,
		clients: make(map[string]*Client),
		baseCtx: ctx,
		cancel:  cancel,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the default-tab client of browser id. See ResolveTab.
func (r *ClientRegistry) Resolve(id string) (c *Client, created bool, err error) {
	return r.ResolveTab(id, "")
}

// ResolveTab returns the client of tab in browser id, creating it when
// unknown. Malformed browser ids are replaced with a fresh one; malformed tab
// ids fall back to the default tab. created reports whether a new entry was made.
func (r *ClientRegistry) ResolveTab(id, tab string) (c *Client, created bool, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		id = uuid.NewString()
	}
	if _, perr := uuid.Parse(tab); perr != nil {
		tab = ""
	}
	key := tabKey(id, tab)

	r.mu.RLock()
	c, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		c.Touch(r.now())
		return c, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		c.Touch(r.now())
		return c, false, nil
	}

	c, err = r.newClient(id, tab)
	if err != nil {
		return nil, false, err
	}
	r.clients[key] = c
	observability.ActiveClients.Set(float64(len(r.clients)))

	c.Start(r.baseCtx)
	return c, true, nil
}

func tabKey(id, tab string) string {
	if tab == "" {
		return id
	}
	return id + "/" + tab
}

func (r *ClientRegistry) newClient(id, tab string) (*Client, error) {
	token, err := r.csrf.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	opts := []session.Option{session.WithInitTimeout(r.cfg.InitTimeout)}
	if r.events != nil {
		opts = append(opts, session.WithEventPublisher(r.events))
	}

	c := NewClient(id, repository.Scope(r.repo, id), r.api, opts...)
	c.TabID = tab
	c.CSRFToken = token
	c.Touch(r.now())
	if r.onNotice != nil {
		c.Notices.OnNotify(func(n domain.Notice) { r.onNotice(id, n) })
	}
	return c, nil
}

// Get returns the registered default-tab client of browser id
func (r *ClientRegistry) Get(id string) (*Client, bool) {
	return r.GetTab(id, "")
}

// GetTab returns a registered client without creating one
func (r *ClientRegistry) GetTab(id, tab string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[tabKey(id, tab)]
	return c, ok
}

// Reload rebuilds the session of c and revalidates it again. Other tabs of
// the same browser keep their sessions.
func (r *ClientRegistry) Reload(c *Client) *session.Store {
	c.Touch(r.now())
	return c.Reset(r.baseCtx)
}

// Len returns the number of clients held in memory
func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// EvictIdle drops clients idle for longer than the configured TTL
func (r *ClientRegistry) EvictIdle() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, c := range r.clients {
		if c.LastSeen().Before(cutoff) {
			delete(r.clients, key)
			evicted++
		}
	}
	observability.ActiveClients.Set(float64(len(r.clients)))
	return evicted
}

// PurgeStorage removes client storage untouched for longer than the retention
func (r *ClientRegistry) PurgeStorage(ctx context.Context) (int64, error) {
	if r.cfg.Retention <= 0 {
		return 0, nil
	}
	return r.repo.DeleteStale(ctx, r.now().Add(-r.cfg.Retention))
}

// Run evicts idle clients and purges stale storage until ctx is done
func (r *ClientRegistry) Run(ctx context.Context) {
	cleanup := time.NewTicker(clientCleanupInterval)
	defer cleanup.Stop()
	purge := time.NewTicker(storagePurgeInterval)
	defer purge.Stop()

	log := observability.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if n := r.EvictIdle(); n > 0 {
				log.Debug("evicted idle clients", "count", n)
			}
		case <-purge.C:
			n, err := r.PurgeStorage(ctx)
			if err != nil {
				log.Error("failed to purge client storage", "error", err)
				continue
			}
			if n > 0 {
				log.Info("purged stale client storage", "keys", n)
			}
		}
	}
}

// Close cancels background session work of every client
func (r *ClientRegistry) Close() {
	r.cancel()
}
