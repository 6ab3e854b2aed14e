package service

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/credential"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/session"
)

// Client is one running client instance, a browser tab: its storage, its
// credential and the single Session Store built on them. Tabs of one browser
// share ID and storage.
type Client struct {
	ID          string
	TabID       string
	Storage     domain.KeyValueStore
	Credentials *credential.Store
	Backend     *backend.Authorized
	Notices     *NoticeQueue
	CSRFToken   string

	sessionOpts []session.Option

	mu       sync.RWMutex
	session  *session.Store
	lastSeen atomic.Int64

	// viewed ids of a session without a userId, which has no storage key
	viewedMu sync.Mutex
	viewed   []int64
}

// NewClient wires a client over kv. The session starts loading; call Start
// to revalidate the stored credential.
func NewClient(id string, kv domain.KeyValueStore, api *backend.Client, opts ...session.Option) *Client {
	creds := credential.NewStore(kv)
	c := &Client{
		ID:          id,
		Storage:     kv,
		Credentials: creds,
		Backend:     api.As(creds),
		Notices:     NewNoticeQueue(defaultNoticeCapacity),
	}
	c.sessionOpts = append([]session.Option{
		session.WithNotifier(c.Notices),
		session.WithClientID(id),
	}, opts...)
	c.session = session.New(creds, c.Backend, c.sessionOpts...)
	c.Touch(time.Now())
	return c
}

func (c *Client) unkeyedViewed() []int64 {
	c.viewedMu.Lock()
	defer c.viewedMu.Unlock()
	return slices.Clone(c.viewed)
}

func (c *Client) setUnkeyedViewed(ids []int64) {
	c.viewedMu.Lock()
	c.viewed = slices.Clone(ids)
	c.viewedMu.Unlock()
}

// Session returns the current Session Store of the client
func (c *Client) Session() *session.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Start runs Initialize in the background
func (c *Client) Start(ctx context.Context) {
	st := c.Session()
	go st.Initialize(observability.WithClientID(ctx, c.ID))
}

// Reset replaces the Session Store with a fresh loading one, the way a full
// page reload rebuilds the application. The new store is started.
func (c *Client) Reset(ctx context.Context) *session.Store {
	st := session.New(c.Credentials, c.Backend, c.sessionOpts...)

	c.mu.Lock()
	c.session = st
	c.mu.Unlock()

	go st.Initialize(observability.WithClientID(ctx, c.ID))
	return st
}

// Touch records activity at t
func (c *Client) Touch(t time.Time) {
	c.lastSeen.Store(t.UnixNano())
}

// LastSeen returns the time of the last recorded activity
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}
