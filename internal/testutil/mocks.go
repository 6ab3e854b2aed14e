// Package testutil provides shared test utilities, mocks, and fixtures
// for the portal packages.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"naspac-portal/internal/credential"
	"naspac-portal/internal/domain"
)

// MockKeyValueStore implements domain.KeyValueStore for testing
type MockKeyValueStore struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error

	Values map[string]string
}

// NewMockKeyValueStore creates an empty store
func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{Values: make(map[string]string)}
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.Values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Values[key] = value
	return nil
}

func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Values, key)
	return nil
}

// Has reports whether key is stored
func (m *MockKeyValueStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Values[key]
	return ok
}

// NewCredentials returns a credential store over a fresh mock, optionally holding token
func NewCredentials(token string) (*credential.Store, *MockKeyValueStore) {
	kv := NewMockKeyValueStore()
	if token != "" {
		kv.Values[credential.TokenKey] = token
	}
	return credential.NewStore(kv), kv
}

// MockAuthenticator implements session.Authenticator for testing
type MockAuthenticator struct {
	ValidateFunc func(ctx context.Context) (*domain.Validation, error)
	ProfileFunc  func(ctx context.Context) (*domain.Profile, error)
	LogoutFunc   func(ctx context.Context) error

	ValidateCalls atomic.Int32
	ProfileCalls  atomic.Int32
	LogoutCalls   atomic.Int32
}

func (m *MockAuthenticator) Validate(ctx context.Context) (*domain.Validation, error) {
	m.ValidateCalls.Add(1)
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil, ErrMockNotImplemented
}

func (m *MockAuthenticator) Profile(ctx context.Context) (*domain.Profile, error) {
	m.ProfileCalls.Add(1)
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx)
	}
	return nil, ErrMockNotImplemented
}

func (m *MockAuthenticator) Logout(ctx context.Context) error {
	m.LogoutCalls.Add(1)
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

// NetworkCalls is the total number of backend calls made
func (m *MockAuthenticator) NetworkCalls() int {
	return int(m.ValidateCalls.Load() + m.ProfileCalls.Load() + m.LogoutCalls.Load())
}

// RecordingNotifier implements domain.Notifier and keeps every notice
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (n *RecordingNotifier) Notify(ctx context.Context, notice domain.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

// Notices returns a copy of the recorded notices
func (n *RecordingNotifier) Notices() []domain.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notice(nil), n.notices...)
}

// Messages returns the recorded notice messages in order
func (n *RecordingNotifier) Messages() []string {
	notices := n.Notices()
	out := make([]string, len(notices))
	for i, notice := range notices {
		out[i] = notice.Message
	}
	return out
}

// MockEventPublisher implements domain.SessionEventPublisher for testing
type MockEventPublisher struct {
	mu sync.Mutex

	PublishFunc func(ctx context.Context, event *domain.SessionEvent) error
	Events      []domain.SessionEvent
}

func (m *MockEventPublisher) PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

// Types returns the published event types in order
func (m *MockEventPublisher) Types() []domain.SessionEventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SessionEventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}
