// Package session holds the identity of one running client and the rules for
// revalidating, enriching and ending it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"naspac-portal/internal/credential"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
)

// User-facing notices
const (
	NoticeSessionExpired = "Session expired. Please log in again."
	NoticeLoggedOut      = "Logged out successfully"
	NoticeLogoutFailed   = "Logout failed. Please try again."
)

// DefaultInitTimeout bounds the validate-then-profile chain of Initialize
const DefaultInitTimeout = 10 * time.Second

const publishTimeout = 2 * time.Second

var ErrUnexpectedShape = errors.New("unexpected validation response")

// Authenticator is the backend surface the store depends on
type Authenticator interface {
	Validate(ctx context.Context) (*domain.Validation, error)
	Profile(ctx context.Context) (*domain.Profile, error)
	Logout(ctx context.Context) error
}

// Navigation tells the caller where to go after an operation
type Navigation int

const (
	NavigateNone Navigation = iota
	NavigateBack
)

// Store is the session of one client. It starts loading and becomes
// authenticated or anonymous once Initialize completes.
type Store struct {
	mu    sync.RWMutex
	state domain.SessionState

	tokens      *credential.Store
	auth        Authenticator
	notifier    domain.Notifier
	events      domain.SessionEventPublisher
	clientID    string
	initTimeout time.Duration

	once sync.Once
	done chan struct{}
}

// Option configures a Store
type Option func(*Store)

// WithNotifier routes user-facing notices to n
func WithNotifier(n domain.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithEventPublisher publishes lifecycle events to p
func WithEventPublisher(p domain.SessionEventPublisher) Option {
	return func(s *Store) { s.events = p }
}

// WithInitTimeout overrides DefaultInitTimeout
func WithInitTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.initTimeout = d
		}
	}
}

// WithClientID tags events with the owning client
func WithClientID(id string) Option {
	return func(s *Store) { s.clientID = id }
}

// New creates a loading Store
func New(tokens *credential.Store, auth Authenticator, opts ...Option) *Store {
	s := &Store{
		state:       domain.SessionState{Loading: true},
		tokens:      tokens,
		auth:        auth,
		notifier:    discard{},
		initTimeout: DefaultInitTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the session
func (s *Store) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	if st.UserID != nil {
		id := *st.UserID
		st.UserID = &id
	}
	return st
}

// Done is closed once Initialize has completed
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until Initialize completes or ctx ends
func (s *Store) Wait(ctx context.Context) (domain.SessionState, error) {
	select {
	case <-s.done:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// Initialize revalidates the stored credential. Only the first call does any work.
func (s *Store) Initialize(ctx context.Context) {
	s.once.Do(func() {
		defer close(s.done)
		s.initialize(ctx)
	})
}

func (s *Store) initialize(ctx context.Context) {
	log := observability.FromContext(ctx)

	present, err := s.tokens.Present(ctx)
	if err != nil {
		log.Error("failed to read stored credential", "error", err)
		s.commit(domain.SessionState{})
		observability.SessionInitializations.WithLabelValues("storage_error").Inc()
		return
	}
	if !present {
		s.commit(domain.SessionState{})
		observability.SessionInitializations.WithLabelValues("anonymous").Inc()
		return
	}

	identity, err := s.revalidateWithin(ctx, s.initTimeout)
	if err != nil {
		log.Info("session revalidation failed", "error", err)
		s.expire(ctx)
		observability.SessionInitializations.WithLabelValues("expired").Inc()
		return
	}

	s.commit(identity)
	log.Info("session revalidated", "role", identity.Role)
	s.publish(ctx, domain.EventAuthenticated, identity)
	observability.SessionInitializations.WithLabelValues("authenticated").Inc()
}

// expire drops the credential and the identity after a failed revalidation
func (s *Store) expire(ctx context.Context) {
	// the init deadline may already have passed
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.tokens.Clear(clearCtx); err != nil {
		observability.FromContext(ctx).Error("failed to clear credential", "error", err)
	}
	s.commit(domain.SessionState{})
	s.notifier.Notify(ctx, domain.Notice{Level: domain.NoticeError, Message: NoticeSessionExpired})
	s.publish(clearCtx, domain.EventRevalidationFailed, domain.SessionState{})
}

// commit publishes the final identity and clears loading in one step
func (s *Store) commit(identity domain.SessionState) {
	identity.Loading = false

	s.mu.Lock()
	s.state = identity
	s.mu.Unlock()
}

// revalidateWithin validates the credential and overlays the profile, giving
// up after timeout even when the backend ignores cancellation. Only validate
// can fail it: a profile call that errors, panics or misses the deadline
// leaves the validated identity as it is.
func (s *Store) revalidateWithin(ctx context.Context, timeout time.Duration) (domain.SessionState, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := callWithin(ctx, s.auth.Validate)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("validate: %w", err)
	}
	state, err := identityFrom(v)
	if err != nil {
		return domain.SessionState{}, err
	}

	p, err := callWithin(ctx, s.auth.Profile)
	if err != nil || p == nil {
		observability.FromContext(ctx).Warn("profile fetch failed", "error", err)
		return state, nil
	}
	overlayProfile(&state, p)
	return state, nil
}

// callWithin returns when fn does or when ctx ends, whichever comes first.
// A panic in fn is returned as an error.
func callWithin[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("panicked: %v", p)
			}
			ch <- r
		}()
		r.v, r.err = fn(ctx)
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// identityFrom checks the validate response shape
func identityFrom(v *domain.Validation) (domain.SessionState, error) {
	if v == nil || !v.Success {
		return domain.SessionState{}, fmt.Errorf("%w: success flag not set", ErrUnexpectedShape)
	}
	role, err := domain.ParseRole(v.Role)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if v.UserID == nil {
		return domain.SessionState{}, fmt.Errorf("%w: missing userId", ErrUnexpectedShape)
	}

	id := int64(*v.UserID)
	return domain.SessionState{Role: role, UserID: &id, Email: v.Email, Name: v.Name}, nil
}

// overlayProfile prefers profile fields over the validated ones when present
func overlayProfile(state *domain.SessionState, p *domain.Profile) {
	if p.Name != "" {
		state.Name = p.Name
	}
	if p.Email != "" {
		state.Email = p.Email
	}
	if role, err := domain.ParseRole(p.Role); err == nil {
		state.Role = role
	}
}

// SetRole records the role returned by a login. It performs no I/O.
// Changing the role drops identity fields that belonged to the previous role;
// RoleNone clears the identity entirely.
func (s *Store) SetRole(role domain.Role) error {
	if role != domain.RoleNone && !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Role == role {
		return nil
	}
	s.state = domain.SessionState{Role: role, Loading: s.state.Loading}
	return nil
}

// Enrich fills userId, name and email after a login. It is best-effort:
// on failure the role set by the login stands and the credential is kept.
func (s *Store) Enrich(ctx context.Context) {
	before := s.State().Role
	if before == domain.RoleNone {
		return
	}

	identity, err := s.revalidateWithin(ctx, s.initTimeout)
	if err != nil {
		observability.FromContext(ctx).Warn("session enrichment failed", "error", err)
		return
	}

	s.mu.Lock()
	// a logout or another login may have happened meanwhile
	if s.state.Role == before {
		identity.Loading = s.state.Loading
		s.state = identity
	}
	s.mu.Unlock()
}

// Logout ends the session on the backend. Local state is cleared only when
// the backend confirms; on failure the session stays as it was.
func (s *Store) Logout(ctx context.Context) (Navigation, error) {
	log := observability.FromContext(ctx)
	prior := s.State()

	if err := s.callLogout(ctx); err != nil {
		log.Warn("logout failed", "error", err)
		s.notifier.Notify(ctx, domain.Notice{Level: domain.NoticeError, Message: NoticeLogoutFailed})
		s.publish(ctx, domain.EventLogoutFailed, prior)
		observability.SessionLogouts.WithLabelValues("failed").Inc()
		return NavigateNone, fmt.Errorf("logout: %w", err)
	}

	if err := s.tokens.Clear(ctx); err != nil {
		log.Error("failed to clear credential", "error", err)
	}
	s.commit(domain.SessionState{})

	s.notifier.Notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: NoticeLoggedOut})
	s.publish(ctx, domain.EventLoggedOut, prior)
	observability.SessionLogouts.WithLabelValues("success").Inc()
	log.Info("logged out", "role", prior.Role)
	return NavigateBack, nil
}

func (s *Store) callLogout(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("logout panicked: %v", r)
		}
	}()
	return s.auth.Logout(ctx)
}

func (s *Store) publish(ctx context.Context, typ domain.SessionEventType, st domain.SessionState) {
	Publish(ctx, s.events, s.clientID, typ, st)
}

// Publish sends a lifecycle event when p is set. Failures are logged only.
func Publish(ctx context.Context, p domain.SessionEventPublisher, clientID string, typ domain.SessionEventType, st domain.SessionState) {
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := &domain.SessionEvent{
		Type:       typ,
		ClientID:   clientID,
		Role:       st.Role,
		UserID:     st.UserID,
		OccurredAt: time.Now().UTC(),
	}
	if err := p.PublishSessionEvent(ctx, event); err != nil {
		observability.FromContext(ctx).Warn("failed to publish session event", "type", typ, "error", err)
	}
}

type discard struct{}

func (discard) Notify(context.Context, domain.Notice) {}
