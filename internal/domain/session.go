package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SessionState is a point-in-time snapshot of a client's session
type SessionState struct {
	Role    Role   `json:"role"`
	UserID  *int64 `json:"userId"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Loading bool   `json:"isLoading"`
}

// Authenticated reports whether the snapshot carries a role
func (s SessionState) Authenticated() bool {
	return s.Role != RoleNone
}

// UserID is a numeric user identifier that decodes from either a JSON
// number or a numeric string.
type UserID int64

func (id *UserID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		n = json.Number(s)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID(v)
	return nil
}

// Validation is the body returned by the session validation endpoint
type Validation struct {
	Success bool    `json:"success"`
	Role    string  `json:"role"`
	UserID  *UserID `json:"userId"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
}

// Profile is the richer identity record used to enrich a session
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NoticeLevel classifies a user-facing notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message shown to the user
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Notifier delivers notices to the user
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// SessionEventType names a session lifecycle transition
type SessionEventType string

const (
	EventAuthenticated      SessionEventType = "session.authenticated"
	EventRevalidationFailed SessionEventType = "session.revalidation_failed"
	EventLoggedIn           SessionEventType = "session.logged_in"
	EventLoggedOut          SessionEventType = "session.logged_out"
	EventLogoutFailed       SessionEventType = "session.logout_failed"
)

// SessionEvent describes a session lifecycle transition
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	ClientID   string           `json:"client_id"`
	Role       Role             `json:"role"`
	UserID     *int64           `json:"user_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// SessionEventPublisher publishes session lifecycle events
type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *SessionEvent) error
}
