package testutil

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"naspac-portal/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrBackendDown        = errors.New("mock: backend unreachable")
)

var idCounter atomic.Int64

// ValidationOptions allows customizing validation fixtures
type ValidationOptions struct {
	Success bool
	Role    string
	UserID  *int64
	Email   string
	Name    string
}

// NewValidation creates a successful validation response for an ADMIN
func NewValidation(opts ...func(*ValidationOptions)) *domain.Validation {
	id := idCounter.Add(1)
	o := &ValidationOptions{
		Success: true,
		Role:    string(domain.RoleAdmin),
		UserID:  &id,
		Email:   fmt.Sprintf("user%d@naspac.test", id),
		Name:    fmt.Sprintf("User %d", id),
	}
	for _, opt := range opts {
		opt(o)
	}

	v := &domain.Validation{
		Success: o.Success,
		Role:    o.Role,
		Email:   o.Email,
		Name:    o.Name,
	}
	if o.UserID != nil {
		uid := domain.UserID(*o.UserID)
		v.UserID = &uid
	}
	return v
}

func WithValidationRole(role string) func(*ValidationOptions) {
	return func(o *ValidationOptions) { o.Role = role }
}

func WithValidationUserID(id int64) func(*ValidationOptions) {
	return func(o *ValidationOptions) { o.UserID = &id }
}

func WithoutValidationUserID() func(*ValidationOptions) {
	return func(o *ValidationOptions) { o.UserID = nil }
}

func WithValidationFailure() func(*ValidationOptions) {
	return func(o *ValidationOptions) { o.Success = false }
}

func WithValidationIdentity(name, email string) func(*ValidationOptions) {
	return func(o *ValidationOptions) {
		o.Name = name
		o.Email = email
	}
}

// NotificationOptions allows customizing notification fixtures
type NotificationOptions struct {
	ID        int64
	Title     string
	Role      domain.Role
	Timestamp time.Time
	Icon      domain.NotificationIcon
}

// NewTestNotification creates a recent BELL notification addressed to PERSONNEL
func NewTestNotification(opts ...func(*NotificationOptions)) domain.Notification {
	id := idCounter.Add(1)
	o := &NotificationOptions{
		ID:        id,
		Title:     fmt.Sprintf("Notification %d", id),
		Role:      domain.RolePersonnel,
		Timestamp: time.Now().Add(-time.Hour),
		Icon:      domain.IconBell,
	}
	for _, opt := range opts {
		opt(o)
	}

	return domain.Notification{
		ID:          o.ID,
		Title:       o.Title,
		Description: "Description of " + o.Title,
		Timestamp:   o.Timestamp,
		IconType:    o.Icon,
		Role:        o.Role,
	}
}

func WithNotificationID(id int64) func(*NotificationOptions) {
	return func(o *NotificationOptions) { o.ID = id }
}

func WithNotificationRole(role domain.Role) func(*NotificationOptions) {
	return func(o *NotificationOptions) { o.Role = role }
}

func WithNotificationAge(age time.Duration) func(*NotificationOptions) {
	return func(o *NotificationOptions) { o.Timestamp = time.Now().Add(-age) }
}
