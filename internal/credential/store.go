// Package credential owns the persisted bearer credential of a client.
// It is the only code that knows where the token lives.
package credential

import (
	"context"
	"errors"
	"fmt"

	"naspac-portal/internal/domain"
)

// TokenKey is the storage key of the bearer credential
const TokenKey = "token"

// Store reads and writes the bearer credential in a client's storage
type Store struct {
	kv domain.KeyValueStore
}

// NewStore wraps a client's key/value storage
func NewStore(kv domain.KeyValueStore) *Store {
	return &Store{kv: kv}
}

// Token returns the stored credential, or domain.ErrKeyNotFound
func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", domain.ErrKeyNotFound
	}
	return token, nil
}

// Present reports whether a credential is stored
func (s *Store) Present(ctx context.Context) (bool, error) {
	_, err := s.Token(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Set persists a credential returned by a login or OTP verification
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", domain.ErrInvalidInput)
	}
	return s.kv.Set(ctx, TokenKey, token)
}

// Clear removes the stored credential. Clearing a missing credential is not an error.
func (s *Store) Clear(ctx context.Context) error {
	err := s.kv.Delete(ctx, TokenKey)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return err
	}
	return nil
}
