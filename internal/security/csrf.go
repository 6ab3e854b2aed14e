// Package security issues the per-client CSRF tokens of the portal.
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

var ErrInvalidToken = errors.New("invalid CSRF token")

// tokenBytes is the entropy of a token; it is hex encoded on the wire
const tokenBytes = 32

// TokenManager issues CSRF tokens and checks submitted ones.
// Tokens are random and held server-side by the client registry, so
// verification is a comparison rather than a signature check.
type TokenManager struct {
	random io.Reader
}

// NewTokenManager creates a token manager backed by crypto/rand
func NewTokenManager() *TokenManager {
	return &TokenManager{random: rand.Reader}
}

// Generate returns a new 64 character hex token
func (tm *TokenManager) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(tm.random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Verify compares a submitted token with the expected one in constant time
func (tm *TokenManager) Verify(expected, submitted string) error {
	if expected == "" || submitted == "" {
		return ErrInvalidToken
	}
	if !hmac.Equal([]byte(expected), []byte(submitted)) {
		return ErrInvalidToken
	}
	return nil
}
