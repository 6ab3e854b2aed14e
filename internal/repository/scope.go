// Package repository holds the client storage drivers and the helpers that
// turn a shared StorageRepository into per-client key/value stores.
package repository

import (
	"context"

	"naspac-portal/internal/domain"
)

// Scoped is the key/value view of one namespace of a StorageRepository
type Scoped struct {
	repo      domain.StorageRepository
	namespace string
}

// Scope returns the key/value store of namespace inside repo
func Scope(repo domain.StorageRepository, namespace string) *Scoped {
	return &Scoped{repo: repo, namespace: namespace}
}

// Namespace returns the scoped namespace
func (s *Scoped) Namespace() string {
	return s.namespace
}

func (s *Scoped) Get(ctx context.Context, key string) (string, error) {
	return s.repo.Get(ctx, s.namespace, key)
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, s.namespace, key, value)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, s.namespace, key)
}
