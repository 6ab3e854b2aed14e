// Package memory keeps client storage in process memory. Data is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"naspac-portal/internal/domain"
)

type namespace struct {
	values    map[string]string
	updatedAt time.Time
}

// StorageRepository implements domain.StorageRepository in memory
type StorageRepository struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	now        func() time.Time
}

// NewStorageRepository creates an empty in-memory repository
func NewStorageRepository() *StorageRepository {
	return &StorageRepository{
		namespaces: make(map[string]*namespace),
		now:        time.Now,
	}
}

func (r *StorageRepository) Get(ctx context.Context, ns, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, ok := r.namespaces[ns]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	value, ok := bucket.values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

func (r *StorageRepository) Set(ctx context.Context, ns, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.namespaces[ns]
	if !ok {
		bucket = &namespace{values: make(map[string]string)}
		r.namespaces[ns] = bucket
	}
	bucket.values[key] = value
	bucket.updatedAt = r.now()
	return nil
}

func (r *StorageRepository) Delete(ctx context.Context, ns, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.namespaces[ns]
	if !ok {
		return nil
	}
	delete(bucket.values, key)
	bucket.updatedAt = r.now()
	if len(bucket.values) == 0 {
		delete(r.namespaces, ns)
	}
	return nil
}

// DeleteStale drops whole namespaces not written since before
func (r *StorageRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for ns, bucket := range r.namespaces {
		if bucket.updatedAt.Before(before) {
			removed += int64(len(bucket.values))
			delete(r.namespaces, ns)
		}
	}
	return removed, nil
}

func (r *StorageRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *StorageRepository) Close() error {
	return nil
}
