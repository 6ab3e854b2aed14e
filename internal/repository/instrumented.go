package repository

import (
	"context"
	"time"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
)

// Instrumented records the latency of every storage operation
type Instrumented struct {
	domain.StorageRepository
	driver string
}

// Instrument wraps repo with storage_operation_duration_seconds observations
func Instrument(repo domain.StorageRepository, driver string) *Instrumented {
	return &Instrumented{StorageRepository: repo, driver: driver}
}

func (i *Instrumented) observe(operation string, start time.Time) {
	observability.StorageOperationDuration.
		WithLabelValues(operation, i.driver).
		Observe(time.Since(start).Seconds())
}

func (i *Instrumented) Get(ctx context.Context, namespace, key string) (string, error) {
	defer i.observe("get", time.Now())
	return i.StorageRepository.Get(ctx, namespace, key)
}

func (i *Instrumented) Set(ctx context.Context, namespace, key, value string) error {
	defer i.observe("set", time.Now())
	return i.StorageRepository.Set(ctx, namespace, key, value)
}

func (i *Instrumented) Delete(ctx context.Context, namespace, key string) error {
	defer i.observe("delete", time.Now())
	return i.StorageRepository.Delete(ctx, namespace, key)
}

func (i *Instrumented) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	defer i.observe("delete_stale", time.Now())
	return i.StorageRepository.DeleteStale(ctx, before)
}
