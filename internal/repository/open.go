package repository

import (
	"context"
	"fmt"
	"time"

	"naspac-portal/internal/config"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/repository/memory"
	"naspac-portal/internal/repository/postgres"
	"naspac-portal/internal/repository/redis"
	"naspac-portal/internal/repository/sqlite"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a storage driver
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
	Retention   time.Duration
}

// Open connects the configured driver and wraps it with metrics
func Open(ctx context.Context, opts Options) (domain.StorageRepository, error) {
	var (
		repo domain.StorageRepository
		err  error
	)

	switch opts.Driver {
	case DriverMemory:
		repo = memory.NewStorageRepository()
	case DriverSQLite:
		repo, err = sqlite.Open(ctx, opts.SQLitePath)
	case DriverPostgres:
		repo, err = openPostgres(ctx, opts.DatabaseURL)
	case DriverRedis:
		repo, err = redis.Open(ctx, opts.RedisURL, opts.Retention)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(repo, opts.Driver), nil
}

func openPostgres(ctx context.Context, url string) (domain.StorageRepository, error) {
	db, err := config.NewPostgresConnection(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	repo, err := postgres.NewStorageRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
