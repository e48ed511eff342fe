package core

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"proposalhub/internal/blob"
	"proposalhub/internal/config"
	"proposalhub/internal/infra/persistence/blobslot"
	"proposalhub/internal/infra/persistence/memory"
	"proposalhub/internal/infra/persistence/postgres"
	"proposalhub/internal/infra/persistence/redis"
	"proposalhub/internal/infra/persistence/sqlite"
	"proposalhub/internal/logging"
	"proposalhub/pkg/domain"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenSlot constructs the durable slot selected by cfg.Storage.Driver. The
// returned closer releases the slot's connection.
func OpenSlot(ctx context.Context, cfg config.Config) (domain.Slot, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.NewSlot(), nopCloser{}, nil
	case config.DriverFS, config.DriverS3:
		store, err := blob.Open(ctx, blobConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobslot.New(store, cfg.Blob.Prefix), nopCloser{}, nil
	case config.DriverSQLite, "":
		slot, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot, nil
	case config.DriverPostgres:
		slot, err := postgres.Open(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot, nil
	case config.DriverRedis:
		slot, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return slot, slot, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func blobConfig(cfg config.Config) blob.Config {
	out := blob.Config{FSRoot: cfg.Blob.FSRoot}
	if cfg.Storage.Driver == config.DriverS3 {
		out.Driver = blob.DriverS3
		out.S3 = blob.S3Config{
			Bucket:    cfg.Blob.S3.Bucket,
			Region:    cfg.Blob.S3.Region,
			Endpoint:  cfg.Blob.S3.Endpoint,
			PathStyle: cfg.Blob.S3.PathStyle,
		}
		return out
	}
	out.Driver = blob.DriverFilesystem
	return out
}

// OpenStore opens the configured slot and hydrates a store from it.
func OpenStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*memory.Store, io.Closer, error) {
	slot, closer, err := OpenSlot(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := memory.Open(ctx, slot,
		memory.WithKey(cfg.Storage.Key),
		memory.WithLogger(logging.Component(logger, "store")),
	)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return store, closer, nil
}

// OpenService opens the configured store and wraps it in a Service that owns
// the slot connection. The recorders selected in cfg.Metrics are attached
// unless opts supply their own.
func OpenService(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...ServiceOption) (*Service, error) {
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	store, closer, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	base := []ServiceOption{WithLogger(logger), WithCloser(closer)}
	if metrics != nil {
		base = append(base, WithMetrics(metrics))
	}
	return NewService(store, append(base, opts...)...), nil
}
