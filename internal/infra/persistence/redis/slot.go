// Package redis persists the store snapshot as a single Redis string value.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"proposalhub/pkg/domain"
)

// Slot stores snapshot payloads under plain Redis keys without expiry.
type Slot struct {
	client goredis.UniversalClient
}

var _ domain.Slot = (*Slot)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Open dials addr and verifies the connection with PING.
func Open(ctx context.Context, opts Options) (*Slot, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Slot{client: client}, nil
}

// New wraps an existing client.
func New(client goredis.UniversalClient) *Slot {
	return &Slot{client: client}
}

// Load returns the payload stored under key.
func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return payload, nil
}

// Save overwrites the payload stored under key.
func (s *Slot) Save(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Slot) Close() error { return s.client.Close() }
