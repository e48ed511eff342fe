// Package blobslot persists the store snapshot as an object in a blob store.
package blobslot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"proposalhub/internal/blob"
	"proposalhub/pkg/domain"
)

const contentType = "application/json"

// Slot maps slot keys to "<prefix><key>.json" objects.
type Slot struct {
	store  blob.Store
	prefix string
}

var _ domain.Slot = (*Slot)(nil)

// New wraps store. prefix is prepended to every object key.
func New(store blob.Store, prefix string) *Slot {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Slot{store: store, prefix: prefix}
}

// ObjectKey returns the blob key used for a slot key. Colons are replaced so
// keys stay portable across filesystems.
func (s *Slot) ObjectKey(key string) string {
	return s.prefix + strings.ReplaceAll(key, ":", "_") + ".json"
}

// Load reads the object stored for key.
func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := s.store.Get(ctx, s.ObjectKey(key))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.ObjectKey(key), err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// Save replaces the object stored for key.
func (s *Slot) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.store.Put(ctx, s.ObjectKey(key), bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"slot": key},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.ObjectKey(key), err)
	}
	return nil
}
