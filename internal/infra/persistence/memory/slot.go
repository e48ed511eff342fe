package memory

import (
	"context"
	"sync"

	"proposalhub/pkg/domain"
)

// Slot is a process-local domain.Slot. Saved payloads are copied.
type Slot struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ domain.Slot = (*Slot)(nil)

// NewSlot returns an empty in-memory slot.
func NewSlot() *Slot {
	return &Slot{blobs: make(map[string][]byte)}
}

// Load returns the payload stored under key or domain.ErrSlotEmpty.
func (s *Slot) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	return append([]byte(nil), data...), nil
}

// Save overwrites the payload stored under key.
func (s *Slot) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), payload...)
	return nil
}
