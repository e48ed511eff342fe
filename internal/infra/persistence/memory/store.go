// Package memory provides the snapshot-based transactional store. The whole
// state lives in process memory and is written to a durable domain.Slot after
// every committed transaction.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"proposalhub/internal/events"
	"proposalhub/pkg/domain"
)

// DefaultKey is the slot key the snapshot is stored under.
const DefaultKey = "proposalhub:store"

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// Store provides an in-memory transactional store persisted to a Slot.
type Store struct {
	mu     sync.RWMutex
	state  Snapshot
	slot   domain.Slot
	key    string
	bus    *events.Bus
	logger zerolog.Logger
	nowFn  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithBus publishes change events on bus instead of a private one.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithKey overrides the slot key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func newStore(slot domain.Slot, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		key:    DefaultKey,
		bus:    events.NewBus(),
		logger: zerolog.Nop(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.slot == nil {
		s.slot = NewSlot()
	}
	return s
}

// NewStore constructs a store over a fresh in-memory slot holding the seed
// snapshot.
func NewStore(opts ...Option) *Store {
	s := newStore(nil, opts...)
	s.state = SeedSnapshot(s.nowFn())
	return s
}

// Open constructs a store and hydrates it from slot. Missing blobs, or blobs
// that are not a JSON object, fall back to the seed snapshot; incomplete or
// partly malformed ones are repaired from it section by section.
// Only slot I/O failures are returned.
func Open(ctx context.Context, slot domain.Slot, opts ...Option) (*Store, error) {
	s := newStore(slot, opts...)
	seed := SeedSnapshot(s.nowFn())
	data, err := s.slot.Load(ctx, s.key)
	switch {
	case errors.Is(err, domain.ErrSlotEmpty):
		s.logger.Info().Str("key", s.key).Msg("no persisted snapshot; using seed")
		s.state = seed
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load snapshot %s: %w", s.key, err)
	}
	snapshot, repair, err := DecodeSnapshot(data, seed)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("persisted snapshot unreadable; using seed")
		s.state = seed
		return s, nil
	}
	if !repair.Empty() {
		s.logger.Warn().
			Strs("sections", repair.Sections).
			Strs("malformed", repair.Malformed).
			Interface("dropped", repair.Dropped).
			Interface("counters", repair.Counters).
			Msg("persisted snapshot incomplete; merged seed defaults")
	}
	s.state = snapshot
	return s, nil
}

// Subscribe registers a listener for committed changes.
func (s *Store) Subscribe(fn events.Listener) func() { return s.bus.Subscribe(fn) }

// ExportState clones the current store state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// ImportState replaces the in-memory state without persisting it.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = normalizeSnapshot(snapshot.clone())
}

// RunInTransaction executes fn against a copy of the state. When fn succeeds
// and recorded changes, the copy is persisted once, becomes the live state,
// and one StoreChanged event is published after the lock is released. When fn
// fails or the save fails, the live state is left untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) ([]domain.Change, error) {
	s.mu.Lock()
	tx := &transaction{
		view: view{state: s.state.clone()},
		now:  s.nowFn(),
	}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(tx.changes) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	if err := s.save(ctx, tx.state); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = tx.state
	changes := tx.changes
	s.mu.Unlock()

	s.bus.Publish(changes)
	return changes, nil
}

// View executes fn against the live state under a read lock. fn must not
// start a transaction on the same store.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(view{state: s.state})
}

// Flush writes the current state to the slot without publishing an event.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save(ctx, s.state)
}

func (s *Store) save(ctx context.Context, state Snapshot) error {
	payload, err := EncodeSnapshot(state)
	if err != nil {
		return err
	}
	if err := s.slot.Save(ctx, s.key, payload); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("persist snapshot failed")
		return fmt.Errorf("save snapshot %s: %w", s.key, err)
	}
	return nil
}
