// Package events provides the synchronous change-notification bus used to
// tell observers that the store snapshot was mutated and persisted.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"proposalhub/pkg/domain"
)

// StoreChanged is published once per committed transaction. Listeners are
// free to ignore the payload and re-read the store.
type StoreChanged struct {
	ID       uuid.UUID       `json:"id"`
	Sequence uint64          `json:"sequence"`
	At       time.Time       `json:"at"`
	Changes  []domain.Change `json:"changes"`
}

// Touches reports whether the event carries a change for entity.
func (e StoreChanged) Touches(entity domain.EntityType) bool {
	for _, c := range e.Changes {
		if c.Entity == entity {
			return true
		}
	}
	return false
}

// Listener receives store change events.
type Listener func(StoreChanged)

type subscription struct {
	id uint64
	fn Listener
}

// Bus fans events out to listeners synchronously, in registration order.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	seq    uint64
	subs   []subscription
	nowFn  func() time.Time
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{nowFn: func() time.Time { return time.Now().UTC() }}
}

// Subscribe registers fn and returns a function that removes it. The returned
// function may be called any number of times, including from inside a
// listener.
func (b *Bus) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			subs := make([]subscription, 0, len(b.subs)-1)
			subs = append(subs, b.subs[:i]...)
			b.subs = append(subs, b.subs[i+1:]...)
			return
		}
	}
}

// Publish stamps and delivers a StoreChanged event carrying changes. Listeners
// registered while the event is being delivered are not called for it.
func (b *Bus) Publish(changes []domain.Change) StoreChanged {
	b.mu.Lock()
	b.seq++
	evt := StoreChanged{
		ID:       uuid.New(),
		Sequence: b.seq,
		At:       b.nowFn(),
		Changes:  append([]domain.Change(nil), changes...),
	}
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(evt)
	}
	return evt
}
