package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proposalhub/internal/infra/persistence/memory"
	"proposalhub/pkg/domain"
)

// stepClock advances one second on every call so records get distinct
// timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	store := memory.NewStore(memory.WithClock(newStepClock().Now))
	return NewService(store, opts...)
}

func mustProposal(t *testing.T, svc *Service, title, description string) domain.Proposal {
	t.Helper()
	p, err := svc.Proposals.Create(context.Background(), domain.Proposal{Title: title, Description: description})
	require.NoError(t, err)
	return p
}
