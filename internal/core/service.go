// Package core exposes the proposal repositories, the question generator and
// document assembly on top of the snapshot store.
package core

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"proposalhub/internal/events"
	"proposalhub/internal/infra/persistence/memory"
	"proposalhub/pkg/domain"
)

// Service is the composition root for the repositories. Each repository
// operation runs in its own store transaction.
type Service struct {
	store   *memory.Store
	logger  zerolog.Logger
	metrics MetricsRecorder
	closer  io.Closer

	Users          *Users
	Proposals      *Proposals
	Files          *Files
	Questions      *Questions
	Answers        *Answers
	ShareTokens    *ShareTokens
	Collaborations *Collaborations
	Documents      *Documents
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger attaches a logger used for operation tracing.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithCloser registers a resource released by Close, usually the slot
// connection.
func WithCloser(c io.Closer) ServiceOption {
	return func(s *Service) { s.closer = c }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *memory.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  zerolog.Nop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Users = &Users{svc: s}
	s.Proposals = &Proposals{svc: s}
	s.Files = &Files{svc: s}
	s.Questions = &Questions{svc: s}
	s.Answers = &Answers{svc: s}
	s.ShareTokens = &ShareTokens{svc: s, random: defaultTokenSource}
	s.Collaborations = &Collaborations{svc: s}
	s.Documents = &Documents{svc: s}
	return s
}

// NewInMemoryService creates a service over a fresh seeded in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() *memory.Store {
	return s.store
}

// Subscribe registers fn for every committed change.
func (s *Service) Subscribe(fn events.Listener) func() {
	return s.store.Subscribe(fn)
}

// Metrics returns the attached recorder.
func (s *Service) Metrics() MetricsRecorder {
	return s.metrics
}

// Close releases the slot resources registered with WithCloser.
func (s *Service) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Stats reports the number of records held per entity kind.
func (s *Service) Stats(ctx context.Context) map[domain.EntityType]int {
	start := time.Now()
	state := s.store.ExportState()
	s.observe(ctx, "stats", start, nil)
	return map[domain.EntityType]int{
		domain.EntityUser:          len(state.Users),
		domain.EntityProposal:      len(state.Proposals),
		domain.EntityFile:          len(state.Files),
		domain.EntityQuestion:      len(state.Questions),
		domain.EntityAnswer:        len(state.Answers),
		domain.EntityShareToken:    len(state.ShareTokens),
		domain.EntityCollaboration: len(state.Collaborations),
	}
}

// Dump serializes the live state in the persisted layout.
func (s *Service) Dump(ctx context.Context) ([]byte, error) {
	start := time.Now()
	data, err := memory.EncodeSnapshot(s.store.ExportState())
	s.observe(ctx, "dump", start, err)
	return data, err
}

// Restore replaces the whole state with a dumped snapshot and persists it.
// Sections the dump lacks or mangles are taken from a fresh seed the same
// way Open repairs a stored blob. Subscribers are not notified. When the
// save fails the previous state is put back.
func (s *Service) Restore(ctx context.Context, data []byte) (memory.Repair, error) {
	start := time.Now()
	repair, err := s.restore(ctx, data)
	s.observe(ctx, "restore", start, err)
	return repair, err
}

func (s *Service) restore(ctx context.Context, data []byte) (memory.Repair, error) {
	state, repair, err := memory.DecodeSnapshot(data, memory.SeedSnapshot(time.Now().UTC()))
	if err != nil {
		return repair, err
	}
	previous := s.store.ExportState()
	s.store.ImportState(state)
	if err := s.store.Flush(ctx); err != nil {
		s.store.ImportState(previous)
		return repair, err
	}
	if !repair.Empty() {
		s.logger.Warn().
			Strs("sections", repair.Sections).
			Interface("dropped", repair.Dropped).
			Msg("restored snapshot repaired from seed")
	}
	return repair, nil
}

func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) ([]domain.Change, error) {
	start := time.Now()
	changes, err := s.store.RunInTransaction(ctx, fn)
	s.observe(ctx, op, start, err)
	if err == nil && len(changes) > 0 {
		s.logger.Debug().Str("op", op).Int("changes", len(changes)).Msg("transaction committed")
	}
	return changes, err
}

func (s *Service) view(ctx context.Context, op string, fn func(domain.TransactionView) error) error {
	start := time.Now()
	err := s.store.View(ctx, fn)
	s.observe(ctx, op, start, err)
	return err
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	// A missing record is an expected outcome, not a failed operation.
	success := err == nil || domain.IsNotFound(err)
	s.metrics.Observe(ctx, op, success, time.Since(start))
	if !success {
		s.logger.Warn().Err(err).Str("op", op).Msg("store operation failed")
	}
}

// found maps a not-found error onto the (zero, false, nil) sentinel.
func found[T any](v T, err error) (T, bool, error) {
	var zero T
	if err == nil {
		return v, true, nil
	}
	if domain.IsNotFound(err) {
		return zero, false, nil
	}
	return zero, false, err
}

// deleted maps a not-found delete onto false.
func deleted(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case domain.IsNotFound(err):
		return false, nil
	}
	return false, err
}
