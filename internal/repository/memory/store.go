// Package memory is a process-local Store used by tests and the demo backend.
package memory

import (
	"context"
	"sync"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

type sequenceKey struct {
	kind domain.TicketKind
	year int
}

type state struct {
	tickets   map[string]*domain.Ticket
	history   []*domain.ChangeHistoryEntry
	payments  map[string]*domain.TechnicianPayment
	users     map[string]*domain.User
	sequences map[sequenceKey]int
}

func newState() *state {
	return &state{
		tickets:   make(map[string]*domain.Ticket),
		payments:  make(map[string]*domain.TechnicianPayment),
		users:     make(map[string]*domain.User),
		sequences: make(map[sequenceKey]int),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, t := range s.tickets {
		c.tickets[id] = t.Clone()
	}
	c.history = make([]*domain.ChangeHistoryEntry, len(s.history))
	for i, e := range s.history {
		c.history[i] = e.Clone()
	}
	for id, p := range s.payments {
		c.payments[id] = p.Clone()
	}
	for id, u := range s.users {
		v := *u
		c.users[id] = &v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

type shared struct {
	mu    sync.Mutex
	state *state
}

// Store keeps all records in maps guarded by one mutex. WithinTx holds the
// mutex for the whole unit and restores a snapshot when fn fails.
type Store struct {
	shared *shared
	inTx   bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{shared: &shared{state: newState()}}
}

// do runs fn against the current state, locking unless already inside a unit.
func (s *Store) do(fn func(st *state) error) error {
	if !s.inTx {
		s.shared.mu.Lock()
		defer s.shared.mu.Unlock()
	}
	return fn(s.shared.state)
}

func (s *Store) Tickets() repository.TicketRepository   { return &ticketRepository{store: s} }
func (s *Store) History() repository.HistoryRepository  { return &historyRepository{store: s} }
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepository{store: s} }
func (s *Store) Users() repository.UserRepository       { return &userRepository{store: s} }
func (s *Store) Sequences() repository.Sequencer        { return &sequencer{store: s} }

// WithinTx serializes fn against every other store call. The snapshot is
// restored when fn returns an error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()

	snapshot := s.shared.state.clone()
	committed := false
	defer func() {
		if !committed {
			s.shared.state = snapshot
		}
	}()
	if err := fn(ctx, &Store{shared: s.shared, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
