package memory

import (
	"context"

	"github.com/fieldops/fieldservice/internal/domain"
)

type sequencer struct {
	store *Store
}

// Next increments the counter for (kind, year); the first value is 1.
func (s *sequencer) Next(_ context.Context, kind domain.TicketKind, year int) (int, error) {
	var next int
	err := s.store.do(func(st *state) error {
		key := sequenceKey{kind: kind, year: year}
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return next, err
}
