package memory

import (
	"context"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

type historyRepository struct {
	store *Store
}

func (r *historyRepository) Append(_ context.Context, entry *domain.ChangeHistoryEntry) error {
	return r.store.do(func(st *state) error {
		if _, ok := st.tickets[entry.TicketID]; !ok {
			return repository.ErrNotFound
		}
		st.history = append(st.history, entry.Clone())
		return nil
	})
}

// ListByTicket returns entries in insertion order, which is chronological.
func (r *historyRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.ChangeHistoryEntry, error) {
	out := []domain.ChangeHistoryEntry{}
	err := r.store.do(func(st *state) error {
		for _, e := range st.history {
			if e.TicketID == ticketID {
				out = append(out, *e.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *historyRepository) CountByTicket(_ context.Context, ticketID string) (int, error) {
	count := 0
	err := r.store.do(func(st *state) error {
		for _, e := range st.history {
			if e.TicketID == ticketID {
				count++
			}
		}
		return nil
	})
	return count, err
}
