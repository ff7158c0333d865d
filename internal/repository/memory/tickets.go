package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

type ticketRepository struct {
	store *Store
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.store.do(func(st *state) error {
		if _, ok := st.tickets[ticket.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, existing := range st.tickets {
			if existing.Code == ticket.Code {
				return repository.ErrDuplicate
			}
		}
		next := ticket.Clone()
		if err := fitTicket(next); err != nil {
			return err
		}
		st.tickets[ticket.ID] = next
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.store.do(func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *ticketRepository) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.store.do(func(st *state) error {
		for _, t := range st.tickets {
			if t.Code == code {
				out = t.Clone()
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.store.do(func(st *state) error {
		return putTicket(st, ticket, nil)
	})
}

func (r *ticketRepository) UpdateIfStatus(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	return r.store.do(func(st *state) error {
		return putTicket(st, ticket, &expected)
	})
}

// putTicket replaces the mutable columns; ID, Code, Kind, CreatedBy and CreatedAt are kept.
func putTicket(st *state, ticket *domain.Ticket, expected *domain.TicketStatus) error {
	current, ok := st.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if expected != nil && current.Status != *expected {
		return repository.ErrStaleStatus
	}
	next := ticket.Clone()
	if err := fitTicket(next); err != nil {
		return err
	}
	next.Code = current.Code
	next.Kind = current.Kind
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	st.tickets[ticket.ID] = next
	return nil
}

func (r *ticketRepository) Delete(_ context.Context, id string) error {
	return r.store.do(func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.tickets, id)
		kept := st.history[:0]
		for _, e := range st.history {
			if e.TicketID != id {
				kept = append(kept, e)
			}
		}
		st.history = kept
		for pid, p := range st.payments {
			if p.TicketID == id {
				delete(st.payments, pid)
			}
		}
		return nil
	})
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) (repository.Page[domain.Ticket], error) {
	var page repository.Page[domain.Ticket]
	err := r.store.do(func(st *state) error {
		search := repository.NormalizeSearch(filter.Search)
		matched := make([]*domain.Ticket, 0, len(st.tickets))
		for _, t := range st.tickets {
			if matchTicket(t, filter, search) {
				matched = append(matched, t)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID > matched[j].ID
		})

		win := repository.NormalizePage(filter.Page, filter.PageSize, len(matched))
		items := []domain.Ticket{}
		for i := win.Offset; i < len(matched) && i < win.Offset+win.PageSize; i++ {
			items = append(items, *matched[i].Clone())
		}
		page = repository.Page[domain.Ticket]{
			Items:      items,
			Total:      len(matched),
			Page:       win.Page,
			PageSize:   win.PageSize,
			TotalPages: win.TotalPages,
		}
		return nil
	})
	return page, err
}

func matchTicket(t *domain.Ticket, filter repository.TicketFilter, search string) bool {
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
		return false
	}
	if filter.Kind != nil && t.Kind != *filter.Kind {
		return false
	}
	if filter.TechnicianID != nil && !t.AssignedTo(*filter.TechnicianID) {
		return false
	}
	if search == "" {
		return true
	}
	for _, field := range []string{t.Code, t.Title, t.ClientName, t.Description} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
