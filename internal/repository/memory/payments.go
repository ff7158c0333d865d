package memory

import (
	"context"
	"sort"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

type paymentRepository struct {
	store *Store
}

func (r *paymentRepository) Create(_ context.Context, payment *domain.TechnicianPayment) error {
	return r.store.do(func(st *state) error {
		if _, ok := st.tickets[payment.TicketID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := st.payments[payment.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, existing := range st.payments {
			if existing.TicketID == payment.TicketID {
				return repository.ErrDuplicate
			}
		}
		next := payment.Clone()
		if err := fitPayment(next); err != nil {
			return err
		}
		st.payments[payment.ID] = next
		return nil
	})
}

func (r *paymentRepository) GetByID(_ context.Context, id string) (*domain.TechnicianPayment, error) {
	var out *domain.TechnicianPayment
	err := r.store.do(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *paymentRepository) GetByTicket(_ context.Context, ticketID string) (*domain.TechnicianPayment, error) {
	var out *domain.TechnicianPayment
	err := r.store.do(func(st *state) error {
		for _, p := range st.payments {
			if p.TicketID == ticketID {
				out = p.Clone()
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *paymentRepository) Update(_ context.Context, payment *domain.TechnicianPayment) error {
	return r.store.do(func(st *state) error {
		current, ok := st.payments[payment.ID]
		if !ok {
			return repository.ErrNotFound
		}
		next := payment.Clone()
		if err := fitPayment(next); err != nil {
			return err
		}
		next.TicketID = current.TicketID
		st.payments[payment.ID] = next
		return nil
	})
}

func (r *paymentRepository) List(_ context.Context, filter repository.PaymentFilter) (repository.Page[domain.TechnicianPayment], error) {
	var page repository.Page[domain.TechnicianPayment]
	err := r.store.do(func(st *state) error {
		matched := make([]*domain.TechnicianPayment, 0, len(st.payments))
		for _, p := range st.payments {
			if matchPayment(p, filter) {
				matched = append(matched, p)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].EnabledAt.Equal(matched[j].EnabledAt) {
				return matched[i].EnabledAt.After(matched[j].EnabledAt)
			}
			return matched[i].ID > matched[j].ID
		})

		win := repository.NormalizePage(filter.Page, filter.PageSize, len(matched))
		items := []domain.TechnicianPayment{}
		for i := win.Offset; i < len(matched) && i < win.Offset+win.PageSize; i++ {
			items = append(items, *matched[i].Clone())
		}
		page = repository.Page[domain.TechnicianPayment]{
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

func matchPayment(p *domain.TechnicianPayment, filter repository.PaymentFilter) bool {
	if filter.TechnicianID != nil && p.TechnicianID != *filter.TechnicianID {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if s == p.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.From != nil && p.EnabledAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && p.EnabledAt.After(*filter.To) {
		return false
	}
	return true
}
