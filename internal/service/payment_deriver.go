package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// PaymentDeriver turns completed tickets into technician commission records.
type PaymentDeriver struct {
	defaultPercent decimal.Decimal
	newID          func() string
}

// NewPaymentDeriver uses defaultPercent when a ticket carries no override.
func NewPaymentDeriver(defaultPercent decimal.Decimal) *PaymentDeriver {
	return &PaymentDeriver{defaultPercent: defaultPercent, newID: uuid.NewString}
}

// ParseCommissionPercent validates a configured percentage in [0, 100] with
// at most two decimals.
func ParseCommissionPercent(raw string) (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid commission percent %q: %w", raw, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("commission percent %s out of range [0,100]", pct)
	}
	if !domain.HasCents(pct) {
		return decimal.Zero, fmt.Errorf("commission percent %s has more than two decimals", pct)
	}
	return pct, nil
}

// Percent returns the commission rate applied to ticket.
func (d *PaymentDeriver) Percent(ticket *domain.Ticket) decimal.Decimal {
	if ticket.CommissionPercent != nil {
		return *ticket.CommissionPercent
	}
	return d.defaultPercent
}

// Derive returns the payment owed for a completed ticket. An existing pending
// or paid record is returned unchanged; a voided one is reactivated with fresh
// amounts. changed reports whether anything was written.
func (d *PaymentDeriver) Derive(ctx context.Context, repo repository.PaymentRepository, ticket *domain.Ticket, at time.Time) (payment *domain.TechnicianPayment, changed bool, err error) {
	if ticket.Status != domain.TicketStatusCompleted {
		return nil, false, errorutil.NewValidationError("payment can only be derived for a completed ticket",
			map[string]any{"status": string(ticket.Status)})
	}
	if !ticket.HasTechnician() {
		return nil, false, errorutil.NewValidationError("payment requires an assigned technician", nil)
	}

	existing, err := repo.GetByTicket(ctx, ticket.ID)
	switch {
	case err == nil:
		if existing.Status != domain.PaymentStatusVoided {
			return existing, false, nil
		}
		d.price(existing, ticket)
		existing.Status = domain.PaymentStatusPending
		existing.EnabledAt = at
		existing.VoidedAt = nil
		if err := repo.Update(ctx, existing); err != nil {
			return nil, false, translate(err, "payment", "reactivate payment")
		}
		return existing, true, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, translate(err, "payment", "load payment")
	}

	payment = &domain.TechnicianPayment{
		ID:        d.newID(),
		TicketID:  ticket.ID,
		Status:    domain.PaymentStatusPending,
		EnabledAt: at,
	}
	d.price(payment, ticket)
	if err := repo.Create(ctx, payment); err != nil {
		return nil, false, translate(err, "payment", "create payment")
	}
	return payment, true, nil
}

// Void cancels the pending payment of a reopened ticket. A paid payment cannot
// be voided. A ticket without a payment is a no-op.
func (d *PaymentDeriver) Void(ctx context.Context, repo repository.PaymentRepository, ticketID string, at time.Time) (payment *domain.TechnicianPayment, changed bool, err error) {
	payment, err = repo.GetByTicket(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translate(err, "payment", "load payment")
	}
	switch payment.Status {
	case domain.PaymentStatusVoided:
		return payment, false, nil
	case domain.PaymentStatusPaid:
		return nil, false, errorutil.NewConflict("technician payment already paid; ticket cannot be reopened",
			map[string]any{"payment_id": payment.ID})
	}
	payment.Status = domain.PaymentStatusVoided
	payment.VoidedAt = &at
	if err := repo.Update(ctx, payment); err != nil {
		return nil, false, translate(err, "payment", "void payment")
	}
	return payment, true, nil
}

// Reprice refreshes a pending payment after the ticket amount or rate changed.
// Paid payments are frozen; voided ones are repriced when reactivated.
func (d *PaymentDeriver) Reprice(ctx context.Context, repo repository.PaymentRepository, ticket *domain.Ticket) (payment *domain.TechnicianPayment, changed bool, err error) {
	payment, err = repo.GetByTicket(ctx, ticket.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translate(err, "payment", "load payment")
	}
	switch payment.Status {
	case domain.PaymentStatusPaid:
		return nil, false, errorutil.NewConflict("technician payment already paid; amounts are frozen",
			map[string]any{"payment_id": payment.ID})
	case domain.PaymentStatusVoided:
		return payment, false, nil
	}
	d.price(payment, ticket)
	if err := repo.Update(ctx, payment); err != nil {
		return nil, false, translate(err, "payment", "reprice payment")
	}
	return payment, true, nil
}

func (d *PaymentDeriver) price(p *domain.TechnicianPayment, ticket *domain.Ticket) {
	pct := d.Percent(ticket)
	p.TechnicianID = *ticket.TechnicianID
	p.ServiceAmount = ticket.ServiceAmount
	p.CommissionPercent = pct
	p.AmountOwed = domain.ComputeAmountOwed(ticket.ServiceAmount, pct)
}
