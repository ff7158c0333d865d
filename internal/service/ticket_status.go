package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// StatusChangeExtra carries completion fields and an optional history note.
type StatusChangeExtra struct {
	Solution      string
	MaterialsUsed string
	TimeWorked    string
	Observations  string
	Note          string
}

// TransitionResult is the outcome of a committed status change. Payment is
// set when the change created, reactivated or voided a payment record.
type TransitionResult struct {
	Ticket  *domain.Ticket
	Payment *domain.TechnicianPayment
}

// ChangeStatus moves a ticket along the transition table. The assigned
// technician may use forward edges; elevated roles may also use reverse edges.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.Actor, ticketID string, to domain.TicketStatus, extra StatusChangeExtra) (*TransitionResult, error) {
	if err := s.require(actor, auth.PermTicketsChangeStatus); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, errorutil.NewValidationError("unknown status", map[string]any{"status": string(to)})
	}

	privileged := s.policy.IsElevated(actor.Role)
	now := s.clock.now()
	var (
		from        domain.TicketStatus
		ticket      *domain.Ticket
		payment     *domain.TechnicianPayment
		paymentKind events.EventType
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := s.loadVisible(ctx, tx, actor, ticketID)
		if err != nil {
			return err
		}
		if !privileged && !current.AssignedTo(actor.ID) {
			return errorutil.NewForbidden("only the assigned technician or an elevated role may change status")
		}

		from = current.Status
		if !domain.CanTransition(from, to, privileged) {
			reason := "not allowed"
			if domain.IsReverse(from, to) {
				reason = "requires elevated role"
			}
			return errorutil.NewInvalidTransition(string(from), string(to), reason)
		}
		if from == domain.TicketStatusAssigned && !current.HasTechnician() {
			return errorutil.NewValidationError("a technician must be assigned before leaving assigned",
				map[string]any{"field": "technician_id"})
		}

		ticket = current.Clone()
		switch to {
		case domain.TicketStatusStarted:
			if ticket.StartedAt == nil {
				ticket.StartedAt = &now
			}
		case domain.TicketStatusCompleted:
			solution := strings.TrimSpace(extra.Solution)
			if solution == "" {
				return errorutil.NewValidationError("solution is required to complete a ticket",
					map[string]any{"field": "solution"})
			}
			ticket.Solution = solution
			mergeField(&ticket.MaterialsUsed, extra.MaterialsUsed)
			mergeField(&ticket.TimeWorked, extra.TimeWorked)
			mergeField(&ticket.Observations, extra.Observations)
			ticket.CompletedAt = &now
		}
		if from == domain.TicketStatusCompleted {
			ticket.CompletedAt = nil
		}
		ticket.Status = to
		ticket.UpdatedAt = now

		if err := tx.Tickets().UpdateIfStatus(ctx, ticket, from); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return errorutil.NewInvalidTransition(string(from), string(to), "ticket status changed concurrently")
			}
			return translate(err, "ticket", "update ticket status")
		}
		if err := s.recorder.StatusChanged(ctx, tx.History(), ticket.ID, actor.ID, from, to, strings.TrimSpace(extra.Note), now); err != nil {
			return translate(err, "ticket", "record status change")
		}

		switch {
		case to == domain.TicketStatusCompleted && ticket.HasTechnician():
			p, changed, err := s.deriver.Derive(ctx, tx.Payments(), ticket, now)
			if err != nil {
				return err
			}
			if changed {
				payment, paymentKind = p, events.EventPaymentDerived
			}
		case from == domain.TicketStatusCompleted:
			p, changed, err := s.deriver.Void(ctx, tx.Payments(), ticket.ID, now)
			if err != nil {
				return err
			}
			if changed {
				payment, paymentKind = p, events.EventPaymentVoided
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID))
	evts := []events.Event{{
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Reverse:   domain.IsReverse(from, to),
			Note:      strings.TrimSpace(extra.Note),
		},
	}}
	if payment != nil {
		evts = append(evts, paymentEvent(paymentKind, actor, payment, now))
	}
	publish(ctx, s.dispatcher, s.logger, evts...)
	return &TransitionResult{Ticket: ticket, Payment: payment}, nil
}

// mergeField overwrites dst only when a non-blank value was supplied.
func mergeField(dst *string, val string) {
	if v := strings.TrimSpace(val); v != "" {
		*dst = v
	}
}
