package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// AssignTechnician sets the ticket's technician. Replacing an existing
// technician is a reassignment and needs tickets.reassign at elevated level.
func (s *TicketService) AssignTechnician(ctx context.Context, actor *domain.Actor, ticketID, technicianID string) (*domain.Ticket, error) {
	if err := s.require(actor, auth.PermTicketsAssign); err != nil {
		return nil, err
	}
	if technicianID == "" {
		return nil, errorutil.NewValidationError("technician_id is required", map[string]any{"field": "technician_id"})
	}

	now := s.clock.now()
	var (
		ticket   *domain.Ticket
		previous *string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := s.loadVisible(ctx, tx, actor, ticketID)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return errorutil.NewValidationError(fmt.Sprintf("cannot assign a technician to a %s ticket", current.Status),
				map[string]any{"status": string(current.Status)})
		}
		if current.HasTechnician() {
			if current.AssignedTo(technicianID) {
				return errorutil.NewValidationError("technician already assigned", map[string]any{"technician_id": technicianID})
			}
			if err := s.requireReassign(actor); err != nil {
				return err
			}
			previous = cloneStr(current.TechnicianID)
		}
		if err := checkAssignee(ctx, tx.Users(), technicianID); err != nil {
			return err
		}

		ticket = current.Clone()
		tech := technicianID
		ticket.TechnicianID = &tech
		ticket.AssignedAt = &now
		ticket.UpdatedAt = now
		if err := tx.Tickets().UpdateIfStatus(ctx, ticket, current.Status); err != nil {
			return translate(err, "ticket", "assign technician")
		}
		return translate(
			s.recorder.Assigned(ctx, tx.History(), ticket.ID, actor.ID, previous, technicianID, now),
			"ticket", "record assignment")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("technician_id", technicianID),
		zap.Bool("reassigned", previous != nil),
		zap.String("actor_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload: events.TicketAssignedPayload{
			PreviousTechnicianID: previous,
			TechnicianID:         technicianID,
			Reassigned:           previous != nil,
		},
	})
	return ticket, nil
}

func (s *TicketService) requireReassign(actor *domain.Actor) error {
	if !s.policy.HasPermission(actor.Role, auth.PermTicketsReassign) {
		return errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, auth.PermTicketsReassign))
	}
	if !s.policy.IsElevated(actor.Role) {
		return errorutil.NewForbidden(fmt.Sprintf("reassignment requires level %d", auth.ElevatedLevel))
	}
	return nil
}

// checkAssignee verifies the user exists, is active and is a field technician.
func checkAssignee(ctx context.Context, users repository.UserRepository, technicianID string) error {
	user, err := users.GetByID(ctx, technicianID)
	if errors.Is(err, repository.ErrNotFound) {
		return errorutil.NewValidationError("technician not found", map[string]any{"technician_id": technicianID})
	}
	if err != nil {
		return fmt.Errorf("load technician: %w", err)
	}
	if !user.Active {
		return errorutil.NewValidationError("technician is inactive", map[string]any{"technician_id": technicianID})
	}
	if user.Role != domain.RoleTechnician {
		return errorutil.NewValidationError("assignee must hold the technician role",
			map[string]any{"technician_id": technicianID, "role": string(user.Role)})
	}
	return nil
}
