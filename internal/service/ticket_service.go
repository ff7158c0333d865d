package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// TicketService is the ticket lifecycle engine. Every mutation runs as one
// Store.WithinTx unit: guard, write the ticket, record history and derive or
// void the payment. Events are published only after the unit commits.
type TicketService struct {
	store      repository.Store
	sequencer  repository.Sequencer
	policy     *auth.Policy
	recorder   *HistoryRecorder
	deriver    *PaymentDeriver
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      Clock
	newID      func() string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store repository.Store
	// Sequencer overrides the store's own code counter (e.g. Redis). Optional.
	Sequencer  repository.Sequencer
	Policy     *auth.Policy
	Deriver    *PaymentDeriver
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	deriver := deps.Deriver
	if deriver == nil {
		deriver = NewPaymentDeriver(domain.DefaultCommissionPercent)
	}
	return &TicketService{
		store:      deps.Store,
		sequencer:  deps.Sequencer,
		policy:     policy,
		recorder:   NewHistoryRecorder(),
		deriver:    deriver,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
		newID:      uuid.NewString,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Kind              domain.TicketKind
	Priority          domain.TicketPriority
	Title             string
	ClientName        string
	Description       string
	Requirements      string
	TechnicianID      *string
	ServiceAmount     decimal.Decimal
	CommissionPercent *decimal.Decimal
}

// UpdateTicketInput lists editable fields; nil leaves a field untouched.
// Status, technician and code are changed through their own operations.
type UpdateTicketInput struct {
	Priority          *domain.TicketPriority
	Title             *string
	ClientName        *string
	Description       *string
	Requirements      *string
	MaterialsUsed     *string
	Solution          *string
	TimeWorked        *string
	Observations      *string
	ServiceAmount     *decimal.Decimal
	CommissionPercent *decimal.Decimal
}

// TicketListFilter is the caller-facing list query.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Kind         *domain.TicketKind
	TechnicianID *string
	Search       string
	Page         int
	PageSize     int
}

// Create opens a ticket in the assigned state with the next code for its kind and year.
func (s *TicketService) Create(ctx context.Context, actor *domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if err := s.require(actor, auth.PermTicketsCreate); err != nil {
		return nil, err
	}
	if input.TechnicianID != nil && *input.TechnicianID == "" {
		input.TechnicianID = nil
	}
	if input.TechnicianID != nil && !s.policy.HasPermission(actor.Role, auth.PermTicketsAssign) {
		return nil, errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, auth.PermTicketsAssign))
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.clock.now()
	ticket := &domain.Ticket{
		ID:                s.newID(),
		Kind:              input.Kind,
		Status:            domain.TicketStatusAssigned,
		Priority:          input.Priority,
		Title:             strings.TrimSpace(input.Title),
		ClientName:        strings.TrimSpace(input.ClientName),
		Description:       strings.TrimSpace(input.Description),
		Requirements:      strings.TrimSpace(input.Requirements),
		CreatedBy:         actor.ID,
		TechnicianID:      input.TechnicianID,
		ServiceAmount:     input.ServiceAmount.Round(2),
		CommissionPercent: input.CommissionPercent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if ticket.HasTechnician() {
		ticket.AssignedAt = &now
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if ticket.HasTechnician() {
			if err := checkAssignee(ctx, tx.Users(), *ticket.TechnicianID); err != nil {
				return err
			}
		}
		seq := s.sequencer
		if seq == nil {
			seq = tx.Sequences()
		}
		n, err := seq.Next(ctx, ticket.Kind, now.Year())
		if err != nil {
			return fmt.Errorf("allocate ticket number: %w", err)
		}
		ticket.Code = FormatTicketCode(ticket.Kind, now.Year(), n)

		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return translate(err, "ticket code "+ticket.Code, "create ticket")
		}
		if err := s.recorder.Created(ctx, tx.History(), ticket, actor.ID, now); err != nil {
			return translate(err, "ticket", "record creation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("code", ticket.Code),
		zap.String("actor_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload: events.TicketCreatedPayload{
			Code:         ticket.Code,
			Kind:         ticket.Kind,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
			TechnicianID: ticket.TechnicianID,
		},
	})
	return ticket, nil
}

// FormatTicketCode renders {PREFIX}-{YYYY}-{seq:04d}.
func FormatTicketCode(kind domain.TicketKind, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", kind.CodePrefix(), year, seq)
}

// Get returns a ticket visible to actor.
func (s *TicketService) Get(ctx context.Context, actor *domain.Actor, ticketID string) (*domain.Ticket, error) {
	if err := s.require(actor, auth.PermTicketsView); err != nil {
		return nil, err
	}
	return s.loadVisible(ctx, s.store, actor, ticketID)
}

// List pages through tickets visible to actor. Actors without tickets.view_all
// only ever see tickets assigned to them.
func (s *TicketService) List(ctx context.Context, actor *domain.Actor, filter TicketListFilter) (repository.Page[domain.Ticket], error) {
	if err := s.require(actor, auth.PermTicketsView); err != nil {
		return repository.Page[domain.Ticket]{}, err
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return repository.Page[domain.Ticket]{}, errorutil.NewValidationError("unknown status", map[string]any{"status": string(st)})
		}
	}
	for _, pr := range filter.Priorities {
		if !pr.Valid() {
			return repository.Page[domain.Ticket]{}, errorutil.NewValidationError("unknown priority", map[string]any{"priority": string(pr)})
		}
	}
	if filter.Kind != nil && !filter.Kind.Valid() {
		return repository.Page[domain.Ticket]{}, errorutil.NewValidationError("unknown kind", map[string]any{"kind": string(*filter.Kind)})
	}

	query := repository.TicketFilter{
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		Kind:         filter.Kind,
		TechnicianID: filter.TechnicianID,
		Search:       filter.Search,
		Page:         filter.Page,
		PageSize:     filter.PageSize,
	}
	if !s.policy.SeesAllTickets(actor.Role) {
		self := actor.ID
		query.TechnicianID = &self
	}
	page, err := s.store.Tickets().List(ctx, query)
	if err != nil {
		return repository.Page[domain.Ticket]{}, translate(err, "ticket", "list tickets")
	}
	return page, nil
}

// History returns a visible ticket's audit trail, oldest first.
func (s *TicketService) History(ctx context.Context, actor *domain.Actor, ticketID string) ([]domain.ChangeHistoryEntry, error) {
	if err := s.require(actor, auth.PermTicketsView); err != nil {
		return nil, err
	}
	if _, err := s.loadVisible(ctx, s.store, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.store.History().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, translate(err, "ticket", "list history")
	}
	return entries, nil
}

// Update applies a full-record edit. It records one field_edited entry per
// changed field and reprices a pending payment when money fields change.
func (s *TicketService) Update(ctx context.Context, actor *domain.Actor, ticketID string, input UpdateTicketInput) (*domain.Ticket, error) {
	if err := s.requireElevated(actor, auth.PermTicketsEdit); err != nil {
		return nil, err
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	now := s.clock.now()
	var (
		ticket  *domain.Ticket
		changes []FieldChange
		repaid  *domain.TechnicianPayment
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := s.loadVisible(ctx, tx, actor, ticketID)
		if err != nil {
			return err
		}
		ticket = current.Clone()
		changes = applyUpdate(ticket, input)
		if len(changes) == 0 {
			return nil
		}
		if ticket.Status == domain.TicketStatusCompleted && strings.TrimSpace(ticket.Solution) == "" {
			return errorutil.NewValidationError("completed ticket requires a solution", map[string]any{"field": "solution"})
		}
		ticket.UpdatedAt = now

		if err := tx.Tickets().UpdateIfStatus(ctx, ticket, current.Status); err != nil {
			return translate(err, "ticket", "update ticket")
		}
		for _, change := range changes {
			if err := s.recorder.FieldEdited(ctx, tx.History(), ticket.ID, actor.ID, change, now); err != nil {
				return translate(err, "ticket", "record edit")
			}
		}
		if moneyChanged(changes) && ticket.HasTechnician() {
			payment, changed, err := s.deriver.Reprice(ctx, tx.Payments(), ticket)
			if err != nil {
				return err
			}
			if changed {
				repaid = payment
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return ticket, nil
	}

	fields := make([]string, len(changes))
	for i, c := range changes {
		fields[i] = c.Field
	}
	s.logger.Info("ticket updated",
		zap.String("ticket_id", ticket.ID),
		zap.Strings("fields", fields),
		zap.String("actor_id", actor.ID))
	evts := []events.Event{{
		Type:      events.EventTicketUpdated,
		TicketID:  ticket.ID,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload:   events.TicketUpdatedPayload{Fields: fields},
	}}
	if repaid != nil {
		evts = append(evts, paymentEvent(events.EventPaymentDerived, actor, repaid, now))
	}
	publish(ctx, s.dispatcher, s.logger, evts...)
	return ticket, nil
}

// Delete removes a ticket with its history and payment.
func (s *TicketService) Delete(ctx context.Context, actor *domain.Actor, ticketID string) error {
	if err := s.requireElevated(actor, auth.PermTicketsDelete); err != nil {
		return err
	}
	var code string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		ticket, err := s.loadVisible(ctx, tx, actor, ticketID)
		if err != nil {
			return err
		}
		code = ticket.Code
		return translate(tx.Tickets().Delete(ctx, ticketID), "ticket", "delete ticket")
	})
	if err != nil {
		return err
	}

	s.logger.Info("ticket deleted",
		zap.String("ticket_id", ticketID),
		zap.String("code", code),
		zap.String("actor_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketDeleted,
		TicketID:  ticketID,
		Actor:     events.ActorOf(actor),
		Timestamp: s.clock.now(),
		Payload:   events.TicketDeletedPayload{Code: code},
	})
	return nil
}

func (s *TicketService) require(actor *domain.Actor, perm auth.Permission) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !s.policy.HasPermission(actor.Role, perm) {
		return errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, perm))
	}
	return nil
}

func (s *TicketService) requireElevated(actor *domain.Actor, perm auth.Permission) error {
	if err := s.require(actor, perm); err != nil {
		return err
	}
	if !s.policy.IsElevated(actor.Role) {
		return errorutil.NewForbidden(fmt.Sprintf("role %s is below required level %d", actor.Role, auth.ElevatedLevel))
	}
	return nil
}

// loadVisible hides tickets outside the actor's scope behind NotFound.
func (s *TicketService) loadVisible(ctx context.Context, store repository.Store, actor *domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, "ticket", "load ticket")
	}
	if !s.policy.SeesAllTickets(actor.Role) && !ticket.AssignedTo(actor.ID) {
		return nil, errorutil.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

func validateCreate(input CreateTicketInput) error {
	if !input.Kind.Valid() {
		return errorutil.NewValidationError("kind must be service or project", map[string]any{"field": "kind"})
	}
	if !input.Priority.Valid() {
		return errorutil.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	}
	if strings.TrimSpace(input.Title) == "" {
		return errorutil.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if err := validateAmount(input.ServiceAmount); err != nil {
		return err
	}
	return validatePercent(input.CommissionPercent)
}

func validateUpdate(input UpdateTicketInput) error {
	if input.Priority != nil && !input.Priority.Valid() {
		return errorutil.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return errorutil.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if input.ServiceAmount != nil {
		if err := validateAmount(*input.ServiceAmount); err != nil {
			return err
		}
	}
	return validatePercent(input.CommissionPercent)
}

// validateAmount checks the value that will be stored, which is rounded to cents.
func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errorutil.NewValidationError("service amount must not be negative", map[string]any{"field": "service_amount"})
	}
	if amount.Round(2).GreaterThanOrEqual(domain.AmountLimit) {
		return errorutil.NewValidationError(fmt.Sprintf("service amount must be below %s", domain.AmountLimit),
			map[string]any{"field": "service_amount"})
	}
	return nil
}

// validatePercent rejects rates the payment would store differently than given.
func validatePercent(pct *decimal.Decimal) error {
	if pct == nil {
		return nil
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return errorutil.NewValidationError("commission percent must be between 0 and 100", map[string]any{"field": "commission_percent"})
	}
	if !domain.HasCents(*pct) {
		return errorutil.NewValidationError("commission percent allows at most two decimals", map[string]any{"field": "commission_percent"})
	}
	return nil
}

// applyUpdate mutates ticket and returns the fields whose value changed.
func applyUpdate(ticket *domain.Ticket, input UpdateTicketInput) []FieldChange {
	var changes []FieldChange
	text := func(field string, dst *string, val *string) {
		if val == nil {
			return
		}
		next := strings.TrimSpace(*val)
		if next == *dst {
			return
		}
		changes = append(changes, FieldChange{Field: field, Old: *dst, New: next})
		*dst = next
	}

	if input.Priority != nil && *input.Priority != ticket.Priority {
		changes = append(changes, FieldChange{Field: "priority", Old: string(ticket.Priority), New: string(*input.Priority)})
		ticket.Priority = *input.Priority
	}
	text("title", &ticket.Title, input.Title)
	text("client_name", &ticket.ClientName, input.ClientName)
	text("description", &ticket.Description, input.Description)
	text("requirements", &ticket.Requirements, input.Requirements)
	text("materials_used", &ticket.MaterialsUsed, input.MaterialsUsed)
	text("solution", &ticket.Solution, input.Solution)
	text("time_worked", &ticket.TimeWorked, input.TimeWorked)
	text("observations", &ticket.Observations, input.Observations)

	if input.ServiceAmount != nil {
		next := input.ServiceAmount.Round(2)
		if !next.Equal(ticket.ServiceAmount) {
			changes = append(changes, FieldChange{
				Field: "service_amount",
				Old:   ticket.ServiceAmount.StringFixed(2),
				New:   next.StringFixed(2),
			})
			ticket.ServiceAmount = next
		}
	}
	if input.CommissionPercent != nil {
		next := *input.CommissionPercent
		if ticket.CommissionPercent == nil || !next.Equal(*ticket.CommissionPercent) {
			old := ""
			if ticket.CommissionPercent != nil {
				old = ticket.CommissionPercent.StringFixed(2)
			}
			changes = append(changes, FieldChange{Field: "commission_percent", Old: old, New: next.StringFixed(2)})
			ticket.CommissionPercent = &next
		}
	}
	return changes
}

func moneyChanged(changes []FieldChange) bool {
	for _, c := range changes {
		if c.Field == "service_amount" || c.Field == "commission_percent" {
			return true
		}
	}
	return false
}
