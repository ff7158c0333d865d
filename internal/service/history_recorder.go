package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

// HistoryRecorder appends one immutable audit entry per ticket mutation. It
// writes through the HistoryRepository it is handed, so entries join the
// caller's transaction.
type HistoryRecorder struct {
	newID func() string
}

// NewHistoryRecorder builds a recorder that stamps entries with random UUIDs.
func NewHistoryRecorder() *HistoryRecorder {
	return &HistoryRecorder{newID: uuid.NewString}
}

// Created records ticket creation, naming the technician when one was set up front.
func (r *HistoryRecorder) Created(ctx context.Context, repo repository.HistoryRepository, ticket *domain.Ticket, actorID string, at time.Time) error {
	entry := r.entry(ticket.ID, actorID, domain.ChangeKindCreated, at)
	entry.NewValue = strPtr(string(ticket.Status))
	if ticket.HasTechnician() {
		entry.Field = strPtr("technician_id")
		entry.NewValue = strPtr(*ticket.TechnicianID)
	}
	return repo.Append(ctx, entry)
}

// Assigned records a first assignment, or a reassignment when previous is set.
func (r *HistoryRecorder) Assigned(ctx context.Context, repo repository.HistoryRepository, ticketID, actorID string, previous *string, technicianID string, at time.Time) error {
	kind := domain.ChangeKindAssigned
	if previous != nil && *previous != "" {
		kind = domain.ChangeKindReassigned
	}
	entry := r.entry(ticketID, actorID, kind, at)
	entry.Field = strPtr("technician_id")
	entry.OldValue = cloneStr(previous)
	entry.NewValue = strPtr(technicianID)
	return repo.Append(ctx, entry)
}

// StatusChanged records one transition. An empty note is stored as NULL.
func (r *HistoryRecorder) StatusChanged(ctx context.Context, repo repository.HistoryRepository, ticketID, actorID string, from, to domain.TicketStatus, note string, at time.Time) error {
	entry := r.entry(ticketID, actorID, domain.ChangeKindStatusChanged, at)
	entry.Field = strPtr("status")
	entry.OldValue = strPtr(string(from))
	entry.NewValue = strPtr(string(to))
	if note != "" {
		entry.Note = strPtr(note)
	}
	return repo.Append(ctx, entry)
}

// FieldEdited records a single field change made by a full-record update.
func (r *HistoryRecorder) FieldEdited(ctx context.Context, repo repository.HistoryRepository, ticketID, actorID string, change FieldChange, at time.Time) error {
	entry := r.entry(ticketID, actorID, domain.ChangeKindFieldEdited, at)
	entry.Field = strPtr(change.Field)
	entry.OldValue = strPtr(change.Old)
	entry.NewValue = strPtr(change.New)
	return repo.Append(ctx, entry)
}

func (r *HistoryRecorder) entry(ticketID, actorID string, kind domain.ChangeKind, at time.Time) *domain.ChangeHistoryEntry {
	return &domain.ChangeHistoryEntry{
		ID:        r.newID(),
		TicketID:  ticketID,
		ActorID:   actorID,
		Kind:      kind,
		CreatedAt: at,
	}
}

// FieldChange is one edited column with its before and after renderings.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

func strPtr(v string) *string { return &v }

func cloneStr(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
