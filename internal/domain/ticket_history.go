package domain

import "time"

// ChangeKind captures what changed in a history entry.
type ChangeKind string

const (
	ChangeKindCreated       ChangeKind = "created"
	ChangeKindAssigned      ChangeKind = "assigned"
	ChangeKindReassigned    ChangeKind = "reassigned"
	ChangeKindStatusChanged ChangeKind = "status_changed"
	ChangeKindFieldEdited   ChangeKind = "field_edited"
)

// ChangeHistoryEntry is an immutable audit trail entry.
type ChangeHistoryEntry struct {
	ID        string
	TicketID  string
	ActorID   string
	Kind      ChangeKind
	Field     *string
	OldValue  *string
	NewValue  *string
	Note      *string
	CreatedAt time.Time
}

// Clone returns a deep copy of the entry.
func (e *ChangeHistoryEntry) Clone() *ChangeHistoryEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Field = cloneString(e.Field)
	c.OldValue = cloneString(e.OldValue)
	c.NewValue = cloneString(e.NewValue)
	c.Note = cloneString(e.Note)
	return &c
}
