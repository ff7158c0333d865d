package events

import (
	"time"

	"github.com/fieldops/fieldservice/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventPaymentDerived      EventType = "payment_derived"
	EventPaymentVoided       EventType = "payment_voided"
	EventPaymentProcessed    EventType = "payment_processed"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketStatusChanged,
	EventTicketUpdated,
	EventTicketDeleted,
	EventPaymentDerived,
	EventPaymentVoided,
	EventPaymentProcessed,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// ActorOf converts a domain actor.
func ActorOf(a *domain.Actor) Actor {
	if a == nil {
		return Actor{}
	}
	return Actor{ID: a.ID, Role: a.Role}
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code         string                `json:"code"`
	Kind         domain.TicketKind     `json:"kind"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
	TechnicianID *string               `json:"technician_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousTechnicianID *string `json:"previous_technician_id,omitempty"`
	TechnicianID         string  `json:"technician_id"`
	Reassigned           bool    `json:"reassigned"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reverse   bool                `json:"reverse"`
	Note      string              `json:"note,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Code string `json:"code"`
}

// PaymentPayload is shared by the payment events.
type PaymentPayload struct {
	PaymentID    string               `json:"payment_id"`
	TechnicianID string               `json:"technician_id"`
	AmountOwed   string               `json:"amount_owed"`
	Status       domain.PaymentStatus `json:"status"`
}
