package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketKind distinguishes one-off service calls from multi-phase projects.
type TicketKind string

const (
	TicketKindService TicketKind = "service"
	TicketKindProject TicketKind = "project"
)

// Valid reports whether k is a known kind.
func (k TicketKind) Valid() bool {
	return k == TicketKindService || k == TicketKindProject
}

// CodePrefix returns the prefix used in human-readable ticket codes.
func (k TicketKind) CodePrefix() string {
	if k == TicketKindProject {
		return "PRY"
	}
	return "TKT"
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is one unit of billable work.
type Ticket struct {
	ID                string
	Code              string
	Kind              TicketKind
	Status            TicketStatus
	Priority          TicketPriority
	Title             string
	ClientName        string
	Description       string
	Requirements      string
	MaterialsUsed     string
	Solution          string
	TimeWorked        string
	Observations      string
	CreatedBy         string
	TechnicianID      *string
	ServiceAmount     decimal.Decimal
	CommissionPercent *decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
	AssignedAt        *time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// HasTechnician reports whether a technician is assigned.
func (t *Ticket) HasTechnician() bool {
	return t.TechnicianID != nil && *t.TechnicianID != ""
}

// AssignedTo reports whether userID is the assigned technician.
func (t *Ticket) AssignedTo(userID string) bool {
	return t.HasTechnician() && *t.TechnicianID == userID
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.TechnicianID = cloneString(t.TechnicianID)
	if t.CommissionPercent != nil {
		v := *t.CommissionPercent
		c.CommissionPercent = &v
	}
	c.AssignedAt = cloneTime(t.AssignedAt)
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
