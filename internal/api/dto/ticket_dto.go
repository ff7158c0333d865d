package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
)

// CreateTicketRequest payload. Money accepts JSON numbers or strings.
type CreateTicketRequest struct {
	Kind              domain.TicketKind     `json:"kind"`
	Priority          domain.TicketPriority `json:"priority"`
	Title             string                `json:"title"`
	ClientName        string                `json:"client_name"`
	Description       string                `json:"description"`
	Requirements      string                `json:"requirements"`
	TechnicianID      *string               `json:"technician_id"`
	ServiceAmount     decimal.Decimal       `json:"service_amount"`
	CommissionPercent *decimal.Decimal      `json:"commission_percent"`
}

// UpdateTicketRequest payload. Omitted fields are left untouched.
type UpdateTicketRequest struct {
	Priority          *domain.TicketPriority `json:"priority"`
	Title             *string                `json:"title"`
	ClientName        *string                `json:"client_name"`
	Description       *string                `json:"description"`
	Requirements      *string                `json:"requirements"`
	MaterialsUsed     *string                `json:"materials_used"`
	Solution          *string                `json:"solution"`
	TimeWorked        *string                `json:"time_worked"`
	Observations      *string                `json:"observations"`
	ServiceAmount     *decimal.Decimal       `json:"service_amount"`
	CommissionPercent *decimal.Decimal       `json:"commission_percent"`
}

// AssignTechnicianRequest payload.
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technician_id"`
}

// ChangeStatusRequest payload. Completion fields are read only when moving to completed.
type ChangeStatusRequest struct {
	Status        domain.TicketStatus `json:"status"`
	Solution      string              `json:"solution"`
	MaterialsUsed string              `json:"materials_used"`
	TimeWorked    string              `json:"time_worked"`
	Observations  string              `json:"observations"`
	Note          string              `json:"note"`
}

// TicketResponse is the full ticket document, including completion fields.
type TicketResponse struct {
	ID                string                `json:"id"`
	Code              string                `json:"code"`
	Kind              domain.TicketKind     `json:"kind"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	Title             string                `json:"title"`
	ClientName        string                `json:"client_name"`
	Description       string                `json:"description"`
	Requirements      string                `json:"requirements"`
	MaterialsUsed     string                `json:"materials_used"`
	Solution          string                `json:"solution"`
	TimeWorked        string                `json:"time_worked"`
	Observations      string                `json:"observations"`
	CreatedBy         string                `json:"created_by"`
	TechnicianID      *string               `json:"technician_id"`
	ServiceAmount     string                `json:"service_amount"`
	CommissionPercent *string               `json:"commission_percent"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	AssignedAt        *time.Time            `json:"assigned_at"`
	StartedAt         *time.Time            `json:"started_at"`
	CompletedAt       *time.Time            `json:"completed_at"`

	// NextStatuses lists forward targets; ReverseStatuses need an elevated role.
	NextStatuses    []domain.TicketStatus `json:"next_statuses"`
	ReverseStatuses []domain.TicketStatus `json:"reverse_statuses"`
}

// TransitionResponse is returned by a status change.
type TransitionResponse struct {
	Ticket  TicketResponse   `json:"ticket"`
	Payment *PaymentResponse `json:"payment,omitempty"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID        string            `json:"id"`
	Kind      domain.ChangeKind `json:"kind"`
	ActorID   string            `json:"actor_id"`
	Field     *string           `json:"field"`
	OldValue  *string           `json:"old_value"`
	NewValue  *string           `json:"new_value"`
	Note      *string           `json:"note"`
	CreatedAt time.Time         `json:"created_at"`
}

// HistoryResponse wraps a ticket's trail, oldest first.
type HistoryResponse struct {
	TicketID string                 `json:"ticket_id"`
	Items    []HistoryEntryResponse `json:"items"`
}

// PageResponse is a page of a filtered list.
type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewTicketResponse renders a ticket. Money is fixed to two decimals.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:            t.ID,
		Code:          t.Code,
		Kind:          t.Kind,
		Status:        t.Status,
		Priority:      t.Priority,
		Title:         t.Title,
		ClientName:    t.ClientName,
		Description:   t.Description,
		Requirements:  t.Requirements,
		MaterialsUsed: t.MaterialsUsed,
		Solution:      t.Solution,
		TimeWorked:    t.TimeWorked,
		Observations:  t.Observations,
		CreatedBy:     t.CreatedBy,
		TechnicianID:  t.TechnicianID,
		ServiceAmount: t.ServiceAmount.StringFixed(2),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		AssignedAt:    t.AssignedAt,
		StartedAt:     t.StartedAt,
		CompletedAt:   t.CompletedAt,

		NextStatuses:    domain.ForwardTransitions(t.Status),
		ReverseStatuses: domain.ReverseTransitions(t.Status),
	}
	if t.CommissionPercent != nil {
		pct := t.CommissionPercent.StringFixed(2)
		resp.CommissionPercent = &pct
	}
	return resp
}

// NewHistoryEntryResponse renders one audit entry.
func NewHistoryEntryResponse(e *domain.ChangeHistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:        e.ID,
		Kind:      e.Kind,
		ActorID:   e.ActorID,
		Field:     e.Field,
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}
