package dto

import (
	"time"

	"github.com/fieldops/fieldservice/internal/domain"
)

// ProcessPaymentRequest payload.
type ProcessPaymentRequest struct {
	Method    domain.PaymentMethod `json:"method"`
	Reference string               `json:"reference"`
}

// PaymentResponse renders a technician payment.
type PaymentResponse struct {
	ID                string                `json:"id"`
	TicketID          string                `json:"ticket_id"`
	TechnicianID      string                `json:"technician_id"`
	ServiceAmount     string                `json:"service_amount"`
	CommissionPercent string                `json:"commission_percent"`
	AmountOwed        string                `json:"amount_owed"`
	Status            domain.PaymentStatus  `json:"status"`
	Method            *domain.PaymentMethod `json:"method"`
	Reference         *string               `json:"reference"`
	EnabledAt         time.Time             `json:"enabled_at"`
	PaidAt            *time.Time            `json:"paid_at"`
	PaidBy            *string               `json:"paid_by"`
	VoidedAt          *time.Time            `json:"voided_at,omitempty"`
}

// PayrollLineResponse is one technician's totals.
type PayrollLineResponse struct {
	TechnicianID   string `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
	PendingCount   int    `json:"pending_count"`
	PendingAmount  string `json:"pending_amount"`
	PaidCount      int    `json:"paid_count"`
	PaidAmount     string `json:"paid_amount"`
}

// PayrollReportResponse aggregates pending and paid obligations.
type PayrollReportResponse struct {
	From         *time.Time            `json:"from"`
	To           *time.Time            `json:"to"`
	Lines        []PayrollLineResponse `json:"lines"`
	TotalPending string                `json:"total_pending"`
	TotalPaid    string                `json:"total_paid"`
}

// NewPaymentResponse renders a payment. Money is fixed to two decimals.
func NewPaymentResponse(p *domain.TechnicianPayment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		TicketID:          p.TicketID,
		TechnicianID:      p.TechnicianID,
		ServiceAmount:     p.ServiceAmount.StringFixed(2),
		CommissionPercent: p.CommissionPercent.StringFixed(2),
		AmountOwed:        p.AmountOwed.StringFixed(2),
		Status:            p.Status,
		Method:            p.Method,
		Reference:         p.Reference,
		EnabledAt:         p.EnabledAt,
		PaidAt:            p.PaidAt,
		PaidBy:            p.PaidBy,
		VoidedAt:          p.VoidedAt,
	}
}
