package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks a commission obligation.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	// PaymentStatusVoided marks an obligation whose ticket was reopened.
	PaymentStatusVoided PaymentStatus = "voided"
)

// PaymentMethod is how a technician was paid.
type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodDeposit  PaymentMethod = "deposit"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodTransfer, PaymentMethodCash, PaymentMethodCheck, PaymentMethodDeposit:
		return true
	}
	return false
}

// DefaultCommissionPercent is the share of the service amount owed to the technician.
var DefaultCommissionPercent = decimal.NewFromInt(50)

// TechnicianPayment is the commission owed to the technician who completed a ticket.
type TechnicianPayment struct {
	ID                string
	TicketID          string
	TechnicianID      string
	ServiceAmount     decimal.Decimal
	CommissionPercent decimal.Decimal
	AmountOwed        decimal.Decimal
	Status            PaymentStatus
	EnabledAt         time.Time
	Method            *PaymentMethod
	Reference         *string
	PaidBy            *string
	PaidAt            *time.Time
	VoidedAt          *time.Time
}

// Money and percentages carry two decimals. Amounts stay below 10^10 and
// percentages below 10^3.
var (
	AmountLimit  = decimal.New(1, 10)
	PercentLimit = decimal.New(1, 3)
)

// HasCents reports whether d needs at most two decimal places.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// ComputeAmountOwed returns amount * percent / 100 rounded to currency precision.
func ComputeAmountOwed(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

// Clone returns a deep copy of the payment.
func (p *TechnicianPayment) Clone() *TechnicianPayment {
	if p == nil {
		return nil
	}
	c := *p
	if p.Method != nil {
		m := *p.Method
		c.Method = &m
	}
	c.Reference = cloneString(p.Reference)
	c.PaidBy = cloneString(p.PaidBy)
	c.PaidAt = cloneTime(p.PaidAt)
	c.VoidedAt = cloneTime(p.VoidedAt)
	return &c
}
