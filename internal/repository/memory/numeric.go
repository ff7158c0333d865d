package memory

import (
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

// numeric stores d the way a NUMERIC(p,2) column does: rounded to cents and
// rejected when its magnitude reaches limit.
func numeric(d *decimal.Decimal, limit decimal.Decimal) error {
	rounded := d.Round(2)
	if rounded.Abs().GreaterThanOrEqual(limit) {
		return repository.ErrOutOfRange
	}
	*d = rounded
	return nil
}

func fitTicket(t *domain.Ticket) error {
	if err := numeric(&t.ServiceAmount, domain.AmountLimit); err != nil {
		return err
	}
	if t.CommissionPercent != nil {
		return numeric(t.CommissionPercent, domain.PercentLimit)
	}
	return nil
}

func fitPayment(p *domain.TechnicianPayment) error {
	if err := numeric(&p.ServiceAmount, domain.AmountLimit); err != nil {
		return err
	}
	if err := numeric(&p.CommissionPercent, domain.PercentLimit); err != nil {
		return err
	}
	return numeric(&p.AmountOwed, domain.AmountLimit)
}
