package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
)

const paymentColumns = `id, ticket_id, technician_id, service_amount::text, commission_percent::text,
       amount_owed::text, status, enabled_at, method, reference, paid_by, paid_at, voided_at`

type paymentRepository struct {
	db DBTX
}

// NewPaymentRepository builds repository.
func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.TechnicianPayment) error {
	const query = `
        INSERT INTO technician_payments (id, ticket_id, technician_id, service_amount, commission_percent,
            amount_owed, status, enabled_at, method, reference, paid_by, paid_at, voided_at)
        VALUES ($1,$2,$3,$4::text::numeric,$5::text::numeric,$6::text::numeric,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.TicketID,
		p.TechnicianID,
		p.ServiceAmount.String(),
		p.CommissionPercent.String(),
		p.AmountOwed.String(),
		p.Status,
		p.EnabledAt,
		p.Method,
		p.Reference,
		p.PaidBy,
		p.PaidAt,
		p.VoidedAt,
	)
	return mapPgError(err)
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.TechnicianPayment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM technician_payments WHERE id=$1`, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return p, nil
}

func (r *paymentRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TechnicianPayment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM technician_payments WHERE ticket_id=$1`, ticketID))
	if err != nil {
		return nil, mapPgError(err)
	}
	return p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *domain.TechnicianPayment) error {
	const query = `
        UPDATE technician_payments SET technician_id=$1, service_amount=$2::text::numeric,
            commission_percent=$3::text::numeric, amount_owed=$4::text::numeric, status=$5, enabled_at=$6,
            method=$7, reference=$8, paid_by=$9, paid_at=$10, voided_at=$11
        WHERE id=$12`
	cmd, err := r.db.Exec(ctx, query,
		p.TechnicianID,
		p.ServiceAmount.String(),
		p.CommissionPercent.String(),
		p.AmountOwed.String(),
		p.Status,
		p.EnabledAt,
		p.Method,
		p.Reference,
		p.PaidBy,
		p.PaidAt,
		p.VoidedAt,
		p.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) (Page[domain.TechnicianPayment], error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("enabled_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("enabled_at <= $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM technician_payments WHERE `+where, args...).Scan(&total); err != nil {
		return Page[domain.TechnicianPayment]{}, mapPgError(err)
	}
	win := NormalizePage(filter.Page, filter.PageSize, total)

	query := fmt.Sprintf(`SELECT %s FROM technician_payments WHERE %s ORDER BY enabled_at DESC, id DESC LIMIT %d OFFSET %d`,
		paymentColumns, where, win.PageSize, win.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return Page[domain.TechnicianPayment]{}, mapPgError(err)
	}
	defer rows.Close()

	items := []domain.TechnicianPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return Page[domain.TechnicianPayment]{}, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return Page[domain.TechnicianPayment]{}, err
	}
	return Page[domain.TechnicianPayment]{Items: items, Total: total, Page: win.Page, PageSize: win.PageSize, TotalPages: win.TotalPages}, nil
}

func scanPayment(row pgx.Row) (*domain.TechnicianPayment, error) {
	var (
		p                     domain.TechnicianPayment
		amount, percent, owed string
	)
	if err := row.Scan(
		&p.ID,
		&p.TicketID,
		&p.TechnicianID,
		&amount,
		&percent,
		&owed,
		&p.Status,
		&p.EnabledAt,
		&p.Method,
		&p.Reference,
		&p.PaidBy,
		&p.PaidAt,
		&p.VoidedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if p.ServiceAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse service_amount: %w", err)
	}
	if p.CommissionPercent, err = decimal.NewFromString(percent); err != nil {
		return nil, fmt.Errorf("parse commission_percent: %w", err)
	}
	if p.AmountOwed, err = decimal.NewFromString(owed); err != nil {
		return nil, fmt.Errorf("parse amount_owed: %w", err)
	}
	p.EnabledAt = p.EnabledAt.UTC()
	p.PaidAt = utcPtr(p.PaidAt)
	p.VoidedAt = utcPtr(p.VoidedAt)
	return &p, nil
}
