package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
)

const ticketColumns = `id, code, kind, status, priority, title, client_name, description, requirements,
       materials_used, solution, time_worked, observations, created_by, technician_id,
       service_amount::text, commission_percent::text, created_at, updated_at,
       assigned_at, started_at, completed_at`

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, code, kind, status, priority, title, client_name, description, requirements,
            materials_used, solution, time_worked, observations, created_by, technician_id,
            service_amount, commission_percent, created_at, updated_at, assigned_at, started_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16::text::numeric,$17::text::numeric,$18,$19,$20,$21,$22)`
	_, err := r.db.Exec(ctx, query,
		ticket.ID,
		ticket.Code,
		ticket.Kind,
		ticket.Status,
		ticket.Priority,
		ticket.Title,
		ticket.ClientName,
		ticket.Description,
		ticket.Requirements,
		ticket.MaterialsUsed,
		ticket.Solution,
		ticket.TimeWorked,
		ticket.Observations,
		ticket.CreatedBy,
		ticket.TechnicianID,
		ticket.ServiceAmount.String(),
		decimalPtrString(ticket.CommissionPercent),
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.AssignedAt,
		ticket.StartedAt,
		ticket.CompletedAt,
	)
	return mapPgError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code=$1`, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	return r.update(ctx, ticket, nil)
}

func (r *ticketRepository) UpdateIfStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	return r.update(ctx, ticket, &expected)
}

func (r *ticketRepository) update(ctx context.Context, ticket *domain.Ticket, expected *domain.TicketStatus) error {
	query := `
        UPDATE tickets SET status=$1, priority=$2, title=$3, client_name=$4, description=$5, requirements=$6,
            materials_used=$7, solution=$8, time_worked=$9, observations=$10, technician_id=$11,
            service_amount=$12::text::numeric, commission_percent=$13::text::numeric, updated_at=$14,
            assigned_at=$15, started_at=$16, completed_at=$17
        WHERE id=$18`
	args := []any{
		ticket.Status,
		ticket.Priority,
		ticket.Title,
		ticket.ClientName,
		ticket.Description,
		ticket.Requirements,
		ticket.MaterialsUsed,
		ticket.Solution,
		ticket.TimeWorked,
		ticket.Observations,
		ticket.TechnicianID,
		ticket.ServiceAmount.String(),
		decimalPtrString(ticket.CommissionPercent),
		ticket.UpdatedAt,
		ticket.AssignedAt,
		ticket.StartedAt,
		ticket.CompletedAt,
		ticket.ID,
	}
	if expected != nil {
		args = append(args, *expected)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	if expected == nil {
		return ErrNotFound
	}
	// Distinguish a vanished row from a lost race.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
		return mapPgError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleStatus
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM technician_payments WHERE ticket_id=$1`, id); err != nil {
		return mapPgError(err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM ticket_history WHERE ticket_id=$1`, id); err != nil {
		return mapPgError(err)
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) (Page[domain.Ticket], error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if search := NormalizeSearch(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(code) LIKE %[1]s ESCAPE '\' OR LOWER(title) LIKE %[1]s ESCAPE '\' OR LOWER(client_name) LIKE %[1]s ESCAPE '\' OR LOWER(description) LIKE %[1]s ESCAPE '\')`, p))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return Page[domain.Ticket]{}, mapPgError(err)
	}
	win := NormalizePage(filter.Page, filter.PageSize, total)

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, win.PageSize, win.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return Page[domain.Ticket]{}, mapPgError(err)
	}
	defer rows.Close()

	items := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return Page[domain.Ticket]{}, err
		}
		items = append(items, *ticket)
	}
	if err := rows.Err(); err != nil {
		return Page[domain.Ticket]{}, err
	}
	return Page[domain.Ticket]{Items: items, Total: total, Page: win.Page, PageSize: win.PageSize, TotalPages: win.TotalPages}, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket     domain.Ticket
		amount     string
		commission *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.Kind,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Title,
		&ticket.ClientName,
		&ticket.Description,
		&ticket.Requirements,
		&ticket.MaterialsUsed,
		&ticket.Solution,
		&ticket.TimeWorked,
		&ticket.Observations,
		&ticket.CreatedBy,
		&ticket.TechnicianID,
		&amount,
		&commission,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedAt,
		&ticket.StartedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if ticket.ServiceAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse service_amount: %w", err)
	}
	if commission != nil {
		pct, err := decimal.NewFromString(*commission)
		if err != nil {
			return nil, fmt.Errorf("parse commission_percent: %w", err)
		}
		ticket.CommissionPercent = &pct
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	ticket.AssignedAt = utcPtr(ticket.AssignedAt)
	ticket.StartedAt = utcPtr(ticket.StartedAt)
	ticket.CompletedAt = utcPtr(ticket.CompletedAt)
	return &ticket, nil
}

func decimalPtrString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
