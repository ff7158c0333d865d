package repository

import (
	"context"

	"github.com/fieldops/fieldservice/internal/domain"
)

type historyRepository struct {
	db DBTX
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(db DBTX) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.ChangeHistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (id, ticket_id, actor_id, kind, field, old_value, new_value, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.ActorID,
		entry.Kind,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Note,
		entry.CreatedAt,
	)
	return mapPgError(err)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChangeHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, actor_id, kind, field, old_value, new_value, note, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.ChangeHistoryEntry{}
	for rows.Next() {
		var entry domain.ChangeHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.Kind,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *historyRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_history WHERE ticket_id=$1`, ticketID).Scan(&count); err != nil {
		return 0, mapPgError(err)
	}
	return count, nil
}
