package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/fieldservice/internal/domain"
)

type sequenceRepository struct {
	db DBTX
}

// NewSequenceRepository allocates ticket numbers from the ticket_sequences table.
func NewSequenceRepository(db DBTX) Sequencer {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, kind domain.TicketKind, year int) (int, error) {
	const query = `
        INSERT INTO ticket_sequences (kind, year, last_value) VALUES ($1, $2, 1)
        ON CONFLICT (kind, year) DO UPDATE SET last_value = ticket_sequences.last_value + 1
        RETURNING last_value`
	var next int
	if err := r.db.QueryRow(ctx, query, kind, year).Scan(&next); err != nil {
		return 0, mapPgError(err)
	}
	return next, nil
}

// RedisSequencer allocates ticket numbers with INCR on one key per kind and year.
type RedisSequencer struct {
	client *redis.Client
	prefix string
}

// NewRedisSequencer builds a sequencer; keys look like "<prefix>:service:2026".
func NewRedisSequencer(client *redis.Client, prefix string) *RedisSequencer {
	if prefix == "" {
		prefix = "ticket_seq"
	}
	return &RedisSequencer{client: client, prefix: prefix}
}

func (s *RedisSequencer) Next(ctx context.Context, kind domain.TicketKind, year int) (int, error) {
	val, err := s.client.Incr(ctx, s.key(kind, year)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return int(val), nil
}

func (s *RedisSequencer) key(kind domain.TicketKind, year int) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, kind, year)
}
