package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/persistence"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/internal/repository/repotest"
	"github.com/fieldops/fieldservice/migrations"
)

// TestPostgresStoreContract needs a disposable database in TEST_POSTGRES_DSN.
func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := persistence.RunMigrations(ctx, pool, migrations.FS, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repotest.Run(t, func(t *testing.T) repository.Store {
		const truncate = `TRUNCATE technician_payments, ticket_history, tickets, users, ticket_sequences`
		if _, err := pool.Exec(context.Background(), truncate); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return repository.NewPostgresStore(pool)
	})
}

// TestRedisSequencer needs a scratch Redis in TEST_REDIS_ADDR.
func TestRedisSequencer(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	prefix := "test_seq_" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = client.Del(ctx, keys...).Err()
		}
	})

	seq := repository.NewRedisSequencer(client, prefix)
	for want := 1; want <= 3; want++ {
		got, err := seq.Next(ctx, domain.TicketKindService, 2025)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("next = %d, want %d", got, want)
		}
	}
	if got, _ := seq.Next(ctx, domain.TicketKindProject, 2025); got != 1 {
		t.Errorf("project sequence = %d, want 1", got)
	}
}
