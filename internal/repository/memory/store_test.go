package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/internal/repository/repotest"
)

func TestStoreContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return NewStore()
	})
}

func TestSequencerConcurrent(t *testing.T) {
	store := NewStore()
	const workers = 50

	var wg sync.WaitGroup
	seen := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := store.Sequences().Next(context.Background(), domain.TicketKindService, 2025)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int]bool, workers)
	for n := range seen {
		if unique[n] {
			t.Fatalf("number %d allocated twice", n)
		}
		unique[n] = true
	}
	for n := 1; n <= workers; n++ {
		if !unique[n] {
			t.Errorf("number %d never allocated", n)
		}
	}
}

func TestWithinTxSerializesGuardedUpdates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ticket := repotest.NewTicket(1, testTime)
	if err := store.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
				current, err := tx.Tickets().GetByID(ctx, ticket.ID)
				if err != nil {
					return err
				}
				next := current.Clone()
				next.Status = domain.TicketStatusStarted
				return tx.Tickets().UpdateIfStatus(ctx, next, domain.TicketStatusAssigned)
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestWithinTxRestoresStateAfterPanic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	kept := repotest.NewTicket(1, testTime)
	if err := store.Tickets().Create(ctx, kept); err != nil {
		t.Fatalf("create: %v", err)
	}
	dropped := repotest.NewTicket(2, testTime)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
			if err := tx.Tickets().Create(ctx, dropped); err != nil {
				return err
			}
			next := kept.Clone()
			next.Status = domain.TicketStatusStarted
			if err := tx.Tickets().Update(ctx, next); err != nil {
				return err
			}
			panic("handler blew up")
		})
	}()

	// The lock must be free again and the partial writes gone.
	if _, err := store.Tickets().GetByID(ctx, dropped.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("ticket created before panic survived: %v", err)
	}
	got, err := store.Tickets().GetByID(ctx, kept.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %s, want assigned", got.Status)
	}
}
