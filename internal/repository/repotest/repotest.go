// Package repotest holds a behavioural suite that every repository.Store
// implementation must pass.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.Store

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("TicketRoundTrip", func(t *testing.T) { testTicketRoundTrip(t, newStore(t)) })
	t.Run("NumericColumns", func(t *testing.T) { testNumericColumns(t, newStore(t)) })
	t.Run("DuplicateCode", func(t *testing.T) { testDuplicateCode(t, newStore(t)) })
	t.Run("ListOrderingAndPaging", func(t *testing.T) { testListOrderingAndPaging(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("UpdateIfStatus", func(t *testing.T) { testUpdateIfStatus(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("HistoryOrder", func(t *testing.T) { testHistoryOrder(t, newStore(t)) })
	t.Run("PaymentPerTicket", func(t *testing.T) { testPaymentPerTicket(t, newStore(t)) })
	t.Run("PaymentList", func(t *testing.T) { testPaymentList(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Sequences", func(t *testing.T) { testSequences(t, newStore(t)) })
	t.Run("WithinTxRollback", func(t *testing.T) { testWithinTxRollback(t, newStore(t)) })
	t.Run("WithinTxCommit", func(t *testing.T) { testWithinTxCommit(t, newStore(t)) })
}

// NewTicket builds a valid ticket whose code is derived from n.
func NewTicket(n int, created time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:            uuid.NewString(),
		Code:          fmt.Sprintf("TKT-%04d-%04d", created.Year(), n),
		Kind:          domain.TicketKindService,
		Status:        domain.TicketStatusAssigned,
		Priority:      domain.TicketPriorityMedium,
		Title:         fmt.Sprintf("ticket %d", n),
		ClientName:    "Acme",
		CreatedBy:     uuid.NewString(),
		ServiceAmount: decimal.RequireFromString("100.00"),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func mustCreate(t *testing.T, store repository.Store, ticket *domain.Ticket) {
	t.Helper()
	if err := store.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket %s: %v", ticket.Code, err)
	}
}

func testTicketRoundTrip(t *testing.T, store repository.Store) {
	ctx := context.Background()
	tech := uuid.NewString()
	pct := decimal.RequireFromString("35.5")
	assigned := base.Add(time.Minute)
	ticket := NewTicket(1, base)
	ticket.TechnicianID = &tech
	ticket.CommissionPercent = &pct
	ticket.AssignedAt = &assigned
	ticket.Description = "router down"
	mustCreate(t, store, ticket)

	got, err := store.Tickets().GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != ticket.Code || got.Status != ticket.Status || got.Description != "router down" {
		t.Fatalf("unexpected ticket %+v", got)
	}
	if !got.ServiceAmount.Equal(ticket.ServiceAmount) {
		t.Errorf("amount = %s, want %s", got.ServiceAmount, ticket.ServiceAmount)
	}
	if got.CommissionPercent == nil || !got.CommissionPercent.Equal(pct) {
		t.Errorf("commission = %v, want %s", got.CommissionPercent, pct)
	}
	if !got.AssignedTo(tech) {
		t.Errorf("technician = %v", got.TechnicianID)
	}
	if !got.CreatedAt.Equal(base) || got.AssignedAt == nil || !got.AssignedAt.Equal(assigned) {
		t.Errorf("timestamps mismatch: %v %v", got.CreatedAt, got.AssignedAt)
	}

	byCode, err := store.Tickets().GetByCode(ctx, ticket.Code)
	if err != nil || byCode.ID != ticket.ID {
		t.Fatalf("get by code: %v %v", byCode, err)
	}

	got.Title = "mutated"
	again, _ := store.Tickets().GetByID(ctx, ticket.ID)
	if again.Title == "mutated" {
		t.Error("returned ticket aliases stored state")
	}

	if _, err := store.Tickets().GetByID(ctx, uuid.NewString()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing ticket err = %v", err)
	}
}

// testNumericColumns pins money to cents and rejects values past the column
// bounds, identically on every backend.
func testNumericColumns(t *testing.T, store repository.Store) {
	ctx := context.Background()
	pct := decimal.RequireFromString("33.334")
	ticket := NewTicket(1, base)
	ticket.ServiceAmount = decimal.RequireFromString("1234.565")
	ticket.CommissionPercent = &pct
	mustCreate(t, store, ticket)

	got, err := store.Tickets().GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ServiceAmount.Equal(decimal.RequireFromString("1234.57")) {
		t.Errorf("amount = %s, want 1234.57", got.ServiceAmount)
	}
	if got.CommissionPercent == nil || !got.CommissionPercent.Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("commission = %v, want 33.33", got.CommissionPercent)
	}

	payment := newPayment(ticket.ID, base)
	payment.CommissionPercent = decimal.RequireFromString("12.345")
	if err := store.Payments().Create(ctx, payment); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	stored, err := store.Payments().GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if !stored.CommissionPercent.Equal(decimal.RequireFromString("12.35")) {
		t.Errorf("payment commission = %s, want 12.35", stored.CommissionPercent)
	}

	tooBig := NewTicket(2, base)
	tooBig.ServiceAmount = decimal.RequireFromString("9999999999.995")
	if err := store.Tickets().Create(ctx, tooBig); !errors.Is(err, repository.ErrOutOfRange) {
		t.Errorf("oversized amount err = %v, want ErrOutOfRange", err)
	}
	if _, err := store.Tickets().GetByID(ctx, tooBig.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("oversized ticket was stored: %v", err)
	}

	got.ServiceAmount = decimal.RequireFromString("9999999999.99")
	if err := store.Tickets().Update(ctx, got); err != nil {
		t.Fatalf("update to largest amount: %v", err)
	}
	wide := decimal.RequireFromString("1000")
	got.CommissionPercent = &wide
	if err := store.Tickets().Update(ctx, got); !errors.Is(err, repository.ErrOutOfRange) {
		t.Errorf("oversized percent err = %v, want ErrOutOfRange", err)
	}
}

func testDuplicateCode(t *testing.T, store repository.Store) {
	first := NewTicket(1, base)
	mustCreate(t, store, first)
	second := NewTicket(1, base.Add(time.Second))
	if err := store.Tickets().Create(context.Background(), second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func testListOrderingAndPaging(t *testing.T, store repository.Store) {
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		mustCreate(t, store, NewTicket(i, base.Add(time.Duration(i)*time.Minute)))
	}

	page, err := store.Tickets().List(ctx, repository.TicketFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].Title != "ticket 5" || page.Items[1].Title != "ticket 4" {
		t.Errorf("order = %s, %s", page.Items[0].Title, page.Items[1].Title)
	}

	clamped, err := store.Tickets().List(ctx, repository.TicketFilter{Page: 9, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if clamped.Page != 3 || len(clamped.Items) != 1 || clamped.Items[0].Title != "ticket 1" {
		t.Errorf("clamped page = %+v", clamped)
	}

	defaults, err := store.Tickets().List(ctx, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if defaults.Page != 1 || defaults.PageSize != repository.DefaultPageSize || len(defaults.Items) != 5 {
		t.Errorf("default page = %+v", defaults)
	}

	earlier := base.Add(-time.Hour)
	mustCreate(t, store, NewTicket(6, earlier))
	mustCreate(t, store, NewTicket(7, earlier))
	all, _ := store.Tickets().List(ctx, repository.TicketFilter{PageSize: 100})
	last := all.Items[len(all.Items)-2:]
	if last[0].ID < last[1].ID {
		t.Errorf("equal created_at must order by id descending: %s before %s", last[0].ID, last[1].ID)
	}
}

func testListFilters(t *testing.T, store repository.Store) {
	ctx := context.Background()
	tech := uuid.NewString()

	a := NewTicket(1, base)
	a.Title = "Printer jam"
	a.TechnicianID = &tech
	b := NewTicket(2, base.Add(time.Minute))
	b.Status = domain.TicketStatusStarted
	b.Priority = domain.TicketPriorityUrgent
	b.ClientName = "Globex 100%_off"
	c := NewTicket(3, base.Add(2*time.Minute))
	c.Kind = domain.TicketKindProject
	c.Code = "PRY-2025-0001"
	c.Description = "Fiber PRINTER rollout"
	for _, ticket := range []*domain.Ticket{a, b, c} {
		mustCreate(t, store, ticket)
	}

	cases := []struct {
		name   string
		filter repository.TicketFilter
		want   []string
	}{
		{"status", repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusStarted}}, []string{b.ID}},
		{"priority", repository.TicketFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityMedium}}, []string{c.ID, a.ID}},
		{"kind", repository.TicketFilter{Kind: ptr(domain.TicketKindProject)}, []string{c.ID}},
		{"technician", repository.TicketFilter{TechnicianID: &tech}, []string{a.ID}},
		{"search is case-insensitive across fields", repository.TicketFilter{Search: "  printer "}, []string{c.ID, a.ID}},
		{"search matches code", repository.TicketFilter{Search: "pry-2025"}, []string{c.ID}},
		{"search treats wildcards literally", repository.TicketFilter{Search: "100%_"}, []string{b.ID}},
		{"no match", repository.TicketFilter{Search: "nothing"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := store.Tickets().List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.Total != len(tc.want) || len(page.Items) != len(tc.want) {
				t.Fatalf("got %d items, want %d", len(page.Items), len(tc.want))
			}
			for i, id := range tc.want {
				if page.Items[i].ID != id {
					t.Errorf("item %d = %s, want %s", i, page.Items[i].ID, id)
				}
			}
		})
	}
}

func testUpdateIfStatus(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ticket := NewTicket(1, base)
	mustCreate(t, store, ticket)

	started := base.Add(time.Hour)
	next := ticket.Clone()
	next.Status = domain.TicketStatusStarted
	next.StartedAt = &started
	next.UpdatedAt = started
	if err := store.Tickets().UpdateIfStatus(ctx, next, domain.TicketStatusAssigned); err != nil {
		t.Fatalf("guarded update: %v", err)
	}

	stale := ticket.Clone()
	stale.Status = domain.TicketStatusCancelled
	err := store.Tickets().UpdateIfStatus(ctx, stale, domain.TicketStatusAssigned)
	if !errors.Is(err, repository.ErrStaleStatus) {
		t.Fatalf("err = %v, want ErrStaleStatus", err)
	}
	got, _ := store.Tickets().GetByID(ctx, ticket.ID)
	if got.Status != domain.TicketStatusStarted || got.StartedAt == nil {
		t.Errorf("stale write leaked: %+v", got)
	}

	missing := NewTicket(2, base)
	if err := store.Tickets().UpdateIfStatus(ctx, missing, domain.TicketStatusAssigned); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if err := store.Tickets().Update(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing update err = %v", err)
	}
}

func testDeleteCascades(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ticket := NewTicket(1, base)
	mustCreate(t, store, ticket)
	if err := store.History().Append(ctx, historyEntry(ticket.ID, domain.ChangeKindCreated, base)); err != nil {
		t.Fatalf("append: %v", err)
	}
	payment := newPayment(ticket.ID, base)
	if err := store.Payments().Create(ctx, payment); err != nil {
		t.Fatalf("payment: %v", err)
	}

	if err := store.Tickets().Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Tickets().GetByID(ctx, ticket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("ticket still present: %v", err)
	}
	if n, _ := store.History().CountByTicket(ctx, ticket.ID); n != 0 {
		t.Errorf("history count = %d", n)
	}
	if _, err := store.Payments().GetByID(ctx, payment.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("payment still present: %v", err)
	}
	if err := store.Tickets().Delete(ctx, ticket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func testHistoryOrder(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ticket := NewTicket(1, base)
	mustCreate(t, store, ticket)
	kinds := []domain.ChangeKind{domain.ChangeKindCreated, domain.ChangeKindStatusChanged, domain.ChangeKindFieldEdited}
	for _, kind := range kinds {
		// Same timestamp on purpose: insertion order must still hold.
		if err := store.History().Append(ctx, historyEntry(ticket.ID, kind, base)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries, err := store.History().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != len(kinds) {
		t.Fatalf("got %d entries", len(entries))
	}
	for i, kind := range kinds {
		if entries[i].Kind != kind {
			t.Errorf("entry %d kind = %s, want %s", i, entries[i].Kind, kind)
		}
	}
	if entries[2].Field == nil || *entries[2].Field != "title" {
		t.Errorf("field = %v", entries[2].Field)
	}
	if n, _ := store.History().CountByTicket(ctx, ticket.ID); n != 3 {
		t.Errorf("count = %d", n)
	}
	if err := store.History().Append(ctx, historyEntry(uuid.NewString(), domain.ChangeKindCreated, base)); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("orphan entry err = %v", err)
	}
}

func testPaymentPerTicket(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ticket := NewTicket(1, base)
	mustCreate(t, store, ticket)
	payment := newPayment(ticket.ID, base)
	if err := store.Payments().Create(ctx, payment); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Payments().Create(ctx, newPayment(ticket.ID, base)); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second payment err = %v", err)
	}

	got, err := store.Payments().GetByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != payment.ID || !got.AmountOwed.Equal(decimal.RequireFromString("50")) {
		t.Errorf("payment = %+v", got)
	}

	paidAt := base.Add(24 * time.Hour)
	method := domain.PaymentMethodTransfer
	ref := "TRX-1"
	payer := uuid.NewString()
	got.Status = domain.PaymentStatusPaid
	got.Method = &method
	got.Reference = &ref
	got.PaidBy = &payer
	got.PaidAt = &paidAt
	if err := store.Payments().Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	paid, _ := store.Payments().GetByID(ctx, payment.ID)
	if paid.Status != domain.PaymentStatusPaid || paid.Method == nil || *paid.Method != method ||
		paid.Reference == nil || *paid.Reference != ref || paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Errorf("paid payment = %+v", paid)
	}

	if _, err := store.Payments().GetByTicket(ctx, uuid.NewString()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func testPaymentList(t *testing.T, store repository.Store) {
	ctx := context.Background()
	techA := uuid.NewString()
	var ids []string
	for i := 1; i <= 3; i++ {
		ticket := NewTicket(i, base)
		mustCreate(t, store, ticket)
		p := newPayment(ticket.ID, base.Add(time.Duration(i)*time.Hour))
		if i < 3 {
			p.TechnicianID = techA
		}
		if i == 1 {
			p.Status = domain.PaymentStatusPaid
		}
		if err := store.Payments().Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, p.ID)
	}

	all, err := store.Payments().List(ctx, repository.PaymentFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Total != 3 || all.Items[0].ID != ids[2] || all.Items[2].ID != ids[0] {
		t.Errorf("all payments = %+v", all)
	}

	mine, _ := store.Payments().List(ctx, repository.PaymentFilter{TechnicianID: &techA})
	if mine.Total != 2 {
		t.Errorf("technician filter total = %d", mine.Total)
	}
	pending, _ := store.Payments().List(ctx, repository.PaymentFilter{Statuses: []domain.PaymentStatus{domain.PaymentStatusPending}})
	if pending.Total != 2 {
		t.Errorf("pending total = %d", pending.Total)
	}
	from := base.Add(2 * time.Hour)
	to := base.Add(2 * time.Hour)
	window, _ := store.Payments().List(ctx, repository.PaymentFilter{From: &from, To: &to})
	if window.Total != 1 || window.Items[0].ID != ids[1] {
		t.Errorf("date window = %+v", window)
	}
}

func testUsers(t *testing.T, store repository.Store) {
	ctx := context.Background()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         "Ana Torres",
		Email:        "Ana@Example.com",
		PasswordHash: "hash",
		Role:         domain.RoleTechnician,
		Active:       true,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.Users().GetByEmail(ctx, "ana@EXAMPLE.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != user.ID || got.Email != "ana@example.com" {
		t.Errorf("user = %+v", got)
	}

	dup := *user
	dup.ID = uuid.NewString()
	if err := store.Users().Create(ctx, &dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate email err = %v", err)
	}

	manager := &domain.User{
		ID: uuid.NewString(), Name: "Luis", Email: "luis@example.com", PasswordHash: "hash",
		Role: domain.RoleManager, Active: true, CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	}
	if err := store.Users().Create(ctx, manager); err != nil {
		t.Fatalf("create manager: %v", err)
	}
	role := domain.RoleTechnician
	techs, _ := store.Users().List(ctx, &role)
	if len(techs) != 1 || techs[0].ID != user.ID {
		t.Errorf("technicians = %+v", techs)
	}
	everyone, _ := store.Users().List(ctx, nil)
	if len(everyone) != 2 || everyone[0].ID != user.ID {
		t.Errorf("users = %+v", everyone)
	}

	got.Active = false
	got.UpdatedAt = base.Add(time.Hour)
	if err := store.Users().Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := store.Users().GetByID(ctx, user.ID)
	if reloaded.Active {
		t.Error("user should be inactive")
	}
}

func testSequences(t *testing.T, store repository.Store) {
	ctx := context.Background()
	seq := store.Sequences()
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
	if got, _ := seq.Next(ctx, domain.TicketKindService, 2026); got != 1 {
		t.Errorf("new year sequence = %d, want 1", got)
	}
}

func testWithinTxRollback(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ticket := NewTicket(1, base)
	mustCreate(t, store, ticket)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		next := ticket.Clone()
		next.Status = domain.TicketStatusStarted
		if err := tx.Tickets().UpdateIfStatus(ctx, next, domain.TicketStatusAssigned); err != nil {
			return err
		}
		if err := tx.History().Append(ctx, historyEntry(ticket.ID, domain.ChangeKindStatusChanged, base)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	got, _ := store.Tickets().GetByID(ctx, ticket.ID)
	if got.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %s after rollback", got.Status)
	}
	if n, _ := store.History().CountByTicket(ctx, ticket.ID); n != 0 {
		t.Errorf("history count = %d after rollback", n)
	}
}

func testWithinTxCommit(t *testing.T, store repository.Store) {
	ctx := context.Background()
	ticket := NewTicket(1, base)
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return tx.WithinTx(ctx, func(ctx context.Context, inner repository.Store) error {
			return inner.History().Append(ctx, historyEntry(ticket.ID, domain.ChangeKindCreated, base))
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if n, _ := store.History().CountByTicket(ctx, ticket.ID); n != 1 {
		t.Errorf("history count = %d", n)
	}
}

func historyEntry(ticketID string, kind domain.ChangeKind, at time.Time) *domain.ChangeHistoryEntry {
	entry := &domain.ChangeHistoryEntry{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		ActorID:   uuid.NewString(),
		Kind:      kind,
		CreatedAt: at,
	}
	if kind == domain.ChangeKindFieldEdited {
		entry.Field = ptr("title")
		entry.OldValue = ptr("old")
		entry.NewValue = ptr("new")
	}
	return entry
}

func newPayment(ticketID string, enabled time.Time) *domain.TechnicianPayment {
	amount := decimal.RequireFromString("100.00")
	return &domain.TechnicianPayment{
		ID:                uuid.NewString(),
		TicketID:          ticketID,
		TechnicianID:      uuid.NewString(),
		ServiceAmount:     amount,
		CommissionPercent: domain.DefaultCommissionPercent,
		AmountOwed:        domain.ComputeAmountOwed(amount, domain.DefaultCommissionPercent),
		Status:            domain.PaymentStatusPending,
		EnabledAt:         enabled,
	}
}

func ptr[T any](v T) *T { return &v }
