package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if !errorutil.HasCode(err, code) {
		t.Fatalf("err = %v, want %s", err, code)
	}
}

func TestScenarioACoordinatorCreatesTechnicianCompletes(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("1250.00")
	if ticket.Code != "TKT-2026-0001" {
		t.Fatalf("code = %s", ticket.Code)
	}
	if ticket.Status != domain.TicketStatusAssigned || ticket.AssignedAt == nil {
		t.Fatalf("new ticket = %+v", ticket)
	}

	res := h.complete(ticket.ID)

	got := h.reload(ticket.ID)
	if got.Status != domain.TicketStatusCompleted || got.CompletedAt == nil || got.Solution != "Replaced DVR" {
		t.Fatalf("final ticket = %+v", got)
	}
	if got.StartedAt == nil || !got.StartedAt.Before(*got.CompletedAt) {
		t.Errorf("timestamps: started=%v completed=%v", got.StartedAt, got.CompletedAt)
	}
	if res.Payment == nil {
		t.Fatal("completion should derive a payment")
	}
	payment, err := h.store.Payments().GetByTicket(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending || payment.TechnicianID != h.tech.ID {
		t.Errorf("payment = %+v", payment)
	}
	if !payment.AmountOwed.Equal(decimal.RequireFromString("625")) {
		t.Errorf("amount owed = %s, want 625.00", payment.AmountOwed)
	}
	if payment.Method != nil || payment.Reference != nil || payment.PaidAt != nil {
		t.Errorf("new payment must not carry settlement data: %+v", payment)
	}
	if n := h.historyCount(ticket.ID); n != 4 {
		t.Errorf("history entries = %d, want 4", n)
	}

	entries, _ := h.tickets.History(context.Background(), h.tech, ticket.ID)
	wantKinds := []domain.ChangeKind{
		domain.ChangeKindCreated,
		domain.ChangeKindStatusChanged,
		domain.ChangeKindStatusChanged,
		domain.ChangeKindStatusChanged,
	}
	for i, kind := range wantKinds {
		if entries[i].Kind != kind {
			t.Errorf("entry %d kind = %s, want %s", i, entries[i].Kind, kind)
		}
	}
	if *entries[3].OldValue != "in_progress" || *entries[3].NewValue != "completed" || entries[3].ActorID != h.tech.ID {
		t.Errorf("last entry = %+v", entries[3])
	}
	if len(h.eventsOf(events.EventPaymentDerived)) != 1 || len(h.eventsOf(events.EventTicketStatusChanged)) != 3 {
		t.Errorf("events = %+v", h.published)
	}
}

func TestScenarioBTechnicianCannotReverse(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("400")
	h.complete(ticket.ID)
	before := h.historyCount(ticket.ID)

	_, err := h.tickets.ChangeStatus(context.Background(), h.tech, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeInvalidTransition)
	de := errorutil.ToDomainError(err)
	if de.Details["from"] != "completed" || de.Details["to"] != "in_progress" {
		t.Errorf("details = %v", de.Details)
	}

	if got := h.reload(ticket.ID); got.Status != domain.TicketStatusCompleted || got.CompletedAt == nil {
		t.Errorf("ticket changed: %+v", got)
	}
	if n := h.historyCount(ticket.ID); n != before {
		t.Errorf("history grew from %d to %d", before, n)
	}
}

func TestScenarioCManagerReversesCompletion(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("400")
	h.complete(ticket.ID)
	before := h.historyCount(ticket.ID)

	res := h.move(h.manager, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{Note: "client reported fault"})

	got := h.reload(ticket.ID)
	if got.Status != domain.TicketStatusInProgress || got.CompletedAt != nil {
		t.Fatalf("ticket = %+v", got)
	}
	if n := h.historyCount(ticket.ID); n != before+1 {
		t.Errorf("history = %d, want %d", n, before+1)
	}
	entries, _ := h.tickets.History(context.Background(), h.manager, ticket.ID)
	last := entries[len(entries)-1]
	if last.Note == nil || *last.Note != "client reported fault" || last.ActorID != h.manager.ID {
		t.Errorf("last entry = %+v", last)
	}
	if res.Payment == nil || res.Payment.Status != domain.PaymentStatusVoided || res.Payment.VoidedAt == nil {
		t.Errorf("payment after reversal = %+v", res.Payment)
	}
	if len(h.eventsOf(events.EventPaymentVoided)) != 1 {
		t.Error("expected payment_voided event")
	}
}

func TestScenarioDCompletionRequiresSolution(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("400")
	h.move(h.tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	h.move(h.tech, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	before := h.historyCount(ticket.ID)

	for _, solution := range []string{"", "   \t"} {
		_, err := h.tickets.ChangeStatus(context.Background(), h.tech, ticket.ID, domain.TicketStatusCompleted,
			StatusChangeExtra{Solution: solution, MaterialsUsed: "cable"})
		wantCode(t, err, errorutil.CodeValidationFailed)
	}
	got := h.reload(ticket.ID)
	if got.Status != domain.TicketStatusInProgress || got.CompletedAt != nil || got.MaterialsUsed != "" {
		t.Errorf("ticket changed: %+v", got)
	}
	if n := h.historyCount(ticket.ID); n != before {
		t.Errorf("history grew to %d", n)
	}
	if _, err := h.store.Payments().GetByTicket(context.Background(), ticket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("payment created: %v", err)
	}
}

func TestTransitionMatrix(t *testing.T) {
	for _, privileged := range []bool{false, true} {
		for _, from := range domain.AllTicketStatuses {
			for _, to := range domain.AllTicketStatuses {
				name := string(from) + "->" + string(to)
				if privileged {
					name = "manager/" + name
				} else {
					name = "technician/" + name
				}
				t.Run(name, func(t *testing.T) {
					h := newHarness(t)
					ticket := h.newTicket("100")
					forceStatus(t, h, ticket.ID, from)

					actor := h.tech
					if privileged {
						actor = h.manager
					}
					before := h.historyCount(ticket.ID)
					_, err := h.tickets.ChangeStatus(context.Background(), actor, ticket.ID, to, StatusChangeExtra{Solution: "done"})

					want := domain.IsForward(from, to) || (privileged && domain.IsReverse(from, to))
					if want && err != nil {
						t.Fatalf("expected success, got %v", err)
					}
					if !want {
						wantCode(t, err, errorutil.CodeInvalidTransition)
					}

					got := h.reload(ticket.ID)
					if !got.Status.Valid() {
						t.Fatalf("invalid status %q", got.Status)
					}
					if (got.CompletedAt != nil) != (got.Status == domain.TicketStatusCompleted) {
						t.Errorf("completed_at=%v with status %s", got.CompletedAt, got.Status)
					}
					wantHistory := before
					if want {
						wantHistory++
					}
					if n := h.historyCount(ticket.ID); n != wantHistory {
						t.Errorf("history = %d, want %d", n, wantHistory)
					}
				})
			}
		}
	}
}

// forceStatus writes a status directly, keeping the completed_at invariant.
func forceStatus(t *testing.T, h *harness, ticketID string, status domain.TicketStatus) {
	t.Helper()
	ticket := h.reload(ticketID)
	ticket.Status = status
	ticket.CompletedAt = nil
	if status == domain.TicketStatusCompleted {
		at := h.clock.t
		ticket.CompletedAt = &at
		ticket.Solution = "done"
	}
	if err := h.store.Tickets().Update(context.Background(), ticket); err != nil {
		t.Fatalf("force status: %v", err)
	}
}

func TestStartedAtIsNotOverwritten(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("100")
	h.move(h.tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	first := *h.reload(ticket.ID).StartedAt

	h.move(h.manager, ticket.ID, domain.TicketStatusAssigned, StatusChangeExtra{})
	h.move(h.tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	if got := h.reload(ticket.ID).StartedAt; got == nil || !got.Equal(first) {
		t.Errorf("started_at = %v, want %v", got, first)
	}
}

func TestCompletionMergesWorkFields(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("100")
	h.move(h.tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	h.move(h.tech, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	h.move(h.tech, ticket.ID, domain.TicketStatusCompleted, StatusChangeExtra{
		Solution:      " Rewired panel ",
		MaterialsUsed: "2x breaker",
		TimeWorked:    "3h",
		Observations:  "",
	})
	got := h.reload(ticket.ID)
	if got.Solution != "Rewired panel" || got.MaterialsUsed != "2x breaker" || got.TimeWorked != "3h" || got.Observations != "" {
		t.Errorf("work fields = %+v", got)
	}
}

func TestChangeStatusGuards(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("100")
	ctx := context.Background()

	_, err := h.tickets.ChangeStatus(ctx, nil, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeUnauthenticated)

	_, err = h.tickets.ChangeStatus(ctx, h.coordinator, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeForbidden)

	_, err = h.tickets.ChangeStatus(ctx, h.otherTech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeNotFound)

	_, err = h.tickets.ChangeStatus(ctx, h.tech, "missing", domain.TicketStatusStarted, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeNotFound)

	_, err = h.tickets.ChangeStatus(ctx, h.tech, ticket.ID, domain.TicketStatus("archived"), StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeValidationFailed)

	if n := h.historyCount(ticket.ID); n != 1 {
		t.Errorf("history = %d after rejected calls", n)
	}
}

func TestLeavingAssignedRequiresTechnician(t *testing.T) {
	h := newHarness(t)
	ticket, err := h.tickets.Create(context.Background(), h.coordinator, CreateTicketInput{
		Kind:  domain.TicketKindProject,
		Title: "Network rollout",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Code != "PRY-2026-0001" || ticket.AssignedAt != nil {
		t.Fatalf("ticket = %+v", ticket)
	}
	for _, to := range []domain.TicketStatus{domain.TicketStatusStarted, domain.TicketStatusCancelled} {
		_, err = h.tickets.ChangeStatus(context.Background(), h.manager, ticket.ID, to, StatusChangeExtra{})
		wantCode(t, err, errorutil.CodeValidationFailed)
	}
}

type staleTickets struct{ repository.TicketRepository }

func (staleTickets) UpdateIfStatus(context.Context, *domain.Ticket, domain.TicketStatus) error {
	return repository.ErrStaleStatus
}

type failingHistory struct{ repository.HistoryRepository }

func (failingHistory) Append(context.Context, *domain.ChangeHistoryEntry) error {
	return errors.New("disk full")
}

// faultyStore injects repository failures inside transactions.
type faultyStore struct {
	repository.Store
	staleUpdates bool
	failHistory  bool
}

func (s faultyStore) Tickets() repository.TicketRepository {
	if s.staleUpdates {
		return staleTickets{s.Store.Tickets()}
	}
	return s.Store.Tickets()
}

func (s faultyStore) History() repository.HistoryRepository {
	if s.failHistory {
		return failingHistory{s.Store.History()}
	}
	return s.Store.History()
}

func (s faultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, faultyStore{Store: tx, staleUpdates: s.staleUpdates, failHistory: s.failHistory})
	})
}

func TestLostRaceIsInvalidTransition(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("100")
	h.tickets.store = faultyStore{Store: h.store, staleUpdates: true}

	_, err := h.tickets.ChangeStatus(context.Background(), h.tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeInvalidTransition)
	if n := h.historyCount(ticket.ID); n != 1 {
		t.Errorf("history = %d after lost race", n)
	}
}

func TestFailedHistoryRollsBackTransition(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("100")
	h.move(h.tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	h.move(h.tech, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	h.tickets.store = faultyStore{Store: h.store, failHistory: true}
	published := len(h.published)

	_, err := h.tickets.ChangeStatus(context.Background(), h.tech, ticket.ID, domain.TicketStatusCompleted, StatusChangeExtra{Solution: "ok"})
	if err == nil || errorutil.ToDomainError(err).Code != errorutil.CodeInternal {
		t.Fatalf("err = %v, want internal failure", err)
	}
	if got := h.reload(ticket.ID); got.Status != domain.TicketStatusInProgress || got.CompletedAt != nil {
		t.Errorf("ticket write leaked: %+v", got)
	}
	if _, err := h.store.Payments().GetByTicket(context.Background(), ticket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("payment leaked: %v", err)
	}
	if len(h.published) != published {
		t.Error("events published for a rolled back change")
	}
}

func TestCreateAllocatesCodesPerKindAndYear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	create := func(kind domain.TicketKind) string {
		ticket, err := h.tickets.Create(ctx, h.coordinator, CreateTicketInput{Kind: kind, Title: "x"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return ticket.Code
	}
	got := []string{
		create(domain.TicketKindService),
		create(domain.TicketKindService),
		create(domain.TicketKindProject),
	}
	h.clock.t = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	got = append(got, create(domain.TicketKindService))

	want := []string{"TKT-2026-0001", "TKT-2026-0002", "PRY-2026-0001", "TKT-2027-0001"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("code %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	neg := decimal.RequireFromString("-1")
	over := decimal.RequireFromString("101")
	thousandths := decimal.RequireFromString("33.334")
	huge := decimal.RequireFromString("10000000000")
	roundsUp := decimal.RequireFromString("9999999999.995")
	manager := h.manager.ID
	cases := []struct {
		name  string
		actor *domain.Actor
		input CreateTicketInput
		code  string
	}{
		{"unauthenticated", nil, CreateTicketInput{Kind: domain.TicketKindService, Title: "x"}, errorutil.CodeUnauthenticated},
		{"technician cannot create", h.tech, CreateTicketInput{Kind: domain.TicketKindService, Title: "x"}, errorutil.CodeForbidden},
		{"unknown kind", h.coordinator, CreateTicketInput{Kind: "repair", Title: "x"}, errorutil.CodeValidationFailed},
		{"blank title", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "  "}, errorutil.CodeValidationFailed},
		{"negative amount", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", ServiceAmount: neg}, errorutil.CodeValidationFailed},
		{"percent over 100", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", CommissionPercent: &over}, errorutil.CodeValidationFailed},
		{"percent with three decimals", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", CommissionPercent: &thousandths}, errorutil.CodeValidationFailed},
		{"amount at limit", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", ServiceAmount: huge}, errorutil.CodeValidationFailed},
		{"amount rounding to limit", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", ServiceAmount: roundsUp}, errorutil.CodeValidationFailed},
		{"assignee not a technician", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", TechnicianID: &manager}, errorutil.CodeValidationFailed},
		{"bad priority", h.coordinator, CreateTicketInput{Kind: domain.TicketKindService, Title: "x", Priority: "asap"}, errorutil.CodeValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.tickets.Create(ctx, tc.actor, tc.input)
			wantCode(t, err, tc.code)
		})
	}
	page, _ := h.tickets.List(ctx, h.manager, TicketListFilter{})
	if page.Total != 0 {
		t.Errorf("rejected creates left %d tickets", page.Total)
	}
	// A rejected create must not burn a sequence number.
	ticket := h.newTicket("1")
	if ticket.Code != "TKT-2026-0001" {
		t.Errorf("code = %s", ticket.Code)
	}
}

func TestMoneyMatchesStoredPrecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	largest := decimal.RequireFromString("9999999999.99")
	big, err := h.tickets.Create(ctx, h.coordinator, CreateTicketInput{
		Kind: domain.TicketKindService, Title: "Campus wiring", ServiceAmount: largest,
	})
	if err != nil {
		t.Fatalf("create largest amount: %v", err)
	}
	if !big.ServiceAmount.Equal(largest) {
		t.Errorf("amount = %s", big.ServiceAmount)
	}

	ticket := h.newTicket("1000")
	sub := decimal.RequireFromString("33.334")
	_, err = h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{CommissionPercent: &sub})
	wantCode(t, err, errorutil.CodeValidationFailed)
	huge := decimal.RequireFromString("10000000000")
	_, err = h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{ServiceAmount: &huge})
	wantCode(t, err, errorutil.CodeValidationFailed)

	pct := decimal.RequireFromString("33.33")
	if _, err := h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{CommissionPercent: &pct}); err != nil {
		t.Fatalf("update percent: %v", err)
	}
	res := h.complete(ticket.ID)
	if !res.Payment.AmountOwed.Equal(decimal.RequireFromString("333.30")) {
		t.Errorf("owed = %s, want 333.30", res.Payment.AmountOwed)
	}
}

func TestTechnicianScope(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.newTicket("100")
	otherID := h.otherTech.ID
	theirs, err := h.tickets.Create(ctx, h.coordinator, CreateTicketInput{
		Kind: domain.TicketKindService, Title: "Other job", TechnicianID: &otherID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := h.tickets.Get(ctx, h.tech, mine.ID); err != nil {
		t.Errorf("own ticket: %v", err)
	}
	_, err = h.tickets.Get(ctx, h.tech, theirs.ID)
	wantCode(t, err, errorutil.CodeNotFound)
	_, err = h.tickets.History(ctx, h.tech, theirs.ID)
	wantCode(t, err, errorutil.CodeNotFound)

	page, err := h.tickets.List(ctx, h.tech, TicketListFilter{TechnicianID: &otherID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != mine.ID {
		t.Errorf("technician list = %+v", page.Items)
	}

	all, _ := h.tickets.List(ctx, h.coordinator, TicketListFilter{})
	if all.Total != 2 {
		t.Errorf("coordinator sees %d tickets", all.Total)
	}
}

func TestListValidatesFilters(t *testing.T) {
	h := newHarness(t)
	_, err := h.tickets.List(context.Background(), h.manager, TicketListFilter{Statuses: []domain.TicketStatus{"open"}})
	wantCode(t, err, errorutil.CodeValidationFailed)
	_, err = h.tickets.List(context.Background(), nil, TicketListFilter{})
	wantCode(t, err, errorutil.CodeUnauthenticated)
}

func TestUpdateRecordsFieldEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket("100")

	title := "Install CCTV (6 cameras)"
	same := "Hotel Sol"
	high := domain.TicketPriorityHigh
	got, err := h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{
		Title:      &title,
		ClientName: &same,
		Priority:   &high,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != title || got.Priority != high || got.Status != domain.TicketStatusAssigned {
		t.Errorf("ticket = %+v", got)
	}
	entries, _ := h.tickets.History(ctx, h.manager, ticket.ID)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want created + 2 edits", len(entries))
	}
	fields := map[string]bool{}
	for _, e := range entries[1:] {
		if e.Kind != domain.ChangeKindFieldEdited {
			t.Errorf("kind = %s", e.Kind)
		}
		fields[*e.Field] = true
	}
	if !fields["title"] || !fields["priority"] || fields["client_name"] {
		t.Errorf("edited fields = %v", fields)
	}

	if _, err := h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{Title: &title}); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	if n := h.historyCount(ticket.ID); n != 3 {
		t.Errorf("no-op update recorded history: %d", n)
	}
}

func TestUpdatePermissions(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket("100")
	title := "new"
	for _, actor := range []*domain.Actor{h.coordinator, h.tech} {
		_, err := h.tickets.Update(context.Background(), actor, ticket.ID, UpdateTicketInput{Title: &title})
		wantCode(t, err, errorutil.CodeForbidden)
	}
	blank := " "
	_, err := h.tickets.Update(context.Background(), h.manager, ticket.ID, UpdateTicketInput{Title: &blank})
	wantCode(t, err, errorutil.CodeValidationFailed)
}

func TestUpdateAmountRepricesPendingPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket("100")
	h.complete(ticket.ID)

	amount := decimal.RequireFromString("333.33")
	if _, err := h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{ServiceAmount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	payment, _ := h.store.Payments().GetByTicket(ctx, ticket.ID)
	if !payment.AmountOwed.Equal(decimal.RequireFromString("166.67")) || !payment.ServiceAmount.Equal(amount) {
		t.Errorf("payment = %s of %s", payment.AmountOwed, payment.ServiceAmount)
	}

	if _, err := h.payments.Process(ctx, h.manager, payment.ID, domain.PaymentMethodCash, ""); err != nil {
		t.Fatalf("process: %v", err)
	}
	more := decimal.RequireFromString("500")
	_, err := h.tickets.Update(ctx, h.manager, ticket.ID, UpdateTicketInput{ServiceAmount: &more})
	wantCode(t, err, errorutil.CodeConflict)
	if got := h.reload(ticket.ID); !got.ServiceAmount.Equal(amount) {
		t.Errorf("amount changed to %s despite paid payment", got.ServiceAmount)
	}
}

func TestDeleteCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket("100")
	h.complete(ticket.ID)

	wantCode(t, h.tickets.Delete(ctx, h.coordinator, ticket.ID), errorutil.CodeForbidden)
	if err := h.tickets.Delete(ctx, h.director, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := h.tickets.Get(ctx, h.manager, ticket.ID)
	wantCode(t, err, errorutil.CodeNotFound)
	if n := h.historyCount(ticket.ID); n != 0 {
		t.Errorf("history = %d after delete", n)
	}
	if _, err := h.store.Payments().GetByTicket(ctx, ticket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("payment survived delete: %v", err)
	}
	wantCode(t, h.tickets.Delete(ctx, h.director, ticket.ID), errorutil.CodeNotFound)
}
