package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// completeFor creates and completes a ticket worked by tech.
func (h *harness) completeFor(tech *domain.Actor, amount string, percent *decimal.Decimal) *TransitionResult {
	h.t.Helper()
	techID := tech.ID
	ticket, err := h.tickets.Create(context.Background(), h.coordinator, CreateTicketInput{
		Kind:              domain.TicketKindService,
		Title:             "Maintenance",
		TechnicianID:      &techID,
		ServiceAmount:     decimal.RequireFromString(amount),
		CommissionPercent: percent,
	})
	if err != nil {
		h.t.Fatalf("create ticket: %v", err)
	}
	h.move(tech, ticket.ID, domain.TicketStatusStarted, StatusChangeExtra{})
	h.move(tech, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	return h.move(tech, ticket.ID, domain.TicketStatusCompleted, StatusChangeExtra{Solution: "done"})
}

func TestScenarioEProcessPaymentOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.completeFor(h.tech, "200", nil)

	paid, err := h.payments.Process(ctx, h.manager, res.Payment.ID, domain.PaymentMethodTransfer, "  TRX-991 ")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if paid.Status != domain.PaymentStatusPaid || paid.PaidAt == nil || *paid.PaidBy != h.manager.ID {
		t.Fatalf("paid = %+v", paid)
	}
	if *paid.Method != domain.PaymentMethodTransfer || *paid.Reference != "TRX-991" {
		t.Errorf("settlement = %v %v", *paid.Method, *paid.Reference)
	}

	h.clock.advance(time.Hour)
	_, err = h.payments.Process(ctx, h.director, res.Payment.ID, domain.PaymentMethodCash, "")
	wantCode(t, err, errorutil.CodeAlreadyProcessed)

	stored, _ := h.payments.Get(ctx, h.manager, res.Payment.ID)
	if *stored.Method != domain.PaymentMethodTransfer || !stored.PaidAt.Equal(*paid.PaidAt) || *stored.PaidBy != h.manager.ID {
		t.Errorf("second attempt changed the record: %+v", stored)
	}
	if n := len(h.eventsOf(events.EventPaymentProcessed)); n != 1 {
		t.Errorf("payment_processed events = %d", n)
	}
}

func TestProcessGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.completeFor(h.tech, "200", nil)

	_, err := h.payments.Process(ctx, nil, res.Payment.ID, domain.PaymentMethodCash, "")
	wantCode(t, err, errorutil.CodeUnauthenticated)
	for _, actor := range []*domain.Actor{h.tech, h.coordinator} {
		_, err = h.payments.Process(ctx, actor, res.Payment.ID, domain.PaymentMethodCash, "")
		wantCode(t, err, errorutil.CodeForbidden)
	}
	_, err = h.payments.Process(ctx, h.manager, res.Payment.ID, domain.PaymentMethod("crypto"), "")
	wantCode(t, err, errorutil.CodeValidationFailed)
	_, err = h.payments.Process(ctx, h.manager, "missing", domain.PaymentMethodCash, "")
	wantCode(t, err, errorutil.CodeNotFound)

	stored, _ := h.payments.Get(ctx, h.tech, res.Payment.ID)
	if stored.Status != domain.PaymentStatusPending {
		t.Errorf("status = %s after rejected attempts", stored.Status)
	}
}

func TestVoidedPaymentCannotBeProcessed(t *testing.T) {
	h := newHarness(t)
	res := h.completeFor(h.tech, "200", nil)
	h.move(h.manager, res.Ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})

	_, err := h.payments.Process(context.Background(), h.manager, res.Payment.ID, domain.PaymentMethodCash, "")
	wantCode(t, err, errorutil.CodeConflict)
}

func TestPaidPaymentBlocksReopen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.completeFor(h.tech, "200", nil)
	if _, err := h.payments.Process(ctx, h.manager, res.Payment.ID, domain.PaymentMethodCheck, "CHK-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
	before := h.historyCount(res.Ticket.ID)

	_, err := h.tickets.ChangeStatus(ctx, h.manager, res.Ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	wantCode(t, err, errorutil.CodeConflict)
	if got := h.reload(res.Ticket.ID); got.Status != domain.TicketStatusCompleted || got.CompletedAt == nil {
		t.Errorf("ticket reopened: %+v", got)
	}
	if n := h.historyCount(res.Ticket.ID); n != before {
		t.Errorf("history = %d, want %d", n, before)
	}
}

func TestRecompletionReactivatesVoidedPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.completeFor(h.tech, "200", nil)
	original := res.Payment

	h.move(h.manager, res.Ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	amount := decimal.RequireFromString("300")
	if _, err := h.tickets.Update(ctx, h.manager, res.Ticket.ID, UpdateTicketInput{ServiceAmount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	again := h.move(h.tech, res.Ticket.ID, domain.TicketStatusCompleted, StatusChangeExtra{Solution: "fixed again"})

	if again.Payment == nil || again.Payment.ID != original.ID {
		t.Fatalf("payment = %+v, want reactivated %s", again.Payment, original.ID)
	}
	if again.Payment.Status != domain.PaymentStatusPending || again.Payment.VoidedAt != nil {
		t.Errorf("reactivated payment = %+v", again.Payment)
	}
	if !again.Payment.AmountOwed.Equal(decimal.NewFromInt(150)) {
		t.Errorf("amount owed = %s, want 150", again.Payment.AmountOwed)
	}
	if !again.Payment.EnabledAt.After(original.EnabledAt) {
		t.Errorf("enabled_at not refreshed: %v", again.Payment.EnabledAt)
	}
	page, _ := h.payments.List(ctx, h.manager, PaymentListFilter{})
	if page.Total != 1 {
		t.Errorf("payments = %d, want exactly one per ticket", page.Total)
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.completeFor(h.tech, "80", nil)
	ticket := h.reload(res.Ticket.ID)

	deriver := NewPaymentDeriver(domain.DefaultCommissionPercent)
	for i := 0; i < 3; i++ {
		p, changed, err := deriver.Derive(ctx, h.store.Payments(), ticket, h.clock.t.Add(time.Hour))
		if err != nil {
			t.Fatalf("derive: %v", err)
		}
		if changed || p.ID != res.Payment.ID {
			t.Fatalf("derive %d changed=%v id=%s", i, changed, p.ID)
		}
	}

	open := h.newTicket("10")
	_, _, err := deriver.Derive(ctx, h.store.Payments(), open, h.clock.t)
	wantCode(t, err, errorutil.CodeValidationFailed)
}

func TestCommissionOverride(t *testing.T) {
	h := newHarness(t)
	pct := decimal.RequireFromString("12.5")
	res := h.completeFor(h.tech, "99.99", &pct)
	if !res.Payment.CommissionPercent.Equal(pct) {
		t.Errorf("percent = %s", res.Payment.CommissionPercent)
	}
	if !res.Payment.AmountOwed.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("amount owed = %s, want 12.50", res.Payment.AmountOwed)
	}
}

func TestParseCommissionPercent(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "50", want: "50"},
		{raw: "0", want: "0"},
		{raw: "100", want: "100"},
		{raw: "33.33", want: "33.33"},
		{raw: "33.330", want: "33.33"},
		{raw: "33.334", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "100.01", wantErr: true},
		{raw: "half", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseCommissionPercent(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseCommissionPercent(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil || !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("ParseCommissionPercent(%q) = %s, %v", tc.raw, got, err)
		}
	}
}

func TestPaymentVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.completeFor(h.tech, "100", nil)
	theirs := h.completeFor(h.otherTech, "100", nil)

	page, err := h.payments.List(ctx, h.tech, PaymentListFilter{TechnicianID: &h.otherTech.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != mine.Payment.ID {
		t.Errorf("technician sees %+v", page.Items)
	}
	_, err = h.payments.Get(ctx, h.tech, theirs.Payment.ID)
	wantCode(t, err, errorutil.CodeNotFound)

	all, _ := h.payments.List(ctx, h.manager, PaymentListFilter{})
	if all.Total != 2 {
		t.Errorf("manager sees %d payments", all.Total)
	}
	_, err = h.payments.List(ctx, h.coordinator, PaymentListFilter{})
	wantCode(t, err, errorutil.CodeForbidden)
	_, err = h.payments.List(ctx, h.manager, PaymentListFilter{Statuses: []domain.PaymentStatus{"owed"}})
	wantCode(t, err, errorutil.CodeValidationFailed)
}

func TestPayrollReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ten := decimal.NewFromInt(10)

	paid := h.completeFor(h.tech, "100", nil)
	h.completeFor(h.tech, "40", nil)
	h.completeFor(h.otherTech, "300", &ten)
	voided := h.completeFor(h.otherTech, "1000", nil)
	h.move(h.manager, voided.Ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{})
	if _, err := h.payments.Process(ctx, h.manager, paid.Payment.ID, domain.PaymentMethodDeposit, ""); err != nil {
		t.Fatalf("process: %v", err)
	}

	report, err := h.payments.Report(ctx, h.manager, nil, nil, nil)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Lines) != 2 {
		t.Fatalf("lines = %+v", report.Lines)
	}
	olga, tomas := report.Lines[0], report.Lines[1]
	if olga.TechnicianName != "Olga Tech" || olga.PendingCount != 1 || !olga.PendingAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("olga = %+v", olga)
	}
	if tomas.TechnicianName != "Tomas Tech" || tomas.PaidCount != 1 || !tomas.PaidAmount.Equal(decimal.NewFromInt(50)) ||
		tomas.PendingCount != 1 || !tomas.PendingAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("tomas = %+v", tomas)
	}
	if !report.TotalPending.Equal(decimal.NewFromInt(50)) || !report.TotalPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("totals pending=%s paid=%s", report.TotalPending, report.TotalPaid)
	}

	own, err := h.payments.Report(ctx, h.tech, nil, nil, nil)
	if err != nil {
		t.Fatalf("technician report: %v", err)
	}
	if len(own.Lines) != 1 || own.Lines[0].TechnicianID != h.tech.ID {
		t.Errorf("technician report = %+v", own.Lines)
	}

	future := h.clock.t.Add(24 * time.Hour)
	empty, _ := h.payments.Report(ctx, h.manager, nil, &future, nil)
	if len(empty.Lines) != 0 || !empty.TotalPending.IsZero() {
		t.Errorf("windowed report = %+v", empty)
	}
}
