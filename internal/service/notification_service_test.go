package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fieldops/fieldservice/internal/config"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
)

func TestNotificationsFollowCommittedChanges(t *testing.T) {
	h := newHarness(t)
	core, logs := observer.New(zapcore.DebugLevel)
	notifier := NewNotificationService(h.dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "https://hooks.example.com/tickets",
	})
	notifier.RegisterHandlers()

	ticket := h.newTicket("100")
	h.complete(ticket.ID)

	if n := logs.FilterMessage("TicketCreated").Len(); n != 1 {
		t.Errorf("TicketCreated logs = %d", n)
	}
	if n := logs.FilterMessage("TicketStatusChanged").Len(); n != 3 {
		t.Errorf("TicketStatusChanged logs = %d", n)
	}
	payment := logs.FilterMessage("TechnicianPayment").All()
	if len(payment) != 1 || payment[0].ContextMap()["event_type"] != string(events.EventPaymentDerived) {
		t.Errorf("payment logs = %+v", payment)
	}
	if n := logs.FilterMessage("sendWebhookNotificationStub").Len(); n != 4 {
		t.Errorf("webhook stubs = %d, want created + 3 status changes", n)
	}

	// A rejected change publishes nothing.
	before := logs.Len()
	if _, err := h.tickets.ChangeStatus(context.Background(), h.tech, ticket.ID, domain.TicketStatusInProgress, StatusChangeExtra{}); err == nil {
		t.Fatal("expected rejection")
	}
	if logs.Len() != before {
		t.Errorf("rejected change produced %d log entries", logs.Len()-before)
	}
}

func TestNotificationStubsNeedEndpoints(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewNotificationService(nil, zap.New(core), config.NotificationConfig{})
	n.RegisterHandlers()
	err := n.Handle(context.Background(), events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: "t-1",
		Actor:    events.Actor{ID: "u-1", Role: domain.RoleCoordinator},
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if logs.Len() != 1 || logs.All()[0].Message != "TicketAssigned" {
		t.Errorf("logs = %+v", logs.All())
	}
}
