package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository/memory"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// harness wires the services over a memory store with a controllable clock.
type harness struct {
	t          *testing.T
	store      *memory.Store
	clock      *fixedClock
	tickets    *TicketService
	payments   *PaymentService
	dispatcher events.Dispatcher
	published  []events.Event

	coordinator *domain.Actor
	manager     *domain.Actor
	director    *domain.Actor
	tech        *domain.Actor
	otherTech   *domain.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		store:      memory.NewStore(),
		clock:      &fixedClock{t: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
		dispatcher: events.NewInMemoryDispatcher(),
	}
	for _, et := range events.AllEventTypes {
		h.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			h.published = append(h.published, e)
			return nil
		})
	}
	policy := auth.DefaultPolicy()
	h.tickets = NewTicketService(TicketDependencies{
		Store:      h.store,
		Policy:     policy,
		Deriver:    NewPaymentDeriver(domain.DefaultCommissionPercent),
		Dispatcher: h.dispatcher,
		Clock:      h.clock.now,
	})
	h.payments = NewPaymentService(PaymentDependencies{
		Store:      h.store,
		Policy:     policy,
		Dispatcher: h.dispatcher,
		Clock:      h.clock.now,
	})

	h.coordinator = h.addUser("Carla Coordinator", domain.RoleCoordinator, true)
	h.manager = h.addUser("Mario Manager", domain.RoleManager, true)
	h.director = h.addUser("Diana Director", domain.RoleDirector, true)
	h.tech = h.addUser("Tomas Tech", domain.RoleTechnician, true)
	h.otherTech = h.addUser("Olga Tech", domain.RoleTechnician, true)
	return h
}

func (h *harness) addUser(name string, role domain.Role, active bool) *domain.Actor {
	h.t.Helper()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Active:       active,
		CreatedAt:    h.clock.t,
		UpdatedAt:    h.clock.t,
	}
	if err := h.store.Users().Create(context.Background(), user); err != nil {
		h.t.Fatalf("create user: %v", err)
	}
	return user.Actor()
}

// newTicket creates a service ticket assigned to the harness technician.
func (h *harness) newTicket(amount string) *domain.Ticket {
	h.t.Helper()
	techID := h.tech.ID
	ticket, err := h.tickets.Create(context.Background(), h.coordinator, CreateTicketInput{
		Kind:          domain.TicketKindService,
		Title:         "Install CCTV",
		ClientName:    "Hotel Sol",
		TechnicianID:  &techID,
		ServiceAmount: decimal.RequireFromString(amount),
	})
	if err != nil {
		h.t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (h *harness) move(actor *domain.Actor, ticketID string, to domain.TicketStatus, extra StatusChangeExtra) *TransitionResult {
	h.t.Helper()
	h.clock.advance(time.Minute)
	res, err := h.tickets.ChangeStatus(context.Background(), actor, ticketID, to, extra)
	if err != nil {
		h.t.Fatalf("%s -> %s: %v", ticketID, to, err)
	}
	return res
}

// complete drives a fresh ticket to completed as its technician.
func (h *harness) complete(ticketID string) *TransitionResult {
	h.t.Helper()
	h.move(h.tech, ticketID, domain.TicketStatusStarted, StatusChangeExtra{})
	h.move(h.tech, ticketID, domain.TicketStatusInProgress, StatusChangeExtra{})
	return h.move(h.tech, ticketID, domain.TicketStatusCompleted, StatusChangeExtra{Solution: "Replaced DVR"})
}

func (h *harness) historyCount(ticketID string) int {
	h.t.Helper()
	n, err := h.store.History().CountByTicket(context.Background(), ticketID)
	if err != nil {
		h.t.Fatalf("count history: %v", err)
	}
	return n
}

func (h *harness) reload(ticketID string) *domain.Ticket {
	h.t.Helper()
	ticket, err := h.store.Tickets().GetByID(context.Background(), ticketID)
	if err != nil {
		h.t.Fatalf("reload: %v", err)
	}
	return ticket
}

func (h *harness) eventsOf(et events.EventType) []events.Event {
	var out []events.Event
	for _, e := range h.published {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}
