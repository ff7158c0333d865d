package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// Clock returns the current instant. Stored timestamps are UTC and truncated
// to microseconds so both stores round-trip them exactly.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c().UTC().Truncate(time.Microsecond)
}

func requireActor(actor *domain.Actor) error {
	if actor == nil || actor.ID == "" {
		return errorutil.NewUnauthenticated("authentication required")
	}
	return nil
}

// translate maps repository sentinels onto domain errors and wraps anything
// else as an infrastructure failure.
func translate(err error, resource, op string) error {
	if err == nil {
		return nil
	}
	var domainErr *errorutil.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return errorutil.NewConflict(fmt.Sprintf("%s already exists", resource), nil)
	case errors.Is(err, repository.ErrStaleStatus):
		return errorutil.NewConflict(fmt.Sprintf("%s changed concurrently", resource), nil)
	case errors.Is(err, repository.ErrOutOfRange):
		return errorutil.NewValidationError(fmt.Sprintf("%s has an amount out of range", resource), nil)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, evts ...events.Event) {
	if dispatcher == nil {
		return
	}
	for _, event := range evts {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = SystemClock()
		}
		if err := dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

func paymentEvent(kind events.EventType, actor *domain.Actor, p *domain.TechnicianPayment, at time.Time) events.Event {
	return events.Event{
		Type:      kind,
		TicketID:  p.TicketID,
		Actor:     events.ActorOf(actor),
		Timestamp: at,
		Payload: events.PaymentPayload{
			PaymentID:    p.ID,
			TechnicianID: p.TechnicianID,
			AmountOwed:   p.AmountOwed.StringFixed(2),
			Status:       p.Status,
		},
	}
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
