package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fieldops/fieldservice/internal/config"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/service"
)

func TestWorkerDeliversQueuedEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewNotificationService(dispatcher, logger, config.NotificationConfig{})

	w := StartNotificationWorker(dispatcher, svc, logger, 4)
	for _, et := range []events.EventType{events.EventTicketCreated, events.EventPaymentProcessed} {
		if err := dispatcher.Publish(context.Background(), events.Event{Type: et, TicketID: "t-1"}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := logs.FilterField(zap.String("ticket_id", "t-1")).Len(); got != 2 {
		t.Fatalf("logged %d events, want 2", got)
	}

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("publish after stop err = %v, want ErrStopped", err)
	}
}
