package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/service"
)

// ErrStopped is returned when an event arrives after Stop.
var ErrStopped = errors.New("notification worker stopped")

// NotificationWorker moves notification delivery off the request path: the
// dispatcher enqueues events and one goroutine feeds them to the service.
type NotificationWorker struct {
	svc    *service.NotificationService
	logger *zap.Logger
	queue  chan events.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewNotificationWorker builds a worker with a queue of the given capacity.
func NewNotificationWorker(svc *service.NotificationService, logger *zap.Logger, buffer int) *NotificationWorker {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		svc:    svc,
		logger: logger,
		queue:  make(chan events.Event, buffer),
		done:   make(chan struct{}),
	}
}

// StartNotificationWorker subscribes the worker to every event type and
// starts its delivery loop.
func StartNotificationWorker(dispatcher events.Dispatcher, svc *service.NotificationService, logger *zap.Logger, buffer int) *NotificationWorker {
	w := NewNotificationWorker(svc, logger, buffer)
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.Enqueue)
	}
	go w.loop()
	return w
}

// Enqueue hands event to the worker, blocking while the queue is full.
func (w *NotificationWorker) Enqueue(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrStopped
	}
	select {
	case w.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new events and waits until queued ones are delivered.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *NotificationWorker) loop() {
	defer close(w.done)
	for event := range w.queue {
		if err := w.svc.Handle(context.Background(), event); err != nil {
			w.logger.Warn("notification delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}
