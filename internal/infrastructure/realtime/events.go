package realtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// ForwardedEvents are pushed to the owner's open connections
var ForwardedEvents = []string{
	"mealplan.generated",
	"mealplan.meal.swapped",
	"nutrition.logged",
	"subscription.status.changed",
}

// Notifier delivers a message to one user's connections
type Notifier interface {
	SendToUser(userID uuid.UUID, msg Message)
}

// EventBus dispatches domain events to in-process handlers after the
// publishing service has committed. Handlers run synchronously in
// registration order; a failing handler does not stop the others.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewEventBus creates a bus. A non-nil notifier receives every forwarded event.
func NewEventBus(notifier Notifier, metrics *monitoring.Metrics, logger *zap.Logger) *EventBus {
	b := &EventBus{
		handlers: make(map[string][]shared.EventHandler),
		metrics:  metrics,
		logger:   logger.Named("events"),
	}
	if notifier != nil {
		for _, name := range ForwardedEvents {
			b.Register(name, Forward(notifier))
		}
	}
	return b
}

// Register adds a handler for an event name
func (b *EventBus) Register(eventName string, handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Dispatch runs every handler registered for the event
func (b *EventBus) Dispatch(event shared.DomainEvent) error {
	b.mu.RLock()
	handlers := b.handlers[event.EventName()]
	b.mu.RUnlock()

	var errs []error
	for _, handle := range handlers {
		if err := handle(event); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Publish records and dispatches events. Handler failures are logged, never
// returned, since the state change has already been saved.
func (b *EventBus) Publish(ctx context.Context, events ...shared.DomainEvent) {
	for _, event := range events {
		b.metrics.ObserveEvent(ctx, event)
		if err := b.Dispatch(event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("event", event.EventName()),
				zap.Error(err),
			)
			continue
		}
		b.logger.Debug("Event published", zap.String("event", event.EventName()))
	}
}

// Forward returns a handler that pushes owned events to their owner
func Forward(notifier Notifier) shared.EventHandler {
	return func(event shared.DomainEvent) error {
		owned, ok := event.(shared.OwnedEvent)
		if !ok {
			return fmt.Errorf("event %s has no owner", event.EventName())
		}
		notifier.SendToUser(owned.Owner(), Message{
			Type:      event.EventName(),
			Data:      event,
			Timestamp: event.OccurredAt(),
		})
		return nil
	}
}
