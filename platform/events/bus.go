package events

import (
	"context"
	"sync"

	"nurture_backend/platform/logger"
)

// InMemoryBus is a simple in-process event bus. Handlers registered for an
// event name receive every published event of that name. Publish runs the
// handlers on their own goroutine; PublishSync runs them inline and returns
// the first handler error.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to all handlers asynchronously. Handler errors
// are logged, never surfaced to the publisher.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.EventName()]))
	copy(handlers, b.handlers[event.EventName()])
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(h Handler) {
			if err := h.Handle(context.WithoutCancel(ctx), event); err != nil && b.log != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync delivers the event inline and returns the first handler error.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.EventName()]))
	copy(handlers, b.handlers[event.EventName()])
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
