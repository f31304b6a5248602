// Package events re-exports the platform event bus for convenience.
// This allows internal modules to import events from internal/events
// while the implementation lives in platform/events.
package events

import (
	platformevents "nurture_backend/platform/events"
	"nurture_backend/platform/logger"
)

// Bus is a type alias to the platform Bus interface.
type Bus = platformevents.Bus

// Event is a type alias to the platform Event interface.
type Event = platformevents.Event

// Handler is a type alias to the platform Handler interface.
type Handler = platformevents.Handler

// HandlerFunc is a type alias to the platform HandlerFunc adapter.
type HandlerFunc = platformevents.HandlerFunc

// BaseEvent is a type alias to the platform BaseEvent.
type BaseEvent = platformevents.BaseEvent

// InMemoryBus is a type alias to the platform InMemoryBus.
type InMemoryBus = platformevents.InMemoryBus

// NewBaseEvent creates a new base event with the current timestamp.
func NewBaseEvent() BaseEvent {
	return platformevents.NewBaseEvent()
}

// NewInMemoryBus creates a new in-memory event bus.
// This is a convenience re-export from platform/events.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
