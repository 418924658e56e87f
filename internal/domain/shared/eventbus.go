package shared

import "context"

// EventHandler consumes domain events delivered by the bus
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types this handler wants. An empty slice
	// subscribes the handler to every event.
	EventTypes() []string
}

// EventPublisher is the write side of the bus; application services depend
// on this interface only
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers and removes handlers
type EventSubscriber interface {
	// Subscribe registers a handler. With no explicit types the handler's
	// own EventTypes decide what it receives.
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the full publish/subscribe contract with lifecycle control
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
