package kura

import (
	"reflect"

	"github.com/google/uuid"
)

// MaxEventTypes defines the maximum number of unique event types that can be
// registered in the EventBus.
const MaxEventTypes = 256

// EventBus provides a simple, type-safe event bus. A Nexus publishes its
// lifecycle events (EntityCreated, ComponentAdded, GroupMemberAdded, ...) on
// it, and applications may publish their own event types alongside.
//
// Publish is allocation-free. The bus is not safe for concurrent use, like
// the Nexus it is attached to.
type EventBus struct {
	eventTypeMap    map[reflect.Type]uint8
	handlers        [MaxEventTypes][]subscriber
	nextEventTypeID int
}

type subscriber struct {
	fn any
	id uuid.UUID
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler function to be called when an event of type `T`
// is published. Handlers are called in the order they were subscribed.
//
// Parameters:
//   - bus: The EventBus instance to subscribe to.
//   - handler: A function that takes a single argument of type `T`.
//
// Returns:
//   - A token that can be passed to Unsubscribe.
func Subscribe[T any](bus *EventBus, handler func(T)) uuid.UUID {
	t := reflect.TypeFor[T]()
	id := bus.getEventTypeID(t)
	token := uuid.New()
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]subscriber, 0, 4)
	}
	bus.handlers[id] = append(bus.handlers[id], subscriber{fn: handler, id: token})
	return token
}

// Unsubscribe removes the handler registered under token. It reports whether
// a handler was removed.
func Unsubscribe(bus *EventBus, token uuid.UUID) bool {
	for i := 0; i < bus.nextEventTypeID; i++ {
		hs := bus.handlers[i]
		for j, s := range hs {
			if s.id != token {
				continue
			}
			// copy so an in-flight Publish keeps iterating the old slice
			next := make([]subscriber, 0, len(hs)-1)
			next = append(next, hs[:j]...)
			next = append(next, hs[j+1:]...)
			bus.handlers[i] = next
			return true
		}
	}
	return false
}

// Publish broadcasts an event of type `T` to all registered handlers for that
// type. The handlers are called synchronously in subscription order.
//
// Parameters:
//   - bus: The EventBus instance to publish to.
//   - event: The event data of type `T` to be sent to handlers.
func Publish[T any](bus *EventBus, event T) {
	if bus.eventTypeMap == nil {
		return
	}
	t := reflect.TypeFor[T]()
	if id, ok := bus.eventTypeMap[t]; ok {
		for _, h := range bus.handlers[id] {
			h.fn.(func(T))(event)
		}
	}
}

// getEventTypeID retrieves or assigns an ID for the event type.
func (bus *EventBus) getEventTypeID(t reflect.Type) uint8 {
	if bus.eventTypeMap == nil {
		bus.eventTypeMap = make(map[reflect.Type]uint8)
	}
	if id, ok := bus.eventTypeMap[t]; ok {
		return id
	}
	if bus.nextEventTypeID >= MaxEventTypes {
		panic("kura: too many event types")
	}
	id := uint8(bus.nextEventTypeID)
	bus.nextEventTypeID++
	bus.eventTypeMap[t] = id
	return id
}
