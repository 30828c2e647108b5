package eventbus

// Event is any value published on the untyped bus. Plan lifecycle events
// live in core/events.
type Event = any

// EventBus is the publish/subscribe contract shared by the service
// components.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus, a TypedBus over Event.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }

var _ EventBus = (*Bus)(nil)
