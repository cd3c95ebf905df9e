package bus

import "time"

// Event is a single structured notification. Data carries a typed payload
// owned by the publishing package; subscribers assert the concrete type.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, source string, data any) Event {
	return Event{Type: typ, Source: source, Timestamp: time.Now(), Data: data}
}

// Handler consumes a delivered event. Errors are joined and returned to the
// publisher but do not stop delivery to other handlers.
type Handler func(Event) error

// Subscription is a handle for cancelling a registered handler.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// Bus is an in-memory publish/subscribe fan-out with optional topics.
// The empty topic is the default broadcast channel.
type Bus interface {
	Publish(event Event) error
	PublishToTopic(topic string, event Event) error

	Subscribe(eventType string, handler Handler) (Subscription, error)
	SubscribeTopic(topic, eventType string, handler Handler) (Subscription, error)
	Unsubscribe(sub Subscription) error
}
