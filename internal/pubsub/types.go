package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	// EventCollectionChanged is published after every committed write to a
	// league-scoped collection.
	EventCollectionChanged EventType = "collection-changed"
)

// AttributeEventType is the message attribute carrying the EventType.
const AttributeEventType = "event_type"
