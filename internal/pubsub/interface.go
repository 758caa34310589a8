package pubsub

import "context"

type PubSubClient interface {
	SendMessage(ctx context.Context, topic string, eventType EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
	// Receive blocks delivering every message of the subscription to fn until
	// ctx is done.
	Receive(ctx context.Context, subscription string, fn func(eventType EventType, data []byte)) error
	Close() error
}
