package changefeed

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/strategium/internal/pubsub"
)

// Remote is a Feed shared by independently connected clients. Events are
// published on a Pub/Sub topic and every client drains its own subscription
// of that topic, so each client observes every other client's writes.
type Remote struct {
	hub    *hub
	client pubsub.PubSubClient
	topic  string
	origin string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Feed = (*Remote)(nil)

// NewRemote returns the feed and starts pulling from subscription. With an
// empty subscription nothing is pulled and events arrive through Deliver,
// for example from a push subscription endpoint.
func NewRemote(client pubsub.PubSubClient, topic, subscription string) *Remote {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Remote{
		hub:    newHub(),
		client: client,
		topic:  topic,
		origin: uuid.NewString(),
		cancel: cancel,
	}
	if subscription == "" {
		return r
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := client.Receive(ctx, subscription, r.Deliver); err != nil {
			log.Error("Change feed receiver stopped", "error", err, "subscription", subscription)
		}
	}()
	return r
}

// Deliver hands a received message to local subscribers. Events this feed
// published itself and foreign event types are ignored.
func (r *Remote) Deliver(eventType pubsub.EventType, data []byte) {
	if eventType != pubsub.EventCollectionChanged {
		log.Debug("Ignoring unexpected event", "event", eventType)
		return
	}
	var event Event
	if err := r.client.ProcessMessage(data, &event); err != nil {
		log.Warn("Dropping undecodable change event", "error", err)
		return
	}
	if event.Origin == r.origin {
		// already delivered locally on publish
		return
	}
	log.Debug("Received change event", "collection", event.Collection, "op", event.Op, "document", event.DocumentID)
	r.hub.notify(event.Collection)
}

// Publish notifies local subscribers at once and then broadcasts the event.
func (r *Remote) Publish(ctx context.Context, event Event) error {
	event.Origin = r.origin
	r.hub.notify(event.Collection)
	return r.client.SendMessage(ctx, r.topic, pubsub.EventCollectionChanged, event)
}

func (r *Remote) Subscribe(collection string, fn func()) func() {
	return r.hub.subscribe(collection, fn)
}

// Close stops the receiver and every subscription.
func (r *Remote) Close() error {
	r.cancel()
	r.wg.Wait()
	r.hub.close()
	return nil
}
