package changefeed

import "context"

// Op is the kind of write that produced an event.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event announces that a collection changed. Subscribers re-read the whole
// collection; events carry no payload.
type Event struct {
	Collection string `msgpack:"collection"`
	DocumentID string `msgpack:"document_id"`
	Op         Op     `msgpack:"op"`
	Origin     string `msgpack:"origin"`
}

// Feed delivers change notifications for collection paths.
type Feed interface {
	// Publish announces a committed write.
	Publish(ctx context.Context, event Event) error
	// Subscribe calls fn after changes to collection until cancel is called.
	// Calls for one subscription never overlap, and bursts of changes may
	// be coalesced into one call.
	Subscribe(collection string, fn func()) (cancel func())
	Close() error
}
