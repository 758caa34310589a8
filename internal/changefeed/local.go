package changefeed

import "context"

// Local is a Feed for clients sharing one process.
type Local struct {
	hub *hub
}

var _ Feed = (*Local)(nil)

func NewLocal() *Local {
	return &Local{hub: newHub()}
}

func (l *Local) Publish(_ context.Context, event Event) error {
	l.hub.notify(event.Collection)
	return nil
}

func (l *Local) Subscribe(collection string, fn func()) func() {
	return l.hub.subscribe(collection, fn)
}

func (l *Local) Close() error {
	l.hub.close()
	return nil
}
