package changefeed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mauv0809/strategium/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	feed := NewLocal()
	defer feed.Close()

	var players, matches atomic.Int32
	cancelPlayers := feed.Subscribe("leagues/a/players", func() { players.Add(1) })
	feed.Subscribe("leagues/a/matches", func() { matches.Add(1) })

	require.NoError(t, feed.Publish(ctx, Event{Collection: "leagues/a/players", Op: OpAdd}))
	assert.Eventually(t, func() bool { return players.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int32(0), matches.Load(), "other collections are not notified")

	cancelPlayers()
	require.NoError(t, feed.Publish(ctx, Event{Collection: "leagues/a/players", Op: OpAdd}))
	require.NoError(t, feed.Publish(ctx, Event{Collection: "leagues/a/matches", Op: OpAdd}))
	assert.Eventually(t, func() bool { return matches.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int32(1), players.Load(), "cancelled subscriptions receive nothing")
}

func TestLocal_CallbacksDoNotOverlap(t *testing.T) {
	feed := NewLocal()
	defer feed.Close()

	var running, overlaps, calls atomic.Int32
	feed.Subscribe("c", func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(time.Millisecond)
		calls.Add(1)
		running.Add(-1)
	})
	for i := 0; i < 50; i++ {
		require.NoError(t, feed.Publish(context.Background(), Event{Collection: "c"}))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 && running.Load() == 0 }, waitFor, tick)
	assert.Equal(t, int32(0), overlaps.Load())
}

func TestLocal_SubscribeAfterClose(t *testing.T) {
	feed := NewLocal()
	require.NoError(t, feed.Close())
	cancel := feed.Subscribe("c", func() { t.Error("closed feed must not deliver") })
	cancel()
	require.NoError(t, feed.Publish(context.Background(), Event{Collection: "c"}))
}

func TestRemote_DeliversAcrossClients(t *testing.T) {
	broker := pubsub.NewBroker()
	clientA := pubsub.NewMock(broker)
	clientB := pubsub.NewMock(broker)

	feedA := NewRemote(clientA, "league-changes", "client-a")
	defer feedA.Close()
	feedB := NewRemote(clientB, "league-changes", "client-b")
	defer feedB.Close()
	require.Eventually(t, func() bool { return broker.Receivers() == 2 }, waitFor, tick)

	var seenA, seenB atomic.Int32
	feedA.Subscribe("leagues/x/matches", func() { seenA.Add(1) })
	feedB.Subscribe("leagues/x/matches", func() { seenB.Add(1) })

	require.NoError(t, feedA.Publish(context.Background(), Event{Collection: "leagues/x/matches", DocumentID: "m1", Op: OpAdd}))

	assert.Eventually(t, func() bool { return seenA.Load() == 1 && seenB.Load() == 1 }, waitFor, tick)

	sent := clientA.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "league-changes", sent[0].Topic)
	assert.Equal(t, pubsub.EventCollectionChanged, sent[0].EventType)
	event, ok := sent[0].Data.(Event)
	require.True(t, ok, "data sent to pubsub should be an Event")
	assert.Equal(t, "m1", event.DocumentID)
	assert.NotEmpty(t, event.Origin)
}

func TestRemote_IgnoresForeignEventTypes(t *testing.T) {
	client := pubsub.NewMock(nil)
	feed := NewRemote(client, "t", "s")
	defer feed.Close()

	var calls atomic.Int32
	feed.Subscribe("c", func() { calls.Add(1) })
	feed.Deliver("something-else", []byte{0x80})
	feed.Deliver(pubsub.EventCollectionChanged, []byte("not msgpack"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
