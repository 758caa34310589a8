// Package session coordinates one client's view of a league: it selects
// the league, keeps its collections current, recalculates standings and
// forwards user actions to the league store.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/narrative"
	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/mauv0809/strategium/internal/store"
)

// Coordinator is safe for concurrent use. Mutating actions are serialised.
type Coordinator struct {
	backend  backend
	notifier notifier.Notifier
	narrator narrative.Generator
	metrics  metrics.Metrics
	now      func() time.Time

	// writeMu serialises actions so read-modify-write backends never lose updates.
	writeMu sync.Mutex

	mu         sync.RWMutex
	state      State
	generation uint64
	loaded     collection
	stop       func()
	league     league.League
	settings   league.Settings
	rawPlayers []league.Player
	players    []league.Player
	matches    []league.Match
	pairings   []league.Pairing

	// notifyMu keeps listener calls in state order.
	notifyMu    sync.Mutex
	listenerSeq int
	listeners   map[int]func(View)
	listenersMu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier posts every reported match through n.
func WithNotifier(n notifier.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithNarrator sets the generator for match narratives.
func WithNarrator(g narrative.Generator) Option {
	return func(c *Coordinator) { c.narrator = g }
}

func WithMetrics(m metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewSnapshot returns a coordinator that reads the league once and
// re-reads it after each of its own writes.
func NewSnapshot(s store.SnapshotStore, opts ...Option) *Coordinator {
	return newCoordinator(snapshotBackend{s}, opts)
}

// NewLive returns a coordinator that follows pushed changes from every client.
func NewLive(s store.LiveStore, opts ...Option) *Coordinator {
	return newCoordinator(liveBackend{s}, opts)
}

func newCoordinator(b backend, opts []Option) *Coordinator {
	c := &Coordinator{
		backend:   b,
		metrics:   metrics.NewMock(),
		now:       time.Now,
		state:     NoLeagueSelected,
		listeners: make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View returns a copy of the current state.
func (c *Coordinator) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

func (c *Coordinator) viewLocked() View {
	return View{
		State:    c.state,
		League:   c.league,
		Settings: c.settings,
		Players:  append([]league.Player{}, c.players...),
		Matches:  append([]league.Match{}, c.matches...),
		Pairings: append([]league.Pairing{}, c.pairings...),
	}
}

// OnChange registers fn to be called with the new view after every state
// change. fn must not block. Calling the returned func removes it.
func (c *Coordinator) OnChange(fn func(View)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listenerSeq++
	id := c.listenerSeq
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// publishLocked snapshots the view and hands it to the listeners after
// releasing mu. It must be called with mu held and unlocks it.
func (c *Coordinator) publishLocked() {
	view := c.viewLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	c.listenersMu.Lock()
	fns := make([]func(View), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(view)
	}
}

// recalculateLocked refreshes the ranked players from the raw collections.
func (c *Coordinator) recalculateLocked() {
	start := time.Now()
	c.players = league.RecalculateStandings(c.rawPlayers, c.matches)
	c.metrics.IncStandingsRecalculated()
	c.metrics.ObserveRecalculationDuration(time.Since(start).Seconds())
}

// resetLocked ends the current league's subscriptions and clears its data.
// Deliveries still in flight for the old generation are dropped.
func (c *Coordinator) resetLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.generation++
	c.state = NoLeagueSelected
	c.loaded = 0
	c.league = league.League{}
	c.settings = league.Settings{}
	c.rawPlayers = nil
	c.players = nil
	c.matches = nil
	c.pairings = nil
}

// apply runs update for a delivery of generation gen.
func (c *Coordinator) apply(gen uint64, name string, loaded collection, recalculate bool, update func()) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debug("Dropping stale league update", "collection", name, "generation", gen)
		return
	}
	update()
	c.loaded |= loaded
	if recalculate {
		c.recalculateLocked()
	}
	if c.state == LeagueLoading && c.loaded == allLoaded {
		c.state = LeagueActive
		log.Info("League active", "league", c.league.ID, "players", len(c.rawPlayers), "matches", len(c.matches))
	}
	c.metrics.IncChangeEvents(name)
	c.publishLocked()
}

func (c *Coordinator) sinkFor(gen uint64) sink {
	return sink{
		settings: func(s league.Settings) {
			c.apply(gen, "settings", settingsLoaded, false, func() { c.settings = s })
		},
		players: func(p []league.Player) {
			c.apply(gen, "players", playersLoaded, true, func() { c.rawPlayers = p })
		},
		matches: func(m []league.Match) {
			c.apply(gen, "matches", matchesLoaded, true, func() { c.matches = m })
		},
		pairings: func(p []league.Pairing) {
			c.apply(gen, "pairings", pairingsLoaded, false, func() { c.pairings = p })
		},
		bundle: func(s league.Settings, d league.Data) {
			c.apply(gen, "bundle", allLoaded, true, func() {
				c.settings = s
				c.rawPlayers = d.Players
				c.matches = d.Matches
				c.pairings = d.Pairings
			})
		},
	}
}

// activate switches to l. The previous league is always released first.
func (c *Coordinator) activate(ctx context.Context, l league.League) error {
	c.mu.Lock()
	c.resetLocked()
	c.state = LeagueLoading
	c.league = l
	gen := c.generation
	c.publishLocked()

	log.Info("Loading league", "league", l.ID, "name", l.Name)
	stop, err := c.backend.watch(ctx, l.ID, c.sinkFor(gen))

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if stop != nil {
			stop()
		}
		log.Debug("League load superseded", "league", l.ID)
		return err
	}
	if err != nil {
		c.resetLocked()
		c.publishLocked()
		return c.fail("select_league", err)
	}
	c.stop = stop
	c.mu.Unlock()
	return nil
}

// fail logs and counts a store failure and returns it unchanged.
func (c *Coordinator) fail(op string, err error) error {
	log.Error("League store operation failed", "operation", op, "error", err)
	c.metrics.IncStoreErrors(op)
	return err
}

// current returns the active league and its settings.
func (c *Coordinator) current() (league.League, league.Settings, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != LeagueActive {
		return league.League{}, league.Settings{}, 0, ErrNoLeague
	}
	return c.league, c.settings, c.generation, nil
}

// afterWrite re-reads the league when the backend does not push changes.
func (c *Coordinator) afterWrite(ctx context.Context, leagueID string, gen uint64) error {
	if err := c.backend.refresh(ctx, leagueID, c.sinkFor(gen)); err != nil {
		return c.fail("refresh", err)
	}
	return nil
}

// Close releases the active league. Listeners observe the closed session as
// a final NoLeagueSelected view.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.state == NoLeagueSelected {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.publishLocked()
}
