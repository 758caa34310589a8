package http

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/session"
	"github.com/mauv0809/strategium/internal/store"
)

// Sessions keeps one coordinator per league so every request for a league
// shares the same state and listeners.
type Sessions struct {
	newSession func() *session.Coordinator

	mu       sync.Mutex
	byLeague map[string]*sessionEntry
	// lobby serves requests that need no selected league.
	lobby *session.Coordinator
}

// sessionEntry is a league's coordinator. ready is closed once the league
// has loaded, after which c and err are fixed.
type sessionEntry struct {
	ready chan struct{}
	c     *session.Coordinator
	err   error
}

func loadedEntry(c *session.Coordinator) *sessionEntry {
	e := &sessionEntry{ready: make(chan struct{}), c: c}
	close(e.ready)
	return e
}

func (e *sessionEntry) loaded() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

func (e *sessionEntry) usable() bool {
	return e.err == nil && e.c.View().State != session.NoLeagueSelected
}

// NewSessions returns a registry creating coordinators with newSession.
func NewSessions(newSession func() *session.Coordinator) *Sessions {
	return &Sessions{
		newSession: newSession,
		byLeague:   make(map[string]*sessionEntry),
		lobby:      newSession(),
	}
}

// Get returns the coordinator of leagueID, selecting the league first when
// no request has touched it yet. Concurrent requests for a loading league
// wait for that load; other leagues are not held up.
func (s *Sessions) Get(ctx context.Context, leagueID string) (*session.Coordinator, error) {
	for {
		s.mu.Lock()
		e, ok := s.byLeague[leagueID]
		if ok && e.loaded() && !e.usable() {
			ok = false
		}
		if !ok {
			e = &sessionEntry{ready: make(chan struct{})}
			s.byLeague[leagueID] = e
			s.mu.Unlock()
			return s.load(ctx, leagueID, e)
		}
		s.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.usable() {
			return e.c, nil
		}
		// the loading request gave up; load again under this request
		if !errors.Is(e.err, context.Canceled) && !errors.Is(e.err, context.DeadlineExceeded) {
			return nil, e.err
		}
	}
}

// load selects leagueID on a new coordinator and publishes the result on e.
func (s *Sessions) load(ctx context.Context, leagueID string, e *sessionEntry) (*session.Coordinator, error) {
	c := s.newSession()
	err := c.Select(ctx, leagueID)
	if err == nil {
		err = waitActive(ctx, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(e.ready)
	if err == nil && s.byLeague[leagueID] != e {
		// forgotten while loading
		err = store.ErrLeagueNotFound
	}
	if err != nil {
		c.Close()
		e.err = err
		if s.byLeague[leagueID] == e {
			delete(s.byLeague, leagueID)
		}
		return nil, err
	}
	e.c = c
	log.Debug("Session opened", "league", leagueID)
	return c, nil
}

// waitActive blocks until c has finished loading its league.
func waitActive(ctx context.Context, c *session.Coordinator) error {
	settled := make(chan session.State, 1)
	cancel := c.OnChange(func(v session.View) {
		if v.State == session.LeagueLoading {
			return
		}
		select {
		case settled <- v.State:
		default:
		}
	})
	defer cancel()

	state := c.View().State
	if state == session.LeagueLoading {
		select {
		case state = <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if state != session.LeagueActive {
		return store.ErrLeagueNotFound
	}
	return nil
}

func (s *Sessions) Leagues(ctx context.Context) ([]league.League, error) {
	return s.lobby.Leagues(ctx)
}

// Create stores a new league and keeps its coordinator.
func (s *Sessions) Create(ctx context.Context, name, password string) (league.League, error) {
	c := s.newSession()
	l, err := c.Create(ctx, name, password)
	if err != nil {
		c.Close()
		return league.League{}, err
	}
	s.keep(l.ID, c)
	return l, nil
}

// Import creates a league from an export payload and keeps its coordinator.
func (s *Sessions) Import(ctx context.Context, payload []byte, name, password string) (league.League, error) {
	c := s.newSession()
	l, err := c.Import(ctx, payload, name, password)
	if err != nil {
		c.Close()
		return league.League{}, err
	}
	s.keep(l.ID, c)
	return l, nil
}

func (s *Sessions) keep(leagueID string, c *session.Coordinator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byLeague[leagueID]; ok && old.loaded() && old.c != nil {
		old.c.Close()
	}
	s.byLeague[leagueID] = loadedEntry(c)
}

// Forget drops the coordinator of a deleted league.
func (s *Sessions) Forget(leagueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byLeague[leagueID]
	if !ok {
		return
	}
	delete(s.byLeague, leagueID)
	if e.loaded() && e.c != nil {
		e.c.Close()
	}
}

// Close releases every coordinator. Leagues still loading are released by
// their loader.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.byLeague {
		if e.loaded() && e.c != nil {
			e.c.Close()
		}
		delete(s.byLeague, id)
	}
	s.lobby.Close()
}
