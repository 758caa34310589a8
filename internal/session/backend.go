package session

import (
	"context"
	"fmt"

	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/store"
)

// sink receives a league's collections. Snapshot backends deliver the whole
// bundle at once so standings are computed a single time.
type sink struct {
	settings func(league.Settings)
	players  func([]league.Player)
	matches  func([]league.Match)
	pairings func([]league.Pairing)
	bundle   func(league.Settings, league.Data)
}

// backend adapts a store to the coordinator.
type backend interface {
	store.Store
	// watch delivers the league to s, once or on every change, until stop.
	watch(ctx context.Context, leagueID string, s sink) (stop func(), err error)
	// refresh re-delivers after a local write. Push backends do nothing.
	refresh(ctx context.Context, leagueID string, s sink) error
	// storeStandings writes the recalculated players back when the backend
	// caches derived counters.
	storeStandings(ctx context.Context, leagueID string, ranked []league.Player) error

	addPlayer(ctx context.Context, leagueID string, p league.Player) error
	removePlayer(ctx context.Context, leagueID, playerID string) error
	setPaintingPoints(ctx context.Context, leagueID, playerID string, points int) error
	addPairing(ctx context.Context, leagueID string, p league.Pairing) error
	addMatch(ctx context.Context, leagueID string, m league.Match) error
	completePairing(ctx context.Context, leagueID, pairingID string) error
}

type snapshotBackend struct {
	store.SnapshotStore
}

func (b snapshotBackend) watch(ctx context.Context, leagueID string, s sink) (func(), error) {
	if err := b.refresh(ctx, leagueID, s); err != nil {
		return nil, err
	}
	return func() {}, nil
}

func (b snapshotBackend) refresh(ctx context.Context, leagueID string, s sink) error {
	settings, err := b.GetSettings(ctx, leagueID)
	if err != nil {
		return err
	}
	var data league.Data
	if data.Players, err = b.GetPlayers(ctx, leagueID); err != nil {
		return err
	}
	if data.Matches, err = b.GetMatches(ctx, leagueID); err != nil {
		return err
	}
	if data.Pairings, err = b.GetPairings(ctx, leagueID); err != nil {
		return err
	}
	s.bundle(settings, data)
	return nil
}

func (b snapshotBackend) storeStandings(ctx context.Context, leagueID string, ranked []league.Player) error {
	return b.SavePlayers(ctx, leagueID, ranked)
}

func (b snapshotBackend) addPlayer(ctx context.Context, leagueID string, p league.Player) error {
	players, err := b.GetPlayers(ctx, leagueID)
	if err != nil {
		return err
	}
	return b.SavePlayers(ctx, leagueID, append(players, p))
}

func (b snapshotBackend) removePlayer(ctx context.Context, leagueID, playerID string) error {
	players, err := b.GetPlayers(ctx, leagueID)
	if err != nil {
		return err
	}
	kept := players[:0]
	for _, p := range players {
		if p.ID != playerID {
			kept = append(kept, p)
		}
	}
	return b.SavePlayers(ctx, leagueID, kept)
}

func (b snapshotBackend) setPaintingPoints(ctx context.Context, leagueID, playerID string, points int) error {
	players, err := b.GetPlayers(ctx, leagueID)
	if err != nil {
		return err
	}
	for i := range players {
		if players[i].ID == playerID {
			players[i].PaintingPoints = points
			return b.SavePlayers(ctx, leagueID, players)
		}
	}
	return fmt.Errorf("player %s: %w", playerID, store.ErrNotFound)
}

func (b snapshotBackend) addPairing(ctx context.Context, leagueID string, p league.Pairing) error {
	pairings, err := b.GetPairings(ctx, leagueID)
	if err != nil {
		return err
	}
	return b.SavePairings(ctx, leagueID, append(pairings, p))
}

func (b snapshotBackend) addMatch(ctx context.Context, leagueID string, m league.Match) error {
	matches, err := b.GetMatches(ctx, leagueID)
	if err != nil {
		return err
	}
	for _, existing := range matches {
		if existing.ID == m.ID {
			return fmt.Errorf("match %s: %w", m.ID, store.ErrDuplicate)
		}
	}
	return b.SaveMatches(ctx, leagueID, append(matches, m))
}

func (b snapshotBackend) completePairing(ctx context.Context, leagueID, pairingID string) error {
	pairings, err := b.GetPairings(ctx, leagueID)
	if err != nil {
		return err
	}
	for i := range pairings {
		if pairings[i].ID == pairingID {
			pairings[i].Completed = true
			return b.SavePairings(ctx, leagueID, pairings)
		}
	}
	return fmt.Errorf("pairing %s: %w", pairingID, store.ErrNotFound)
}

type liveBackend struct {
	store.LiveStore
}

func (b liveBackend) watch(ctx context.Context, leagueID string, s sink) (func(), error) {
	var cancels []func()
	stop := func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
	subscribe := []func() (func(), error){
		func() (func(), error) { return b.SubscribeToSettings(ctx, leagueID, s.settings) },
		func() (func(), error) { return b.SubscribeToPlayers(ctx, leagueID, s.players) },
		func() (func(), error) { return b.SubscribeToMatches(ctx, leagueID, s.matches) },
		func() (func(), error) { return b.SubscribeToPairings(ctx, leagueID, s.pairings) },
	}
	for _, sub := range subscribe {
		cancel, err := sub()
		if err != nil {
			stop()
			return nil, err
		}
		cancels = append(cancels, cancel)
	}
	return stop, nil
}

func (liveBackend) refresh(context.Context, string, sink) error { return nil }

func (liveBackend) storeStandings(context.Context, string, []league.Player) error { return nil }

func (b liveBackend) addPlayer(ctx context.Context, leagueID string, p league.Player) error {
	_, err := b.AddPlayer(ctx, leagueID, p)
	return err
}

func (b liveBackend) removePlayer(ctx context.Context, leagueID, playerID string) error {
	return b.RemovePlayer(ctx, leagueID, playerID)
}

func (b liveBackend) setPaintingPoints(ctx context.Context, leagueID, playerID string, points int) error {
	return b.UpdatePlayer(ctx, leagueID, playerID, store.PlayerUpdate{PaintingPoints: &points})
}

func (b liveBackend) addPairing(ctx context.Context, leagueID string, p league.Pairing) error {
	return b.AddPairing(ctx, leagueID, p)
}

func (b liveBackend) addMatch(ctx context.Context, leagueID string, m league.Match) error {
	return b.AddMatch(ctx, leagueID, m)
}

func (b liveBackend) completePairing(ctx context.Context, leagueID, pairingID string) error {
	completed := true
	return b.UpdatePairing(ctx, leagueID, pairingID, store.PairingUpdate{Completed: &completed})
}
