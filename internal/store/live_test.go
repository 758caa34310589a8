package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/strategium/internal/changefeed"
	"github.com/mauv0809/strategium/internal/database"
	"github.com/mauv0809/strategium/internal/docstore"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func setupLive(t *testing.T) *Live {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	feed := changefeed.NewLocal()
	t.Cleanup(func() { feed.Close() })

	return NewLive(docstore.NewSQL(db, database.DialectSQLite), feed)
}

// recorder keeps every value pushed to a subscription.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) last() (T, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.values) == 0 {
		return zero, 0
	}
	return r.values[len(r.values)-1], len(r.values)
}

func TestLive_NotConfigured(t *testing.T) {
	ctx := context.Background()
	s := NewLive(nil, nil)

	_, err := s.GetLeagues(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.SubscribeToPlayers(ctx, "x", func([]league.Player) {})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, s.AddMatch(ctx, "x", league.Match{}), ErrNotConfigured)
}

func TestLive_Leagues(t *testing.T) {
	ctx := context.Background()
	s := setupLive(t)

	b, err := s.CreateLeague(ctx, "Beta", "")
	require.NoError(t, err)
	a, err := s.CreateLeague(ctx, "Alpha", "pw")
	require.NoError(t, err)

	leagues, err := s.GetLeagues(ctx)
	require.NoError(t, err)
	require.Len(t, leagues, 2)
	assert.Equal(t, a.ID, leagues[0].ID)
	assert.Equal(t, b.ID, leagues[1].ID)

	got, err := s.GetLeague(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "pw", got.Password)
	assert.Equal(t, 1, got.Settings.CurrentWeek)

	require.NoError(t, s.UpdateSettings(ctx, a.ID, got.Settings.AdvanceWeek()))
	settings, err := s.GetSettings(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, settings.CurrentWeek)

	assert.ErrorIs(t, s.UpdateSettings(ctx, "missing", settings), ErrLeagueNotFound)
	_, err = s.GetLeague(ctx, "missing")
	assert.ErrorIs(t, err, ErrLeagueNotFound)
}

func TestLive_Records(t *testing.T) {
	ctx := context.Background()
	s := setupLive(t)
	l, err := s.CreateLeague(ctx, "Crusade", "")
	require.NoError(t, err)

	dirty := league.NewPlayer("elsewhere", "Gorksmash", league.FactionOrks)
	dirty.Wins = 4
	dirty.TotalPoints = 40
	dirty.PaintingPoints = 30
	p, err := s.AddPlayer(ctx, l.ID, dirty)
	require.NoError(t, err)
	assert.Equal(t, l.ID, p.LeagueID)
	assert.Zero(t, p.Wins, "counters are derived and never stored from input")
	assert.Equal(t, 30, p.PaintingPoints)

	points := 35
	require.NoError(t, s.UpdatePlayer(ctx, l.ID, p.ID, PlayerUpdate{PaintingPoints: &points}))
	players, err := s.players(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, 35, players[0].PaintingPoints)
	assert.Equal(t, "Gorksmash", players[0].Name, "partial updates keep other fields")

	assert.ErrorIs(t, s.UpdatePlayer(ctx, l.ID, "missing", PlayerUpdate{PaintingPoints: &points}), ErrNotFound)

	pairing := league.Pairing{ID: "pair-1", Player1ID: p.ID, Player2ID: "x", Week: 1}
	require.NoError(t, s.AddPairing(ctx, l.ID, pairing))
	completed := true
	require.NoError(t, s.UpdatePairing(ctx, l.ID, "pair-1", PairingUpdate{Completed: &completed}))
	pairings, err := s.pairings(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, pairings, 1)
	assert.True(t, pairings[0].Completed)
	assert.Equal(t, l.ID, pairings[0].LeagueID)

	match := league.Match{ID: "match-1", Player1ID: p.ID, Player2ID: "x", Player1Score: 10, Player2Score: 5, Week: 1}
	require.NoError(t, s.AddMatch(ctx, l.ID, match))
	matches, err := s.matches(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "match-1", matches[0].ID, "matches are keyed by their own id")

	replay := match
	replay.Player1Score = 0
	assert.ErrorIs(t, s.AddMatch(ctx, l.ID, replay), ErrDuplicate)
	matches, err = s.matches(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 10, matches[0].Player1Score, "a stored match is never replaced")

	require.NoError(t, s.RemovePlayer(ctx, l.ID, p.ID))
	require.NoError(t, s.RemovePlayer(ctx, l.ID, p.ID), "removing twice is a no-op")

	require.NoError(t, s.DeleteLeague(ctx, l.ID))
	_, err = s.GetLeague(ctx, l.ID)
	assert.ErrorIs(t, err, ErrLeagueNotFound)
	assert.ErrorIs(t, s.DeleteLeague(ctx, l.ID), ErrLeagueNotFound)
	matches, err = s.matches(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLive_Subscriptions(t *testing.T) {
	ctx := context.Background()
	s := setupLive(t)
	l, err := s.CreateLeague(ctx, "Crusade", "")
	require.NoError(t, err)
	_, err = s.AddPlayer(ctx, l.ID, league.NewPlayer(l.ID, "Valerius", league.FactionSpaceMarines))
	require.NoError(t, err)

	var players recorder[[]league.Player]
	var settings recorder[league.Settings]
	cancelPlayers, err := s.SubscribeToPlayers(ctx, l.ID, players.push)
	require.NoError(t, err)
	cancelSettings, err := s.SubscribeToSettings(ctx, l.ID, settings.push)
	require.NoError(t, err)
	defer cancelSettings()

	current, n := players.last()
	require.Equal(t, 1, n, "the current collection is delivered immediately")
	assert.Len(t, current, 1)

	_, err = s.AddPlayer(ctx, l.ID, league.NewPlayer(l.ID, "Xanthek", league.FactionNecrons))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		current, _ := players.last()
		return len(current) == 2
	}, waitFor, tick)

	require.NoError(t, s.UpdateSettings(ctx, l.ID, l.Settings.AdvanceWeek()))
	assert.Eventually(t, func() bool {
		current, _ := settings.last()
		return current.CurrentWeek == 2
	}, waitFor, tick)

	cancelPlayers()
	_, before := players.last()
	_, err = s.AddPlayer(ctx, l.ID, league.NewPlayer(l.ID, "Gorksmash", league.FactionOrks))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, after := players.last()
	assert.Equal(t, before, after, "no deliveries after unsubscribe")
}

func TestLive_SubscriptionsAreScopedToTheirLeague(t *testing.T) {
	ctx := context.Background()
	s := setupLive(t)
	a, err := s.CreateLeague(ctx, "A", "")
	require.NoError(t, err)
	b, err := s.CreateLeague(ctx, "B", "")
	require.NoError(t, err)

	var matches recorder[[]league.Match]
	cancel, err := s.SubscribeToMatches(ctx, a.ID, matches.push)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.AddMatch(ctx, b.ID, league.Match{ID: "m-b"}))
	time.Sleep(50 * time.Millisecond)
	current, n := matches.last()
	assert.Equal(t, 1, n)
	assert.Empty(t, current)
}
