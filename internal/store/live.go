package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/changefeed"
	"github.com/mauv0809/strategium/internal/docstore"
	"github.com/mauv0809/strategium/internal/league"
)

const (
	leaguesCollection = "leagues"
	pushTimeout       = 10 * time.Second
)

func leaguePath(leagueID string) string   { return leaguesCollection + "/" + leagueID }
func playersPath(leagueID string) string  { return leaguePath(leagueID) + "/players" }
func matchesPath(leagueID string) string  { return leaguePath(leagueID) + "/matches" }
func pairingsPath(leagueID string) string { return leaguePath(leagueID) + "/pairings" }

// Live is the remote backend. Records are documents in a shared store and
// every committed write is announced on the change feed.
type Live struct {
	docs docstore.Client
	feed changefeed.Feed
	now  func() time.Time
}

var _ LiveStore = (*Live)(nil)

// NewLive returns a live store. When either dependency is nil every
// operation fails with ErrNotConfigured.
func NewLive(docs docstore.Client, feed changefeed.Feed) *Live {
	return &Live{docs: docs, feed: feed, now: time.Now}
}

func (s *Live) ready() error {
	if s == nil || s.docs == nil || s.feed == nil {
		return ErrNotConfigured
	}
	return nil
}

// announce publishes a change for each path. The write has already been
// committed, so a failed publish only leaves other clients stale.
func (s *Live) announce(ctx context.Context, op changefeed.Op, documentID string, paths ...string) {
	for _, path := range paths {
		event := changefeed.Event{Collection: path, DocumentID: documentID, Op: op}
		if err := s.feed.Publish(ctx, event); err != nil {
			log.Warn("Failed to publish change", "collection", path, "document", documentID, "error", err)
		}
	}
}

func mapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func (s *Live) GetLeagues(ctx context.Context) ([]league.League, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	docs, err := s.docs.List(ctx, leaguesCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	index := make(map[string]leagueRecord, len(docs))
	for _, doc := range docs {
		var record leagueRecord
		if err := json.Unmarshal(doc.Data, &record); err != nil {
			log.Warn("Skipping malformed league document", "league", doc.ID, "error", err)
			continue
		}
		index[doc.ID] = record
	}
	return sortedLeagues(index), nil
}

func (s *Live) GetLeague(ctx context.Context, leagueID string) (league.League, error) {
	if err := s.ready(); err != nil {
		return league.League{}, err
	}
	doc, err := s.docs.Get(ctx, leaguesCollection, leagueID)
	if errors.Is(err, docstore.ErrNotFound) {
		return league.League{}, fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	}
	if err != nil {
		return league.League{}, fmt.Errorf("failed to get league %s: %w", leagueID, err)
	}
	var record leagueRecord
	if err := json.Unmarshal(doc.Data, &record); err != nil {
		return league.League{}, fmt.Errorf("failed to decode league %s: %w", leagueID, err)
	}
	return record.league(leagueID), nil
}

func (s *Live) CreateLeague(ctx context.Context, name, password string) (league.League, error) {
	if err := s.ready(); err != nil {
		return league.League{}, err
	}
	record := leagueRecord{Name: name, Password: password, Settings: league.DefaultSettings(name, s.now())}
	id, err := s.docs.Add(ctx, leaguesCollection, record)
	if err != nil {
		return league.League{}, fmt.Errorf("failed to create league: %w", err)
	}
	s.announce(ctx, changefeed.OpAdd, id, leaguesCollection, leaguePath(id))
	log.Info("League created", "league", id, "name", name)
	return record.league(id), nil
}

func (s *Live) GetSettings(ctx context.Context, leagueID string) (league.Settings, error) {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return league.Settings{}, err
	}
	return l.Settings, nil
}

func (s *Live) UpdateSettings(ctx context.Context, leagueID string, settings league.Settings) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.docs.Update(ctx, leaguesCollection, leagueID, map[string]any{"settings": settings})
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update settings of league %s: %w", leagueID, err)
	}
	s.announce(ctx, changefeed.OpUpdate, leagueID, leaguesCollection, leaguePath(leagueID))
	return nil
}

// DeleteLeague removes the league document, then each scoped collection.
// Collection failures are logged and returned together; the league document
// stays deleted.
func (s *Live) DeleteLeague(ctx context.Context, leagueID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.GetLeague(ctx, leagueID); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, leaguesCollection, leagueID); err != nil {
		return fmt.Errorf("failed to delete league %s: %w", leagueID, err)
	}
	s.announce(ctx, changefeed.OpDelete, leagueID, leaguesCollection, leaguePath(leagueID))

	var errs []error
	for _, path := range []string{playersPath(leagueID), matchesPath(leagueID), pairingsPath(leagueID)} {
		if err := s.docs.DeleteCollection(ctx, path); err != nil {
			log.Error("Failed to delete league collection", "collection", path, "error", err)
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", path, err))
			continue
		}
		s.announce(ctx, changefeed.OpDelete, "", path)
	}
	log.Info("League deleted", "league", leagueID)
	return errors.Join(errs...)
}

// decodeAll decodes every document, setting the id field from the document
// id. Malformed documents are skipped.
func decodeAll[T any](docs []docstore.Document, setID func(*T, string)) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			log.Warn("Skipping malformed document", "document", doc.ID, "error", err)
			continue
		}
		setID(&v, doc.ID)
		out = append(out, v)
	}
	return out
}

func (s *Live) players(ctx context.Context, leagueID string) ([]league.Player, error) {
	docs, err := s.docs.List(ctx, playersPath(leagueID))
	if err != nil {
		return nil, fmt.Errorf("failed to list players of league %s: %w", leagueID, err)
	}
	return decodeAll(docs, func(p *league.Player, id string) { p.ID = id }), nil
}

func (s *Live) matches(ctx context.Context, leagueID string) ([]league.Match, error) {
	docs, err := s.docs.List(ctx, matchesPath(leagueID))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of league %s: %w", leagueID, err)
	}
	return decodeAll(docs, func(m *league.Match, id string) { m.ID = id }), nil
}

func (s *Live) pairings(ctx context.Context, leagueID string) ([]league.Pairing, error) {
	docs, err := s.docs.List(ctx, pairingsPath(leagueID))
	if err != nil {
		return nil, fmt.Errorf("failed to list pairings of league %s: %w", leagueID, err)
	}
	return decodeAll(docs, func(p *league.Pairing, id string) { p.ID = id }), nil
}

// watch subscribes to path and pushes load's result to deliver once now and
// again after every change. Loads run one at a time, so each delivery is at
// least as recent as the one before it.
func watch[T any](ctx context.Context, feed changefeed.Feed, path string, load func(context.Context) (T, bool, error), deliver func(T)) (func(), error) {
	var mu sync.Mutex
	push := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		v, ok, err := load(ctx)
		if err != nil {
			return err
		}
		if ok {
			deliver(v)
		}
		return nil
	}

	cancel := feed.Subscribe(path, func() {
		ctx, done := context.WithTimeout(context.Background(), pushTimeout)
		defer done()
		if err := push(ctx); err != nil {
			log.Error("Failed to refresh subscription", "collection", path, "error", err)
		}
	})
	if err := push(ctx); err != nil {
		cancel()
		return nil, err
	}
	return cancel, nil
}

func found[T any](load func(context.Context, string) (T, error), leagueID string) func(context.Context) (T, bool, error) {
	return func(ctx context.Context) (T, bool, error) {
		v, err := load(ctx, leagueID)
		return v, err == nil, err
	}
}

// SubscribeToSettings pushes the league settings. Nothing is pushed while
// the league document does not exist.
func (s *Live) SubscribeToSettings(ctx context.Context, leagueID string, fn func(league.Settings)) (func(), error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) (league.Settings, bool, error) {
		settings, err := s.GetSettings(ctx, leagueID)
		if errors.Is(err, ErrLeagueNotFound) {
			return league.Settings{}, false, nil
		}
		return settings, err == nil, err
	}
	return watch(ctx, s.feed, leaguePath(leagueID), load, fn)
}

func (s *Live) SubscribeToPlayers(ctx context.Context, leagueID string, fn func([]league.Player)) (func(), error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return watch(ctx, s.feed, playersPath(leagueID), found(s.players, leagueID), fn)
}

func (s *Live) SubscribeToMatches(ctx context.Context, leagueID string, fn func([]league.Match)) (func(), error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return watch(ctx, s.feed, matchesPath(leagueID), found(s.matches, leagueID), fn)
}

func (s *Live) SubscribeToPairings(ctx context.Context, leagueID string, fn func([]league.Pairing)) (func(), error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return watch(ctx, s.feed, pairingsPath(leagueID), found(s.pairings, leagueID), fn)
}

// AddPlayer stores the player with its counters cleared. An empty id is
// replaced with a fresh one.
func (s *Live) AddPlayer(ctx context.Context, leagueID string, player league.Player) (league.Player, error) {
	if err := s.ready(); err != nil {
		return league.Player{}, err
	}
	player = player.StripDerived()
	player.LeagueID = leagueID
	if player.ID == "" {
		player.ID = league.NewID()
	}
	if err := s.docs.Set(ctx, playersPath(leagueID), player.ID, player); err != nil {
		return league.Player{}, fmt.Errorf("failed to add player to league %s: %w", leagueID, err)
	}
	s.announce(ctx, changefeed.OpAdd, player.ID, playersPath(leagueID))
	return player, nil
}

func (s *Live) UpdatePlayer(ctx context.Context, leagueID, playerID string, update PlayerUpdate) error {
	if err := s.ready(); err != nil {
		return err
	}
	fields := update.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.docs.Update(ctx, playersPath(leagueID), playerID, fields); err != nil {
		return mapNotFound(err, "failed to update player %s", playerID)
	}
	s.announce(ctx, changefeed.OpUpdate, playerID, playersPath(leagueID))
	return nil
}

// RemovePlayer deletes the player document. Removing a missing player is a
// no-op.
func (s *Live) RemovePlayer(ctx context.Context, leagueID, playerID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, playersPath(leagueID), playerID); err != nil {
		return fmt.Errorf("failed to remove player %s: %w", playerID, err)
	}
	s.announce(ctx, changefeed.OpDelete, playerID, playersPath(leagueID))
	return nil
}

// AddMatch stores the match under its own id. Matches are never replaced,
// so an id already in use fails with ErrDuplicate.
func (s *Live) AddMatch(ctx context.Context, leagueID string, match league.Match) error {
	if err := s.ready(); err != nil {
		return err
	}
	match.LeagueID = leagueID
	if match.ID == "" {
		match.ID = league.NewID()
	}
	if err := s.docs.Create(ctx, matchesPath(leagueID), match.ID, match); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return fmt.Errorf("match %s: %w", match.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to add match to league %s: %w", leagueID, err)
	}
	s.announce(ctx, changefeed.OpAdd, match.ID, matchesPath(leagueID))
	return nil
}

func (s *Live) AddPairing(ctx context.Context, leagueID string, pairing league.Pairing) error {
	if err := s.ready(); err != nil {
		return err
	}
	pairing.LeagueID = leagueID
	if pairing.ID == "" {
		pairing.ID = league.NewID()
	}
	if err := s.docs.Set(ctx, pairingsPath(leagueID), pairing.ID, pairing); err != nil {
		return fmt.Errorf("failed to add pairing to league %s: %w", leagueID, err)
	}
	s.announce(ctx, changefeed.OpAdd, pairing.ID, pairingsPath(leagueID))
	return nil
}

func (s *Live) UpdatePairing(ctx context.Context, leagueID, pairingID string, update PairingUpdate) error {
	if err := s.ready(); err != nil {
		return err
	}
	fields := update.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.docs.Update(ctx, pairingsPath(leagueID), pairingID, fields); err != nil {
		return mapNotFound(err, "failed to update pairing %s", pairingID)
	}
	s.announce(ctx, changefeed.OpUpdate, pairingID, pairingsPath(leagueID))
	return nil
}
