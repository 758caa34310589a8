package store

import (
	"context"

	"github.com/mauv0809/strategium/internal/league"
)

// Store holds the operations both backends expose.
type Store interface {
	GetLeagues(ctx context.Context) ([]league.League, error)
	GetLeague(ctx context.Context, leagueID string) (league.League, error)
	// CreateLeague stores a league with default settings.
	CreateLeague(ctx context.Context, name, password string) (league.League, error)
	GetSettings(ctx context.Context, leagueID string) (league.Settings, error)
	UpdateSettings(ctx context.Context, leagueID string, settings league.Settings) error
	// DeleteLeague removes the league and, best effort, its scoped data. The
	// removal is not atomic.
	DeleteLeague(ctx context.Context, leagueID string) error
}

// SnapshotStore is the local backend: whole collections are read and
// replaced synchronously and nobody is notified of changes.
type SnapshotStore interface {
	Store
	GetPlayers(ctx context.Context, leagueID string) ([]league.Player, error)
	SavePlayers(ctx context.Context, leagueID string, players []league.Player) error
	GetMatches(ctx context.Context, leagueID string) ([]league.Match, error)
	SaveMatches(ctx context.Context, leagueID string, matches []league.Match) error
	GetPairings(ctx context.Context, leagueID string) ([]league.Pairing, error)
	SavePairings(ctx context.Context, leagueID string, pairings []league.Pairing) error
	ExportLeagueData(ctx context.Context, leagueID string) ([]byte, error)
	ImportLeagueData(ctx context.Context, payload []byte, name, password string) (league.League, error)
}

// LiveStore is the remote backend: independent record writes plus
// subscriptions that push the full current collection on every change made
// by any client. Calling the returned func ends a subscription.
type LiveStore interface {
	Store
	SubscribeToSettings(ctx context.Context, leagueID string, fn func(league.Settings)) (func(), error)
	SubscribeToPlayers(ctx context.Context, leagueID string, fn func([]league.Player)) (func(), error)
	SubscribeToMatches(ctx context.Context, leagueID string, fn func([]league.Match)) (func(), error)
	SubscribeToPairings(ctx context.Context, leagueID string, fn func([]league.Pairing)) (func(), error)
	AddPlayer(ctx context.Context, leagueID string, player league.Player) (league.Player, error)
	UpdatePlayer(ctx context.Context, leagueID, playerID string, update PlayerUpdate) error
	RemovePlayer(ctx context.Context, leagueID, playerID string) error
	AddMatch(ctx context.Context, leagueID string, match league.Match) error
	AddPairing(ctx context.Context, leagueID string, pairing league.Pairing) error
	UpdatePairing(ctx context.Context, leagueID, pairingID string, update PairingUpdate) error
}

// PlayerUpdate lists the player fields a caller may change directly. The
// match-derived counters are deliberately absent.
type PlayerUpdate struct {
	Name           *string
	Faction        *league.Faction
	PaintingPoints *int
}

func (u PlayerUpdate) fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Faction != nil {
		fields["faction"] = *u.Faction
	}
	if u.PaintingPoints != nil {
		fields["paintingPoints"] = *u.PaintingPoints
	}
	return fields
}

// PairingUpdate lists the mutable pairing fields.
type PairingUpdate struct {
	Mission   *string
	Completed *bool
}

func (u PairingUpdate) fields() map[string]any {
	fields := map[string]any{}
	if u.Mission != nil {
		fields["mission"] = *u.Mission
	}
	if u.Completed != nil {
		fields["completed"] = *u.Completed
	}
	return fields
}

// leagueRecord is the persisted form of a league without its id.
type leagueRecord struct {
	Name     string          `json:"name"`
	Password string          `json:"password,omitempty"`
	Settings league.Settings `json:"settings"`
}

func (r leagueRecord) league(id string) league.League {
	return league.League{ID: id, Name: r.Name, Password: r.Password, Settings: r.Settings}
}
