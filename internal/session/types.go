package session

import (
	"errors"
	"fmt"

	"github.com/mauv0809/strategium/internal/league"
)

// State is the coordinator's position in the league lifecycle.
type State string

const (
	NoLeagueSelected State = "no_league_selected"
	LeagueLoading    State = "league_loading"
	LeagueActive     State = "league_active"
)

var (
	// ErrInvalidAction rejects an action before anything is written.
	ErrInvalidAction = errors.New("invalid action")
	ErrNoLeague      = fmt.Errorf("%w: no active league", ErrInvalidAction)
	ErrWrongPassword = fmt.Errorf("%w: incorrect clearance code", ErrInvalidAction)
)

// MatchReport is a game result as entered by a player. PairingID is set
// when the report fulfils a scheduled pairing and becomes the match id.
type MatchReport struct {
	PairingID    string `json:"pairingId,omitempty"`
	Player1ID    string `json:"player1Id"`
	Player2ID    string `json:"player2Id"`
	Player1Score int    `json:"player1Score"`
	Player2Score int    `json:"player2Score"`
	Mission      string `json:"mission,omitempty"`
	Highlights   string `json:"highlights,omitempty"`
}

// View is a copy of the coordinator state. Players are ranked.
type View struct {
	State    State            `json:"state"`
	League   league.League    `json:"league"`
	Settings league.Settings  `json:"settings"`
	Players  []league.Player  `json:"players"`
	Matches  []league.Match   `json:"matches"`
	Pairings []league.Pairing `json:"pairings"`
}

// collection flags track which initial deliveries have arrived.
type collection uint8

const (
	settingsLoaded collection = 1 << iota
	playersLoaded
	matchesLoaded
	pairingsLoaded

	allLoaded = settingsLoaded | playersLoaded | matchesLoaded | pairingsLoaded
)
