package league

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultEscalationPoints is the points cap per week for new leagues.
var DefaultEscalationPoints = []int{
	500,  // Combat Patrol
	750,  // Enhanced Patrol
	1000, // Incursion
	1250, // Strike Force Light
	1500, // Strike Force
	2000, // Strike Force (tournament standard)
}

// Missions are the suggested missions offered when scheduling a pairing.
var Missions = []string{
	"Take and Hold",
	"Supply Drop",
	"Purge the Foe",
	"Land Ground",
	"The Ritual",
	"Priority Targets",
	"Sites of Power",
	"Scorched Earth",
}

const fallbackEscalationStep = 1000

var factions = []Faction{
	FactionSpaceMarines, FactionAstraMilitarum, FactionAdeptusMechanicus, FactionAdeptusCustodes,
	FactionImperialKnights, FactionChaosSpaceMarines, FactionWorldEaters, FactionThousandSons,
	FactionDeathGuard, FactionChaosDaemons, FactionChaosKnights, FactionAeldari, FactionDrukhari,
	FactionNecrons, FactionOrks, FactionTauEmpire, FactionTyranids, FactionGenestealerCults,
	FactionLeaguesOfVotann, FactionGreyKnights, FactionSistersOfBattle,
}

// Factions returns every playable faction.
func Factions() []Faction {
	out := make([]Faction, len(factions))
	copy(out, factions)
	return out
}

// ParseFaction validates a faction name.
func ParseFaction(s string) (Faction, error) {
	for _, f := range factions {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFaction, s)
}

// NewID returns a collision resistant identifier for any league entity.
func NewID() string {
	return uuid.NewString()
}

// DefaultSettings returns the settings a freshly created league starts with.
func DefaultSettings(name string, now time.Time) Settings {
	points := make([]int, len(DefaultEscalationPoints))
	copy(points, DefaultEscalationPoints)
	return Settings{
		Name:             name,
		StartDate:        now.UTC().Format(time.RFC3339),
		CurrentWeek:      1,
		EscalationPoints: points,
	}
}

// Validate checks the settings invariants.
func (s Settings) Validate() error {
	if s.CurrentWeek < 1 {
		return fmt.Errorf("%w: current week must be at least 1, got %d", ErrInvalidSettings, s.CurrentWeek)
	}
	if len(s.EscalationPoints) == 0 {
		return fmt.Errorf("%w: at least one escalation step is required", ErrInvalidSettings)
	}
	return nil
}

// PointsLimit returns the army points cap for the given week. Weeks past the
// end of the escalation list keep the last cap.
func (s Settings) PointsLimit(week int) int {
	if len(s.EscalationPoints) == 0 {
		return fallbackEscalationStep
	}
	if week < 1 {
		week = 1
	}
	if week > len(s.EscalationPoints) {
		return s.EscalationPoints[len(s.EscalationPoints)-1]
	}
	return s.EscalationPoints[week-1]
}

// AddEscalationStep appends a week repeating the last cap.
func (s Settings) AddEscalationStep() Settings {
	last := fallbackEscalationStep
	if n := len(s.EscalationPoints); n > 0 {
		last = s.EscalationPoints[n-1]
	}
	s.EscalationPoints = append(append([]int(nil), s.EscalationPoints...), last)
	return s
}

// RemoveEscalationStep drops the last week; the list never shrinks below one entry.
func (s Settings) RemoveEscalationStep() Settings {
	if len(s.EscalationPoints) <= 1 {
		return s
	}
	s.EscalationPoints = append([]int(nil), s.EscalationPoints[:len(s.EscalationPoints)-1]...)
	return s
}

func (s Settings) AdvanceWeek() Settings {
	s.CurrentWeek++
	return s
}

func (s Settings) PreviousWeek() Settings {
	if s.CurrentWeek > 1 {
		s.CurrentWeek--
	}
	return s
}

// CheckPassword reports whether the attempt opens the league. This is a UI
// convenience, not an access control check.
func (l League) CheckPassword(attempt string) bool {
	return l.Password == "" || l.Password == attempt
}

// NewPlayer creates a roster entry with all counters at zero.
func NewPlayer(leagueID, name string, faction Faction) Player {
	return Player{
		ID:       NewID(),
		LeagueID: leagueID,
		Name:     name,
		Faction:  faction,
	}
}

// StripDerived returns the player with every match-derived counter cleared.
func (p Player) StripDerived() Player {
	p.GamesPlayed = 0
	p.Wins = 0
	p.Losses = 0
	p.Draws = 0
	p.GamingPoints = 0
	p.TotalPoints = 0
	return p
}

// WinnerFor applies the winner rule: the higher score wins, equal scores draw.
func WinnerFor(player1ID, player2ID string, player1Score, player2Score int) *string {
	switch {
	case player1Score > player2Score:
		return &player1ID
	case player2Score > player1Score:
		return &player2ID
	default:
		return nil
	}
}

// IsDraw reports whether the match ended without a winner.
func (m Match) IsDraw() bool {
	return m.WinnerID == nil
}

// Connects reports whether the pairing links the two players in either order.
func (p Pairing) Connects(a, b string) bool {
	return (p.Player1ID == a && p.Player2ID == b) || (p.Player1ID == b && p.Player2ID == a)
}

// WithLeague rewrites every embedded league id to leagueID.
func (d Data) WithLeague(leagueID string) Data {
	out := Data{
		Players:  make([]Player, len(d.Players)),
		Matches:  make([]Match, len(d.Matches)),
		Pairings: make([]Pairing, len(d.Pairings)),
	}
	for i, p := range d.Players {
		p.LeagueID = leagueID
		out.Players[i] = p
	}
	for i, m := range d.Matches {
		m.LeagueID = leagueID
		out.Matches[i] = m
	}
	for i, p := range d.Pairings {
		p.LeagueID = leagueID
		out.Pairings[i] = p
	}
	return out
}
