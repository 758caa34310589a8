// Package narrative describes reported matches as short battle reports.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/mauv0809/strategium/internal/league"
)

// Fallback is attached to a match when no narrative could be generated.
const Fallback = "The warp storms interfere with our communications. Narrative unavailable."

// Request carries a completed match and both of its players.
type Request struct {
	Match      league.Match
	Player1    league.Player
	Player2    league.Player
	Highlights string
}

// Generator writes a narrative for a match.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Outcome returns the winner and loser names of the match. A draw names
// no one on either side.
func (r Request) Outcome() (winner, loser string) {
	switch {
	case r.Match.WinnerID == nil:
		return "No one (Draw)", "No one"
	case *r.Match.WinnerID == r.Player1.ID:
		return r.Player1.Name, r.Player2.Name
	case *r.Match.WinnerID == r.Player2.ID:
		return r.Player2.Name, r.Player1.Name
	default:
		return "No one (Draw)", "No one"
	}
}

// Describe composes the context a generator writes from.
func Describe(req Request) string {
	winner, loser := req.Outcome()
	var b strings.Builder
	fmt.Fprintf(&b, "Mission: %s\n", req.Match.Mission)
	fmt.Fprintf(&b, "Attacker: %s (%s)\n", req.Player1.Name, req.Player1.Faction)
	fmt.Fprintf(&b, "Defender: %s (%s)\n", req.Player2.Name, req.Player2.Faction)
	fmt.Fprintf(&b, "Winner: %s\n", winner)
	fmt.Fprintf(&b, "Loser: %s\n", loser)
	fmt.Fprintf(&b, "Score: %d - %d\n", req.Match.Player1Score, req.Match.Player2Score)
	if h := strings.TrimSpace(req.Highlights); h != "" {
		fmt.Fprintf(&b, "Key highlights: %s\n", h)
	}
	return b.String()
}

// Template writes a fixed-form report without any external service.
type Template struct{}

var _ Generator = Template{}

func (Template) Generate(_ context.Context, req Request) (string, error) {
	winner, loser := req.Outcome()
	mission := req.Match.Mission
	if mission == "" {
		mission = "an unnamed engagement"
	}
	var b strings.Builder
	if req.Match.WinnerID == nil {
		fmt.Fprintf(&b, "%s and %s fought %s to a bloody standstill, %d to %d.",
			req.Player1.Name, req.Player2.Name, mission, req.Match.Player1Score, req.Match.Player2Score)
	} else {
		high, low := req.Match.Player1Score, req.Match.Player2Score
		if low > high {
			high, low = low, high
		}
		fmt.Fprintf(&b, "%s crushed %s in %s, %d to %d.", winner, loser, mission, high, low)
	}
	if h := strings.TrimSpace(req.Highlights); h != "" {
		fmt.Fprintf(&b, " Survivors recount: %s", h)
	}
	return b.String(), nil
}

// Generate runs gen and returns Fallback when gen is nil, fails or writes
// nothing. It never returns an error.
func Generate(ctx context.Context, gen Generator, req Request) string {
	if gen == nil {
		return Fallback
	}
	text, err := gen.Generate(ctx, req)
	if err != nil || strings.TrimSpace(text) == "" {
		return Fallback
	}
	return text
}
