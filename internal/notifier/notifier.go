package notifier

import (
	"context"

	"github.com/mauv0809/strategium/internal/league"
)

// Notifier defines a high-level interface for sending notifications about league events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For reported matches
	SendMatchReport(ctx context.Context, report MatchReport) error
	// For standings requests
	SendStandings(ctx context.Context, leagueName string, ranked []league.Player) error

	// For formatting responses without posting them
	FormatStandingsResponse(leagueName string, ranked []league.Player) (any, error)
}

// MatchReport is a reported match with the two players resolved.
type MatchReport struct {
	LeagueName string
	Match      league.Match
	Player1    league.Player
	Player2    league.Player
}

type contextKey string

const dryRunKey contextKey = "dryRun"

// WithDryRun marks ctx so that notifiers log messages instead of posting them.
func WithDryRun(ctx context.Context, dryRun bool) context.Context {
	return context.WithValue(ctx, dryRunKey, dryRun)
}

// IsDryRun reports whether ctx was marked with WithDryRun(ctx, true).
func IsDryRun(ctx context.Context) bool {
	dryRun, ok := ctx.Value(dryRunKey).(bool)
	return ok && dryRun
}
