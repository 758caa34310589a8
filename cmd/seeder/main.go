package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/backend"
	"github.com/mauv0809/strategium/internal/config"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/narrative"
	"github.com/mauv0809/strategium/internal/session"
	"github.com/spf13/cobra"
)

type recruit struct {
	name     string
	faction  league.Faction
	painting int
}

var demoRoster = []recruit{
	{"Inquisitor Valerius", league.FactionSpaceMarines, 15},
	{"Warboss Gorksmash", league.FactionOrks, 30},
	{"Overlord Xanthek", league.FactionNecrons, 10},
}

var (
	leagueName string
	password   string
	withMatch  bool
)

var rootCmd = &cobra.Command{
	Use:          "strategium-seeder",
	Short:        "Seed a demo league",
	SilenceUsage: true,
	Long: `Creates a league with a demo roster in the configured league store,
optionally with an opening match and an open pairing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return seed(cmd.Context(), config.Load())
	},
}

func init() {
	rootCmd.Flags().StringVar(&leagueName, "name", "Demo Crusade", "Name of the seeded league")
	rootCmd.Flags().StringVar(&password, "password", "", "Clearance code of the seeded league")
	rootCmd.Flags().BoolVar(&withMatch, "match", true, "Also schedule and report an opening match")
}

// seed writes the demo league into the store cfg selects.
func seed(ctx context.Context, cfg config.Config) error {
	log.Info("Starting league seeder...")

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open league store: %w", err)
	}
	defer b.Close()

	c := b.NewSession(session.WithNarrator(narrative.Template{}))
	defer c.Close()

	l, err := c.Create(ctx, leagueName, password)
	if err != nil {
		return fmt.Errorf("failed to create league: %w", err)
	}
	log.Info("League created", "league", l.ID, "name", l.Name)

	players := make([]league.Player, 0, len(demoRoster))
	for _, r := range demoRoster {
		p, err := c.AddPlayer(ctx, r.name, r.faction)
		if err != nil {
			return fmt.Errorf("failed to enlist %s: %w", r.name, err)
		}
		if err := c.UpdatePaintingPoints(ctx, p.ID, r.painting); err != nil {
			return fmt.Errorf("failed to set painting points of %s: %w", r.name, err)
		}
		players = append(players, p)
		log.Info("Player enlisted", "player", p.ID, "name", p.Name, "faction", p.Faction)
	}

	if withMatch {
		pairing, err := c.CreatePairing(ctx, players[0].ID, players[1].ID, league.Missions[0])
		if err != nil {
			return fmt.Errorf("failed to schedule pairing: %w", err)
		}
		match, err := c.ReportMatch(ctx, session.MatchReport{
			PairingID:    pairing.ID,
			Player1ID:    pairing.Player1ID,
			Player2ID:    pairing.Player2ID,
			Player1Score: 72,
			Player2Score: 64,
			Highlights:   "The Inquisitor held the relic through the final turn.",
		})
		if err != nil {
			return fmt.Errorf("failed to report match: %w", err)
		}
		log.Info("Opening match reported", "match", match.ID, "narrative", match.Narrative)
		// a second, unreported pairing for the week
		if _, err := c.CreatePairing(ctx, players[1].ID, players[2].ID, ""); err != nil {
			return fmt.Errorf("failed to schedule pairing: %w", err)
		}
	}

	for i, p := range c.View().Players {
		log.Info("Standing", "rank", i+1, "name", p.Name, "points", p.TotalPoints)
	}
	log.Info("Seeding complete", "league", l.ID)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}
