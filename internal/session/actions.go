package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/narrative"
	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/mauv0809/strategium/internal/store"
)

// Leagues lists every league known to the store.
func (c *Coordinator) Leagues(ctx context.Context) ([]league.League, error) {
	leagues, err := c.backend.GetLeagues(ctx)
	if err != nil {
		return nil, c.fail("get_leagues", err)
	}
	return leagues, nil
}

// Select makes leagueID the active league.
func (c *Coordinator) Select(ctx context.Context, leagueID string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, err := c.backend.GetLeague(ctx, leagueID)
	if err != nil {
		return c.fail("select_league", err)
	}
	return c.activate(ctx, l)
}

// Create stores a new league and makes it active.
func (c *Coordinator) Create(ctx context.Context, name, password string) (league.League, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return league.League{}, fmt.Errorf("%w: league name is required", ErrInvalidAction)
	}
	l, err := c.backend.CreateLeague(ctx, name, password)
	if err != nil {
		return league.League{}, c.fail("create_league", err)
	}
	return l, c.activate(ctx, l)
}

// Import creates a league from an export payload and makes it active. Only
// the snapshot backend supports it.
func (c *Coordinator) Import(ctx context.Context, payload []byte, name, password string) (league.League, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	b, ok := c.backend.(snapshotBackend)
	if !ok {
		return league.League{}, fmt.Errorf("%w: import needs the snapshot store", ErrInvalidAction)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return league.League{}, fmt.Errorf("%w: league name is required", ErrInvalidAction)
	}
	l, err := b.ImportLeagueData(ctx, payload, name, password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidImport) {
			return league.League{}, err
		}
		return league.League{}, c.fail("import_league", err)
	}
	return l, c.activate(ctx, l)
}

// Export returns the active league's export payload. Only the snapshot
// backend supports it.
func (c *Coordinator) Export(ctx context.Context) ([]byte, error) {
	b, ok := c.backend.(snapshotBackend)
	if !ok {
		return nil, fmt.Errorf("%w: export needs the snapshot store", ErrInvalidAction)
	}
	l, _, _, err := c.current()
	if err != nil {
		return nil, err
	}
	payload, err := b.ExportLeagueData(ctx, l.ID)
	if err != nil {
		return nil, c.fail("export_league", err)
	}
	return payload, nil
}

// Logout releases the active league.
func (c *Coordinator) Logout() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	log.Info("Leaving league", "league", c.league.ID)
	c.resetLocked()
	c.publishLocked()
}

// DeleteLeague deletes the active league when passwordAttempt opens it.
func (c *Coordinator) DeleteLeague(ctx context.Context, passwordAttempt string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	active, _, _, err := c.current()
	if err != nil {
		return err
	}
	l, err := c.backend.GetLeague(ctx, active.ID)
	if err != nil {
		return c.fail("delete_league", err)
	}
	if !l.CheckPassword(passwordAttempt) {
		log.Warn("League deletion denied", "league", l.ID)
		return ErrWrongPassword
	}

	deleteErr := c.backend.DeleteLeague(ctx, l.ID)
	if deleteErr != nil {
		// A partial delete still leaves the league gone.
		if _, err := c.backend.GetLeague(ctx, l.ID); !errors.Is(err, store.ErrLeagueNotFound) {
			return c.fail("delete_league", deleteErr)
		}
		c.fail("delete_league", deleteErr)
	}

	c.mu.Lock()
	c.resetLocked()
	c.publishLocked()
	log.Info("League deleted", "league", l.ID)
	return deleteErr
}

// AddPlayer enlists a new player with every counter at zero.
func (c *Coordinator) AddPlayer(ctx context.Context, name string, faction league.Faction) (league.Player, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, _, gen, err := c.current()
	if err != nil {
		return league.Player{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return league.Player{}, fmt.Errorf("%w: player name is required", ErrInvalidAction)
	}
	if _, err := league.ParseFaction(string(faction)); err != nil {
		return league.Player{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	p := league.NewPlayer(l.ID, name, faction)
	if err := c.backend.addPlayer(ctx, l.ID, p); err != nil {
		return league.Player{}, c.fail("add_player", err)
	}
	log.Info("Player enlisted", "league", l.ID, "player", p.ID, "name", p.Name, "faction", p.Faction)
	return p, c.afterWrite(ctx, l.ID, gen)
}

func (c *Coordinator) RemovePlayer(ctx context.Context, playerID string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, _, gen, err := c.current()
	if err != nil {
		return err
	}
	if err := c.backend.removePlayer(ctx, l.ID, playerID); err != nil {
		return c.fail("remove_player", err)
	}
	log.Info("Player removed", "league", l.ID, "player", playerID)
	return c.afterWrite(ctx, l.ID, gen)
}

// UpdatePaintingPoints sets the player's painting score.
func (c *Coordinator) UpdatePaintingPoints(ctx context.Context, playerID string, points int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, _, gen, err := c.current()
	if err != nil {
		return err
	}
	if points < 0 {
		return fmt.Errorf("%w: painting points cannot be negative", ErrInvalidAction)
	}
	if err := c.backend.setPaintingPoints(ctx, l.ID, playerID, points); err != nil {
		return c.fail("update_painting", err)
	}
	return c.afterWrite(ctx, l.ID, gen)
}

// CreatePairing schedules a game between two players in the current week.
func (c *Coordinator) CreatePairing(ctx context.Context, player1ID, player2ID, mission string) (league.Pairing, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, settings, gen, err := c.current()
	if err != nil {
		return league.Pairing{}, err
	}
	if err := checkOpponents(player1ID, player2ID); err != nil {
		return league.Pairing{}, err
	}

	p := league.Pairing{
		ID:        league.NewID(),
		LeagueID:  l.ID,
		Player1ID: player1ID,
		Player2ID: player2ID,
		Mission:   mission,
		Week:      settings.CurrentWeek,
	}
	if err := c.backend.addPairing(ctx, l.ID, p); err != nil {
		return league.Pairing{}, c.fail("create_pairing", err)
	}
	log.Info("Pairing created", "league", l.ID, "pairing", p.ID, "week", p.Week)
	return p, c.afterWrite(ctx, l.ID, gen)
}

func checkOpponents(player1ID, player2ID string) error {
	if player1ID == "" || player2ID == "" {
		return fmt.Errorf("%w: both players are required", ErrInvalidAction)
	}
	if player1ID == player2ID {
		return fmt.Errorf("%w: a player cannot face themselves", ErrInvalidAction)
	}
	return nil
}

// ReportMatch records a result for the current week and completes the
// pairing it fulfils. A pairing is found by the report's pairing id first,
// then by an open pairing of the same week between the same players. The
// match takes the id of the pairing it fulfils; other matches get a fresh
// id. Reporting a completed pairing again is rejected.
func (c *Coordinator) ReportMatch(ctx context.Context, report MatchReport) (league.Match, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, settings, gen, err := c.current()
	if err != nil {
		return league.Match{}, err
	}
	if err := checkOpponents(report.Player1ID, report.Player2ID); err != nil {
		return league.Match{}, err
	}
	if report.Player1Score < 0 || report.Player2Score < 0 {
		return league.Match{}, fmt.Errorf("%w: scores cannot be negative", ErrInvalidAction)
	}

	view := c.View()
	week := settings.CurrentWeek
	pairing, found, err := fulfilledPairing(view.Pairings, report, week)
	if err != nil {
		return league.Match{}, err
	}

	m := league.Match{
		ID:           league.NewID(),
		LeagueID:     l.ID,
		Date:         c.now().UTC().Format(time.RFC3339),
		Player1ID:    report.Player1ID,
		Player2ID:    report.Player2ID,
		Player1Score: report.Player1Score,
		Player2Score: report.Player2Score,
		Mission:      report.Mission,
		PointsLimit:  settings.PointsLimit(week),
		WinnerID:     league.WinnerFor(report.Player1ID, report.Player2ID, report.Player1Score, report.Player2Score),
		Week:         week,
	}
	if found {
		m.ID = pairing.ID
		if m.Mission == "" {
			m.Mission = pairing.Mission
		}
	}

	p1, ok1 := findPlayer(view.Players, m.Player1ID)
	p2, ok2 := findPlayer(view.Players, m.Player2ID)
	if ok1 && ok2 {
		m.Narrative = narrative.Generate(ctx, c.narrator, narrative.Request{
			Match:      m,
			Player1:    p1,
			Player2:    p2,
			Highlights: report.Highlights,
		})
	}

	if err := c.backend.addMatch(ctx, l.ID, m); err != nil {
		return league.Match{}, c.fail("report_match", err)
	}
	c.metrics.IncMatchesReported()
	log.Info("Match reported", "league", l.ID, "match", m.ID, "week", m.Week, "draw", m.IsDraw())

	var pairingErr error
	if found {
		if err := c.backend.completePairing(ctx, l.ID, pairing.ID); err != nil {
			pairingErr = c.fail("complete_pairing", fmt.Errorf("match %s recorded but pairing %s not completed: %w", m.ID, pairing.ID, err))
		}
	}

	if err := c.afterWrite(ctx, l.ID, gen); err != nil {
		return m, errors.Join(pairingErr, err)
	}
	if err := c.backend.storeStandings(ctx, l.ID, c.View().Players); err != nil {
		pairingErr = errors.Join(pairingErr, c.fail("store_standings", err))
	}

	if c.notifier != nil {
		err := c.notifier.SendMatchReport(ctx, notifier.MatchReport{LeagueName: l.Name, Match: m, Player1: p1, Player2: p2})
		if err != nil {
			log.Warn("Failed to send match report", "match", m.ID, "error", err)
		}
	}
	return m, pairingErr
}

// fulfilledPairing applies the pairing completion rule. Only open pairings
// are returned; an unknown pairing id falls back to matching the players.
func fulfilledPairing(pairings []league.Pairing, report MatchReport, week int) (league.Pairing, bool, error) {
	if report.PairingID != "" {
		for _, p := range pairings {
			if p.ID != report.PairingID {
				continue
			}
			if p.Completed {
				return league.Pairing{}, false, fmt.Errorf("%w: pairing %s already has a result", ErrInvalidAction, p.ID)
			}
			return p, true, nil
		}
	}
	for _, p := range pairings {
		if !p.Completed && p.Week == week && p.Connects(report.Player1ID, report.Player2ID) {
			return p, true, nil
		}
	}
	return league.Pairing{}, false, nil
}

func findPlayer(players []league.Player, id string) (league.Player, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return league.Player{}, false
}

// UpdateSettings validates and stores new league settings.
func (c *Coordinator) UpdateSettings(ctx context.Context, settings league.Settings) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	l, _, gen, err := c.current()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := c.backend.UpdateSettings(ctx, l.ID, settings); err != nil {
		return c.fail("update_settings", err)
	}
	log.Info("Settings updated", "league", l.ID, "week", settings.CurrentWeek)
	return c.afterWrite(ctx, l.ID, gen)
}

// SendStandings posts the current standings through the notifier.
func (c *Coordinator) SendStandings(ctx context.Context) error {
	view := c.View()
	if view.State != LeagueActive {
		return ErrNoLeague
	}
	if c.notifier == nil {
		return fmt.Errorf("%w: no notifier configured", ErrInvalidAction)
	}
	return c.notifier.SendStandings(ctx, view.League.Name, view.Players)
}
