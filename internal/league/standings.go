package league

import "sort"

// League scoring rules.
const (
	PointsWin  = 3
	PointsLoss = 1
	PointsDraw = 2
)

// RecalculateStandings folds the full match history of a league into fresh
// player counters and returns the players ranked by total points.
//
// Only PaintingPoints is carried over from the input players. Matches that
// reference a player missing from the roster are skipped entirely. Players
// with equal totals keep their input order. Neither argument is modified.
func RecalculateStandings(players []Player, matches []Match) []Player {
	standings := make([]Player, len(players))
	index := make(map[string]*Player, len(players))
	for i, p := range players {
		standings[i] = p.StripDerived()
		if _, seen := index[p.ID]; !seen {
			index[p.ID] = &standings[i]
		}
	}

	for _, m := range matches {
		p1 := index[m.Player1ID]
		p2 := index[m.Player2ID]
		if p1 == nil || p2 == nil {
			continue
		}
		p1.GamesPlayed++
		p2.GamesPlayed++

		switch {
		case m.WinnerID != nil && *m.WinnerID == p1.ID:
			p1.Wins++
			p1.GamingPoints += PointsWin
			p2.Losses++
			p2.GamingPoints += PointsLoss
		case m.WinnerID != nil && *m.WinnerID == p2.ID:
			p2.Wins++
			p2.GamingPoints += PointsWin
			p1.Losses++
			p1.GamingPoints += PointsLoss
		default:
			p1.Draws++
			p1.GamingPoints += PointsDraw
			p2.Draws++
			p2.GamingPoints += PointsDraw
		}
	}

	for i := range standings {
		standings[i].TotalPoints = standings[i].GamingPoints + standings[i].PaintingPoints
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].TotalPoints > standings[j].TotalPoints
	})
	return standings
}

// Leader returns the top ranked player of already ranked standings.
func Leader(ranked []Player) (Player, bool) {
	if len(ranked) == 0 {
		return Player{}, false
	}
	return ranked[0], true
}

// TopPainter returns the player with the highest painting score.
func TopPainter(players []Player) (Player, bool) {
	if len(players) == 0 {
		return Player{}, false
	}
	best := players[0]
	for _, p := range players[1:] {
		if p.PaintingPoints > best.PaintingPoints {
			best = p
		}
	}
	return best, true
}
