package league

import "errors"

// Faction is the army a player fields for the whole campaign.
type Faction string

const (
	FactionSpaceMarines      Faction = "Adeptus Astartes"
	FactionAstraMilitarum    Faction = "Astra Militarum"
	FactionAdeptusMechanicus Faction = "Adeptus Mechanicus"
	FactionAdeptusCustodes   Faction = "Adeptus Custodes"
	FactionImperialKnights   Faction = "Imperial Knights"
	FactionChaosSpaceMarines Faction = "Chaos Space Marines"
	FactionWorldEaters       Faction = "World Eaters"
	FactionThousandSons      Faction = "Thousand Sons"
	FactionDeathGuard        Faction = "Death Guard"
	FactionChaosDaemons      Faction = "Chaos Daemons"
	FactionChaosKnights      Faction = "Chaos Knights"
	FactionAeldari           Faction = "Aeldari"
	FactionDrukhari          Faction = "Drukhari"
	FactionNecrons           Faction = "Necrons"
	FactionOrks              Faction = "Orks"
	FactionTauEmpire         Faction = "T'au Empire"
	FactionTyranids          Faction = "Tyranids"
	FactionGenestealerCults  Faction = "Genestealer Cults"
	FactionLeaguesOfVotann   Faction = "Leagues of Votann"
	FactionGreyKnights       Faction = "Grey Knights"
	FactionSistersOfBattle   Faction = "Adepta Sororitas"
)

var (
	ErrInvalidSettings = errors.New("invalid league settings")
	ErrUnknownFaction  = errors.New("unknown faction")
)

// League is one independent campaign with its own roster, schedule and settings.
//
// Password is a display-layer hint only. It is stored in plain text and is
// never checked by the store; real access control would need a credential
// check enforced server side.
type League struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Password string   `json:"password,omitempty"`
	Settings Settings `json:"settings"`
}

// Settings holds the week-scoped rules of a league.
type Settings struct {
	Name             string `json:"name"`
	StartDate        string `json:"startDate"`
	CurrentWeek      int    `json:"currentWeek"`
	EscalationPoints []int  `json:"escalationPoints"`
}

// Player is a roster entry. Every counter except PaintingPoints is derived
// from match history and only refreshed by RecalculateStandings.
type Player struct {
	ID             string  `json:"id"`
	LeagueID       string  `json:"leagueId"`
	Name           string  `json:"name"`
	Faction        Faction `json:"faction"`
	GamesPlayed    int     `json:"gamesPlayed"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	Draws          int     `json:"draws"`
	PaintingPoints int     `json:"paintingPoints"`
	GamingPoints   int     `json:"gamingPoints"`
	TotalPoints    int     `json:"totalPoints"`
}

// Match is a reported game result. Matches are append-only.
type Match struct {
	ID           string  `json:"id"`
	LeagueID     string  `json:"leagueId"`
	Date         string  `json:"date"`
	Player1ID    string  `json:"player1Id"`
	Player2ID    string  `json:"player2Id"`
	Player1Score int     `json:"player1Score"`
	Player2Score int     `json:"player2Score"`
	Mission      string  `json:"mission"`
	PointsLimit  int     `json:"pointsLimit"`
	WinnerID     *string `json:"winnerId"`
	Week         int     `json:"week"`
	Narrative    string  `json:"narrative,omitempty"`
}

// Pairing is a scheduled engagement that has not been played yet.
type Pairing struct {
	ID        string `json:"id"`
	LeagueID  string `json:"leagueId"`
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
	Mission   string `json:"mission,omitempty"`
	Week      int    `json:"week"`
	Completed bool   `json:"completed"`
}

// Data is the league-scoped bundle of collections.
type Data struct {
	Players  []Player  `json:"players"`
	Matches  []Match   `json:"matches"`
	Pairings []Pairing `json:"pairings"`
}
