package record

// Result labels stored in Match.Winner when no team won.
const (
	ResultTied     = "Tied"
	ResultNoResult = "No Result"
)

// Unknown is stored when a team or venue cannot be resolved from the page.
const Unknown = "Unknown"

// Match represents one row of the master table
type Match struct {
	ID     int64   `db:"match_id" json:"match_id" yaml:"match_id"`
	Team1  string  `db:"team1" json:"team1" yaml:"team1"`
	Team2  string  `db:"team2" json:"team2" yaml:"team2"`
	Winner *string `db:"winner" json:"winner,omitempty" yaml:"winner,omitempty"`
	Venue  string  `db:"venue" json:"venue" yaml:"venue"`
	Name   string  `db:"match_name" json:"match_name,omitempty" yaml:"match_name,omitempty"`
}

// WinnerText returns the winner or an empty string when the result is unknown
func (m *Match) WinnerText() string {
	if m.Winner == nil {
		return ""
	}
	return *m.Winner
}

// Player represents a player profile. Name and Role track the latest squad
// observation; the remaining fields are filled in by profile enrichment.
type Player struct {
	ID         int64  `db:"player_id" json:"player_id" yaml:"player_id"`
	Name       string `db:"name" json:"name" yaml:"name"`
	Role       string `db:"role" json:"role,omitempty" yaml:"role,omitempty"`
	BirthDate  string `db:"birth_date" json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	BirthPlace string `db:"birth_place" json:"birth_place,omitempty" yaml:"birth_place,omitempty"`
	Country    string `db:"country" json:"country,omitempty" yaml:"country,omitempty"`
}

// Profile holds the biography values scraped from a player's profile page
type Profile struct {
	BirthDate  string `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	BirthPlace string `json:"birth_place,omitempty" yaml:"birth_place,omitempty"`
	Role       string `json:"role,omitempty" yaml:"role,omitempty"`
	Country    string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Empty reports whether no biography value was found
func (p Profile) Empty() bool {
	return p.BirthDate == "" && p.BirthPlace == "" && p.Role == "" && p.Country == ""
}

// SquadMember links a player to a match and team
type SquadMember struct {
	MatchID       int64  `db:"match_id" json:"match_id" yaml:"match_id"`
	PlayerID      int64  `db:"player_id" json:"player_id" yaml:"player_id"`
	Team          string `db:"team" json:"team" yaml:"team"`
	IsCaptain     bool   `db:"is_captain" json:"is_captain" yaml:"is_captain"`
	IsViceCaptain bool   `db:"is_vice_captain" json:"is_vice_captain" yaml:"is_vice_captain"`
}

// Batting is one batter's line on a scorecard
type Batting struct {
	MatchID    int64   `db:"match_id" json:"match_id" yaml:"match_id"`
	PlayerID   int64   `db:"player_id" json:"player_id" yaml:"player_id"`
	Runs       int     `db:"runs" json:"runs" yaml:"runs"`
	Balls      int     `db:"balls" json:"balls" yaml:"balls"`
	Fours      int     `db:"fours" json:"fours" yaml:"fours"`
	Sixes      int     `db:"sixes" json:"sixes" yaml:"sixes"`
	StrikeRate float64 `db:"strike_rate" json:"strike_rate" yaml:"strike_rate"`
}

// Bowling is one bowler's line on a scorecard
type Bowling struct {
	MatchID  int64   `db:"match_id" json:"match_id" yaml:"match_id"`
	PlayerID int64   `db:"player_id" json:"player_id" yaml:"player_id"`
	Overs    float64 `db:"overs" json:"overs" yaml:"overs"`
	Maidens  int     `db:"maidens" json:"maidens" yaml:"maidens"`
	Runs     int     `db:"runs" json:"runs" yaml:"runs"`
	Wickets  int     `db:"wickets" json:"wickets" yaml:"wickets"`
	NoBalls  int     `db:"no_balls" json:"no_balls" yaml:"no_balls"`
	Wides    int     `db:"wides" json:"wides" yaml:"wides"`
	Economy  float64 `db:"economy" json:"economy" yaml:"economy"`
}

// AwardPlayerOfTheMatch is the only award cricbuzz reliably publishes
const AwardPlayerOfTheMatch = "Player of the Match"

// Award is a (match, player, award) triple
type Award struct {
	MatchID  int64  `db:"match_id" json:"match_id" yaml:"match_id"`
	PlayerID int64  `db:"player_id" json:"player_id" yaml:"player_id"`
	Name     string `db:"award_name" json:"award_name" yaml:"award_name"`
}
