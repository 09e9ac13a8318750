package schema

import (
	"fmt"
	"strings"
)

// Column describes one table column
type Column struct {
	Name    string
	Type    string
	NotNull bool
	// Default is a SQL literal; empty means no default.
	Default string
	// Identity columns hold non-negative integer identities and are coerced
	// during structural copies.
	Identity bool
}

func (c Column) definition(withNotNull bool) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(c.Type)
	if withNotNull && c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// Reference is a foreign key from Column to Table(RefColumn)
type Reference struct {
	Column    string
	Table     string
	RefColumn string
}

// Table describes a table's columns, key and references
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	References []Reference
}

// Column returns the named column
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames lists the columns in declaration order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// CreateSQL renders a CREATE TABLE statement under the given name
func (t Table) CreateSQL(name string) string {
	lines := make([]string, 0, len(t.Columns)+len(t.References)+1)
	for _, c := range t.Columns {
		lines = append(lines, "\t"+c.definition(true))
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("\tPRIMARY KEY (%s)", strings.Join(t.PrimaryKey, ", ")))
	}
	for _, r := range t.References {
		lines = append(lines, fmt.Sprintf("\tFOREIGN KEY (%s) REFERENCES %s(%s)", r.Column, r.Table, r.RefColumn))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", name, strings.Join(lines, ",\n"))
}

var (
	matchRef  = Reference{Column: "match_id", Table: "master", RefColumn: "match_id"}
	playerRef = Reference{Column: "player_id", Table: "players", RefColumn: "player_id"}

	matchID  = Column{Name: "match_id", Type: "INTEGER", Identity: true}
	playerID = Column{Name: "player_id", Type: "INTEGER", Identity: true}
)

// Master holds one row per match
var Master = Table{
	Name: "master",
	Columns: []Column{
		matchID,
		{Name: "team1", Type: "TEXT"},
		{Name: "team2", Type: "TEXT"},
		{Name: "winner", Type: "TEXT"},
		{Name: "venue", Type: "TEXT"},
		{Name: "match_name", Type: "TEXT"},
	},
	PrimaryKey: []string{"match_id"},
}

// Players holds one row per player
var Players = Table{
	Name: "players",
	Columns: []Column{
		playerID,
		{Name: "name", Type: "TEXT", NotNull: true},
		{Name: "role", Type: "TEXT"},
		{Name: "birth_date", Type: "TEXT"},
		{Name: "birth_place", Type: "TEXT"},
		{Name: "country", Type: "TEXT"},
	},
	PrimaryKey: []string{"player_id"},
}

// MatchPlayers records squad membership and captaincy
var MatchPlayers = Table{
	Name: "match_players",
	Columns: []Column{
		matchID,
		playerID,
		{Name: "team", Type: "TEXT", NotNull: true},
		{Name: "is_captain", Type: "INTEGER", Default: "0"},
		{Name: "is_vice_captain", Type: "INTEGER", Default: "0"},
	},
	PrimaryKey: []string{"match_id", "player_id"},
	References: []Reference{matchRef, playerRef},
}

// BattingScorecard holds one batting line per player per match
var BattingScorecard = Table{
	Name: "batting_scorecard",
	Columns: []Column{
		matchID,
		playerID,
		{Name: "runs", Type: "INTEGER"},
		{Name: "balls", Type: "INTEGER"},
		{Name: "fours", Type: "INTEGER"},
		{Name: "sixes", Type: "INTEGER"},
		{Name: "strike_rate", Type: "REAL"},
	},
	PrimaryKey: []string{"match_id", "player_id"},
	References: []Reference{matchRef, playerRef},
}

// BowlingScorecard holds one bowling line per player per match
var BowlingScorecard = Table{
	Name: "bowling_scorecard",
	Columns: []Column{
		matchID,
		playerID,
		{Name: "overs", Type: "REAL"},
		{Name: "maidens", Type: "INTEGER"},
		{Name: "runs", Type: "INTEGER"},
		{Name: "wickets", Type: "INTEGER"},
		{Name: "no_balls", Type: "INTEGER"},
		{Name: "wides", Type: "INTEGER"},
		{Name: "economy", Type: "REAL"},
	},
	PrimaryKey: []string{"match_id", "player_id"},
	References: []Reference{matchRef, playerRef},
}

// MatchAwards holds award winners
var MatchAwards = Table{
	Name: "match_awards",
	Columns: []Column{
		matchID,
		playerID,
		{Name: "award_name", Type: "TEXT"},
	},
	PrimaryKey: []string{"match_id", "award_name", "player_id"},
	References: []Reference{matchRef, playerRef},
}

// Tables is the current schema in creation order
var Tables = []Table{Master, Players, MatchPlayers, BattingScorecard, BowlingScorecard, MatchAwards}

// Fold copies a legacy table into its current counterpart and drops it
type Fold struct {
	From string
	Into Table
	// Columns pairs each legacy column with its target column.
	Columns [][2]string
	// Flag, when set, marks existing target rows matched on Columns with
	// Flag = 1 instead of inserting.
	Flag string
}

// LegacyFolds lists the pre-v2 tables in the order they are folded
var LegacyFolds = []Fold{
	{
		From:    "sports_match_records",
		Into:    Master,
		Columns: [][2]string{{"match_id", "match_id"}, {"team1", "team1"}, {"team2", "team2"}, {"winner", "winner"}, {"venue", "venue"}},
	},
	{
		From:    "match_squads",
		Into:    MatchPlayers,
		Columns: [][2]string{{"match_id", "match_id"}, {"player_id", "player_id"}, {"team", "team"}},
	},
	{
		From:    "leaders",
		Into:    MatchPlayers,
		Columns: [][2]string{{"match_id", "match_id"}, {"player_id", "player_id"}},
		Flag:    "is_captain",
	},
	{
		From: "batter_scorecard",
		Into: BattingScorecard,
		Columns: [][2]string{
			{"match_id", "match_id"}, {"player_id", "player_id"},
			{"R", "runs"}, {"B", "balls"}, {"fours", "fours"}, {"sixes", "sixes"}, {"SR", "strike_rate"},
		},
	},
	{
		From: "bowler_scorecard",
		Into: BowlingScorecard,
		Columns: [][2]string{
			{"match_id", "match_id"}, {"player_id", "player_id"},
			{"O", "overs"}, {"M", "maidens"}, {"R", "runs"}, {"W", "wickets"},
			{"NB", "no_balls"}, {"WB", "wides"}, {"ECO", "economy"},
		},
	},
}
