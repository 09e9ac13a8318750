package schema

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func exec(t *testing.T, db *sqlx.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
}

func columns(t *testing.T, db *sqlx.DB, table string) map[string]string {
	t.Helper()
	var cols []columnInfo
	require.NoError(t, db.Select(&cols, "PRAGMA table_info("+table+")"))
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c.Name] = c.Type
	}
	return out
}

func TestEnsure_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	report, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)
	require.Len(t, report.Actions, len(Tables))
	for i, a := range report.Actions {
		assert.Equal(t, ActionCreate, a.Kind)
		assert.Equal(t, Tables[i].Name, a.Table)
	}

	again, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed(), "second run should be a no-op: %+v", again.Actions)
}

func TestEnsure_AddsMissingColumnsOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	exec(t, db,
		`CREATE TABLE players (player_id INTEGER PRIMARY KEY, name TEXT NOT NULL, role TEXT)`,
		`INSERT INTO players (player_id, name, role) VALUES (1114, 'Paul Stirling', 'Batter')`,
		`CREATE TABLE match_players (match_id INTEGER, player_id INTEGER, team TEXT NOT NULL, PRIMARY KEY (match_id, player_id))`,
		`INSERT INTO match_players (match_id, player_id, team) VALUES (140559, 1114, 'Ireland')`,
	)

	manager := NewManager(db)
	first, err := manager.Ensure(ctx)
	require.NoError(t, err)

	var added []string
	for _, a := range first.Actions {
		if a.Kind == ActionAddColumn {
			added = append(added, a.Table+"."+a.Detail)
		}
	}
	assert.ElementsMatch(t, []string{
		"players.birth_date", "players.birth_place", "players.country",
		"match_players.is_captain", "match_players.is_vice_captain",
	}, added)

	second, err := manager.Ensure(ctx)
	require.NoError(t, err)
	assert.False(t, second.Changed())

	assert.Len(t, columns(t, db, "players"), len(Players.Columns))

	var name string
	require.NoError(t, db.Get(&name, `SELECT name FROM players WHERE player_id = 1114`))
	assert.Equal(t, "Paul Stirling", name)

	var captain int
	require.NoError(t, db.Get(&captain, `SELECT is_captain FROM match_players WHERE match_id = 140559`))
	assert.Equal(t, 0, captain, "added column should take its declared default")
}

func TestEnsure_RebuildsAndExcludesBadIdentities(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	exec(t, db,
		`CREATE TABLE batting_scorecard (match_id TEXT, player_id TEXT, player_name TEXT, runs INTEGER, PRIMARY KEY (match_id, player_id))`,
		`INSERT INTO batting_scorecard VALUES ('140559', '1114', 'Paul Stirling', 42)`,
		`INSERT INTO batting_scorecard VALUES (' 140559 ', '9311', 'Andrew Balbirnie', 7)`,
		`INSERT INTO batting_scorecard VALUES ('abc', '1', 'Nobody', 0)`,
		`INSERT INTO batting_scorecard VALUES ('140559', '-4', 'Negative', 0)`,
	)

	report, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)

	var rebuilt *Action
	for i := range report.Actions {
		if report.Actions[i].Kind == ActionRebuild {
			rebuilt = &report.Actions[i]
		}
	}
	require.NotNil(t, rebuilt)
	assert.Equal(t, "batting_scorecard", rebuilt.Table)
	assert.Equal(t, 2, rebuilt.Copied)
	assert.Equal(t, 2, rebuilt.Excluded)
	assert.Equal(t, 2, report.Excluded())

	cols := columns(t, db, "batting_scorecard")
	assert.Equal(t, "INTEGER", cols["match_id"])
	assert.Equal(t, "INTEGER", cols["player_id"])
	assert.Contains(t, cols, "strike_rate")
	assert.NotContains(t, cols, "player_name")

	var rows []struct {
		MatchID  int64 `db:"match_id"`
		PlayerID int64 `db:"player_id"`
		Runs     int   `db:"runs"`
	}
	require.NoError(t, db.Select(&rows, `SELECT match_id, player_id, runs FROM batting_scorecard ORDER BY player_id`))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(140559), rows[0].MatchID)
	assert.Equal(t, int64(1114), rows[0].PlayerID)
	assert.Equal(t, 42, rows[0].Runs)
	assert.Equal(t, int64(9311), rows[1].PlayerID)

	again, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestEnsure_RebuildCountsRowsRejectedByConstraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var logs bytes.Buffer
	previous := logger.Default()
	logger.SetDefault(logger.New(logger.LevelWarn, &logs))
	defer logger.SetDefault(previous)

	exec(t, db,
		`CREATE TABLE match_players (match_id TEXT, player_id INTEGER, team TEXT)`,
		`INSERT INTO match_players VALUES ('140559', 1114, 'Ireland')`,
		`INSERT INTO match_players VALUES ('140559', 9311, NULL)`,
		`INSERT INTO match_players VALUES ('140559', 1114, 'Ireland')`,
	)

	report, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)

	var rebuilt *Action
	for i := range report.Actions {
		if report.Actions[i].Kind == ActionRebuild && report.Actions[i].Table == "match_players" {
			rebuilt = &report.Actions[i]
		}
	}
	require.NotNil(t, rebuilt)
	assert.Equal(t, 1, rebuilt.Copied)
	assert.Equal(t, 2, rebuilt.Excluded, "NULL team and repeated key are both excluded")
	assert.Equal(t, 2, report.Excluded())

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM match_players`))
	assert.Equal(t, 1, count)

	assert.Equal(t, 2, strings.Count(logs.String(), "violates a constraint"))
	assert.Contains(t, logs.String(), "player_id=9311")
}

func TestEnsure_FoldsLegacyTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	exec(t, db,
		`CREATE TABLE sports_match_records (match_id TEXT PRIMARY KEY, team1 TEXT, team2 TEXT, winner TEXT, venue TEXT)`,
		`INSERT INTO sports_match_records VALUES ('140559', 'Ireland', 'Zimbabwe', 'Ireland', 'Bready')`,
		`CREATE TABLE match_squads (match_id INTEGER, player_id INTEGER, team TEXT, PRIMARY KEY (match_id, player_id))`,
		`INSERT INTO match_squads VALUES (140559, 1114, 'Ireland')`,
		`INSERT INTO match_squads VALUES (140559, 9311, 'Ireland')`,
		`CREATE TABLE leaders (match_id INTEGER, team TEXT, player_id INTEGER, player_name TEXT, role TEXT)`,
		`INSERT INTO leaders VALUES (140559, 'Ireland', 9311, 'Andrew Balbirnie', 'Captain')`,
		`CREATE TABLE bowler_scorecard (match_id INTEGER, player_id INTEGER, player_name TEXT, O REAL, M INTEGER, R INTEGER, W INTEGER, NB INTEGER, WB INTEGER, ECO REAL)`,
		`INSERT INTO bowler_scorecard VALUES (140559, 1114, 'Paul Stirling', 4, 0, 28, 2, 0, 1, 7.0)`,
	)

	report, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)

	var dropped []string
	for _, a := range report.Actions {
		if a.Kind == ActionDrop {
			dropped = append(dropped, a.Table)
		}
	}
	assert.ElementsMatch(t, []string{"sports_match_records", "match_squads", "leaders", "bowler_scorecard"}, dropped)

	var venue string
	require.NoError(t, db.Get(&venue, `SELECT venue FROM master WHERE match_id = 140559`))
	assert.Equal(t, "Bready", venue)

	var captains []int64
	require.NoError(t, db.Select(&captains, `SELECT player_id FROM match_players WHERE is_captain = 1`))
	assert.Equal(t, []int64{9311}, captains)

	var wickets int
	require.NoError(t, db.Get(&wickets, `SELECT wickets FROM bowling_scorecard WHERE player_id = 1114`))
	assert.Equal(t, 2, wickets)

	var legacy int
	require.NoError(t, db.Get(&legacy, `SELECT COUNT(*) FROM sqlite_master WHERE name IN ('match_squads', 'leaders')`))
	assert.Zero(t, legacy)

	again, err := NewManager(db).Ensure(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestEnsure_RollsBackOnFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sqlite_master`).
		WithArgs("master").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`CREATE TABLE master`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = NewManager(db).Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMigration))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_FailedRunLeavesNothingBehind(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	broken := Fold{From: "match_squads", Into: Table{Name: "missing_table", Columns: MatchPlayers.Columns}, Columns: [][2]string{{"match_id", "match_id"}}}
	exec(t, db,
		`CREATE TABLE match_squads (match_id INTEGER, player_id INTEGER, team TEXT)`,
		`INSERT INTO match_squads VALUES (1, 2, 'Ireland')`,
	)

	_, err := NewManager(db).WithTables(Tables, []Fold{broken}).Ensure(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMigration))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'master'`))
	assert.Zero(t, n, "tables created before the failure should be rolled back")
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM match_squads`))
	assert.Equal(t, 1, n)
}

func TestCoerceIdentity(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int64
		ok   bool
	}{
		{int64(1114), 1114, true},
		{"1114", 1114, true},
		{[]byte(" 42 "), 42, true},
		{float64(7), 7, true},
		{"7.0", 7, true},
		{"7.5", 0, false},
		{"abc", 0, false},
		{int64(-1), 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := CoerceIdentity(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%#v", tt.in)
		}
	}
}
