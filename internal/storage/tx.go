package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
)

// Tx groups the writes of one match
type Tx struct {
	tx *sqlx.Tx
}

const upsertMatchSQL = `
INSERT INTO master (match_id, team1, team2, winner, venue, match_name)
VALUES (:match_id, :team1, :team2, :winner, :venue, :match_name)
ON CONFLICT(match_id) DO UPDATE SET
	team1 = excluded.team1,
	team2 = excluded.team2,
	winner = excluded.winner,
	venue = excluded.venue,
	match_name = excluded.match_name`

// UpsertMatch inserts the match or overwrites its descriptive fields
func (t *Tx) UpsertMatch(ctx context.Context, m record.Match) error {
	_, err := t.tx.NamedExecContext(ctx, upsertMatchSQL, m)
	return errors.Wrapf(err, "upserting match %d", m.ID)
}

const upsertPlayerSQL = `
INSERT INTO players (player_id, name, role, birth_date, birth_place, country)
VALUES (:player_id, :name, NULLIF(:role, ''), NULLIF(:birth_date, ''), NULLIF(:birth_place, ''), NULLIF(:country, ''))
ON CONFLICT(player_id) DO UPDATE SET
	name = excluded.name,
	role = excluded.role,
	birth_date = COALESCE(excluded.birth_date, players.birth_date),
	birth_place = COALESCE(excluded.birth_place, players.birth_place),
	country = COALESCE(excluded.country, players.country)`

// UpsertPlayer records a squad sighting. Name and role are refreshed; stored
// biography fields are only replaced by non-empty values.
func (t *Tx) UpsertPlayer(ctx context.Context, p record.Player) error {
	_, err := t.tx.NamedExecContext(ctx, upsertPlayerSQL, p)
	return errors.Wrapf(err, "upserting player %d", p.ID)
}

// EnsurePlayer creates a minimal player row if none exists
func (t *Tx) EnsurePlayer(ctx context.Context, id int64, name string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO players (player_id, name) VALUES (?, ?)`, id, name)
	return errors.Wrapf(err, "ensuring player %d", id)
}

// EnrichPlayer fills biography fields from a profile page, setting only the
// non-empty ones. It reports whether the player exists.
func (t *Tx) EnrichPlayer(ctx context.Context, id int64, p record.Profile) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
UPDATE players SET
	birth_date = COALESCE(NULLIF(?, ''), birth_date),
	birth_place = COALESCE(NULLIF(?, ''), birth_place),
	role = COALESCE(NULLIF(?, ''), role),
	country = COALESCE(NULLIF(?, ''), country)
WHERE player_id = ?`, p.BirthDate, p.BirthPlace, p.Role, p.Country, id)
	if err != nil {
		return false, errors.Wrapf(err, "enriching player %d", id)
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrap(err, "counting enriched rows")
}

// AddSquadMember links a player to a match; an existing membership is kept
func (t *Tx) AddSquadMember(ctx context.Context, m record.SquadMember) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO match_players (match_id, player_id, team) VALUES (?, ?, ?)`,
		m.MatchID, m.PlayerID, m.Team)
	if err != nil {
		return false, errors.Wrapf(err, "adding player %d to match %d", m.PlayerID, m.MatchID)
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrap(err, "counting squad rows")
}

// SetCaptain flags the membership as captain. ok is false when the player is
// not in the match's squad.
func (t *Tx) SetCaptain(ctx context.Context, matchID, playerID int64) (bool, error) {
	return t.setFlag(ctx, "is_captain", matchID, playerID)
}

// SetViceCaptain flags the membership as vice captain
func (t *Tx) SetViceCaptain(ctx context.Context, matchID, playerID int64) (bool, error) {
	return t.setFlag(ctx, "is_vice_captain", matchID, playerID)
}

func (t *Tx) setFlag(ctx context.Context, column string, matchID, playerID int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE match_players SET `+column+` = 1 WHERE match_id = ? AND player_id = ?`,
		matchID, playerID)
	if err != nil {
		return false, errors.Wrapf(err, "setting %s for player %d in match %d", column, playerID, matchID)
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrap(err, "counting flagged rows")
}

const (
	insertBattingSQL = `
INSERT OR REPLACE INTO batting_scorecard (match_id, player_id, runs, balls, fours, sixes, strike_rate)
VALUES (:match_id, :player_id, :runs, :balls, :fours, :sixes, :strike_rate)`

	insertBowlingSQL = `
INSERT OR REPLACE INTO bowling_scorecard (match_id, player_id, overs, maidens, runs, wickets, no_balls, wides, economy)
VALUES (:match_id, :player_id, :overs, :maidens, :runs, :wickets, :no_balls, :wides, :economy)`
)

// ReplaceScorecard deletes every batting and bowling row of the match and
// inserts the given ones. A player listed twice keeps the last line.
func (t *Tx) ReplaceScorecard(ctx context.Context, matchID int64, batting []record.Batting, bowling []record.Bowling) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM batting_scorecard WHERE match_id = ?`, matchID); err != nil {
		return errors.Wrapf(err, "clearing batting for match %d", matchID)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM bowling_scorecard WHERE match_id = ?`, matchID); err != nil {
		return errors.Wrapf(err, "clearing bowling for match %d", matchID)
	}

	for _, b := range batting {
		b.MatchID = matchID
		if _, err := t.tx.NamedExecContext(ctx, insertBattingSQL, b); err != nil {
			return errors.Wrapf(err, "inserting batting for player %d", b.PlayerID)
		}
	}
	for _, b := range bowling {
		b.MatchID = matchID
		if _, err := t.tx.NamedExecContext(ctx, insertBowlingSQL, b); err != nil {
			return errors.Wrapf(err, "inserting bowling for player %d", b.PlayerID)
		}
	}
	return nil
}

// AddAward records an award; a repeated award is ignored
func (t *Tx) AddAward(ctx context.Context, a record.Award) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO match_awards (match_id, player_id, award_name) VALUES (?, ?, ?)`,
		a.MatchID, a.PlayerID, a.Name)
	if err != nil {
		return false, errors.Wrapf(err, "adding award for match %d", a.MatchID)
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrap(err, "counting award rows")
}
