package storage

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/identity"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
)

const (
	matchColumns = `match_id, COALESCE(team1, '') AS team1, COALESCE(team2, '') AS team2, winner,
	COALESCE(venue, '') AS venue, COALESCE(match_name, '') AS match_name`

	playerColumns = `player_id, COALESCE(name, '') AS name, COALESCE(role, '') AS role,
	COALESCE(birth_date, '') AS birth_date, COALESCE(birth_place, '') AS birth_place,
	COALESCE(country, '') AS country`
)

// GetMatch retrieves one match
func (s *Storage) GetMatch(ctx context.Context, id int64) (*record.Match, error) {
	var m record.Match
	if err := s.db.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM master WHERE match_id = ?`, id); err != nil {
		return nil, notFound(err, "match", id)
	}
	return &m, nil
}

// ListMatches returns every stored match ordered by ID
func (s *Storage) ListMatches(ctx context.Context) ([]record.Match, error) {
	var matches []record.Match
	err := s.db.SelectContext(ctx, &matches, `SELECT `+matchColumns+` FROM master ORDER BY match_id`)
	return matches, errors.Wrap(err, "listing matches")
}

// GetPlayer retrieves one player
func (s *Storage) GetPlayer(ctx context.Context, id int64) (*record.Player, error) {
	var p record.Player
	if err := s.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE player_id = ?`, id); err != nil {
		return nil, notFound(err, "player", id)
	}
	return &p, nil
}

// PlayersMissingProfile lists players without a country, the marker of a
// profile that was never enriched. limit <= 0 means no limit.
func (s *Storage) PlayersMissingProfile(ctx context.Context, limit int) ([]record.Player, error) {
	if limit <= 0 {
		limit = -1
	}
	var players []record.Player
	err := s.db.SelectContext(ctx, &players, `SELECT `+playerColumns+` FROM players
WHERE country IS NULL OR country = ''
ORDER BY player_id LIMIT ?`, limit)
	return players, errors.Wrap(err, "listing players missing a profile")
}

// Squad returns the squad of a match
func (s *Storage) Squad(ctx context.Context, matchID int64) ([]record.SquadMember, error) {
	var members []record.SquadMember
	err := s.db.SelectContext(ctx, &members, `SELECT match_id, player_id, team,
	COALESCE(is_captain, 0) AS is_captain, COALESCE(is_vice_captain, 0) AS is_vice_captain
FROM match_players WHERE match_id = ? ORDER BY team, player_id`, matchID)
	return members, errors.Wrapf(err, "loading squad of match %d", matchID)
}

// Batting returns the batting lines of a match
func (s *Storage) Batting(ctx context.Context, matchID int64) ([]record.Batting, error) {
	var rows []record.Batting
	err := s.db.SelectContext(ctx, &rows, `SELECT match_id, player_id,
	COALESCE(runs, 0) AS runs, COALESCE(balls, 0) AS balls, COALESCE(fours, 0) AS fours,
	COALESCE(sixes, 0) AS sixes, COALESCE(strike_rate, 0) AS strike_rate
FROM batting_scorecard WHERE match_id = ? ORDER BY player_id`, matchID)
	return rows, errors.Wrapf(err, "loading batting of match %d", matchID)
}

// Bowling returns the bowling lines of a match
func (s *Storage) Bowling(ctx context.Context, matchID int64) ([]record.Bowling, error) {
	var rows []record.Bowling
	err := s.db.SelectContext(ctx, &rows, `SELECT match_id, player_id,
	COALESCE(overs, 0) AS overs, COALESCE(maidens, 0) AS maidens, COALESCE(runs, 0) AS runs,
	COALESCE(wickets, 0) AS wickets, COALESCE(no_balls, 0) AS no_balls, COALESCE(wides, 0) AS wides,
	COALESCE(economy, 0) AS economy
FROM bowling_scorecard WHERE match_id = ? ORDER BY player_id`, matchID)
	return rows, errors.Wrapf(err, "loading bowling of match %d", matchID)
}

// Awards returns the awards of a match
func (s *Storage) Awards(ctx context.Context, matchID int64) ([]record.Award, error) {
	var rows []record.Award
	err := s.db.SelectContext(ctx, &rows, `SELECT match_id, player_id, COALESCE(award_name, '') AS award_name
FROM match_awards WHERE match_id = ? ORDER BY award_name, player_id`, matchID)
	return rows, errors.Wrapf(err, "loading awards of match %d", matchID)
}

type nameRow struct {
	ID   int64  `db:"player_id"`
	Text string `db:"value"`
}

// CleanPlayerNames strips captaincy markers left in stored names by older
// runs. It returns the number of names changed.
func (s *Storage) CleanPlayerNames(ctx context.Context, naming *identity.Naming) (int, error) {
	return s.rewrite(ctx, `SELECT player_id, name AS value FROM players WHERE name IS NOT NULL`,
		`UPDATE players SET name = ? WHERE player_id = ?`, naming.CleanName)
}

// FormatBirthDates rewrites long-form birth dates as dd/mm/yyyy. Dates that
// cannot be parsed are left as they are.
func (s *Storage) FormatBirthDates(ctx context.Context) (int, error) {
	return s.rewrite(ctx, `SELECT player_id, birth_date AS value FROM players WHERE birth_date IS NOT NULL AND birth_date != ''`,
		`UPDATE players SET birth_date = ? WHERE player_id = ?`, normalize.Date)
}

func (s *Storage) rewrite(ctx context.Context, query, update string, fn func(string) string) (int, error) {
	changed := 0
	err := s.Update(ctx, func(tx *Tx) error {
		var rows []nameRow
		if err := tx.tx.SelectContext(ctx, &rows, query); err != nil {
			return errors.Wrap(err, "loading rows to backfill")
		}
		for _, r := range rows {
			fixed := fn(r.Text)
			if fixed == r.Text || fixed == "" {
				continue
			}
			if _, err := tx.tx.ExecContext(ctx, update, fixed, r.ID); err != nil {
				return errors.Wrapf(err, "backfilling player %d", r.ID)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
