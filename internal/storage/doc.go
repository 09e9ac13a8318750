// Package storage persists scraped matches in a SQLite database.
//
// The database is opened with a single connection, so there is exactly one
// writer. Every match is written inside one transaction through Update:
//
//	err := store.Update(ctx, func(tx *storage.Tx) error {
//	    if err := tx.UpsertMatch(ctx, match); err != nil {
//	        return err
//	    }
//	    return tx.ReplaceScorecard(ctx, match.ID, batting, bowling)
//	})
//
// Write semantics per table:
//   - master: upsert, descriptive fields overwritten
//   - players: upsert, name and role refreshed, biography never blanked
//   - match_players, match_awards: insert or ignore
//   - batting_scorecard, bowling_scorecard: delete and reinsert per match
//
// The default database location is cricbuzz.db in the working directory.
package storage
