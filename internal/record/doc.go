// Package record defines the match facts extracted from cricbuzz pages.
//
// The record package holds the typed rows the pipeline persists: matches, players,
// squad memberships, batting and bowling performances, and awards. Identities are
// the numeric IDs embedded in cricbuzz URLs, so a record is stable across runs and
// re-extracting a page always lands on the same keys.
package record
