// Package cli implements the command-line interface for cricbuzz-scraper.
//
// The cli package provides the Cobra-based CLI with commands for scraping matches,
// enriching player profiles, migrating and backfilling the database, and showing
// stored matches as text, JSON or YAML. Every command that opens the database
// brings its schema up to date first.
package cli
