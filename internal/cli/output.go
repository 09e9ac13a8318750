package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/pipeline"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/schema"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", errors.Newf("invalid format: %s (must be 'text', 'json' or 'yaml')", s)
}

// Result is anything a command writes to stdout
type Result interface {
	writeText(w io.Writer, verbose bool) error
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result Result, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatText:
		return result.writeText(w, verbose)
	default:
		return errors.Newf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeYAML(w io.Writer, result Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(result); err != nil {
		return err
	}
	return encoder.Close()
}

// ScrapeOutput is the result of the scrape command
type ScrapeOutput struct {
	CheckedAt       time.Time `json:"checked_at" yaml:"checked_at"`
	pipeline.Report `yaml:",inline"`
	Metrics         *logger.Snapshot `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

func (o *ScrapeOutput) writeText(w io.Writer, verbose bool) error {
	if len(o.Matches) == 0 {
		fmt.Fprintln(w, "No matches processed.")
		return nil
	}

	for _, m := range o.Matches {
		if m.Status == pipeline.StatusStored {
			fmt.Fprintf(w, "%-8d stored   squad %d, batting %d, bowling %d, awards %d, leaders %d\n",
				m.MatchID, m.Squad, m.Batting, m.Bowling, m.Awards, m.Captains)
			continue
		}
		fmt.Fprintf(w, "%-8d %-8s %s\n", m.MatchID, m.Status, m.Error)
	}
	fmt.Fprintf(w, "\nTotal: %d stored, %d skipped, %d failed\n", o.Stored, o.Skipped, o.Failed)

	if verbose && o.Metrics != nil {
		writeMetrics(w, *o.Metrics)
	}
	return nil
}

// EnrichOutput is the result of the enrich command
type EnrichOutput struct {
	pipeline.EnrichReport `yaml:",inline"`
	Metrics               *logger.Snapshot `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

func (o *EnrichOutput) writeText(w io.Writer, verbose bool) error {
	if o.Candidates == 0 {
		fmt.Fprintln(w, "No players missing a profile.")
		return nil
	}
	fmt.Fprintf(w, "Enriched %d of %d players (%d empty profiles, %d skipped)\n",
		o.Enriched, o.Candidates, o.Empty, o.Skipped)

	if verbose && o.Metrics != nil {
		writeMetrics(w, *o.Metrics)
	}
	return nil
}

// MigrateOutput is the result of the migrate command
type MigrateOutput struct {
	Database string          `json:"database" yaml:"database"`
	Actions  []schema.Action `json:"actions" yaml:"actions"`
	Excluded int             `json:"excluded" yaml:"excluded"`
}

func (o *MigrateOutput) writeText(w io.Writer, verbose bool) error {
	if len(o.Actions) == 0 {
		fmt.Fprintf(w, "Schema of %s is up to date.\n", o.Database)
		return nil
	}

	fmt.Fprintf(w, "Migrated %s:\n", o.Database)
	for _, a := range o.Actions {
		line := fmt.Sprintf("  %-10s %s", a.Kind, a.Table)
		if a.Detail != "" {
			line += " (" + a.Detail + ")"
		}
		if a.Kind == schema.ActionRebuild || a.Kind == schema.ActionFold {
			line += fmt.Sprintf(": %d rows copied, %d excluded", a.Copied, a.Excluded)
		}
		fmt.Fprintln(w, line)
	}
	if o.Excluded > 0 {
		fmt.Fprintf(w, "\n%d rows excluded; see the log for details\n", o.Excluded)
	}
	return nil
}

// BackfillOutput is the result of the backfill command
type BackfillOutput struct {
	NamesCleaned   int `json:"names_cleaned" yaml:"names_cleaned"`
	DatesFormatted int `json:"dates_formatted" yaml:"dates_formatted"`
}

func (o *BackfillOutput) writeText(w io.Writer, verbose bool) error {
	fmt.Fprintf(w, "Cleaned %d player names, formatted %d birth dates\n", o.NamesCleaned, o.DatesFormatted)
	return nil
}

// MatchList is the result of show without a match ID
type MatchList struct {
	Matches []record.Match `json:"matches" yaml:"matches"`
}

func (o *MatchList) writeText(w io.Writer, verbose bool) error {
	if len(o.Matches) == 0 {
		fmt.Fprintln(w, "No matches stored.")
		return nil
	}

	for _, m := range o.Matches {
		fmt.Fprintf(w, "%-8d %s vs %s", m.ID, m.Team1, m.Team2)
		if winner := m.WinnerText(); winner != "" {
			fmt.Fprintf(w, " | %s", winner)
		}
		fmt.Fprintf(w, " | %s\n", m.Venue)
		if verbose && m.Name != "" {
			fmt.Fprintf(w, "         %s\n", m.Name)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d matches\n", len(o.Matches))
	return nil
}

// SquadLine is a squad membership with the player's name
type SquadLine struct {
	Name               string `json:"name" yaml:"name"`
	Role               string `json:"role,omitempty" yaml:"role,omitempty"`
	record.SquadMember `yaml:",inline"`
}

// BattingLine is a batting row with the player's name
type BattingLine struct {
	Name           string `json:"name" yaml:"name"`
	record.Batting `yaml:",inline"`
}

// BowlingLine is a bowling row with the player's name
type BowlingLine struct {
	Name           string `json:"name" yaml:"name"`
	record.Bowling `yaml:",inline"`
}

// AwardLine is an award with the player's name
type AwardLine struct {
	PlayerName   string `json:"player_name" yaml:"player_name"`
	record.Award `yaml:",inline"`
}

// MatchDetail is the result of show with a match ID
type MatchDetail struct {
	Match   record.Match  `json:"match" yaml:"match"`
	Squad   []SquadLine   `json:"squad" yaml:"squad"`
	Batting []BattingLine `json:"batting" yaml:"batting"`
	Bowling []BowlingLine `json:"bowling" yaml:"bowling"`
	Awards  []AwardLine   `json:"awards" yaml:"awards"`
}

func (o *MatchDetail) writeText(w io.Writer, verbose bool) error {
	m := o.Match
	title := fmt.Sprintf("%s vs %s", m.Team1, m.Team2)
	if m.Name != "" {
		title = m.Name
	}
	fmt.Fprintf(w, "Match %d: %s\n", m.ID, title)
	fmt.Fprintf(w, "Venue:  %s\n", m.Venue)
	if winner := m.WinnerText(); winner != "" {
		fmt.Fprintf(w, "Result: %s\n", winner)
	}

	team := ""
	for _, s := range o.Squad {
		if s.Team != team {
			team = s.Team
			fmt.Fprintf(w, "\n%s:\n", team)
		}
		name := s.Name
		switch {
		case s.IsCaptain:
			name += " (c)"
		case s.IsViceCaptain:
			name += " (vc)"
		}
		if s.Role != "" {
			fmt.Fprintf(w, "  %-28s %s\n", name, s.Role)
		} else {
			fmt.Fprintf(w, "  %s\n", name)
		}
		if verbose {
			fmt.Fprintf(w, "       ID: %d\n", s.PlayerID)
		}
	}

	if len(o.Batting) > 0 {
		fmt.Fprintln(w, "\nBatting:")
		for _, b := range o.Batting {
			fmt.Fprintf(w, "  %-24s %4d (%d)  4s %d  6s %d  SR %.2f\n",
				b.Name, b.Runs, b.Balls, b.Fours, b.Sixes, b.StrikeRate)
		}
	}

	if len(o.Bowling) > 0 {
		fmt.Fprintln(w, "\nBowling:")
		for _, b := range o.Bowling {
			fmt.Fprintf(w, "  %-24s %g-%d-%d-%d  NB %d  WD %d  ECO %.2f\n",
				b.Name, b.Overs, b.Maidens, b.Runs, b.Wickets, b.NoBalls, b.Wides, b.Economy)
		}
	}

	if len(o.Awards) > 0 {
		fmt.Fprintln(w, "\nAwards:")
		for _, a := range o.Awards {
			fmt.Fprintf(w, "  %s: %s\n", a.Award.Name, a.PlayerName)
		}
	}
	return nil
}

func writeMetrics(w io.Writer, snap logger.Snapshot) {
	names := make([]string, 0, len(snap.Counters))
	for name := range snap.Counters {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nCounters:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-32s %d\n", name, snap.Counters[name])
	}

	names = names[:0]
	for name := range snap.Timings {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nTimings:")
	for _, name := range names {
		t := snap.Timings[name]
		fmt.Fprintf(w, "  %-32s n=%d avg=%s min=%s max=%s\n", name, t.Count, t.Average, t.Min, t.Max)
	}
}
