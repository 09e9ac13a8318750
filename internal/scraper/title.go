package scraper

import (
	"regexp"
	"strings"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
)

// titlePrefixes are page-type labels cricbuzz puts in front of the fixture
var titlePrefixes = []string{
	"Cricket commentary | ",
	"Live Cricket Score, ",
	"Cricket match squads | ",
	"Cricket scorecard | ",
}

// teamTerminators end the second team name inside a title
var teamTerminators = []string{",", " Live ", " Match ", " Scorecard", " Squads", " - ", " | "}

var versus = regexp.MustCompile(`(?i)\s+vs\.?\s+`)

// Title is a parsed page title such as "Ireland vs Zimbabwe, 3rd ODI - Live Cricket Score"
type Title struct {
	Team1 string
	Team2 string
	Name  string
}

// ParseTitle splits a fixture title into teams and match name. Unresolved
// teams are record.Unknown.
func ParseTitle(title string) Title {
	title = normalize.Text(title)
	for _, p := range titlePrefixes {
		title = strings.TrimPrefix(title, p)
	}

	loc := versus.FindStringIndex(title)
	if loc == nil {
		return Title{Team1: record.Unknown, Team2: record.Unknown}
	}

	t := Title{Team1: strings.TrimSpace(title[:loc[0]])}
	remainder := title[loc[1]:]

	end := len(remainder)
	for _, sep := range teamTerminators {
		if i := strings.Index(remainder, sep); i >= 0 && i < end {
			end = i
		}
	}
	t.Team2 = strings.TrimSpace(remainder[:end])

	if rest := remainder[end:]; strings.HasPrefix(rest, ",") {
		name := strings.TrimSpace(rest[1:])
		for _, sep := range []string{" - ", " | ", ","} {
			if i := strings.Index(name, sep); i >= 0 {
				name = name[:i]
			}
		}
		t.Name = strings.TrimSpace(name)
	}

	if t.Team1 == "" {
		t.Team1 = record.Unknown
	}
	if t.Team2 == "" {
		t.Team2 = record.Unknown
	}
	return t
}

var wonBy = regexp.MustCompile(`(?i)\s*\bwon by\b`)

// Winner derives the stored winner from result text: a team named in a
// "won by" result, Tied, No Result, or the raw text when nothing else fits.
// Empty text yields nil.
func Winner(result, team1, team2 string) *string {
	result = normalize.Text(result)
	if result == "" {
		return nil
	}
	lower := strings.ToLower(result)

	pick := func(s string) *string { return &s }

	if wonBy.MatchString(result) {
		for _, team := range []string{team1, team2} {
			if team != "" && team != record.Unknown && strings.Contains(lower, strings.ToLower(team)) {
				return pick(team)
			}
		}
		loc := wonBy.FindStringIndex(result)
		return pick(strings.TrimSpace(result[:loc[0]]))
	}
	if strings.Contains(lower, "tied") {
		return pick(record.ResultTied)
	}
	if strings.Contains(lower, "no result") || strings.Contains(lower, "abandoned") {
		return pick(record.ResultNoResult)
	}
	for _, team := range []string{team1, team2} {
		if team != "" && team != record.Unknown && strings.HasPrefix(result, team) {
			return pick(team)
		}
	}
	return pick(result)
}
