package cli

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
)

// SortOrder represents the available sorting options for stored matches
type SortOrder string

const (
	SortByID    SortOrder = "id"
	SortByTeam  SortOrder = "team"
	SortByVenue SortOrder = "venue"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortByID, SortByTeam, SortByVenue:
		return o, nil
	}
	return "", errors.Newf("invalid sort order: %s (must be 'id', 'team' or 'venue')", s)
}

// sortMatches sorts a slice of matches based on the specified sort order
func sortMatches(matches []record.Match, order SortOrder) {
	switch order {
	case SortByID:
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].ID < matches[j].ID
		})
	case SortByTeam:
		sort.Slice(matches, func(i, j int) bool {
			a, b := teamKey(matches[i]), teamKey(matches[j])
			if a != b {
				return a < b
			}
			return matches[i].ID < matches[j].ID
		})
	case SortByVenue:
		sort.Slice(matches, func(i, j int) bool {
			return compareByVenue(matches[i], matches[j])
		})
	}
}

func teamKey(m record.Match) string {
	return strings.ToLower(m.Team1 + " " + m.Team2)
}

// compareByVenue puts known venues first, alphabetically, then falls back to ID
func compareByVenue(i, j record.Match) bool {
	knownI := i.Venue != "" && i.Venue != record.Unknown
	knownJ := j.Venue != "" && j.Venue != record.Unknown

	if knownI && knownJ {
		vi, vj := strings.ToLower(i.Venue), strings.ToLower(j.Venue)
		if vi != vj {
			return vi < vj
		}
		return i.ID < j.ID
	}
	if knownI {
		return true
	}
	if knownJ {
		return false
	}
	return i.ID < j.ID
}
