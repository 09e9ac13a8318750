// Package normalize converts scraped text into typed values.
//
// Every coercion here is total: numbers that fail to parse become 0, dates that
// fail to parse are returned as given, and text without a known suffix is left
// alone. Callers never see an error for malformed page content.
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical dd/mm/yyyy form stored for birth dates
const DateLayout = "02/01/2006"

var (
	whitespace     = regexp.MustCompile(`\s+`)
	trailingParen  = regexp.MustCompile(`\s*\(.*\)\s*$`)
	canonicalDate  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	longDateLayout = []string{
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"2 January 2006",
	}
)

// Text collapses internal whitespace runs to one space and trims the ends
func Text(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Int parses a statistic, returning 0 when the text is not an integer
func Int(s string) int {
	n, err := strconv.Atoi(Text(s))
	if err != nil {
		return 0
	}
	return n
}

// Float parses a statistic, returning 0 when the text is not a number
func Float(s string) float64 {
	f, err := strconv.ParseFloat(Text(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// Date converts "September 03, 1990 (35 years)" to "03/09/1990".
// Text that is already canonical, or that cannot be parsed, is returned unchanged.
func Date(s string) string {
	if canonicalDate.MatchString(s) {
		return s
	}

	cleaned := Text(trailingParen.ReplaceAllString(s, ""))
	for _, layout := range longDateLayout {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(DateLayout)
		}
	}

	return s
}

// IsCanonicalDate reports whether s is already in dd/mm/yyyy form
func IsCanonicalDate(s string) bool {
	return canonicalDate.MatchString(s)
}

// DefaultRoles lists the role labels cricbuzz appends to squad names
var DefaultRoles = []string{
	"Batting Allrounder",
	"Bowling Allrounder",
	"WK-Batter",
	"Batter",
	"Bowler",
	"Head Coach",
	"Assistant coach",
	"Fielding Coach",
	"Batting Coach",
	"Bowling Coach",
	"Coach",
}

// Captaincy markers appended to names on squad and scorecard pages
const (
	MarkerCaptain       = "(c)"
	MarkerWicketKeeper  = "(wk)"
	MarkerViceCaptain   = "(vc)"
	MarkerCaptainKeeper = "(c & wk)"
	MarkerKeeperCaptain = "(wk & c)"
)

// DefaultMarkers lists the captaincy markers stripped from player names
var DefaultMarkers = []string{
	MarkerCaptainKeeper,
	MarkerKeeperCaptain,
	MarkerCaptain,
	MarkerWicketKeeper,
	MarkerViceCaptain,
}

// Suffixes strips one known trailing suffix from a string.
// Matching is case-insensitive and tries longer suffixes first.
type Suffixes struct {
	list []string
}

// NewSuffixes builds a stripper from a vocabulary; order of the input does not matter
func NewSuffixes(vocabulary []string) *Suffixes {
	list := make([]string, 0, len(vocabulary))
	for _, s := range vocabulary {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return len(list[i]) > len(list[j])
	})
	return &Suffixes{list: list}
}

// Strip removes exactly one trailing suffix. It returns the remaining text with
// trailing spaces trimmed, the suffix as listed in the vocabulary, and whether a
// suffix was found. Text without a known suffix is returned unchanged.
func (s *Suffixes) Strip(text string) (string, string, bool) {
	for _, suffix := range s.list {
		if len(text) < len(suffix) {
			continue
		}
		tail := text[len(text)-len(suffix):]
		if strings.EqualFold(tail, suffix) {
			return strings.TrimRight(text[:len(text)-len(suffix)], " \t"), suffix, true
		}
	}
	return text, "", false
}

// Has reports whether the vocabulary contains the suffix, ignoring case
func (s *Suffixes) Has(suffix string) bool {
	for _, v := range s.list {
		if strings.EqualFold(v, suffix) {
			return true
		}
	}
	return false
}
