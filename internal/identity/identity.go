// Package identity derives numeric match and player identities from cricbuzz links.
package identity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
)

var (
	profilePattern = regexp.MustCompile(`/profiles/(\d+)(?:[/?#]|$)`)
	matchPattern   = regexp.MustCompile(`/(?:live-cricket-scores|live-cricket-scorecard|cricket-match-squads|cricket-scores|cricket-match-facts)/(\d+)(?:[/?#]|$)`)
)

// PlayerID extracts the numeric ID from a profile link such as
// "/profiles/1114/paul-stirling". ok is false when the link has no ID segment.
func PlayerID(href string) (int64, bool) {
	return firstID(profilePattern, href)
}

// MatchID extracts the match ID from a match page URL, or parses a bare number
func MatchID(ref string) (int64, bool) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if id < 0 {
			return 0, false
		}
		return id, true
	}
	return firstID(matchPattern, ref)
}

func firstID(pattern *regexp.Regexp, s string) (int64, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Naming splits link text into a display name, a role and a captaincy marker
type Naming struct {
	roles   *normalize.Suffixes
	markers *normalize.Suffixes
}

// NewNaming builds a Naming from role and marker vocabularies
func NewNaming(roles, markers []string) *Naming {
	return &Naming{
		roles:   normalize.NewSuffixes(roles),
		markers: normalize.NewSuffixes(markers),
	}
}

// PlayerName is the result of splitting a player's link text
type PlayerName struct {
	Name   string
	Role   string
	Marker string
}

// Captain reports whether the marker names the player as captain
func (p PlayerName) Captain() bool {
	switch p.Marker {
	case normalize.MarkerCaptain, normalize.MarkerCaptainKeeper, normalize.MarkerKeeperCaptain:
		return true
	}
	return false
}

// ViceCaptain reports whether the marker names the player as vice captain
func (p PlayerName) ViceCaptain() bool {
	return p.Marker == normalize.MarkerViceCaptain
}

// Split strips one role suffix and then one captaincy marker from text.
// "Paul Stirling (c)Batter" yields name "Paul Stirling", role "Batter", marker "(c)".
func (n *Naming) Split(text string) PlayerName {
	text = normalize.Text(text)
	name, role, _ := n.roles.Strip(text)
	name, marker, _ := n.markers.Strip(name)
	return PlayerName{
		Name:   strings.TrimSpace(name),
		Role:   role,
		Marker: marker,
	}
}

// CleanName removes a captaincy marker from an already stored name
func (n *Naming) CleanName(name string) string {
	cleaned, _, _ := n.markers.Strip(name)
	return strings.TrimSpace(cleaned)
}
