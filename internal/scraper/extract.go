package scraper

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/identity"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/resolver"
)

// DefaultSquadLimit keeps the playing XI of each team
const DefaultSquadLimit = 11

var (
	venueLabel   = regexp.MustCompile(`(?i)^venue\s*:?$`)
	resultText   = regexp.MustCompile(`(?i)\bwon by\b|\bmatch tied\b|\bno result\b`)
	potmLabel    = regexp.MustCompile(`(?i)player of the match`)
	captainLabel = regexp.MustCompile(`(?i)^captain\s*:?$`)
	viceLabel    = regexp.MustCompile(`(?i)^vice[\s-]?captain\s*:?$`)
	bornLabel    = regexp.MustCompile(`(?i)^born$`)
	placeLabel   = regexp.MustCompile(`(?i)^birth\s*place$`)
	roleLabel    = regexp.MustCompile(`(?i)^role$`)
	countryLabel = regexp.MustCompile(`(?i)^country$`)

	captainMarker = regexp.MustCompile(`(?i)\(\s*(?:c|c\s*&\s*wk|wk\s*&\s*c)\s*\)`)
	viceMarker    = regexp.MustCompile(`(?i)\(\s*vc\s*\)`)

	battingSkip = regexp.MustCompile(`(?i)^(batter|extras|total|did not bat|yet to bat|fall of wickets)\b`)
	bowlingSkip = regexp.MustCompile(`(?i)^(bowler|extras|total)\b`)
)

// Field chains, most specific strategy first
var (
	TitleChain = resolver.Chain{
		resolver.Selector("heading", "h1"),
		resolver.Selector("document title", "title"),
	}

	VenueChain = resolver.Chain{
		resolver.Selector("venue link", `a[href*="/venues/"]`),
		resolver.Label("venue label", venueLabel, 3, resolver.SecondColumn(venueLabel)),
		resolver.Label("venue label sibling", venueLabel, 1, resolver.NextText()),
	}

	ResultChain = resolver.Chain{
		resolver.Selector("complete status", ".cb-text-complete"),
		resolver.Label("result text", resultText, 1, resolver.OwnText()),
	}

	SquadChain = resolver.Chain{
		atLeast(2, resolver.Selector("half columns", `div[class~="w-1/2"]`)),
		atLeast(2, resolver.Selector("playing xi columns", ".cb-play11-lft-col, .cb-play11-rt-col")),
	}

	BattingChain = resolver.Chain{
		resolver.Layout{Name: "bat grid", Rows: `div[class*="scorecard-bat-grid"]`, Columns: "div", MinColumns: 6, Skip: battingSkip}.Strategy(),
		resolver.Layout{Name: "batting table", Rows: "table.scorecard-batting tr", Columns: "td", MinColumns: 6, Skip: battingSkip}.Strategy(),
	}

	BowlingChain = resolver.Chain{
		resolver.Layout{Name: "bowl grid", Rows: `div[class*="scorecard-bowl-grid"]`, MinColumns: 8, Skip: bowlingSkip}.Strategy(),
		resolver.Layout{Name: "bowling table", Rows: "table.scorecard-bowling tr", Columns: "td", MinColumns: 8, Skip: bowlingSkip}.Strategy(),
	}

	PlayerOfTheMatchChain = resolver.Chain{
		resolver.Selector("mom item", ".cb-mom-itm "+resolver.ProfileLinks),
		resolver.Label("potm label", potmLabel, 3, resolver.FirstLink(resolver.ProfileLinks)),
		resolver.Marker("potm marker", potmLabel, resolver.ProfileLinks),
	}

	CaptainChain = resolver.Chain{
		badge("captain badge", `[title="Captain"]`),
		resolver.Label("captain label", captainLabel, 3, resolver.FirstLink(resolver.ProfileLinks)),
		resolver.Marker("captain marker", captainMarker, resolver.ProfileLinks),
	}

	ViceCaptainChain = resolver.Chain{
		badge("vice captain badge", `[title="Vice Captain"], [title="Vice-Captain"]`),
		resolver.Label("vice captain label", viceLabel, 3, resolver.FirstLink(resolver.ProfileLinks)),
		resolver.Marker("vice captain marker", viceMarker, resolver.ProfileLinks),
	}

	CountryChain = resolver.Chain{
		resolver.Selector("country heading", "span.text-base.text-gray-800"),
		resolver.Selector("country badge", `span.text-white[class~="text-[10px]"]`),
		resolver.Label("country label", countryLabel, 2, resolver.SecondColumn(countryLabel)),
	}

	BornChain       = resolver.Chain{resolver.Label("born label", bornLabel, 2, resolver.SecondColumn(bornLabel))}
	BirthPlaceChain = resolver.Chain{resolver.Label("birth place label", placeLabel, 2, resolver.SecondColumn(placeLabel))}
	RoleChain       = resolver.Chain{resolver.Label("role label", roleLabel, 2, resolver.SecondColumn(roleLabel))}
)

// atLeast keeps the first n values of s, and only when s finds n or more
func atLeast(n int, s resolver.Strategy) resolver.Strategy {
	return resolver.Strategy{
		Name: s.Name,
		Find: func(root *goquery.Selection) []resolver.Value {
			values := s.Find(root)
			if len(values) < n {
				return nil
			}
			return values[:n]
		},
	}
}

// badge finds marker elements and resolves each to the single profile link of
// its nearest enclosing container. Containers holding several links are
// ambiguous and skipped.
func badge(name, css string) resolver.Strategy {
	return resolver.Strategy{
		Name: name,
		Find: func(root *goquery.Selection) []resolver.Value {
			var values []resolver.Value
			root.Find(css).Each(func(_ int, b *goquery.Selection) {
				if b.Is(resolver.ProfileLinks) {
					values = append(values, linkValue(b))
					return
				}
				container := b
				for level := 0; level < 3 && container.Length() > 0; level++ {
					links := container.Find(resolver.ProfileLinks)
					if links.Length() == 1 {
						values = append(values, linkValue(links))
						return
					}
					if links.Length() > 1 {
						return
					}
					container = container.Parent()
				}
			})
			return values
		},
	}
}

func linkValue(sel *goquery.Selection) resolver.Value {
	href, _ := sel.Attr("href")
	return resolver.Value{Text: normalize.Text(sel.Text()), Href: href, Node: sel}
}

// Extractor turns cricbuzz documents into records
type Extractor struct {
	naming     *identity.Naming
	squadLimit int
	metrics    *logger.Metrics
}

// NewExtractor creates an Extractor. squadLimit caps the players read per team;
// 0 means no cap. metrics may be nil.
func NewExtractor(naming *identity.Naming, squadLimit int, metrics *logger.Metrics) *Extractor {
	if naming == nil {
		naming = identity.NewNaming(normalize.DefaultRoles, normalize.DefaultMarkers)
	}
	return &Extractor{naming: naming, squadLimit: squadLimit, metrics: metrics}
}

// resolve runs a chain and logs the outcome for the field
func (e *Extractor) resolve(field string, chain resolver.Chain, root *goquery.Selection, fields logger.Fields) resolver.Result {
	res := chain.Resolve(root)

	logFields := logger.Fields{"field": field}
	for k, v := range fields {
		logFields[k] = v
	}
	if res.Found() {
		logFields["strategy"] = res.Strategy
		logFields["values"] = len(res.Values)
		logger.Debug("Field resolved", logFields)
		e.count("field.resolved." + field)
	} else {
		logger.Debug("Field not found", logFields)
		e.count("field.missed." + field)
	}
	return res
}

func (e *Extractor) count(name string) {
	if e.metrics != nil {
		e.metrics.IncrCounter(name)
	}
}

func root(doc *goquery.Document) *goquery.Selection {
	if doc == nil {
		return nil
	}
	return doc.Selection
}

// ParseOverview extracts the match row from the live scores page
func (e *Extractor) ParseOverview(doc *goquery.Document, matchID int64) record.Match {
	fields := logger.Fields{"match_id": matchID, "page": "overview"}
	m := record.Match{ID: matchID, Team1: record.Unknown, Team2: record.Unknown, Venue: record.Unknown}

	if v, ok := e.resolve("title", TitleChain, root(doc), fields).First(); ok {
		t := ParseTitle(v.Text)
		m.Team1, m.Team2, m.Name = t.Team1, t.Team2, t.Name
	}

	if v, ok := e.resolve("venue", VenueChain, root(doc), fields).First(); ok {
		m.Venue = v.Text
	}

	if v, ok := e.resolve("result", ResultChain, root(doc), fields).First(); ok {
		m.Winner = Winner(v.Text, m.Team1, m.Team2)
	}
	return m
}

// SquadEntry is one player listed in a team column
type SquadEntry struct {
	Player record.Player
	Team   string
}

// ParseSquads reads both team columns of the squads page. Teams are named
// from match when known, otherwise from the squads page title. Links without
// a profile ID are dropped.
func (e *Extractor) ParseSquads(doc *goquery.Document, match record.Match) []SquadEntry {
	fields := logger.Fields{"match_id": match.ID, "page": "squads"}

	teams := [2]string{match.Team1, match.Team2}
	if teams[0] == record.Unknown || teams[1] == record.Unknown || teams[0] == "" || teams[1] == "" {
		if v, ok := e.resolve("title", TitleChain, root(doc), fields).First(); ok {
			t := ParseTitle(v.Text)
			teams = [2]string{t.Team1, t.Team2}
		}
	}

	res := e.resolve("squads", SquadChain, root(doc), fields)
	var entries []SquadEntry
	for i, col := range res.Values {
		count := 0
		col.Node.Find(resolver.ProfileLinks).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if e.squadLimit > 0 && count >= e.squadLimit {
				return false
			}
			href, _ := link.Attr("href")
			id, ok := identity.PlayerID(href)
			if !ok {
				e.dropped("squads", match.ID, href)
				return true
			}
			name := e.naming.Split(link.Text())
			entries = append(entries, SquadEntry{
				Player: record.Player{ID: id, Name: name.Name, Role: name.Role},
				Team:   teams[i],
			})
			count++
			return true
		})
	}
	return entries
}

func (e *Extractor) dropped(page string, matchID int64, href string) {
	logger.Debug("Record dropped: no player id in link", logger.Fields{"page": page, "match_id": matchID, "href": href})
	e.count("records.dropped")
}

// Scorecard holds the batting and bowling lines of a match together with the
// players they reference
type Scorecard struct {
	Batting []record.Batting
	Bowling []record.Bowling
	Players []record.Player
}

// ParseScorecard reads batting and bowling rows positionally
func (e *Extractor) ParseScorecard(doc *goquery.Document, matchID int64) Scorecard {
	fields := logger.Fields{"match_id": matchID, "page": "scorecard"}
	var sc Scorecard
	seen := make(map[int64]bool)

	addPlayer := func(p record.Player) {
		if !seen[p.ID] {
			seen[p.ID] = true
			sc.Players = append(sc.Players, p)
		}
	}

	for _, row := range e.resolve("batting", BattingChain, root(doc), fields).Values {
		p, ok := e.rowPlayer(row, matchID)
		if !ok {
			continue
		}
		addPlayer(p)
		sc.Batting = append(sc.Batting, record.Batting{
			MatchID:    matchID,
			PlayerID:   p.ID,
			Runs:       normalize.Int(row.Column(1)),
			Balls:      normalize.Int(row.Column(2)),
			Fours:      normalize.Int(row.Column(3)),
			Sixes:      normalize.Int(row.Column(4)),
			StrikeRate: normalize.Float(row.Column(5)),
		})
	}

	for _, row := range e.resolve("bowling", BowlingChain, root(doc), fields).Values {
		p, ok := e.rowPlayer(row, matchID)
		if !ok {
			continue
		}
		addPlayer(p)
		sc.Bowling = append(sc.Bowling, record.Bowling{
			MatchID:  matchID,
			PlayerID: p.ID,
			Overs:    normalize.Float(row.Column(1)),
			Maidens:  normalize.Int(row.Column(2)),
			Runs:     normalize.Int(row.Column(3)),
			Wickets:  normalize.Int(row.Column(4)),
			NoBalls:  normalize.Int(row.Column(5)),
			Wides:    normalize.Int(row.Column(6)),
			Economy:  normalize.Float(row.Column(7)),
		})
	}
	return sc
}

// rowPlayer resolves the player linked from a row's first column. Rows
// without a profile link (extras, totals) are skipped silently.
func (e *Extractor) rowPlayer(row resolver.Value, matchID int64) (record.Player, bool) {
	if len(row.Columns) == 0 {
		return record.Player{}, false
	}
	first := row.Columns[0]
	link := first
	if !first.Is(resolver.ProfileLinks) {
		link = first.Find(resolver.ProfileLinks).First()
	}
	if link.Length() == 0 {
		return record.Player{}, false
	}
	href, _ := link.Attr("href")
	id, ok := identity.PlayerID(href)
	if !ok {
		e.dropped("scorecard", matchID, href)
		return record.Player{}, false
	}
	return record.Player{ID: id, Name: e.naming.Split(link.Text()).Name}, true
}

// Awarded is an award with the player it names
type Awarded struct {
	Award  record.Award
	Player record.Player
}

// ParseAwards extracts the player of the match
func (e *Extractor) ParseAwards(doc *goquery.Document, matchID int64) []Awarded {
	fields := logger.Fields{"match_id": matchID, "page": "overview"}
	v, ok := e.resolve("player_of_the_match", PlayerOfTheMatchChain, root(doc), fields).First()
	if !ok {
		return nil
	}
	id, ok := identity.PlayerID(v.Href)
	if !ok {
		e.dropped("awards", matchID, v.Href)
		return nil
	}
	return []Awarded{{
		Award:  record.Award{MatchID: matchID, PlayerID: id, Name: record.AwardPlayerOfTheMatch},
		Player: record.Player{ID: id, Name: e.naming.Split(v.Text).Name},
	}}
}

// Captains lists the players flagged as captain or vice captain
type Captains struct {
	Captains     []int64
	ViceCaptains []int64
}

// Empty reports whether no leader was found
func (c Captains) Empty() bool {
	return len(c.Captains) == 0 && len(c.ViceCaptains) == 0
}

// ParseCaptains finds the captains and vice captains on the first document
// that names any
func (e *Extractor) ParseCaptains(matchID int64, docs ...*goquery.Document) Captains {
	var c Captains
	for _, doc := range docs {
		fields := logger.Fields{"match_id": matchID}
		c.Captains = e.leaderIDs(e.resolve("captain", CaptainChain, root(doc), fields), matchID)
		c.ViceCaptains = e.leaderIDs(e.resolve("vice_captain", ViceCaptainChain, root(doc), fields), matchID)
		if !c.Empty() {
			return c
		}
	}
	return c
}

func (e *Extractor) leaderIDs(res resolver.Result, matchID int64) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, v := range res.Values {
		id, ok := identity.PlayerID(v.Href)
		if !ok {
			e.dropped("captains", matchID, v.Href)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// ParseProfile extracts biography fields from a player profile page. The
// birth date is canonicalized when it can be parsed.
func (e *Extractor) ParseProfile(doc *goquery.Document, playerID int64) record.Profile {
	fields := logger.Fields{"player_id": playerID, "page": "profile"}
	var p record.Profile

	if v, ok := e.resolve("country", CountryChain, root(doc), fields).First(); ok {
		p.Country = v.Text
	}
	if v, ok := e.resolve("born", BornChain, root(doc), fields).First(); ok {
		p.BirthDate = normalize.Date(v.Text)
	}
	if v, ok := e.resolve("birth_place", BirthPlaceChain, root(doc), fields).First(); ok {
		p.BirthPlace = v.Text
	}
	if v, ok := e.resolve("role", RoleChain, root(doc), fields).First(); ok {
		p.Role = v.Text
	}
	return p
}
