// Package scraper fetches cricbuzz pages and extracts match facts from them.
//
// Client fetches a page and parses it into a goquery document. Extractor turns
// documents into records; every field is located by an ordered resolver.Chain,
// so a page that changed its markup still resolves through an older or more
// generic strategy:
//
//	overview   title, teams, match name, venue, result
//	squads     two team columns of profile links, names split from role and marker
//	scorecard  batting and bowling rows read positionally
//	awards     player of the match
//	captains   captain and vice captain badges, labels or inline markers
//	profile    country, birth date, birth place, role
//
// Extraction never fails for a missing element; the field is logged at debug
// level and left empty.
package scraper
