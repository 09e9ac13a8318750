// Package pipeline scrapes matches one at a time and stores them.
//
// For every match identifier the overview, squads and scorecard pages are all
// fetched before anything is written; a page that cannot be fetched skips the
// whole match. The extracted records are then committed in one transaction, so
// an interrupted run leaves every finished match complete and nothing of the
// match in progress.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/config"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/scraper"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/storage"
)

// Fetcher retrieves and parses one page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Pipeline wires fetching, extraction and storage together
type Pipeline struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor *scraper.Extractor
	store     *storage.Storage
	metrics   *logger.Metrics

	fetched bool
}

// New creates a pipeline. metrics may be nil.
func New(cfg *config.Config, fetcher Fetcher, extractor *scraper.Extractor, store *storage.Storage, metrics *logger.Metrics) *Pipeline {
	if metrics == nil {
		metrics = logger.NewMetrics()
	}
	return &Pipeline{cfg: cfg, fetcher: fetcher, extractor: extractor, store: store, metrics: metrics}
}

// Status is the outcome of one match
type Status string

const (
	StatusStored  Status = "stored"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// MatchResult summarizes one match of a run
type MatchResult struct {
	MatchID  int64  `json:"match_id" yaml:"match_id"`
	Status   Status `json:"status" yaml:"status"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Squad    int    `json:"squad" yaml:"squad"`
	Batting  int    `json:"batting" yaml:"batting"`
	Bowling  int    `json:"bowling" yaml:"bowling"`
	Awards   int    `json:"awards" yaml:"awards"`
	Captains int    `json:"captains" yaml:"captains"`
}

// Report summarizes a run
type Report struct {
	Matches []MatchResult `json:"matches" yaml:"matches"`
	Stored  int           `json:"stored" yaml:"stored"`
	Skipped int           `json:"skipped" yaml:"skipped"`
	Failed  int           `json:"failed" yaml:"failed"`
}

func (r *Report) add(m MatchResult) {
	r.Matches = append(r.Matches, m)
	switch m.Status {
	case StatusStored:
		r.Stored++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Run scrapes the given matches in order. It only returns an error when ctx is
// cancelled; matches committed before that remain stored.
func (p *Pipeline) Run(ctx context.Context, ids []int64) (Report, error) {
	var report Report
	start := time.Now()

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		logger.Info("Processing match", logger.Fields{"match_id": id, "index": i + 1, "total": len(ids)})
		result := p.scrapeMatch(ctx, id)
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(result)
		p.metrics.IncrCounter("matches." + string(result.Status))
	}

	p.metrics.RecordTiming("run", time.Since(start))
	logger.Info("Run finished", logger.Fields{
		"stored":  report.Stored,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
	return report, nil
}

type pages struct {
	overview  *goquery.Document
	squads    *goquery.Document
	scorecard *goquery.Document
}

func (p *Pipeline) scrapeMatch(ctx context.Context, id int64) MatchResult {
	result := MatchResult{MatchID: id}

	pg, err := p.fetchPages(ctx, id)
	if err != nil {
		logger.Error("Skipping match: page fetch failed", logger.Fields{"match_id": id}, err)
		result.Status = StatusSkipped
		result.Error = err.Error()
		return result
	}

	match := p.extractor.ParseOverview(pg.overview, id)
	squad := p.extractor.ParseSquads(pg.squads, match)
	scorecard := p.extractor.ParseScorecard(pg.scorecard, id)
	awards := p.extractor.ParseAwards(pg.overview, id)
	captains := p.extractor.ParseCaptains(id, pg.squads, pg.scorecard)

	err = p.store.Update(ctx, func(tx *storage.Tx) error {
		if err := tx.UpsertMatch(ctx, match); err != nil {
			return err
		}

		for _, entry := range squad {
			if err := tx.UpsertPlayer(ctx, entry.Player); err != nil {
				return err
			}
			if _, err := tx.AddSquadMember(ctx, record.SquadMember{MatchID: id, PlayerID: entry.Player.ID, Team: entry.Team}); err != nil {
				return err
			}
		}
		result.Squad = len(squad)

		for _, pid := range captains.Captains {
			ok, err := tx.SetCaptain(ctx, id, pid)
			if err != nil {
				return err
			}
			p.reportLeader(id, pid, "captain", ok, &result)
		}
		for _, pid := range captains.ViceCaptains {
			ok, err := tx.SetViceCaptain(ctx, id, pid)
			if err != nil {
				return err
			}
			p.reportLeader(id, pid, "vice_captain", ok, &result)
		}

		for _, pl := range scorecard.Players {
			if err := tx.EnsurePlayer(ctx, pl.ID, pl.Name); err != nil {
				return err
			}
		}
		if err := tx.ReplaceScorecard(ctx, id, scorecard.Batting, scorecard.Bowling); err != nil {
			return err
		}
		result.Batting, result.Bowling = len(scorecard.Batting), len(scorecard.Bowling)

		for _, a := range awards {
			if err := tx.EnsurePlayer(ctx, a.Player.ID, a.Player.Name); err != nil {
				return err
			}
			if _, err := tx.AddAward(ctx, a.Award); err != nil {
				return err
			}
		}
		result.Awards = len(awards)
		return nil
	})
	if err != nil {
		logger.Error("Match write failed", logger.Fields{"match_id": id}, err)
		return MatchResult{MatchID: id, Status: StatusFailed, Error: err.Error()}
	}

	result.Status = StatusStored
	logger.Info("Match stored", logger.Fields{
		"match_id": id,
		"teams":    match.Team1 + " vs " + match.Team2,
		"winner":   match.WinnerText(),
		"squad":    result.Squad,
		"batting":  result.Batting,
		"bowling":  result.Bowling,
		"awards":   result.Awards,
		"captains": result.Captains,
	})
	return result
}

func (p *Pipeline) reportLeader(matchID, playerID int64, role string, ok bool, result *MatchResult) {
	if ok {
		result.Captains++
		return
	}
	logger.Info("Leader not in squad, flag not set", logger.Fields{
		"match_id":  matchID,
		"player_id": playerID,
		"role":      role,
	})
	p.metrics.IncrCounter("leaders.unmatched")
}

func (p *Pipeline) fetchPages(ctx context.Context, id int64) (pages, error) {
	var pg pages
	var err error

	if pg.overview, err = p.get(ctx, p.url(p.cfg.URLs.Overview, id)); err != nil {
		return pg, err
	}
	if pg.squads, err = p.get(ctx, p.url(p.cfg.URLs.Squads, id)); err != nil {
		return pg, err
	}
	pg.scorecard, err = p.get(ctx, p.url(p.cfg.URLs.Scorecard, id))
	if err != nil && p.cfg.URLs.ScorecardFallback != "" && ctx.Err() == nil {
		logger.Warn("Scorecard fetch failed, trying fallback", logger.Fields{"match_id": id, "error": err.Error()})
		pg.scorecard, err = p.get(ctx, p.url(p.cfg.URLs.ScorecardFallback, id))
	}
	return pg, err
}

// get waits the politeness delay before every fetch but the first
func (p *Pipeline) get(ctx context.Context, url string) (*goquery.Document, error) {
	if p.fetched {
		if err := Sleep(ctx, p.cfg.Delay); err != nil {
			return nil, err
		}
	}
	p.fetched = true
	return p.fetcher.Fetch(ctx, url)
}

func (p *Pipeline) url(template string, id int64) string {
	return p.cfg.URL(fmt.Sprintf(template, id))
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a player name into the profile URL segment, "Paul Stirling" -> "paul-stirling"
func Slug(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
