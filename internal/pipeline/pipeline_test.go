package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/config"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/scraper"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/storage"
)

const baseURL = "https://cricbuzz.test"

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.Mark(err, scraper.ErrFetch)
	}
	if !ok {
		return nil, errors.Mark(errors.Newf("unexpected status code 404 for %s", url), scraper.ErrFetch)
	}
	return scraper.Parse(strings.NewReader(html))
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	require.NoError(t, err, "failed to load test fixture")
	return string(data)
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:    baseURL,
		SquadLimit: scraper.DefaultSquadLimit,
		URLs: config.URLs{
			Overview:          "/live-cricket-scores/%d/match",
			Scorecard:         "/live-cricket-scorecard/%d/match",
			ScorecardFallback: "/live-cricket-scorecard/%d/scorecard",
			Squads:            "/cricket-match-squads/%d/squads",
			Profile:           "/profiles/%d/%s",
		},
	}
}

func matchPages(t *testing.T, id string) map[string]string {
	return map[string]string{
		baseURL + "/live-cricket-scores/" + id + "/match":    fixture(t, "overview.html"),
		baseURL + "/cricket-match-squads/" + id + "/squads":  fixture(t, "squads.html"),
		baseURL + "/live-cricket-scorecard/" + id + "/match": fixture(t, "scorecard.html"),
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, fetcher Fetcher) (*Pipeline, *storage.Storage) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "cricbuzz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Migrate(context.Background())
	require.NoError(t, err)

	extractor := scraper.NewExtractor(nil, cfg.SquadLimit, nil)
	return New(cfg, fetcher, extractor, store, nil), store
}

type storedMatch struct {
	Match   *record.Match
	Squad   []record.SquadMember
	Batting []record.Batting
	Bowling []record.Bowling
	Awards  []record.Award
	Players map[int64]record.Player
}

func loadMatch(t *testing.T, store *storage.Storage, id int64) storedMatch {
	t.Helper()
	ctx := context.Background()

	var s storedMatch
	var err error
	s.Match, err = store.GetMatch(ctx, id)
	require.NoError(t, err)
	s.Squad, err = store.Squad(ctx, id)
	require.NoError(t, err)
	s.Batting, err = store.Batting(ctx, id)
	require.NoError(t, err)
	s.Bowling, err = store.Bowling(ctx, id)
	require.NoError(t, err)
	s.Awards, err = store.Awards(ctx, id)
	require.NoError(t, err)

	s.Players = make(map[int64]record.Player)
	ids := []int64{}
	for _, m := range s.Squad {
		ids = append(ids, m.PlayerID)
	}
	for _, b := range s.Batting {
		ids = append(ids, b.PlayerID)
	}
	for _, b := range s.Bowling {
		ids = append(ids, b.PlayerID)
	}
	for _, pid := range ids {
		p, err := store.GetPlayer(ctx, pid)
		require.NoError(t, err, "player %d referenced but not stored", pid)
		s.Players[pid] = *p
	}
	return s
}

func TestRun_StoresMatchIdempotently(t *testing.T) {
	fetcher := &fakeFetcher{pages: matchPages(t, "140559")}
	p, store := newTestPipeline(t, testConfig(), fetcher)
	ctx := context.Background()

	report, err := p.Run(ctx, []int64{140559})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, MatchResult{
		MatchID: 140559, Status: StatusStored,
		Squad: 6, Batting: 3, Bowling: 3, Awards: 1, Captains: 3,
	}, report.Matches[0])

	first := loadMatch(t, store, 140559)

	_, err = p.Run(ctx, []int64{140559})
	require.NoError(t, err)
	second := loadMatch(t, store, 140559)

	assert.Equal(t, first, second)

	assert.Equal(t, "Ireland", second.Match.Team1)
	assert.Equal(t, "Zimbabwe", second.Match.Team2)
	assert.Equal(t, "Ireland", second.Match.WinnerText())
	assert.Equal(t, "Stormont, Belfast", second.Match.Venue)
	assert.Equal(t, []record.Award{{MatchID: 140559, PlayerID: 1114, Name: record.AwardPlayerOfTheMatch}}, second.Awards)

	flags := make(map[int64][2]bool)
	for _, m := range second.Squad {
		flags[m.PlayerID] = [2]bool{m.IsCaptain, m.IsViceCaptain}
	}
	assert.Equal(t, [2]bool{true, false}, flags[1114])
	assert.Equal(t, [2]bool{true, false}, flags[12345])
	assert.Equal(t, [2]bool{false, true}, flags[8807])
	assert.Equal(t, [2]bool{false, false}, flags[9311])

	assert.Equal(t, "Craig Young", second.Players[11000].Name, "scorecard-only player is created")
	assert.Equal(t, "WK-Batter", second.Players[10692].Role)
}

func TestRun_FetchFailureSkipsWholeMatch(t *testing.T) {
	pages := matchPages(t, "140559")
	for k, v := range matchPages(t, "140548") {
		if !strings.Contains(k, "squads") {
			pages[k] = v
		}
	}
	fetcher := &fakeFetcher{pages: pages}
	p, store := newTestPipeline(t, testConfig(), fetcher)
	ctx := context.Background()

	report, err := p.Run(ctx, []int64{140548, 140559})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Stored)
	assert.Equal(t, StatusSkipped, report.Matches[0].Status)
	assert.NotEmpty(t, report.Matches[0].Error)

	_, err = store.GetMatch(ctx, 140548)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "skipped match must not be written")

	for _, url := range fetcher.calls {
		assert.NotContains(t, url, "/live-cricket-scorecard/140548/", "scorecard is not fetched after squads failed")
	}
}

func TestRun_ScorecardFallbackURL(t *testing.T) {
	pages := matchPages(t, "140537")
	delete(pages, baseURL+"/live-cricket-scorecard/140537/match")
	pages[baseURL+"/live-cricket-scorecard/140537/scorecard"] = fixture(t, "scorecard.html")

	fetcher := &fakeFetcher{pages: pages}
	p, store := newTestPipeline(t, testConfig(), fetcher)

	report, err := p.Run(context.Background(), []int64{140537})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored)

	batting, err := store.Batting(context.Background(), 140537)
	require.NoError(t, err)
	assert.Len(t, batting, 3)
	assert.Contains(t, fetcher.calls, baseURL+"/live-cricket-scorecard/140537/scorecard")
}

func TestRun_CancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{pages: matchPages(t, "140559")}
	p, store := newTestPipeline(t, testConfig(), fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []int64{140559})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.calls)

	matches, err := store.ListMatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRun_DelayHonoursDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.Delay = time.Hour
	fetcher := &fakeFetcher{pages: matchPages(t, "140559")}
	p, store := newTestPipeline(t, cfg, fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Run(ctx, []int64{140559})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Len(t, fetcher.calls, 1, "only the first page is fetched before the delay")

	matches, err := store.ListMatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEnrich(t *testing.T) {
	pages := matchPages(t, "140559")
	pages[baseURL+"/profiles/1114/paul-stirling"] = fixture(t, "profile.html")
	pages[baseURL+"/profiles/9311/andrew-balbirnie"] = `<html><body><p>Profile unavailable</p></body></html>`

	fetcher := &fakeFetcher{pages: pages}
	p, store := newTestPipeline(t, testConfig(), fetcher)
	ctx := context.Background()

	_, err := p.Run(ctx, []int64{140559})
	require.NoError(t, err)

	report, err := p.Enrich(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, EnrichReport{Candidates: 7, Enriched: 1, Empty: 1, Skipped: 5}, report)

	player, err := store.GetPlayer(ctx, 1114)
	require.NoError(t, err)
	assert.Equal(t, record.Player{
		ID: 1114, Name: "Paul Stirling", Role: "Batting Allrounder",
		BirthDate: "03/09/1990", BirthPlace: "Belfast, Northern Ireland", Country: "Ireland",
	}, *player)

	again, err := p.Enrich(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Candidates, "limit caps the candidates")
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Paul Stirling":       "paul-stirling",
		"Mohammad Nabi (c)":   "mohammad-nabi-c",
		"  A.B. de Villiers ": "a-b-de-villiers",
	}
	for name, want := range tests {
		assert.Equal(t, want, Slug(name), name)
	}
}
