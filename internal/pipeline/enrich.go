package pipeline

import (
	"context"
	"fmt"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/storage"
)

// EnrichReport summarizes a profile enrichment pass
type EnrichReport struct {
	Candidates int `json:"candidates" yaml:"candidates"`
	Enriched   int `json:"enriched" yaml:"enriched"`
	Empty      int `json:"empty" yaml:"empty"`
	Skipped    int `json:"skipped" yaml:"skipped"`
}

// Enrich fetches the profile page of every player still missing a country
// and fills in the biography fields it finds. limit <= 0 processes everyone.
func (p *Pipeline) Enrich(ctx context.Context, limit int) (EnrichReport, error) {
	var report EnrichReport

	players, err := p.store.PlayersMissingProfile(ctx, limit)
	if err != nil {
		return report, err
	}
	report.Candidates = len(players)

	for _, pl := range players {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		url := p.cfg.URL(fmt.Sprintf(p.cfg.URLs.Profile, pl.ID, Slug(pl.Name)))
		doc, err := p.get(ctx, url)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			logger.Warn("Skipping profile: fetch failed", logger.Fields{"player_id": pl.ID, "url": url, "error": err.Error()})
			report.Skipped++
			continue
		}

		profile := p.extractor.ParseProfile(doc, pl.ID)
		if profile.Empty() {
			logger.Info("Profile had no biography fields", logger.Fields{"player_id": pl.ID, "name": pl.Name})
			report.Empty++
			continue
		}

		err = p.store.Update(ctx, func(tx *storage.Tx) error {
			_, err := tx.EnrichPlayer(ctx, pl.ID, profile)
			return err
		})
		if err != nil {
			logger.Error("Profile write failed", logger.Fields{"player_id": pl.ID}, err)
			report.Skipped++
			continue
		}

		report.Enriched++
		p.metrics.IncrCounter("players.enriched")
		logger.Info("Player enriched", logger.Fields{
			"player_id": pl.ID,
			"name":      pl.Name,
			"country":   profile.Country,
			"born":      profile.BirthDate,
		})
	}
	return report, nil
}
