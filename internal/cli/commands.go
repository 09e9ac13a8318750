package cli

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/config"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/record"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/storage"
)

func newScrapeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [match-id|match-url ...]",
		Short: "Scrape matches and store them",
		Long: `Fetches the overview, squads and scorecard pages of each match and stores
the results. Without arguments the configured match_ids are scraped. A match
whose pages cannot all be fetched is skipped and the run continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			ids := s.cfg.MatchIDs
			if len(args) > 0 {
				if ids, err = config.ParseMatchIDs(args); err != nil {
					return err
				}
			}

			report, runErr := s.pipeline().Run(ctx, ids)

			result := &ScrapeOutput{CheckedAt: time.Now().UTC(), Report: report}
			if opts.verbose {
				snap := s.metrics.Snapshot()
				result.Metrics = &snap
			}
			if err := WriteOutput(opts.stdout, result, s.format, opts.verbose); err != nil {
				return errors.Wrap(err, "writing output")
			}
			return runErr
		},
	}
}

func newEnrichCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill in player biographies from profile pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			report, runErr := s.pipeline().Enrich(ctx, limit)

			result := &EnrichOutput{EnrichReport: report}
			if opts.verbose {
				snap := s.metrics.Snapshot()
				result.Metrics = &snap
			}
			if err := WriteOutput(opts.stdout, result, s.format, opts.verbose); err != nil {
				return errors.Wrap(err, "writing output")
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of players to enrich (0 for all)")
	return cmd
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			result := &MigrateOutput{
				Database: s.store.Path(),
				Actions:  s.schema.Actions,
				Excluded: s.schema.Excluded(),
			}
			return WriteOutput(opts.stdout, result, s.format, opts.verbose)
		},
	}
}

func newBackfillCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Clean stored player names and birth dates",
		Long: `Strips captaincy markers left in stored player names and rewrites birth
dates into DD/MM/YYYY. Rows already in canonical form are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			var result BackfillOutput
			if result.NamesCleaned, err = s.store.CleanPlayerNames(ctx, s.naming()); err != nil {
				return err
			}
			if result.DatesFormatted, err = s.store.FormatBirthDates(ctx); err != nil {
				return err
			}
			return WriteOutput(opts.stdout, &result, s.format, opts.verbose)
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	var sortFlag string

	cmd := &cobra.Command{
		Use:   "show [match-id]",
		Short: "Show stored matches, or one match in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := ParseSortOrder(sortFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if len(args) == 0 {
				matches, err := s.store.ListMatches(ctx)
				if err != nil {
					return err
				}
				sortMatches(matches, order)
				return WriteOutput(opts.stdout, &MatchList{Matches: matches}, s.format, opts.verbose)
			}

			ids, err := config.ParseMatchIDs(args)
			if err != nil {
				return err
			}
			detail, err := loadDetail(ctx, s.store, ids[0])
			if err != nil {
				return err
			}
			return WriteOutput(opts.stdout, detail, s.format, opts.verbose)
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", string(SortByID), "Sort order for the match list: id, team or venue")
	return cmd
}

// loadDetail gathers everything stored for one match, with player names
func loadDetail(ctx context.Context, store *storage.Storage, id int64) (*MatchDetail, error) {
	match, err := store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	players := make(map[int64]record.Player)
	player := func(pid int64) (record.Player, error) {
		if p, ok := players[pid]; ok {
			return p, nil
		}
		p, err := store.GetPlayer(ctx, pid)
		if errors.Is(err, storage.ErrNotFound) {
			return record.Player{ID: pid}, nil
		}
		if err != nil {
			return record.Player{}, err
		}
		players[pid] = *p
		return *p, nil
	}

	detail := &MatchDetail{Match: *match}

	squad, err := store.Squad(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, m := range squad {
		p, err := player(m.PlayerID)
		if err != nil {
			return nil, err
		}
		detail.Squad = append(detail.Squad, SquadLine{Name: p.Name, Role: p.Role, SquadMember: m})
	}

	batting, err := store.Batting(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, b := range batting {
		p, err := player(b.PlayerID)
		if err != nil {
			return nil, err
		}
		detail.Batting = append(detail.Batting, BattingLine{Name: p.Name, Batting: b})
	}

	bowling, err := store.Bowling(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, b := range bowling {
		p, err := player(b.PlayerID)
		if err != nil {
			return nil, err
		}
		detail.Bowling = append(detail.Bowling, BowlingLine{Name: p.Name, Bowling: b})
	}

	awards, err := store.Awards(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, a := range awards {
		p, err := player(a.PlayerID)
		if err != nil {
			return nil, err
		}
		detail.Awards = append(detail.Awards, AwardLine{PlayerName: p.Name, Award: a})
	}

	return detail, nil
}
