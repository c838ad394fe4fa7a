package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"animehub/internal/anime"
	"animehub/internal/scraper"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun   bool
		pages    int
		mirror   string
		noJikan  bool
		asJSON   bool
		deadline time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the configured sources, merge duplicates and update the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			run := *cfg
			if cmd.Flags().Changed("pages") {
				run.Scraper.JikanPages = pages
			}
			if noJikan {
				run.Scraper.JikanPages = 0
			}
			if mirror != "" {
				run.Scraper.MirrorURL = mirror
			}

			agg := scraper.NewAggregatorFromConfig(&run, ctx.log())
			if len(agg.Sources) == 0 {
				return fmt.Errorf("no sources enabled: set scraper.jikan_pages or scraper.mirror_url")
			}

			runCtx := cmd.Context()
			if deadline > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, deadline)
				defer cancel()
			}

			if dryRun {
				items, results, err := agg.FetchAndMerge(runCtx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSources(results))
				fmt.Fprintf(cmd.OutOrStdout(), "%d merged records (dry run, catalog unchanged)\n", len(items))
				return nil
			}

			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			pipeline := &scraper.Pipeline{
				Aggregator: agg,
				Store:      anime.NewRepo(db),
				Logger:     ctx.log().Named("ingest"),
			}
			rep, err := pipeline.Run(runCtx)
			if err != nil {
				return err
			}
			ctx.log().Debug("scrape finished", zap.Int("merged", rep.Merged))

			if asJSON {
				return writeJSON(cmd, map[string]any{"merged": rep.Merged, "grown": rep.Grown})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSources(rep.Sources))
			fmt.Fprintf(out, "%d records stored, %d with new episodes\n", rep.Merged, len(rep.Grown))
			for _, g := range rep.Grown {
				fmt.Fprintf(out, "  %s: %d -> %d episodes\n", g.Title, g.Previous, g.Episodes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch and merge without writing the catalog")
	cmd.Flags().IntVar(&pages, "pages", 0, "Override scraper.jikan_pages")
	cmd.Flags().BoolVar(&noJikan, "no-jikan", false, "Skip the Jikan source")
	cmd.Flags().StringVar(&mirror, "mirror", "", "Override scraper.mirror_url")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the result as JSON")
	cmd.Flags().DurationVar(&deadline, "timeout", 0, "Abort the run after this long (0 = no limit)")
	return cmd
}

func renderSources(results []scraper.SourceResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = truncate(r.Err.Error(), 60)
		}
		rows = append(rows, []string{r.Name, strconv.Itoa(r.Count), errText})
	}
	return renderTable([]string{"Source", "Records", "Error"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
}
