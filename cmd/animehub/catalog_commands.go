package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animehub/internal/anime"
	"animehub/internal/series"
	"animehub/pkg/models"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the local anime catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogSeriesCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	return catalogCmd
}

type queryFlags struct {
	q          string
	genres     []string
	status     string
	format     string
	year       int
	limit      int
	offset     int
	unfiltered bool
	asJSON     bool
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.q, "query", "q", "", "Keyword matched against titles")
	cmd.Flags().StringSliceVarP(&f.genres, "genre", "g", nil, "Genre filter (any match, repeatable)")
	cmd.Flags().StringVar(&f.status, "status", "", "Airing status (airing, finished, upcoming)")
	cmd.Flags().StringVar(&f.format, "format", "", "Format (TV, Movie, OVA, ...)")
	cmd.Flags().IntVar(&f.year, "year", 0, "Release year")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 20, "Maximum rows (1-100)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&f.unfiltered, "unfiltered", false, "Skip the configured content filter")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Write results as JSON")
}

func (f *queryFlags) query() anime.ListQuery {
	return anime.ListQuery{
		Q:      f.q,
		Genres: f.genres,
		Status: f.status,
		Format: f.format,
		Year:   f.year,
		Limit:  f.limit,
		Offset: f.offset,
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog records",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			repo := anime.NewRepo(db)
			q := flags.query()
			total, err := repo.Count(cmd.Context(), q)
			if err != nil {
				return err
			}
			items, err := repo.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			visible := ctx.filter(flags.unfiltered).Apply(items)

			if flags.asJSON {
				return writeJSON(cmd, map[string]any{
					"total":  total,
					"hidden": len(items) - len(visible),
					"items":  visible,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderAnime(visible))
			fmt.Fprintf(out, "showing %d of %d", len(visible), total)
			if hidden := len(items) - len(visible); hidden > 0 {
				fmt.Fprintf(out, " (%d hidden by filter)", hidden)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func renderAnime(items []models.Anime) string {
	headers := []string{"ID", "Title", "Year", "Format", "Episodes", "Rating", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			a.ID,
			truncate(a.DisplayName(), 50),
			count(a.Year),
			a.Format,
			count(a.Episodes),
			score(a.Score()),
			label(a.Status),
		})
	}
	return renderTable(headers, rows, aligns)
}

func newCatalogSeriesCommand(ctx *commandContext) *cobra.Command {
	var (
		flags       queryFlags
		sortBy      string
		showSeasons bool
	)

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Group catalog records into series",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := series.ParseSortKey(sortBy)
			if err != nil {
				return err
			}

			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := anime.NewRepo(db).ListAll(cmd.Context(), flags.query())
			if err != nil {
				return err
			}
			groups := series.GroupIntoSeries(ctx.filter(flags.unfiltered).Apply(items))
			series.SortGroups(groups, key)

			total := len(groups)
			offset := max(flags.offset, 0)
			limit := flags.limit
			if limit <= 0 {
				limit = total
			}
			page := groups[min(offset, total):min(offset+limit, total)]

			if flags.asJSON {
				return writeJSON(cmd, map[string]any{"total": total, "sort": key, "items": page})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderGroups(page, showSeasons))
			fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d series\n", len(page), total)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&sortBy, "sort", string(series.SortRating), "Order by rating, year, title or episodes")
	cmd.Flags().BoolVarP(&showSeasons, "seasons", "s", false, "List every season under its series")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record and the series it belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			repo := anime.NewRepo(db)
			a, err := repo.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a == nil {
				return fmt.Errorf("anime %q not found", args[0])
			}
			all, err := repo.ListAll(cmd.Context(), anime.ListQuery{})
			if err != nil {
				return err
			}
			g, ok := series.GroupFor(series.GroupIntoSeries(all), a.ID)
			if !ok {
				g = series.GroupIntoSeries([]models.Anime{*a})[0]
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{"anime": a, "series": g})
			}

			rows := [][]string{
				{"ID", a.ID},
				{"Title", a.Title},
				{"English", a.TitleEnglish},
				{"Format", a.Format},
				{"Status", label(a.Status)},
				{"Year", count(a.Year)},
				{"Episodes", count(a.Episodes)},
				{"Rating", score(a.Score())},
				{"Genres", strings.Join(a.Genres, ", ")},
				{"Series", g.DisplayTitle + " (" + strconv.Itoa(g.SeasonCount) + " seasons)"},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			fmt.Fprintln(out, renderGroups([]series.Group{g}, true))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the record and its series as JSON")
	return cmd
}
