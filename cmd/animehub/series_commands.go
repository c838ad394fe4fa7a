package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animehub/internal/series"
	"animehub/pkg/models"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:         "series",
		Short:       "Infer series from titles without touching the catalog",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	seriesCmd.AddCommand(newSeriesGroupCommand())
	seriesCmd.AddCommand(newSeriesExtractCommand())
	return seriesCmd
}

func newSeriesGroupCommand() *cobra.Command {
	var (
		sortBy      string
		showSeasons bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "group <file.json|->",
		Short: "Group a JSON array of anime records into series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(cmd, args[0])
			if err != nil {
				return err
			}

			groups := series.GroupIntoSeries(records)
			if strings.TrimSpace(sortBy) != "" {
				key, err := series.ParseSortKey(sortBy)
				if err != nil {
					return err
				}
				series.SortGroups(groups, key)
			}

			if asJSON {
				return writeJSON(cmd, groups)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderGroups(groups, showSeasons))
			fmt.Fprintf(cmd.OutOrStdout(), "%d records in %d series\n", len(records), len(groups))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "Order groups by rating, year, title or episodes (default: input order)")
	cmd.Flags().BoolVarP(&showSeasons, "seasons", "s", false, "List every season under its series")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write groups as JSON")
	return cmd
}

func readRecords(cmd *cobra.Command, path string) ([]models.Anime, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var records []models.Anime
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records from %s: %w", path, err)
	}
	return records, nil
}

func renderGroups(groups []series.Group, showSeasons bool) string {
	headers := []string{"#", "Series", "Seasons", "Episodes", "Rating", "Year"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncate(g.DisplayTitle, 60),
			strconv.Itoa(g.SeasonCount),
			count(g.TotalEpisodes),
			score(g.Rating),
			count(g.Year),
		})
		if !showSeasons {
			continue
		}
		for _, s := range g.Seasons {
			rows = append(rows, []string{
				"",
				"  S" + strconv.Itoa(s.SeasonInfo.SeasonNumber) + "  " + truncate(s.DisplayName(), 54),
				"",
				count(s.Episodes),
				score(s.Score()),
				count(s.Year),
			})
		}
	}
	return renderTable(headers, rows, aligns)
}

type extractResult struct {
	Title        string `json:"title"`
	TitleEnglish string `json:"title_english,omitempty"`
	series.Info
	Key  string `json:"series_key"`
	Rule string `json:"rule"`
}

func newSeriesExtractCommand() *cobra.Command {
	var (
		english string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <title>",
		Short: "Show the series name and season inferred from a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			info, rule := series.Match(title, english)
			res := extractResult{
				Title:        title,
				TitleEnglish: english,
				Info:         info,
				Key:          series.NormalizeKey(info.SeriesName),
				Rule:         rule,
			}
			if asJSON {
				return writeJSON(cmd, res)
			}

			rows := [][]string{
				{"Series", res.SeriesName},
				{"Key", res.Key},
				{"Season", strconv.Itoa(res.SeasonNumber)},
				{"Sequel", yesNo(res.IsSequel)},
				{"Rule", res.Rule},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVarP(&english, "english", "e", "", "English title, preferred over the main title when set")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the result as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
