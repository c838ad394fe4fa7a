package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animehub/internal/anime"
	"animehub/pkg/models"
)

var csvColumns = []string{
	"id", "title", "title_english", "alt_titles", "genres", "format", "status",
	"year", "episodes", "rating", "adult", "synopsis", "cover_url",
}

// listSep joins multi-valued CSV cells (genres, alt titles).
const listSep = "|"

func newImportCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load anime records from a CSV or JSON file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := fileFormat(args[0], format)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var items []models.AnimeCanonical
			switch kind {
			case "csv":
				items, err = readCSV(f)
			default:
				err = json.NewDecoder(f).Decode(&items)
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			grown, err := anime.NewRepo(db).Upsert(cmd.Context(), items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (%d with new episodes)\n", len(items), len(grown))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or json (default: from file extension)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format  string
		outPath string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as CSV or as a JSON mirror snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := fileFormat(outPath, format)
			if err != nil {
				return err
			}

			db, err := ctx.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := anime.NewRepo(db).Export(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return err
				}
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch kind {
			case "csv":
				err = writeCSV(w, items)
			default:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				err = enc.Encode(items)
			}
			if err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if outPath != "" && outPath != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(items), outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or json (default: from --out extension, else json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum records (0 = all)")
	return cmd
}

func fileFormat(path, explicit string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(explicit))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch f {
	case "csv":
		return "csv", nil
	case "json", "":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported format %q (want csv or json)", f)
	}
}

func readCSV(r io.Reader) ([]models.AnimeCanonical, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var out []models.AnimeCanonical
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		a := models.AnimeCanonical{
			ID:           valueAt(header, row, "id"),
			Title:        valueAt(header, row, "title"),
			TitleEnglish: valueAt(header, row, "title_english"),
			AltTitles:    splitList(valueAt(header, row, "alt_titles")),
			Genres:       splitList(valueAt(header, row, "genres")),
			Format:       valueAt(header, row, "format"),
			Status:       valueAt(header, row, "status"),
			Synopsis:     valueAt(header, row, "synopsis"),
			CoverURL:     valueAt(header, row, "cover_url"),
		}
		if a.ID == "" || a.Title == "" {
			continue
		}
		if a.Year, err = parseInt(valueAt(header, row, "year")); err != nil {
			return nil, fmt.Errorf("line %d: year: %w", line, err)
		}
		if a.Episodes, err = parseInt(valueAt(header, row, "episodes")); err != nil {
			return nil, fmt.Errorf("line %d: episodes: %w", line, err)
		}
		if raw := valueAt(header, row, "rating"); raw != "" {
			if a.Rating, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, fmt.Errorf("line %d: rating: %w", line, err)
			}
		}
		if raw := valueAt(header, row, "adult"); raw != "" {
			if a.Adult, err = strconv.ParseBool(raw); err != nil {
				return nil, fmt.Errorf("line %d: adult: %w", line, err)
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func writeCSV(w io.Writer, items []models.AnimeCanonical) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, a := range items {
		if err := cw.Write([]string{
			a.ID,
			a.Title,
			a.TitleEnglish,
			strings.Join(a.AltTitles, listSep),
			strings.Join(a.Genres, listSep),
			a.Format,
			a.Status,
			formatInt(a.Year),
			formatInt(a.Episodes),
			formatFloat(a.Rating),
			strconv.FormatBool(a.Adult),
			a.Synopsis,
			a.CoverURL,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, listSep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
