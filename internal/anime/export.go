package anime

import (
	"context"
	"encoding/json"
	"fmt"

	"animehub/pkg/models"
)

// withSourceIDs scans the source_ids column that follows animeColumns.
type withSourceIDs struct {
	scanner
	raw *string
}

func (w withSourceIDs) Scan(dest ...any) error {
	return w.scanner.Scan(append(dest, w.raw)...)
}

// Export returns the catalog in its canonical form ordered by title, the
// format mirrors serve and `animehub import` reads back. limit <= 0 means all.
func (r *Repo) Export(ctx context.Context, limit int) ([]models.AnimeCanonical, error) {
	query := `SELECT ` + animeColumns + `, source_ids FROM anime ORDER BY title COLLATE NOCASE, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export query: %w", err)
	}
	defer rows.Close()

	out := []models.AnimeCanonical{}
	for rows.Next() {
		var raw string
		a, err := scanAnime(withSourceIDs{scanner: rows, raw: &raw})
		if err != nil {
			return nil, fmt.Errorf("export scan: %w", err)
		}
		c := Canonical(a)
		if raw != "" && raw != "{}" {
			if err := json.Unmarshal([]byte(raw), &c.SourceIDs); err != nil {
				return nil, fmt.Errorf("decode source ids for %s: %w", a.ID, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Canonical converts a served record back to the ingestion form. The
// review average is local to this catalog and is not carried over.
func Canonical(a models.Anime) models.AnimeCanonical {
	return models.AnimeCanonical{
		ID:           a.ID,
		Title:        a.Title,
		TitleEnglish: a.TitleEnglish,
		AltTitles:    a.AltTitles,
		Genres:       a.Genres,
		Format:       a.Format,
		Status:       a.Status,
		Episodes:     a.Episodes,
		Rating:       a.Rating,
		Adult:        a.Adult,
		Synopsis:     a.Synopsis,
		CoverURL:     a.CoverURL,
		Year:         a.Year,
	}
}
