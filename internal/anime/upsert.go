package anime

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"animehub/pkg/models"
)

// EpisodeGrowth records a stored anime whose episode count went up during an
// upsert.
type EpisodeGrowth struct {
	ID       string
	Title    string
	Previous int
	Current  int
}

// Upsert writes items in one transaction and reports every record whose known
// episode count increased. New records and previously unknown counts are not
// growth.
func (r *Repo) Upsert(ctx context.Context, items []models.AnimeCanonical) ([]EpisodeGrowth, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	prev, err := tx.PrepareContext(ctx, `SELECT COALESCE(episodes, 0) FROM anime WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	defer prev.Close()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anime (id, slug, title, title_english, alt_titles, genres, format, status,
			year, episodes, rating, adult, synopsis, cover_url, source_ids, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
		  slug = excluded.slug,
		  title = excluded.title,
		  title_english = excluded.title_english,
		  alt_titles = excluded.alt_titles,
		  genres = excluded.genres,
		  format = excluded.format,
		  status = excluded.status,
		  year = excluded.year,
		  episodes = excluded.episodes,
		  rating = excluded.rating,
		  adult = excluded.adult,
		  synopsis = excluded.synopsis,
		  cover_url = excluded.cover_url,
		  source_ids = excluded.source_ids,
		  updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	var grown []EpisodeGrowth
	for _, a := range items {
		if a.ID == "" || a.Title == "" {
			return nil, fmt.Errorf("upsert: id and title required (id=%q)", a.ID)
		}

		var before int
		switch err := prev.QueryRowContext(ctx, a.ID).Scan(&before); {
		case err == sql.ErrNoRows:
			before = 0
		case err != nil:
			return nil, fmt.Errorf("lookup %s: %w", a.ID, err)
		}

		alt, genres, sources, err := marshalLists(a)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", a.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			a.ID, a.ID, a.Title, a.TitleEnglish, alt, genres, a.Format, a.Status,
			a.Year, a.Episodes, a.Rating, a.Adult, a.Synopsis, a.CoverURL, sources,
		); err != nil {
			return nil, fmt.Errorf("exec upsert for %s: %w", a.ID, err)
		}

		if before > 0 && a.Episodes > before {
			grown = append(grown, EpisodeGrowth{ID: a.ID, Title: a.ToAnime().DisplayName(), Previous: before, Current: a.Episodes})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return grown, nil
}

func marshalLists(a models.AnimeCanonical) (alt, genres, sources string, err error) {
	orEmpty := func(v any, empty string) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		if string(b) == "null" {
			return empty, nil
		}
		return string(b), nil
	}
	if alt, err = orEmpty(a.AltTitles, "[]"); err != nil {
		return
	}
	if genres, err = orEmpty(a.Genres, "[]"); err != nil {
		return
	}
	sources, err = orEmpty(a.SourceIDs, "{}")
	return
}

// SourceIDs returns the per-source identifiers stored for an anime.
func (r *Repo) SourceIDs(ctx context.Context, id string) (map[string]string, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT source_ids FROM anime WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("source ids: %w", err)
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode source ids: %w", err)
	}
	return out, nil
}
