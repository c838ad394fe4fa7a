package anime

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q      string   // keyword search in title/english title
	Genres []string // any-match
	Status string
	Format string
	Year   int
	Limit  int
	Offset int
}

const (
	defaultLimit = 20
	maxLimit     = 100
	// maxSeriesScan bounds how many records one grouping pass reads.
	maxSeriesScan = 5000
)

const animeColumns = `id, slug, title, title_english, alt_titles, genres, format, status,
	year, episodes, rating, average_rating, adult, synopsis, cover_url`

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnime(row scanner) (models.Anime, error) {
	var (
		a             models.Anime
		slug          sql.NullString
		english       sql.NullString
		altJSON       string
		genresJSON    string
		format        sql.NullString
		status        sql.NullString
		year          sql.NullInt64
		episodes      sql.NullInt64
		rating        sql.NullFloat64
		averageRating sql.NullFloat64
		synopsis      sql.NullString
		coverURL      sql.NullString
	)
	if err := row.Scan(
		&a.ID, &slug, &a.Title, &english, &altJSON, &genresJSON, &format, &status,
		&year, &episodes, &rating, &averageRating, &a.Adult, &synopsis, &coverURL,
	); err != nil {
		return a, err
	}

	a.Slug = slug.String
	a.TitleEnglish = english.String
	a.Format = format.String
	a.Status = status.String
	a.Year = int(year.Int64)
	a.Episodes = int(episodes.Int64)
	a.Rating = rating.Float64
	a.AverageRating = averageRating.Float64
	a.Synopsis = synopsis.String
	a.CoverURL = coverURL.String

	_ = json.Unmarshal([]byte(altJSON), &a.AltTitles)
	_ = json.Unmarshal([]byte(genresJSON), &a.Genres)
	if a.Genres == nil {
		a.Genres = []string{}
	}
	return a, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Anime, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+animeColumns+` FROM anime WHERE id = ?`, id)

	a, err := scanAnime(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &a, nil
}

// ListByIDs returns the records that exist, in no particular order.
func (r *Repo) ListByIDs(ctx context.Context, ids []string) ([]models.Anime, error) {
	if len(ids) == 0 {
		return []models.Anime{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+animeColumns+` FROM anime WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("list by ids query: %w", err)
	}
	return collect(rows, len(ids))
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true, false)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Anime, error) {
	sqlStr, args := buildListSQL(q, false, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	return collect(rows, q.Limit)
}

// ListAll ignores Limit and Offset; it feeds series grouping, which needs
// every season of a franchise at once.
func (r *Repo) ListAll(ctx context.Context, q ListQuery) ([]models.Anime, error) {
	sqlStr, args := buildListSQL(q, false, true)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list all query: %w", err)
	}
	return collect(rows, 0)
}

func collect(rows *sql.Rows, capHint int) ([]models.Anime, error) {
	defer rows.Close()

	if capHint < 0 {
		capHint = 0
	}
	out := make([]models.Anime, 0, capHint)
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// UpdateAverageRating stores the mean user review score for an anime.
func (r *Repo) UpdateAverageRating(ctx context.Context, id string, avg float64) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE anime SET average_rating = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, avg, id); err != nil {
		return fmt.Errorf("update average rating: %w", err)
	}
	return nil
}

// buildListSQL builds either COUNT(*) or SELECT list.
// genres filter is "any-match" by doing LIKE searches inside stored JSON text.
func buildListSQL(q ListQuery, countOnly, all bool) (string, []any) {
	baseSelect := `SELECT ` + animeColumns + ` FROM anime`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM anime`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(COALESCE(title_english, '')) LIKE ? OR LOWER(alt_titles) LIKE ?)")
		like := "%" + strings.ToLower(kw) + "%"
		args = append(args, like, like, like)
	}

	if s := strings.TrimSpace(q.Status); s != "" {
		where = append(where, "LOWER(status) = ?")
		args = append(args, strings.ToLower(s))
	}

	if f := strings.TrimSpace(q.Format); f != "" {
		where = append(where, "LOWER(format) = ?")
		args = append(args, strings.ToLower(f))
	}

	if q.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, q.Year)
	}

	// any-match genre filter against JSON string
	if len(q.Genres) > 0 {
		var genreOr []string
		for _, g := range q.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			genreOr = append(genreOr, "LOWER(genres) LIKE ?")
			args = append(args, `%"`+strings.ToLower(g)+`"%`)
		}
		if len(genreOr) > 0 {
			where = append(where, "("+strings.Join(genreOr, " OR ")+")")
		}
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if countOnly {
		return sqlStr, args
	}

	sqlStr += " ORDER BY title ASC"
	if all {
		sqlStr += " LIMIT ?"
		args = append(args, maxSeriesScan)
		return sqlStr, args
	}

	sqlStr += " LIMIT ? OFFSET ?"
	args = append(args, clampLimit(q.Limit), max(q.Offset, 0))
	return sqlStr, args
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}
