package reviews

import (
	"context"
	"database/sql"
	"fmt"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const reviewSelect = `
	SELECT r.id, r.user_id, COALESCE(u.username, ''), r.anime_id, r.rating, r.text, r.timestamp
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id`

func scanReview(row interface{ Scan(...any) error }) (models.Review, error) {
	var review models.Review
	var text sql.NullString
	err := row.Scan(&review.ID, &review.UserID, &review.Username, &review.AnimeID, &review.Rating, &text, &review.Timestamp)
	review.Text = text.String
	return review, err
}

// Upsert writes the user's review of an anime, replacing any earlier one.
func (r *Repo) Upsert(ctx context.Context, userID, animeID string, rating int, text string) (*models.Review, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (user_id, anime_id, rating, text, timestamp)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, anime_id) DO UPDATE SET
			rating = excluded.rating,
			text = excluded.text,
			timestamp = CURRENT_TIMESTAMP
	`, userID, animeID, rating, text)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}

	row := r.DB.QueryRowContext(ctx, reviewSelect+` WHERE r.user_id = ? AND r.anime_id = ?`, userID, animeID)
	review, err := scanReview(row)
	if err != nil {
		return nil, fmt.Errorf("scan upserted review: %w", err)
	}
	return &review, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id)

	review, err := scanReview(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &review, nil
}

func (r *Repo) ListByAnime(ctx context.Context, animeID string, limit, offset int) ([]models.Review, error) {
	return r.list(ctx, `r.anime_id = ?`, animeID, limit, offset)
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Review, error) {
	return r.list(ctx, `r.user_id = ?`, userID, limit, offset)
}

func (r *Repo) list(ctx context.Context, where string, arg any, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, reviewSelect+`
		WHERE `+where+`
		ORDER BY r.timestamp DESC, r.id DESC
		LIMIT ? OFFSET ?
	`, arg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Summary returns the review count and mean rating for an anime.
func (r *Repo) Summary(ctx context.Context, animeID string) (int, float64, error) {
	var count int
	var avg sql.NullFloat64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(rating) FROM reviews WHERE anime_id = ?`, animeID).Scan(&count, &avg); err != nil {
		return 0, 0, fmt.Errorf("review summary: %w", err)
	}
	return count, avg.Float64, nil
}

// Delete removes a review owned by userID and reports its anime.
func (r *Repo) Delete(ctx context.Context, id int64, userID string) (string, bool, error) {
	var animeID string
	err := r.DB.QueryRowContext(ctx,
		`SELECT anime_id FROM reviews WHERE id = ? AND user_id = ?`, id, userID).Scan(&animeID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup review: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return "", false, fmt.Errorf("delete review: %w", err)
	}
	rows, _ := res.RowsAffected()
	return animeID, rows > 0, nil
}
