package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"animehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Add(ctx context.Context, ev models.WatchEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO watch_history (user_id, anime_id, episode, at)
		VALUES (?, ?, ?, ?)
	`, ev.UserID, ev.AnimeID, ev.Episode, ev.At)
	if err != nil {
		return fmt.Errorf("insert watch history: %w", err)
	}
	return nil
}

// List returns a user's watch history, newest first. An empty animeID spans
// every anime.
func (r *Repo) List(ctx context.Context, userID, animeID string, limit, offset int) ([]models.WatchEvent, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "user_id = ?", []any{userID}
	if animeID != "" {
		where += " AND anime_id = ?"
		args = append(args, animeID)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watch_history WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count watch history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, anime_id, episode, at
		FROM watch_history
		WHERE `+where+`
		ORDER BY at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	out := make([]models.WatchEvent, 0, limit)
	for rows.Next() {
		var ev models.WatchEvent
		if err := rows.Scan(&ev.UserID, &ev.AnimeID, &ev.Episode, &ev.At); err != nil {
			return nil, 0, fmt.Errorf("scan watch history: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows watch history: %w", err)
	}

	return out, total, nil
}
