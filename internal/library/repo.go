package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"animehub/pkg/models"
)

var ErrInvalidStatus = errors.New("invalid list status")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const entryColumns = `user_id, anime_id, episodes_watched, status, score, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (models.ListEntry, error) {
	var e models.ListEntry
	var status string
	err := row.Scan(&e.UserID, &e.AnimeID, &e.EpisodesWatched, &status, &e.Score, &e.UpdatedAt)
	e.Status = models.ListStatus(status)
	return e, err
}

// Upsert inserts or updates a watch list entry.
func (r *Repo) Upsert(ctx context.Context, e models.ListEntry) error {
	if !e.Status.Valid() {
		return fmt.Errorf("upsert list entry: %w: %q", ErrInvalidStatus, e.Status)
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_list (user_id, anime_id, episodes_watched, status, score, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, anime_id) DO UPDATE SET
			episodes_watched = excluded.episodes_watched,
			status = excluded.status,
			score = excluded.score,
			updated_at = CURRENT_TIMESTAMP
	`, e.UserID, e.AnimeID, e.EpisodesWatched, string(e.Status), e.Score)
	if err != nil {
		return fmt.Errorf("upsert list entry: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, animeID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM user_list
		WHERE user_id = ? AND anime_id = ?
	`, userID, animeID)
	if err != nil {
		return false, fmt.Errorf("delete list entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Get(ctx context.Context, userID, animeID string) (*models.ListEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM user_list
		WHERE user_id = ? AND anime_id = ?
	`, userID, animeID)

	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get list entry: %w", err)
	}
	return &e, nil
}

// List pages through a user's entries, newest change first. An empty status
// lists everything.
func (r *Repo) List(ctx context.Context, userID string, status models.ListStatus, limit, offset int) ([]models.ListEntry, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "user_id = ?", []any{userID}
	if status != "" {
		where += " AND status = ?"
		args = append(args, string(status))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_list WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count list: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM user_list
		WHERE `+where+`
		ORDER BY updated_at DESC, anime_id ASC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	out, err := collect(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AllWithStatus returns every entry of the user in any of statuses (all
// entries when statuses is empty).
func (r *Repo) AllWithStatus(ctx context.Context, userID string, statuses ...models.ListStatus) ([]models.ListEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM user_list WHERE user_id = ?`
	args := []any{userID}
	if len(statuses) > 0 {
		query += " AND status IN (" + strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",") + ")"
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += " ORDER BY updated_at DESC, anime_id ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries by status: %w", err)
	}
	return collect(rows, 0)
}

// Stats summarizes a user's list for profile pages.
type Stats struct {
	ByStatus        map[models.ListStatus]int `json:"by_status"`
	Total           int                       `json:"total"`
	EpisodesWatched int                       `json:"episodes_watched"`
	MeanScore       float64                   `json:"mean_score"`
}

func (r *Repo) Stats(ctx context.Context, userID string) (Stats, error) {
	st := Stats{ByStatus: make(map[models.ListStatus]int, len(models.ListStatuses))}
	for _, s := range models.ListStatuses {
		st.ByStatus[s] = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(episodes_watched), 0)
		FROM user_list
		WHERE user_id = ?
		GROUP BY status
	`, userID)
	if err != nil {
		return st, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count, episodes int
		if err := rows.Scan(&status, &count, &episodes); err != nil {
			return st, fmt.Errorf("scan list stats: %w", err)
		}
		st.ByStatus[models.ListStatus(status)] = count
		st.Total += count
		st.EpisodesWatched += episodes
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("rows list stats: %w", err)
	}

	var mean sql.NullFloat64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT AVG(score) FROM user_list WHERE user_id = ? AND score > 0`, userID).Scan(&mean); err != nil {
		return st, fmt.Errorf("mean score: %w", err)
	}
	st.MeanScore = mean.Float64
	return st, nil
}

func collect(rows *sql.Rows, capHint int) ([]models.ListEntry, error) {
	defer rows.Close()

	out := make([]models.ListEntry, 0, capHint)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Watchers lists users following an anime: anyone with it on their list
// except as completed or dropped.
func (r *Repo) Watchers(ctx context.Context, animeID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id FROM user_list
		WHERE anime_id = ? AND status IN (?, ?, ?)
		ORDER BY user_id
	`, animeID, string(models.StatusWatching), string(models.StatusPlanToWatch), string(models.StatusOnHold))
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows watchers: %w", err)
	}
	return out, nil
}
