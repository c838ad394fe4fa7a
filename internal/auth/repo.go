package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"animehub/pkg/models"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

// Public strips credentials.
func (u User) Public() models.User {
	return models.User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, COALESCE(email, ''), password_hash, token_version, created_at`

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	var email any
	if u.Email != "" {
		email = u.Email
	}
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Username, email, u.PasswordHash); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) getOne(ctx context.Context, op, where string, arg any) (*User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get by email", "LOWER(email) = ?", strings.TrimSpace(strings.ToLower(email)))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "get by username", "username = ?", strings.TrimSpace(username))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get by id", "id = ?", id)
}

// GetByLogin accepts either a username or an email address.
func (r *Repo) GetByLogin(ctx context.Context, login string) (*User, error) {
	if strings.Contains(login, "@") {
		return r.GetByEmail(ctx, login)
	}
	return r.GetByUsername(ctx, login)
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = ?`, id).Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	return r.bump(ctx, "update password", `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	return r.bump(ctx, "bump token version", `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
}

func (r *Repo) bump(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
