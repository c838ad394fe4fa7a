package models

import "time"

// User is the public view of an account; the password hash never leaves the auth repo.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
