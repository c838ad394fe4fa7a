package models

import "time"

type WatchEvent struct {
	UserID  string    `json:"user_id"`
	AnimeID string    `json:"anime_id"`
	Episode int       `json:"episode"`
	At      time.Time `json:"at"`
}
