package models

import "time"

// ListStatus is the state of an anime on a user's watch list.
type ListStatus string

const (
	StatusWatching    ListStatus = "watching"
	StatusCompleted   ListStatus = "completed"
	StatusPlanToWatch ListStatus = "plan_to_watch"
	StatusOnHold      ListStatus = "on_hold"
	StatusDropped     ListStatus = "dropped"
)

// ListStatuses is every valid status in display order.
var ListStatuses = []ListStatus{
	StatusWatching, StatusCompleted, StatusPlanToWatch, StatusOnHold, StatusDropped,
}

// Valid reports whether s is a known status.
func (s ListStatus) Valid() bool {
	for _, v := range ListStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ListEntry struct {
	UserID          string     `json:"user_id"`
	AnimeID         string     `json:"anime_id"`
	EpisodesWatched int        `json:"episodes_watched"`
	Status          ListStatus `json:"status"`
	Score           int        `json:"score,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
