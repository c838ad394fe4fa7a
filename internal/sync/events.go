package sync

import (
	"time"

	"animehub/pkg/models"
)

const (
	EventListUpdate  = "list.update"
	EventListDelete  = "list.delete"
	EventProgress    = "progress.update"
	EventNewEpisodes = "anime.episodes"
)

// ListEvent reports a change to one entry of a user's watch list.
type ListEvent struct {
	Type            string            `json:"type"`
	UserID          string            `json:"user_id"`
	AnimeID         string            `json:"anime_id"`
	EpisodesWatched int               `json:"episodes_watched,omitempty"`
	Status          models.ListStatus `json:"status,omitempty"`
	At              time.Time         `json:"at"`
}

// EpisodeEvent is published when ingestion sees an episode count grow.
type EpisodeEvent struct {
	Type     string    `json:"type"`
	AnimeID  string    `json:"anime_id"`
	Title    string    `json:"title"`
	Episodes int       `json:"episodes"`
	Previous int       `json:"previous"`
	At       time.Time `json:"at"`
}

// Broadcaster is the publishing side of the hub.
type Broadcaster interface {
	BroadcastJSON(v any)
}
