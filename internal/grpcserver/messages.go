package grpcserver

import (
	"animehub/internal/series"
	"animehub/pkg/models"
)

type ListAnimeRequest struct {
	Q      string   `json:"q,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Status string   `json:"status,omitempty"`
	Format string   `json:"format,omitempty"`
	Year   int      `json:"year,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}

type ListAnimeResponse struct {
	Total  int            `json:"total"`
	Hidden int            `json:"hidden"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Items  []models.Anime `json:"items"`
}

type GetAnimeRequest struct {
	ID string `json:"id"`
}

type GetAnimeResponse struct {
	Anime models.Anime `json:"anime"`
}

type ListSeriesRequest struct {
	Q      string   `json:"q,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Status string   `json:"status,omitempty"`
	Year   int      `json:"year,omitempty"`
	Sort   string   `json:"sort,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

type ListSeriesResponse struct {
	Total int            `json:"total"`
	Items []series.Group `json:"items"`
}

type ExtractSeriesRequest struct {
	Title        string `json:"title"`
	TitleEnglish string `json:"title_english,omitempty"`
}

type ExtractSeriesResponse struct {
	Info series.Info `json:"info"`
	Rule string      `json:"rule"`
	Key  string      `json:"key"`
}

type ListProgressRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type ListProgressResponse struct {
	Total int                `json:"total"`
	Items []models.ListEntry `json:"items"`
}

type GetProgressRequest struct {
	UserID  string `json:"user_id"`
	AnimeID string `json:"anime_id"`
}

type ProgressResponse struct {
	Item models.ListEntry `json:"item"`
}

type UpsertProgressRequest struct {
	UserID          string `json:"user_id"`
	AnimeID         string `json:"anime_id"`
	EpisodesWatched int    `json:"episodes_watched"`
	Status          string `json:"status"`
	Score           int    `json:"score,omitempty"`
}

type DeleteProgressRequest struct {
	UserID  string `json:"user_id"`
	AnimeID string `json:"anime_id"`
}

type DeleteProgressResponse struct {
	Deleted bool `json:"deleted"`
}
