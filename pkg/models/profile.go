package models

// Profile is the public summary of a user's activity.
type Profile struct {
	User            User               `json:"user"`
	ListCounts      map[ListStatus]int `json:"list_counts"`
	ListTotal       int                `json:"list_total"`
	EpisodesWatched int                `json:"episodes_watched"`
	MeanScore       float64            `json:"mean_score"`
	RecentReviews   []Review           `json:"recent_reviews"`
}
