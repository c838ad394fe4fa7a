package models

// Anime is a catalog entry as stored and served by the API.
// Numeric fields use zero for "unknown".
type Anime struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug,omitempty"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english,omitempty"`
	AltTitles     []string `json:"alt_titles,omitempty"`
	Genres        []string `json:"genres"`
	Format        string   `json:"format,omitempty"` // "TV", "Movie", "OVA", ...
	Status        string   `json:"status,omitempty"`
	Year          int      `json:"year,omitempty"`
	Episodes      int      `json:"episodes,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	AverageRating float64  `json:"average_rating,omitempty"`
	Adult         bool     `json:"adult,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
}

// DisplayName returns the English title when present.
func (a Anime) DisplayName() string {
	if a.TitleEnglish != "" {
		return a.TitleEnglish
	}
	return a.Title
}

// Score is the rating used for ranking: Rating, then AverageRating, then 0.
func (a Anime) Score() float64 {
	if a.Rating != 0 {
		return a.Rating
	}
	return a.AverageRating
}
