package models

// AnimeCanonical is the normalized, internal form of an anime entry
// used by the scraper and database layer.
//
// All external sources are mapped into this structure first,
// then we write to the DB from this representation.
type AnimeCanonical struct {
	ID           string            `json:"id"`                      // our canonical ID (slug)
	Title        string            `json:"title"`                   // main (romaji) title
	TitleEnglish string            `json:"title_english,omitempty"` // licensed English title
	AltTitles    []string          `json:"alt_titles,omitempty"`    // titles seen in other sources
	Genres       []string          `json:"genres"`
	Format       string            `json:"format,omitempty"`
	Status       string            `json:"status"` // "airing", "finished", "upcoming"
	Episodes     int               `json:"episodes"`
	Rating       float64           `json:"rating,omitempty"`
	Adult        bool              `json:"adult,omitempty"`
	Synopsis     string            `json:"synopsis"` // longest synopsis across sources
	CoverURL     string            `json:"cover_url,omitempty"`
	Year         int               `json:"year,omitempty"`
	SourceIDs    map[string]string `json:"source_ids,omitempty"` // e.g. {"jikan": "5114", "mirror": "..."}
}

// ToAnime converts the canonical form into the served record.
func (c AnimeCanonical) ToAnime() Anime {
	return Anime{
		ID:           c.ID,
		Slug:         c.ID,
		Title:        c.Title,
		TitleEnglish: c.TitleEnglish,
		AltTitles:    c.AltTitles,
		Genres:       c.Genres,
		Format:       c.Format,
		Status:       c.Status,
		Year:         c.Year,
		Episodes:     c.Episodes,
		Rating:       c.Rating,
		Adult:        c.Adult,
		Synopsis:     c.Synopsis,
		CoverURL:     c.CoverURL,
	}
}
