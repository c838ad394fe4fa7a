package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"animehub/pkg/models"
)

const DefaultJikanBaseURL = "https://api.jikan.moe/v4"

// JikanSource pages through the Jikan (MyAnimeList) /anime endpoint.
type JikanSource struct {
	BaseURL   string
	Client    *http.Client
	Pages     int           // maximum pages to fetch
	PageDelay time.Duration // Jikan allows about three requests per second
	UserAgent string
}

func NewJikanSource(baseURL string, pages int, timeout time.Duration) *JikanSource {
	if baseURL == "" {
		baseURL = DefaultJikanBaseURL
	}
	if pages <= 0 {
		pages = 4
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &JikanSource{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: timeout},
		Pages:     pages,
		PageDelay: 400 * time.Millisecond,
		UserAgent: "animehub-scraper",
	}
}

func (s *JikanSource) Name() string { return "jikan" }

type jikanPage struct {
	Pagination struct {
		LastVisiblePage int  `json:"last_visible_page"`
		HasNextPage     bool `json:"has_next_page"`
	} `json:"pagination"`
	Data []jikanAnime `json:"data"`
}

type jikanAnime struct {
	MalID        int     `json:"mal_id"`
	Title        string  `json:"title"`
	TitleEnglish string  `json:"title_english"`
	Type         string  `json:"type"`
	Episodes     int     `json:"episodes"`
	Status       string  `json:"status"`
	Score        float64 `json:"score"`
	Rating       string  `json:"rating"`
	Year         int     `json:"year"`
	Synopsis     string  `json:"synopsis"`
	Titles       []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"titles"`
	Aired struct {
		Prop struct {
			From struct {
				Year int `json:"year"`
			} `json:"from"`
		} `json:"prop"`
	} `json:"aired"`
	Genres         []jikanName `json:"genres"`
	Themes         []jikanName `json:"themes"`
	ExplicitGenres []jikanName `json:"explicit_genres"`
	Images         struct {
		JPG struct {
			ImageURL string `json:"image_url"`
		} `json:"jpg"`
	} `json:"images"`
}

type jikanName struct {
	Name string `json:"name"`
}

func (s *JikanSource) FetchAll(ctx context.Context) ([]models.AnimeCanonical, error) {
	var all []models.AnimeCanonical

	for page := 1; page <= s.Pages; page++ {
		if page > 1 && s.PageDelay > 0 {
			t := time.NewTimer(s.PageDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		body, err := s.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		var jp jikanPage
		if err := json.Unmarshal(body, &jp); err != nil {
			return nil, fmt.Errorf("jikan: decode page %d: %w", page, err)
		}

		for _, item := range jp.Data {
			if a, ok := jikanToCanonical(item); ok {
				all = append(all, a)
			}
		}

		if !jp.Pagination.HasNextPage || len(jp.Data) == 0 {
			break
		}
	}

	return all, nil
}

func (s *JikanSource) fetchPage(ctx context.Context, page int) ([]byte, error) {
	u, err := url.Parse(s.BaseURL + "/anime")
	if err != nil {
		return nil, fmt.Errorf("jikan: base url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("order_by", "popularity")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("jikan: build request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jikan: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jikan: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jikan: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func jikanToCanonical(item jikanAnime) (models.AnimeCanonical, bool) {
	title := strings.TrimSpace(item.Title)
	if item.MalID == 0 || title == "" {
		return models.AnimeCanonical{}, false
	}

	english := strings.TrimSpace(item.TitleEnglish)
	var alt []string
	for _, t := range item.Titles {
		v := strings.TrimSpace(t.Title)
		if v != "" && v != title && v != english {
			alt = appendIfMissing(alt, v)
		}
	}

	genres := make([]string, 0, len(item.Genres)+len(item.Themes)+len(item.ExplicitGenres))
	for _, group := range [][]jikanName{item.Genres, item.Themes, item.ExplicitGenres} {
		for _, g := range group {
			if g.Name != "" {
				genres = appendIfMissing(genres, g.Name)
			}
		}
	}

	year := item.Year
	if year == 0 {
		year = item.Aired.Prop.From.Year
	}

	id := strconv.Itoa(item.MalID)
	return models.AnimeCanonical{
		ID:           "mal-" + id,
		Title:        title,
		TitleEnglish: english,
		AltTitles:    alt,
		Genres:       genres,
		Format:       item.Type,
		Status:       normalizeStatusJikan(item.Status),
		Episodes:     item.Episodes,
		Rating:       item.Score,
		Adult:        len(item.ExplicitGenres) > 0 || strings.HasPrefix(item.Rating, "Rx"),
		Synopsis:     strings.TrimSpace(item.Synopsis),
		CoverURL:     item.Images.JPG.ImageURL,
		Year:         year,
		SourceIDs:    map[string]string{"jikan": id},
	}, true
}

func normalizeStatusJikan(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "finished airing":
		return "finished"
	case "currently airing":
		return "airing"
	case "not yet aired":
		return "upcoming"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
