package series

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"animehub/pkg/models"
)

// Season is one catalog record inside a series group.
type Season struct {
	models.Anime
	OriginalSeriesName string `json:"original_series_name"`
	SeasonInfo         Info   `json:"season_info"`
}

// Group is one inferred series. The embedded record is the main season;
// TitleEnglish and Rating shadow its fields with series-level values.
type Group struct {
	models.Anime
	Key           string   `json:"series_key"`
	DisplayTitle  string   `json:"display_title"`
	TitleEnglish  string   `json:"title_english"`
	SeasonCount   int      `json:"season_count"`
	TotalEpisodes int      `json:"total_episodes"`
	Rating        float64  `json:"rating"`
	Seasons       []Season `json:"seasons"`
}

// Main returns the season that seeded the group's top-level fields.
func (g Group) Main() Season {
	return g.Seasons[0]
}

var reArticles = regexp.MustCompile(`(?i)\b(the|a|an)\b`)

// NormalizeKey turns a series name into its grouping key: standalone
// articles removed, lower-cased, whitespace collapsed.
func NormalizeKey(name string) string {
	s := reArticles.ReplaceAllString(name, "")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// GroupIntoSeries partitions records into series groups. Every record lands
// in exactly one group. Groups come back in the order their key first
// appears in records; records is not modified.
func GroupIntoSeries(records []models.Anime) []Group {
	index := make(map[string]int)
	var buckets [][]Season
	var keys []string

	for _, rec := range records {
		info := ExtractSeriesInfo(rec.Title, rec.TitleEnglish)
		key := NormalizeKey(info.SeriesName)
		s := Season{Anime: rec, OriginalSeriesName: info.SeriesName, SeasonInfo: info}

		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, nil)
			keys = append(keys, key)
		}
		buckets[i] = append(buckets[i], s)
	}

	out := make([]Group, 0, len(buckets))
	for i, seasons := range buckets {
		slices.SortStableFunc(seasons, compareSeasons)
		out = append(out, buildGroup(keys[i], seasons))
	}
	return out
}

// compareSeasons orders by year when both are known and differ, otherwise by
// inferred season number.
func compareSeasons(a, b Season) int {
	if a.Year != 0 && b.Year != 0 && a.Year != b.Year {
		return cmp.Compare(a.Year, b.Year)
	}
	return cmp.Compare(a.SeasonInfo.SeasonNumber, b.SeasonInfo.SeasonNumber)
}

func buildGroup(key string, seasons []Season) Group {
	main := seasons[0]

	display := main.OriginalSeriesName
	if display == "" {
		display = main.Anime.TitleEnglish
	}
	if display == "" {
		display = main.Title
	}

	g := Group{
		Anime:        main.Anime,
		Key:          key,
		DisplayTitle: display,
		TitleEnglish: display,
		SeasonCount:  len(seasons),
		Seasons:      seasons,
	}
	for _, s := range seasons {
		g.TotalEpisodes += s.Episodes
		g.Rating = max(g.Rating, s.Score())
	}
	return g
}

// GroupFor returns the group holding the record with the given id.
func GroupFor(groups []Group, animeID string) (Group, bool) {
	for _, g := range groups {
		for _, s := range g.Seasons {
			if s.ID == animeID {
				return g, true
			}
		}
	}
	return Group{}, false
}
