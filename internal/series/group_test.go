package series

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/pkg/models"
)

func TestGroupIntoSeriesTwoSeasons(t *testing.T) {
	records := []models.Anime{
		{ID: "1", Title: "Test Anime", Year: 2020, Episodes: 12, Rating: 8.0},
		{ID: "2", Title: "Test Anime Season 2", Year: 2021, Episodes: 12, Rating: 8.5},
	}

	groups := GroupIntoSeries(records)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, 2, g.SeasonCount)
	assert.Equal(t, 24, g.TotalEpisodes)
	assert.Equal(t, 8.5, g.Rating)
	assert.Equal(t, "1", g.ID)
	assert.Equal(t, 2020, g.Year)
	assert.Equal(t, "Test Anime", g.DisplayTitle)
	assert.Equal(t, "Test Anime", g.TitleEnglish)
	assert.Equal(t, "test anime", g.Key)
	assert.Equal(t, "1", g.Main().ID)
	assert.Equal(t, 2, g.Seasons[1].SeasonInfo.SeasonNumber)
	assert.True(t, g.Seasons[1].SeasonInfo.IsSequel)
}

func TestGroupIntoSeriesSingleRecord(t *testing.T) {
	groups := GroupIntoSeries([]models.Anime{
		{ID: "1", Title: "Test", Year: 2020, Episodes: 12, Rating: 8.0},
	})
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].SeasonCount)
	assert.Equal(t, "Test", groups[0].DisplayTitle)
}

func TestGroupIntoSeriesEmpty(t *testing.T) {
	groups := GroupIntoSeries(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestGroupIntoSeriesFranchise(t *testing.T) {
	records := []models.Anime{
		{ID: "aot-final", Title: "Shingeki no Kyojin: The Final Season", TitleEnglish: "Attack on Titan Final Season", Year: 2020, Episodes: 16},
		{ID: "aot-1", Title: "Shingeki no Kyojin", TitleEnglish: "Attack on Titan", Year: 2013, Episodes: 25, Rating: 8.5},
		{ID: "aot-3", Title: "Shingeki no Kyojin Season 3", TitleEnglish: "Attack on Titan Season 3", Year: 2018, Episodes: 12, Rating: 8.6},
		{ID: "aot-2", Title: "Shingeki no Kyojin Season 2", TitleEnglish: "Attack on Titan Season 2", Year: 2017, Episodes: 12, AverageRating: 8.9},
	}

	groups := GroupIntoSeries(records)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "aot-1", g.ID)
	assert.Equal(t, "Attack on Titan", g.DisplayTitle)
	assert.Equal(t, 4, g.SeasonCount)
	assert.Equal(t, 65, g.TotalEpisodes)
	assert.Equal(t, 8.9, g.Rating)

	var ids []string
	for _, s := range g.Seasons {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"aot-1", "aot-2", "aot-3", "aot-final"}, ids)
	assert.Equal(t, FinalSeason, g.Seasons[3].SeasonInfo.SeasonNumber)
}

func TestGroupIntoSeriesArticlesIgnored(t *testing.T) {
	records := []models.Anime{
		{ID: "a", Title: "The Rising of the Shield Hero", Year: 2019},
		{ID: "b", Title: "Rising of the Shield Hero Season 2", Year: 2022},
	}

	groups := GroupIntoSeries(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "rising of", groups[0].Key)
	assert.Equal(t, "The Rising of", groups[0].DisplayTitle)
	assert.Equal(t, "a", groups[0].ID)
}

func TestGroupIntoSeriesSeasonOrderWithoutYears(t *testing.T) {
	records := []models.Anime{
		{ID: "3", Title: "Test Anime Season 3"},
		{ID: "1", Title: "Test Anime"},
		{ID: "2", Title: "Test Anime Season 2", Year: 2021},
	}

	groups := GroupIntoSeries(records)
	require.Len(t, groups, 1)

	var ids []string
	for _, s := range groups[0].Seasons {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestGroupIntoSeriesYearBeatsSeasonNumber(t *testing.T) {
	records := []models.Anime{
		{ID: "later", Title: "Test Anime", Year: 2015},
		{ID: "earlier", Title: "Test Anime Season 2", Year: 2010},
	}

	groups := GroupIntoSeries(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "earlier", groups[0].ID)
	assert.Equal(t, "Test Anime", groups[0].DisplayTitle)
	assert.Equal(t, "Test Anime Season 2", groups[0].Title)
}

func TestGroupIntoSeriesFirstAppearanceOrder(t *testing.T) {
	records := []models.Anime{
		{ID: "1", Title: "Overlord"},
		{ID: "2", Title: "Vinland Saga"},
		{ID: "3", Title: "Overlord II"},
		{ID: "4", Title: "Mob Psycho 100"},
		{ID: "5", Title: "Mob Psycho"},
	}

	groups := GroupIntoSeries(records)
	require.Len(t, groups, 3)
	assert.Equal(t, "overlord", groups[0].Key)
	assert.Equal(t, "vinland saga", groups[1].Key)
	assert.Equal(t, "mob psycho", groups[2].Key)
	assert.Equal(t, "5", groups[2].ID)
	assert.Equal(t, 2, groups[0].SeasonCount)
}

func TestGroupIntoSeriesDoesNotMutateInput(t *testing.T) {
	records := []models.Anime{
		{ID: "2", Title: "Test Anime Season 2", Year: 2021, Genres: []string{"Action"}},
		{ID: "1", Title: "Test Anime", Year: 2020, Genres: []string{"Action"}},
	}
	before := slices.Clone(records)

	_ = GroupIntoSeries(records)
	assert.Equal(t, before, records)
}

func TestGroupIntoSeriesInvariants(t *testing.T) {
	records := []models.Anime{
		{ID: "1", Title: "Attack on Titan", Year: 2013, Episodes: 25, Rating: 8.5},
		{ID: "2", Title: "Attack on Titan Season 2", Year: 2017, Episodes: 12, Rating: 8.4},
		{ID: "3", Title: "TONIKAWA: Over the Moon for You", Year: 2020, Episodes: 12, AverageRating: 7.8},
		{ID: "4", Title: "Tonikaku Kawaii", TitleEnglish: "TONIKAWA: Over the Moon for You Season 2", Year: 2023, Episodes: 12},
		{ID: "5", Title: "Random Unique Title XYZ123"},
		{ID: "6", Title: "Overlord", Year: 2015, Episodes: 13, Rating: 7.9},
		{ID: "7", Title: "Overlord II", Year: 2018, Episodes: 13, Rating: 7.8},
		{ID: "8", Title: "Overlord III", Episodes: 13},
		{ID: "9", Title: "Rascal Does Not Dream of Bunny Girl Senpai", Episodes: 13, Rating: 8.2},
		{ID: "10", Title: "Rascal Does Not Dream of a Dreaming Girl", Rating: 8.6},
	}

	groups := GroupIntoSeries(records)

	seen := make(map[string]int)
	for _, g := range groups {
		assert.Equal(t, len(g.Seasons), g.SeasonCount)

		episodes := 0
		rating := 0.0
		for _, s := range g.Seasons {
			seen[s.ID]++
			episodes += s.Episodes
			r := s.Rating
			if r == 0 {
				r = s.AverageRating
			}
			rating = max(rating, r)
			assert.Equal(t, ExtractSeriesInfo(s.Title, s.Anime.TitleEnglish), s.SeasonInfo)
		}
		assert.Equal(t, episodes, g.TotalEpisodes)
		assert.Equal(t, rating, g.Rating)
		assert.Equal(t, g.Seasons[0].ID, g.ID)
	}

	require.Len(t, seen, len(records))
	for _, r := range records {
		assert.Equal(t, 1, seen[r.ID], "record %s", r.ID)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"The Rising of":        "rising of",
		"A Certain Scientific": "certain scientific",
		"An  Archdemon's":      "archdemon's",
		"Theater":              "theater",
		"Attack on Titan":      "attack on titan",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), in)
	}
}

func TestGroupFor(t *testing.T) {
	groups := GroupIntoSeries([]models.Anime{
		{ID: "1", Title: "Overlord"},
		{ID: "2", Title: "Overlord II"},
		{ID: "3", Title: "Vinland Saga"},
	})

	g, ok := GroupFor(groups, "2")
	require.True(t, ok)
	assert.Equal(t, "overlord", g.Key)

	_, ok = GroupFor(groups, "missing")
	assert.False(t, ok)
}
