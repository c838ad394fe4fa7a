package series

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSeriesInfo(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		english string
		want    Info
		rule    string
	}{
		{
			name:  "season n",
			title: "Attack on Titan Season 2",
			want:  Info{SeriesName: "Attack on Titan", SeasonNumber: 2, IsSequel: true},
			rule:  "season-n",
		},
		{
			name:  "of phrase",
			title: "Rascal Does Not Dream of Bunny Girl Senpai",
			want:  Info{SeriesName: "Rascal Does Not Dream of", SeasonNumber: 1},
			rule:  RuleOfPhrase,
		},
		{
			name:  "in phrase",
			title: "Made in Abyss",
			want:  Info{SeriesName: "Made in", SeasonNumber: 1},
			rule:  RuleInPhrase,
		},
		{
			name:  "of phrase checked before in phrase and colon",
			title: "Made in Abyss: Dawn of the Deep Soul",
			want:  Info{SeriesName: "Made in Abyss: Dawn of", SeasonNumber: 1},
			rule:  RuleOfPhrase,
		},
		{
			name:  "colon prefix",
			title: "TONIKAWA: Over the Moon for You",
			want:  Info{SeriesName: "TONIKAWA", SeasonNumber: 1},
			rule:  RuleColonPrefix,
		},
		{
			name:  "colon prefix wins over final season",
			title: "Attack on Titan: The Final Season",
			want:  Info{SeriesName: "Attack on Titan", SeasonNumber: 1},
			rule:  RuleColonPrefix,
		},
		{
			name:  "colon prefix with season marker falls through",
			title: "Demon Slayer Season 3: Swordsmith Village",
			want:  Info{SeriesName: "Demon Slayer", SeasonNumber: 3, IsSequel: true},
			rule:  "season-n",
		},
		{
			name:    "english title preferred",
			title:   "Shingeki no Kyojin Season 2",
			english: "Attack on Titan Season 2",
			want:    Info{SeriesName: "Attack on Titan", SeasonNumber: 2, IsSequel: true},
			rule:    "season-n",
		},
		{
			name:    "blank english title ignored",
			title:   "Test Anime Season 2",
			english: "   ",
			want:    Info{SeriesName: "Test Anime", SeasonNumber: 2, IsSequel: true},
			rule:    "season-n",
		},
		{
			name:  "final season",
			title: "Attack on Titan Final Season",
			want:  Info{SeriesName: "Attack on Titan", SeasonNumber: FinalSeason, IsSequel: true},
			rule:  "final-season",
		},
		{
			name:  "final season part",
			title: "Attack on Titan Final Season Part 2",
			want:  Info{SeriesName: "Attack on Titan", SeasonNumber: FinalSeason + 2, IsSequel: true},
			rule:  "final-season-part",
		},
		{
			name:  "ordinal season",
			title: "Haikyu!! 2nd Season",
			want:  Info{SeriesName: "Haikyu!!", SeasonNumber: 2, IsSequel: true},
			rule:  "ordinal-season",
		},
		{
			name:  "word ordinal season",
			title: "Kaguya-sama wa Kokurasetai Second Season",
			want:  Info{SeriesName: "Kaguya-sama wa Kokurasetai", SeasonNumber: 2, IsSequel: true},
			rule:  "word-ordinal-season",
		},
		{
			name:  "s suffix",
			title: "Vinland Saga S2",
			want:  Info{SeriesName: "Vinland Saga", SeasonNumber: 2, IsSequel: true},
			rule:  "s-suffix",
		},
		{
			name:  "part n",
			title: "Spy x Family Part 2",
			want:  Info{SeriesName: "Spy x Family", SeasonNumber: 2, IsSequel: true},
			rule:  "part-n",
		},
		{
			name:  "cour n",
			title: "Bleach Cour 2",
			want:  Info{SeriesName: "Bleach", SeasonNumber: 2, IsSequel: true},
			rule:  "cour-n",
		},
		{
			name:  "ordinal cour",
			title: "Bleach 2nd Cour",
			want:  Info{SeriesName: "Bleach", SeasonNumber: 2, IsSequel: true},
			rule:  "ordinal-cour",
		},
		{
			name:  "arc suffix",
			title: "Gintama - Shinsengumi Crisis Arc",
			want:  Info{SeriesName: "Gintama", SeasonNumber: 2, IsSequel: true},
			rule:  "arc-suffix",
		},
		{
			name:  "arc suffix after a space",
			title: "Demon Slayer Entertainment District Arc",
			want:  Info{SeriesName: "Demon Slayer Entertainment", SeasonNumber: 2, IsSequel: true},
			rule:  "arc-suffix",
		},
		{
			name:  "roman suffix",
			title: "Overlord III",
			want:  Info{SeriesName: "Overlord", SeasonNumber: 3, IsSequel: true},
			rule:  "roman-suffix",
		},
		{
			name:  "roman suffix trims dash",
			title: "Slayers – II",
			want:  Info{SeriesName: "Slayers", SeasonNumber: 2, IsSequel: true},
			rule:  "roman-suffix",
		},
		{
			name:  "roman colon",
			title: "Overlord II:Extra",
			want:  Info{SeriesName: "Overlord", SeasonNumber: 2, IsSequel: true},
			rule:  "roman-colon",
		},
		{
			name:  "colon number",
			title: "Gochuumon wa Usagi Desu ka:2",
			want:  Info{SeriesName: "Gochuumon wa Usagi Desu ka", SeasonNumber: 2, IsSequel: true},
			rule:  "colon-number",
		},
		{
			name:  "trailing number",
			title: "Dragon Ball 2",
			want:  Info{SeriesName: "Dragon Ball", SeasonNumber: 2, IsSequel: true},
			rule:  "trailing-number",
		},
		{
			name:  "colon ordinal",
			title: "Initial D:4th Stage",
			want:  Info{SeriesName: "Initial D", SeasonNumber: 4, IsSequel: true},
			rule:  "colon-ordinal",
		},
		{
			name:  "trailing number of any width",
			title: "Mob Psycho 100",
			want:  Info{SeriesName: "Mob Psycho", SeasonNumber: 100, IsSequel: true},
			rule:  "trailing-number",
		},
		{
			name:  "trailing year reads as a season",
			title: "Gintama 2017",
			want:  Info{SeriesName: "Gintama", SeasonNumber: 2017, IsSequel: true},
			rule:  "trailing-number",
		},
		{
			name:  "marker only keeps the title",
			title: "Season 2",
			want:  Info{SeriesName: "Season 2", SeasonNumber: 2, IsSequel: true},
			rule:  "season-n",
		},
		{
			name:  "default",
			title: "Random Unique Title XYZ123",
			want:  Info{SeriesName: "Random Unique Title XYZ123", SeasonNumber: 1},
			rule:  RuleNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := Match(tt.title, tt.english)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestExtractSeriesInfoScenarios(t *testing.T) {
	got := ExtractSeriesInfo("Attack on Titan Season 2", "")
	assert.Equal(t, 2, got.SeasonNumber)
	assert.True(t, got.IsSequel)
	assert.Contains(t, got.SeriesName, "Attack on Titan")

	got = ExtractSeriesInfo("Rascal Does Not Dream of Bunny Girl Senpai", "")
	assert.Contains(t, got.SeriesName, "Rascal Does Not Dream")
	assert.Equal(t, 1, got.SeasonNumber)

	got = ExtractSeriesInfo("TONIKAWA: Over the Moon for You", "")
	assert.Contains(t, got.SeriesName, "TONIKAWA")

	got = ExtractSeriesInfo("Shingeki no Kyojin Season 2", "Attack on Titan Season 2")
	assert.Contains(t, got.SeriesName, "Attack")
}

func TestExtractSeriesInfoIsPure(t *testing.T) {
	titles := [][2]string{
		{"Attack on Titan Season 2", ""},
		{"Shingeki no Kyojin", "Attack on Titan"},
		{"Overlord II", ""},
		{"Random Unique Title XYZ123", ""},
	}
	for _, tt := range titles {
		first := ExtractSeriesInfo(tt[0], tt[1])
		second := ExtractSeriesInfo(tt[0], tt[1])
		assert.Equal(t, first, second)
	}
}

func TestSeasonNumberNeverBelowOne(t *testing.T) {
	got := ExtractSeriesInfo("Something Season 0", "")
	assert.Equal(t, 1, got.SeasonNumber)
	assert.True(t, got.IsSequel)
}

func TestRuleNamesOrder(t *testing.T) {
	names := RuleNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "final-season-part", names[0])
	assert.Equal(t, "colon-ordinal", names[len(names)-1])
	assert.Less(t, slices.Index(names, "season-n"), slices.Index(names, "part-n"))
	assert.Less(t, slices.Index(names, "arc-suffix"), slices.Index(names, "roman-suffix"))
	assert.Less(t, slices.Index(names, "colon-number"), slices.Index(names, "trailing-number"))
}
