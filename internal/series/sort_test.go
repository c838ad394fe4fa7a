package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortRating, k)

	k, err = ParseSortKey(" Year ")
	require.NoError(t, err)
	assert.Equal(t, SortYear, k)

	_, err = ParseSortKey("popularity")
	assert.Error(t, err)
}

func TestSortGroups(t *testing.T) {
	groups := []Group{
		{DisplayTitle: "beta", Rating: 7, TotalEpisodes: 50},
		{DisplayTitle: "Alpha", Rating: 9, TotalEpisodes: 12},
		{DisplayTitle: "gamma", Rating: 9, TotalEpisodes: 24},
	}
	groups[0].Year = 2020
	groups[1].Year = 2010
	groups[2].Year = 2015

	titles := func() []string {
		var out []string
		for _, g := range groups {
			out = append(out, g.DisplayTitle)
		}
		return out
	}

	SortGroups(groups, SortRating)
	assert.Equal(t, []string{"Alpha", "gamma", "beta"}, titles())

	SortGroups(groups, SortYear)
	assert.Equal(t, []string{"beta", "gamma", "Alpha"}, titles())

	SortGroups(groups, SortEpisodes)
	assert.Equal(t, []string{"beta", "gamma", "Alpha"}, titles())

	SortGroups(groups, SortTitle)
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, titles())
}
