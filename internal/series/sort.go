package series

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the display order applied by SortGroups.
type SortKey string

const (
	SortRating   SortKey = "rating"
	SortYear     SortKey = "year"
	SortTitle    SortKey = "title"
	SortEpisodes SortKey = "episodes"
)

// ParseSortKey accepts "" as rating.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortRating, nil
	case SortRating, SortYear, SortTitle, SortEpisodes:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort %q", s)
	}
}

// SortGroups orders groups for display. Rating, year and episodes sort
// descending; title ascending. Ties fall back to display title.
func SortGroups(groups []Group, by SortKey) {
	byTitle := func(a, b Group) int {
		return cmp.Compare(strings.ToLower(a.DisplayTitle), strings.ToLower(b.DisplayTitle))
	}
	slices.SortStableFunc(groups, func(a, b Group) int {
		var c int
		switch by {
		case SortRating:
			c = cmp.Compare(b.Rating, a.Rating)
		case SortYear:
			c = cmp.Compare(b.Year, a.Year)
		case SortEpisodes:
			c = cmp.Compare(b.TotalEpisodes, a.TotalEpisodes)
		}
		if c != 0 {
			return c
		}
		return byTitle(a, b)
	})
}
