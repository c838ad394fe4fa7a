// Package series infers franchise-level series from free-text anime titles
// and clusters catalog records into one group per series.
package series

import (
	"strings"
	"unicode/utf8"
)

// Info is the series a single title belongs to.
type Info struct {
	SeriesName   string `json:"series_name"`
	SeasonNumber int    `json:"season_number"`
	IsSequel     bool   `json:"is_sequel"`
}

// Rule names reported by [Match] for the structural patterns and the fallback.
const (
	RuleOfPhrase    = "of-phrase"
	RuleInPhrase    = "in-phrase"
	RuleColonPrefix = "colon-prefix"
	RuleNone        = "none"
)

const trailingPunct = " \t:-–—,;"

// ExtractSeriesInfo derives the series name and season number of a title.
// The English title is preferred when present. It never fails: titles that
// match no pattern are their own series at season 1.
func ExtractSeriesInfo(title, titleEnglish string) Info {
	info, _ := Match(title, titleEnglish)
	return info
}

// Match is ExtractSeriesInfo that also reports which rule decided the result.
func Match(title, titleEnglish string) (Info, string) {
	working := strings.TrimSpace(titleEnglish)
	if working == "" {
		working = strings.TrimSpace(title)
	}

	if m := reOfPhrase.FindStringSubmatch(working); m != nil {
		return Info{SeriesName: strings.TrimSpace(m[1]), SeasonNumber: 1}, RuleOfPhrase
	}
	if m := reInPhrase.FindStringSubmatch(working); m != nil {
		return Info{SeriesName: strings.TrimSpace(m[1]), SeasonNumber: 1}, RuleInPhrase
	}
	if m := reColonPrefix.FindStringSubmatch(working); m != nil {
		prefix := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(prefix) <= maxColonPrefix && !reSeasonMarker.MatchString(prefix) {
			return Info{SeriesName: prefix, SeasonNumber: 1}, RuleColonPrefix
		}
	}

	for _, r := range seasonRules {
		loc := r.Pattern.FindStringSubmatchIndex(working)
		if loc == nil {
			continue
		}
		m := submatches(working, loc)
		name := strings.TrimRight(working[:loc[0]]+working[loc[1]:], trailingPunct)
		name = strings.TrimSpace(name)
		if name == "" {
			// the whole title was the marker, e.g. "Season 2"
			name = working
		}
		return Info{SeriesName: name, SeasonNumber: r.Season.season(m), IsSequel: true}, r.Name
	}

	return Info{SeriesName: working, SeasonNumber: 1}, RuleNone
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}
