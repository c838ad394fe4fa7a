package series

import (
	"regexp"
	"strconv"
	"strings"
)

// FinalSeason is the season number assigned to "Final Season" titles so they
// sort after any numbered season of the same series.
const FinalSeason = 100

// seasonSource yields a season number for a matched rule: either a fixed
// constant or a capture group passed through a transform.
type seasonSource struct {
	fixed     int
	group     int
	transform func(string) int
}

func fixed(n int) seasonSource {
	return seasonSource{fixed: n}
}

func captured(group int, transform func(string) int) seasonSource {
	return seasonSource{group: group, transform: transform}
}

func (s seasonSource) season(m []string) int {
	n := s.fixed
	if s.transform != nil && s.group < len(m) {
		n = s.transform(m[s.group])
	}
	if n < 1 {
		return 1
	}
	return n
}

// Rule pairs a compiled pattern with the season it implies. Rules are
// evaluated in order by [Match]; first match wins and the matched text is
// removed from the title.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Season  seasonSource
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func plus(base int) func(string) int {
	return func(s string) int { return base + atoi(s) }
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

func ordinalWord(s string) int {
	return ordinalWords[strings.ToLower(s)]
}

var romanNumerals = map[string]int{"II": 2, "III": 3, "IV": 4, "V": 5}

func roman(s string) int {
	return romanNumerals[s]
}

func ordinalSuffix(s string) int {
	return atoi(strings.TrimRight(strings.ToLower(s), "ndrsth"))
}

// --- Structural patterns (checked before the season table) ---

var (
	reOfPhrase     = regexp.MustCompile(`(?i)^(.+?\sof)\s+\S.*$`)
	reInPhrase     = regexp.MustCompile(`(?i)^(.+?\sin)\s+\S.*$`)
	reColonPrefix  = regexp.MustCompile(`^([^:]+):\s+\S.*$`)
	reSeasonMarker = regexp.MustCompile(`(?i)\b(season|part|final|arc)\b`)
)

const maxColonPrefix = 40

// sep swallows the separator run between a series name and its season marker.
const sep = `[\s:,;\-–—]*`

// seasonRules is the ordered season table. Order matters.
var seasonRules = []Rule{
	{
		Name:    "final-season-part",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(?:the\s+)?final\s+season\s+part\s*(\d+)\b.*$`),
		Season:  captured(1, plus(FinalSeason)),
	},
	{
		Name:    "final-season",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(?:the\s+)?final\s+season\b.*$`),
		Season:  fixed(FinalSeason),
	},
	{
		Name:    "final-chapters",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(?:the\s+)?final\s+chapters?\b.*$`),
		Season:  fixed(FinalSeason),
	},
	{
		Name:    "season-n",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\bseason\s*(\d+)\b.*$`),
		Season:  captured(1, atoi),
	},
	{
		Name:    "ordinal-season",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(\d+(?:st|nd|rd|th))\s+season\b.*$`),
		Season:  captured(1, ordinalSuffix),
	},
	{
		Name:    "word-ordinal-season",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\s+season\b.*$`),
		Season:  captured(1, ordinalWord),
	},
	{
		Name:    "s-suffix",
		Pattern: regexp.MustCompile(`(?i)\s+s(\d{1,2})$`),
		Season:  captured(1, atoi),
	},
	{
		Name:    "part-n",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\bpart\s*(\d+)\b.*$`),
		Season:  captured(1, atoi),
	},
	{
		Name:    "ordinal-part",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(\d+(?:st|nd|rd|th))\s+part\b.*$`),
		Season:  captured(1, ordinalSuffix),
	},
	{
		Name:    "cour-n",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\bcour\s*(\d+)\b.*$`),
		Season:  captured(1, atoi),
	},
	{
		Name:    "ordinal-cour",
		Pattern: regexp.MustCompile(`(?i)` + sep + `\b(\d+(?:st|nd|rd|th))\s+cour\b.*$`),
		Season:  captured(1, ordinalSuffix),
	},
	{
		Name:    "arc-suffix",
		Pattern: regexp.MustCompile(`(?i)(?:(?:\s+[\-–—]+|\s*:)\s*[^:\-–—]+?|\s+\S+)\s+arc\s*$`),
		Season:  fixed(2),
	},
	{
		Name:    "roman-suffix",
		Pattern: regexp.MustCompile(`\s+(II|III|IV|V)$`),
		Season:  captured(1, roman),
	},
	{
		Name:    "roman-colon",
		Pattern: regexp.MustCompile(`\s+(II|III|IV|V)\s*:.*$`),
		Season:  captured(1, roman),
	},
	{
		Name:    "colon-number",
		Pattern: regexp.MustCompile(`\s*:\s*(\d+)$`),
		Season:  captured(1, atoi),
	},
	{
		Name:    "trailing-number",
		Pattern: regexp.MustCompile(`\s+(\d+)$`),
		Season:  captured(1, atoi),
	},
	{
		Name:    "colon-ordinal",
		Pattern: regexp.MustCompile(`(?i)\s*:\s*(2nd|3rd|4th)\b.*$`),
		Season:  captured(1, ordinalSuffix),
	},
}

// RuleNames lists the season table in evaluation order.
func RuleNames() []string {
	out := make([]string, 0, len(seasonRules))
	for _, r := range seasonRules {
		out = append(out, r.Name)
	}
	return out
}
