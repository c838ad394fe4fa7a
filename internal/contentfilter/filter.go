// Package contentfilter hides catalog records by allow and deny lists.
package contentfilter

import (
	"strings"

	"golang.org/x/text/cases"

	"animehub/pkg/models"
)

// Rules configure a Filter. Matching is case-insensitive.
type Rules struct {
	AllowIDs   []string `toml:"allow_ids"`
	DenyIDs    []string `toml:"deny_ids"`
	DenyGenres []string `toml:"deny_genres"`
	DenyTerms  []string `toml:"deny_terms"`
	AllowAdult bool     `toml:"allow_adult"`
}

// Filter is immutable after New and safe for concurrent use.
// A nil *Filter allows everything.
type Filter struct {
	allowIDs   map[string]struct{}
	denyIDs    map[string]struct{}
	denyGenres map[string]struct{}
	denyTerms  []string
	allowAdult bool
}

func New(r Rules) *Filter {
	return &Filter{
		allowIDs:   toSet(r.AllowIDs, strings.TrimSpace),
		denyIDs:    toSet(r.DenyIDs, strings.TrimSpace),
		denyGenres: toSet(r.DenyGenres, fold),
		denyTerms:  foldAll(r.DenyTerms),
		allowAdult: r.AllowAdult,
	}
}

// fold builds a new Caser per call; Casers carry state and cannot be shared.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func toSet(in []string, norm func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		if n := norm(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Allows reports whether a is visible. An explicit allow beats every deny rule.
func (f *Filter) Allows(a models.Anime) bool {
	if f == nil {
		return true
	}
	if _, ok := f.allowIDs[a.ID]; ok {
		return true
	}
	if _, ok := f.denyIDs[a.ID]; ok {
		return false
	}
	if a.Adult && !f.allowAdult {
		return false
	}
	for _, g := range a.Genres {
		if _, ok := f.denyGenres[fold(g)]; ok {
			return false
		}
	}
	if len(f.denyTerms) > 0 {
		title := fold(a.Title)
		english := fold(a.TitleEnglish)
		for _, term := range f.denyTerms {
			if strings.Contains(title, term) || strings.Contains(english, term) {
				return false
			}
		}
	}
	return true
}

// Apply returns the allowed records in their original order.
func (f *Filter) Apply(items []models.Anime) []models.Anime {
	out := make([]models.Anime, 0, len(items))
	for _, a := range items {
		if f.Allows(a) {
			out = append(out, a)
		}
	}
	return out
}
