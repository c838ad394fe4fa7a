// Package scraper pulls anime records from external sources, merges records
// that describe the same show and stores the result in the catalog.
package scraper

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"animehub/pkg/models"
)

// Source is implemented by each external data source. Each source maps its
// own format into AnimeCanonical.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]models.AnimeCanonical, error)
}

// Aggregator fetches every source concurrently and merges the results.
type Aggregator struct {
	Sources []Source
	Logger  *zap.Logger
}

func NewAggregator(logger *zap.Logger, sources ...Source) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{Sources: sources, Logger: logger.Named("scraper")}
}

// SourceResult is what one source contributed to a run.
type SourceResult struct {
	Name  string
	Count int
	Err   error
}

// FetchAndMerge fetches all sources in parallel. A failing source is logged
// and skipped. Merging walks sources in their configured order, so output
// is deterministic regardless of which fetch finishes first.
func (a *Aggregator) FetchAndMerge(ctx context.Context) ([]models.AnimeCanonical, []SourceResult, error) {
	fetched := make([][]models.AnimeCanonical, len(a.Sources))
	results := make([]SourceResult, len(a.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.Sources {
		g.Go(func() error {
			a.Logger.Info("fetching", zap.String("source", src.Name()))
			items, err := src.FetchAll(gctx)
			results[i] = SourceResult{Name: src.Name(), Count: len(items), Err: err}
			if err != nil {
				a.Logger.Warn("source failed", zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			fetched[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, results, err
	}
	if err := ctx.Err(); err != nil {
		return nil, results, err
	}

	m := newMerger()
	for i, items := range fetched {
		for _, item := range items {
			m.add(item, results[i].Name)
		}
	}
	return m.out, results, nil
}

// merger groups records describing the same anime. Two records match when a
// normalized title of one equals a normalized title of the other and their
// years agree or one of them is unknown.
type merger struct {
	out     []models.AnimeCanonical
	byTitle map[string][]int
}

func newMerger() *merger {
	return &merger{byTitle: make(map[string][]int)}
}

func (m *merger) add(item models.AnimeCanonical, source string) {
	keys := titleKeys(item)
	for _, k := range keys {
		for _, idx := range m.byTitle[k] {
			if yearsCompatible(m.out[idx].Year, item.Year) {
				m.out[idx] = mergeAnime(m.out[idx], item, source)
				m.index(idx, titleKeys(m.out[idx]))
				return
			}
		}
	}

	if item.SourceIDs == nil {
		item.SourceIDs = map[string]string{}
	}
	m.out = append(m.out, item)
	m.index(len(m.out)-1, keys)
}

func (m *merger) index(idx int, keys []string) {
	for _, k := range keys {
		if !slices.Contains(m.byTitle[k], idx) {
			m.byTitle[k] = append(m.byTitle[k], idx)
		}
	}
}

func yearsCompatible(a, b int) bool {
	return a == 0 || b == 0 || a == b
}

func titleKeys(a models.AnimeCanonical) []string {
	var keys []string
	for _, t := range []string{a.Title, a.TitleEnglish} {
		if k := normalizeKey(t); k != "" && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// normalizeKey lower-cases s and collapses every run of non letters or digits
// to one space.
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// mergeAnime resolves two descriptions of the same anime:
//
//   - base keeps its ID and Title; a differing incoming title becomes an alt title
//   - empty fields are filled from incoming
//   - genres are unioned
//   - "finished" beats "airing" beats "upcoming"
//   - the larger episode count and the longer synopsis win
//   - adult is sticky
//   - source IDs are merged
func mergeAnime(base, incoming models.AnimeCanonical, source string) models.AnimeCanonical {
	if incoming.Title != "" && incoming.Title != base.Title {
		base.AltTitles = appendIfMissing(base.AltTitles, incoming.Title)
	}
	for _, alt := range incoming.AltTitles {
		if alt != base.Title {
			base.AltTitles = appendIfMissing(base.AltTitles, alt)
		}
	}

	if base.TitleEnglish == "" {
		base.TitleEnglish = incoming.TitleEnglish
	}
	if base.Format == "" {
		base.Format = incoming.Format
	}
	if base.Rating == 0 {
		base.Rating = incoming.Rating
	}
	if base.CoverURL == "" {
		base.CoverURL = incoming.CoverURL
	}
	if base.Year == 0 {
		base.Year = incoming.Year
	}

	base.Genres = mergeStringSlices(base.Genres, incoming.Genres)
	base.Status = resolveStatus(base.Status, incoming.Status)
	base.Adult = base.Adult || incoming.Adult

	if incoming.Episodes > base.Episodes {
		base.Episodes = incoming.Episodes
	}
	if len(incoming.Synopsis) > len(base.Synopsis) {
		base.Synopsis = incoming.Synopsis
	}

	merged := make(map[string]string, len(base.SourceIDs)+len(incoming.SourceIDs))
	for k, v := range base.SourceIDs {
		merged[k] = v
	}
	for k, v := range incoming.SourceIDs {
		merged[k] = v
	}
	if len(incoming.SourceIDs) == 0 && incoming.ID != "" {
		merged[source] = incoming.ID
	}
	base.SourceIDs = merged

	return base
}

var statusRank = map[string]int{"upcoming": 1, "airing": 2, "finished": 3}

func resolveStatus(a, b string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if statusRank[b] > statusRank[a] || a == "" {
		return b
	}
	return a
}

func appendIfMissing(slice []string, v string) []string {
	if slices.Contains(slice, v) {
		return slice
	}
	return append(slice, v)
}

func mergeStringSlices(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	for _, v := range b {
		out = appendIfMissing(out, v)
	}
	return out
}
