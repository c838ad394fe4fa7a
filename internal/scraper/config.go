package scraper

import (
	"go.uber.org/zap"

	"animehub/pkg/config"
)

// NewAggregatorFromConfig builds the configured sources. Jikan is skipped when
// jikan_pages is 0 and the mirror when mirror_url is empty.
func NewAggregatorFromConfig(cfg *config.Config, logger *zap.Logger) *Aggregator {
	var sources []Source
	if cfg.Scraper.JikanPages > 0 {
		js := NewJikanSource(cfg.Scraper.JikanBaseURL, cfg.Scraper.JikanPages, cfg.ScraperTimeout())
		if cfg.Scraper.UserAgent != "" {
			js.UserAgent = cfg.Scraper.UserAgent
		}
		sources = append(sources, js)
	}
	if cfg.Scraper.MirrorURL != "" {
		sources = append(sources, NewMirrorSource(cfg.Scraper.MirrorURL, cfg.ScraperTimeout()))
	}
	return NewAggregator(logger, sources...)
}
