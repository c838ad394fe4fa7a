package config

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid config")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: auth.jwt_secret must be set (or ANIMEHUB_JWT_SECRET)", ErrInvalid)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q must be one of debug, info, warn, error", ErrInvalid, c.Log.Level)
	}
	if c.Scraper.JikanPages < 0 {
		return fmt.Errorf("%w: scraper.jikan_pages must not be negative", ErrInvalid)
	}
	if c.Scraper.JikanBaseURL != "" && !strings.HasPrefix(c.Scraper.JikanBaseURL, "http") {
		return fmt.Errorf("%w: scraper.jikan_base_url must be an http(s) URL", ErrInvalid)
	}
	if c.Scraper.IntervalMinutes < 0 {
		return fmt.Errorf("%w: scraper.interval_minutes must not be negative", ErrInvalid)
	}
	return nil
}
