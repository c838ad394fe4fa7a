package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv lets deployments (Docker Compose) override file values.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setString("ANIMEHUB_DB_PATH", &c.Database.Path)
	setString("ANIMEHUB_JWT_SECRET", &c.Auth.JWTSecret)
	setString("ANIMEHUB_JWT_ISSUER", &c.Auth.JWTIssuer)
	setString("ANIMEHUB_HTTP_ADDR", &c.Server.HTTPAddr)
	setString("ANIMEHUB_SYNC_ADDR", &c.Server.SyncAddr)
	setString("ANIMEHUB_GRPC_ADDR", &c.Server.GRPCAddr)
	setString("ANIMEHUB_NOTIFY_ADDR", &c.Server.NotifyAddr)
	setString("ANIMEHUB_LOG_LEVEL", &c.Log.Level)
	setString("ANIMEHUB_MIRROR_URL", &c.Scraper.MirrorURL)

	if v, ok := os.LookupEnv("ANIMEHUB_JWT_TTL_HOURS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Auth.JWTTTLHours = n
		}
	}
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Database.Path != ":memory:" {
		if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
			return fmt.Errorf("database.path: %w", err)
		}
	}

	trimDefault(&c.Server.HTTPAddr, defaultHTTPAddr)
	trimDefault(&c.Server.SyncAddr, defaultSyncAddr)
	trimDefault(&c.Server.GRPCAddr, defaultGRPCAddr)
	trimDefault(&c.Server.NotifyAddr, defaultNotifyAddr)
	trimDefault(&c.Server.MirrorAddr, defaultMirrorAddr)
	trimDefault(&c.Auth.JWTIssuer, defaultJWTIssuer)
	trimDefault(&c.Scraper.JikanBaseURL, defaultJikanBaseURL)
	trimDefault(&c.Scraper.UserAgent, defaultUserAgent)
	c.Scraper.JikanBaseURL = strings.TrimRight(c.Scraper.JikanBaseURL, "/")
	c.Scraper.MirrorURL = strings.TrimSpace(c.Scraper.MirrorURL)

	if c.Auth.JWTTTLHours <= 0 {
		c.Auth.JWTTTLHours = defaultJWTTTLHours
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		c.Scraper.TimeoutSeconds = defaultTimeout
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	return nil
}

func trimDefault(v *string, def string) {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		*v = def
	}
}
