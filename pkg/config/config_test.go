package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/pkg/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"ANIMEHUB_CONFIG", "ANIMEHUB_DB_PATH", "ANIMEHUB_JWT_SECRET", "ANIMEHUB_JWT_ISSUER",
		"ANIMEHUB_JWT_TTL_HOURS", "ANIMEHUB_HTTP_ADDR", "ANIMEHUB_SYNC_ADDR", "ANIMEHUB_GRPC_ADDR",
		"ANIMEHUB_NOTIFY_ADDR", "ANIMEHUB_LOG_LEVEL", "ANIMEHUB_MIRROR_URL",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(home, ".config", "animehub", "config.toml"), resolved)

	assert.Equal(t, filepath.Join(home, ".animehub", "data.db"), cfg.Database.Path)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 24*time.Hour, cfg.AuthConfig().JWTDuration)
	assert.Equal(t, "https://api.jikan.moe/v4", cfg.Scraper.JikanBaseURL)
	assert.Equal(t, 15*time.Second, cfg.ScraperTimeout())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "animehub.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
http_addr = ":7000"

[auth]
jwt_secret = "from-file"
jwt_ttl_hours = 2

[log]
level = "DEBUG"

[filter]
deny_genres = ["Horror"]
deny_terms = ["gore"]
`), 0o644))

	t.Setenv("ANIMEHUB_JWT_SECRET", "from-env")
	t.Setenv("ANIMEHUB_DB_PATH", ":memory:")

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)

	assert.Equal(t, ":7000", cfg.Server.HTTPAddr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.AuthConfig().JWTDuration)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, []string{"Horror"}, cfg.Filter.DenyGenres)
	assert.Equal(t, []string{"gore"}, cfg.Filter.DenyTerms)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nnope = 1\n"), 0o644))

	_, _, _, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Log.Level = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	cfg = config.Default()
	cfg.Auth.JWTSecret = " "
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
}

func TestSampleConfigParses(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "conf", "config.toml")
	require.NoError(t, config.CreateSample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, toml.Unmarshal(data, &cfg))
	assert.Equal(t, ":9092", cfg.Server.GRPCAddr)
	assert.Equal(t, []string{"Hentai"}, cfg.Filter.DenyGenres)

	loaded, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, filepath.Join(home, ".animehub", "data.db"), loaded.Database.Path)
}

func TestExpandPathAndScrapeInterval(t *testing.T) {
	home := isolate(t)

	got, err := config.ExpandPath("~/x/y.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y.db"), got)

	cfg := config.Default()
	assert.Zero(t, cfg.ScrapeInterval())
	cfg.Scraper.IntervalMinutes = 30
	assert.Equal(t, 30*time.Minute, cfg.ScrapeInterval())

	cfg.Scraper.IntervalMinutes = -1
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
}
