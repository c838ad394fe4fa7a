// Package config loads animehub settings from TOML with environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"animehub/internal/contentfilter"
)

//go:embed sample_config.toml
var sampleConfig string

// Server holds listen addresses.
type Server struct {
	HTTPAddr   string `toml:"http_addr"`
	SyncAddr   string `toml:"sync_addr"`
	GRPCAddr   string `toml:"grpc_addr"`
	NotifyAddr string `toml:"notify_addr"`
	MirrorAddr string `toml:"mirror_addr"`
}

type Database struct {
	Path string `toml:"path"`
}

type Auth struct {
	JWTSecret   string `toml:"jwt_secret"`
	JWTIssuer   string `toml:"jwt_issuer"`
	JWTTTLHours int    `toml:"jwt_ttl_hours"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Scraper configures catalog ingestion sources.
type Scraper struct {
	JikanBaseURL   string `toml:"jikan_base_url"`
	JikanPages     int    `toml:"jikan_pages"`
	MirrorURL      string `toml:"mirror_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	// IntervalMinutes schedules ingestion inside cmd/api-server; 0 disables it.
	IntervalMinutes int `toml:"interval_minutes"`
}

// Config encapsulates all configuration values for animehub.
type Config struct {
	Server   Server              `toml:"server"`
	Database Database            `toml:"database"`
	Auth     Auth                `toml:"auth"`
	Log      Log                 `toml:"log"`
	Scraper  Scraper             `toml:"scraper"`
	Filter   contentfilter.Rules `toml:"filter"`
}

// AuthConfig is the resolved token configuration handed to the auth package.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func (c *Config) AuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:   c.Auth.JWTSecret,
		JWTIssuer:   c.Auth.JWTIssuer,
		JWTDuration: time.Duration(c.Auth.JWTTTLHours) * time.Hour,
	}
}

// ScraperTimeout is the per-request HTTP timeout for scraper sources.
func (c *Config) ScraperTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/animehub/config.toml")
}

// Load locates, parses and validates a configuration file. A missing file is
// not an error: defaults and environment overrides apply. The returned path is
// the file that was (or would have been) read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv("ANIMEHUB_CONFIG")
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("animehub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ScrapeInterval is how often cmd/api-server runs ingestion, or 0 when off.
func (c *Config) ScrapeInterval() time.Duration {
	return time.Duration(c.Scraper.IntervalMinutes) * time.Minute
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
