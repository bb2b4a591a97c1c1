// Package config loads server configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file, a
// .env file, then BGBEGONE_* environment variables. Later sources win; a
// .env file never overrides a variable already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the server.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Image     ImageConfig     `yaml:"image"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type SegmenterConfig struct {
	// Endpoint is the background-removal service. Empty means uploads are
	// treated as finished cutouts.
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Model          string `yaml:"model"`
}

type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes"`
	UserAgent      string `yaml:"user_agent"`
}

type ImageConfig struct {
	UploadMaxDim   int     `yaml:"upload_max_dim"`   // uploads are fitted within this
	DownloadMaxDim int     `yaml:"download_max_dim"` // non-HD downloads are fitted within this
	Quality        float64 `yaml:"quality"`          // default JPEG/WebP quality, (0,1]
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Segmenter: SegmenterConfig{
			TimeoutSeconds: 120,
			Model:          "isnet",
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
			MaxBytes:       20 * 1024 * 1024,
			UserAgent:      "bgbegone/1.0",
		},
		Image: ImageConfig{
			UploadMaxDim:   1920,
			DownloadMaxDim: 1024,
			Quality:        0.9,
		},
	}
}

// Load reads configuration from an optional YAML file, ./.env and the
// environment. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	return LoadFiles(path, ".env")
}

// LoadFiles is Load with an explicit .env path. A missing .env file is not
// an error; a missing YAML file is.
func LoadFiles(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s file: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BGBEGONE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BGBEGONE_SEGMENTER_URL"); v != "" {
		c.Segmenter.Endpoint = v
	}
	if v := os.Getenv("BGBEGONE_SEGMENTER_MODEL"); v != "" {
		c.Segmenter.Model = v
	}
	if v := os.Getenv("BGBEGONE_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BGBEGONE_SEGMENTER_TIMEOUT", &c.Segmenter.TimeoutSeconds},
		{"BGBEGONE_FETCH_TIMEOUT", &c.Fetch.TimeoutSeconds},
		{"BGBEGONE_UPLOAD_MAX_DIM", &c.Image.UploadMaxDim},
		{"BGBEGONE_DOWNLOAD_MAX_DIM", &c.Image.DownloadMaxDim},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("BGBEGONE_FETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BGBEGONE_FETCH_MAX_BYTES: %w", err)
		}
		c.Fetch.MaxBytes = n
	}
	if v := os.Getenv("BGBEGONE_QUALITY"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BGBEGONE_QUALITY: %w", err)
		}
		c.Image.Quality = q
	}
	return nil
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Segmenter.Endpoint != "" {
		u, err := url.Parse(c.Segmenter.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("segmenter endpoint %q must be an http or https URL", c.Segmenter.Endpoint)
		}
	}
	if c.Segmenter.TimeoutSeconds <= 0 {
		return fmt.Errorf("segmenter timeout must be positive, got %d", c.Segmenter.TimeoutSeconds)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %d", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch max bytes must be positive, got %d", c.Fetch.MaxBytes)
	}
	if c.Image.UploadMaxDim <= 0 || c.Image.DownloadMaxDim <= 0 {
		return fmt.Errorf("image dimensions must be positive, got upload=%d download=%d",
			c.Image.UploadMaxDim, c.Image.DownloadMaxDim)
	}
	if c.Image.Quality <= 0 || c.Image.Quality > 1 {
		return fmt.Errorf("quality must be in (0,1], got %v", c.Image.Quality)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Logging.Level)
	return level
}

// SegmenterTimeout returns the segmentation request timeout.
func (c *Config) SegmenterTimeout() time.Duration {
	return time.Duration(c.Segmenter.TimeoutSeconds) * time.Second
}

// FetchTimeout returns the URL fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
