package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"BGBEGONE_LOG_LEVEL",
	"BGBEGONE_SEGMENTER_URL",
	"BGBEGONE_SEGMENTER_MODEL",
	"BGBEGONE_SEGMENTER_TIMEOUT",
	"BGBEGONE_FETCH_TIMEOUT",
	"BGBEGONE_FETCH_MAX_BYTES",
	"BGBEGONE_USER_AGENT",
	"BGBEGONE_UPLOAD_MAX_DIM",
	"BGBEGONE_DOWNLOAD_MAX_DIM",
	"BGBEGONE_QUALITY",
}

// clearEnv unsets every BGBEGONE_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "") // restores the original value on cleanup
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Image.UploadMaxDim != 1920 || cfg.Image.DownloadMaxDim != 1024 || cfg.Image.Quality != 0.9 {
		t.Errorf("image defaults: got %+v", cfg.Image)
	}
}

func TestLoadFiles_DefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFiles("", noEnvFile(t))
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadFiles_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
logging:
  level: debug
segmenter:
  endpoint: http://localhost:7000/remove
  timeout_seconds: 45
image:
  download_max_dim: 2048
  quality: 0.75
`)

	cfg, err := LoadFiles(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level: got %v", cfg.SlogLevel())
	}
	if cfg.Segmenter.Endpoint != "http://localhost:7000/remove" || cfg.SegmenterTimeout() != 45*time.Second {
		t.Errorf("segmenter: got %+v", cfg.Segmenter)
	}
	if cfg.Segmenter.Model != "isnet" {
		t.Errorf("unset keys should keep defaults, model=%q", cfg.Segmenter.Model)
	}
	if cfg.Image.DownloadMaxDim != 2048 || cfg.Image.Quality != 0.75 || cfg.Image.UploadMaxDim != 1920 {
		t.Errorf("image: got %+v", cfg.Image)
	}
}

func TestLoadFiles_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "fetch:\n  timeout_seconds: 10\n  user_agent: from-yaml\n")
	t.Setenv("BGBEGONE_FETCH_TIMEOUT", "99")
	t.Setenv("BGBEGONE_USER_AGENT", "from-env")
	t.Setenv("BGBEGONE_FETCH_MAX_BYTES", "1024")
	t.Setenv("BGBEGONE_QUALITY", "0.5")

	cfg, err := LoadFiles(path, noEnvFile(t))
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}
	if cfg.FetchTimeout() != 99*time.Second || cfg.Fetch.UserAgent != "from-env" || cfg.Fetch.MaxBytes != 1024 {
		t.Errorf("fetch: got %+v", cfg.Fetch)
	}
	if cfg.Image.Quality != 0.5 {
		t.Errorf("quality: got %v", cfg.Image.Quality)
	}
}

func TestLoadFiles_DotEnv(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "BGBEGONE_SEGMENTER_MODEL=u2net\nBGBEGONE_UPLOAD_MAX_DIM=800\n")
	t.Setenv("BGBEGONE_UPLOAD_MAX_DIM", "640")

	cfg, err := LoadFiles("", envFile)
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}
	if cfg.Segmenter.Model != "u2net" {
		t.Errorf("model from .env: got %q", cfg.Segmenter.Model)
	}
	if cfg.Image.UploadMaxDim != 640 {
		t.Errorf("environment should win over .env: got %d", cfg.Image.UploadMaxDim)
	}
}

func TestLoadFiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"malformed yaml", "logging: [unterminated", nil},
		{"bad level", "logging:\n  level: chatty\n", nil},
		{"bad endpoint", "segmenter:\n  endpoint: ftp://host/x\n", nil},
		{"bad env int", "", map[string]string{"BGBEGONE_UPLOAD_MAX_DIM": "big"}},
		{"bad env float", "", map[string]string{"BGBEGONE_QUALITY": "high"}},
		{"quality out of range", "", map[string]string{"BGBEGONE_QUALITY": "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "config.yaml", tt.yaml)
			}
			if _, err := LoadFiles(path, noEnvFile(t)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadFiles_MissingYAML(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFiles(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t)); err == nil {
		t.Error("an explicit config path that does not exist should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero segmenter timeout", func(c *Config) { c.Segmenter.TimeoutSeconds = 0 }},
		{"negative fetch timeout", func(c *Config) { c.Fetch.TimeoutSeconds = -1 }},
		{"zero max bytes", func(c *Config) { c.Fetch.MaxBytes = 0 }},
		{"zero upload dim", func(c *Config) { c.Image.UploadMaxDim = 0 }},
		{"zero quality", func(c *Config) { c.Image.Quality = 0 }},
		{"endpoint without host", func(c *Config) { c.Segmenter.Endpoint = "http://" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Logging.Level = tt.level
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.level, got, tt.want)
		}
	}
}
