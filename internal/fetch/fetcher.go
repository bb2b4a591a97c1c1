// Package fetch implements the URL input boundary: downloading remote images
// for upload and for image backgrounds.
//
// Only http and https URLs are followed, redirects are capped, bodies are
// size-limited and the response must be image data. Every transport or HTTP
// failure wraps imaging.ErrNetworkFailure; a body that is not an image wraps
// imaging.ErrInvalidFileType.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ironsheep/bgbegone/internal/imaging"
)

// Result contains the outcome of a fetch.
type Result struct {
	Body       []byte
	MimeType   string // from Content-Type, or sniffed when absent
	StatusCode int
}

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 20MB.
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator validates URLs before fetch and on every redirect.
	// Default: ValidateURL.
	URLValidator func(string) error
	// Client overrides the HTTP transport. Timeout and redirect policy are
	// still applied.
	Client *http.Client
	Logger *slog.Logger
}

const maxRedirects = 5

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 20 * 1024 * 1024 // 20MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "bgbegone/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Fetcher downloads images over HTTP.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher that validates every redirect target.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator

	client := &http.Client{}
	if cfg.Client != nil {
		*client = *cfg.Client
	}
	client.Timeout = cfg.Timeout
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects (%d)", len(via))
		}
		if err := validate(req.URL.String()); err != nil {
			return fmt.Errorf("redirect blocked: %w", err)
		}
		return nil
	}

	return &Fetcher{client: client, config: cfg}
}

// Fetch retrieves an image. Non-2xx responses, oversized bodies and
// non-image content types are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.config.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("url %q blocked: %v: %w", rawURL, err, imaging.ErrNetworkFailure)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %v: %w", err, imaging.ErrNetworkFailure)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "image/*")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %v: %w", err, imaging.ErrNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Result{StatusCode: resp.StatusCode}, fmt.Errorf("http %d: %w", resp.StatusCode, imaging.ErrNetworkFailure)
	}

	// Read one byte past the limit to detect truncation.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %v: %w", err, imaging.ErrNetworkFailure)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes: %w", f.config.MaxBytes, imaging.ErrNetworkFailure)
	}

	mimeType := mediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mediaType(http.DetectContentType(body))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("content type %q: %w", mimeType, imaging.ErrInvalidFileType)
	}

	f.config.Logger.Debug("fetched image",
		"url", rawURL,
		"mime", mimeType,
		"bytes", len(body),
		"duration", time.Since(start))

	return &Result{
		Body:       body,
		MimeType:   mimeType,
		StatusCode: resp.StatusCode,
	}, nil
}

// Load fetches and decodes an image. It satisfies imaging.Loader.
func (f *Fetcher) Load(ctx context.Context, rawURL string) (*imaging.Raster, error) {
	res, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	r, _, err := imaging.DecodeBytes(res.Body, res.MimeType)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", rawURL, err)
	}
	return r, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
