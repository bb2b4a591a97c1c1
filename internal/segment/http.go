package segment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/bgbegone/internal/imaging"
)

// HTTPSegmenter posts images to a remote background-removal endpoint.
//
// The request is multipart/form-data with an "image" file part and "model",
// "format" and "quality" fields. A 200 response whose body is image data is
// the cutout.
type HTTPSegmenter struct {
	endpoint   string
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

// HTTPConfig configures an HTTPSegmenter.
type HTTPConfig struct {
	Endpoint string
	Timeout  time.Duration // Default: 2m.
	MaxBytes int64         // Max response size. Default: 50MB.
	Client   *http.Client
	Logger   *slog.Logger
}

// NewHTTPSegmenter creates a client for endpoint.
func NewHTTPSegmenter(cfg HTTPConfig) *HTTPSegmenter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 50 * 1024 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSegmenter{
		endpoint:   cfg.Endpoint,
		httpClient: client,
		maxBytes:   cfg.MaxBytes,
		logger:     cfg.Logger,
	}
}

// Segment uploads blob and returns the cutout. Every failure wraps
// imaging.ErrSegmentationFailure; cancellation also matches ctx.Err().
func (s *HTTPSegmenter) Segment(ctx context.Context, blob []byte, opts Options) ([]byte, error) {
	opts.report(0)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "upload")
	if err != nil {
		return nil, segmentErr("failed to create image part", err)
	}
	if _, err := part.Write(blob); err != nil {
		return nil, segmentErr("failed to write image part", err)
	}
	if opts.Model != "" {
		if err := writer.WriteField("model", opts.Model); err != nil {
			return nil, segmentErr("failed to write model", err)
		}
	}
	if err := writer.WriteField("format", opts.OutputFormat()); err != nil {
		return nil, segmentErr("failed to write format", err)
	}
	if opts.Quality > 0 {
		if err := writer.WriteField("quality", strconv.FormatFloat(opts.Quality, 'f', -1, 64)); err != nil {
			return nil, segmentErr("failed to write quality", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, segmentErr("failed to close writer", err)
	}

	// Upload and download each count for a third of the progress; the last
	// third is reported once the response has been checked.
	stages := NewStageReporter(3, opts.Progress)
	reqBody := &countingReader{r: bytes.NewReader(body.Bytes()), stage: "upload", total: int64(body.Len()), stages: stages}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, reqBody)
	if err != nil {
		return nil, segmentErr("failed to create request", err)
	}
	httpReq.ContentLength = reqBody.total
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Accept", opts.OutputFormat())

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", imaging.ErrSegmentationFailure, ctxErr)
		}
		return nil, segmentErr("failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), imaging.ErrSegmentationFailure)
	}

	respBody := &countingReader{r: resp.Body, stage: "download", total: resp.ContentLength, stages: stages}
	out, err := io.ReadAll(io.LimitReader(respBody, s.maxBytes+1))
	if err != nil {
		return nil, segmentErr("failed to read response", err)
	}
	if int64(len(out)) > s.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes: %w", s.maxBytes, imaging.ErrSegmentationFailure)
	}
	if ct := http.DetectContentType(out); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("response is %s, not an image: %w", ct, imaging.ErrSegmentationFailure)
	}

	s.logger.Debug("segmentation complete",
		"endpoint", s.endpoint,
		"in_bytes", len(blob),
		"out_bytes", len(out),
		"duration", time.Since(start))

	opts.report(1)
	return out, nil
}

func segmentErr(msg string, err error) error {
	return fmt.Errorf("%s: %v: %w", msg, err, imaging.ErrSegmentationFailure)
}

// countingReader reports the bytes read through it as one progress stage.
// A total of zero or less (unknown length) reports no progress within the
// stage.
type countingReader struct {
	r      io.Reader
	stage  string
	n      int64
	total  int64
	stages *StageReporter
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += int64(n)
		c.stages.Report(c.stage, c.n, c.total)
	}
	return n, err
}
