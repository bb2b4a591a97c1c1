// Package session holds the state of one editing session and orchestrates the
// pipeline over it: upload, segmentation, background compositing, tone
// adjustment, region editing and download.
//
// All state lives in a Session; methods are safe for concurrent use. Pixel
// work and I/O run without holding the lock, and results are committed only
// if the session has not been cleared or re-uploaded in the meantime.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ironsheep/bgbegone/internal/fetch"
	"github.com/ironsheep/bgbegone/internal/imaging"
	"github.com/ironsheep/bgbegone/internal/segment"
)

// URLFetcher downloads image bytes for UploadURL.
type URLFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Options configures a Session.
type Options struct {
	// Segmenter performs background removal. Default: segment.AlphaPassthrough.
	Segmenter segment.Segmenter

	// Fetcher serves UploadURL. Nil disables URL uploads.
	Fetcher URLFetcher

	// Loader loads image backgrounds. Nil disables image backgrounds.
	Loader imaging.Loader

	// Model is passed to the segmenter.
	Model string

	// UploadMaxDim bounds uploads before processing. Default: 1920. A
	// negative value disables downscaling.
	UploadMaxDim int

	// MaxPixels rejects uploads whose header declares more pixels, before
	// they are decoded. Default: 100 megapixels.
	MaxPixels int

	// StandardMaxDim bounds non-HD downloads. Default: 1024. A negative
	// value disables downscaling.
	StandardMaxDim int

	// DefaultQuality is used for lossy downloads without a quality.
	// Default: imaging.DefaultQuality.
	DefaultQuality float64

	// OnProgress observes segmentation progress. May be nil.
	OnProgress segment.ProgressFunc

	Logger *slog.Logger
}

const (
	defaultMaxPixels      = 100_000_000
	defaultUploadMaxDim   = 1920
	defaultStandardMaxDim = 1024
)

func (o *Options) defaults() {
	if o.Segmenter == nil {
		o.Segmenter = segment.AlphaPassthrough{}
	}
	if o.UploadMaxDim == 0 {
		o.UploadMaxDim = defaultUploadMaxDim
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = defaultMaxPixels
	}
	if o.StandardMaxDim == 0 {
		o.StandardMaxDim = defaultStandardMaxDim
	}
	if o.DefaultQuality <= 0 || o.DefaultQuality > 1 {
		o.DefaultQuality = imaging.DefaultQuality
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Session is the single context object for one user's image.
type Session struct {
	opts       Options
	logger     *slog.Logger
	compositor *imaging.Compositor

	mu sync.Mutex

	// generation changes on every upload and clear. In-flight work started
	// under an older generation is discarded.
	generation uint64

	original *imaging.Raster
	blob     []byte // bytes sent to the segmenter
	info     *imaging.ImageInfo

	cutout    *imaging.Raster // segmentation result
	composite *imaging.Raster // cutout over the background, untoned
	processed *imaging.Raster // composite with tone applied

	background imaging.BackgroundSpec
	tone       imaging.ToneSettings

	processing bool
	cancel     context.CancelFunc
	progress   *segment.FractionReporter

	editor editor
}

// New creates an empty session.
func New(opts Options) *Session {
	opts.defaults()
	return &Session{
		opts:       opts,
		logger:     opts.Logger,
		compositor: imaging.NewCompositor(opts.Loader, opts.Logger),
		tone:       imaging.DefaultTone,
		progress:   segment.NewFractionReporter(nil),
	}
}

// Upload validates and decodes an image and makes it the session's original.
//
// A non-image MIME type or undecodable data fails with
// imaging.ErrInvalidFileType and leaves the session untouched, as does an
// image declaring more than MaxPixels. Images larger than UploadMaxDim are
// downscaled. Any previous result is discarded and an
// in-flight Process is cancelled; background and tone settings are kept.
func (s *Session) Upload(ctx context.Context, blob []byte, mimeType string) (*imaging.ImageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size, format, err := imaging.DecodeConfig(blob); err == nil && size.W*size.H > s.opts.MaxPixels {
		s.logger.Warn("upload rejected", "format", format, "width", size.W, "height", size.H)
		return nil, fmt.Errorf("image is %dx%d, over the %d pixel limit: %w",
			size.W, size.H, s.opts.MaxPixels, imaging.ErrInvalidFileType)
	}
	r, info, err := imaging.DecodeBytes(blob, mimeType)
	if err != nil {
		s.logger.Warn("upload rejected", "mime", mimeType, "bytes", len(blob), "error", err)
		return nil, err
	}

	sendBlob := blob
	if scaled := imaging.Downscale(r, s.opts.UploadMaxDim); scaled != r {
		s.logger.Debug("upload downscaled",
			"from", fmt.Sprintf("%dx%d", r.Width(), r.Height()),
			"to", fmt.Sprintf("%dx%d", scaled.Width(), scaled.Height()))
		data, err := imaging.Encode(scaled, imaging.EncodeRequest{Format: imaging.FormatPNG})
		if err != nil {
			return nil, err
		}
		r, sendBlob = scaled, data
		info.Width, info.Height = r.Width(), r.Height()
	}

	s.mu.Lock()
	s.resetLocked()
	s.original = r
	s.blob = sendBlob
	s.info = info
	s.mu.Unlock()

	s.logger.Info("image uploaded",
		"format", info.Format,
		"width", info.Width,
		"height", info.Height,
		"bytes", info.SizeBytes)
	return info, nil
}

// UploadFile reads a local file and uploads it. The MIME type is sniffed
// from the contents.
func (s *Session) UploadFile(ctx context.Context, path string) (*imaging.ImageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return s.Upload(ctx, data, http.DetectContentType(data))
}

// UploadURL fetches a remote image and uploads it.
func (s *Session) UploadURL(ctx context.Context, url string) (*imaging.ImageInfo, error) {
	if s.opts.Fetcher == nil {
		return nil, fmt.Errorf("url uploads are not configured: %w", imaging.ErrNetworkFailure)
	}
	res, err := s.opts.Fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("url upload failed", "url", url, "error", err)
		return nil, err
	}
	return s.Upload(ctx, res.Body, res.MimeType)
}

// SetBackground changes the background.
//
// If a cutout exists it is re-composited immediately; on failure (for
// example an unreachable image URL) the previous background and result are
// kept and the cutout remains available for another attempt. Pending editor
// work is discarded.
func (s *Session) SetBackground(ctx context.Context, spec imaging.BackgroundSpec) error {
	s.mu.Lock()
	cutout, gen, tone := s.cutout, s.generation, s.tone
	s.mu.Unlock()

	if cutout == nil {
		s.mu.Lock()
		s.background = spec
		s.mu.Unlock()
		return nil
	}

	composite, err := s.compositor.Composite(ctx, cutout, spec)
	if err != nil {
		return err
	}
	processed, err := imaging.AdjustTone(composite, tone)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || cutout != s.cutout {
		return ErrCancelled
	}
	if s.tone != tone {
		if processed, err = imaging.AdjustTone(composite, s.tone); err != nil {
			return err
		}
	}
	s.background = spec
	s.composite = composite
	s.processed = processed
	s.editor.reset()
	s.logger.Info("background changed", "background", spec.String())
	return nil
}

// SetTone changes brightness and contrast. An existing result is recomputed
// from the untoned composite.
func (s *Session) SetTone(settings imaging.ToneSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tone = settings
	if s.composite == nil {
		return nil
	}
	processed, err := imaging.AdjustTone(s.composite, settings)
	if err != nil {
		return err
	}
	s.processed = processed
	s.editor.reset()
	return nil
}

// Process runs segmentation, background compositing and tone adjustment.
//
// Only one run may be in flight; a second call returns ErrBusy. Clear or a
// new upload cancels the run through its context and the run returns
// ErrCancelled. Nothing is committed on failure except the segmentation
// cutout when only compositing failed, so a different background can be
// tried without segmenting again. A background set while the run is in
// flight is composited before the result is committed.
func (s *Session) Process(ctx context.Context) error {
	s.mu.Lock()
	if s.original == nil {
		s.mu.Unlock()
		return ErrNoImage
	}
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.processing = true
	s.cancel = cancel
	s.progress = segment.NewFractionReporter(s.opts.OnProgress)
	gen, blob, background := s.generation, s.blob, s.background
	reporter := s.progress
	s.mu.Unlock()

	start := time.Now()
	cutout, composite, err := s.run(ctx, blob, background, reporter)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The background may have changed while segmentation ran.
	for err == nil && gen == s.generation && s.background != background {
		background = s.background
		s.mu.Unlock()
		s.logger.Debug("background changed during processing", "background", background.String())
		composite, err = s.compositor.Composite(ctx, cutout, background)
		if err == nil {
			err = ctx.Err()
		}
		s.mu.Lock()
	}

	if gen != s.generation {
		s.logger.Info("processing result discarded", "reason", "session cleared")
		return ErrCancelled
	}
	s.processing = false
	s.cancel = nil

	if cutout != nil {
		s.cutout = cutout
	}
	if err != nil {
		s.logger.Warn("processing failed", "error", err, "duration", time.Since(start))
		return err
	}

	processed, err := imaging.AdjustTone(composite, s.tone)
	if err != nil {
		return err
	}
	s.composite = composite
	s.processed = processed
	s.editor.reset()

	s.logger.Info("processing complete",
		"width", processed.Width(),
		"height", processed.Height(),
		"background", background.String(),
		"duration", time.Since(start))
	return nil
}

// run performs the unlocked part of Process. The cutout is returned whenever
// segmentation succeeded, even if compositing failed.
func (s *Session) run(ctx context.Context, blob []byte, bg imaging.BackgroundSpec, reporter *segment.FractionReporter) (*imaging.Raster, *imaging.Raster, error) {
	out, err := s.opts.Segmenter.Segment(ctx, blob, segment.Options{
		Model:    s.opts.Model,
		Format:   "image/png",
		Progress: reporter.Func(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if !errors.Is(err, imaging.ErrSegmentationFailure) {
			err = fmt.Errorf("%v: %w", err, imaging.ErrSegmentationFailure)
		}
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cutout, _, err := imaging.DecodeBytes(out, http.DetectContentType(out))
	if err != nil {
		return nil, nil, fmt.Errorf("decode cutout: %v: %w", err, imaging.ErrSegmentationFailure)
	}

	composite, err := s.compositor.Composite(ctx, cutout, bg)
	if err != nil {
		return cutout, nil, err
	}
	return cutout, composite, ctx.Err()
}

// Clear discards the image, any result and pending edits, and cancels an
// in-flight Process. Background and tone return to their defaults.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.background = imaging.Transparent()
	s.tone = imaging.DefaultTone
	s.logger.Info("session cleared")
}

func (s *Session) resetLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.processing = false
	s.original = nil
	s.blob = nil
	s.info = nil
	s.cutout = nil
	s.composite = nil
	s.processed = nil
	s.progress = segment.NewFractionReporter(nil)
	s.editor.reset()
}

// Download is an encoded result ready to be saved.
type Download struct {
	Filename string
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// Download encodes the processed image.
//
// Non-HD downloads are fitted within StandardMaxDim; HD keeps the natural
// resolution. Lossy formats without a quality use DefaultQuality.
func (s *Session) Download(req imaging.EncodeRequest) (*Download, error) {
	format, err := imaging.ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	img := s.processed
	s.mu.Unlock()
	if img == nil {
		return nil, ErrNotProcessed
	}

	if !req.HD {
		img = imaging.Downscale(img, s.opts.StandardMaxDim)
	}
	encReq := imaging.EncodeRequest{Format: format, Quality: req.Quality, HD: req.HD}
	if encReq.Quality == 0 {
		encReq.Quality = s.opts.DefaultQuality
	}
	data, err := imaging.Encode(img, encReq)
	if err != nil {
		return nil, err
	}

	return &Download{
		Filename: imaging.DownloadFilename(imaging.EncodeRequest{Format: format, Quality: req.Quality, HD: req.HD}),
		MimeType: format.MimeType(),
		Data:     data,
		Width:    img.Width(),
		Height:   img.Height(),
	}, nil
}

// Compare renders the before/after preview at position in [0,1].
func (s *Session) Compare(position float64) (*imaging.Raster, error) {
	s.mu.Lock()
	original, processed := s.original, s.processed
	s.mu.Unlock()

	if original == nil {
		return nil, ErrNoImage
	}
	if processed == nil {
		return nil, ErrNotProcessed
	}
	return imaging.Compare(original, processed, position), nil
}

// Original returns the uploaded image, or nil.
func (s *Session) Original() *imaging.Raster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original
}

// Processed returns the current result, or nil.
func (s *Session) Processed() *imaging.Raster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

// State is a point-in-time view of a session.
type State struct {
	HasImage       bool                 `json:"has_image"`
	Original       *imaging.ImageInfo   `json:"original,omitempty"`
	Processed      bool                 `json:"processed"`
	ProcessedSize  *imaging.Size        `json:"processed_size,omitempty"`
	HasCutout      bool                 `json:"has_cutout"`
	Processing     bool                 `json:"processing"`
	Progress       float64              `json:"progress"`
	Background     string               `json:"background"`
	Tone           imaging.ToneSettings `json:"tone"`
	ActiveTool     string               `json:"active_tool"`
	PendingStrokes int                  `json:"pending_strokes,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		HasImage:       s.original != nil,
		Processed:      s.processed != nil,
		HasCutout:      s.cutout != nil,
		Processing:     s.processing,
		Progress:       s.progress.Last(),
		Background:     s.background.String(),
		Tone:           s.tone,
		ActiveTool:     s.editor.tool.String(),
		PendingStrokes: len(s.editor.strokes),
	}
	if s.info != nil {
		info := *s.info
		st.Original = &info
	}
	if s.processed != nil {
		size := s.processed.Size()
		st.ProcessedSize = &size
	}
	return st
}
