package imaging

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
)

// BackgroundKind identifies the active BackgroundSpec variant.
type BackgroundKind int

// Background kinds.
const (
	BackgroundTransparent BackgroundKind = iota // cutout left as is
	BackgroundSolid                             // one opaque color
	BackgroundImage                             // remote image, stretched to fit
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundSolid:
		return "color"
	case BackgroundImage:
		return "image"
	default:
		return "transparent"
	}
}

// BackgroundSpec describes what is placed behind the foreground cutout.
//
// Exactly one variant is active. Use Transparent, SolidColor, ImageURL or
// ParseBackground to construct one; the zero value is Transparent.
type BackgroundSpec struct {
	kind  BackgroundKind
	color color.NRGBA
	hex   string
	url   string
}

// Transparent returns the background that leaves the cutout untouched.
func Transparent() BackgroundSpec { return BackgroundSpec{} }

// SolidColor returns an opaque color background.
func SolidColor(hex string) (BackgroundSpec, error) {
	c, err := ParseHexColor(hex)
	if err != nil {
		return BackgroundSpec{}, err
	}
	return BackgroundSpec{kind: BackgroundSolid, color: c, hex: strings.ToLower(hex)}, nil
}

// ImageURL returns a background that draws a remote image behind the cutout.
//
// Only the syntax is checked here; whether the URL can be fetched is decided
// when compositing. An empty URL falls back to Transparent.
func ImageURL(raw string) (BackgroundSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Transparent(), nil
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return BackgroundSpec{}, fmt.Errorf("background url %q: %v: %w", raw, err, ErrInvalidBackground)
	}
	if u.Scheme == "" || u.Host == "" {
		return BackgroundSpec{}, fmt.Errorf("background url %q: missing scheme or host: %w", raw, ErrInvalidBackground)
	}
	return BackgroundSpec{kind: BackgroundImage, url: raw}, nil
}

// ParseBackground builds a background from a preset name and optional value.
//
// Recognized kinds:
//   - "transparent" (or empty)
//   - "white", "black": preset solid colors
//   - "color", "custom": value is "#rrggbb"
//   - "image": value is an image URL
func ParseBackground(kind, value string) (BackgroundSpec, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "transparent":
		return Transparent(), nil
	case "white":
		return SolidColor("#ffffff")
	case "black":
		return SolidColor("#000000")
	case "color", "custom":
		return SolidColor(value)
	case "image":
		return ImageURL(value)
	default:
		return BackgroundSpec{}, fmt.Errorf("unknown background kind %q: %w", kind, ErrInvalidBackground)
	}
}

// Kind returns the active variant.
func (b BackgroundSpec) Kind() BackgroundKind { return b.kind }

// Hex returns the lower-case color for BackgroundSolid, else "".
func (b BackgroundSpec) Hex() string { return b.hex }

// URL returns the image URL for BackgroundImage, else "".
func (b BackgroundSpec) URL() string { return b.url }

func (b BackgroundSpec) String() string {
	switch b.kind {
	case BackgroundSolid:
		return "color(" + b.hex + ")"
	case BackgroundImage:
		return "image(" + b.url + ")"
	default:
		return "transparent"
	}
}

// Loader fetches and decodes a background image.
type Loader interface {
	Load(ctx context.Context, url string) (*Raster, error)
}

// Compositor flattens a foreground cutout onto a background.
type Compositor struct {
	loader Loader
	logger *slog.Logger
}

// NewCompositor creates a compositor. loader may be nil if image backgrounds
// are never used; logger defaults to slog.Default().
func NewCompositor(loader Loader, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{loader: loader, logger: logger}
}

// Composite draws fg over the background described by spec.
//
// Transparent returns fg itself. SolidColor returns a new opaque raster of
// fg's size. For Image the background is loaded first and
// stretched (not cropped) to fg's exact dimensions; a load failure is
// reported as ErrNetworkFailure and fg is left untouched.
func (c *Compositor) Composite(ctx context.Context, fg *Raster, spec BackgroundSpec) (*Raster, error) {
	switch spec.kind {
	case BackgroundSolid:
		return CompositeSolid(fg, spec.color), nil
	case BackgroundImage:
		if spec.url == "" {
			return fg, nil
		}
		bg, err := c.loadBackground(ctx, spec.url)
		if err != nil {
			return nil, err
		}
		return CompositeImage(fg, bg), nil
	default:
		return fg, nil
	}
}

func (c *Compositor) loadBackground(ctx context.Context, u string) (*Raster, error) {
	if c.loader == nil {
		return nil, fmt.Errorf("no loader for background %q: %w", u, ErrNetworkFailure)
	}
	bg, err := c.loader.Load(ctx, u)
	if err != nil {
		c.logger.Warn("background image load failed", "url", u, "error", err)
		if errors.Is(err, ErrNetworkFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("load background %q: %v: %w", u, err, ErrNetworkFailure)
	}
	return bg, nil
}

// CompositeSolid returns fg drawn over an opaque fill of c.
func CompositeSolid(fg *Raster, c color.NRGBA) *Raster {
	c.A = 0xff
	out := newRaster(fg.Width(), fg.Height())
	fillSolid(out, c)
	drawOver(out, fg)
	return out
}

// CompositeImage returns fg drawn over bg, with bg stretched to fg's size.
func CompositeImage(fg, bg *Raster) *Raster {
	var base *Raster
	if bg.Size() == fg.Size() {
		base = bg.Clone()
	} else {
		base = &Raster{img: imaging.Resize(bg.img, fg.Width(), fg.Height(), imaging.Linear)}
	}
	drawOver(base, fg)
	return base
}
