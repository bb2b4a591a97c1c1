package imaging

import (
	"fmt"
	"image/color"
	"math"
	"regexp"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseHexColor parses an opaque "#rrggbb" color.
//
// Short forms ("#fff") and alpha suffixes are rejected so that a background
// color always fully covers the canvas.
func ParseHexColor(hex string) (color.NRGBA, error) {
	if !hexColorPattern.MatchString(hex) {
		return color.NRGBA{}, fmt.Errorf("%q: %w", hex, ErrInvalidColor)
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%q: %v: %w", hex, err, ErrInvalidColor)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult contains a sampled color in several representations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // "#RRGGBB" (no alpha)
	RGBA RGBAColor `json:"rgba"` // straight (non-premultiplied) components
	HSL  HSLColor  `json:"hsl"`
}

// SampleColor returns the color at a natural pixel coordinate.
//
// Coordinates are 0-based with origin at top-left. Out-of-bounds coordinates
// are an error. Colors are reported un-premultiplied, so a fully transparent
// pixel keeps whatever RGB the buffer holds.
func SampleColor(r *Raster, x, y int) (*ColorResult, error) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %dx%d", x, y, r.Width(), r.Height())
	}
	c := r.At(x, y)
	h, s, l := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hsl()

	return &ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}, nil
}
