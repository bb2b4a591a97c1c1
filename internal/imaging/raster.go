package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// Raster is a decoded image held as a non-premultiplied RGBA buffer.
//
// Pixels are stored row-major, 4 bytes per pixel, with the origin at (0,0).
// Pipeline operations never modify their input; they return a new Raster
// (or the input itself when the operation is a no-op).
type Raster struct {
	img *image.NRGBA
}

// NewRaster allocates a fully transparent raster of the given size.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrEmptyImage)
	}
	return newRaster(width, height), nil
}

func newRaster(width, height int) *Raster {
	return &Raster{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage copies any image.Image into a new Raster with bounds at (0,0).
func FromImage(img image.Image) *Raster {
	return &Raster{img: imaging.Clone(img)}
}

// Width returns the natural width in pixels.
func (r *Raster) Width() int { return r.img.Rect.Dx() }

// Height returns the natural height in pixels.
func (r *Raster) Height() int { return r.img.Rect.Dy() }

// Size returns the natural dimensions.
func (r *Raster) Size() Size { return Size{W: r.Width(), H: r.Height()} }

// Pix exposes the mutable RGBA buffer. Callers that mutate it must own the raster.
func (r *Raster) Pix() []byte { return r.img.Pix }

// Image returns the raster as a standard library image.
func (r *Raster) Image() image.Image { return r.img }

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]byte, len(r.img.Pix))
	copy(pix, r.img.Pix)
	return &Raster{img: &image.NRGBA{Pix: pix, Stride: r.img.Stride, Rect: r.img.Rect}}
}

// At returns the color at (x, y).
func (r *Raster) At(x, y int) color.NRGBA { return r.img.NRGBAAt(x, y) }

// Set writes the color at (x, y).
func (r *Raster) Set(x, y int, c color.NRGBA) { r.img.SetNRGBA(x, y, c) }

// Equal reports whether both rasters have identical size and pixels.
func (r *Raster) Equal(other *Raster) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Size() != other.Size() {
		return false
	}
	w := r.Width() * 4
	for y := 0; y < r.Height(); y++ {
		a := r.img.Pix[y*r.img.Stride : y*r.img.Stride+w]
		b := other.img.Pix[y*other.img.Stride : y*other.img.Stride+w]
		if !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}

// HasAlpha reports whether any pixel is less than fully opaque.
func (r *Raster) HasAlpha() bool {
	for y := 0; y < r.Height(); y++ {
		row := r.img.Pix[y*r.img.Stride : y*r.img.Stride+r.Width()*4]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0xff {
				return true
			}
		}
	}
	return false
}

// Decode validates the declared MIME type and decodes an image.
//
// Any MIME type not starting with "image/" is rejected with ErrInvalidFileType
// before the bytes are read. PNG, JPEG, GIF, WebP and BMP are supported.
// The returned string is the format name reported by the decoder.
func Decode(r io.Reader, mimeType string) (*Raster, string, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/") {
		return nil, "", fmt.Errorf("%q: %w", mimeType, ErrInvalidFileType)
	}
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %v: %w", err, ErrInvalidFileType)
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return FromImage(img), format, nil
}

// Downscale fits the raster within maxDim x maxDim, preserving aspect ratio.
//
// Rasters already within bounds, and maxDim <= 0, return the input unchanged.
func Downscale(r *Raster, maxDim int) *Raster {
	if maxDim <= 0 || (r.Width() <= maxDim && r.Height() <= maxDim) {
		return r
	}
	return &Raster{img: imaging.Fit(r.img, maxDim, maxDim, imaging.Lanczos)}
}
