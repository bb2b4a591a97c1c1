package imaging

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/HugoSmits86/nativewebp"
	"github.com/anthonynsimon/bild/imgio"
)

// Format is an output image format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// DefaultQuality is used for lossy formats when the caller gives none.
const DefaultQuality = 0.9

// ParseFormat normalizes a format name. Unknown names are an *EncodeError.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", &EncodeError{Format: name, Err: fmt.Errorf("unsupported format")}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// MimeType returns the MIME type for the format.
func (f Format) MimeType() string { return "image/" + string(f) }

// Lossy reports whether quality affects the encoded pixels.
func (f Format) Lossy() bool { return f == FormatJPEG || f == FormatWebP }

// EncodeRequest describes one download.
type EncodeRequest struct {
	Format Format `json:"format"`

	// Quality is in (0,1]. Zero selects DefaultQuality. PNG ignores it.
	Quality float64 `json:"quality,omitempty"`

	// HD keeps the natural resolution; otherwise the caller may downscale
	// before encoding.
	HD bool `json:"hd,omitempty"`
}

func (r EncodeRequest) quality() float64 {
	if r.Quality == 0 {
		return DefaultQuality
	}
	return r.Quality
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Encode serializes img in the requested format.
//
// PNG is always lossless. JPEG has no alpha channel, so transparent pixels
// come out black. WebP output is lossless; quality is accepted but advisory.
func Encode(img *Raster, req EncodeRequest) ([]byte, error) {
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}
	q := req.quality()
	if q <= 0 || q > 1 || math.IsNaN(q) {
		return nil, &EncodeError{Format: string(format), Err: fmt.Errorf("quality %v outside (0,1]", req.Quality)}
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)
	buf.Reset()

	switch format {
	case FormatPNG:
		err = imgio.PNGEncoder()(buf, img.img)
	case FormatJPEG:
		err = imgio.JPEGEncoder(int(math.Round(q * 100)))(buf, img.img)
	case FormatWebP:
		err = nativewebp.Encode(buf, img.img, nil)
	}
	if err != nil {
		return nil, &EncodeError{Format: string(format), Err: err}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// DownloadFilename returns processed-image[-hd][-<quality>].<ext>.
//
// The quality suffix is the percentage and only appears for lossy formats
// when the request sets a quality explicitly.
func DownloadFilename(req EncodeRequest) string {
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		format = FormatPNG
	}
	var b strings.Builder
	b.WriteString("processed-image")
	if req.HD {
		b.WriteString("-hd")
	}
	if format.Lossy() && req.Quality > 0 {
		fmt.Fprintf(&b, "-%d", int(math.Round(req.Quality*100)))
	}
	b.WriteString(".")
	b.WriteString(format.Extension())
	return b.String()
}
