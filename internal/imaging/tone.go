package imaging

import (
	"fmt"

	"github.com/anthonynsimon/bild/parallel"
)

// ToneSettings holds brightness and contrast as slider percentages.
//
// Both range over [0,200]; 100 leaves the image unchanged.
type ToneSettings struct {
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`
}

// DefaultTone is the identity adjustment.
var DefaultTone = ToneSettings{Brightness: 100, Contrast: 100}

// IsIdentity reports whether the settings leave pixels unchanged.
func (t ToneSettings) IsIdentity() bool { return t == DefaultTone }

// Validate checks that both values lie in [0,200].
func (t ToneSettings) Validate() error {
	if t.Brightness < 0 || t.Brightness > 200 {
		return fmt.Errorf("brightness %d outside [0,200]: %w", t.Brightness, ErrInvalidTone)
	}
	if t.Contrast < 0 || t.Contrast > 200 {
		return fmt.Errorf("contrast %d outside [0,200]: %w", t.Contrast, ErrInvalidTone)
	}
	return nil
}

// maxContrastFactor bounds the contrast multiplier at the formula's pole.
const maxContrastFactor = 255.0 * 259.0

// brightnessDelta converts the slider value to an additive channel offset.
func brightnessDelta(brightness int) float64 {
	return float64(brightness-100) * 2.55
}

// contrastFactor evaluates 259(c+255) / 255(259-c) where c is the slider's
// offset from 100, so that 100 maps to a factor of exactly 1.
//
// The pole at c == 259 and the negative branch beyond it are clamped to
// maxContrastFactor.
func contrastFactor(contrast int) float64 {
	c := float64(contrast - 100)
	if c >= 259 {
		return maxContrastFactor
	}
	f := (259 * (c + 255)) / (255 * (259 - c))
	if f > maxContrastFactor {
		return maxContrastFactor
	}
	return f
}

// AdjustTone applies brightness then contrast to the R, G and B channels.
//
// Per channel:
//
//	v = clamp(v + (brightness-100)*2.55)
//	v = clamp(factor*(v-128) + 128)
//
// Alpha is untouched. Both steps run even for the identity settings, which
// reproduce the input exactly. Invalid settings are an error.
func AdjustTone(img *Raster, settings ToneSettings) (*Raster, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	delta := brightnessDelta(settings.Brightness)
	factor := contrastFactor(settings.Contrast)

	var lut [256]uint8
	for v := range lut {
		b := float64(clampByte(float64(v) + delta))
		lut[v] = clampByte(factor*(b-128) + 128)
	}

	out := img.Clone()
	w := out.Width()
	parallel.Line(out.Height(), func(start, end int) {
		for y := start; y < end; y++ {
			row := out.img.Pix[y*out.img.Stride : y*out.img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				row[i] = lut[row[i]]
				row[i+1] = lut[row[i+1]]
				row[i+2] = lut[row[i+2]]
			}
		}
	})
	return out, nil
}
