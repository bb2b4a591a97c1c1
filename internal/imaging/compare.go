package imaging

import (
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Checkerboard colors used behind transparent pixels in previews.
var (
	checkerLight = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	checkerDark  = color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	dividerColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const (
	checkerCell  = 8
	dividerWidth = 2
)

// Checkerboard returns img drawn over a light/dark checker pattern so that
// transparent areas are visible in an opaque preview.
func Checkerboard(img *Raster) *Raster {
	out := newRaster(img.Width(), img.Height())
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			c := checkerLight
			if (x/checkerCell+y/checkerCell)%2 == 1 {
				c = checkerDark
			}
			out.Set(x, y, c)
		}
	}
	drawOver(out, img)
	return out
}

// Compare renders a before/after preview split at position.
//
// Pixels left of position*width come from original, the rest from processed
// over a checkerboard. A thin divider marks the split. The preview has the
// processed image's size; original is stretched to match when they differ.
// position is clamped to [0,1].
func Compare(original, processed *Raster, position float64) *Raster {
	if math.IsNaN(position) {
		position = 0.5
	}
	position = math.Max(0, math.Min(1, position))

	before := original
	if original.Size() != processed.Size() {
		before = &Raster{img: imaging.Resize(original.img, processed.Width(), processed.Height(), imaging.Linear)}
	}
	out := Checkerboard(processed)

	split := int(math.Round(position * float64(out.Width())))
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < split; x++ {
			out.Set(x, y, before.At(x, y))
		}
	}

	// Divider
	for x := split - dividerWidth/2; x < split+dividerWidth/2; x++ {
		if x < 0 || x >= out.Width() {
			continue
		}
		for y := 0; y < out.Height(); y++ {
			out.Set(x, y, dividerColor)
		}
	}
	return out
}
