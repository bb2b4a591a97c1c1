package imaging

import (
	"image"
	"math"
)

// Brush diameters in displayed pixels. Sizes outside [MinBrushSize,
// MaxBrushSize] are clamped; zero means DefaultBrushSize.
const (
	MinBrushSize     = 1
	MaxBrushSize     = 100
	DefaultBrushSize = 20
)

// BrushStroke is a freehand path in displayed coordinates.
//
// BrushSize is the brush diameter in displayed pixels, clamped to [1,100].
// A stroke with a single point erases one round dot.
type BrushStroke struct {
	Points    []Point `json:"points"`
	BrushSize int     `json:"brush_size"`
}

// Erase punches transparency along a stroke and returns the result.
//
// Every consecutive point pair is drawn as a line of width BrushSize with
// round caps and joins using destination-out: covered pixels become fully
// transparent. Points are mapped from displayed to natural coordinates
// first. An empty stroke returns img unchanged.
func Erase(img *Raster, stroke BrushStroke, displayed Size) *Raster {
	if len(stroke.Points) == 0 {
		return img
	}
	out := img.Clone()
	eraseInPlace(out, stroke, NewScale(img.Size(), displayed))
	return out
}

func eraseInPlace(r *Raster, stroke BrushStroke, scale Scale) {
	size := stroke.BrushSize
	switch {
	case size == 0:
		size = DefaultBrushSize
	case size < MinBrushSize:
		size = MinBrushSize
	case size > MaxBrushSize:
		size = MaxBrushSize
	}
	radius := scale.Length(float64(size)) / 2

	pts := make([]Point, len(stroke.Points))
	for i, p := range stroke.Points {
		pts[i] = scale.ToNatural(p)
	}
	if len(pts) == 1 {
		punchSegment(r, pts[0], pts[0], radius)
		return
	}
	for i := 1; i < len(pts); i++ {
		punchSegment(r, pts[i-1], pts[i], radius)
	}
}

// punchSegment clears every pixel whose center lies within radius of the
// segment a-b. The distance test gives round caps, and consecutive
// segments sharing an endpoint give round joins.
func punchSegment(r *Raster, a, b Point, radius float64) {
	box := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-radius)),
		int(math.Floor(math.Min(a.Y, b.Y)-radius)),
		int(math.Ceil(math.Max(a.X, b.X)+radius))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+radius))+1,
	).Intersect(image.Rect(0, 0, r.Width(), r.Height()))
	if box.Empty() {
		return
	}

	r2 := radius * radius
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy

	for y := box.Min.Y; y < box.Max.Y; y++ {
		py := float64(y) + 0.5
		for x := box.Min.X; x < box.Max.X; x++ {
			px := float64(x) + 0.5
			t := 0.0
			if lenSq > 0 {
				t = ((px-a.X)*dx + (py-a.Y)*dy) / lenSq
				t = math.Max(0, math.Min(1, t))
			}
			cx, cy := a.X+t*dx-px, a.Y+t*dy-py
			if cx*cx+cy*cy <= r2 {
				i := r.img.PixOffset(x, y)
				r.img.Pix[i] = 0
				r.img.Pix[i+1] = 0
				r.img.Pix[i+2] = 0
				r.img.Pix[i+3] = 0
			}
		}
	}
}
