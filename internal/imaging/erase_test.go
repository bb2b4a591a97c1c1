package imaging

import (
	"image/color"
	"testing"
)

var opaqueGray = color.NRGBA{100, 100, 100, 255}

func isErased(r *Raster, x, y int) bool {
	return r.At(x, y) == color.NRGBA{}
}

func TestErase_SingleDot(t *testing.T) {
	img := createSolidRaster(20, 20, opaqueGray)

	out := Erase(img, BrushStroke{Points: []Point{{10, 10}}, BrushSize: 4}, Size{})
	if !isErased(out, 10, 10) {
		t.Error("pixel under the brush should be transparent")
	}
	if isErased(out, 0, 0) {
		t.Error("pixel far from the brush should be untouched")
	}
	if isErased(img, 10, 10) {
		t.Error("Erase modified its input")
	}
}

func TestErase_HorizontalLine(t *testing.T) {
	img := createSolidRaster(20, 20, opaqueGray)

	out := Erase(img, BrushStroke{Points: []Point{{2, 10}, {18, 10}}, BrushSize: 2}, Size{})
	for x := 2; x < 18; x++ {
		if !isErased(out, x, 9) || !isErased(out, x, 10) {
			t.Errorf("x=%d: pixels along the line should be transparent", x)
		}
		if isErased(out, x, 12) || isErased(out, x, 7) {
			t.Errorf("x=%d: pixels outside the brush width should be untouched", x)
		}
	}
}

func TestErase_RoundCaps(t *testing.T) {
	img := createSolidRaster(20, 20, opaqueGray)

	out := Erase(img, BrushStroke{Points: []Point{{5, 10}, {15, 10}}, BrushSize: 6}, Size{})

	tests := []struct {
		name   string
		x, y   int
		erased bool
	}{
		{"cap beyond start", 3, 10, true},
		{"cap beyond end", 16, 10, true},
		{"side of line", 5, 7, true},
		{"outside start cap", 1, 10, false},
		{"cap corner", 2, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isErased(out, tt.x, tt.y); got != tt.erased {
				t.Errorf("(%d,%d) erased=%v, want %v", tt.x, tt.y, got, tt.erased)
			}
		})
	}
}

func TestErase_ScaledToNatural(t *testing.T) {
	img := createSolidRaster(100, 100, opaqueGray)

	// Displayed at half size: the point maps to (50,50), the brush to 20px.
	out := Erase(img, BrushStroke{Points: []Point{{25, 25}}, BrushSize: 10}, Size{50, 50})

	if !isErased(out, 50, 50) {
		t.Error("center should be erased")
	}
	if !isErased(out, 50, 58) {
		t.Error("pixel within the scaled radius should be erased")
	}
	if isErased(out, 50, 65) {
		t.Error("pixel outside the scaled radius should be untouched")
	}
}

func TestErase_FreehandPath(t *testing.T) {
	img := createSolidRaster(50, 50, opaqueGray)
	points := []Point{{5, 5}, {10, 12}, {20, 15}, {30, 30}, {45, 40}}

	out := Erase(img, BrushStroke{Points: points, BrushSize: 3}, Size{})
	for _, p := range points {
		if !isErased(out, int(p.X), int(p.Y)) {
			t.Errorf("path point %v not erased", p)
		}
	}
	// Midpoint of the (20,15)-(30,30) segment.
	if !isErased(out, 25, 22) {
		t.Error("pixels between points should be erased")
	}
}

func TestErase_BrushSizeClamped(t *testing.T) {
	img := createSolidRaster(300, 300, opaqueGray)

	out := Erase(img, BrushStroke{Points: []Point{{150, 150}}, BrushSize: 500}, Size{})
	if !isErased(out, 150, 199) {
		t.Error("pixel within max brush radius should be erased")
	}
	if isErased(out, 150, 210) {
		t.Error("brush larger than the maximum should be clamped")
	}
}

func TestErase_BrushSizeDefaults(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		erasedAt  int // x offset from the dot that must be erased
		untouched int // x offset that must stay opaque
	}{
		{"zero uses default", 0, DefaultBrushSize/2 - 1, DefaultBrushSize/2 + 2},
		{"negative clamps to minimum", -5, 0, MinBrushSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createSolidRaster(100, 100, opaqueGray)
			out := Erase(img, BrushStroke{Points: []Point{{50.5, 50.5}}, BrushSize: tt.size}, Size{})
			if !isErased(out, 50+tt.erasedAt, 50) {
				t.Errorf("pixel at +%d should be erased", tt.erasedAt)
			}
			if isErased(out, 50+tt.untouched, 50) {
				t.Errorf("pixel at +%d should be untouched", tt.untouched)
			}
		})
	}
}

func TestErase_EmptyStroke(t *testing.T) {
	img := createSolidRaster(5, 5, opaqueGray)

	if out := Erase(img, BrushStroke{BrushSize: 10}, Size{}); out != img {
		t.Error("an empty stroke should return the input unchanged")
	}
}

func TestErase_OffImage(t *testing.T) {
	img := createSolidRaster(10, 10, opaqueGray)

	out := Erase(img, BrushStroke{Points: []Point{{-50, -50}, {-40, -40}}, BrushSize: 4}, Size{})
	if !out.Equal(img) {
		t.Error("a stroke entirely outside the image should change nothing")
	}
}
