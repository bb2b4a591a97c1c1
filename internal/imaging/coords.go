package imaging

import (
	"image"
	"math"
)

// Size is a width and height in pixels.
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

// Point is a position in displayed (on-screen) coordinates. Pointer positions
// are fractional, so components are floats.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale converts displayed coordinates to natural pixel coordinates.
//
// A displayed image may be rendered larger or smaller than its decoded size;
// X and Y are naturalWidth/displayedWidth and naturalHeight/displayedHeight.
type Scale struct {
	X float64
	Y float64
}

// NewScale computes the displayed-to-natural scale factors.
//
// A displayed size with a non-positive dimension means "rendered at natural
// size" and yields the identity scale on that axis.
func NewScale(natural, displayed Size) Scale {
	s := Scale{X: 1, Y: 1}
	if displayed.W > 0 {
		s.X = float64(natural.W) / float64(displayed.W)
	}
	if displayed.H > 0 {
		s.Y = float64(natural.H) / float64(displayed.H)
	}
	return s
}

// ToNatural maps a displayed point to natural coordinates.
func (s Scale) ToNatural(p Point) Point {
	return Point{X: p.X * s.X, Y: p.Y * s.Y}
}

// Length maps a displayed length to natural pixels using the mean of both axes.
func (s Scale) Length(l float64) float64 {
	return l * (s.X + s.Y) / 2
}

// CropRegion is a rectangle in displayed coordinates.
type CropRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectToNatural maps a displayed crop region to a natural pixel rectangle.
//
// Each edge is rounded to the nearest pixel. A region whose scaled width or
// height rounds to zero or less yields an empty rectangle.
func (s Scale) RectToNatural(c CropRegion) image.Rectangle {
	x0 := int(math.Round(float64(c.X) * s.X))
	y0 := int(math.Round(float64(c.Y) * s.Y))
	w := int(math.Round(float64(c.Width) * s.X))
	h := int(math.Round(float64(c.Height) * s.Y))
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(x0, y0, x0+w, y0+h)
}
