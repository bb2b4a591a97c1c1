package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Crop extracts a displayed-coordinate region at natural resolution.
//
// The region is converted with the scale naturalSize/displayed and copied
// into a new raster of the region's natural pixel size, so a full-frame region
// returns an identical copy. Parts of the region past the image edges are
// transparent.
//
// Degenerate geometry is not an error: when the scaled width or height rounds
// to zero, or the region lies outside the image, img is returned unchanged.
func Crop(img *Raster, region CropRegion, displayed Size) *Raster {
	rect := NewScale(img.Size(), displayed).RectToNatural(region)
	inside := rect.Intersect(image.Rect(0, 0, img.Width(), img.Height()))
	if inside.Empty() {
		return img
	}
	part := imaging.Crop(img.img, inside)
	if inside == rect {
		return &Raster{img: part}
	}
	canvas := imaging.New(rect.Dx(), rect.Dy(), color.NRGBA{})
	return &Raster{img: imaging.Paste(canvas, part, inside.Min.Sub(rect.Min))}
}

// CropQuadrant extracts a named region of the image in natural coordinates.
//
// Supported names: top-left, top-right, bottom-left, bottom-right, top-half,
// bottom-half, left-half, right-half, center (the middle 50%). Unknown names
// return ok == false.
func CropQuadrant(img *Raster, name string) (region CropRegion, ok bool) {
	w, h := img.Width(), img.Height()
	midX, midY := w/2, h/2

	switch name {
	case "top-left":
		return CropRegion{0, 0, midX, midY}, true
	case "top-right":
		return CropRegion{midX, 0, w - midX, midY}, true
	case "bottom-left":
		return CropRegion{0, midY, midX, h - midY}, true
	case "bottom-right":
		return CropRegion{midX, midY, w - midX, h - midY}, true
	case "top-half":
		return CropRegion{0, 0, w, midY}, true
	case "bottom-half":
		return CropRegion{0, midY, w, h - midY}, true
	case "left-half":
		return CropRegion{0, 0, midX, h}, true
	case "right-half":
		return CropRegion{midX, 0, w - midX, h}, true
	case "center":
		qW, qH := w/4, h/4
		return CropRegion{qW, qH, w - 2*qW, h - 2*qH}, true
	}
	return CropRegion{}, false
}
