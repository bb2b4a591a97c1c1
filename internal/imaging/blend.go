package imaging

import (
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// drawOver composites src onto dst in place with the source-over operator.
//
// Both rasters must have the same size. With an opaque destination this is
// out = src*srcAlpha + dst*(1-srcAlpha) per channel; a fully opaque source
// pixel replaces the destination exactly and a fully transparent one leaves
// it untouched.
func drawOver(dst, src *Raster) {
	w := dst.Width()
	parallel.Line(dst.Height(), func(start, end int) {
		for y := start; y < end; y++ {
			di := y * dst.img.Stride
			si := y * src.img.Stride
			for x := 0; x < w; x++ {
				sourceOver(dst.img.Pix[di+x*4:di+x*4+4], src.img.Pix[si+x*4:si+x*4+4])
			}
		}
	})
}

func sourceOver(d, s []byte) {
	switch s[3] {
	case 0xff:
		copy(d, s)
		return
	case 0:
		return
	}

	sa := float64(s[3]) / 255
	da := float64(d[3]) / 255
	oa := sa + da*(1-sa)
	for c := 0; c < 3; c++ {
		v := (float64(s[c])*sa + float64(d[c])*da*(1-sa)) / oa
		d[c] = clampByte(v)
	}
	d[3] = clampByte(oa * 255)
}

// fillSolid paints every pixel of r with c.
func fillSolid(r *Raster, c color.NRGBA) {
	px := []byte{c.R, c.G, c.B, c.A}
	w := r.Width()
	parallel.Line(r.Height(), func(start, end int) {
		for y := start; y < end; y++ {
			row := r.img.Pix[y*r.img.Stride : y*r.img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				copy(row[i:i+4], px)
			}
		}
	})
}

// clampByte rounds to the nearest integer and clamps into [0,255].
func clampByte(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
