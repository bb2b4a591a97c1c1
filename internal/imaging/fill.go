package imaging

// Fill paints the transparent areas of img with an opaque color.
//
// The source is drawn over a solid canvas of the same size, exactly like the
// compositor's solid color background.
func Fill(img *Raster, hex string) (*Raster, error) {
	c, err := ParseHexColor(hex)
	if err != nil {
		return nil, err
	}
	return CompositeSolid(img, c), nil
}
