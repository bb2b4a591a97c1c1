// Package imaging implements the compositing and adjustment pipeline applied
// to a background-removed cutout before it is downloaded.
//
// The pipeline runs in this order, each stage optional except encoding:
//
//	cutout -> Compositor.Composite -> AdjustTone -> Crop / Erase / Fill -> Encode
//
// All stages operate on *Raster, a non-premultiplied RGBA buffer with its
// origin at (0,0). Stages never modify their input: they return a new raster,
// or the input itself when the requested edit is degenerate (a zero-size crop,
// an empty brush stroke, a transparent background).
//
// # Coordinate System
//
// Editors receive geometry in displayed coordinates, the positions a user sees
// on an image that may be rendered smaller or larger than its decoded size.
// Scale converts them to natural pixel coordinates:
//
//	scaleX = naturalWidth / displayedWidth
//	scaleY = naturalHeight / displayedHeight
//
// Passing a zero displayed size means the geometry is already natural.
//
// # Compositing
//
// Backgrounds use the source-over operator. With an opaque background each
// channel is fg*fgAlpha + bg*(1-fgAlpha); opaque foreground pixels therefore
// come through unchanged and fully transparent ones show the background.
// Image backgrounds are stretched to the foreground's exact size.
//
// # Errors
//
// Failure categories are sentinel errors (ErrInvalidFileType,
// ErrNetworkFailure, ErrSegmentationFailure, ...) wrapped with context, plus
// *EncodeError for output formats that cannot be produced. Use errors.Is and
// errors.As to classify them.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Pipeline functions are stateless and
// may run concurrently on different rasters; internally the per-pixel loops
// are split across goroutines by row.
package imaging
