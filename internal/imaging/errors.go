package imaging

import (
	"errors"
	"fmt"
)

// Failure categories surfaced to the user. Each is wrapped with context by the
// function that detects it, so callers should test with errors.Is.
var (
	// ErrInvalidFileType is returned when an upload is not image data.
	ErrInvalidFileType = errors.New("invalid file type: an image is required")

	// ErrSegmentationFailure is returned when the background removal call fails.
	ErrSegmentationFailure = errors.New("background removal failed")

	// ErrNetworkFailure is returned when a URL fetch or background image load fails.
	ErrNetworkFailure = errors.New("network failure")

	// ErrInvalidColor is returned for colors that are not "#rrggbb".
	ErrInvalidColor = errors.New("invalid color: expected #rrggbb")

	// ErrInvalidBackground is returned for malformed background settings.
	ErrInvalidBackground = errors.New("invalid background")

	// ErrInvalidTone is returned for brightness or contrast outside [0,200].
	ErrInvalidTone = errors.New("invalid tone settings")

	// ErrEmptyImage is returned when a raster would have no pixels.
	ErrEmptyImage = errors.New("image has no pixels")
)

// EncodeError reports an output format or quality the encoder cannot produce.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot encode %q", e.Format)
	}
	return fmt.Sprintf("cannot encode %q: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
