package session

import "errors"

var (
	// ErrBusy is returned when Process is called while another run is in flight.
	ErrBusy = errors.New("processing already in progress")

	// ErrNoImage is returned by operations that need an uploaded image.
	ErrNoImage = errors.New("no image uploaded")

	// ErrNotProcessed is returned by operations that need a processed image.
	ErrNotProcessed = errors.New("image has not been processed")

	// ErrToolActive is returned when an editor operation targets a tool other
	// than the active one.
	ErrToolActive = errors.New("a different editor tool is active")

	// ErrNoActiveTool is returned by editor operations while no tool is active.
	ErrNoActiveTool = errors.New("no editor tool is active")

	// ErrUnknownTool is returned for tool names other than crop, erase and fill.
	ErrUnknownTool = errors.New("unknown editor tool")

	// ErrCancelled is returned by a Process run that was superseded by Clear
	// or a new upload. Its result is discarded.
	ErrCancelled = errors.New("processing cancelled")
)
