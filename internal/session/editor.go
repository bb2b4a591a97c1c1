package session

import (
	"fmt"
	"strings"

	"github.com/ironsheep/bgbegone/internal/imaging"
)

// Tool is an editor state. Tools are mutually exclusive.
type Tool int

const (
	ToolNone Tool = iota
	ToolCrop
	ToolErase
	ToolFill
)

func (t Tool) String() string {
	switch t {
	case ToolCrop:
		return "crop"
	case ToolErase:
		return "erase"
	case ToolFill:
		return "fill"
	default:
		return "idle"
	}
}

// ParseTool maps "crop", "erase" and "fill" to a Tool.
func ParseTool(name string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crop":
		return ToolCrop, nil
	case "erase":
		return ToolErase, nil
	case "fill":
		return ToolFill, nil
	}
	return ToolNone, fmt.Errorf("%q: %w", name, ErrUnknownTool)
}

// DefaultFillColor is used when Fill is applied without a color.
const DefaultFillColor = "#ffffff"

type pendingStroke struct {
	stroke    imaging.BrushStroke
	displayed imaging.Size
}

type pendingCrop struct {
	region    imaging.CropRegion
	displayed imaging.Size
}

// editor holds the pending work of the active tool. Strokes are replayed on
// every layer at Apply; working is the processed image with the strokes so
// far, kept for previews.
type editor struct {
	tool    Tool
	working *imaging.Raster
	strokes []pendingStroke
	crop    *pendingCrop
	fill    string
}

func (e *editor) reset() { *e = editor{} }

func (e *editor) fillColor() string {
	if e.fill == "" {
		return DefaultFillColor
	}
	return e.fill
}

// transform applies the pending edit to r. With nothing pending r is
// returned unchanged.
func (e *editor) transform(r *imaging.Raster) (*imaging.Raster, error) {
	if r == nil {
		return nil, nil
	}
	switch e.tool {
	case ToolCrop:
		if e.crop == nil {
			return r, nil
		}
		return imaging.Crop(r, e.crop.region, e.crop.displayed), nil
	case ToolErase:
		for _, ps := range e.strokes {
			r = imaging.Erase(r, ps.stroke, ps.displayed)
		}
		return r, nil
	case ToolFill:
		return imaging.Fill(r, e.fillColor())
	}
	return r, nil
}

// BeginTool activates a tool on the processed image. An active tool is
// deactivated first and its pending work discarded.
func (s *Session) BeginTool(t Tool) error {
	if t == ToolNone {
		return fmt.Errorf("%q: %w", t.String(), ErrUnknownTool)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed == nil {
		return ErrNotProcessed
	}
	if prev := s.editor.tool; prev != ToolNone {
		s.logger.Debug("editor tool switched, pending edit discarded", "from", prev.String(), "to", t.String())
	}
	s.editor.reset()
	s.editor.tool = t
	s.editor.working = s.processed
	return nil
}

// ActiveTool returns the active tool, ToolNone when idle.
func (s *Session) ActiveTool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.tool
}

func (s *Session) requireToolLocked(t Tool) error {
	switch s.editor.tool {
	case t:
		return nil
	case ToolNone:
		return ErrNoActiveTool
	default:
		return fmt.Errorf("%s requested while %s is active: %w", t, s.editor.tool, ErrToolActive)
	}
}

// SetCrop sets the pending crop region in displayed coordinates. Calling it
// again replaces the region.
func (s *Session) SetCrop(region imaging.CropRegion, displayed imaging.Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireToolLocked(ToolCrop); err != nil {
		return err
	}
	s.editor.crop = &pendingCrop{region: region, displayed: displayed}
	return nil
}

// AddStroke erases along a stroke on the working copy. Strokes accumulate
// until Apply or Cancel. An empty stroke is ignored.
func (s *Session) AddStroke(stroke imaging.BrushStroke, displayed imaging.Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireToolLocked(ToolErase); err != nil {
		return err
	}
	if len(stroke.Points) == 0 {
		return nil
	}
	s.editor.working = imaging.Erase(s.editor.working, stroke, displayed)
	s.editor.strokes = append(s.editor.strokes, pendingStroke{stroke: stroke, displayed: displayed})
	return nil
}

// SetFill sets the pending fill color.
func (s *Session) SetFill(hex string) error {
	if _, err := imaging.ParseHexColor(hex); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireToolLocked(ToolFill); err != nil {
		return err
	}
	s.editor.fill = hex
	return nil
}

// Preview returns the processed image with the pending edit applied, or the
// processed image itself while idle.
func (s *Session) Preview() (*imaging.Raster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed == nil {
		return nil, ErrNotProcessed
	}
	if s.editor.tool == ToolErase {
		return s.editor.working, nil
	}
	return s.editor.transform(s.processed)
}

// Apply commits the pending edit and returns to idle.
//
// The edit is applied to the untoned composite as well as the result, so a
// later tone change keeps it. Crop and erase also change the cutout and
// survive a background change. Fill paints the background, so it stays out
// of the cutout and a later background change replaces it. Degenerate edits
// commit nothing.
func (s *Session) Apply() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor.tool == ToolNone {
		return ErrNoActiveTool
	}
	tool := s.editor.tool

	processed := s.editor.working
	if tool != ToolErase {
		var err error
		if processed, err = s.editor.transform(s.processed); err != nil {
			return err
		}
	}
	composite, err := s.editor.transform(s.composite)
	if err != nil {
		return err
	}
	cutout := s.cutout
	if tool != ToolFill {
		if cutout, err = s.editor.transform(s.cutout); err != nil {
			return err
		}
	}

	if processed == s.processed {
		s.logger.Debug("edit was a no-op", "tool", tool.String())
	}
	s.processed, s.composite, s.cutout = processed, composite, cutout
	s.editor.reset()

	s.logger.Info("edit applied",
		"tool", tool.String(),
		"width", processed.Width(),
		"height", processed.Height())
	return nil
}

// Cancel discards the pending edit and returns to idle.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor.tool == ToolNone {
		return ErrNoActiveTool
	}
	s.logger.Debug("edit cancelled", "tool", s.editor.tool.String())
	s.editor.reset()
	return nil
}
