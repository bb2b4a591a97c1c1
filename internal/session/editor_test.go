package session

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/ironsheep/bgbegone/internal/imaging"
)

// processedSession returns a session whose result is a 100x100 opaque red
// image over a transparent background.
func processedSession(t *testing.T) *Session {
	t.Helper()
	s := newTestSession(Options{})
	mustUpload(t, s, pngBlob(t, 100, 100, red))
	mustProcess(t, s)
	return s
}

func TestParseTool(t *testing.T) {
	tests := []struct {
		name string
		want Tool
	}{
		{"crop", ToolCrop},
		{"Erase", ToolErase},
		{" fill ", ToolFill},
	}
	for _, tt := range tests {
		got, err := ParseTool(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParseTool(%q): got %v %v, want %v", tt.name, got, err, tt.want)
		}
	}
	if _, err := ParseTool("lasso"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("got %v, want ErrUnknownTool", err)
	}
}

func TestBeginTool_RequiresProcessedImage(t *testing.T) {
	s := newTestSession(Options{})
	mustUpload(t, s, pngBlob(t, 10, 10, red))

	if err := s.BeginTool(ToolCrop); !errors.Is(err, ErrNotProcessed) {
		t.Errorf("got %v, want ErrNotProcessed", err)
	}
	if err := processedSession(t).BeginTool(ToolNone); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("ToolNone: got %v, want ErrUnknownTool", err)
	}
}

func TestEditor_IdleOperations(t *testing.T) {
	s := processedSession(t)

	if s.ActiveTool() != ToolNone {
		t.Fatalf("new session should be idle, got %v", s.ActiveTool())
	}
	if err := s.SetCrop(imaging.CropRegion{Width: 10, Height: 10}, imaging.Size{}); !errors.Is(err, ErrNoActiveTool) {
		t.Errorf("SetCrop: got %v, want ErrNoActiveTool", err)
	}
	if err := s.Apply(); !errors.Is(err, ErrNoActiveTool) {
		t.Errorf("Apply: got %v, want ErrNoActiveTool", err)
	}
	if err := s.Cancel(); !errors.Is(err, ErrNoActiveTool) {
		t.Errorf("Cancel: got %v, want ErrNoActiveTool", err)
	}
}

func TestEditor_WrongTool(t *testing.T) {
	s := processedSession(t)
	if err := s.BeginTool(ToolCrop); err != nil {
		t.Fatalf("BeginTool failed: %v", err)
	}

	stroke := imaging.BrushStroke{Points: []imaging.Point{{X: 5, Y: 5}}, BrushSize: 4}
	if err := s.AddStroke(stroke, imaging.Size{}); !errors.Is(err, ErrToolActive) {
		t.Errorf("AddStroke: got %v, want ErrToolActive", err)
	}
	if err := s.SetFill("#000000"); !errors.Is(err, ErrToolActive) {
		t.Errorf("SetFill: got %v, want ErrToolActive", err)
	}
}

func TestEditor_Crop(t *testing.T) {
	s := processedSession(t)

	if err := s.BeginTool(ToolCrop); err != nil {
		t.Fatalf("BeginTool failed: %v", err)
	}
	// Displayed at half size: the region covers the natural top-left 50x50.
	if err := s.SetCrop(imaging.CropRegion{X: 0, Y: 0, Width: 25, Height: 25}, imaging.Size{W: 50, H: 50}); err != nil {
		t.Fatalf("SetCrop failed: %v", err)
	}

	preview, err := s.Preview()
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if preview.Width() != 50 {
		t.Errorf("preview width: got %d, want 50", preview.Width())
	}
	if s.Processed().Width() != 100 {
		t.Error("preview must not commit")
	}

	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if s.ActiveTool() != ToolNone {
		t.Error("Apply should return to idle")
	}
	if got := s.Processed().Size(); got != (imaging.Size{W: 50, H: 50}) {
		t.Errorf("processed: got %v, want 50x50", got)
	}

	// Tone is recomputed from the composite, which was cropped too.
	if err := s.SetTone(imaging.ToneSettings{Brightness: 90, Contrast: 100}); err != nil {
		t.Fatalf("SetTone failed: %v", err)
	}
	if got := s.Processed().Size(); got != (imaging.Size{W: 50, H: 50}) {
		t.Errorf("after tone: got %v, want 50x50", got)
	}
}

func TestEditor_CropDegenerateIsNoOp(t *testing.T) {
	s := processedSession(t)
	before := s.Processed()

	s.BeginTool(ToolCrop)
	s.SetCrop(imaging.CropRegion{X: 10, Y: 10, Width: 0, Height: 40}, imaging.Size{W: 100, H: 100})
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if s.Processed() != before {
		t.Error("a degenerate crop should leave the image unchanged")
	}
}

func TestEditor_Erase(t *testing.T) {
	s := processedSession(t)
	if err := s.BeginTool(ToolErase); err != nil {
		t.Fatalf("BeginTool failed: %v", err)
	}

	strokes := []imaging.BrushStroke{
		{Points: []imaging.Point{{X: 10, Y: 10}, {X: 30, Y: 10}}, BrushSize: 4},
		{Points: []imaging.Point{{X: 50, Y: 50}}, BrushSize: 6},
		{},
	}
	for _, st := range strokes {
		if err := s.AddStroke(st, imaging.Size{W: 100, H: 100}); err != nil {
			t.Fatalf("AddStroke failed: %v", err)
		}
	}
	if n := s.Snapshot().PendingStrokes; n != 2 {
		t.Errorf("pending strokes: got %d, want 2", n)
	}

	preview, _ := s.Preview()
	if preview.At(20, 10).A != 0 {
		t.Error("preview should show the erased path")
	}
	if s.Processed().At(20, 10).A != 255 {
		t.Error("strokes must not commit before Apply")
	}

	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	out := s.Processed()
	if out.At(20, 10).A != 0 || out.At(50, 50).A != 0 {
		t.Error("erased pixels should be transparent after Apply")
	}
	if out.At(80, 80) != red {
		t.Error("pixels off the path should be untouched")
	}

	// The erased area belongs to the cutout, so a new background shows through.
	if err := s.SetBackground(context.Background(), mustSolid(t, "#ffffff")); err != nil {
		t.Fatalf("SetBackground failed: %v", err)
	}
	if got := s.Processed().At(20, 10); got != white {
		t.Errorf("erased pixel over white: got %v, want white", got)
	}
}

func TestEditor_CancelDiscards(t *testing.T) {
	s := processedSession(t)
	before := s.Processed()

	s.BeginTool(ToolErase)
	s.AddStroke(imaging.BrushStroke{Points: []imaging.Point{{X: 50, Y: 50}}, BrushSize: 20}, imaging.Size{})
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if s.ActiveTool() != ToolNone {
		t.Error("Cancel should return to idle")
	}
	if s.Processed() != before || before.At(50, 50) != red {
		t.Error("Cancel must not change the image")
	}
}

func TestEditor_SwitchingToolDiscardsPending(t *testing.T) {
	s := processedSession(t)

	s.BeginTool(ToolErase)
	s.AddStroke(imaging.BrushStroke{Points: []imaging.Point{{X: 50, Y: 50}}, BrushSize: 20}, imaging.Size{})

	if err := s.BeginTool(ToolCrop); err != nil {
		t.Fatalf("BeginTool failed: %v", err)
	}
	if s.ActiveTool() != ToolCrop {
		t.Errorf("active tool: got %v, want crop", s.ActiveTool())
	}
	if n := s.Snapshot().PendingStrokes; n != 0 {
		t.Errorf("pending strokes: got %d, want 0", n)
	}

	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if s.Processed().At(50, 50) != red {
		t.Error("strokes from the previous tool must not be applied")
	}
}

func TestEditor_Fill(t *testing.T) {
	seg := &stubSegmenter{out: cutoutBlob(t, 10, 10)}
	s := newTestSession(Options{Segmenter: seg})
	mustUpload(t, s, pngBlob(t, 10, 10, red))
	mustProcess(t, s)

	if err := s.BeginTool(ToolFill); err != nil {
		t.Fatalf("BeginTool failed: %v", err)
	}
	if err := s.SetFill("blue"); !errors.Is(err, imaging.ErrInvalidColor) {
		t.Errorf("got %v, want ErrInvalidColor", err)
	}
	if err := s.SetFill("#0000ff"); err != nil {
		t.Fatalf("SetFill failed: %v", err)
	}
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	out := s.Processed()
	if got := out.At(0, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("transparent area: got %v, want blue", got)
	}
	if got := out.At(9, 9); got != red {
		t.Errorf("subject: got %v, want red", got)
	}
}

func TestEditor_FillReplacedByBackground(t *testing.T) {
	green := color.NRGBA{0, 255, 0, 255}
	s := newTestSession(Options{Segmenter: &stubSegmenter{out: cutoutBlob(t, 10, 10)}})
	mustUpload(t, s, pngBlob(t, 10, 10, red))
	mustProcess(t, s)

	s.BeginTool(ToolFill)
	if err := s.SetFill("#0000ff"); err != nil {
		t.Fatalf("SetFill failed: %v", err)
	}
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	s.mu.Lock()
	cutout := s.cutout
	s.mu.Unlock()
	if got := cutout.At(0, 0); got.A != 0 {
		t.Fatalf("fill leaked into the cutout: %v", got)
	}

	if err := s.SetTone(imaging.ToneSettings{Brightness: 100, Contrast: 100}); err != nil {
		t.Fatalf("SetTone failed: %v", err)
	}
	if got := s.Processed().At(0, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("after tone change: got %v, want the blue fill", got)
	}

	if err := s.SetBackground(context.Background(), mustSolid(t, "#00ff00")); err != nil {
		t.Fatalf("SetBackground failed: %v", err)
	}
	if got := s.Processed().At(0, 0); got != green {
		t.Errorf("after background change: got %v, want green", got)
	}
	if got := s.Processed().At(9, 9); got != red {
		t.Errorf("subject: got %v, want red", got)
	}
}

func TestEditor_FillDefaultColor(t *testing.T) {
	s := newTestSession(Options{Segmenter: &stubSegmenter{out: cutoutBlob(t, 10, 10)}})
	mustUpload(t, s, pngBlob(t, 10, 10, red))
	mustProcess(t, s)

	s.BeginTool(ToolFill)
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := s.Processed().At(0, 0); got != white {
		t.Errorf("got %v, want white", got)
	}
}

func TestEditor_ProcessResetsTool(t *testing.T) {
	s := processedSession(t)
	s.BeginTool(ToolErase)

	mustProcess(t, s)
	if s.ActiveTool() != ToolNone {
		t.Error("a new result should return the editor to idle")
	}
}
