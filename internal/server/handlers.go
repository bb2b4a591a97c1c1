package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/bgbegone/internal/imaging"
	"github.com/ironsheep/bgbegone/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_upload", "image_process").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	// Meta carries the optional progress token.
	Meta *struct {
		ProgressToken interface{} `json:"progressToken,omitempty"`
	} `json:"_meta,omitempty"`
}

// argsError marks a tool failure caused by malformed arguments.
type argsError struct{ err error }

func (e *argsError) Error() string { return "invalid arguments: " + e.err.Error() }
func (e *argsError) Unwrap() error { return e.err }

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return -32602; any other tool failure returns -32000
// with the error string as data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	ctx := s.ctx
	if params.Meta != nil && params.Meta.ProgressToken != nil {
		ctx = withProgressToken(ctx, params.Meta.ProgressToken)
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		var ae *argsError
		if errors.As(err, &ae) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Input
	case "image_upload":
		return s.handleImageUpload(ctx, args)
	case "image_upload_url":
		return s.handleImageUploadURL(ctx, args)

	// Pipeline
	case "image_set_background":
		return s.handleSetBackground(ctx, args)
	case "image_adjust_tone":
		return s.handleAdjustTone(args)
	case "image_process":
		return s.handleProcess(ctx, args)
	case "image_clear":
		return s.handleClear()

	// Inspection
	case "image_info":
		return s.handleImageInfo(args)
	case "image_sample_color":
		return s.handleSampleColor(args)
	case "image_compare":
		return s.handleCompare(args)

	// Editor
	case "editor_begin":
		return s.handleEditorBegin(args)
	case "editor_crop":
		return s.handleEditorCrop(args)
	case "editor_erase":
		return s.handleEditorErase(args)
	case "editor_fill":
		return s.handleEditorFill(args)
	case "editor_preview":
		return s.handleEditorPreview(args)
	case "editor_apply":
		return s.snapshotAfter(s.session.Apply())
	case "editor_cancel":
		return s.snapshotAfter(s.session.Cancel())

	// Output
	case "image_download":
		return s.handleDownload(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &argsError{err}
	}
	return nil
}

func (s *Server) snapshotAfter(err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return s.session.Snapshot(), nil
}

// ImageOutput is a rendered image returned inline or written to disk.
type ImageOutput struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MimeType string `json:"mime_type"`
	Path     string `json:"path,omitempty"`
	Data     string `json:"data_base64,omitempty"`
}

// writeImage encodes img as PNG and either writes it to outputPath or
// returns it base64-encoded.
func writeImage(img *imaging.Raster, outputPath string) (*ImageOutput, error) {
	data, err := imaging.Encode(img, imaging.EncodeRequest{Format: imaging.FormatPNG})
	if err != nil {
		return nil, err
	}
	out := &ImageOutput{
		Width:    img.Width(),
		Height:   img.Height(),
		MimeType: imaging.FormatPNG.MimeType(),
	}
	if outputPath == "" {
		out.Data = base64.StdEncoding.EncodeToString(data)
		return out, nil
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	out.Path = outputPath
	return out, nil
}

// === Input Handlers ===

type imageUploadArgs struct {
	Path     string `json:"path"`
	Data     string `json:"data_base64"`
	MimeType string `json:"mime_type"`
}

func (s *Server) handleImageUpload(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageUploadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	switch {
	case a.Path != "" && a.Data != "":
		return nil, &argsError{errors.New("give either path or data_base64, not both")}
	case a.Path != "":
		// The file may have changed since it was last inspected.
		s.cache.Evict(a.Path)
		return s.session.UploadFile(ctx, a.Path)
	case a.Data != "":
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return nil, &argsError{fmt.Errorf("data_base64: %w", err)}
		}
		if a.MimeType == "" {
			a.MimeType = http.DetectContentType(data)
		}
		return s.session.Upload(ctx, data, a.MimeType)
	default:
		return nil, &argsError{errors.New("path or data_base64 is required")}
	}
}

type imageUploadURLArgs struct {
	URL string `json:"url"`
}

func (s *Server) handleImageUploadURL(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageUploadURLArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session.UploadURL(ctx, a.URL)
}

// === Pipeline Handlers ===

type setBackgroundArgs struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleSetBackground(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a setBackgroundArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Kind == "" {
		a.Kind = "transparent"
	}
	spec, err := imaging.ParseBackground(a.Kind, a.Value)
	if err != nil {
		return nil, err
	}
	return s.snapshotAfter(s.session.SetBackground(ctx, spec))
}

type adjustToneArgs struct {
	Brightness *int `json:"brightness"`
	Contrast   *int `json:"contrast"`
}

func (s *Server) handleAdjustTone(args json.RawMessage) (interface{}, error) {
	var a adjustToneArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	tone := imaging.DefaultTone
	if a.Brightness != nil {
		tone.Brightness = *a.Brightness
	}
	if a.Contrast != nil {
		tone.Contrast = *a.Contrast
	}
	return s.snapshotAfter(s.session.SetTone(tone))
}

type processArgs struct {
	Wait *bool `json:"wait"`
}

func (s *Server) handleProcess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a processArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	if a.Wait == nil || *a.Wait {
		release := s.claimProgress(progressTokenFrom(ctx))
		defer release()
		return s.snapshotAfter(s.session.Process(ctx))
	}

	if s.session.Snapshot().Processing {
		return nil, session.ErrBusy
	}
	if !s.session.Snapshot().HasImage {
		return nil, session.ErrNoImage
	}
	// The run outlives this call, so it holds the progress route itself.
	release := s.claimProgress(progressTokenFrom(ctx))
	go func() {
		defer release()
		if err := s.session.Process(ctx); err != nil {
			s.logger.Warn("background processing failed", "error", err)
		}
	}()
	return map[string]interface{}{"status": "started"}, nil
}

func (s *Server) handleClear() (interface{}, error) {
	s.session.Clear()
	s.cache.Clear()
	return s.session.Snapshot(), nil
}

// === Inspection Handlers ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path != "" {
		return s.cache.Info(a.Path)
	}
	return s.session.Snapshot(), nil
}

type sampleColorArgs struct {
	Target string `json:"target"`
	Path   string `json:"path"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

func (s *Server) handleSampleColor(args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	img, err := s.sampleTarget(a.Target, a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// sampleTarget resolves which image a sampling tool reads.
func (s *Server) sampleTarget(target, path string) (*imaging.Raster, error) {
	if path != "" {
		return s.cache.Load(path)
	}
	switch strings.ToLower(target) {
	case "", "processed":
		if img := s.session.Processed(); img != nil {
			return img, nil
		}
		return nil, session.ErrNotProcessed
	case "original":
		if img := s.session.Original(); img != nil {
			return img, nil
		}
		return nil, session.ErrNoImage
	case "preview":
		return s.session.Preview()
	default:
		return nil, &argsError{fmt.Errorf("unknown target %q", target)}
	}
}

type compareArgs struct {
	Position   *float64 `json:"position"`
	OutputPath string   `json:"output_path"`
}

func (s *Server) handleCompare(args json.RawMessage) (interface{}, error) {
	var a compareArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	position := 0.5
	if a.Position != nil {
		position = *a.Position
	}
	img, err := s.session.Compare(position)
	if err != nil {
		return nil, err
	}
	return writeImage(img, a.OutputPath)
}

// === Editor Handlers ===

type editorBeginArgs struct {
	Tool string `json:"tool"`
}

func (s *Server) handleEditorBegin(args json.RawMessage) (interface{}, error) {
	var a editorBeginArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	tool, err := session.ParseTool(a.Tool)
	if err != nil {
		return nil, err
	}
	return s.snapshotAfter(s.session.BeginTool(tool))
}

type editorCropArgs struct {
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Quadrant        string `json:"quadrant"`
	DisplayedWidth  int    `json:"displayed_width"`
	DisplayedHeight int    `json:"displayed_height"`
}

func (s *Server) handleEditorCrop(args json.RawMessage) (interface{}, error) {
	var a editorCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	region := imaging.CropRegion{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
	displayed := imaging.Size{W: a.DisplayedWidth, H: a.DisplayedHeight}
	if a.Quadrant != "" {
		img := s.session.Processed()
		if img == nil {
			return nil, session.ErrNotProcessed
		}
		var ok bool
		region, ok = imaging.CropQuadrant(img, a.Quadrant)
		if !ok {
			return nil, &argsError{fmt.Errorf("unknown quadrant %q", a.Quadrant)}
		}
		// Quadrants are computed in natural pixels.
		displayed = imaging.Size{}
	}
	return s.snapshotAfter(s.session.SetCrop(region, displayed))
}

type editorEraseArgs struct {
	Points          []imaging.Point `json:"points"`
	BrushSize       int             `json:"brush_size"`
	DisplayedWidth  int             `json:"displayed_width"`
	DisplayedHeight int             `json:"displayed_height"`
}

func (s *Server) handleEditorErase(args json.RawMessage) (interface{}, error) {
	var a editorEraseArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	stroke := imaging.BrushStroke{Points: a.Points, BrushSize: a.BrushSize}
	displayed := imaging.Size{W: a.DisplayedWidth, H: a.DisplayedHeight}
	return s.snapshotAfter(s.session.AddStroke(stroke, displayed))
}

type editorFillArgs struct {
	Color string `json:"color"`
}

func (s *Server) handleEditorFill(args json.RawMessage) (interface{}, error) {
	var a editorFillArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = session.DefaultFillColor
	}
	return s.snapshotAfter(s.session.SetFill(a.Color))
}

type editorPreviewArgs struct {
	OutputPath string `json:"output_path"`
}

func (s *Server) handleEditorPreview(args json.RawMessage) (interface{}, error) {
	var a editorPreviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.session.Preview()
	if err != nil {
		return nil, err
	}
	return writeImage(img, a.OutputPath)
}

// === Output Handlers ===

type downloadArgs struct {
	Format     string  `json:"format"`
	Quality    float64 `json:"quality"`
	HD         bool    `json:"hd"`
	OutputPath string  `json:"output_path"`
}

// DownloadResult describes an encoded download.
type DownloadResult struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int    `json:"size_bytes"`
	Path      string `json:"path,omitempty"`
	Data      string `json:"data_base64,omitempty"`
}

func (s *Server) handleDownload(args json.RawMessage) (interface{}, error) {
	var a downloadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = string(imaging.FormatPNG)
	}

	dl, err := s.session.Download(imaging.EncodeRequest{
		Format:  imaging.Format(a.Format),
		Quality: a.Quality,
		HD:      a.HD,
	})
	if err != nil {
		return nil, err
	}

	result := &DownloadResult{
		Filename:  dl.Filename,
		MimeType:  dl.MimeType,
		Width:     dl.Width,
		Height:    dl.Height,
		SizeBytes: len(dl.Data),
	}
	if a.OutputPath == "" {
		result.Data = base64.StdEncoding.EncodeToString(dl.Data)
		return result, nil
	}

	path := a.OutputPath
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, dl.Filename)
	}
	if err := os.WriteFile(path, dl.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write download: %w", err)
	}
	result.Path = path
	s.logger.Info("download written", "path", path, "bytes", len(dl.Data))
	return result, nil
}
