package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ironsheep/bgbegone/internal/imaging"
	"github.com/ironsheep/bgbegone/internal/session"
)

// Server handles MCP protocol communication
type Server struct {
	session *session.Session
	cache   *imaging.ImageCache
	logger  *slog.Logger
	version string

	// ctx is the Run context; background processing outlives a single call.
	ctx context.Context

	outMu sync.Mutex
	enc   *json.Encoder

	// progressToken is the token of the image_process run currently
	// reporting segmentation progress, or nil.
	progressMu    sync.Mutex
	progressToken interface{}
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Options configures a Server.
type Options struct {
	// Session configures the editing session. Its OnProgress, if set, is
	// still called alongside progress notifications.
	Session session.Options

	Logger  *slog.Logger
	Version string
}

// New creates a new MCP server instance with a fresh session.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	s := &Server{
		cache:   imaging.NewImageCache(),
		logger:  opts.Logger,
		version: opts.Version,
		ctx:     context.Background(),
		enc:     json.NewEncoder(io.Discard),
	}

	sessOpts := opts.Session
	if sessOpts.Logger == nil {
		sessOpts.Logger = opts.Logger
	}
	next := sessOpts.OnProgress
	sessOpts.OnProgress = func(fraction float64) {
		s.notifyProgress(fraction)
		if next != nil {
			next(fraction)
		}
	}
	s.session = session.New(sessOpts)
	return s
}

// Run reads newline-delimited requests from in and writes responses to out
// until in is exhausted or ctx is done.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.outMu.Lock()
	s.ctx = ctx
	s.enc = json.NewEncoder(out)
	s.outMu.Unlock()

	scanner := bufio.NewScanner(in)
	// Base64 uploads can be large.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxRequestBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			s.send(s.errorResponse(nil, -32700, "Parse error", err.Error()))
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			s.send(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// maxRequestBytes bounds one request line.
const maxRequestBytes = 64 * 1024 * 1024

func (s *Server) send(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "bgbegone",
				"version": s.version,
			},
		},
	}
}

// handleToolsList returns the tool table.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

// notifyProgress emits notifications/progress for the call that asked for it.
func (s *Server) notifyProgress(fraction float64) {
	s.progressMu.Lock()
	token := s.progressToken
	s.progressMu.Unlock()
	if token == nil {
		return
	}
	s.send(MCPNotification{
		JSONRPC: "2.0",
		Method:  "notifications/progress",
		Params: map[string]interface{}{
			"progressToken": token,
			"progress":      fraction,
			"total":         1,
		},
	})
}

type progressTokenKey struct{}

func withProgressToken(ctx context.Context, token interface{}) context.Context {
	return context.WithValue(ctx, progressTokenKey{}, token)
}

func progressTokenFrom(ctx context.Context) interface{} {
	return ctx.Value(progressTokenKey{})
}

// claimProgress routes progress notifications to token until release is
// called. A token already routing a run is not replaced.
func (s *Server) claimProgress(token interface{}) (release func()) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if token == nil || s.progressToken != nil {
		return func() {}
	}
	s.progressToken = token
	return func() {
		s.progressMu.Lock()
		s.progressToken = nil
		s.progressMu.Unlock()
	}
}
