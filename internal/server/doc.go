// Package server implements the MCP (Model Context Protocol) server for
// background removal.
//
// The server exposes one editing session through JSON-RPC 2.0 over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Tools
//
// Input:
//   - image_upload: Upload from a file path or base64 data
//   - image_upload_url: Upload from an http(s) URL
//
// Pipeline:
//   - image_set_background: transparent, white, black, color or image
//   - image_adjust_tone: Brightness and contrast
//   - image_process: Segment, composite and tone
//   - image_clear: Reset the session
//
// Inspection:
//   - image_info: Session state, or file metadata for a path
//   - image_sample_color: Color at a pixel
//   - image_compare: Before/after split preview
//
// Editor (one tool active at a time):
//   - editor_begin, editor_crop, editor_erase, editor_fill
//   - editor_preview, editor_apply, editor_cancel
//
// Output:
//   - image_download: PNG, JPEG or WebP, standard or HD
//
// # Progress
//
// A tools/call carrying params._meta.progressToken receives
// notifications/progress messages while segmentation runs, with progress
// in [0,1] and total 1.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: malformed tool arguments
//   - -32000: tool execution failure, with the Go error string as data
//   - -32601: unknown method
//
// # Usage
//
//	srv := server.New(server.Options{Session: opts, Logger: logger})
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
