// Package server implements the MCP (Model Context Protocol) server for
// text-line recognition.
//
// This package provides a JSON-RPC 2.0 server that exposes the OCR
// pipeline through the MCP protocol: batched recognition, 180° rotation
// detection and correction.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load image and get metadata
//   - ocr_recognize: Recognize a list of text-line images, in order
//   - ocr_recognize_region: Crop a region and recognize it
//   - ocr_detect_rotation: Classify images as upright or upside down
//   - ocr_fix_rotation: Correct an upside-down image and return it as PNG
//   - ocr_engine_info: Describe the configured engines
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images keyed by path.
// Cached images are never modified; rotation works on a copy.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the error's kind, message and image index for pipeline
//     errors, or the Go error string otherwise
//
// # Usage
//
//	srv := server.New(server.Options{Recognizer: rec, Engine: "onnx"})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
