package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/classifier"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/decode"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "ocr_recognize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

var errNoClassifier = ocrerr.Configuration("no rotation classifier configured")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID, "tool", params.Name)
	start := time.Now()

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		logger.Warn("tool call failed", "error", err, "elapsed", time.Since(start))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", errorData(err))
	}
	logger.Info("tool call", "elapsed", time.Since(start))

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
	case "image_load":
		return s.handleImageLoad(args)

	// Recognition
	case "ocr_recognize":
		return s.handleRecognize(ctx, args)
	case "ocr_recognize_region":
		return s.handleRecognizeRegion(ctx, args)

	// Rotation
	case "ocr_detect_rotation":
		return s.handleDetectRotation(ctx, args)
	case "ocr_fix_rotation":
		return s.handleFixRotation(ctx, args)

	case "ocr_engine_info":
		return s.handleEngineInfo()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
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

// errorData exposes classified errors as fields and everything else as
// its message.
func errorData(err error) interface{} {
	var e *ocrerr.Error
	if errors.As(err, &e) {
		fields := e.Fields()
		fields["error"] = err.Error()
		return fields
	}
	return err.Error()
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Recognition Handlers ===

// LineResult is the recognition outcome for one input.
type LineResult struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Text  string `json:"text"`

	// Score is null when nothing was recognized.
	Score      *float64  `json:"score"`
	CharScores []float64 `json:"char_scores,omitempty"`

	Rotated bool `json:"rotated,omitempty"`
}

// RecognizeResult is returned by ocr_recognize.
type RecognizeResult struct {
	Lines []LineResult `json:"lines"`
	Count int          `json:"count"`
}

type recognizeArgs struct {
	Paths       []string `json:"paths"`
	BatchSize   int      `json:"batch_size"`
	FixRotation bool     `json:"fix_rotation"`
}

func (s *Server) handleRecognize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a recognizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.BatchSize == 0 {
		a.BatchSize = s.opts.BatchSize
	}

	images, err := s.loadAll(a.Paths)
	if err != nil {
		return nil, err
	}

	rotated := make([]bool, len(images))
	if a.FixRotation && s.opts.Classifier != nil {
		for i, img := range images {
			// Cached images are shared; rotate a copy.
			img = img.Clone()
			d, err := s.opts.Classifier.Run(ctx, img)
			if err != nil {
				return nil, ocrerr.AtIndex(err, i)
			}
			images[i], rotated[i] = img, d.ShouldRotate
		}
	}

	results, err := s.opts.Recognizer.RunBatched(ctx, images, a.BatchSize)
	if err != nil {
		return nil, err
	}

	lines := make([]LineResult, len(results))
	for i, r := range results {
		lines[i] = lineResult(i, a.Paths[i], r)
		lines[i].Rotated = rotated[i]
	}
	return &RecognizeResult{Lines: lines, Count: len(lines)}, nil
}

type recognizeRegionArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
}

func (s *Server) handleRecognizeRegion(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a recognizeRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region, err := imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2)
	if err != nil {
		return nil, ocrerr.InvalidInput(ocrerr.NoIndex, "%v", err)
	}

	results, err := s.opts.Recognizer.RunBatched(ctx, []*imaging.Image{region}, 1)
	if err != nil {
		return nil, err
	}
	res := lineResult(0, a.Path, results[0])
	return &res, nil
}

func lineResult(index int, path string, r decode.Result) LineResult {
	out := LineResult{
		Index:      index,
		Path:       path,
		Text:       r.Text,
		CharScores: r.CharScores,
	}
	if !math.IsNaN(r.Score) {
		score := r.Score
		out.Score = &score
	}
	return out
}

// === Rotation Handlers ===

// RotationResult is the classifier decision for one input.
type RotationResult struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	classifier.Decision
}

type detectRotationArgs struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleDetectRotation(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.opts.Classifier == nil {
		return nil, errNoClassifier
	}
	var a detectRotationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	images, err := s.loadAll(a.Paths)
	if err != nil {
		return nil, err
	}
	decisions, err := s.opts.Classifier.ShouldRotate180Batch(ctx, images)
	if err != nil {
		return nil, err
	}

	out := make([]RotationResult, len(decisions))
	for i, d := range decisions {
		out[i] = RotationResult{Index: i, Path: a.Paths[i], Decision: d}
	}
	return map[string]interface{}{
		"decisions": out,
		"count":     len(out),
	}, nil
}

// FixRotationResult carries the decision and the corrected image.
type FixRotationResult struct {
	classifier.Decision
	Image *imaging.EncodedImage `json:"image"`
}

type fixRotationArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFixRotation(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.opts.Classifier == nil {
		return nil, errNoClassifier
	}
	var a fixRotationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	// Cached images are shared; rotate a copy.
	img = img.Clone()
	d, err := s.opts.Classifier.Run(ctx, img)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &FixRotationResult{Decision: d, Image: encoded}, nil
}

// === Engine Information ===

// EngineInfo is returned by ocr_engine_info.
type EngineInfo struct {
	Engine     string      `json:"engine"`
	Version    string      `json:"version"`
	BatchSize  int         `json:"batch_size,omitempty"`
	Classifier bool        `json:"classifier"`
	Details    interface{} `json:"details,omitempty"`
}

func (s *Server) handleEngineInfo() (interface{}, error) {
	return &EngineInfo{
		Engine:     s.opts.Engine,
		Version:    s.opts.Version,
		BatchSize:  s.opts.BatchSize,
		Classifier: s.opts.Classifier != nil,
		Details:    s.opts.EngineDetails,
	}, nil
}

// loadAll loads every path through the cache. A failure carries the
// path's index.
func (s *Server) loadAll(paths []string) ([]*imaging.Image, error) {
	images := make([]*imaging.Image, len(paths))
	for i, p := range paths {
		img, err := s.cache.Load(p)
		if err != nil {
			return nil, ocrerr.AtIndex(err, i)
		}
		images[i] = img
	}
	return images, nil
}
