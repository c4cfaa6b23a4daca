package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/backend"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/classifier"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/decode"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// fakeRecognizer "reads" each image as its size. Images narrower than 10
// pixels decode to nothing.
type fakeRecognizer struct {
	batchSizes []int
	seen       [][]*imaging.Image
}

func (f *fakeRecognizer) RunBatched(ctx context.Context, images []*imaging.Image, batchSize int) ([]decode.Result, error) {
	f.batchSizes = append(f.batchSizes, batchSize)
	f.seen = append(f.seen, images)

	out := make([]decode.Result, len(images))
	for i, img := range images {
		if img.Width < 10 {
			out[i] = decode.Result{Score: math.NaN()}
			continue
		}
		out[i] = decode.Result{
			Text:       fmt.Sprintf("%dx%d", img.Width, img.Height),
			Score:      0.5,
			CharScores: []float64{0.5},
		}
	}
	return out, nil
}

// rotationModel answers every classifier call with the same softmax.
func rotationModel(p1 float32) *classifier.Classifier {
	b := backend.Func(func(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
		return tensor.Wrap(tensor.Shape{1, 2}, []float32{1 - p1, p1})
	})
	c, err := classifier.New(b)
	if err != nil {
		panic(err)
	}
	return c
}

// createTestImageFile writes an image whose left half is black and right
// half is white, and returns its path.
func createTestImageFile(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x >= width/2 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), fmt.Sprintf("line-%dx%d.png", width, height))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}

	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}})
	path := createTestImageFile(t, 100, 80)

	var info imaging.ImageInfo
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 || info.Channels != 3 || info.Format != "png" {
		t.Errorf("info = %+v", info)
	}
}

func TestHandleToolsCall_Recognize(t *testing.T) {
	rec := &fakeRecognizer{}
	s := New(Options{Recognizer: rec, BatchSize: 6})
	paths := []string{
		createTestImageFile(t, 120, 30),
		createTestImageFile(t, 5, 30),
		createTestImageFile(t, 60, 20),
	}

	var got RecognizeResult
	decodeResult(t, callTool(t, s, "ocr_recognize", map[string]interface{}{"paths": paths}), &got)

	if got.Count != 3 || len(got.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(got.Lines))
	}
	want := []string{"120x30", "", "60x20"}
	for i, line := range got.Lines {
		if line.Index != i || line.Path != paths[i] || line.Text != want[i] {
			t.Errorf("line %d = %+v, want text %q", i, line, want[i])
		}
	}
	if got.Lines[1].Score != nil {
		t.Errorf("empty line score = %v, want null", *got.Lines[1].Score)
	}
	if got.Lines[0].Score == nil || *got.Lines[0].Score != 0.5 {
		t.Errorf("line 0 score = %v, want 0.5", got.Lines[0].Score)
	}
	if rec.batchSizes[0] != 6 {
		t.Errorf("batch size = %d, want server default 6", rec.batchSizes[0])
	}

	decodeResult(t, callTool(t, s, "ocr_recognize", map[string]interface{}{"paths": paths, "batch_size": 2}), &got)
	if rec.batchSizes[1] != 2 {
		t.Errorf("batch size = %d, want 2", rec.batchSizes[1])
	}
}

func TestHandleToolsCall_RecognizeNullScoreJSON(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}})
	path := createTestImageFile(t, 4, 4)

	resp := callTool(t, s, "ocr_recognize", map[string]interface{}{"paths": []string{path}})
	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if text := content[0]["text"].(string); !strings.Contains(text, `"score": null`) {
		t.Errorf("expected a null score in %s", text)
	}
}

func TestHandleToolsCall_RecognizeMissingFile(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}})
	paths := []string{
		createTestImageFile(t, 40, 20),
		filepath.Join(t.TempDir(), "missing.png"),
	}

	resp := callTool(t, s, "ocr_recognize", map[string]interface{}{"paths": paths})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("error = %+v, want -32000", resp.Error)
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "image[1]") {
		t.Errorf("error data %v should name image[1]", resp.Error.Data)
	}
}

func TestHandleToolsCall_RecognizeFixRotation(t *testing.T) {
	rec := &fakeRecognizer{}
	s := New(Options{Recognizer: rec, Classifier: rotationModel(0.9)})
	path := createTestImageFile(t, 40, 20)

	var got RecognizeResult
	decodeResult(t, callTool(t, s, "ocr_recognize", map[string]interface{}{
		"paths":        []string{path},
		"fix_rotation": true,
	}), &got)

	if !got.Lines[0].Rotated {
		t.Error("expected the line to be reported as rotated")
	}
	// The recognizer saw the flipped copy: white on the left.
	if seen := rec.seen[0][0]; seen.Pix[0] != 255 {
		t.Errorf("recognizer saw first pixel %d, want 255", seen.Pix[0])
	}
	// The cached original is untouched.
	cached, _ := s.cache.Load(path)
	if cached.Pix[0] != 0 {
		t.Errorf("cached image was modified")
	}
}

func TestHandleToolsCall_RecognizeRegion(t *testing.T) {
	rec := &fakeRecognizer{}
	s := New(Options{Recognizer: rec})
	path := createTestImageFile(t, 200, 100)

	var line LineResult
	decodeResult(t, callTool(t, s, "ocr_recognize_region", map[string]interface{}{
		"path": path, "x1": 10, "y1": 20, "x2": 110, "y2": 52,
	}), &line)

	if line.Text != "100x32" || line.Path != path {
		t.Errorf("line = %+v, want text 100x32", line)
	}

	resp := callTool(t, s, "ocr_recognize_region", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 300, "y2": 10,
	})
	if resp.Error == nil {
		t.Fatal("expected an error for a region outside the image")
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok || data["kind"] != "INVALID_INPUT" {
		t.Errorf("error data = %v, want invalid_input fields", resp.Error.Data)
	}
}

func TestHandleToolsCall_DetectRotation(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}, Classifier: rotationModel(0.8)})
	paths := []string{createTestImageFile(t, 40, 20), createTestImageFile(t, 90, 30)}

	var got struct {
		Decisions []RotationResult `json:"decisions"`
		Count     int              `json:"count"`
	}
	decodeResult(t, callTool(t, s, "ocr_detect_rotation", map[string]interface{}{"paths": paths}), &got)

	if got.Count != 2 {
		t.Fatalf("count = %d, want 2", got.Count)
	}
	for i, d := range got.Decisions {
		if d.Index != i || d.Path != paths[i] || !d.ShouldRotate || float32(d.Confidence) != 0.8 {
			t.Errorf("decision %d = %+v", i, d)
		}
	}
}

func TestHandleToolsCall_RotationWithoutClassifier(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}})
	path := createTestImageFile(t, 40, 20)

	tests := []struct {
		tool string
		args map[string]interface{}
	}{
		{"ocr_detect_rotation", map[string]interface{}{"paths": []string{path}}},
		{"ocr_fix_rotation", map[string]interface{}{"path": path}},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil || resp.Error.Code != -32000 {
				t.Fatalf("error = %+v, want -32000", resp.Error)
			}
			data, _ := resp.Error.Data.(map[string]interface{})
			if data["kind"] != "CONFIGURATION_ERROR" {
				t.Errorf("error data = %v, want configuration kind", resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_FixRotation(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}, Classifier: rotationModel(0.95)})
	path := createTestImageFile(t, 40, 20)

	var got FixRotationResult
	decodeResult(t, callTool(t, s, "ocr_fix_rotation", map[string]interface{}{"path": path}), &got)

	if !got.ShouldRotate || got.Image == nil || got.Image.MimeType != "image/png" {
		t.Fatalf("result = %+v", got)
	}

	raw, err := base64.StdEncoding.DecodeString(got.Image.ImageBase64)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("rotated image should start white, got %d", r>>8)
	}

	cached, _ := s.cache.Load(path)
	if cached.Pix[0] != 0 {
		t.Error("cached image was modified")
	}
}

func TestHandleToolsCall_EngineInfo(t *testing.T) {
	s := New(Options{
		Recognizer:    &fakeRecognizer{},
		Classifier:    rotationModel(0.5),
		Engine:        "onnx",
		EngineDetails: map[string]interface{}{"shape": "48x?x3"},
		BatchSize:     8,
		Version:       "1.0.0",
	})

	var info struct {
		Engine     string                 `json:"engine"`
		Version    string                 `json:"version"`
		BatchSize  int                    `json:"batch_size"`
		Classifier bool                   `json:"classifier"`
		Details    map[string]interface{} `json:"details"`
	}
	decodeResult(t, callTool(t, s, "ocr_engine_info", map[string]interface{}{}), &info)

	if info.Engine != "onnx" || info.Version != "1.0.0" || info.BatchSize != 8 || !info.Classifier {
		t.Errorf("info = %+v", info)
	}
	if info.Details["shape"] != "48x?x3" {
		t.Errorf("details = %v", info.Details)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}})

	resp := callTool(t, s, "image_sample_color", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: error = %+v", resp.Error)
	}

	resp = s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("bad params: error = %+v", resp.Error)
	}

	resp = callTool(t, s, "ocr_recognize", map[string]interface{}{"paths": "one.png"})
	if resp.Error == nil {
		t.Error("expected an error for malformed arguments")
	}
}
