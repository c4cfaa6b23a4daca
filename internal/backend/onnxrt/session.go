// Package onnxrt implements backend.Backend with ONNX Runtime.
//
// Each Session owns one runtime session and is not safe for concurrent
// Infer calls; build one Session per replica and pool them with
// backend.NewPool.
package onnxrt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// Config describes one model session.
type Config struct {
	// ModelPath is the .onnx file.
	ModelPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// runtime's default lookup.
	LibraryPath string
	// Threads bounds intra-op parallelism; 0 leaves the runtime default.
	Threads int
	// InputLayout is the layout the model expects. Batches arrive NHWC and
	// are transposed when the model wants NCHW.
	InputLayout tensor.Layout
}

// Session runs one ONNX model.
type Session struct {
	cfg     Config
	sess    *ort.DynamicAdvancedSession
	inName  string
	outName string
}

var envMu sync.Mutex

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		if _, err := os.Stat(libraryPath); err != nil {
			return fmt.Errorf("onnx runtime library: %w", err)
		}
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnx runtime: %w", err)
	}
	return nil
}

// New loads cfg.ModelPath into a new session.
func New(cfg Config) (*Session, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("empty model path")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if cfg.InputLayout == "" {
		cfg.InputLayout = tensor.NHWC
	}

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input, got %dD", len(inputs[0].Dimensions))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer opts.Destroy()

	if cfg.Threads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.Threads); err != nil {
			return nil, fmt.Errorf("set threads: %w", err)
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	return &Session{
		cfg:     cfg,
		sess:    sess,
		inName:  inputs[0].Name,
		outName: outputs[0].Name,
	}, nil
}

// Infer runs one NHWC batch. The output is copied into a pooled tensor.
func (s *Session) Infer(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.sess == nil {
		return nil, errors.New("session closed")
	}

	feed := input
	if s.cfg.InputLayout == tensor.NCHW {
		t, err := tensor.ToNCHW(input)
		if err != nil {
			return nil, err
		}
		defer t.Release()
		feed = t
	}

	in, err := ort.NewTensor(ort.NewShape(feed.Shape.Int64()...), feed.Data)
	if err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.sess.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("run %s: %w", s.cfg.ModelPath, err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}

	ortShape := out.GetShape()
	shape := make(tensor.Shape, len(ortShape))
	for i, d := range ortShape {
		shape[i] = int(d)
	}
	result := tensor.Alloc(shape)
	copy(result.Data, out.GetData())
	return result, nil
}

// Close destroys the runtime session.
func (s *Session) Close() error {
	if s.sess == nil {
		return nil
	}
	err := s.sess.Destroy()
	s.sess = nil
	return err
}

// InputName returns the model's input tensor name.
func (s *Session) InputName() string { return s.inName }

// OutputName returns the model's output tensor name.
func (s *Session) OutputName() string { return s.outName }
