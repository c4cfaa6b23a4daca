package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/backend/onnxrt"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/classifier"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/preprocess"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/recognition"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// ModelFile is the YAML model descriptor.
//
//	recognition:
//	  model: rec.onnx
//	  labels: keys.txt
//	  version: v4
//	  batch_size: 8
//	  pad_color: "#000000"
//	classifier:
//	  model: cls.onnx
//	  threshold: 0.9
//	runtime:
//	  library: /usr/lib/libonnxruntime.so
//	  replicas: 2
type ModelFile struct {
	Recognition RecognitionModel `yaml:"recognition"`
	Classifier  *ClassifierModel `yaml:"classifier,omitempty"`
	Runtime     Runtime          `yaml:"runtime"`
}

// RecognitionModel describes the text recognizer.
type RecognitionModel struct {
	Model       string             `yaml:"model"`
	Labels      string             `yaml:"labels"`
	Version     string             `yaml:"version"`
	Height      int                `yaml:"height"`
	StaticWidth int                `yaml:"static_width"`
	BatchSize   int                `yaml:"batch_size"`
	Normalize   *preprocess.Params `yaml:"normalize,omitempty"`
	PadColor    string             `yaml:"pad_color"`
}

// ClassifierModel describes the optional rotation classifier.
type ClassifierModel struct {
	Model     string  `yaml:"model"`
	Height    int     `yaml:"height"`
	Width     int     `yaml:"width"`
	Threshold float64 `yaml:"threshold"`
}

// Runtime holds ONNX Runtime settings shared by both models.
type Runtime struct {
	Library     string `yaml:"library"`
	Threads     int    `yaml:"threads"`
	Replicas    int    `yaml:"replicas"`
	InputLayout string `yaml:"input_layout"`
}

// LoadModelFile reads and validates a descriptor. Relative paths are
// resolved against the descriptor's directory.
func LoadModelFile(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	m := &ModelFile{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, ocrerr.Configuration("invalid model file %s: %v", path, err)
	}
	m.resolve(filepath.Dir(path))

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ModelFile) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	m.Recognition.Model = abs(m.Recognition.Model)
	m.Recognition.Labels = abs(m.Recognition.Labels)
	if m.Classifier != nil {
		m.Classifier.Model = abs(m.Classifier.Model)
	}
	m.Runtime.Library = abs(m.Runtime.Library)
}

// Validate checks required fields and parses the enumerated ones.
func (m *ModelFile) Validate() error {
	r := m.Recognition
	if r.Model == "" {
		return ocrerr.Configuration("recognition.model is required")
	}
	if r.Labels == "" {
		return ocrerr.Configuration("recognition.labels is required")
	}
	if _, err := m.RecognitionShape(); err != nil {
		return err
	}
	if r.BatchSize < 0 {
		return ocrerr.Configuration("recognition.batch_size %d must not be negative", r.BatchSize)
	}
	if _, err := m.PadColor(); err != nil {
		return err
	}

	if c := m.Classifier; c != nil {
		if c.Model == "" {
			return ocrerr.Configuration("classifier.model is required when classifier is set")
		}
		if c.Threshold < 0 || c.Threshold > 1 {
			return ocrerr.Configuration("classifier.threshold %v must be in (0, 1]", c.Threshold)
		}
	}

	if m.Runtime.Replicas < 0 || m.Runtime.Threads < 0 {
		return ocrerr.Configuration("runtime.replicas and runtime.threads must not be negative")
	}
	if _, err := tensor.ParseLayout(m.Runtime.InputLayout); err != nil {
		return ocrerr.Configuration("runtime.input_layout: %v", err)
	}
	return nil
}

// RecognitionShape returns the model shape for the configured version,
// with height and static width overrides applied. An empty version means
// v4.
func (m *ModelFile) RecognitionShape() (recognition.ModelShape, error) {
	r := m.Recognition
	version := recognition.V4
	if r.Version != "" {
		v, err := recognition.ParseVersion(r.Version)
		if err != nil {
			return recognition.ModelShape{}, err
		}
		version = v
	}

	shape, err := recognition.ShapeForVersion(version)
	if err != nil {
		return shape, err
	}
	if r.Height != 0 {
		shape.Height = r.Height
	}
	if r.StaticWidth != 0 {
		if shape, err = shape.WithStaticWidth(r.StaticWidth); err != nil {
			return shape, err
		}
	}
	return shape, shape.Validate()
}

// PadColor parses recognition.pad_color. Empty means black.
func (m *ModelFile) PadColor() (color.NRGBA, error) {
	c, err := imaging.ParseColor(m.Recognition.PadColor)
	if err != nil {
		return c, ocrerr.Configuration("recognition.pad_color: %v", err)
	}
	return c, nil
}

// Normalization returns the configured normalization or the default.
func (m *ModelFile) Normalization() preprocess.Params {
	if m.Recognition.Normalize != nil {
		return *m.Recognition.Normalize
	}
	return preprocess.DefaultParams()
}

// Replicas returns the number of sessions per model, at least 1.
func (m *ModelFile) Replicas() int {
	return max(1, m.Runtime.Replicas)
}

// SessionConfig returns the onnxrt settings for a model path.
func (m *ModelFile) SessionConfig(modelPath string) onnxrt.Config {
	layout, _ := tensor.ParseLayout(m.Runtime.InputLayout)
	return onnxrt.Config{
		ModelPath:   modelPath,
		LibraryPath: m.Runtime.Library,
		Threads:     m.Runtime.Threads,
		InputLayout: layout,
	}
}

// ClassifierOptions translates the classifier section into options.
// Zero fields keep the classifier defaults.
func (m *ModelFile) ClassifierOptions() []classifier.Option {
	c := m.Classifier
	if c == nil {
		return nil
	}
	var opts []classifier.Option
	if c.Height != 0 || c.Width != 0 {
		shape := classifier.DefaultShape
		if c.Height != 0 {
			shape.Height = c.Height
		}
		if c.Width != 0 {
			shape.Width = c.Width
		}
		opts = append(opts, classifier.WithShape(shape))
	}
	if c.Threshold != 0 {
		opts = append(opts, classifier.WithThreshold(c.Threshold))
	}
	return opts
}
