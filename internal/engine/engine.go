// Package engine assembles the recognizer and the optional rotation
// classifier from configuration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/backend"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/backend/onnxrt"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/classifier"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/config"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/decode"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/logging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/recognition"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tesseract"
)

// Recognizer is satisfied by *recognition.Recognizer and
// *tesseract.Engine.
type Recognizer interface {
	RunBatched(ctx context.Context, images []*imaging.Image, batchSize int) ([]decode.Result, error)
}

// Engines holds everything built from one configuration.
type Engines struct {
	Name       string
	Recognizer Recognizer

	// Classifier is nil when the descriptor has no classifier section.
	Classifier *classifier.Classifier

	// BatchSize is the recognizer's default batch size.
	BatchSize int

	// Details describes the engine for diagnostics.
	Details interface{}

	closers []io.Closer
}

// Close releases the model sessions.
func (e *Engines) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Opener creates one inference handle for a model.
type Opener func(cfg onnxrt.Config) (backend.Backend, error)

// OpenONNX opens an ONNX Runtime session.
func OpenONNX(cfg onnxrt.Config) (backend.Backend, error) {
	s, err := onnxrt.New(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Build creates the engines named by cfg.
func Build(cfg *config.Config, logger *slog.Logger) (*Engines, error) {
	logger = logging.OrDiscard(logger)

	switch cfg.Engine {
	case config.EngineTesseract:
		return BuildTesseract(cfg, logger)
	case config.EngineONNX:
		m, err := config.LoadModelFile(cfg.ModelFile)
		if err != nil {
			return nil, err
		}
		return BuildONNX(m, cfg.BatchSize, OpenONNX, logger)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// BuildTesseract creates the Tesseract engine. It has no classifier.
func BuildTesseract(cfg *config.Config, logger *slog.Logger) (*Engines, error) {
	t, err := tesseract.New(
		tesseract.WithLanguage(cfg.TesseractLang),
		tesseract.WithTessdata(cfg.TesseractDataPath),
		tesseract.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = tesseract.DefaultBatchSize
	}
	return &Engines{
		Name:       string(config.EngineTesseract),
		Recognizer: t,
		BatchSize:  batchSize,
		Details:    t.Info(),
	}, nil
}

// BuildONNX creates the recognizer and, when configured, the classifier.
// Each model gets a pool of m.Replicas() handles from open. batchSize
// overrides the descriptor when positive.
func BuildONNX(m *config.ModelFile, batchSize int, open Opener, logger *slog.Logger) (*Engines, error) {
	logger = logging.OrDiscard(logger)

	labels, err := decode.LoadLabels(m.Recognition.Labels)
	if err != nil {
		return nil, err
	}
	shape, err := m.RecognitionShape()
	if err != nil {
		return nil, err
	}
	pad, err := m.PadColor()
	if err != nil {
		return nil, err
	}
	if batchSize == 0 {
		batchSize = m.Recognition.BatchSize
	}

	e := &Engines{Name: string(config.EngineONNX)}

	recPool, err := openPool(m, m.Recognition.Model, open)
	if err != nil {
		return nil, fmt.Errorf("recognition model: %w", err)
	}
	e.closers = append(e.closers, recPool)

	rec, err := recognition.New(recPool, labels, shape,
		recognition.WithBatchSize(batchSize),
		recognition.WithNormalization(m.Normalization()),
		recognition.WithPadColor(pad),
		recognition.WithLogger(logger.With("component", "recognizer")),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Recognizer = rec
	e.BatchSize = rec.BatchSize()

	if m.Classifier != nil {
		clsPool, err := openPool(m, m.Classifier.Model, open)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("classifier model: %w", err)
		}
		e.closers = append(e.closers, clsPool)

		opts := append(m.ClassifierOptions(), classifier.WithLogger(logger.With("component", "classifier")))
		cls, err := classifier.New(clsPool, opts...)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Classifier = cls
	}

	e.Details = map[string]interface{}{
		"model":        m.Recognition.Model,
		"shape":        rec.Shape().String(),
		"labels":       len(labels),
		"pad_color":    imaging.FormatColor(pad),
		"replicas":     recPool.Size(),
		"input_layout": string(m.SessionConfig("").InputLayout),
	}
	logger.Info("recognition engine ready",
		"shape", rec.Shape().String(),
		"labels", len(labels),
		"batch_size", rec.BatchSize(),
		"replicas", recPool.Size(),
		"classifier", e.Classifier != nil)
	return e, nil
}

func openPool(m *config.ModelFile, modelPath string, open Opener) (*backend.Pool, error) {
	handles := make([]backend.Backend, 0, m.Replicas())
	for i := 0; i < m.Replicas(); i++ {
		h, err := open(m.SessionConfig(modelPath))
		if err != nil {
			for _, opened := range handles {
				if c, ok := opened.(io.Closer); ok {
					c.Close()
				}
			}
			return nil, err
		}
		handles = append(handles, h)
	}
	return backend.NewPool(handles...)
}
