// Package recognition runs text-line images through a recognition model.
//
// A Recognizer owns the full per-batch path: channel conversion,
// resize-pad to the model height, normalization, stacking into one NHWC
// tensor, one Infer call, and greedy CTC decoding. RunBatched sits on top
// and splits arbitrary inputs into batches of similar aspect ratio so that
// little width is wasted on padding, then restores the caller's order.
//
// # Batch Width
//
// With a static width every batch uses it. Otherwise each image's width at
// model height, ceil(height*w/h), is rounded up to a multiple of 32 and the
// batch takes the maximum.
//
// # Errors
//
// Errors that concern one image carry that image's index in the caller's
// slice (see ocrerr.IndexOf). Backend failures are classified as
// ocrerr.ErrBackend with the engine's error as cause.
package recognition

import (
	"context"
	"image/color"
	"log/slog"
	"time"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/backend"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/decode"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/logging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/preprocess"
)

// Recognizer turns text-line images into strings.
type Recognizer struct {
	backend     backend.Backend
	decoder     *decode.Decoder
	shape       ModelShape
	params      preprocess.Params
	pad         color.NRGBA
	batchSize   int
	concurrency int
	logger      *slog.Logger

	staticWidth int
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithStaticWidth fixes the batch width, rounded up to a multiple of 32.
func WithStaticWidth(width int) Option {
	return func(r *Recognizer) { r.staticWidth = width }
}

// WithBatchSize sets the batch size RunBatched uses when called with 0.
func WithBatchSize(n int) Option {
	return func(r *Recognizer) { r.batchSize = n }
}

// WithNormalization overrides the default scale 2, bias 1 mapping.
func WithNormalization(p preprocess.Params) Option {
	return func(r *Recognizer) { r.params = p }
}

// WithPadColor sets the color used to pad images to the batch shape.
func WithPadColor(c color.NRGBA) Option {
	return func(r *Recognizer) { r.pad = c }
}

// WithConcurrency bounds how many batches RunBatched runs at once. The
// default is the backend's concurrency (its pool size, or 1).
func WithConcurrency(n int) Option {
	return func(r *Recognizer) { r.concurrency = n }
}

// WithLogger sets the logger for per-batch debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recognizer) { r.logger = l }
}

// New builds a Recognizer. The label table must match the model's class
// count: blank, every label, then space.
func New(b backend.Backend, labels decode.Labels, shape ModelShape, opts ...Option) (*Recognizer, error) {
	if b == nil {
		return nil, ocrerr.Configuration("recognizer needs a backend")
	}
	if len(labels) == 0 {
		return nil, ocrerr.Configuration("recognizer needs a label table")
	}
	if shape.Channels == 0 {
		shape.Channels = 3
	}

	r := &Recognizer{
		backend: b,
		decoder: decode.NewDecoder(labels),
		params:  preprocess.DefaultParams(),
		pad:     imaging.Black,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.staticWidth != 0 {
		var err error
		if shape, err = shape.WithStaticWidth(r.staticWidth); err != nil {
			return nil, err
		}
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	r.shape = shape

	switch {
	case r.batchSize < 0:
		return nil, ocrerr.Configuration("batch size %d must not be negative", r.batchSize)
	case r.batchSize == 0:
		r.batchSize = DefaultBatchSize()
	}
	switch {
	case r.concurrency < 0:
		return nil, ocrerr.Configuration("concurrency %d must not be negative", r.concurrency)
	case r.concurrency == 0:
		r.concurrency = backend.Concurrency(b)
	}
	r.logger = logging.OrDiscard(r.logger)

	return r, nil
}

// Shape returns the effective model shape.
func (r *Recognizer) Shape() ModelShape { return r.shape }

// BatchSize returns the default batch size.
func (r *Recognizer) BatchSize() int { return r.batchSize }

// Labels returns the label table.
func (r *Recognizer) Labels() decode.Labels { return r.decoder.Labels }

// Run recognizes a single image.
func (r *Recognizer) Run(ctx context.Context, img *imaging.Image) (decode.Result, error) {
	results, err := r.RunMulti(ctx, []*imaging.Image{img})
	if err != nil {
		return decode.Result{}, err
	}
	return results[0], nil
}

// RunMulti recognizes images as one batch. Results are in input order.
func (r *Recognizer) RunMulti(ctx context.Context, images []*imaging.Image) ([]decode.Result, error) {
	if len(images) == 0 {
		return []decode.Result{}, nil
	}
	for i, img := range images {
		if img == nil {
			return nil, ocrerr.InvalidInput(i, "nil image")
		}
		if img.Empty() {
			return nil, ocrerr.EmptyImage(i, img.Width, img.Height)
		}
	}

	start := time.Now()
	width := r.TargetWidth(images)

	normalized := make([]*preprocess.NormalizedImage, 0, len(images))
	for i, img := range images {
		n, err := r.prepare(img, i, width)
		if err != nil {
			for _, done := range normalized {
				done.Release()
			}
			return nil, err
		}
		normalized = append(normalized, n)
	}

	input := preprocess.Combine(normalized, r.shape.Height, width, r.params.PadValue())
	out, err := backend.Run(ctx, r.backend, input)
	input.Release()
	if err != nil {
		return nil, err
	}
	defer out.Release()

	if len(out.Shape) != 3 || out.Shape[0] != len(images) {
		return nil, ocrerr.Backend(errOutputShape(out.Shape, len(images)))
	}

	results, err := r.decoder.DecodeBatch(out)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("recognized batch",
		"size", len(images),
		"width", width,
		"seq_len", out.Shape[1],
		"elapsed", time.Since(start))
	return results, nil
}

// TargetWidth returns the tensor width for a batch of images.
func (r *Recognizer) TargetWidth(images []*imaging.Image) int {
	if !r.shape.Dynamic() {
		return r.shape.StaticWidth
	}
	width := WidthAlign
	for _, img := range images {
		width = max(width, RoundUp(preprocess.FitWidth(img.Width, img.Height, r.shape.Height)))
	}
	return width
}

func (r *Recognizer) prepare(img *imaging.Image, index, width int) (*preprocess.NormalizedImage, error) {
	rgb, err := imaging.ToRGB(img, index)
	if err != nil {
		return nil, err
	}
	resized, err := preprocess.ResizePad(rgb, r.shape.Height, width, preprocess.PadRight, r.pad)
	if err != nil {
		return nil, ocrerr.AtIndex(err, index)
	}
	n, err := preprocess.Normalize(resized, r.params)
	if err != nil {
		return nil, ocrerr.AtIndex(err, index)
	}
	return n, nil
}
