// Package classifier decides whether a text-line image is upside down.
//
// The model sees the image center-cropped to its aspect ratio, scaled to
// its height and right-padded, and answers with a two-class softmax
// [p0, p1] where p1 is the probability of a 180° rotation. The image is
// reported as rotated when p1 >= Threshold.
//
// Deciding and flipping are separate steps: ShouldRotate180 never touches
// the image, Decision.Apply flips it in place, and Run does both.
package classifier

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/backend"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/logging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/preprocess"
)

// DefaultThreshold is the p1 value at which an image counts as rotated.
const DefaultThreshold = 0.75

// Shape is the classifier's fixed input size.
type Shape struct {
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}

// DefaultShape is the input size of the published classifier models.
var DefaultShape = Shape{Height: 48, Width: 192}

// Decision is the outcome for one image.
type Decision struct {
	ShouldRotate bool    `json:"should_rotate"`
	Confidence   float64 `json:"confidence"`
}

// NewDecision interprets a [p0, p1] softmax. Confidence is p1. A softmax
// with fewer than two values never asks for a rotation.
func NewDecision(softmax []float32, threshold float64) Decision {
	if len(softmax) < 2 {
		return Decision{}
	}
	p1 := float64(softmax[1])
	return Decision{ShouldRotate: p1 >= threshold, Confidence: p1}
}

// Apply rotates img by 180° in place when the decision says so.
func (d Decision) Apply(img *imaging.Image) {
	if d.ShouldRotate {
		imaging.Rotate180InPlace(img)
	}
}

// Classifier runs the rotation model.
type Classifier struct {
	backend   backend.Backend
	shape     Shape
	threshold float64
	params    preprocess.Params
	pad       color.NRGBA
	logger    *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithShape overrides DefaultShape.
func WithShape(s Shape) Option {
	return func(c *Classifier) { c.shape = s }
}

// WithThreshold overrides DefaultThreshold. It must be in (0, 1].
func WithThreshold(t float64) Option {
	return func(c *Classifier) { c.threshold = t }
}

// WithNormalization overrides the default scale 2, bias 1 mapping.
func WithNormalization(p preprocess.Params) Option {
	return func(c *Classifier) { c.params = p }
}

// WithLogger sets the logger for per-image debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// New builds a Classifier on b.
func New(b backend.Backend, opts ...Option) (*Classifier, error) {
	if b == nil {
		return nil, ocrerr.Configuration("classifier needs a backend")
	}
	c := &Classifier{
		backend:   b,
		shape:     DefaultShape,
		threshold: DefaultThreshold,
		params:    preprocess.DefaultParams(),
		pad:       imaging.Black,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.shape.Height <= 0 || c.shape.Width <= 0 {
		return nil, ocrerr.Configuration("classifier shape %dx%d must be positive", c.shape.Width, c.shape.Height)
	}
	if !(c.threshold > 0 && c.threshold <= 1) {
		return nil, ocrerr.Configuration("rotate threshold %v must be in (0, 1]", c.threshold)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c, nil
}

// Shape returns the model input size.
func (c *Classifier) Shape() Shape { return c.shape }

// Threshold returns the rotation threshold.
func (c *Classifier) Threshold() float64 { return c.threshold }

// ShouldRotate180 classifies img. Only 1- and 3-channel images are
// accepted.
func (c *Classifier) ShouldRotate180(ctx context.Context, img *imaging.Image) (Decision, error) {
	if img == nil {
		return Decision{}, ocrerr.InvalidInput(ocrerr.NoIndex, "nil image")
	}
	if img.Empty() {
		return Decision{}, ocrerr.EmptyImage(ocrerr.NoIndex, img.Width, img.Height)
	}
	if img.Channels != 1 && img.Channels != 3 {
		return Decision{}, ocrerr.UnsupportedFormat(ocrerr.NoIndex, img.Channels, 1, 3)
	}

	rgb, err := imaging.ToRGB(img, ocrerr.NoIndex)
	if err != nil {
		return Decision{}, err
	}
	resized, err := preprocess.ResizePad(rgb, c.shape.Height, c.shape.Width, preprocess.CropPadRight, c.pad)
	if err != nil {
		return Decision{}, err
	}
	normalized, err := preprocess.Normalize(resized, c.params)
	if err != nil {
		return Decision{}, err
	}

	input := preprocess.Combine([]*preprocess.NormalizedImage{normalized}, c.shape.Height, c.shape.Width, c.params.PadValue())
	out, err := backend.Run(ctx, c.backend, input)
	input.Release()
	if err != nil {
		return Decision{}, err
	}
	defer out.Release()

	if len(out.Shape) != 2 || out.Shape[0] != 1 || out.Shape[1] != 2 {
		return Decision{}, ocrerr.Backend(fmt.Errorf("expected [1, 2] softmax, got %v", out.Shape))
	}
	if len(out.Data) != out.Shape.Elements() {
		return Decision{}, ocrerr.Backend(fmt.Errorf("softmax shape %v does not match %d values", out.Shape, len(out.Data)))
	}

	d := NewDecision(out.Data, c.threshold)
	c.logger.Debug("classified rotation",
		"width", img.Width,
		"height", img.Height,
		"p1", d.Confidence,
		"rotate", d.ShouldRotate)
	return d, nil
}

// ShouldRotate180Batch classifies each image independently. An error
// carries the index of the failing image.
func (c *Classifier) ShouldRotate180Batch(ctx context.Context, imgs []*imaging.Image) ([]Decision, error) {
	decisions := make([]Decision, len(imgs))
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := c.ShouldRotate180(ctx, img)
		if err != nil {
			return nil, ocrerr.AtIndex(err, i)
		}
		decisions[i] = d
	}
	return decisions, nil
}

// Run classifies img and flips it in place when it is upside down.
func (c *Classifier) Run(ctx context.Context, img *imaging.Image) (Decision, error) {
	d, err := c.ShouldRotate180(ctx, img)
	if err != nil {
		return Decision{}, err
	}
	d.Apply(img)
	return d, nil
}
