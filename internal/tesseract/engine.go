package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/decode"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/logging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// DefaultLanguage is the Tesseract language code used when none is set.
const DefaultLanguage = "eng"

// DefaultBatchSize is the chunk size RunBatched uses when called with 0.
const DefaultBatchSize = 8

// Engine runs Tesseract over text-line images.
type Engine struct {
	language    string
	tessdata    string
	concurrency int
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguage sets the Tesseract language code, e.g. "deu" or "eng+fra".
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// WithTessdata points Tesseract at a tessdata directory.
func WithTessdata(dir string) Option {
	return func(e *Engine) { e.tessdata = dir }
}

// WithConcurrency bounds how many chunks RunBatched runs at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithLogger sets the logger for per-chunk debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an Engine. It does not touch Tesseract; see Info.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		language:    DefaultLanguage,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.language == "" {
		e.language = DefaultLanguage
	}
	if e.concurrency <= 0 {
		return nil, ocrerr.Configuration("tesseract concurrency %d must be > 0", e.concurrency)
	}
	e.logger = logging.OrDiscard(e.logger)
	return e, nil
}

// Language returns the configured language code.
func (e *Engine) Language() string { return e.language }

// Run recognizes a single image.
func (e *Engine) Run(ctx context.Context, img *imaging.Image) (decode.Result, error) {
	results, err := e.RunBatched(ctx, []*imaging.Image{img}, 1)
	if err != nil {
		return decode.Result{}, err
	}
	return results[0], nil
}

// RunBatched recognizes images and returns one result per image in input
// order. batchSize 0 uses DefaultBatchSize. An error carries the index of
// the failing image.
func (e *Engine) RunBatched(ctx context.Context, images []*imaging.Image, batchSize int) ([]decode.Result, error) {
	if batchSize < 0 {
		return nil, ocrerr.Configuration("batch size %d must be > 0", batchSize)
	}
	if len(images) == 0 {
		return []decode.Result{}, nil
	}
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	for i, img := range images {
		if img == nil {
			return nil, ocrerr.InvalidInput(i, "nil image")
		}
		if img.Empty() {
			return nil, ocrerr.EmptyImage(i, img.Width, img.Height)
		}
	}

	results := make([]decode.Result, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(images); start += batchSize {
		end := min(start+batchSize, len(images))
		g.Go(func() error {
			return e.runChunk(gctx, images, results, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) runChunk(ctx context.Context, images []*imaging.Image, results []decode.Result, start, end int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := e.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := recognize(client, images[i])
		if err != nil {
			return ocrerr.AtIndex(err, i)
		}
		results[i] = res
	}
	e.logger.Debug("tesseract chunk done", "start", start, "size", end-start)
	return nil
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if e.tessdata != "" {
		if err := client.SetTessdataPrefix(e.tessdata); err != nil {
			client.Close()
			return nil, ocrerr.Backend(fmt.Errorf("failed to set tessdata path: %w", err))
		}
	}
	if err := client.SetLanguage(e.language); err != nil {
		client.Close()
		return nil, ocrerr.Backend(fmt.Errorf("failed to set language: %w", err))
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, ocrerr.Backend(fmt.Errorf("failed to set page segmentation mode: %w", err))
	}
	return client, nil
}

func recognize(client *gosseract.Client, img *imaging.Image) (decode.Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.ToNRGBA(img)); err != nil {
		return decode.Result{}, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return decode.Result{}, ocrerr.Backend(fmt.Errorf("failed to set image: %w", err))
	}

	text, err := client.Text()
	if err != nil {
		return decode.Result{}, ocrerr.Backend(fmt.Errorf("OCR failed: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return decode.Result{Score: math.NaN()}, nil
	}

	// Word boxes only feed the score; text is still returned without them.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return decode.Result{Text: text, Score: math.NaN()}, nil
	}
	scores := make([]float64, 0, len(boxes))
	var sum float64
	for _, box := range boxes {
		c := box.Confidence / 100.0
		scores = append(scores, c)
		sum += c
	}
	return decode.Result{
		Text:       text,
		Score:      sum / float64(len(scores)),
		CharScores: scores,
	}, nil
}

// Info describes the Tesseract installation.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Tessdata  string `json:"tessdata_path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Info reports whether a client can be created with the engine's settings.
func (e *Engine) Info() Info {
	info := Info{Language: e.language, Tessdata: e.tessdata}
	client, err := e.newClient()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer client.Close()
	info.Available = true
	info.Version = client.Version()
	return info
}
