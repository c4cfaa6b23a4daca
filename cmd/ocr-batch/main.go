// Command ocr-batch recognizes text-line images from the command line and
// prints one JSON object per image, in argument order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/config"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/engine"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/logging"
)

type lineOutput struct {
	Path       string   `json:"path"`
	Text       string   `json:"text"`
	Score      *float64 `json:"score"`
	Rotated    bool     `json:"rotated,omitempty"`
	Confidence *float64 `json:"rotation_confidence,omitempty"`
}

type options struct {
	model  string
	rotate bool
	batch  int
	paths  []string
}

func main() {
	var opts options
	var imageDir, logLevel string
	flag.StringVar(&opts.model, "model", "models.yaml", "model descriptor (YAML).")
	flag.StringVar(&imageDir, "image_dir", "", "recognize every png/jpg in this directory after the listed images.")
	flag.BoolVar(&opts.rotate, "rotate", false, "correct upside-down lines with the classifier before recognizing.")
	flag.IntVar(&opts.batch, "batch", 0, "images per model call. 0 uses the descriptor's batch size.")
	flag.StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error.")
	flag.Parse()

	opts.paths = flag.Args()
	if imageDir != "" {
		var names []string
		for _, pattern := range []string{"*.png", "*.jpg", "*.jpeg"} {
			m, _ := filepath.Glob(filepath.Join(imageDir, pattern))
			names = append(names, m...)
		}
		sort.Strings(names)
		opts.paths = append(opts.paths, names...)
	}
	if len(opts.paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ocr-batch [-model models.yaml] [-rotate] [-batch N] image...")
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, logLevel)
	if err := run(context.Background(), opts, engine.OpenONNX, os.Stdout, logger); err != nil {
		log.Fatal(err)
	}
}

// run recognizes opts.paths and writes one JSON line per image to w. The
// model sessions are closed before it returns.
func run(ctx context.Context, opts options, open engine.Opener, w io.Writer, logger *slog.Logger) (err error) {
	m, err := config.LoadModelFile(opts.model)
	if err != nil {
		return fmt.Errorf("load model descriptor: %w", err)
	}
	if opts.rotate && m.Classifier == nil {
		return fmt.Errorf("-rotate needs a classifier section in %s", opts.model)
	}

	engines, err := engine.BuildONNX(m, opts.batch, open, logger)
	if err != nil {
		return fmt.Errorf("create ocr engine: %w", err)
	}
	defer func() {
		err = errors.Join(err, engines.Close())
	}()

	cache := imaging.NewImageCache()
	images := make([]*imaging.Image, len(opts.paths))
	for i, p := range opts.paths {
		img, err := cache.Load(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		images[i] = img
	}

	out := make([]lineOutput, len(opts.paths))
	for i, p := range opts.paths {
		out[i].Path = p
	}

	if opts.rotate {
		for i, img := range images {
			// A path listed twice shares one cached image.
			img = img.Clone()
			images[i] = img
			d, err := engines.Classifier.Run(ctx, img)
			if err != nil {
				return fmt.Errorf("%s: %w", opts.paths[i], err)
			}
			conf := d.Confidence
			out[i].Rotated, out[i].Confidence = d.ShouldRotate, &conf
		}
	}

	results, err := engines.Recognizer.RunBatched(ctx, images, opts.batch)
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}

	enc := json.NewEncoder(w)
	for i, r := range results {
		out[i].Text = r.Text
		if !math.IsNaN(r.Score) {
			score := r.Score
			out[i].Score = &score
		}
		if err := enc.Encode(out[i]); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}
