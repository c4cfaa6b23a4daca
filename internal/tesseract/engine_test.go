package tesseract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// textLine renders text in basicfont and scales it up by scale.
func textLine(t *testing.T, text string, scale int) *imaging.Image {
	t.Helper()

	width := len(text)*7 + 40
	height := 40

	small := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(20), Y: fixed.I(25)},
	}
	d.DrawString(text)

	img := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height*scale; y++ {
		for x := 0; x < width*scale; x++ {
			img.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return imaging.FromImage(img)
}

func blankLine(width, height int) *imaging.Image {
	img := imaging.New(width, height, 1)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// skipUnavailable skips when Tesseract or its language data is missing.
func skipUnavailable(t *testing.T, err error) {
	t.Helper()
	if errors.Is(err, ocrerr.ErrBackend) {
		t.Skipf("Tesseract not available: %v", err)
	}
}

func TestNew(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if e.Language() != DefaultLanguage {
		t.Errorf("Language() = %q, want %q", e.Language(), DefaultLanguage)
	}

	e, err = New(WithLanguage("deu"), WithConcurrency(2))
	if err != nil {
		t.Fatal(err)
	}
	if e.Language() != "deu" || e.concurrency != 2 {
		t.Errorf("options not applied: %q %d", e.Language(), e.concurrency)
	}

	if _, err := New(WithConcurrency(-1)); !errors.Is(err, ocrerr.ErrConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestRunBatched_Validation(t *testing.T) {
	e, _ := New()
	ctx := context.Background()

	res, err := e.RunBatched(ctx, nil, 4)
	if err != nil || len(res) != 0 {
		t.Errorf("empty input: res %v, err %v", res, err)
	}

	if _, err := e.RunBatched(ctx, []*imaging.Image{blankLine(10, 10)}, -1); !errors.Is(err, ocrerr.ErrConfiguration) {
		t.Errorf("negative batch size: err = %v", err)
	}

	tests := []struct {
		name  string
		imgs  []*imaging.Image
		index int
	}{
		{"empty image", []*imaging.Image{blankLine(10, 10), {Width: 0, Height: 5, Channels: 1}}, 1},
		{"nil image", []*imaging.Image{nil, blankLine(10, 10)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RunBatched(ctx, tt.imgs, 0)
			if !errors.Is(err, ocrerr.ErrInvalidInput) {
				t.Fatalf("err = %v, want invalid input", err)
			}
			if got := ocrerr.IndexOf(err); got != tt.index {
				t.Errorf("index = %d, want %d", got, tt.index)
			}
		})
	}
}

func TestRunBatched_Cancelled(t *testing.T) {
	e, _ := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.RunBatched(ctx, []*imaging.Image{blankLine(10, 10)}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunBatched_RealText(t *testing.T) {
	e, _ := New(WithConcurrency(2))
	words := []string{"HELLO", "12345", "TEST"}

	imgs := make([]*imaging.Image, 0, len(words)+1)
	for _, w := range words {
		imgs = append(imgs, textLine(t, w, 4))
	}
	imgs = append(imgs, blankLine(200, 60))

	results, err := e.RunBatched(context.Background(), imgs, 2)
	skipUnavailable(t, err)
	if err != nil {
		t.Fatalf("RunBatched failed: %v", err)
	}
	if len(results) != len(imgs) {
		t.Fatalf("got %d results, want %d", len(results), len(imgs))
	}

	for i, w := range words {
		t.Logf("input %q, output %q, score %v", w, results[i].Text, results[i].Score)
		if results[i].HasText() && (results[i].Score < 0 || results[i].Score > 1) {
			t.Errorf("result %d score %v out of range", i, results[i].Score)
		}
	}

	blank := results[len(words)]
	if strings.TrimSpace(blank.Text) == "" && !math.IsNaN(blank.Score) {
		t.Errorf("blank line score = %v, want NaN", blank.Score)
	}
}

func TestInfo(t *testing.T) {
	e, _ := New()
	info := e.Info()
	if info.Language != DefaultLanguage {
		t.Errorf("Language = %q", info.Language)
	}
	if !info.Available {
		t.Skipf("Tesseract not available: %s", info.Error)
	}
	if info.Version == "" {
		t.Error("expected a version when available")
	}
}
