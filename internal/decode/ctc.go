// Package decode turns recognizer output into text.
//
// The recognizer emits, per image, a [sequenceLength, classCount] grid of
// probabilities. Decoding is greedy CTC: pick the most probable class at
// every timestep, drop the blank class 0, and collapse runs of the same
// class. A blank between two identical classes separates them, so both are
// kept.
package decode

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// Result is the decoded text of one image.
//
// Score is the mean probability of the emitted symbols. When nothing was
// emitted Text is empty and Score is NaN; check HasText before trusting
// the score.
type Result struct {
	Text       string
	Score      float64
	CharScores []float64
}

// HasText reports whether at least one symbol was decoded.
func (r Result) HasText() bool {
	return len(r.CharScores) > 0
}

// Decoder performs greedy CTC decoding against a label table. It holds no
// mutable state and is safe for concurrent use.
type Decoder struct {
	Labels Labels
}

// NewDecoder returns a decoder for labels.
func NewDecoder(labels Labels) *Decoder {
	return &Decoder{Labels: labels}
}

// Decode decodes one row of seqLen*classes probabilities.
func (d *Decoder) Decode(row []float32, seqLen, classes int) (Result, error) {
	if seqLen < 0 || classes <= 0 || len(row) != seqLen*classes {
		return Result{}, ocrerr.Backend(fmt.Errorf("decode row of %d values does not match %dx%d", len(row), seqLen, classes))
	}

	var (
		sb        strings.Builder
		scores    []float64
		sum       float64
		lastIndex int
	)
	for n := 0; n < seqLen; n++ {
		idx, p := argmax(row[n*classes : (n+1)*classes])
		if idx > 0 && !(n > 0 && idx == lastIndex) {
			label, err := d.Labels.Lookup(idx)
			if err != nil {
				return Result{}, err
			}
			sb.WriteString(label)
			scores = append(scores, float64(p))
			sum += float64(p)
		}
		lastIndex = idx
	}

	score := math.NaN()
	if len(scores) > 0 {
		score = sum / float64(len(scores))
	}
	return Result{Text: sb.String(), Score: score, CharScores: scores}, nil
}

// DecodeBatch decodes every row of a [batch, seqLen, classes] tensor.
func (d *Decoder) DecodeBatch(out *tensor.Tensor) ([]Result, error) {
	if len(out.Shape) != 3 || out.Shape[0] < 0 || out.Shape[1] < 0 || out.Shape[2] < 0 {
		return nil, ocrerr.Backend(fmt.Errorf("expected [batch, seqLen, classes] output, got %v", out.Shape))
	}
	seqLen, classes := out.Shape[1], out.Shape[2]
	if len(out.Data) != out.Shape.Elements() {
		return nil, ocrerr.Backend(fmt.Errorf("output shape %v does not match %d values", out.Shape, len(out.Data)))
	}

	results := make([]Result, out.Batch())
	for i := range results {
		r, err := d.Decode(out.Item(i), seqLen, classes)
		if err != nil {
			return nil, ocrerr.AtIndex(err, i)
		}
		results[i] = r
	}
	return results, nil
}

// argmax returns the first index of the largest value.
func argmax(v []float32) (int, float32) {
	best, bestVal := 0, v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > bestVal {
			best, bestVal = i, v[i]
		}
	}
	return best, bestVal
}
