// Package backend defines the inference boundary of the OCR pipeline.
//
// A Backend receives one NHWC float32 batch and returns the model output:
// [batch, seqLen, classes] for recognition and [batch, 2] for the rotation
// classifier. What happens inside Infer (graph loading, device placement,
// execution) is the implementation's business.
//
// # Concurrency
//
// Engines are generally not re-entrant on a single handle. Callers that
// share one handle between goroutines wrap it with Serialize. To run
// batches in parallel, build several independent handles and put them in
// a Pool; the Pool's Size is the useful degree of parallelism.
package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// Backend runs one inference call. The returned tensor belongs to the
// caller; the input is not retained after Infer returns.
type Backend interface {
	Infer(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error)
}

// Func adapts a function to the Backend interface.
type Func func(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error)

// Infer calls f.
func (f Func) Infer(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	return f(ctx, input)
}

var errNoOutput = errors.New("backend returned no output")

// Sized is implemented by backends that can serve several calls at once.
type Sized interface {
	Size() int
}

// Concurrency returns how many Infer calls b can usefully run at once.
func Concurrency(b Backend) int {
	if s, ok := b.(Sized); ok && s.Size() > 0 {
		return s.Size()
	}
	return 1
}

// Run calls b.Infer and classifies any failure as a backend failure. The
// original error stays reachable through errors.Is and errors.As.
func Run(ctx context.Context, b Backend, input *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := b.Infer(ctx, input)
	if err != nil {
		return nil, ocrerr.Backend(err)
	}
	if out == nil {
		return nil, ocrerr.Backend(errNoOutput)
	}
	return out, nil
}

type serialized struct {
	mu sync.Mutex
	b  Backend
}

// Serialize returns a Backend that lets only one Infer call through to b
// at a time.
func Serialize(b Backend) Backend {
	if _, ok := b.(*serialized); ok {
		return b
	}
	return &serialized{b: b}
}

func (s *serialized) Infer(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Infer(ctx, input)
}

// Pool hands each Infer call an idle handle, waiting when all are busy.
type Pool struct {
	handles chan Backend
	all     []Backend
}

// NewPool builds a pool over independent handles. Each handle serves one
// call at a time.
func NewPool(handles ...Backend) (*Pool, error) {
	if len(handles) == 0 {
		return nil, ocrerr.Configuration("backend pool needs at least one handle")
	}
	p := &Pool{handles: make(chan Backend, len(handles)), all: handles}
	for _, h := range handles {
		p.handles <- h
	}
	return p, nil
}

// Size returns the number of handles.
func (p *Pool) Size() int {
	return len(p.all)
}

// Infer runs input on the next idle handle. It returns ctx.Err() if the
// context ends while waiting.
func (p *Pool) Infer(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	var h Backend
	select {
	case h = <-p.handles:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { p.handles <- h }()
	return h.Infer(ctx, input)
}

// Close closes every handle that implements Close.
func (p *Pool) Close() error {
	var first error
	for _, h := range p.all {
		if c, ok := h.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
