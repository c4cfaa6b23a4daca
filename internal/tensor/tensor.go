// Package tensor holds the float32 buffers that travel between the
// preprocessing stages and the inference boundary.
//
// A Tensor is a flat []float32 plus a Shape. Image batches are laid out NHWC
// (batch, height, width, channel); recognition output is
// (batch, sequenceLength, classCount) and classifier output is (batch, classes).
//
// # Ownership
//
// Buffers allocated with Alloc come from a process-wide pool and must be
// handed back with Release once the consumer is done with them. Release is
// idempotent and safe on a nil Tensor. Tensors built with New or Wrap are
// ordinary Go slices; releasing them recycles the slice into the pool, which
// is harmless as long as nobody else still holds it.
package tensor

import (
	"fmt"
	"strings"
)

// Shape lists tensor dimensions, outermost first.
type Shape []int

// Elements returns the number of values the shape describes.
func (s Shape) Elements() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Valid reports whether every dimension is positive.
func (s Shape) Valid() bool {
	if len(s) == 0 {
		return false
	}
	for _, d := range s {
		if d <= 0 {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Int64 converts the shape for engines that take int64 dimensions.
func (s Shape) Int64() []int64 {
	out := make([]int64, len(s))
	for i, d := range s {
		out[i] = int64(d)
	}
	return out
}

// Tensor is a dense float32 array.
type Tensor struct {
	Shape Shape
	Data  []float32
}

// New returns a zeroed tensor of the given shape.
func New(shape Shape) *Tensor {
	return &Tensor{Shape: append(Shape(nil), shape...), Data: make([]float32, shape.Elements())}
}

// Alloc returns a pooled tensor. The contents are unspecified; the caller
// must overwrite every element.
func Alloc(shape Shape) *Tensor {
	return &Tensor{Shape: append(Shape(nil), shape...), Data: Get(shape.Elements())}
}

// Wrap builds a tensor around existing data, checking that the sizes agree.
func Wrap(shape Shape, data []float32) (*Tensor, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("invalid tensor shape %v", shape)
	}
	if shape.Elements() != len(data) {
		return nil, fmt.Errorf("tensor shape %v needs %d values, got %d", shape, shape.Elements(), len(data))
	}
	return &Tensor{Shape: append(Shape(nil), shape...), Data: data}, nil
}

// Batch returns the size of the leading dimension.
func (t *Tensor) Batch() int {
	if t == nil || len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// Item returns the contiguous slice occupied by batch item i.
func (t *Tensor) Item(i int) []float32 {
	stride := len(t.Data) / t.Shape[0]
	return t.Data[i*stride : (i+1)*stride]
}

// Release returns the buffer to the pool. The tensor must not be used
// afterwards.
func (t *Tensor) Release() {
	if t == nil || t.Data == nil {
		return
	}
	Put(t.Data)
	t.Data = nil
}
