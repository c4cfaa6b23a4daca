// Package ocrerr defines the error taxonomy shared by the OCR pipeline.
//
// Every failure the pipeline raises on its own is an *Error carrying a Kind,
// the index of the offending image (or -1 when the failure is not tied to
// one image), a human-readable message and an optional cause. Callers test
// for a kind with errors.Is against the exported sentinels:
//
//	if errors.Is(err, ocrerr.ErrInvalidInput) { ... }
//
// UnsupportedFormat is a refinement of InvalidInput, so an unsupported
// channel count matches both ErrUnsupportedFormat and ErrInvalidInput.
package ocrerr

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	// KindInvalidInput marks caller errors such as empty images.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindUnsupportedFormat marks images with a channel count the stage cannot handle.
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	// KindLabelIndexOutOfRange marks a class index the label table cannot map.
	KindLabelIndexOutOfRange Kind = "LABEL_INDEX_OUT_OF_RANGE"
	// KindConfiguration marks invalid construction or call parameters.
	KindConfiguration Kind = "CONFIGURATION_ERROR"
	// KindBackend marks failures raised by the inference engine.
	KindBackend Kind = "BACKEND_FAILURE"
)

// NoIndex is the Index of errors that are not tied to a single image.
const NoIndex = -1

// Sentinels for errors.Is.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput, Index: NoIndex}
	ErrUnsupportedFormat    = &Error{Kind: KindUnsupportedFormat, Index: NoIndex}
	ErrLabelIndexOutOfRange = &Error{Kind: KindLabelIndexOutOfRange, Index: NoIndex}
	ErrConfiguration        = &Error{Kind: KindConfiguration, Index: NoIndex}
	ErrBackend              = &Error{Kind: KindBackend, Index: NoIndex}
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Index   int
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Index >= 0 {
		msg = fmt.Sprintf("image[%d]: %s", e.Index, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so that sentinels compare equal to any error of the
// same kind, whatever its index or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindInvalidInput && e.Kind == KindUnsupportedFormat
}

// Fields flattens the error for transports such as JSON-RPC error data.
func (e *Error) Fields() map[string]interface{} {
	out := map[string]interface{}{
		"kind":    string(e.Kind),
		"message": e.Message,
	}
	if e.Index >= 0 {
		out["index"] = e.Index
	}
	for k, v := range e.Details {
		out[k] = v
	}
	if e.Cause != nil {
		out["cause"] = e.Cause.Error()
	}
	return out
}

// InvalidInput reports a caller error for the image at index.
func InvalidInput(index int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Index:   index,
		Message: fmt.Sprintf(format, args...),
	}
}

// EmptyImage reports a zero-sized image at index.
func EmptyImage(index, width, height int) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Index:   index,
		Message: fmt.Sprintf("image size %dx%d should not be 0, wrong input picture provided?", width, height),
		Details: map[string]interface{}{
			"width":  width,
			"height": height,
		},
	}
}

// UnsupportedFormat reports an image whose channel count is not in allowed.
func UnsupportedFormat(index, channels int, allowed ...int) *Error {
	return &Error{
		Kind:    KindUnsupportedFormat,
		Index:   index,
		Message: fmt.Sprintf("unexpected channel count %d, allow: %v", channels, allowed),
		Details: map[string]interface{}{
			"channels": channels,
		},
	}
}

// LabelIndexOutOfRange reports a class index outside the label table.
func LabelIndexOutOfRange(classIndex, labelCount int) *Error {
	return &Error{
		Kind:    KindLabelIndexOutOfRange,
		Index:   NoIndex,
		Message: fmt.Sprintf("class index %d out of range for %d labels, OCR model or labels not matched?", classIndex, labelCount),
		Details: map[string]interface{}{
			"class_index": classIndex,
			"label_count": labelCount,
		},
	}
}

// Configuration reports an invalid parameter.
func Configuration(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Index:   NoIndex,
		Message: fmt.Sprintf(format, args...),
	}
}

// Backend wraps a failure from the inference engine. The cause stays
// reachable through errors.Is and errors.As. A nil cause returns nil.
func Backend(cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) && e.Kind == KindBackend {
		return cause
	}
	return &Error{
		Kind:    KindBackend,
		Index:   NoIndex,
		Message: "inference failed",
		Cause:   cause,
	}
}

// Reindex rewrites the image index of a classified error through mapIndex.
// It is used when a batch-local index must be reported against the
// caller's original ordering. Errors without an index pass through.
func Reindex(err error, mapIndex func(int) int) error {
	var e *Error
	if !errors.As(err, &e) || e.Index < 0 {
		return err
	}
	cp := *e
	cp.Index = mapIndex(e.Index)
	return &cp
}

// AtIndex attaches index to an error raised without one. Unclassified
// errors are wrapped with the index in their message.
func AtIndex(err error, index int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Errorf("image[%d]: %w", index, err)
	}
	if e.Index >= 0 {
		return err
	}
	cp := *e
	cp.Index = index
	return &cp
}

// IndexOf returns the image index attached to err, or NoIndex.
func IndexOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Index
	}
	return NoIndex
}
