package recognition

import (
	"fmt"
	"strings"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// WidthAlign is the granularity of batch widths.
const WidthAlign = 32

// DefaultWidth is the nominal input width of the published model families.
const DefaultWidth = 320

// Version identifies a recognition model family.
type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
	V4 Version = "v4"
)

// ParseVersion accepts "v2", "V3", "4" and similar spellings.
func ParseVersion(s string) (Version, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s != "" && s[0] != 'v' {
		s = "v" + s
	}
	switch v := Version(s); v {
	case V2, V3, V4:
		return v, nil
	default:
		return "", ocrerr.Configuration("unknown model version %q", s)
	}
}

// ModelShape describes the recognizer input. Height and Channels are
// fixed by the model. StaticWidth is 0 for models that accept any width,
// in which case each batch is sized to its widest image.
type ModelShape struct {
	Height      int `json:"height"`
	Channels    int `json:"channels"`
	StaticWidth int `json:"static_width,omitempty"`
}

// ShapeForVersion returns the input shape of a model family with a
// dynamic width.
func ShapeForVersion(v Version) (ModelShape, error) {
	switch v {
	case V2:
		return ModelShape{Height: 32, Channels: 3}, nil
	case V3, V4:
		return ModelShape{Height: 48, Channels: 3}, nil
	default:
		return ModelShape{}, ocrerr.Configuration("unknown model version %q", v)
	}
}

// Dynamic reports whether the batch width is computed per batch.
func (m ModelShape) Dynamic() bool {
	return m.StaticWidth == 0
}

// WithStaticWidth fixes the width, rounded up to a multiple of 32.
func (m ModelShape) WithStaticWidth(width int) (ModelShape, error) {
	if width <= 0 {
		return m, ocrerr.Configuration("static width %d must be positive", width)
	}
	m.StaticWidth = RoundUp(width)
	return m, nil
}

// Validate checks that the shape can drive preprocessing.
func (m ModelShape) Validate() error {
	if m.Height <= 0 {
		return ocrerr.Configuration("model height %d must be positive", m.Height)
	}
	if m.Channels != 3 {
		return ocrerr.Configuration("model channels %d unsupported, want 3", m.Channels)
	}
	if m.StaticWidth < 0 || m.StaticWidth%WidthAlign != 0 {
		return ocrerr.Configuration("static width %d must be a positive multiple of %d", m.StaticWidth, WidthAlign)
	}
	return nil
}

func (m ModelShape) String() string {
	if m.Dynamic() {
		return fmt.Sprintf("%dx?x%d", m.Height, m.Channels)
	}
	return fmt.Sprintf("%dx%dx%d", m.Height, m.StaticWidth, m.Channels)
}

// RoundUp rounds n up to the next multiple of WidthAlign.
func RoundUp(n int) int {
	return (n + WidthAlign - 1) / WidthAlign * WidthAlign
}
