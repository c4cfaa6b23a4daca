package recognition

import (
	"errors"
	"testing"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

func TestWithStaticWidth(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{100, 128},
		{96, 96},
		{1, 32},
		{320, 320},
		{321, 352},
	}

	for _, tt := range tests {
		shape, err := ModelShape{Height: 48, Channels: 3}.WithStaticWidth(tt.in)
		if err != nil {
			t.Fatalf("WithStaticWidth(%d) failed: %v", tt.in, err)
		}
		if shape.StaticWidth != tt.want {
			t.Errorf("WithStaticWidth(%d) = %d, want %d", tt.in, shape.StaticWidth, tt.want)
		}
		if shape.Dynamic() {
			t.Error("static shape reported dynamic")
		}
	}

	for _, bad := range []int{0, -32} {
		if _, err := (ModelShape{Height: 48}).WithStaticWidth(bad); !errors.Is(err, ocrerr.ErrConfiguration) {
			t.Errorf("WithStaticWidth(%d) err = %v", bad, err)
		}
	}
}

func TestShapeForVersion(t *testing.T) {
	tests := []struct {
		v      Version
		height int
	}{
		{V2, 32},
		{V3, 48},
		{V4, 48},
	}
	for _, tt := range tests {
		shape, err := ShapeForVersion(tt.v)
		if err != nil {
			t.Fatal(err)
		}
		if shape.Height != tt.height || shape.Channels != 3 || !shape.Dynamic() {
			t.Errorf("%s: shape = %+v", tt.v, shape)
		}
	}

	if _, err := ShapeForVersion("v9"); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"v2", V2, false},
		{"V3", V3, false},
		{"4", V4, false},
		{"", "", true},
		{"v5", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVersion(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestModelShape_Validate(t *testing.T) {
	if err := (ModelShape{Height: 48, Channels: 3, StaticWidth: 100}).Validate(); err == nil {
		t.Error("unaligned static width should fail validation")
	}
	if err := (ModelShape{Height: 48, Channels: 3, StaticWidth: 320}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if s := (ModelShape{Height: 48, Channels: 3}).String(); s != "48x?x3" {
		t.Errorf("String = %s", s)
	}
}

func TestDefaultBatchSize(t *testing.T) {
	if n := DefaultBatchSize(); n < 1 || n > 8 {
		t.Errorf("DefaultBatchSize = %d, want 1..8", n)
	}
}
