package imaging

import (
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"", Black, false},
		{"#000000", Black, false},
		{"#FF8000", color.NRGBA{R: 255, G: 128, B: 0, A: 255}, false},
		{"7f7f7f", color.NRGBA{R: 127, G: 127, B: 127, A: 255}, false},
		{"#fff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"#zzzzzz", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
		{"1234567", color.NRGBA{}, true},
		{"#ab", color.NRGBA{}, true},
		{"  #0a0b0c ", color.NRGBA{R: 10, G: 11, B: 12, A: 255}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatColor(t *testing.T) {
	if got := FormatColor(color.NRGBA{R: 255, G: 128, B: 0, A: 255}); got != "#ff8000" {
		t.Errorf("FormatColor = %s, want #ff8000", got)
	}
}
