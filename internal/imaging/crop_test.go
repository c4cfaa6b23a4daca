package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"
)

// createPatternImage builds a 3-channel image whose left half is red and
// right half is blue.
func createPatternImage(width, height int) *Image {
	img := New(width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := img.Pix[(y*width+x)*3:]
			if x < width/2 {
				p[0] = 255
			} else {
				p[2] = 255
			}
		}
	}
	return img
}

func createUniformImage(width, height, channels int, v uint8) *Image {
	img := New(width, height, channels)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestResize(t *testing.T) {
	img := createUniformImage(100, 50, 3, 90)

	out := Resize(img, 40, 20)
	if out.Width != 40 || out.Height != 20 || out.Channels != 3 {
		t.Fatalf("got %dx%dx%d, want 40x20x3", out.Width, out.Height, out.Channels)
	}
	for i, v := range out.Pix {
		if v != 90 {
			t.Fatalf("pixel byte %d = %d, want 90", i, v)
		}
	}
}

func TestResize_SameSizeCopies(t *testing.T) {
	img := createUniformImage(4, 4, 1, 10)
	out := Resize(img, 4, 4)
	out.Pix[0] = 99
	if img.Pix[0] != 10 {
		t.Error("Resize must not alias its input")
	}
}

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, 50, 0, 100, 50)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
	// Right half of the pattern is blue
	if result.Pix[0] != 0 || result.Pix[2] != 255 {
		t.Errorf("expected blue pixel, got %v", result.Pix[:3])
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"outside bounds", 0, 0, 150, 50},
		{"negative origin", -1, 0, 50, 50},
		{"inverted x", 60, 0, 50, 50},
		{"zero height", 0, 10, 50, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPad(t *testing.T) {
	img := createUniformImage(2, 2, 3, 200)

	out := Pad(img, 1, 2, 0, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if out.Width != 5 || out.Height != 5 {
		t.Fatalf("got %dx%d, want 5x5", out.Width, out.Height)
	}

	at := func(x, y int) []uint8 { return out.Pix[(y*out.Width+x)*3 : (y*out.Width+x)*3+3] }

	if p := at(0, 0); p[0] != 10 || p[1] != 20 || p[2] != 30 {
		t.Errorf("top border = %v, want fill", p)
	}
	if p := at(1, 1); p[0] != 200 {
		t.Errorf("content = %v, want 200", p)
	}
	if p := at(4, 2); p[2] != 30 {
		t.Errorf("right border = %v, want fill", p)
	}
	if p := at(0, 4); p[1] != 20 {
		t.Errorf("bottom border = %v, want fill", p)
	}
}

func TestPad_GrayUsesLuminance(t *testing.T) {
	img := createUniformImage(1, 1, 1, 0)
	out := Pad(img, 0, 0, 0, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	if out.Pix[1] != 255 {
		t.Errorf("gray fill = %d, want 255", out.Pix[1])
	}
}

func TestRotate180InPlace(t *testing.T) {
	img := New(3, 2, 1)
	copy(img.Pix, []uint8{1, 2, 3, 4, 5, 6})
	pix := img.Pix

	Rotate180InPlace(img)

	want := []uint8{6, 5, 4, 3, 2, 1}
	for i := range want {
		if img.Pix[i] != want[i] {
			t.Fatalf("rotated = %v, want %v", img.Pix, want)
		}
	}
	if &pix[0] != &img.Pix[0] {
		t.Error("rotation should reuse the existing buffer")
	}
}

func TestEncodePNG(t *testing.T) {
	img := createPatternImage(20, 10)

	result, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 10 {
		t.Errorf("decoded size %v", decoded.Bounds())
	}
}
