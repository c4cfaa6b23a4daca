package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// Resize scales m to exactly width×height with bilinear filtering. The
// channel count is preserved.
func Resize(m *Image, width, height int) *Image {
	if width == m.Width && height == m.Height {
		return m.Clone()
	}
	resized := imaging.Resize(ToNRGBA(m), width, height, imaging.Linear)
	return FromNRGBA(resized, m.Channels)
}

// Crop extracts the region (x1,y1)-(x2,y2). The top-left corner is
// inclusive and the bottom-right exclusive.
func Crop(m *Image, x1, y1, x2, y2 int) (*Image, error) {
	// Validate coordinates
	if x1 < 0 || y1 < 0 || x2 > m.Width || y2 > m.Height {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			x1, y1, x2, y2, m.Width, m.Height)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	if x1 == 0 && y1 == 0 && x2 == m.Width && y2 == m.Height {
		return m.Clone(), nil
	}

	cropped := imaging.Crop(ToNRGBA(m), image.Rect(x1, y1, x2, y2))
	return FromNRGBA(cropped, m.Channels), nil
}

// Pad places m on a canvas grown by the given borders, filled with fill.
// Gray images use the luminance of fill.
func Pad(m *Image, top, bottom, left, right int, fill color.NRGBA) *Image {
	if top == 0 && bottom == 0 && left == 0 && right == 0 {
		return m.Clone()
	}
	if m.Channels == 1 {
		g := color.GrayModel.Convert(fill).(color.Gray).Y
		fill = color.NRGBA{R: g, G: g, B: g, A: 0xff}
	}
	if m.Channels != 4 {
		fill.A = 0xff
	}

	canvas := imaging.New(m.Width+left+right, m.Height+top+bottom, fill)
	canvas = imaging.Paste(canvas, ToNRGBA(m), image.Pt(left, top))
	return FromNRGBA(canvas, m.Channels)
}

// Rotate180InPlace turns m upside down, overwriting its pixels.
func Rotate180InPlace(m *Image) {
	if m.Empty() {
		return
	}
	rotated := FromNRGBA(imaging.Rotate180(ToNRGBA(m)), m.Channels)
	copy(m.Pix, rotated.Pix)
}

// EncodedImage is a PNG rendering of an image for transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG renders m as a base64 PNG.
func EncodePNG(m *Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, ToNRGBA(m)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       m.Width,
		Height:      m.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
