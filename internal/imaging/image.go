package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// Image is an owned raster of interleaved 8-bit pixels with 1 (gray),
// 3 (RGB) or 4 (RGBA) channels. Row stride is Width*Channels.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed image.
func New(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Empty reports whether the image has no pixels.
func (m *Image) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0
}

// Stride returns the number of bytes per row.
func (m *Image) Stride() int {
	return m.Width * m.Channels
}

// AspectRatio returns width/height, or 0 for an empty image.
func (m *Image) AspectRatio() float64 {
	if m.Empty() {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := *m
	out.Pix = append([]uint8(nil), m.Pix...)
	return &out
}

// FromImage copies a decoded image into an owned Image. Gray sources keep a
// single channel, RGBA sources that are not fully opaque keep four,
// everything else becomes RGB.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	switch s := src.(type) {
	case *image.Gray:
		out := New(b.Dx(), b.Dy(), 1)
		for y := 0; y < out.Height; y++ {
			off := s.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Width:(y+1)*out.Width], s.Pix[off:off+out.Width])
		}
		return out
	case *image.Gray16:
		out := New(b.Dx(), b.Dy(), 1)
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				g := color.GrayModel.Convert(s.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out.Pix[y*out.Width+x] = g.Y
			}
		}
		return out
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
			return FromNRGBA(imaging.Clone(src), 3)
		}
		return FromNRGBA(imaging.Clone(src), 4)
	default:
		return FromNRGBA(imaging.Clone(src), 3)
	}
}

// FromNRGBA copies an NRGBA raster into an Image with the requested channel
// count. A single channel takes the red component, which is exact for
// images that were expanded from gray.
func FromNRGBA(src *image.NRGBA, channels int) *Image {
	b := src.Bounds()
	out := New(b.Dx(), b.Dy(), channels)
	for y := 0; y < out.Height; y++ {
		srow := src.Pix[y*src.Stride : y*src.Stride+out.Width*4]
		drow := out.Pix[y*out.Stride() : (y+1)*out.Stride()]
		switch channels {
		case 4:
			copy(drow, srow)
		case 3:
			for x := 0; x < out.Width; x++ {
				copy(drow[x*3:x*3+3], srow[x*4:x*4+3])
			}
		case 1:
			for x := 0; x < out.Width; x++ {
				drow[x] = srow[x*4]
			}
		}
	}
	return out
}

// ToNRGBA expands the image into a standard library raster for use with
// image processing routines. Gray is replicated and missing alpha is opaque.
func ToNRGBA(m *Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	stride := m.Stride()
	for y := 0; y < m.Height; y++ {
		srow := m.Pix[y*stride : (y+1)*stride]
		drow := out.Pix[y*out.Stride : y*out.Stride+m.Width*4]
		for x := 0; x < m.Width; x++ {
			d := drow[x*4 : x*4+4]
			switch m.Channels {
			case 1:
				v := srow[x]
				d[0], d[1], d[2], d[3] = v, v, v, 0xff
			case 3:
				d[0], d[1], d[2], d[3] = srow[x*3], srow[x*3+1], srow[x*3+2], 0xff
			case 4:
				copy(d, srow[x*4:x*4+4])
			}
		}
	}
	return out
}

// ToRGB returns a 3-channel view of m. A 3-channel image is returned as is
// and must be treated as read-only; 4 channels drop alpha and 1 channel is
// replicated. Any other channel count fails with an unsupported format
// error carrying index.
func ToRGB(m *Image, index int) (*Image, error) {
	switch m.Channels {
	case 3:
		return m, nil
	case 4:
		out := New(m.Width, m.Height, 3)
		n := m.Width * m.Height
		for i := 0; i < n; i++ {
			copy(out.Pix[i*3:i*3+3], m.Pix[i*4:i*4+3])
		}
		return out, nil
	case 1:
		out := New(m.Width, m.Height, 3)
		for i, v := range m.Pix[:m.Width*m.Height] {
			out.Pix[i*3], out.Pix[i*3+1], out.Pix[i*3+2] = v, v, v
		}
		return out, nil
	default:
		return nil, ocrerr.UnsupportedFormat(index, m.Channels, 1, 3, 4)
	}
}
