package preprocess

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// Params holds the per-channel normalization constants.
type Params struct {
	Scale [3]float32 `json:"scale" yaml:"scale"`
	Bias  [3]float32 `json:"bias" yaml:"bias"`
}

// DefaultParams maps [0,255] to [-1,1].
func DefaultParams() Params {
	return Params{
		Scale: [3]float32{2, 2, 2},
		Bias:  [3]float32{1, 1, 1},
	}
}

// PadValue returns the normalized value of a black pixel.
func (p Params) PadValue() [3]float32 {
	return [3]float32{-p.Bias[0], -p.Bias[1], -p.Bias[2]}
}

// NormalizedImage is a Height×Width×3 float32 buffer.
type NormalizedImage struct {
	Width  int
	Height int
	Data   []float32
}

// Release returns the buffer to the tensor pool. It is safe to call more
// than once.
func (n *NormalizedImage) Release() {
	if n == nil || n.Data == nil {
		return
	}
	tensor.Put(n.Data)
	n.Data = nil
}

// Normalize converts img to three float channels. Gray input is
// replicated and alpha is dropped; img itself is never modified.
func Normalize(img *imaging.Image, p Params) (*NormalizedImage, error) {
	if img == nil {
		return nil, ocrerr.InvalidInput(ocrerr.NoIndex, "nil image")
	}
	if img.Empty() {
		return nil, ocrerr.EmptyImage(ocrerr.NoIndex, img.Width, img.Height)
	}
	ch := img.Channels
	switch ch {
	case 1, 3, 4:
	default:
		return nil, ocrerr.UnsupportedFormat(ocrerr.NoIndex, ch, 1, 3, 4)
	}

	w, h := img.Width, img.Height
	out := &NormalizedImage{Width: w, Height: h, Data: tensor.Get(w * h * 3)}

	// Source channel for each output channel.
	src := [3]int{0, 1, 2}
	if ch == 1 {
		src = [3]int{0, 0, 0}
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			srow := img.Pix[y*w*ch : (y+1)*w*ch]
			drow := out.Data[y*w*3 : (y+1)*w*3]
			for x := 0; x < w; x++ {
				px := srow[x*ch : x*ch+ch]
				for c := 0; c < 3; c++ {
					drow[x*3+c] = float32(px[src[c]])/255*p.Scale[c] - p.Bias[c]
				}
			}
		}
	})

	return out, nil
}
