package tensor

import (
	"fmt"
	"strings"
)

// Layout names the dimension order of a 4-D image tensor.
type Layout string

const (
	NHWC Layout = "NHWC"
	NCHW Layout = "NCHW"
)

// ParseLayout accepts "NHWC" or "NCHW" in any case. Empty means NHWC.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToUpper(strings.TrimSpace(s))) {
	case "", NHWC:
		return NHWC, nil
	case NCHW:
		return NCHW, nil
	default:
		return "", fmt.Errorf("unknown tensor layout %q", s)
	}
}

// ToNCHW transposes a 4-D NHWC tensor into a new pooled NCHW tensor.
func ToNCHW(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 4 {
		return nil, fmt.Errorf("expected 4-D NHWC tensor, got shape %v", t.Shape)
	}
	n, h, w, c := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	out := Alloc(Shape{n, c, h, w})
	plane := h * w
	for b := 0; b < n; b++ {
		src := t.Data[b*plane*c : (b+1)*plane*c]
		dst := out.Data[b*plane*c : (b+1)*plane*c]
		for p := 0; p < plane; p++ {
			for ch := 0; ch < c; ch++ {
				dst[ch*plane+p] = src[p*c+ch]
			}
		}
	}
	return out, nil
}
