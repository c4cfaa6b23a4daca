package preprocess

import (
	"fmt"
	"image/color"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// Strategy selects how an image is fitted into the target shape.
type Strategy int

const (
	// PadRight scales to fit and pads height centered, width on the right.
	PadRight Strategy = iota
	// CropPadRight center-crops overly wide images to the target aspect
	// ratio, scales to the target height and pads on the right.
	CropPadRight
)

func (s Strategy) String() string {
	switch s {
	case PadRight:
		return "pad-right"
	case CropPadRight:
		return "crop-pad-right"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ResizePad returns a new image of exactly targetHeight×targetWidth with
// the same channel count as img. Padding uses pad.
func ResizePad(img *imaging.Image, targetHeight, targetWidth int, s Strategy, pad color.NRGBA) (*imaging.Image, error) {
	if img == nil {
		return nil, ocrerr.InvalidInput(ocrerr.NoIndex, "nil image")
	}
	if img.Empty() {
		return nil, ocrerr.EmptyImage(ocrerr.NoIndex, img.Width, img.Height)
	}
	if targetHeight <= 0 || targetWidth <= 0 {
		return nil, ocrerr.Configuration("target shape %dx%d must be positive", targetWidth, targetHeight)
	}

	switch s {
	case PadRight:
		return padRight(img, targetHeight, targetWidth, pad), nil
	case CropPadRight:
		return cropPadRight(img, targetHeight, targetWidth, pad)
	default:
		return nil, ocrerr.Configuration("unknown resize strategy %v", s)
	}
}

// FitWidth returns ceil(height * w/h) for an image of w×h scaled to height.
func FitWidth(w, h, height int) int {
	return (w*height + h - 1) / h
}

func padRight(img *imaging.Image, tH, tW int, pad color.NRGBA) *imaging.Image {
	w, h := img.Width, img.Height

	// Scale by the smaller of tH/h and tW/w. Comparing the cross products
	// keeps the choice exact.
	var rw, rh int
	if tH*w <= tW*h {
		rh = tH
		rw = min(FitWidth(w, h, tH), tW)
	} else {
		rw = tW
		rh = min(FitWidth(h, w, tW), tH)
	}
	rw = max(rw, 1)
	rh = max(rh, 1)

	resized := imaging.Resize(img, rw, rh)
	if rw == tW && rh == tH {
		return resized
	}

	dh := tH - rh
	top := dh / 2
	return imaging.Pad(resized, top, dh-top, 0, tW-rw, pad)
}

func cropPadRight(img *imaging.Image, tH, tW int, pad color.NRGBA) (*imaging.Image, error) {
	w, h := img.Width, img.Height

	roi := img
	if w*tH > tW*h {
		roiW := max(h*tW/tH, 1)
		x1 := (w - roiW) / 2
		var err error
		roi, err = imaging.Crop(img, x1, 0, x1+roiW, h)
		if err != nil {
			return nil, err
		}
	}

	rw := min(max(roi.Width*tH/h, 1), tW)
	resized := imaging.Resize(roi, rw, tH)
	if rw == tW {
		return resized, nil
	}
	return imaging.Pad(resized, 0, 0, 0, tW-rw, pad), nil
}
