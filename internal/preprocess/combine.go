package preprocess

import (
	"fmt"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// Combine stacks images into one [N, height, width, 3] tensor. Item i
// occupies the i-th batch slice. Every row is first filled with fill, so an
// image narrower than width ends up right-padded.
//
// Each image must be exactly height rows tall and at most width columns
// wide; anything else is a programming error and panics. Combine releases
// its inputs.
func Combine(images []*NormalizedImage, height, width int, fill [3]float32) *tensor.Tensor {
	for i, img := range images {
		if img.Height != height || img.Width > width {
			panic(fmt.Sprintf("preprocess: image %d is %dx%d, batch is %dx%d", i, img.Width, img.Height, width, height))
		}
	}

	out := tensor.Alloc(tensor.Shape{len(images), height, width, 3})
	rowLen := width * 3

	parallel.Line(len(images)*height, func(start, end int) {
		for r := start; r < end; r++ {
			img := images[r/height]
			y := r % height
			dst := out.Data[r*rowLen : (r+1)*rowLen]
			for x := 0; x < width; x++ {
				dst[x*3], dst[x*3+1], dst[x*3+2] = fill[0], fill[1], fill[2]
			}
			copy(dst, img.Data[y*img.Width*3:(y+1)*img.Width*3])
		}
	})

	for _, img := range images {
		img.Release()
	}
	return out
}
