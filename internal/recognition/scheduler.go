package recognition

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/decode"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/tensor"
)

// DefaultBatchSize is min(8, NumCPU).
func DefaultBatchSize() int {
	return min(8, runtime.NumCPU())
}

// RunBatched recognizes any number of images and returns one result per
// image in input order. batchSize 0 uses the recognizer's default.
//
// Images are stable-sorted by aspect ratio and cut into chunks of at most
// batchSize, so each batch pads to a similar width. Chunks run through
// RunMulti, up to the recognizer's concurrency at a time. The context is
// checked before each chunk starts; a chunk already at the backend is not
// interrupted. The first failing chunk aborts the call and its error
// carries the failing image's index in images.
func (r *Recognizer) RunBatched(ctx context.Context, images []*imaging.Image, batchSize int) ([]decode.Result, error) {
	if batchSize < 0 {
		return nil, ocrerr.Configuration("batch size %d must be > 0", batchSize)
	}
	if len(images) == 0 {
		return []decode.Result{}, nil
	}
	if batchSize == 0 {
		batchSize = r.batchSize
	}

	order := make([]int, len(images))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return images[order[a]].AspectRatio() < images[order[b]].AspectRatio()
	})

	results := make([]decode.Result, len(images))
	chunks := (len(order) + batchSize - 1) / batchSize
	r.logger.Debug("scheduling batches",
		"images", len(images),
		"batch_size", batchSize,
		"chunks", chunks,
		"concurrency", r.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for start := 0; start < len(order); start += batchSize {
		chunk := order[start:min(start+batchSize, len(order))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			batch := make([]*imaging.Image, len(chunk))
			for k, idx := range chunk {
				batch[k] = images[idx]
			}

			res, err := r.RunMulti(gctx, batch)
			if err != nil {
				return ocrerr.Reindex(err, func(k int) int { return chunk[k] })
			}
			for k, idx := range chunk {
				results[idx] = res[k]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func errOutputShape(shape tensor.Shape, batch int) error {
	return fmt.Errorf("expected [%d, seqLen, classes] output, got %v", batch, shape)
}
