package paged

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachChunk splits [0, items) into contiguous chunks and runs fn on each.
// At most concurrency chunks run at once, and no chunk is smaller than
// threshold unless items itself is. The first error cancels the remaining
// chunks and is returned.
func forEachChunk(
	ctx context.Context,
	items, threshold, concurrency int,
	fn func(start, end int) error,
) error {
	if items <= 0 {
		return nil
	}
	chunkSize, chunks := calcParallelism(items, max(threshold, 1), concurrency)
	if chunks <= 1 {
		return fn(0, items)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(chunks)
	for start := 0; start < items; start += chunkSize {
		end := min(start+chunkSize, items)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}
	return g.Wait()
}
