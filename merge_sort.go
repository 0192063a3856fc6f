package paged

import (
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sortRunLength is the length of the runs sorted in place before merging.
// Runs are page aligned, so every run lies within one page.
const sortRunLength = PageSize

// SortLongArray sorts array in non-decreasing order using up to
// concurrency goroutines. The sort is not stable.
//
// Page-sized runs are sorted in place first, then merged pairwise into a
// temporary array of the same size, doubling the run length every pass.
func SortLongArray(ctx context.Context, array LongArray, concurrency int) error {
	started := time.Now()
	size := array.Size()
	ctx, span := tracer.Start(ctx, "paged.SortLongArray",
		trace.WithAttributes(
			attribute.Int64("size", size),
			attribute.Int("concurrency", concurrency),
		),
	)
	defer span.End()

	if err := sortLongArray(ctx, array, size, concurrency); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "sort long array")
	}

	recordBuild(ctx, structMergeSort, started)
	if debugEnabled() {
		Logger().WithFields(log.Fields{
			"structure": structMergeSort,
			"size":      size,
			"took":      time.Since(started),
		}).Debug("array sorted")
	}
	return nil
}

func sortLongArray(ctx context.Context, array LongArray, size int64, concurrency int) error {
	if size <= 1 {
		return nil
	}

	runs := int(ceilDiv(size, sortRunLength))
	err := forEachChunk(ctx, runs, 1, concurrency, func(start, end int) error {
		c := array.NewCursor()
		defer c.Close()
		for r := start; r < end; r++ {
			lo := int64(r) * sortRunLength
			c.SetRange(lo, min(lo+sortRunLength, size))
			for c.Next() {
				slices.Sort(c.Array()[c.Offset():c.Limit()])
			}
		}
		return nil
	})
	if err != nil || runs == 1 {
		return err
	}

	temp := NewLongArray(size)
	defer temp.Release()

	src, dst := array, temp
	inTemp := false
	for width := int64(sortRunLength); width < size; width <<= 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		pairs := int(ceilDiv(size, 2*width))
		err := forEachChunk(ctx, pairs, 1, concurrency, func(start, end int) error {
			for p := start; p < end; p++ {
				lo := int64(p) * 2 * width
				mergeRuns(src, dst, lo, min(lo+width, size), min(lo+2*width, size))
			}
			return nil
		})
		if err != nil {
			return err
		}
		src, dst = dst, src
		inTemp = !inTemp
	}
	if inTemp {
		temp.CopyTo(array, size)
	}
	return nil
}

// mergeRuns merges the sorted runs src[lo:mid] and src[mid:hi] into
// dst[lo:hi].
func mergeRuns(src, dst LongArray, lo, mid, hi int64) {
	i, j := lo, mid
	for k := lo; k < hi; k++ {
		if j >= hi || (i < mid && src.Get(i) <= src.Get(j)) {
			dst.Set(k, src.Get(i))
			i++
		} else {
			dst.Set(k, src.Get(j))
			j++
		}
	}
}
