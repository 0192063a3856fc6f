package paged

import (
	"math/bits"
	"unsafe"
)

const (
	// PageShift is the number of index bits addressing an element within a page.
	PageShift = 14
	// PageSize is the number of elements in every page but the last one.
	PageSize = 1 << PageShift
	// PageMask extracts the in-page part of a global index.
	PageMask = PageSize - 1

	// maxArrayLength is the largest size that is stored as a single page.
	// Larger arrays switch to the paged representation. The value mirrors
	// the largest array a managed runtime will reliably hand out and keeps
	// single allocations below a few GiB for every element kind.
	maxArrayLength = 1 << 28
)

// numberOfPages returns how many pages are needed to hold size elements.
//
//go:nosplit
func numberOfPages(size int64) int {
	return int((size + PageMask) >> PageShift)
}

//go:nosplit
func pageIndex(index int64) int {
	return int(index >> PageShift)
}

//go:nosplit
func indexInPage(index int64) int {
	return int(index & PageMask)
}

// exclusiveIndexOfPage returns the length of the last page of an array with
// the given size.
//
//go:nosplit
func exclusiveIndexOfPage(size int64) int {
	return 1 + indexInPage(size-1)
}

//go:nosplit
func indexFromPage(pageIdx, inPage int) int64 {
	return int64(pageIdx)<<PageShift | int64(inPage)
}

// newPage allocates a zeroed page of n elements. Pages of elements narrower
// than a machine word get their capacity rounded up to a multiple of 8 bytes,
// so the allocation is word aligned and packed atomic access on the
// surrounding 32-bit word stays inside memory owned by this page.
func newPage[T any](n int) []T {
	elem := int(unsafe.Sizeof(*new(T)))
	if elem == 0 || elem >= 8 {
		return make([]T, n)
	}
	capBytes := (n*elem + 7) &^ 7
	if capBytes == 0 {
		capBytes = 8
	}
	return make([]T, n, capBytes/elem)
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// nextPowOf2Int64 is nextPowOf2 for 64-bit sizes.
func nextPowOf2Int64(n int64) int64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(n-1))
}

//go:nosplit
func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

//go:nosplit
func ceilDiv(dividend, divisor int64) int64 {
	return (dividend + divisor - 1) / divisor
}

// calcParallelism computes the degree of parallelism for splitting
// items into chunks.
//
// Returns:
//   - chunkSize: Number of items processed per goroutine
//   - chunks: Suggested degree of parallelism (number of goroutines).
func calcParallelism(items, threshold, cpus int) (chunkSize, chunks int) {
	// If the items is too small, use single-threaded processing.
	if items <= threshold || cpus <= 1 {
		return items, 1
	}

	chunks = min(items/threshold, cpus)

	chunkSize = (items + chunks - 1) / chunks

	return chunkSize, chunks
}
