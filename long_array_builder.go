package paged

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// LongArrayBuilder assembles a LongArray from ranges written concurrently
// by several goroutines, when the final size is not known up front.
//
// Every writer reserves its own range with Allocate and fills it through
// the returned allocator. The page table grows under a short lock and is
// published as an immutable snapshot, so writers never block each other
// on pages that already exist.
type LongArrayBuilder struct {
	pages atomic.Pointer[[][]int64]
	mu    sync.Mutex
}

// NewLongArrayBuilder returns an empty builder.
func NewLongArrayBuilder() *LongArrayBuilder {
	b := &LongArrayBuilder{}
	b.pages.Store(&[][]int64{})
	return b
}

// Allocate prepares allocator to write the range [start, start+length).
func (b *LongArrayBuilder) Allocate(start int64, length int, allocator *LongArrayAllocator) {
	end := start + int64(length)
	pages := *b.pages.Load()
	if length > 0 && pageIndex(end-1) >= len(pages) {
		pages = b.grow(pageIndex(end-1) + 1)
	}
	allocator.reset(pages, start, end)
}

func (b *LongArrayBuilder) grow(pageCount int) [][]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := *b.pages.Load()
	if pageCount <= len(current) {
		return current
	}
	next := make([][]int64, pageCount)
	copy(next, current)
	for i := len(current); i < pageCount; i++ {
		next[i] = make([]int64, PageSize)
	}
	b.pages.Store(&next)

	added := int64(pageCount - len(current))
	trackAllocation(added * SizeOfLongArray(PageSize))
	growthTotal.WithLabelValues(structLongArrayBuilder).Inc()
	if debugEnabled() {
		Logger().WithFields(log.Fields{
			"structure": structLongArrayBuilder,
			"pages":     pageCount,
			"added":     HumanReadable(added * SizeOfLongArray(PageSize)),
		}).Debug("builder grown")
	}
	return next
}

// Build returns an array of the first size values. The builder must not
// be used afterwards.
func (b *LongArrayBuilder) Build(size int64) LongArray {
	pages := *b.pages.Load()
	numPages := numberOfPages(size)
	if numPages > len(pages) {
		b.grow(numPages)
		pages = *b.pages.Load()
	}
	// grow tracked every full page; the array accounts for what it keeps
	tracked := int64(len(pages)) * SizeOfLongArray(PageSize)
	pages = pages[:numPages]
	if numPages > 0 {
		pages[numPages-1] = pages[numPages-1][:exclusiveIndexOfPage(size)]
	}
	a := newPagedArrayOf(pages, size)
	trackAllocation(a.SizeOf() - tracked)
	return wrapInteger[int64](a)
}

// LongArrayAllocator writes one range reserved by LongArrayBuilder.Allocate.
// It may be reused for several ranges, but only by one goroutine at a time.
type LongArrayAllocator struct {
	pages  [][]int64
	offset int64
	end    int64
}

// Insert writes values at the next positions of the range and returns how
// many were written; values beyond the range are dropped.
func (a *LongArrayAllocator) Insert(values []int64) int {
	written := 0
	for written < len(values) && a.offset < a.end {
		page := a.pages[pageIndex(a.offset)]
		inPage := indexInPage(a.offset)
		n := min(len(values)-written, len(page)-inPage, int(a.end-a.offset))
		copy(page[inPage:inPage+n], values[written:written+n])
		written += n
		a.offset += int64(n)
	}
	return written
}

// Remaining returns the number of positions left in the range.
func (a *LongArrayAllocator) Remaining() int64 {
	return a.end - a.offset
}

func (a *LongArrayAllocator) reset(pages [][]int64, start, end int64) {
	a.pages = pages
	a.offset = start
	a.end = end
}
