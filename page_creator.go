package paged

import (
	"context"
)

// PageCreator allocates the pages of an array and fills them with values
// computed from the global index of each slot.
//
// Pages are filled in parallel with up to the configured concurrency.
// A nil generator leaves pages zero-filled.
type PageCreator[T any] struct {
	concurrency int
	gen         func(index int64) T
}

// PassThrough returns a creator that only allocates, leaving every
// element at its zero value.
func PassThrough[T any](concurrency int) *PageCreator[T] {
	return &PageCreator[T]{concurrency: max(concurrency, 1)}
}

// Identity returns a creator that sets every element to its own index.
func Identity[T Integer](concurrency int) *PageCreator[T] {
	return FromGenerator(concurrency, func(index int64) T {
		return T(index)
	})
}

// FromGenerator returns a creator that sets element i to gen(i).
// gen may be called concurrently from several goroutines.
func FromGenerator[T any](concurrency int, gen func(index int64) T) *PageCreator[T] {
	return &PageCreator[T]{concurrency: max(concurrency, 1), gen: gen}
}

// Concurrency returns the maximum number of goroutines used by Fill.
func (c *PageCreator[T]) Concurrency() int {
	return c.concurrency
}

// Fill allocates every page in pages. All pages hold PageSize elements
// except the last one, which holds lastPageSize.
func (c *PageCreator[T]) Fill(pages [][]T, lastPageSize int) {
	last := len(pages) - 1
	if last < 0 {
		return
	}
	// the callback never fails and the context is never cancelled
	_ = forEachChunk(context.Background(), last, 1, c.concurrency, func(start, end int) error {
		for i := start; i < end; i++ {
			c.createPage(pages, i, PageSize)
		}
		return nil
	})
	c.createPage(pages, last, lastPageSize)
}

// FillPage sets page[i] to the generated value for the global index base+i.
func (c *PageCreator[T]) FillPage(page []T, base int64) {
	if c.gen == nil {
		return
	}
	for i := range page {
		page[i] = c.gen(base + int64(i))
	}
}

func (c *PageCreator[T]) createPage(pages [][]T, pageIdx, size int) {
	page := newPage[T](size)
	c.FillPage(page, indexFromPage(pageIdx, 0))
	pages[pageIdx] = page
}

// creatorOf returns the first non-nil creator, or a sequential pass-through.
func creatorOf[T any](creators []*PageCreator[T]) *PageCreator[T] {
	for _, c := range creators {
		if c != nil {
			return c
		}
	}
	return PassThrough[T](1)
}
