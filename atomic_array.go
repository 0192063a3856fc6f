package paged

import (
	"math"
)

// atomicPages is the storage shared by the atomic arrays.
//
// Single-page arrays keep one page and a shift that maps every index to
// page 0, so both layouts go through the same slot arithmetic.
type atomicPages[T any] struct {
	pages      [][]T
	size       int64
	shift      uint
	mask       int64
	memoryUsed int64
}

func newAtomicPages[T any](size int64, creator *PageCreator[T], paged bool) atomicPages[T] {
	if size < 0 {
		panic(invalidCapacity(size))
	}
	var p atomicPages[T]
	if paged {
		pages := make([][]T, numberOfPages(size))
		if len(pages) > 0 {
			creator.Fill(pages, exclusiveIndexOfPage(size))
		}
		p = atomicPages[T]{
			pages:      pages,
			size:       size,
			shift:      PageShift,
			mask:       PageMask,
			memoryUsed: pagedMemoryOfData[T](size),
		}
	} else {
		page := newPage[T](int(size))
		creator.FillPage(page, 0)
		p = atomicPages[T]{
			pages:      [][]T{page},
			size:       size,
			shift:      63,
			mask:       math.MaxInt64,
			memoryUsed: sizeOfElements[T](size),
		}
	}
	trackAllocation(p.memoryUsed)
	return p
}

// atomicMemoryEstimation mirrors the allocation of newAtomicPages for an
// array type A whose only field is atomicPages[T].
func atomicMemoryEstimation[A, T any](size int64) int64 {
	if size <= maxArrayLength {
		return SizeOfInstance[A]() + SizeOfObjectArray(1) + sizeOfElements[T](size)
	}
	return SizeOfInstance[A]() + pagedMemoryOfData[T](size)
}

//go:nosplit
func (p *atomicPages[T]) slot(index int64) *T {
	return &p.pages[index>>p.shift][index&p.mask]
}

func (p *atomicPages[T]) isPaged() bool {
	return p.shift == PageShift
}

// Size returns the number of elements.
func (p *atomicPages[T]) Size() int64 {
	return p.size
}

// SizeOf returns the bytes used by the backing storage, 0 once released.
func (p *atomicPages[T]) SizeOf() int64 {
	if p.pages == nil {
		return 0
	}
	return p.memoryUsed
}

// Release drops the backing storage and returns the bytes freed.
// Calling Release again returns 0.
func (p *atomicPages[T]) Release() int64 {
	if p.pages == nil {
		return 0
	}
	p.pages = nil
	trackRelease(p.memoryUsed)
	return p.memoryUsed
}

// NewCursor returns a cursor over all elements. The cursor reads plain
// memory, so writers must be quiesced while it is in use.
func (p *atomicPages[T]) NewCursor() Cursor[T] {
	if p.isPaged() {
		c := &pagedCursor[T]{}
		c.init(p, p.size)
		return c
	}
	c := &singlePageCursor[T]{}
	c.init(p, p.size)
	return c
}

func (p *atomicPages[T]) pageAt(i int) []T {
	if p.pages == nil {
		return nil
	}
	return p.pages[i]
}

func (p *atomicPages[T]) fill(value T) {
	p.mustBeLive()
	for _, page := range p.pages {
		for i := range page {
			page[i] = value
		}
	}
}

func (p *atomicPages[T]) copyTo(dest *atomicPages[T], length int64) {
	p.mustBeLive()
	dest.mustBeLive()
	copyPages(p.pages, dest.pages, copyLength(length, p.size, dest.size))
}

func (p *atomicPages[T]) check(index int64) error {
	if p.pages == nil {
		return errReleased()
	}
	if index < 0 || index >= p.size {
		return indexOutOfRange(index, p.size)
	}
	return nil
}

func (p *atomicPages[T]) mustBeLive() {
	if p.pages == nil {
		panic(errReleased())
	}
}
