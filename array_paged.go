package paged

// pagedArray holds its elements in pages of PageSize elements; the last
// page may be shorter.
type pagedArray[T any] struct {
	pages      [][]T
	size       int64
	memoryUsed int64
	newLike    func(size int64) Array[T]
}

func newPagedArray[T any](size int64, creator *PageCreator[T]) *pagedArray[T] {
	pages := make([][]T, numberOfPages(size))
	if len(pages) > 0 {
		creator.Fill(pages, exclusiveIndexOfPage(size))
	}
	return &pagedArray[T]{
		pages:      pages,
		size:       size,
		memoryUsed: pagedMemoryOfData[T](size),
	}
}

// newPagedArrayOf wraps pages that were allocated elsewhere. Every page but
// the last must hold PageSize elements, the last one the remainder.
func newPagedArrayOf[T any](pages [][]T, size int64) *pagedArray[T] {
	used := SizeOfObjectArray(int64(len(pages)))
	for _, page := range pages {
		used += sizeOfElements[T](int64(cap(page)))
	}
	return &pagedArray[T]{pages: pages, size: size, memoryUsed: used}
}

func (a *pagedArray[T]) setFactory(newLike func(size int64) Array[T]) {
	a.newLike = newLike
}

func (a *pagedArray[T]) Get(index int64) T {
	return a.pages[pageIndex(index)][indexInPage(index)]
}

func (a *pagedArray[T]) Set(index int64, value T) {
	a.pages[pageIndex(index)][indexInPage(index)] = value
}

func (a *pagedArray[T]) GetChecked(index int64) (T, error) {
	if err := a.check(index); err != nil {
		var zero T
		return zero, err
	}
	return a.Get(index), nil
}

func (a *pagedArray[T]) SetChecked(index int64, value T) error {
	if err := a.check(index); err != nil {
		return err
	}
	a.Set(index, value)
	return nil
}

func (a *pagedArray[T]) check(index int64) error {
	if a.pages == nil {
		return errReleased()
	}
	if index < 0 || index >= a.size {
		return indexOutOfRange(index, a.size)
	}
	return nil
}

func (a *pagedArray[T]) SetAll(gen func(index int64) T) {
	a.mustBeLive()
	for pageIdx, page := range a.pages {
		base := indexFromPage(pageIdx, 0)
		for i := range page {
			page[i] = gen(base + int64(i))
		}
	}
}

func (a *pagedArray[T]) Fill(value T) {
	a.mustBeLive()
	for _, page := range a.pages {
		for i := range page {
			page[i] = value
		}
	}
}

func (a *pagedArray[T]) Size() int64 {
	return a.size
}

func (a *pagedArray[T]) SizeOf() int64 {
	if a.pages == nil {
		return 0
	}
	return a.memoryUsed
}

func (a *pagedArray[T]) Release() int64 {
	if a.pages == nil {
		return 0
	}
	a.pages = nil
	trackRelease(a.memoryUsed)
	return a.memoryUsed
}

func (a *pagedArray[T]) NewCursor() Cursor[T] {
	c := &pagedCursor[T]{}
	c.init(a, a.size)
	return c
}

func (a *pagedArray[T]) CopyTo(dest Array[T], length int64) {
	a.mustBeLive()
	copyPages(a.pages, livePages(dest), copyLength(length, a.size, dest.Size()))
}

func (a *pagedArray[T]) CopyOf(newLength int64) Array[T] {
	c := a.newLike(newLength)
	a.CopyTo(c, newLength)
	return c
}

func (a *pagedArray[T]) ToSlice() []T {
	a.mustBeLive()
	out := make([]T, 0, a.size)
	for _, page := range a.pages {
		out = append(out, page...)
	}
	return out
}

func (a *pagedArray[T]) String() string {
	return formatPages(a.pages)
}

func (a *pagedArray[T]) pageTable() [][]T {
	return a.pages
}

func (a *pagedArray[T]) pageAt(i int) []T {
	if a.pages == nil {
		return nil
	}
	return a.pages[i]
}

func (a *pagedArray[T]) mustBeLive() {
	if a.pages == nil {
		panic(errReleased())
	}
}

type pagedNumberArray[T Number] struct {
	*pagedArray[T]
}

func (a pagedNumberArray[T]) AddTo(index int64, delta T) {
	a.pages[pageIndex(index)][indexInPage(index)] += delta
}

func (a pagedNumberArray[T]) GetAndAdd(index int64, delta T) T {
	slot := &a.pages[pageIndex(index)][indexInPage(index)]
	prev := *slot
	*slot += delta
	return prev
}

type pagedIntegerArray[T Integer] struct {
	*pagedArray[T]
}

func (a pagedIntegerArray[T]) AddTo(index int64, delta T) {
	a.pages[pageIndex(index)][indexInPage(index)] += delta
}

func (a pagedIntegerArray[T]) GetAndAdd(index int64, delta T) T {
	slot := &a.pages[pageIndex(index)][indexInPage(index)]
	prev := *slot
	*slot += delta
	return prev
}

func (a pagedIntegerArray[T]) Or(index int64, value T) {
	a.pages[pageIndex(index)][indexInPage(index)] |= value
}

func (a pagedIntegerArray[T]) And(index int64, value T) T {
	page := a.pages[pageIndex(index)]
	i := indexInPage(index)
	page[i] &= value
	return page[i]
}

func (a pagedIntegerArray[T]) BinarySearch(value T) int64 {
	return binarySearchPages(a.pages, value)
}
