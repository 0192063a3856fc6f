package paged

// singleArray holds all elements in one slice.
type singleArray[T any] struct {
	page    []T
	size    int64
	newLike func(size int64) Array[T]
}

func newSingleArray[T any](size int64, creator *PageCreator[T]) *singleArray[T] {
	page := newPage[T](int(size))
	creator.FillPage(page, 0)
	return &singleArray[T]{page: page, size: size}
}

func (a *singleArray[T]) setFactory(newLike func(size int64) Array[T]) {
	a.newLike = newLike
}

func (a *singleArray[T]) Get(index int64) T {
	return a.page[index]
}

func (a *singleArray[T]) Set(index int64, value T) {
	a.page[index] = value
}

func (a *singleArray[T]) GetChecked(index int64) (T, error) {
	if err := a.check(index); err != nil {
		var zero T
		return zero, err
	}
	return a.page[index], nil
}

func (a *singleArray[T]) SetChecked(index int64, value T) error {
	if err := a.check(index); err != nil {
		return err
	}
	a.page[index] = value
	return nil
}

func (a *singleArray[T]) check(index int64) error {
	if a.page == nil {
		return errReleased()
	}
	if index < 0 || index >= a.size {
		return indexOutOfRange(index, a.size)
	}
	return nil
}

func (a *singleArray[T]) SetAll(gen func(index int64) T) {
	a.mustBeLive()
	for i := range a.page {
		a.page[i] = gen(int64(i))
	}
}

func (a *singleArray[T]) Fill(value T) {
	a.mustBeLive()
	for i := range a.page {
		a.page[i] = value
	}
}

func (a *singleArray[T]) Size() int64 {
	return a.size
}

func (a *singleArray[T]) SizeOf() int64 {
	if a.page == nil {
		return 0
	}
	return sizeOfElements[T](a.size)
}

func (a *singleArray[T]) Release() int64 {
	if a.page == nil {
		return 0
	}
	freed := a.SizeOf()
	a.page = nil
	trackRelease(freed)
	return freed
}

func (a *singleArray[T]) NewCursor() Cursor[T] {
	c := &singlePageCursor[T]{}
	c.init(a, a.size)
	return c
}

func (a *singleArray[T]) CopyTo(dest Array[T], length int64) {
	a.mustBeLive()
	length = copyLength(length, a.size, dest.Size())
	if d, ok := dest.(interface{ single() *singleArray[T] }); ok {
		dst := d.single()
		dst.mustBeLive()
		copy(dst.page[:length], a.page[:length])
		clear(dst.page[length:])
		return
	}
	copyPages([][]T{a.page}, livePages(dest), length)
}

func (a *singleArray[T]) CopyOf(newLength int64) Array[T] {
	c := a.newLike(newLength)
	a.CopyTo(c, newLength)
	return c
}

func (a *singleArray[T]) ToSlice() []T {
	a.mustBeLive()
	return append([]T(nil), a.page...)
}

func (a *singleArray[T]) String() string {
	return formatPages([][]T{a.page})
}

func (a *singleArray[T]) single() *singleArray[T] {
	return a
}

func (a *singleArray[T]) pageTable() [][]T {
	if a.page == nil {
		return nil
	}
	return [][]T{a.page}
}

func (a *singleArray[T]) pageAt(int) []T {
	return a.page
}

func (a *singleArray[T]) mustBeLive() {
	if a.page == nil {
		panic(errReleased())
	}
}

type singleNumberArray[T Number] struct {
	*singleArray[T]
}

func (a singleNumberArray[T]) AddTo(index int64, delta T) {
	a.page[index] += delta
}

func (a singleNumberArray[T]) GetAndAdd(index int64, delta T) T {
	prev := a.page[index]
	a.page[index] += delta
	return prev
}

type singleIntegerArray[T Integer] struct {
	*singleArray[T]
}

func (a singleIntegerArray[T]) AddTo(index int64, delta T) {
	a.page[index] += delta
}

func (a singleIntegerArray[T]) GetAndAdd(index int64, delta T) T {
	prev := a.page[index]
	a.page[index] += delta
	return prev
}

func (a singleIntegerArray[T]) Or(index int64, value T) {
	a.page[index] |= value
}

func (a singleIntegerArray[T]) And(index int64, value T) T {
	a.page[index] &= value
	return a.page[index]
}

func (a singleIntegerArray[T]) BinarySearch(value T) int64 {
	return int64(binaryLookup(a.page, value))
}
