package paged

import (
	"fmt"
	"strings"
)

// Integer is the set of element types supporting bitwise updates.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Number is the set of element types supporting arithmetic updates.
type Number interface {
	Integer | ~float32 | ~float64
}

// Array is a fixed-size sequence of values addressed by a 64-bit index.
//
// Arrays up to maxArrayLength elements are backed by a single slice, larger
// ones by pages of PageSize elements. Both layouts behave identically.
//
// Get and Set do not check their index beyond what Go's bounds checks do:
// an index outside [0, Size()) or any access after Release panics.
// GetChecked and SetChecked return ErrIndexOutOfRange and ErrReleased
// instead. Arrays are not safe for concurrent writes to the same index.
type Array[T any] interface {
	// Get returns the value at index.
	Get(index int64) T
	// Set sets the value at index.
	Set(index int64, value T)
	// GetChecked is Get returning an error instead of panicking.
	GetChecked(index int64) (T, error)
	// SetChecked is Set returning an error instead of panicking.
	SetChecked(index int64, value T) error
	// SetAll sets every element to gen(index).
	SetAll(gen func(index int64) T)
	// Fill sets every element to value.
	Fill(value T)
	// Size returns the number of elements.
	Size() int64
	// SizeOf returns the bytes used by the backing storage, 0 once released.
	SizeOf() int64
	// Release drops the backing storage and returns the bytes freed.
	// Calling Release again returns 0.
	Release() int64
	// NewCursor returns a cursor over all elements.
	NewCursor() Cursor[T]
	// CopyTo copies the first min(length, Size(), dest.Size()) elements
	// into dest and zero-fills the remaining elements of dest.
	CopyTo(dest Array[T], length int64)
	// CopyOf returns a new array of the same kind holding the first
	// newLength elements, zero-extended if newLength exceeds Size().
	CopyOf(newLength int64) Array[T]
	// ToSlice returns a copy of the elements in a single slice.
	ToSlice() []T
	String() string

	pageTable() [][]T
	pageAt(i int) []T
}

// NumberArray is an Array of numeric values.
type NumberArray[T Number] interface {
	Array[T]
	// AddTo adds delta to the value at index.
	AddTo(index int64, delta T)
	// GetAndAdd adds delta to the value at index and returns the previous
	// value. It is not atomic, see AtomicLongArray for that.
	GetAndAdd(index int64, delta T) T
}

// IntegerArray is an Array of integer values.
type IntegerArray[T Integer] interface {
	NumberArray[T]
	// Or sets the value at index to value | current.
	Or(index int64, value T)
	// And sets the value at index to value & current and returns the result.
	And(index int64, value T) T
	// BinarySearch returns the largest index whose value is <= value,
	// assuming the array is sorted in non-decreasing order. Unlike
	// sort.Search it returns an index even when value is absent, and -1
	// only when value is smaller than every element.
	BinarySearch(value T) int64
}

type (
	ByteArray   = IntegerArray[uint8]
	IntArray    = IntegerArray[int32]
	LongArray   = IntegerArray[int64]
	DoubleArray = NumberArray[float64]
)

// NewByteArray returns a zeroed array of size bytes, filled by creator if given.
func NewByteArray(size int64, creator ...*PageCreator[uint8]) ByteArray {
	return newIntegerArray(size, creatorOf(creator), size > maxArrayLength)
}

// NewIntArray returns a zeroed array of size int32s, filled by creator if given.
func NewIntArray(size int64, creator ...*PageCreator[int32]) IntArray {
	return newIntegerArray(size, creatorOf(creator), size > maxArrayLength)
}

// NewLongArray returns a zeroed array of size int64s, filled by creator if given.
func NewLongArray(size int64, creator ...*PageCreator[int64]) LongArray {
	return newIntegerArray(size, creatorOf(creator), size > maxArrayLength)
}

// NewDoubleArray returns a zeroed array of size float64s, filled by creator if given.
func NewDoubleArray(size int64, creator ...*PageCreator[float64]) DoubleArray {
	return newNumberArray(size, creatorOf(creator), size > maxArrayLength)
}

// NewObjectArray returns an array of size zero values, filled by creator if given.
func NewObjectArray[T any](size int64, creator ...*PageCreator[T]) ObjectArray[T] {
	return newObjectArray(size, creatorOf(creator), size > maxArrayLength)
}

// LongArrayOf returns a single-page array backed by values.
// The array takes ownership of values.
func LongArrayOf(values ...int64) LongArray {
	if values == nil {
		// a nil page marks a released array
		values = []int64{}
	}
	a := &singleArray[int64]{page: values, size: int64(len(values))}
	trackAllocation(a.SizeOf())
	return wrapInteger[int64](a)
}

// MemoryEstimation returns the bytes an array of size elements of type T
// allocates, including the array header.
func MemoryEstimation[T any](size int64) int64 {
	if size <= maxArrayLength {
		return SizeOfInstance[singleArray[T]]() + sizeOfElements[T](size)
	}
	return SizeOfInstance[pagedArray[T]]() + pagedMemoryOfData[T](size)
}

func newIntegerArray[T Integer](size int64, creator *PageCreator[T], paged bool) IntegerArray[T] {
	return wrapInteger(allocate(size, creator, paged))
}

func newNumberArray[T Number](size int64, creator *PageCreator[T], paged bool) NumberArray[T] {
	return wrapNumber(allocate(size, creator, paged))
}

func newObjectArray[T any](size int64, creator *PageCreator[T], paged bool) ObjectArray[T] {
	a := allocate(size, creator, paged)
	a.setFactory(func(n int64) Array[T] {
		return newObjectArray[T](n, nil, n > maxArrayLength)
	})
	return objectArray[T]{a}
}

type arrayCore[T any] interface {
	Array[T]
	setFactory(newLike func(size int64) Array[T])
}

func allocate[T any](size int64, creator *PageCreator[T], paged bool) arrayCore[T] {
	if size < 0 {
		panic(invalidCapacity(size))
	}
	if creator == nil {
		creator = PassThrough[T](1)
	}
	var a arrayCore[T]
	if paged {
		a = newPagedArray(size, creator)
	} else {
		a = newSingleArray(size, creator)
	}
	trackAllocation(a.SizeOf())
	return a
}

func wrapInteger[T Integer](a arrayCore[T]) IntegerArray[T] {
	a.setFactory(func(n int64) Array[T] {
		return newIntegerArray[T](n, nil, n > maxArrayLength)
	})
	switch a := a.(type) {
	case *singleArray[T]:
		return singleIntegerArray[T]{a}
	case *pagedArray[T]:
		return pagedIntegerArray[T]{a}
	}
	panic(fmt.Sprintf("paged: unknown array layout %T", a))
}

func wrapNumber[T Number](a arrayCore[T]) NumberArray[T] {
	a.setFactory(func(n int64) Array[T] {
		return newNumberArray[T](n, nil, n > maxArrayLength)
	})
	switch a := a.(type) {
	case *singleArray[T]:
		return singleNumberArray[T]{a}
	case *pagedArray[T]:
		return pagedNumberArray[T]{a}
	}
	panic(fmt.Sprintf("paged: unknown array layout %T", a))
}

// copyPages copies length elements from src into dst and zero-fills the
// rest of dst. Both page tables may have any layout.
func copyPages[T any](src, dst [][]T, length int64) {
	var si, so, di, do int
	for length > 0 {
		for so == len(src[si]) {
			si, so = si+1, 0
		}
		for do == len(dst[di]) {
			di, do = di+1, 0
		}
		n := min(len(src[si])-so, len(dst[di])-do)
		if int64(n) > length {
			n = int(length)
		}
		copy(dst[di][do:do+n], src[si][so:so+n])
		so += n
		do += n
		length -= int64(n)
	}
	for ; di < len(dst); di, do = di+1, 0 {
		clear(dst[di][do:])
	}
}

// livePages returns the page table of a, panicking if a was released.
func livePages[T any](a Array[T]) [][]T {
	pages := a.pageTable()
	if pages == nil {
		panic(errReleased())
	}
	return pages
}

func copyLength(length, srcSize, dstSize int64) int64 {
	return max(0, min(length, srcSize, dstSize))
}

func binarySearchPages[T Integer](pages [][]T, value T) int64 {
	for pageIdx := len(pages) - 1; pageIdx >= 0; pageIdx-- {
		if i := binaryLookup(pages[pageIdx], value); i != -1 {
			return indexFromPage(pageIdx, i)
		}
	}
	return -1
}

// binaryLookup returns the index of value in the sorted page, or the index
// of the largest element smaller than value, or -1.
func binaryLookup[T Integer](page []T, value T) int {
	low, high := 0, len(page)-1
	for low <= high {
		mid := int(uint(low+high) >> 1)
		switch midVal := page[mid]; {
		case midVal < value:
			low = mid + 1
		case midVal > value:
			high = mid - 1
		default:
			return mid
		}
	}
	return low - 1
}

func formatPages[T any](pages [][]T) string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for _, page := range pages {
		for _, v := range page {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			fmt.Fprint(&sb, v)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func pagedMemoryOfData[T any](size int64) int64 {
	numPages := int64(numberOfPages(size))
	if numPages == 0 {
		return SizeOfObjectArray(0)
	}
	return SizeOfObjectArray(numPages) +
		(numPages-1)*sizeOfElements[T](PageSize) +
		sizeOfElements[T](int64(exclusiveIndexOfPage(size)))
}
