package paged

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
)

// Memory accounting for the collections of this package.
//
// Sizes follow the Go heap layout: a slice costs its header plus the
// backing array, every allocation is rounded up to the 8-byte object
// alignment. Estimations and the values returned from SizeOf/Release
// are computed with the same functions so they always agree.

const (
	objectAlignment = 8

	// BytesSliceHeader is the size of a slice header (pointer, len, cap).
	BytesSliceHeader = int64(unsafe.Sizeof([]byte(nil)))
	// BytesObjectRef is the size of a pointer.
	BytesObjectRef = int64(unsafe.Sizeof(uintptr(0)))
)

//go:nosplit
func alignObjectSize(size int64) int64 {
	return (size + objectAlignment - 1) &^ (objectAlignment - 1)
}

// SizeOfArray returns the bytes used by a slice of length elements with the
// given element width.
func SizeOfArray(length, bytesPerElement int64) int64 {
	return alignObjectSize(BytesSliceHeader + length*bytesPerElement)
}

func SizeOfByteArray(length int64) int64 {
	return SizeOfArray(length, 1)
}

func SizeOfIntArray(length int64) int64 {
	return SizeOfArray(length, 4)
}

func SizeOfLongArray(length int64) int64 {
	return SizeOfArray(length, 8)
}

func SizeOfDoubleArray(length int64) int64 {
	return SizeOfArray(length, 8)
}

// SizeOfObjectArray returns the bytes used by a slice of length references.
func SizeOfObjectArray(length int64) int64 {
	return SizeOfArray(length, BytesObjectRef)
}

// sizeOfElements returns SizeOfArray for the element type T.
func sizeOfElements[T any](length int64) int64 {
	return SizeOfArray(length, int64(unsafe.Sizeof(*new(T))))
}

// SizeOfInstance returns the aligned shallow size of a value of type T.
func SizeOfInstance[T any]() int64 {
	return alignObjectSize(int64(unsafe.Sizeof(*new(T))))
}

// HumanReadable renders a byte count with binary units, e.g. "1.5 MiB".
func HumanReadable(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// MemoryRange is an inclusive range of byte counts, used where the exact
// memory requirement depends on data that is only known at runtime.
type MemoryRange struct {
	Min int64
	Max int64
}

// MemoryOf returns the range [bytes, bytes].
func MemoryOf(bytes int64) MemoryRange {
	return MemoryRange{Min: bytes, Max: bytes}
}

// MemoryBetween returns the range [min, max].
func MemoryBetween(minBytes, maxBytes int64) MemoryRange {
	if minBytes > maxBytes {
		minBytes, maxBytes = maxBytes, minBytes
	}
	return MemoryRange{Min: minBytes, Max: maxBytes}
}

// Add returns the element-wise sum of two ranges.
func (r MemoryRange) Add(other MemoryRange) MemoryRange {
	return MemoryRange{Min: r.Min + other.Min, Max: r.Max + other.Max}
}

// Times scales both bounds by count.
func (r MemoryRange) Times(count int64) MemoryRange {
	return MemoryRange{Min: r.Min * count, Max: r.Max * count}
}

// Union returns the smallest range covering both ranges.
func (r MemoryRange) Union(other MemoryRange) MemoryRange {
	return MemoryRange{Min: min(r.Min, other.Min), Max: max(r.Max, other.Max)}
}

// IsEmpty reports whether the range is [0, 0].
func (r MemoryRange) IsEmpty() bool {
	return r.Min == 0 && r.Max == 0
}

func (r MemoryRange) String() string {
	if r.Min == r.Max {
		return HumanReadable(r.Min)
	}
	return fmt.Sprintf("[%s ... %s]", HumanReadable(r.Min), HumanReadable(r.Max))
}
