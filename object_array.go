package paged

import (
	"reflect"
)

// ObjectArray is an array of arbitrary values. The zero value of T marks
// an absent element.
type ObjectArray[T any] interface {
	Array[T]
	// GetOrDefault returns the value at index, or defaultValue if the
	// element is absent.
	GetOrDefault(index int64, defaultValue T) T
	// PutIfAbsent stores supplier() at index if the element is absent and
	// the supplied value is not, then returns the element.
	PutIfAbsent(index int64, supplier func() T) T
}

// ObjectArrayMemoryEstimation returns the bytes an ObjectArray of size
// elements allocates when every element additionally references
// objectSize bytes on the heap.
func ObjectArrayMemoryEstimation[T any](size, objectSize int64) int64 {
	return MemoryEstimation[T](size) + size*objectSize
}

type objectArray[T any] struct {
	arrayCore[T]
}

func (a objectArray[T]) GetOrDefault(index int64, defaultValue T) T {
	if v := a.Get(index); !isAbsent(v) {
		return v
	}
	return defaultValue
}

func (a objectArray[T]) PutIfAbsent(index int64, supplier func() T) T {
	v := a.Get(index)
	if isAbsent(v) {
		if v = supplier(); !isAbsent(v) {
			a.Set(index, v)
		}
	}
	return v
}

// isAbsent reports whether v is the zero value of T. T need not be
// comparable, e.g. []byte.
func isAbsent[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}
