package paged

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicDoubleArray is a fixed-size array of float64 values supporting
// concurrent access.
//
// Compare operations compare bit patterns, not IEEE values: NaN matches a
// NaN with the same bits, and 0.0 does not match -0.0.
type AtomicDoubleArray struct {
	atomicPages[float64]
}

// NewAtomicDoubleArray returns an array of size zeros, filled by creator if given.
func NewAtomicDoubleArray(size int64, creator ...*PageCreator[float64]) *AtomicDoubleArray {
	return newAtomicDoubleArray(size, creatorOf(creator), size > maxArrayLength)
}

func newAtomicDoubleArray(size int64, creator *PageCreator[float64], paged bool) *AtomicDoubleArray {
	return &AtomicDoubleArray{atomicPages: newAtomicPages(size, creator, paged)}
}

// AtomicDoubleArrayMemoryEstimation returns the bytes NewAtomicDoubleArray(size) allocates.
func AtomicDoubleArrayMemoryEstimation(size int64) int64 {
	return atomicMemoryEstimation[AtomicDoubleArray, float64](size)
}

//go:nosplit
func (a *AtomicDoubleArray) bits(index int64) *uint64 {
	return (*uint64)(unsafe.Pointer(a.slot(index)))
}

// Get returns the value at index.
func (a *AtomicDoubleArray) Get(index int64) float64 {
	return math.Float64frombits(atomic.LoadUint64(a.bits(index)))
}

// GetChecked is Get returning ErrIndexOutOfRange or ErrReleased instead of panicking.
func (a *AtomicDoubleArray) GetChecked(index int64) (float64, error) {
	if err := a.check(index); err != nil {
		return 0, err
	}
	return a.Get(index), nil
}

// SetChecked is Set returning ErrIndexOutOfRange or ErrReleased instead of panicking.
func (a *AtomicDoubleArray) SetChecked(index int64, value float64) error {
	if err := a.check(index); err != nil {
		return err
	}
	a.Set(index, value)
	return nil
}

// Set sets the value at index.
func (a *AtomicDoubleArray) Set(index int64, value float64) {
	atomic.StoreUint64(a.bits(index), math.Float64bits(value))
}

// GetAndAdd adds delta to the value at index and returns the previous value.
func (a *AtomicDoubleArray) GetAndAdd(index int64, delta float64) float64 {
	addr := a.bits(index)
	b := casBackoff{structure: structAtomicArray}
	prev := atomic.LoadUint64(addr)
	for {
		next := math.Float64bits(math.Float64frombits(prev) + delta)
		if atomic.CompareAndSwapUint64(addr, prev, next) {
			return math.Float64frombits(prev)
		}
		b.fail(index)
		prev = atomic.LoadUint64(addr)
	}
}

// GetAndReplace sets the value at index and returns the previous value.
func (a *AtomicDoubleArray) GetAndReplace(index int64, value float64) float64 {
	return math.Float64frombits(atomic.SwapUint64(a.bits(index), math.Float64bits(value)))
}

// CompareAndSet sets the value at index to update if its bits equal the
// bits of expect.
func (a *AtomicDoubleArray) CompareAndSet(index int64, expect, update float64) bool {
	return atomic.CompareAndSwapUint64(a.bits(index), math.Float64bits(expect), math.Float64bits(update))
}

// CompareAndExchange sets the value at index to update if its bits equal
// the bits of expect, and returns the witness value.
func (a *AtomicDoubleArray) CompareAndExchange(index int64, expect, update float64) float64 {
	addr := a.bits(index)
	expectBits, updateBits := math.Float64bits(expect), math.Float64bits(update)
	b := casBackoff{structure: structAtomicArray}
	for {
		current := atomic.LoadUint64(addr)
		if current != expectBits {
			return math.Float64frombits(current)
		}
		if atomic.CompareAndSwapUint64(addr, expectBits, updateBits) {
			return expect
		}
		b.fail(index)
	}
}

// Update replaces the value at index with fn(value). fn may be called
// several times under contention and must be free of side effects.
func (a *AtomicDoubleArray) Update(index int64, fn func(value float64) float64) {
	addr := a.bits(index)
	b := casBackoff{structure: structAtomicArray}
	prev := atomic.LoadUint64(addr)
	for {
		next := math.Float64bits(fn(math.Float64frombits(prev)))
		if atomic.CompareAndSwapUint64(addr, prev, next) {
			return
		}
		b.fail(index)
		prev = atomic.LoadUint64(addr)
	}
}

// SetAll sets every element to value. It must not run concurrently with
// any other operation on the array.
func (a *AtomicDoubleArray) SetAll(value float64) {
	a.fill(value)
}

// CopyTo copies min(length, Size(), dest.Size()) elements into dest and
// zero-fills the rest of dest. Writers to either array must be quiesced.
func (a *AtomicDoubleArray) CopyTo(dest *AtomicDoubleArray, length int64) {
	a.copyTo(&dest.atomicPages, length)
}
