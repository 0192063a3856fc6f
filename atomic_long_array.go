package paged

import (
	"sync/atomic"
)

// AtomicLongArray is a fixed-size array of int64 values supporting
// concurrent access. Every operation on a single index is linearizable;
// there is no ordering between operations on different indices.
type AtomicLongArray struct {
	atomicPages[int64]
}

// NewAtomicLongArray returns an array of size zeros, filled by creator if given.
func NewAtomicLongArray(size int64, creator ...*PageCreator[int64]) *AtomicLongArray {
	return newAtomicLongArray(size, creatorOf(creator), size > maxArrayLength)
}

func newAtomicLongArray(size int64, creator *PageCreator[int64], paged bool) *AtomicLongArray {
	return &AtomicLongArray{atomicPages: newAtomicPages(size, creator, paged)}
}

// AtomicLongArrayMemoryEstimation returns the bytes NewAtomicLongArray(size) allocates.
func AtomicLongArrayMemoryEstimation(size int64) int64 {
	return atomicMemoryEstimation[AtomicLongArray, int64](size)
}

// Get returns the value at index.
func (a *AtomicLongArray) Get(index int64) int64 {
	return atomic.LoadInt64(a.slot(index))
}

// GetChecked is Get returning ErrIndexOutOfRange or ErrReleased instead of panicking.
func (a *AtomicLongArray) GetChecked(index int64) (int64, error) {
	if err := a.check(index); err != nil {
		return 0, err
	}
	return a.Get(index), nil
}

// SetChecked is Set returning ErrIndexOutOfRange or ErrReleased instead of panicking.
func (a *AtomicLongArray) SetChecked(index int64, value int64) error {
	if err := a.check(index); err != nil {
		return err
	}
	a.Set(index, value)
	return nil
}

// Set sets the value at index.
func (a *AtomicLongArray) Set(index int64, value int64) {
	atomic.StoreInt64(a.slot(index), value)
}

// GetAndAdd adds delta to the value at index and returns the previous value.
func (a *AtomicLongArray) GetAndAdd(index int64, delta int64) int64 {
	return atomic.AddInt64(a.slot(index), delta) - delta
}

// GetAndReplace sets the value at index and returns the previous value.
func (a *AtomicLongArray) GetAndReplace(index int64, value int64) int64 {
	return atomic.SwapInt64(a.slot(index), value)
}

// CompareAndSet sets the value at index to update if it equals expect.
func (a *AtomicLongArray) CompareAndSet(index int64, expect, update int64) bool {
	return atomic.CompareAndSwapInt64(a.slot(index), expect, update)
}

// CompareAndExchange sets the value at index to update if it equals expect.
// It returns the witness value: expect on success, the current value
// otherwise.
func (a *AtomicLongArray) CompareAndExchange(index int64, expect, update int64) int64 {
	addr := a.slot(index)
	b := casBackoff{structure: structAtomicArray}
	for {
		current := atomic.LoadInt64(addr)
		if current != expect {
			return current
		}
		if atomic.CompareAndSwapInt64(addr, expect, update) {
			return expect
		}
		b.fail(index)
	}
}

// Update replaces the value at index with fn(value). fn may be called
// several times under contention and must be free of side effects.
func (a *AtomicLongArray) Update(index int64, fn func(value int64) int64) {
	addr := a.slot(index)
	b := casBackoff{structure: structAtomicArray}
	prev := atomic.LoadInt64(addr)
	for {
		if atomic.CompareAndSwapInt64(addr, prev, fn(prev)) {
			return
		}
		b.fail(index)
		prev = atomic.LoadInt64(addr)
	}
}

// SetAll sets every element to value. It must not run concurrently with
// any other operation on the array.
func (a *AtomicLongArray) SetAll(value int64) {
	a.fill(value)
}

// CopyTo copies min(length, Size(), dest.Size()) elements into dest and
// zero-fills the rest of dest. Writers to either array must be quiesced.
func (a *AtomicLongArray) CopyTo(dest *AtomicLongArray, length int64) {
	a.copyTo(&dest.atomicPages, length)
}
