package paged

import (
	"sync/atomic"
	"unsafe"
)

// bigEndian reports the byte order of the host, which decides where a
// byte sits inside its 32-bit word.
var bigEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 0
}()

// AtomicByteArray is a fixed-size array of bytes supporting concurrent
// access.
//
// Go has no byte-sized atomics, so every operation works on the aligned
// 32-bit word containing the byte and leaves its neighbours untouched.
// Pages are padded to a multiple of 8 bytes, so that word never extends
// past the memory of the page.
type AtomicByteArray struct {
	atomicPages[uint8]
}

// NewAtomicByteArray returns an array of size zeros, filled by creator if given.
func NewAtomicByteArray(size int64, creator ...*PageCreator[uint8]) *AtomicByteArray {
	return newAtomicByteArray(size, creatorOf(creator), size > maxArrayLength)
}

func newAtomicByteArray(size int64, creator *PageCreator[uint8], paged bool) *AtomicByteArray {
	return &AtomicByteArray{atomicPages: newAtomicPages(size, creator, paged)}
}

// AtomicByteArrayMemoryEstimation returns the bytes NewAtomicByteArray(size) allocates.
func AtomicByteArrayMemoryEstimation(size int64) int64 {
	return atomicMemoryEstimation[AtomicByteArray, uint8](size)
}

// word returns the aligned word holding the byte at index, and the bit
// offset of the byte within it.
//
//go:nosplit
func (a *AtomicByteArray) word(index int64) (*uint32, uint) {
	p := unsafe.Pointer(a.slot(index))
	off := uintptr(p) & 3
	shift := uint(off) * 8
	if bigEndian {
		shift = 24 - shift
	}
	return (*uint32)(unsafe.Add(p, -int(off))), shift
}

// Get returns the value at index.
func (a *AtomicByteArray) Get(index int64) uint8 {
	w, shift := a.word(index)
	return uint8(atomic.LoadUint32(w) >> shift)
}

// GetChecked is Get returning ErrIndexOutOfRange or ErrReleased instead of panicking.
func (a *AtomicByteArray) GetChecked(index int64) (uint8, error) {
	if err := a.check(index); err != nil {
		return 0, err
	}
	return a.Get(index), nil
}

// SetChecked is Set returning ErrIndexOutOfRange or ErrReleased instead of panicking.
func (a *AtomicByteArray) SetChecked(index int64, value uint8) error {
	if err := a.check(index); err != nil {
		return err
	}
	a.Set(index, value)
	return nil
}

// Set sets the value at index.
func (a *AtomicByteArray) Set(index int64, value uint8) {
	a.update(index, func(uint8) uint8 { return value })
}

// GetAndAdd adds delta to the value at index, wrapping around on overflow,
// and returns the previous value.
func (a *AtomicByteArray) GetAndAdd(index int64, delta uint8) uint8 {
	return a.update(index, func(v uint8) uint8 { return v + delta })
}

// GetAndReplace sets the value at index and returns the previous value.
func (a *AtomicByteArray) GetAndReplace(index int64, value uint8) uint8 {
	return a.update(index, func(uint8) uint8 { return value })
}

// CompareAndSet sets the value at index to update if it equals expect.
func (a *AtomicByteArray) CompareAndSet(index int64, expect, update uint8) bool {
	return a.CompareAndExchange(index, expect, update) == expect
}

// CompareAndExchange sets the value at index to update if it equals expect,
// and returns the witness value.
func (a *AtomicByteArray) CompareAndExchange(index int64, expect, update uint8) uint8 {
	w, shift := a.word(index)
	mask := uint32(0xFF) << shift
	b := casBackoff{structure: structAtomicArray}
	for {
		old := atomic.LoadUint32(w)
		current := uint8(old >> shift)
		if current != expect {
			return current
		}
		if atomic.CompareAndSwapUint32(w, old, old&^mask|uint32(update)<<shift) {
			return expect
		}
		// a neighbouring byte changed, or this one did; re-read either way
		b.fail(index)
	}
}

// Update replaces the value at index with fn(value). fn may be called
// several times under contention and must be free of side effects.
func (a *AtomicByteArray) Update(index int64, fn func(value uint8) uint8) {
	a.update(index, fn)
}

// update applies fn to the byte at index and returns its previous value.
func (a *AtomicByteArray) update(index int64, fn func(uint8) uint8) uint8 {
	w, shift := a.word(index)
	mask := uint32(0xFF) << shift
	b := casBackoff{structure: structAtomicArray}
	for {
		old := atomic.LoadUint32(w)
		prev := uint8(old >> shift)
		next := old&^mask | uint32(fn(prev))<<shift
		if next == old || atomic.CompareAndSwapUint32(w, old, next) {
			return prev
		}
		b.fail(index)
	}
}

// SetAll sets every element to value. It must not run concurrently with
// any other operation on the array.
func (a *AtomicByteArray) SetAll(value uint8) {
	a.fill(value)
}

// CopyTo copies min(length, Size(), dest.Size()) elements into dest and
// zero-fills the rest of dest. Writers to either array must be quiesced.
func (a *AtomicByteArray) CopyTo(dest *AtomicByteArray, length int64) {
	a.copyTo(&dest.atomicPages, length)
}
