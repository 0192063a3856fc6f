package paged

import (
	"math/bits"
	"sync/atomic"
)

// AtomicBitSet is a fixed-size set of bits supporting concurrent updates.
//
// Single-bit operations are linearizable per bit. The bulk scans
// (Cardinality, ForEachSetBit, AllSet, IsEmpty) are not: writers must be
// quiesced before calling them.
type AtomicBitSet struct {
	words     atomicPages[uint64]
	numBits   int64
	remainder int
}

// NewAtomicBitSet returns a bit set of numBits cleared bits.
func NewAtomicBitSet(numBits int64) *AtomicBitSet {
	if numBits < 0 {
		panic(invalidCapacity(numBits))
	}
	wordCount := ceilDiv(numBits, 64)
	remainder := int(numBits & 63)
	if remainder == 0 && numBits > 0 {
		remainder = 64
	}
	return &AtomicBitSet{
		words:     newAtomicPages(wordCount, PassThrough[uint64](1), wordCount > maxArrayLength),
		numBits:   numBits,
		remainder: remainder,
	}
}

// AtomicBitSetMemoryEstimation returns the bytes NewAtomicBitSet(numBits) allocates.
func AtomicBitSetMemoryEstimation(numBits int64) int64 {
	return atomicMemoryEstimation[AtomicBitSet, uint64](ceilDiv(numBits, 64))
}

//go:nosplit
func (s *AtomicBitSet) word(index int64) *uint64 {
	return s.words.slot(index >> 6)
}

// Get reports whether the bit at index is set.
func (s *AtomicBitSet) Get(index int64) bool {
	mask := uint64(1) << (index & 63)
	return atomic.LoadUint64(s.word(index))&mask != 0
}

// Set sets the bit at index.
func (s *AtomicBitSet) Set(index int64) {
	addr := s.word(index)
	mask := uint64(1) << (index & 63)
	if atomic.LoadUint64(addr)&mask != 0 {
		return
	}
	atomic.OrUint64(addr, mask)
}

// SetRange sets the bits in [start, end).
func (s *AtomicBitSet) SetRange(start, end int64) {
	if start >= end {
		return
	}
	startWord := start >> 6
	endWord := (end - 1) >> 6

	startMask := ^uint64(0) << (start & 63)
	endMask := ^uint64(0) >> (uint64(-end) & 63)

	if startWord == endWord {
		s.setWord(startWord, startMask&endMask)
		return
	}
	s.setWord(startWord, startMask)
	for w := startWord + 1; w < endWord; w++ {
		s.setWord(w, ^uint64(0))
	}
	s.setWord(endWord, endMask)
}

func (s *AtomicBitSet) setWord(wordIndex int64, mask uint64) {
	addr := s.words.slot(wordIndex)
	if atomic.LoadUint64(addr)&mask == mask {
		return
	}
	atomic.OrUint64(addr, mask)
}

// GetAndSet sets the bit at index and reports whether it was set before.
func (s *AtomicBitSet) GetAndSet(index int64) bool {
	addr := s.word(index)
	mask := uint64(1) << (index & 63)
	if atomic.LoadUint64(addr)&mask != 0 {
		return true
	}
	return atomic.OrUint64(addr, mask)&mask != 0
}

// Flip toggles the bit at index.
func (s *AtomicBitSet) Flip(index int64) {
	addr := s.word(index)
	mask := uint64(1) << (index & 63)
	b := casBackoff{structure: structAtomicBitSet}
	for {
		old := atomic.LoadUint64(addr)
		if atomic.CompareAndSwapUint64(addr, old, old^mask) {
			return
		}
		b.fail(index)
	}
}

// Clear clears the bit at index.
func (s *AtomicBitSet) Clear(index int64) {
	addr := s.word(index)
	mask := uint64(1) << (index & 63)
	if atomic.LoadUint64(addr)&mask == 0 {
		return
	}
	atomic.AndUint64(addr, ^mask)
}

// ClearAll clears every bit. It must not run concurrently with any other
// operation on the set.
func (s *AtomicBitSet) ClearAll() {
	s.words.fill(0)
}

// Cardinality returns the number of set bits.
func (s *AtomicBitSet) Cardinality() int64 {
	var count int64
	for _, page := range s.words.pages {
		for i := range page {
			count += int64(bits.OnesCount64(loadWordQuiescent(&page[i])))
		}
	}
	return count
}

// ForEachSetBit calls fn with the index of every set bit, in increasing
// order.
func (s *AtomicBitSet) ForEachSetBit(fn func(index int64)) {
	forEachSetBit(s.words.pages, s.words.shift, fn)
}

// AllSet reports whether every bit in [0, Size()) is set.
func (s *AtomicBitSet) AllSet() bool {
	wordCount := s.words.size
	if wordCount == 0 {
		return true
	}
	for w := int64(0); w < wordCount-1; w++ {
		if loadWordQuiescent(s.words.slot(w)) != ^uint64(0) {
			return false
		}
	}
	tail := ^uint64(0) >> (64 - s.remainder)
	return loadWordQuiescent(s.words.slot(wordCount-1)) == tail
}

// IsEmpty reports whether no bit is set.
func (s *AtomicBitSet) IsEmpty() bool {
	for _, page := range s.words.pages {
		for i := range page {
			if loadWordQuiescent(&page[i]) != 0 {
				return false
			}
		}
	}
	return true
}

// Size returns the number of bits.
func (s *AtomicBitSet) Size() int64 {
	return s.numBits
}

// SizeOf returns the bytes used by the words, 0 once released.
func (s *AtomicBitSet) SizeOf() int64 {
	return s.words.SizeOf()
}

// Release drops the words and returns the bytes freed.
func (s *AtomicBitSet) Release() int64 {
	return s.words.Release()
}

// forEachSetBit walks word pages in order; page i starts at word i<<shift.
func forEachSetBit(pages [][]uint64, shift uint, fn func(index int64)) {
	for pageIdx, page := range pages {
		base := int64(pageIdx) << shift
		for i := range page {
			word := loadWordQuiescent(&page[i])
			for word != 0 {
				bit := bits.TrailingZeros64(word)
				fn((base+int64(i))<<6 | int64(bit))
				word &= word - 1
			}
		}
	}
}
