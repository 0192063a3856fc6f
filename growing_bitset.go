package paged

import (
	"math/bits"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

const (
	// growingBitSetPageShift sets the words per page of a growing bit set:
	// 4096 words, or 262144 bits.
	growingBitSetPageShift = 12
	growingBitSetPageSize  = 1 << growingBitSetPageShift
	growingBitSetPageMask  = growingBitSetPageSize - 1
)

// AtomicGrowingBitSet is a bit set that grows to accommodate any index set
// on it. Capacity never shrinks.
//
// The page table is an immutable snapshot swapped with CAS. Goroutines
// racing to grow each build a larger table; the loser discards its table
// and retries against the winner's. Reads and writes of existing pages
// never wait for growth.
type AtomicGrowingBitSet struct {
	pages atomic.Pointer[[][]uint64]
}

// NewAtomicGrowingBitSet returns an empty bit set with room for at least
// bitSize bits.
func NewAtomicGrowingBitSet(bitSize int64) *AtomicGrowingBitSet {
	if bitSize < 0 {
		panic(invalidCapacity(bitSize))
	}
	pageCount := max(1, int(ceilDiv(ceilDiv(bitSize, 64), growingBitSetPageSize)))
	pages := make([][]uint64, pageCount)
	for i := range pages {
		pages[i] = make([]uint64, growingBitSetPageSize)
	}
	s := &AtomicGrowingBitSet{}
	s.pages.Store(&pages)
	trackAllocation(growingPagesSize(pageCount))
	return s
}

func growingPagesSize(pageCount int) int64 {
	return int64(pageCount) * SizeOfLongArray(growingBitSetPageSize)
}

// Get reports whether the bit at index is set. Indices beyond the capacity
// are not set.
func (s *AtomicGrowingBitSet) Get(index int64) bool {
	wordIdx := index >> 6
	pages := *s.pages.Load()
	pageIdx := int(wordIdx >> growingBitSetPageShift)
	if pageIdx >= len(pages) {
		return false
	}
	mask := uint64(1) << (index & 63)
	return atomic.LoadUint64(&pages[pageIdx][wordIdx&growingBitSetPageMask])&mask != 0
}

// Set sets the bit at index, growing the set if needed.
func (s *AtomicGrowingBitSet) Set(index int64) {
	addr := s.wordFor(index)
	mask := uint64(1) << (index & 63)
	if atomic.LoadUint64(addr)&mask != 0 {
		return
	}
	atomic.OrUint64(addr, mask)
}

// GetAndSet sets the bit at index and reports whether it was set before.
func (s *AtomicGrowingBitSet) GetAndSet(index int64) bool {
	addr := s.wordFor(index)
	mask := uint64(1) << (index & 63)
	if atomic.LoadUint64(addr)&mask != 0 {
		return true
	}
	return atomic.OrUint64(addr, mask)&mask != 0
}

// Clear clears the bit at index.
func (s *AtomicGrowingBitSet) Clear(index int64) {
	wordIdx := index >> 6
	pages := *s.pages.Load()
	pageIdx := int(wordIdx >> growingBitSetPageShift)
	if pageIdx >= len(pages) {
		return
	}
	atomic.AndUint64(&pages[pageIdx][wordIdx&growingBitSetPageMask], ^(uint64(1) << (index & 63)))
}

// Cardinality returns the number of set bits. Writers must be quiesced.
func (s *AtomicGrowingBitSet) Cardinality() int64 {
	var count int64
	for _, page := range *s.pages.Load() {
		for i := range page {
			count += int64(bits.OnesCount64(loadWordQuiescent(&page[i])))
		}
	}
	return count
}

// ForEachSetBit calls fn with the index of every set bit, in increasing
// order. Writers must be quiesced.
func (s *AtomicGrowingBitSet) ForEachSetBit(fn func(index int64)) {
	forEachSetBit(*s.pages.Load(), growingBitSetPageShift, fn)
}

// Capacity returns the number of bits the set can hold without growing.
func (s *AtomicGrowingBitSet) Capacity() int64 {
	return int64(len(*s.pages.Load())) * growingBitSetPageSize * 64
}

// SizeOf returns the bytes used by the pages.
func (s *AtomicGrowingBitSet) SizeOf() int64 {
	return growingPagesSize(len(*s.pages.Load()))
}

func (s *AtomicGrowingBitSet) wordFor(index int64) *uint64 {
	wordIdx := index >> 6
	pageIdx := int(wordIdx >> growingBitSetPageShift)
	pages := *s.pages.Load()
	if pageIdx >= len(pages) {
		pages = s.grow(pageIdx)
	}
	return &pages[pageIdx][wordIdx&growingBitSetPageMask]
}

// grow installs a page table holding at least pageIdx+1 pages and returns
// the table in effect afterwards.
func (s *AtomicGrowingBitSet) grow(pageIdx int) [][]uint64 {
	for {
		current := s.pages.Load()
		if pageIdx < len(*current) {
			return *current
		}
		next := make([][]uint64, pageIdx+1)
		copy(next, *current)
		for i := len(*current); i < len(next); i++ {
			next[i] = make([]uint64, growingBitSetPageSize)
		}
		if s.pages.CompareAndSwap(current, &next) {
			added := len(next) - len(*current)
			trackAllocation(growingPagesSize(added))
			growthTotal.WithLabelValues(structGrowingBitSet).Inc()
			if debugEnabled() {
				Logger().WithFields(log.Fields{
					"structure": structGrowingBitSet,
					"pages":     len(next),
					"added":     HumanReadable(growingPagesSize(added)),
				}).Debug("bit set grown")
			}
			return next
		}
		// lost the race; the winner's table may already be big enough
	}
}
