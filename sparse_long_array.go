package paged

import (
	"cmp"
	"context"
	"math"
	"math/bits"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// sparseBlockSize is the number of words per block.
	sparseBlockSize  = 64
	sparseBlockShift = 6
	sparseBlockMask  = sparseBlockSize - 1

	// SparseSuperBlockSize is the number of ids covered by one block.
	SparseSuperBlockSize  = sparseBlockSize * 64
	sparseSuperBlockShift = 12
)

// SparseLongArray maps original ids from [0, capacity) to dense ids using
// one bit per possible original id.
//
// Words are grouped in blocks of 64 words; for every block the number of
// ids in all blocks before it is stored, and these offsets are searched in
// Eytzinger order to go from a dense id back to its block.
type SparseLongArray struct {
	idCount       int64
	highestID     int64
	words         []uint64
	blockOffsets  []int64
	sortedOffsets []int64
	blockMapping  []int32
}

// ToValidBatchSize rounds batchSize up to a multiple of SparseSuperBlockSize,
// so that batches of consecutive ids never share a block.
func ToValidBatchSize(batchSize int) int {
	return int(ceilDiv(int64(batchSize), SparseSuperBlockSize) * SparseSuperBlockSize)
}

// SparseLongArrayMemoryEstimation returns the bytes used by an array that
// can hold original ids up to highestID.
func SparseLongArrayMemoryEstimation(highestID int64) int64 {
	words := ceilDiv(highestID+1, 64)
	blocks := max(1, ceilDiv(words, sparseBlockSize))
	return SizeOfInstance[SparseLongArray]() +
		SizeOfLongArray(words) +
		SizeOfLongArray(blocks) +
		SizeOfLongArray(blocks+1) +
		SizeOfIntArray(blocks+1)
}

// IDCount returns the number of mapped ids.
func (a *SparseLongArray) IDCount() int64 {
	return a.idCount
}

// HighestOriginalID returns capacity-1, the largest original id the
// array can hold.
func (a *SparseLongArray) HighestOriginalID() int64 {
	return a.highestID
}

// ToMappedNodeID returns the dense id of originalID, or NotFound.
func (a *SparseLongArray) ToMappedNodeID(originalID int64) int64 {
	if !a.Contains(originalID) {
		return NotFound
	}
	page := int(originalID >> 6)
	indexInPage := uint(originalID & 63)

	block := page >> sparseBlockShift
	mappedID := a.blockOffsets[block]
	for p := page &^ sparseBlockMask; p < page; p++ {
		mappedID += int64(bits.OnesCount64(a.words[p]))
	}
	mappedID += int64(bits.OnesCount64(a.words[page] << (63 - indexInPage)))
	return mappedID - 1
}

// Contains reports whether originalID is mapped.
func (a *SparseLongArray) Contains(originalID int64) bool {
	page := originalID >> 6
	if originalID < 0 || page >= int64(len(a.words)) {
		return false
	}
	return a.words[page]&(1<<(originalID&63)) != 0
}

// ToOriginalNodeID returns the original id of mappedID.
//
// It returns 0 when mappedID is not a mapped id, which cannot be told
// apart from original id 0: check mappedID < IDCount() first.
func (a *SparseLongArray) ToOriginalNodeID(mappedID int64) int64 {
	idx := searchEytzinger(a.sortedOffsets, mappedID)
	if idx == 0 {
		return 0
	}
	block := int(a.blockMapping[idx])
	blockStart := block << sparseBlockShift
	blockEnd := min((block+1)<<sparseBlockShift, len(a.words))
	count := a.blockOffsets[block]
	for page := blockStart; page < blockEnd; page++ {
		word := a.words[page]
		idsInPage := int64(bits.OnesCount64(word))
		if count+idsInPage > mappedID {
			return int64(page)<<6 + int64(selectBit(word, int(mappedID-count)))
		}
		count += idsInPage
	}
	return 0
}

// selectBit returns the position of the set bit of word with the given
// rank, counting from the least significant bit. It halves the search
// window until a single bit remains.
func selectBit(word uint64, rank int) int {
	pos := 0
	mask := uint64(0xFFFF_FFFF)
	for shift := 32; shift > 0; {
		lower := bits.OnesCount64(word & mask)
		if rank < lower {
			word &= mask
		} else {
			pos += shift
			rank -= lower
			word >>= shift
		}
		shift >>= 1
		mask >>= shift
	}
	return pos
}

// SparseLongArrayBuilder builds a SparseLongArray from batches of sorted
// ids. Batches may be added concurrently as long as no two batches touch
// the same block, see ToValidBatchSize.
type SparseLongArrayBuilder struct {
	capacity     int64
	words        []uint64
	blockOffsets []int64
}

// NewSparseLongArrayBuilder returns a builder for original ids in [0, capacity).
func NewSparseLongArrayBuilder(capacity int64) *SparseLongArrayBuilder {
	if capacity < 0 {
		panic(invalidCapacity(capacity))
	}
	size := ceilDiv(capacity, 64)
	blockOffsets := make([]int64, max(1, ceilDiv(size, sparseBlockSize)))
	// unwritten blocks sort last
	for i := range blockOffsets {
		blockOffsets[i] = math.MaxInt64
	}
	return &SparseLongArrayBuilder{
		capacity:     capacity,
		words:        make([]uint64, size),
		blockOffsets: blockOffsets,
	}
}

// Set maps the ascending ids to allocationIndex, allocationIndex+1, and so on.
func (b *SparseLongArrayBuilder) Set(allocationIndex int64, originalIDs ...int64) {
	prevBlock, prevCount := -1, 0
	for i, originalID := range originalIDs {
		block := int(originalID >> sparseSuperBlockShift)
		if block != prevBlock {
			if prevBlock != -1 {
				b.blockOffsets[prevBlock] = int64(prevCount) + allocationIndex
			}
			prevBlock, prevCount = block, i
		}
		b.words[originalID>>6] |= 1 << (originalID & 63)
	}
	if prevBlock != -1 {
		b.blockOffsets[prevBlock] = int64(prevCount) + allocationIndex
	}
}

// Build returns the array. The builder must not be used afterwards.
func (b *SparseLongArrayBuilder) Build() *SparseLongArray {
	offsets := b.blockOffsets
	order := make([]int32, len(offsets))
	for i := range order {
		order[i] = int32(i)
	}
	slices.SortStableFunc(order, func(x, y int32) int {
		return cmp.Compare(offsets[x], offsets[y])
	})
	sorted := make([]int64, len(offsets))
	for i, block := range order {
		sorted[i] = offsets[block]
	}

	// the last written block holds the largest offset; ids inside it are
	// counted directly
	last := len(sorted) - 1
	var idCount int64
	for ; last > 0; last-- {
		if sorted[last] != math.MaxInt64 {
			idCount = sorted[last]
			break
		}
	}
	lastBlock := int(order[last])
	begin := lastBlock << sparseBlockShift
	end := min(len(b.words), begin+sparseBlockSize)
	for page := begin; page < end; page++ {
		idCount += int64(bits.OnesCount64(b.words[page]))
	}

	layout, mapping := eytzingerLayout(sorted, order)
	return &SparseLongArray{
		idCount:       idCount,
		highestID:     b.capacity - 1,
		words:         b.words,
		blockOffsets:  offsets,
		sortedOffsets: layout,
		blockMapping:  mapping,
	}
}

// SparseLongArraySequentialBuilder builds a SparseLongArray from ids added
// in any order by any number of goroutines. Every goroutine writes into
// its own LocalBuilder; Build combines them.
type SparseLongArraySequentialBuilder struct {
	capacity int64
	mu       sync.Mutex
	locals   []*SparseLocalBuilder
}

// SparseLocalBuilder collects the ids of one goroutine. It is not safe
// for concurrent use.
type SparseLocalBuilder struct {
	words []uint64
}

// Set adds originalID.
func (l *SparseLocalBuilder) Set(originalID int64) {
	l.words[originalID>>6] |= 1 << (originalID & 63)
}

// SetAll adds every id in originalIDs.
func (l *SparseLocalBuilder) SetAll(originalIDs []int64) {
	for _, id := range originalIDs {
		l.Set(id)
	}
}

// NewSparseLongArraySequentialBuilder returns a builder for original ids
// in [0, capacity).
func NewSparseLongArraySequentialBuilder(capacity int64) *SparseLongArraySequentialBuilder {
	if capacity < 0 {
		panic(invalidCapacity(capacity))
	}
	return &SparseLongArraySequentialBuilder{capacity: capacity}
}

// NewLocalBuilder returns a builder for the calling goroutine. Each local
// builder holds one bit per possible id until Build.
func (b *SparseLongArraySequentialBuilder) NewLocalBuilder() *SparseLocalBuilder {
	l := &SparseLocalBuilder{words: make([]uint64, ceilDiv(b.capacity, 64))}
	b.mu.Lock()
	b.locals = append(b.locals, l)
	b.mu.Unlock()
	return l
}

// Build merges the local builders into the first one and returns the
// array. Local builders must not be used afterwards.
func (b *SparseLongArraySequentialBuilder) Build() *SparseLongArray {
	b.mu.Lock()
	locals := b.locals
	b.locals = nil
	b.mu.Unlock()

	var words []uint64
	if len(locals) == 0 {
		words = make([]uint64, ceilDiv(b.capacity, 64))
	} else {
		words = locals[0].words
		for _, other := range locals[1:] {
			for i, w := range other.words {
				storeWordUnpublished(&words[i], words[i]|w)
			}
			other.words = nil
		}
	}
	return computeSequentialCounts(words, b.capacity)
}

// SparseLongArrayFromExisting returns an array over a bit set built
// elsewhere: bit i of words[i/64] marks original id i.
func SparseLongArrayFromExisting(words []uint64) *SparseLongArray {
	return computeSequentialCounts(words, int64(len(words))*64)
}

// computeSequentialCounts derives the block offsets by prefix sums; they
// are sorted already.
func computeSequentialCounts(words []uint64, capacity int64) *SparseLongArray {
	blocks := max(1, int(ceilDiv(int64(len(words)), sparseBlockSize)))
	blockOffsets := make([]int64, blocks)
	var count int64
	for block := 0; block < blocks; block++ {
		blockOffsets[block] = count
		begin := block << sparseBlockShift
		end := min(len(words), begin+sparseBlockSize)
		for _, w := range words[begin:end] {
			count += int64(bits.OnesCount64(w))
		}
	}

	identity := make([]int32, blocks)
	for i := range identity {
		identity[i] = int32(i)
	}
	layout, mapping := eytzingerLayout(blockOffsets, identity)
	return &SparseLongArray{
		idCount:       count,
		highestID:     capacity - 1,
		words:         words,
		blockOffsets:  blockOffsets,
		sortedOffsets: layout,
		blockMapping:  mapping,
	}
}

// BuildSparseLongArray maps ids, in any order and free of duplicates,
// using up to concurrency goroutines each filling its own local builder.
func BuildSparseLongArray(ctx context.Context, capacity int64, ids []int64, concurrency int) (*SparseLongArray, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "paged.SparseLongArray.Build",
		trace.WithAttributes(
			attribute.Int64("capacity", capacity),
			attribute.Int("ids", len(ids)),
			attribute.Int("concurrency", concurrency),
		),
	)
	defer span.End()

	builder := NewSparseLongArraySequentialBuilder(capacity)
	err := forEachChunk(ctx, len(ids), SparseSuperBlockSize, concurrency, func(start, end int) error {
		local := builder.NewLocalBuilder()
		for _, id := range ids[start:end] {
			if id < 0 || id >= capacity {
				return indexOutOfRange(id, capacity)
			}
			local.Set(id)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "build sparse long array")
	}

	array := builder.Build()
	recordBuild(ctx, structSparseLongArray, started)
	if debugEnabled() {
		Logger().WithFields(log.Fields{
			"structure": structSparseLongArray,
			"ids":       array.IDCount(),
			"memory":    HumanReadable(SparseLongArrayMemoryEstimation(array.HighestOriginalID())),
			"took":      time.Since(started),
		}).Debug("sparse array built")
	}
	return array, nil
}
