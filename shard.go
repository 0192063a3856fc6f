package paged

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"
)

// NotFound is returned by the id maps for keys that were never added.
const NotFound = -1

// spreadPrime is the 64-bit golden ratio mixing constant.
const spreadPrime = 0x9E3779B185EBCA87

// shard is one independently locked partition of a sharded id map.
// Shards are padded to whole cache lines so that neighbouring locks do
// not share one.
type shard[K comparable, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		mu      sync.Mutex
		mapping map[int64]int64
	}{})%CacheLineSize) % CacheLineSize]byte

	mu      sync.Mutex
	mapping map[K]V
}

// idCounter is the dense id sequence shared by all shards of one map.
type idCounter struct {
	//lint:ignore U1000 prevents false sharing
	pad [CacheLineSize - 8]byte

	next atomic.Int64
}

// shardRouter picks the shard of a key from the top bits of its hash.
type shardRouter struct {
	shift uint
}

func newShardRouter(shardCount int) shardRouter {
	if !isPowerOfTwo(int64(shardCount)) {
		panic(fmt.Sprintf("paged: shard count %d is not a power of two", shardCount))
	}
	return shardRouter{shift: uint(64 - bits.TrailingZeros(uint(shardCount)))}
}

// shardCount returns the number of shards used for the given concurrency.
func shardCount(concurrency int) int {
	return nextPowOf2(max(concurrency, 1) * 4)
}

//go:nosplit
func (r shardRouter) forLong(key int64) int {
	return int((uint64(key) * spreadPrime) >> r.shift)
}

func (r shardRouter) forBytes(key []byte) int {
	h := fnv.New64a()
	_, _ = h.Write(key)
	return int(h.Sum64() >> r.shift)
}

func newShards[K comparable, V any](count int, sizeHint int64) []shard[K, V] {
	shards := make([]shard[K, V], count)
	perShard := int(sizeHint / int64(count))
	for i := range shards {
		shards[i].mapping = make(map[K]V, perShard)
	}
	return shards
}

// addToShard assigns nextID() to key unless key is known.
// It returns the new id, or -(id)-1 for a key mapped to id before.
func addToShard[K comparable](s *shard[K, int64], key K, nextID func() int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.mapping[key]; ok {
		return -id - 1
	}
	id := nextID()
	s.mapping[key] = id
	return id
}

// ShardStats is a snapshot of the distribution of keys over the shards of
// a sharded map or set.
type ShardStats struct {
	// Shards is the number of shards.
	Shards int
	// Size is the number of keys stored in all shards.
	Size int
	// EmptyShards is the number of shards holding no key.
	EmptyShards int
	// MinEntries is the number of keys in the least loaded shard.
	MinEntries int
	// MaxEntries is the number of keys in the most loaded shard.
	MaxEntries int
}

// shardStats reads the shard maps without locking; the shards must be
// frozen.
func shardStats[K comparable, V any](shards []shard[K, V]) ShardStats {
	counts := make([]int, len(shards))
	for i := range shards {
		counts[i] = len(shards[i].mapping)
	}
	return statsOf(counts)
}

func statsOf(counts []int) ShardStats {
	stats := ShardStats{Shards: len(counts), MinEntries: int(^uint(0) >> 1)}
	for _, n := range counts {
		stats.Size += n
		if n == 0 {
			stats.EmptyShards++
		}
		stats.MinEntries = min(stats.MinEntries, n)
		stats.MaxEntries = max(stats.MaxEntries, n)
	}
	if len(counts) == 0 {
		stats.MinEntries = 0
	}
	return stats
}

// ToString returns string representation of shard stats.
func (s *ShardStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("ShardStats{\n")
	sb.WriteString(fmt.Sprintf("Shards:      %d\n", s.Shards))
	sb.WriteString(fmt.Sprintf("Size:        %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("EmptyShards: %d\n", s.EmptyShards))
	sb.WriteString(fmt.Sprintf("MinEntries:  %d\n", s.MinEntries))
	sb.WriteString(fmt.Sprintf("MaxEntries:  %d\n", s.MaxEntries))
	sb.WriteString("}\n")
	return sb.String()
}
