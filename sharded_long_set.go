package paged

import (
	"sync/atomic"
)

// ShardedLongSet is a concurrent set of int64 values partitioned into
// independently locked shards.
type ShardedLongSet struct {
	shards []shard[int64, struct{}]
	router shardRouter
	size   atomic.Int64
}

// NewShardedLongSet returns an empty set sized for the configured
// concurrency.
func NewShardedLongSet(options ...func(*Config)) *ShardedLongSet {
	cfg := newConfig(options)
	count := shardCount(cfg.concurrency)
	return &ShardedLongSet{
		shards: newShards[int64, struct{}](count, cfg.sizeHint),
		router: newShardRouter(count),
	}
}

// Add adds value and reports whether it was not present before.
func (s *ShardedLongSet) Add(value int64) bool {
	sh := &s.shards[s.router.forLong(value)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.mapping[value]; ok {
		return false
	}
	sh.mapping[value] = struct{}{}
	s.size.Add(1)
	return true
}

// Contains reports whether value is present.
func (s *ShardedLongSet) Contains(value int64) bool {
	sh := &s.shards[s.router.forLong(value)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.mapping[value]
	return ok
}

// Size returns the number of values.
func (s *ShardedLongSet) Size() int64 {
	return s.size.Load()
}

// Range calls yield for every value until yield returns false. Shards are
// locked one at a time, so values added concurrently may be missed.
func (s *ShardedLongSet) Range(yield func(value int64) bool) {
	for i := range s.shards {
		if !s.rangeShard(&s.shards[i], yield) {
			return
		}
	}
}

func (s *ShardedLongSet) rangeShard(sh *shard[int64, struct{}], yield func(value int64) bool) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for value := range sh.mapping {
		if !yield(value) {
			return false
		}
	}
	return true
}

// ToLongArray returns the values in unspecified order. Writers must be
// quiesced.
func (s *ShardedLongSet) ToLongArray() LongArray {
	out := NewLongArray(s.Size())
	var i int64
	s.Range(func(value int64) bool {
		out.Set(i, value)
		i++
		return true
	})
	return out
}

// Stats returns the distribution of values over the shards. Shards are
// counted one at a time, so the result is approximate under writes.
func (s *ShardedLongSet) Stats() ShardStats {
	counts := make([]int, len(s.shards))
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		counts[i] = len(sh.mapping)
		sh.mu.Unlock()
	}
	return statsOf(counts)
}
