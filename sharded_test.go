package paged

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedLongLongMap_AddNode(t *testing.T) {
	b := NewShardedLongLongMapBuilder(WithConcurrency(2))
	assert.Equal(t, int64(0), b.AddNode(42))
	assert.Equal(t, int64(1), b.AddNode(7))
	// a known id reports its existing mapping as -(id)-1
	assert.Equal(t, int64(-1), b.AddNode(42))
	assert.Equal(t, int64(-2), b.AddNode(7))
	assert.Equal(t, int64(2), b.AddNode(1<<40))

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Size())
	assert.Equal(t, int64(1), m.ToMappedNodeID(7))
	assert.Equal(t, int64(NotFound), m.ToMappedNodeID(8))
	assert.Equal(t, int64(1<<40), m.ToOriginalNodeID(2))
	assert.Equal(t, int64(1<<40), m.MaxOriginalID())
	assert.True(t, m.Contains(42))
	assert.False(t, m.Contains(43))

	stats := m.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, shardCount(2), stats.Shards)
	assert.Contains(t, stats.ToString(), "Size:        3")
}

func TestShardedLongLongMap_Empty(t *testing.T) {
	m, err := NewShardedLongLongMapBuilder().Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Size())
	assert.Equal(t, int64(NotFound), m.MaxOriginalID())
	assert.Equal(t, 0, m.Stats().MinEntries)
}

func TestShardedLongLongMap_Concurrent(t *testing.T) {
	workers := max(4, runtime.GOMAXPROCS(0))
	const perWorker = 5000
	b := NewShardedLongLongMapBuilder(WithConcurrency(workers), WithPresize(perWorker))

	// every worker adds the same ids, so each id is new exactly once
	var wg sync.WaitGroup
	newIDs := make([][]int64, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(0); i < perWorker; i++ {
				if id := b.AddNode(i * 1_000_003); id >= 0 {
					newIDs[w] = append(newIDs[w], id)
				}
			}
		}()
	}
	wg.Wait()

	var all []int64
	for _, ids := range newIDs {
		all = append(all, ids...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	require.Len(t, all, perWorker)
	for i, id := range all {
		require.Equal(t, int64(i), id, "dense ids without gaps")
	}

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	for i := int64(0); i < perWorker; i++ {
		original := i * 1_000_003
		mapped := m.ToMappedNodeID(original)
		require.Equal(t, original, m.ToOriginalNodeID(mapped))
	}
	assert.Equal(t, int64((perWorker-1)*1_000_003), m.MaxOriginalID())
}

func TestShardedLongLongMap_Batched(t *testing.T) {
	b := NewShardedLongLongMapBatchedBuilder(WithConcurrency(4))
	first := b.PrepareBatch(3)
	second := b.PrepareBatch(2)

	assert.Equal(t, int64(3), second.AddNode(100))
	assert.Equal(t, int64(0), first.AddNode(5))
	// duplicates consume no reserved id
	assert.Equal(t, int64(-4), first.AddNode(100))
	assert.Equal(t, int64(1), first.AddNode(6))
	assert.Equal(t, int64(1), first.Remaining())
	assert.Equal(t, int64(4), second.AddNode(101))
	assert.Equal(t, int64(0), second.Remaining())
	assert.PanicsWithError(t, "batch ending at id 5 exhausted: collection is full", func() {
		second.AddNode(102)
	})

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.Size())
	assert.Equal(t, int64(5), m.ToOriginalNodeID(0))
	assert.Equal(t, int64(6), m.ToOriginalNodeID(1))
	assert.Equal(t, int64(NotFound), m.ToOriginalNodeID(2), "reserved but unused")
	assert.Equal(t, int64(100), m.ToOriginalNodeID(3))
	assert.Equal(t, int64(101), m.ToOriginalNodeID(4))
	assert.Equal(t, int64(101), m.MaxOriginalID())
}

func TestShardedLongLongMap_BuildCancelled(t *testing.T) {
	b := NewShardedLongLongMapBuilder(WithConcurrency(4))
	for i := int64(0); i < 1000; i++ {
		b.AddNode(i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestShardedByteArrayLongMap(t *testing.T) {
	b := NewShardedByteArrayLongMapBuilder(WithConcurrency(2))
	key := []byte("alpha")
	assert.Equal(t, int64(0), b.AddNode(key))
	key[0] = 'A' // the builder keeps its own copy
	assert.Equal(t, int64(1), b.AddNode([]byte("beta")))
	assert.Equal(t, int64(-1), b.AddNode([]byte("alpha")))
	assert.Equal(t, int64(2), b.AddNode(key))

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Size())
	assert.Equal(t, int64(0), m.ToMappedNodeID([]byte("alpha")))
	assert.Equal(t, int64(2), m.ToMappedNodeID([]byte("Alpha")))
	assert.Equal(t, int64(NotFound), m.ToMappedNodeID([]byte("gamma")))
	assert.Equal(t, []byte("beta"), m.ToOriginalNodeID(1))
	assert.True(t, m.Contains([]byte("beta")))
	assert.Equal(t, 3, m.Stats().Size)
}

func TestShardedByteArrayLongMap_Concurrent(t *testing.T) {
	workers := max(4, runtime.GOMAXPROCS(0))
	const keys = 2000
	b := NewShardedByteArrayLongMapBuilder(WithConcurrency(workers))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range keys {
				b.AddNode([]byte(fmt.Sprintf("node-%d", i)))
			}
		}()
	}
	wg.Wait()

	m, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(keys), m.Size())
	for i := range keys {
		key := []byte(fmt.Sprintf("node-%d", i))
		require.Equal(t, key, m.ToOriginalNodeID(m.ToMappedNodeID(key)))
	}
}

func TestShardedLongSet(t *testing.T) {
	workers := max(4, runtime.GOMAXPROCS(0))
	const values = 3000
	s := NewShardedLongSet(WithConcurrency(workers))

	var wg sync.WaitGroup
	added := make([]int, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(0); i < values; i++ {
				if s.Add(i - values/2) {
					added[w]++
				}
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, n := range added {
		total += n
	}
	assert.Equal(t, values, total, "every value is new exactly once")
	assert.Equal(t, int64(values), s.Size())
	assert.True(t, s.Contains(-values/2))
	assert.False(t, s.Contains(values))

	arr := s.ToLongArray()
	sorted := arr.ToSlice()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, v := range sorted {
		require.Equal(t, int64(i-values/2), v)
	}

	stats := s.Stats()
	assert.Equal(t, values, stats.Size)
	assert.LessOrEqual(t, stats.MinEntries, stats.MaxEntries)

	seen := 0
	s.Range(func(int64) bool {
		seen++
		return seen < 10
	})
	assert.Equal(t, 10, seen)
}

func TestShardRouter(t *testing.T) {
	for _, concurrency := range []int{1, 3, 8, 100} {
		count := shardCount(concurrency)
		require.True(t, isPowerOfTwo(int64(count)))
		r := newShardRouter(count)
		hits := make([]int, count)
		for key := int64(0); key < int64(count)*64; key++ {
			idx := r.forLong(key)
			require.Less(t, idx, count)
			hits[idx]++
			require.Less(t, r.forBytes([]byte(fmt.Sprint(key))), count)
		}
		for idx, n := range hits {
			assert.NotZero(t, n, "shard %d of %d never used", idx, count)
		}
	}
}

func TestShardRouter_RejectsUnevenCounts(t *testing.T) {
	for _, count := range []int{0, 3, 12, 100} {
		assert.Panics(t, func() { newShardRouter(count) }, "count %d", count)
	}
	assert.NotPanics(t, func() { newShardRouter(1) })
	assert.Equal(t, 0, newShardRouter(1).forLong(12345))
}

func BenchmarkShardedLongLongMapBuilder_AddNode(b *testing.B) {
	builder := NewShardedLongLongMapBuilder()
	b.RunParallel(func(pb *testing.PB) {
		var i int64
		for pb.Next() {
			builder.AddNode(i)
			i++
		}
	})
}
