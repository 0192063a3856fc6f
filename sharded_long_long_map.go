package paged

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ShardedLongLongMap maps sparse original ids to dense ids in [0, Size()).
// It is built once by a ShardedLongLongMapBuilder and is read-only
// afterwards, so it is safe for concurrent use.
type ShardedLongLongMap struct {
	internalNodeMapping LongArray
	shards              []shard[int64, int64]
	router              shardRouter
	maxOriginalID       int64
}

// ToMappedNodeID returns the dense id of originalID, or NotFound.
func (m *ShardedLongLongMap) ToMappedNodeID(originalID int64) int64 {
	s := &m.shards[m.router.forLong(originalID)]
	if id, ok := s.mapping[originalID]; ok {
		return id
	}
	return NotFound
}

// ToOriginalNodeID returns the original id of mappedID. Ids reserved by a
// batch but never assigned map to NotFound.
func (m *ShardedLongLongMap) ToOriginalNodeID(mappedID int64) int64 {
	return m.internalNodeMapping.Get(mappedID)
}

// Contains reports whether originalID was added.
func (m *ShardedLongLongMap) Contains(originalID int64) bool {
	_, ok := m.shards[m.router.forLong(originalID)].mapping[originalID]
	return ok
}

// Size returns the number of dense ids.
func (m *ShardedLongLongMap) Size() int64 {
	return m.internalNodeMapping.Size()
}

// MaxOriginalID returns the largest original id added, or NotFound if the
// map is empty.
func (m *ShardedLongLongMap) MaxOriginalID() int64 {
	return m.maxOriginalID
}

// Stats returns the distribution of ids over the shards.
func (m *ShardedLongLongMap) Stats() ShardStats {
	return shardStats(m.shards)
}

// ShardedLongLongMapBuilder assigns dense ids to original ids as they are
// added, from any number of goroutines.
type ShardedLongLongMapBuilder struct {
	shards  []shard[int64, int64]
	router  shardRouter
	counter *idCounter
	cfg     Config
}

// NewShardedLongLongMapBuilder returns a builder sized for the configured
// concurrency.
func NewShardedLongLongMapBuilder(options ...func(*Config)) *ShardedLongLongMapBuilder {
	cfg := newConfig(options)
	count := shardCount(cfg.concurrency)
	return &ShardedLongLongMapBuilder{
		shards:  newShards[int64, int64](count, cfg.sizeHint),
		router:  newShardRouter(count),
		counter: &idCounter{},
		cfg:     cfg,
	}
}

// AddNode assigns the next dense id to originalID and returns it. If
// originalID was added before, it returns -(id)-1 for its existing id.
func (b *ShardedLongLongMapBuilder) AddNode(originalID int64) int64 {
	return addToShard(&b.shards[b.router.forLong(originalID)], originalID, b.nextID)
}

func (b *ShardedLongLongMapBuilder) nextID() int64 {
	return b.counter.next.Add(1) - 1
}

// Build freezes the added ids into a ShardedLongLongMap. The builder must
// not be used afterwards.
func (b *ShardedLongLongMapBuilder) Build(ctx context.Context) (*ShardedLongLongMap, error) {
	return buildLongLongMap(ctx, b.shards, b.router, b.counter.next.Load(), b.cfg, nil)
}

// ShardedLongLongMapBatchedBuilder assigns dense ids from ranges reserved
// per batch, so writers only contend on the shard locks.
type ShardedLongLongMapBatchedBuilder struct {
	ShardedLongLongMapBuilder
}

// NewShardedLongLongMapBatchedBuilder returns a batched builder sized for
// the configured concurrency.
func NewShardedLongLongMapBatchedBuilder(options ...func(*Config)) *ShardedLongLongMapBatchedBuilder {
	return &ShardedLongLongMapBatchedBuilder{*NewShardedLongLongMapBuilder(options...)}
}

// PrepareBatch reserves nodeCount consecutive dense ids for one batch.
func (b *ShardedLongLongMapBatchedBuilder) PrepareBatch(nodeCount int64) *LongLongMapBatch {
	start := b.counter.next.Add(nodeCount) - nodeCount
	return &LongLongMapBatch{
		shards: b.shards,
		router: b.router,
		next:   start,
		end:    start + nodeCount,
	}
}

// Build freezes the added ids into a ShardedLongLongMap. Reserved ids that
// were never assigned, because a batch saw duplicates or was not filled,
// map back to NotFound.
func (b *ShardedLongLongMapBatchedBuilder) Build(ctx context.Context) (*ShardedLongLongMap, error) {
	gaps := FromGenerator(b.cfg.concurrency, func(int64) int64 { return NotFound })
	return buildLongLongMap(ctx, b.shards, b.router, b.counter.next.Load(), b.cfg, gaps)
}

// LongLongMapBatch hands out the dense ids reserved by PrepareBatch.
// A batch is used by one goroutine at a time.
type LongLongMapBatch struct {
	shards []shard[int64, int64]
	router shardRouter
	next   int64
	end    int64
}

// AddNode assigns the next reserved id to originalID and returns it. If
// originalID was added before, it returns -(id)-1 and consumes no id.
// Adding more new ids than reserved panics with ErrFull.
func (batch *LongLongMapBatch) AddNode(originalID int64) int64 {
	return addToShard(&batch.shards[batch.router.forLong(originalID)], originalID, batch.nextID)
}

// Remaining returns the number of reserved ids not yet assigned.
func (batch *LongLongMapBatch) Remaining() int64 {
	return batch.end - batch.next
}

func (batch *LongLongMapBatch) nextID() int64 {
	if batch.next >= batch.end {
		panic(errors.Wrapf(ErrFull, "batch ending at id %d exhausted", batch.end))
	}
	id := batch.next
	batch.next++
	return id
}

func buildLongLongMap(
	ctx context.Context,
	shards []shard[int64, int64],
	router shardRouter,
	nodeCount int64,
	cfg Config,
	creator *PageCreator[int64],
) (*ShardedLongLongMap, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "paged.ShardedLongLongMap.Build",
		trace.WithAttributes(
			attribute.Int64("nodes", nodeCount),
			attribute.Int("shards", len(shards)),
			attribute.Int("concurrency", cfg.concurrency),
		),
	)
	defer span.End()

	mapping := NewLongArray(nodeCount, creator)
	maxIDs := make([]int64, len(shards))
	err := forEachChunk(ctx, len(shards), 1, cfg.concurrency, func(start, end int) error {
		for i := start; i < end; i++ {
			maxID := int64(NotFound)
			for originalID, mappedID := range shards[i].mapping {
				mapping.Set(mappedID, originalID)
				maxID = max(maxID, originalID)
			}
			maxIDs[i] = maxID
		}
		return nil
	})
	if err != nil {
		mapping.Release()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "build sharded long map")
	}

	maxOriginalID := int64(NotFound)
	for _, id := range maxIDs {
		maxOriginalID = max(maxOriginalID, id)
	}

	recordBuild(ctx, structShardedLongLongMap, started)
	span.SetAttributes(attribute.Int64("max_original_id", maxOriginalID))
	if debugEnabled() {
		Logger().WithFields(log.Fields{
			"structure": structShardedLongLongMap,
			"nodes":     nodeCount,
			"memory":    HumanReadable(mapping.SizeOf()),
			"took":      time.Since(started),
		}).Debug("id map built")
	}
	return &ShardedLongLongMap{
		internalNodeMapping: mapping,
		shards:              shards,
		router:              router,
		maxOriginalID:       maxOriginalID,
	}, nil
}
