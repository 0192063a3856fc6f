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

// ShardedByteArrayLongMap maps byte-string ids to dense ids in [0, Size()).
// It is built once by a ShardedByteArrayLongMapBuilder and is read-only
// afterwards.
type ShardedByteArrayLongMap struct {
	internalNodeMapping ObjectArray[[]byte]
	shards              []shard[string, int64]
	router              shardRouter
}

// ToMappedNodeID returns the dense id of key, or NotFound.
func (m *ShardedByteArrayLongMap) ToMappedNodeID(key []byte) int64 {
	if id, ok := m.shards[m.router.forBytes(key)].mapping[string(key)]; ok {
		return id
	}
	return NotFound
}

// ToOriginalNodeID returns the key of mappedID. The returned slice must
// not be modified.
func (m *ShardedByteArrayLongMap) ToOriginalNodeID(mappedID int64) []byte {
	return m.internalNodeMapping.Get(mappedID)
}

// Contains reports whether key was added.
func (m *ShardedByteArrayLongMap) Contains(key []byte) bool {
	_, ok := m.shards[m.router.forBytes(key)].mapping[string(key)]
	return ok
}

// Size returns the number of dense ids.
func (m *ShardedByteArrayLongMap) Size() int64 {
	return m.internalNodeMapping.Size()
}

// Stats returns the distribution of ids over the shards.
func (m *ShardedByteArrayLongMap) Stats() ShardStats {
	return shardStats(m.shards)
}

// ShardedByteArrayLongMapBuilder assigns dense ids to byte-string ids as
// they are added, from any number of goroutines.
type ShardedByteArrayLongMapBuilder struct {
	shards  []shard[string, int64]
	router  shardRouter
	counter *idCounter
	cfg     Config
}

// NewShardedByteArrayLongMapBuilder returns a builder sized for the
// configured concurrency.
func NewShardedByteArrayLongMapBuilder(options ...func(*Config)) *ShardedByteArrayLongMapBuilder {
	cfg := newConfig(options)
	count := shardCount(cfg.concurrency)
	return &ShardedByteArrayLongMapBuilder{
		shards:  newShards[string, int64](count, cfg.sizeHint),
		router:  newShardRouter(count),
		counter: &idCounter{},
		cfg:     cfg,
	}
}

// AddNode assigns the next dense id to key and returns it. If key was
// added before, it returns -(id)-1 for its existing id. The key is copied.
func (b *ShardedByteArrayLongMapBuilder) AddNode(key []byte) int64 {
	return addToShard(&b.shards[b.router.forBytes(key)], string(key), b.nextID)
}

func (b *ShardedByteArrayLongMapBuilder) nextID() int64 {
	return b.counter.next.Add(1) - 1
}

// Build freezes the added ids into a ShardedByteArrayLongMap. The builder
// must not be used afterwards.
func (b *ShardedByteArrayLongMapBuilder) Build(ctx context.Context) (*ShardedByteArrayLongMap, error) {
	started := time.Now()
	nodeCount := b.counter.next.Load()
	ctx, span := tracer.Start(ctx, "paged.ShardedByteArrayLongMap.Build",
		trace.WithAttributes(
			attribute.Int64("nodes", nodeCount),
			attribute.Int("shards", len(b.shards)),
		),
	)
	defer span.End()

	mapping := NewObjectArray[[]byte](nodeCount)
	err := forEachChunk(ctx, len(b.shards), 1, b.cfg.concurrency, func(start, end int) error {
		for i := start; i < end; i++ {
			for key, mappedID := range b.shards[i].mapping {
				mapping.Set(mappedID, []byte(key))
			}
		}
		return nil
	})
	if err != nil {
		mapping.Release()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "build sharded byte array map")
	}

	recordBuild(ctx, structShardedByteArrayMap, started)
	if debugEnabled() {
		Logger().WithFields(log.Fields{
			"structure": structShardedByteArrayMap,
			"nodes":     nodeCount,
			"took":      time.Since(started),
		}).Debug("id map built")
	}
	return &ShardedByteArrayLongMap{
		internalNodeMapping: mapping,
		shards:              b.shards,
		router:              b.router,
	}, nil
}
