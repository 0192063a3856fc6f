package paged

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Structure labels used by metrics, spans and log fields.
const (
	structLongLongMap         = "long_long_map"
	structGrowingBitSet       = "growing_bitset"
	structLongArrayBuilder    = "long_array_builder"
	structShardedLongLongMap  = "sharded_long_long_map"
	structShardedByteArrayMap = "sharded_byte_array_long_map"
	structShardedLongSet      = "sharded_long_set"
	structSparseLongArray     = "sparse_long_array"
	structMergeSort           = "merge_sort"
	structAtomicArray         = "atomic_array"
	structAtomicBitSet        = "atomic_bitset"
)

var (
	// allocatedBytes tracks the bytes currently held by live arrays.
	allocatedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paged_allocated_bytes",
		Help: "Bytes currently held by huge arrays that have not been released",
	})

	// growthTotal counts growth events of dynamically sized structures.
	growthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paged_growth_total",
		Help: "Growth events of dynamically sized structures",
	}, []string{"structure"})

	// casBackoffTotal counts CAS loops that exceeded the spin limit.
	casBackoffTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paged_cas_backoff_total",
		Help: "CAS update loops that exceeded the spin limit and started yielding",
	}, []string{"structure"})
)

func trackAllocation(bytes int64) {
	allocatedBytes.Add(float64(bytes))
}

func trackRelease(bytes int64) {
	if bytes != 0 {
		allocatedBytes.Sub(float64(bytes))
	}
}

// Package-level tracer and meter for parallel build operations.
var (
	tracer = otel.Tracer("github.com/llxisdsh/paged")
	meter  = otel.Meter("github.com/llxisdsh/paged")
)

var (
	buildDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the otel instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		buildDuration, metricsErr = meter.Float64Histogram(
			"paged_build_duration_seconds",
			metric.WithDescription("Duration of parallel build and sort operations"),
			metric.WithUnit("s"),
		)
	})
	return metricsErr
}

// recordBuild records the duration of a build of the given structure.
func recordBuild(ctx context.Context, structure string, started time.Time) {
	if err := initMetrics(); err != nil {
		return
	}
	buildDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.String("structure", structure)),
	)
}
