// Package paged provides huge primitive collections addressed by 64-bit
// indices.
//
// Arrays up to 1<<28 elements live in a single slice; larger arrays are
// split into pages of PageSize elements, so that no single allocation has
// to hold the whole array. On top of the arrays the package offers atomic
// arrays and bit sets for concurrent writers, an open-addressing
// LongLongMap, sharded id maps that assign dense ids to sparse original
// ids, a SparseLongArray for compact id mapping over a bounded universe,
// a parallel merge sort, and fixed-capacity stacks and queues.
//
// Every structure reports the bytes it holds through SizeOf and a matching
// MemoryEstimation function, and the live total is exported as the
// paged_allocated_bytes prometheus gauge.
package paged
