//go:build race

package paged

import (
	"sync/atomic"
)

// Under race detector, disable TSO optimizations and use conservative
// atomic loads/stores
const isTSO = false

// Conservative: atomic load to satisfy race detector
//
//go:nosplit
func loadWordQuiescent(addr *uint64) uint64 {
	return atomic.LoadUint64(addr)
}

// Conservative: atomic store to satisfy race detector
//
//go:nosplit
func storeWordUnpublished(addr *uint64, val uint64) {
	atomic.StoreUint64(addr, val)
}
