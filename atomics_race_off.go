//go:build !race

package paged

import (
	"math/bits"
	"runtime"
	"sync/atomic"
)

// Detect TSO architectures; on TSO, plain reads of native word-sized
// integers are safe for the quiescent bulk scans.
const isTSO = runtime.GOARCH == "amd64" ||
	runtime.GOARCH == "386" ||
	runtime.GOARCH == "s390x"

// loadWordQuiescent reads a word that no goroutine is writing right now.
// Bulk scans (cardinality, set-bit iteration) require writers to be
// quiesced, so on TSO a plain load is enough.
//
//go:nosplit
func loadWordQuiescent(addr *uint64) uint64 {
	//goland:noinspection ALL
	if isTSO && bits.UintSize >= 64 {
		return *addr
	} else {
		return atomic.LoadUint64(addr)
	}
}

// storeWordUnpublished writes to memory that is not yet visible to other
// goroutines, e.g. a page that is being filled before publication.
//
//go:nosplit
func storeWordUnpublished(addr *uint64, val uint64) {
	*addr = val
}
