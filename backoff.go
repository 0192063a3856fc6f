package paged

import (
	"runtime"

	log "github.com/sirupsen/logrus"
)

// casSpinLimit is the number of failed CAS attempts on one element after
// which an update loop starts yielding the processor between attempts.
// Update loops never give up; the cap only bounds busy spinning.
const casSpinLimit = 64

// casBackoff tracks failed attempts of a single CAS update loop.
type casBackoff struct {
	failures  int
	structure string
}

// fail records a lost CAS race and yields once the spin limit is reached.
func (b *casBackoff) fail(index int64) {
	b.failures++
	if b.failures < casSpinLimit {
		return
	}
	if b.failures == casSpinLimit {
		casBackoffTotal.WithLabelValues(b.structure).Inc()
		if debugEnabled() {
			Logger().WithFields(log.Fields{
				"structure": b.structure,
				"index":     index,
				"attempts":  b.failures,
			}).Debug("cas update contended, yielding")
		}
	}
	runtime.Gosched()
}
