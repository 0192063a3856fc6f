package paged

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

var logger atomic.Pointer[log.Logger]

func init() {
	logger.Store(log.StandardLogger())
}

// SetLogger replaces the logger used for growth and contention events.
// A nil logger restores the logrus standard logger.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.StandardLogger()
	}
	logger.Store(l)
}

// Logger returns the logger currently in use.
func Logger() *log.Logger {
	return logger.Load()
}

func debugEnabled() bool {
	return logger.Load().IsLevelEnabled(log.DebugLevel)
}
