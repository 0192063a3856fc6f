package paged

import (
	"runtime"
)

const (
	// defaultExpectedElements is the initial capacity hint of hash-based
	// structures when no presize is given.
	defaultExpectedElements = 4
)

// Config defines configurable options of the concurrent builders.
type Config struct {
	concurrency int
	sizeHint    int64
}

// WithConcurrency configures the number of goroutines expected to write
// concurrently, and the parallelism of builds. Values below 1 are ignored.
func WithConcurrency(concurrency int) func(*Config) {
	return func(c *Config) {
		if concurrency > 0 {
			c.concurrency = concurrency
		}
	}
}

// WithPresize configures the number of elements expected to be stored.
// If sizeHint is zero or negative, the value is ignored.
func WithPresize(sizeHint int64) func(*Config) {
	return func(c *Config) {
		if sizeHint > 0 {
			c.sizeHint = sizeHint
		}
	}
}

func newConfig(options []func(*Config)) Config {
	cfg := Config{
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}
