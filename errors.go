package paged

import (
	"github.com/pkg/errors"
)

// Sentinel errors returned by the checked accessors and the fixed-capacity
// helpers. Use errors.Is to test for them, call sites wrap them with the
// offending index and size.
var (
	// ErrIndexOutOfRange is returned when an index is negative or not
	// smaller than the size of the collection.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrReleased is returned when a collection is accessed after Release.
	ErrReleased = errors.New("collection has been released")

	// ErrEmpty is returned when popping or peeking an empty stack or queue.
	ErrEmpty = errors.New("collection is empty")

	// ErrFull is returned when pushing onto a stack or queue at capacity.
	ErrFull = errors.New("collection is full")

	// ErrInvalidCapacity is returned when a requested size is negative or
	// exceeds what the structure can address.
	ErrInvalidCapacity = errors.New("invalid capacity")
)

func indexOutOfRange(index, size int64) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", index, size)
}

func invalidCapacity(capacity int64) error {
	return errors.Wrapf(ErrInvalidCapacity, "capacity %d", capacity)
}

func errReleased() error {
	return errors.WithStack(ErrReleased)
}
