package paged

import (
	"github.com/pkg/errors"
)

// LongArrayStack is a fixed-capacity LIFO stack of int64 backed by a
// LongArray. It is not safe for concurrent use.
type LongArrayStack struct {
	array    LongArray
	capacity int64
	size     int64
}

// NewLongArrayStack returns an empty stack holding up to capacity values.
func NewLongArrayStack(capacity int64) *LongArrayStack {
	return &LongArrayStack{
		array:    NewLongArray(capacity),
		capacity: capacity,
	}
}

// LongArrayStackMemoryEstimation returns the bytes a stack of the given
// capacity allocates.
func LongArrayStackMemoryEstimation(capacity int64) int64 {
	return SizeOfInstance[LongArrayStack]() + MemoryEstimation[int64](capacity)
}

// Push adds v on top of the stack, or returns ErrFull.
func (s *LongArrayStack) Push(v int64) error {
	if s.size == s.capacity {
		return errors.Wrapf(ErrFull, "stack capacity %d", s.capacity)
	}
	s.array.Set(s.size, v)
	s.size++
	return nil
}

// Pop removes and returns the top value, or returns ErrEmpty.
func (s *LongArrayStack) Pop() (int64, error) {
	if s.size == 0 {
		return 0, errors.Wrap(ErrEmpty, "pop")
	}
	s.size--
	return s.array.Get(s.size), nil
}

// Peek returns the top value without removing it, or returns ErrEmpty.
func (s *LongArrayStack) Peek() (int64, error) {
	if s.size == 0 {
		return 0, errors.Wrap(ErrEmpty, "peek")
	}
	return s.array.Get(s.size - 1), nil
}

// Size returns the number of values on the stack.
func (s *LongArrayStack) Size() int64 {
	return s.size
}

// IsEmpty reports whether the stack holds no value.
func (s *LongArrayStack) IsEmpty() bool {
	return s.size == 0
}

// Release drops the backing array and returns the bytes freed.
func (s *LongArrayStack) Release() int64 {
	s.size = 0
	s.capacity = 0
	return s.array.Release()
}

// LongArrayQueue is a fixed-capacity FIFO queue of int64 backed by a
// LongArray used as a ring buffer. It is not safe for concurrent use.
type LongArrayQueue struct {
	array    LongArray
	capacity int64
	head     int64
	size     int64
}

// NewLongArrayQueue returns an empty queue holding up to capacity values.
func NewLongArrayQueue(capacity int64) *LongArrayQueue {
	return &LongArrayQueue{
		array:    NewLongArray(capacity),
		capacity: capacity,
	}
}

// LongArrayQueueMemoryEstimation returns the bytes a queue of the given
// capacity allocates.
func LongArrayQueueMemoryEstimation(capacity int64) int64 {
	return SizeOfInstance[LongArrayQueue]() + MemoryEstimation[int64](capacity)
}

// Add appends v at the tail of the queue, or returns ErrFull.
func (q *LongArrayQueue) Add(v int64) error {
	if q.size == q.capacity {
		return errors.Wrapf(ErrFull, "queue capacity %d", q.capacity)
	}
	tail := q.head + q.size
	if tail >= q.capacity {
		tail -= q.capacity
	}
	q.array.Set(tail, v)
	q.size++
	return nil
}

// Remove removes and returns the head value, or returns ErrEmpty.
func (q *LongArrayQueue) Remove() (int64, error) {
	if q.size == 0 {
		return 0, errors.Wrap(ErrEmpty, "remove")
	}
	v := q.array.Get(q.head)
	q.head++
	if q.head == q.capacity {
		q.head = 0
	}
	q.size--
	return v, nil
}

// Peek returns the head value without removing it, or returns ErrEmpty.
func (q *LongArrayQueue) Peek() (int64, error) {
	if q.size == 0 {
		return 0, errors.Wrap(ErrEmpty, "peek")
	}
	return q.array.Get(q.head), nil
}

// Size returns the number of queued values.
func (q *LongArrayQueue) Size() int64 {
	return q.size
}

// IsEmpty reports whether the queue holds no value.
func (q *LongArrayQueue) IsEmpty() bool {
	return q.size == 0
}

// Release drops the backing array and returns the bytes freed.
func (q *LongArrayQueue) Release() int64 {
	q.head, q.size, q.capacity = 0, 0, 0
	return q.array.Release()
}
