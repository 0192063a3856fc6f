package paged

import (
	"math"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicLongArray_GetAndAddContention(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const iterations = 10000
			workers := max(4, runtime.GOMAXPROCS(0))
			a := newAtomicLongArray(PageSize+2, PassThrough[int64](1), layout.paged)
			defer a.Release()

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range iterations {
						a.GetAndAdd(PageSize, 1)
						a.Update(PageSize+1, func(v int64) int64 { return v + 2 })
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int64(workers*iterations), a.Get(PageSize))
			assert.Equal(t, int64(2*workers*iterations), a.Get(PageSize+1))
			assert.Equal(t, int64(0), a.Get(PageSize-1))
		})
	}
}

func TestAtomicDoubleArray_GetAndAddContention(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const iterations = 10000
			workers := max(4, runtime.GOMAXPROCS(0))
			a := newAtomicDoubleArray(3, PassThrough[float64](1), layout.paged)
			defer a.Release()

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range iterations {
						a.GetAndAdd(1, 1)
					}
				}()
			}
			wg.Wait()
			// small integers are exact in float64, compare the bits
			want := math.Float64bits(float64(workers * iterations))
			assert.Equal(t, want, math.Float64bits(a.Get(1)))
		})
	}
}

func TestAtomicByteArray_GetAndAddContention(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const iterations = 1000
			workers := max(4, runtime.GOMAXPROCS(0))
			a := newAtomicByteArray(9, PassThrough[uint8](1), layout.paged)
			defer a.Release()

			// neighbours in the same word are updated concurrently too
			var wg sync.WaitGroup
			for w := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range iterations {
						a.GetAndAdd(4, 1)
						a.GetAndAdd(int64(5+w%4), 1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, uint8(workers*iterations), a.Get(4))
			var neighbours int
			for i := int64(5); i < 9; i++ {
				neighbours += int(a.Get(i))
			}
			assert.Equal(t, uint8(workers*iterations), uint8(neighbours))
			assert.Equal(t, uint8(0), a.Get(3))
		})
	}
}

func TestAtomicByteArray_Operations(t *testing.T) {
	a := NewAtomicByteArray(11)
	a.Set(10, 200)
	a.Set(9, 1)
	assert.Equal(t, uint8(200), a.Get(10))
	assert.Equal(t, uint8(200), a.GetAndAdd(10, 100))
	assert.Equal(t, uint8(44), a.Get(10), "wraps on overflow")
	assert.Equal(t, uint8(1), a.Get(9))

	assert.True(t, a.CompareAndSet(9, 1, 7))
	assert.False(t, a.CompareAndSet(9, 1, 8))
	assert.Equal(t, uint8(7), a.CompareAndExchange(9, 3, 4))
	assert.Equal(t, uint8(7), a.CompareAndExchange(9, 7, 4))
	assert.Equal(t, uint8(4), a.GetAndReplace(9, 0xFF))
	a.Update(9, func(v uint8) uint8 { return v >> 4 })
	assert.Equal(t, uint8(0x0F), a.Get(9))
	assert.Equal(t, uint8(44), a.Get(10))

	_, err := a.GetChecked(11)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAtomicLongArray_Operations(t *testing.T) {
	a := NewAtomicLongArray(4, Identity[int64](1))
	assert.Equal(t, int64(3), a.Get(3))
	assert.Equal(t, int64(2), a.GetAndAdd(2, 10))
	assert.Equal(t, int64(12), a.GetAndReplace(2, 5))
	assert.True(t, a.CompareAndSet(2, 5, 6))
	assert.Equal(t, int64(6), a.CompareAndExchange(2, 0, 1))
	assert.Equal(t, int64(6), a.CompareAndExchange(2, 6, 1))
	assert.Equal(t, int64(1), a.Get(2))

	a.SetAll(9)
	dst := NewAtomicLongArray(6)
	dst.SetAll(1)
	a.CopyTo(dst, 2)
	c := dst.NewCursor()
	defer c.Close()
	var values []int64
	for c.Next() {
		values = append(values, c.Array()[c.Offset():c.Limit()]...)
	}
	assert.Equal(t, []int64{9, 9, 0, 0, 0, 0}, values)
}

func TestAtomicDoubleArray_BitSemantics(t *testing.T) {
	a := NewAtomicDoubleArray(2)
	nan := math.NaN()

	a.Set(0, nan)
	// NaN != NaN, but the bit patterns match
	assert.True(t, a.CompareAndSet(0, nan, 1.5))
	assert.Equal(t, 1.5, a.Get(0))

	negZero := math.Copysign(0, -1)
	assert.False(t, a.CompareAndSet(1, negZero, 2), "+0 and -0 differ in bits")
	a.Set(1, negZero)
	assert.Equal(t, math.Float64bits(negZero), math.Float64bits(a.CompareAndExchange(1, 0, 3)))
	assert.True(t, a.CompareAndSet(1, negZero, 3))

	a.Update(1, func(v float64) float64 { return v * 2 })
	assert.Equal(t, 6.0, a.GetAndReplace(1, 0))
}

func TestAtomicArray_Release(t *testing.T) {
	a := NewAtomicLongArray(10)
	want := sizeOfElements[int64](10)
	assert.Equal(t, want, a.SizeOf())
	assert.Equal(t, want, a.Release())
	assert.Equal(t, int64(0), a.Release())

	_, err := a.GetChecked(0)
	assert.ErrorIs(t, err, ErrReleased)
	assert.Panics(t, func() { a.SetAll(1) })
}

func TestAtomicArray_MemoryEstimation(t *testing.T) {
	require.Equal(t,
		SizeOfInstance[AtomicLongArray]()+SizeOfObjectArray(1)+SizeOfLongArray(100),
		AtomicLongArrayMemoryEstimation(100))
	require.Equal(t,
		SizeOfInstance[AtomicByteArray]()+pagedMemoryOfData[uint8](maxArrayLength+1),
		AtomicByteArrayMemoryEstimation(maxArrayLength+1))
	require.Equal(t,
		AtomicLongArrayMemoryEstimation(100)-SizeOfInstance[AtomicLongArray](),
		AtomicDoubleArrayMemoryEstimation(100)-SizeOfInstance[AtomicDoubleArray]())
}

func BenchmarkAtomicLongArray_GetAndAdd(b *testing.B) {
	a := NewAtomicLongArray(1024)
	b.RunParallel(func(pb *testing.PB) {
		var i int64
		for pb.Next() {
			a.GetAndAdd(i&1023, 1)
			i++
		}
	})
}

func TestAtomicArray_SetChecked(t *testing.T) {
	longs := NewAtomicLongArray(3)
	require.NoError(t, longs.SetChecked(2, 42))
	assert.Equal(t, int64(42), longs.Get(2))
	assert.ErrorIs(t, longs.SetChecked(3, 1), ErrIndexOutOfRange)
	assert.ErrorIs(t, longs.SetChecked(-1, 1), ErrIndexOutOfRange)

	doubles := NewAtomicDoubleArray(3)
	require.NoError(t, doubles.SetChecked(0, 2.5))
	assert.Equal(t, 2.5, doubles.Get(0))
	assert.ErrorIs(t, doubles.SetChecked(3, 1), ErrIndexOutOfRange)

	bytes := NewAtomicByteArray(5)
	require.NoError(t, bytes.SetChecked(4, 0xAB))
	assert.Equal(t, uint8(0xAB), bytes.Get(4))
	assert.Equal(t, uint8(0), bytes.Get(3), "neighbours in the same word are untouched")
	assert.ErrorIs(t, bytes.SetChecked(5, 1), ErrIndexOutOfRange)

	longs.Release()
	doubles.Release()
	bytes.Release()
	assert.ErrorIs(t, longs.SetChecked(0, 1), ErrReleased)
	assert.ErrorIs(t, doubles.SetChecked(0, 1), ErrReleased)
	assert.ErrorIs(t, bytes.SetChecked(0, 1), ErrReleased)
}
