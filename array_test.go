package paged

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSizes = []int64{0, 1, 7, PageSize - 1, PageSize, PageSize + 1, 3*PageSize + 7}

// layouts builds the same long array in both representations.
var layouts = []struct {
	name  string
	paged bool
}{
	{"single", false},
	{"paged", true},
}

func TestArray_RoundTrip(t *testing.T) {
	for _, layout := range layouts {
		for _, size := range testSizes {
			t.Run(fmt.Sprintf("%s/%d", layout.name, size), func(t *testing.T) {
				a := newIntegerArray[int64](size, nil, layout.paged)
				defer a.Release()
				require.Equal(t, size, a.Size())
				for i := int64(0); i < size; i++ {
					a.Set(i, i*3+1)
				}
				for i := int64(0); i < size; i++ {
					if got := a.Get(i); got != i*3+1 {
						t.Fatalf("Get(%d) = %d, want %d", i, got, i*3+1)
					}
				}
			})
		}
	}
}

func TestArray_RepresentationThreshold(t *testing.T) {
	assert.IsType(t, singleIntegerArray[uint8]{}, NewByteArray(0))
	assert.IsType(t, singleIntegerArray[uint8]{}, NewByteArray(1))

	// the estimation is pure arithmetic, so the threshold itself can be
	// checked without allocating it
	assert.Equal(t,
		SizeOfInstance[singleArray[int64]]()+SizeOfLongArray(maxArrayLength),
		MemoryEstimation[int64](maxArrayLength))
	assert.Equal(t,
		SizeOfInstance[pagedArray[int64]]()+pagedMemoryOfData[int64](maxArrayLength+1),
		MemoryEstimation[int64](maxArrayLength+1))
}

func TestArray_SingleAndPagedAgree(t *testing.T) {
	const size = 2*PageSize + 123
	single := newIntegerArray[int32](size, Identity[int32](4), false)
	paged := newIntegerArray[int32](size, Identity[int32](4), true)
	defer single.Release()
	defer paged.Release()

	require.Equal(t, single.ToSlice(), paged.ToSlice())
	for _, i := range []int64{0, PageSize - 1, PageSize, size - 1} {
		single.AddTo(i, 5)
		paged.AddTo(i, 5)
		single.Or(i, 0x100)
		paged.Or(i, 0x100)
		assert.Equal(t, single.And(i, 0xFFF), paged.And(i, 0xFFF))
		assert.Equal(t, single.Get(i), paged.Get(i))
	}
}

func TestArray_CheckedAccess(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			a := newNumberArray[float64](10, nil, layout.paged)
			require.NoError(t, a.SetChecked(9, 1.5))
			v, err := a.GetChecked(9)
			require.NoError(t, err)
			assert.Equal(t, 1.5, v)

			_, err = a.GetChecked(10)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
			assert.ErrorIs(t, a.SetChecked(-1, 0), ErrIndexOutOfRange)

			a.Release()
			_, err = a.GetChecked(0)
			assert.ErrorIs(t, err, ErrReleased)
			assert.ErrorIs(t, a.SetChecked(0, 1), ErrReleased)
			assert.Panics(t, func() { a.Fill(1) })
			assert.Panics(t, func() { a.ToSlice() })
		})
	}
}

func TestArray_CopyTo(t *testing.T) {
	const (
		srcSize = PageSize + 100
		dstSize = PageSize + 50
	)
	for _, from := range layouts {
		for _, to := range layouts {
			t.Run(from.name+"->"+to.name, func(t *testing.T) {
				src := newIntegerArray[int64](srcSize, nil, from.paged)
				dst := newIntegerArray[int64](dstSize, nil, to.paged)
				defer src.Release()
				defer dst.Release()
				src.Fill(1)
				dst.Fill(7)

				src.CopyTo(dst, srcSize)
				for i := int64(0); i < dstSize; i++ {
					if dst.Get(i) != 1 {
						t.Fatalf("dst[%d] = %d after full copy", i, dst.Get(i))
					}
				}

				const copied = PageSize - 3
				dst.Fill(7)
				src.CopyTo(dst, copied)
				for i := int64(0); i < dstSize; i++ {
					want := int64(0)
					if i < copied {
						want = 1
					}
					if dst.Get(i) != want {
						t.Fatalf("dst[%d] = %d, want %d", i, dst.Get(i), want)
					}
				}
			})
		}
	}
}

func TestArray_CopyOf(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			a := newIntegerArray[int64](5, Identity[int64](1), layout.paged)
			grown := a.CopyOf(8)
			long, ok := grown.(LongArray)
			require.True(t, ok, "CopyOf keeps the element kind")
			assert.Equal(t, []int64{0, 1, 2, 3, 4, 0, 0, 0}, long.ToSlice())

			shrunk := a.CopyOf(2)
			assert.Equal(t, []int64{0, 1}, shrunk.ToSlice())

			objects := newObjectArray[string](3, FromGenerator(1, func(i int64) string {
				return fmt.Sprint("v", i)
			}), layout.paged)
			assert.Equal(t, []string{"v0", "v1", "v2", ""}, objects.CopyOf(4).ToSlice())
		})
	}
}

func TestArray_BinarySearch(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const size = 2*PageSize + 10
			a := newIntegerArray[int64](size, FromGenerator(2, func(i int64) int64 {
				return i * 2
			}), layout.paged)
			defer a.Release()

			assert.Equal(t, int64(0), a.BinarySearch(0))
			assert.Equal(t, int64(PageSize), a.BinarySearch(2*PageSize))
			assert.Equal(t, int64(PageSize), a.BinarySearch(2*PageSize+1))
			assert.Equal(t, int64(size-1), a.BinarySearch(1<<40))
			assert.Equal(t, int64(-1), a.BinarySearch(-5))
		})
	}
}

func TestArray_PageCreator(t *testing.T) {
	const size = 4*PageSize + 3
	a := newIntegerArray[int64](size, Identity[int64](8), true)
	defer a.Release()
	for _, i := range []int64{0, 1, PageSize, 3*PageSize + 1, size - 1} {
		assert.Equal(t, i, a.Get(i))
	}

	squares := NewLongArray(100, FromGenerator(4, func(i int64) int64 { return i * i }))
	assert.Equal(t, int64(81), squares.Get(9))
	assert.Equal(t, 4, FromGenerator(4, func(int64) int64 { return 0 }).Concurrency())

	zeros := NewDoubleArray(3, PassThrough[float64](2))
	assert.Equal(t, []float64{0, 0, 0}, zeros.ToSlice())
}

func TestArray_SetAllAndString(t *testing.T) {
	a := NewIntArray(4)
	a.SetAll(func(i int64) int32 { return int32(10 - i) })
	assert.Equal(t, "[10, 9, 8, 7]", a.String())
	assert.Equal(t, "[1, 2]", LongArrayOf(1, 2).String())
}

func TestArray_Release(t *testing.T) {
	a := NewByteArray(10)
	assert.Equal(t, int64(40), a.SizeOf())
	assert.Equal(t, int64(40), a.Release())
	assert.Equal(t, int64(0), a.Release())
	assert.Equal(t, int64(0), a.SizeOf())

	p := newIntegerArray[uint8](PageSize+1, nil, true)
	want := pagedMemoryOfData[uint8](PageSize + 1)
	assert.Equal(t, want, p.SizeOf())
	assert.Equal(t, want, p.Release())
	assert.Equal(t, int64(0), p.Release())
}

func TestArray_EmptyLiteral(t *testing.T) {
	a := LongArrayOf()
	assert.Equal(t, int64(0), a.Size())
	assert.Empty(t, a.ToSlice())
	c := a.NewCursor()
	for c.Next() {
		assert.Equal(t, c.Offset(), c.Limit())
	}
	c.Close()

	// an empty literal is live until released
	assert.Equal(t, a.SizeOf(), a.Release())
	assert.Equal(t, int64(0), a.Release())
}

func TestNumberArray_GetAndAdd(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const size = PageSize + 3
			longs := newIntegerArray[int64](size, nil, layout.paged)
			defer longs.Release()
			assert.Equal(t, int64(0), longs.GetAndAdd(size-1, 5))
			assert.Equal(t, int64(5), longs.GetAndAdd(size-1, -2))
			assert.Equal(t, int64(3), longs.Get(size-1))

			bytes := newIntegerArray[uint8](size, nil, layout.paged)
			defer bytes.Release()
			bytes.Set(PageSize, 250)
			assert.Equal(t, uint8(250), bytes.GetAndAdd(PageSize, 10))
			assert.Equal(t, uint8(4), bytes.Get(PageSize), "wraps around")

			doubles := newNumberArray[float64](size, nil, layout.paged)
			defer doubles.Release()
			assert.Equal(t, 0.0, doubles.GetAndAdd(1, 1.5))
			assert.Equal(t, 1.5, doubles.GetAndAdd(1, 1.5))
			assert.Equal(t, 3.0, doubles.Get(1))
		})
	}
}

func TestObjectArray_GetOrDefaultAndPutIfAbsent(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const size = PageSize + 2
			a := newObjectArray[[]byte](size, nil, layout.paged)
			defer a.Release()

			fallback := []byte("fallback")
			assert.Equal(t, fallback, a.GetOrDefault(size-1, fallback))
			a.Set(size-1, []byte("x"))
			assert.Equal(t, []byte("x"), a.GetOrDefault(size-1, fallback))

			calls := 0
			supply := func() []byte {
				calls++
				return []byte("new")
			}
			assert.Equal(t, []byte("new"), a.PutIfAbsent(PageSize, supply))
			assert.Equal(t, []byte("new"), a.PutIfAbsent(PageSize, supply))
			assert.Equal(t, 1, calls, "supplier runs only for absent elements")
			assert.Equal(t, []byte("x"), a.PutIfAbsent(size-1, supply))
			assert.Equal(t, 1, calls)

			// a zero value from the supplier is not stored
			assert.Nil(t, a.PutIfAbsent(0, func() []byte { return nil }))
			assert.Equal(t, []byte("new"), a.PutIfAbsent(0, supply))
			assert.Equal(t, 2, calls)
		})
	}

	strs := NewObjectArray[string](2)
	assert.Equal(t, "none", strs.GetOrDefault(1, "none"))
	assert.Equal(t, "v", strs.PutIfAbsent(1, func() string { return "v" }))
	assert.Equal(t, "v", strs.GetOrDefault(1, "none"))
}

func TestObjectArray_CopyOfKeepsKind(t *testing.T) {
	a := NewObjectArray[string](2)
	a.Set(0, "a")
	grown, ok := a.CopyOf(3).(ObjectArray[string])
	require.True(t, ok)
	assert.Equal(t, "a", grown.GetOrDefault(0, "-"))
	assert.Equal(t, "-", grown.GetOrDefault(2, "-"))
}

func TestObjectArray_MemoryEstimation(t *testing.T) {
	for _, size := range []int64{0, 10, PageSize + 1, maxArrayLength + 1} {
		assert.Equal(t,
			MemoryEstimation[*int](size)+size*24,
			ObjectArrayMemoryEstimation[*int](size, 24))
	}
	assert.Equal(t, MemoryEstimation[*int](100), ObjectArrayMemoryEstimation[*int](100, 0))
	assert.Greater(t,
		ObjectArrayMemoryEstimation[*int](PageSize+1, 8),
		ObjectArrayMemoryEstimation[*int](PageSize, 8))
}

func TestCursor_Pages(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			const size = 3*PageSize + 11
			a := newIntegerArray[int64](size, Identity[int64](2), layout.paged)
			defer a.Release()

			c := a.NewCursor()
			defer c.Close()
			var seen int64
			for c.Next() {
				page := c.Array()
				for i := c.Offset(); i < c.Limit(); i++ {
					if page[i] != c.Base()+int64(i) {
						t.Fatalf("slot %d of block at %d holds %d", i, c.Base(), page[i])
					}
					seen++
				}
			}
			assert.Equal(t, int64(size), seen)

			for range 20 {
				start := rand.Int64N(size)
				end := start + rand.Int64N(size-start+1)
				c.SetRange(start, end)
				var sum, count int64
				for c.Next() {
					for i := c.Offset(); i < c.Limit(); i++ {
						sum += c.Array()[i]
						count++
					}
				}
				require.Equal(t, end-start, count)
				require.Equal(t, (start+end-1)*(end-start)/2, sum)
			}
		})
	}
}

func TestCursor_AfterRelease(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.name, func(t *testing.T) {
			a := newIntegerArray[int64](PageSize+1, nil, layout.paged)
			c := a.NewCursor()
			a.Release()
			assert.False(t, c.Next())
			c.Reset()
			assert.False(t, c.Next())
		})
	}
}

func TestCursor_Reset(t *testing.T) {
	a := LongArrayOf(1, 2, 3)
	c := a.NewCursor()
	require.True(t, c.Next())
	assert.Equal(t, 3, c.Limit())
	assert.False(t, c.Next())
	c.Reset()
	assert.True(t, c.Next())
	c.Close()
	assert.False(t, c.Next())
}

func BenchmarkArray_Get(b *testing.B) {
	for _, layout := range layouts {
		b.Run(layout.name, func(b *testing.B) {
			const size = 1 << 20
			a := newIntegerArray[int64](size, Identity[int64](4), layout.paged)
			defer a.Release()
			b.ResetTimer()
			var sum int64
			for i := 0; i < b.N; i++ {
				sum += a.Get(int64(i) & (size - 1))
			}
			_ = sum
		})
	}
}
