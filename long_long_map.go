package paged

import (
	"iter"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	mapLoadFactor      = 0.75
	minHashArrayLength = 4

	// phiC64 is 2^64 divided by the golden ratio.
	phiC64 = 0x9e3779b97f4a7c15
)

// LongLongMap is an open-addressing hash map from int64 to int64 backed by
// two LongArrays, so it can hold more entries than a single slice allows.
//
// Keys are stored biased by one, leaving 0 to mark empty slots, so -1
// cannot be used as a key. Collisions are resolved by linear probing.
// The map is not safe for concurrent use.
type LongLongMap struct {
	_ noCopy

	keys       LongArray
	values     LongArray
	keysCursor Cursor[int64]

	assigned int64
	mask     int64
	resizeAt int64
}

// NewLongLongMap returns a map with room for expectedElements entries
// before it grows. Without an argument room for 4 entries is reserved.
func NewLongLongMap(expectedElements ...int64) *LongLongMap {
	expected := int64(defaultExpectedElements)
	if len(expectedElements) > 0 {
		expected = expectedElements[0]
	}
	m := &LongLongMap{}
	m.allocateBuffers(minBufferSize(expected))
	return m
}

// LongLongMapMemoryEstimation returns the bytes a map presized for
// expectedElements allocates.
func LongLongMapMemoryEstimation(expectedElements int64) int64 {
	buffer := minBufferSize(expectedElements)
	return SizeOfInstance[LongLongMap]() + 2*MemoryEstimation[int64](buffer)
}

//go:nosplit
func mixPhi(k int64) int64 {
	h := uint64(k) * phiC64
	return int64(h ^ h>>32)
}

// SizeOf returns the bytes used by the key and value arrays.
func (m *LongLongMap) SizeOf() int64 {
	return m.keys.SizeOf() + m.values.SizeOf()
}

// Put associates value with key.
func (m *LongLongMap) Put(key, value int64) {
	m.put(key+1, value, false)
}

// AddTo adds value to the value associated with key, treating a missing
// key as 0.
func (m *LongLongMap) AddTo(key, value int64) {
	m.put(key+1, value, true)
}

// GetOrDefault returns the value associated with key, or defaultValue.
func (m *LongLongMap) GetOrDefault(key, defaultValue int64) int64 {
	k := key + 1
	slot := m.findSlot(k, mixPhi(k)&m.mask)
	if slot >= 0 {
		return m.values.Get(slot)
	}
	return defaultValue
}

// ContainsKey reports whether key is present.
func (m *LongLongMap) ContainsKey(key int64) bool {
	k := key + 1
	return m.findSlot(k, mixPhi(k)&m.mask) >= 0
}

func (m *LongLongMap) put(key, value int64, add bool) {
	slot := m.findSlot(key, mixPhi(key)&m.mask)
	if slot >= 0 {
		if add {
			m.values.AddTo(slot, value)
		} else {
			m.values.Set(slot, value)
		}
		return
	}

	slot = ^(1 + slot)
	if m.assigned == m.resizeAt {
		m.allocateThenInsertThenRehash(slot, key, value)
	} else {
		m.values.Set(slot, value)
		m.keys.Set(slot, key)
	}
	m.assigned++
}

// findSlot returns the slot holding key, or the encoded insertion point
// ^slot-1 of the first empty slot. The table is scanned from start to the
// end, then from 0 up to start.
func (m *LongLongMap) findSlot(key, start int64) int64 {
	slot := m.scan(key, start, m.keys.Size())
	if slot == -1 {
		slot = m.scan(key, 0, start)
	}
	return slot
}

func (m *LongLongMap) scan(key, start, end int64) int64 {
	c := m.keysCursor
	c.SetRange(start, end)
	slot := start
	for c.Next() {
		block := c.Array()
		for pos, limit := c.Offset(), c.Limit(); pos < limit; pos++ {
			existing := block[pos]
			if existing == key {
				return slot
			}
			if existing == 0 {
				return ^slot - 1
			}
			slot++
		}
	}
	return -1
}

// Size returns the number of entries.
func (m *LongLongMap) Size() int64 {
	return m.assigned
}

// IsEmpty reports whether the map has no entries.
func (m *LongLongMap) IsEmpty() bool {
	return m.assigned == 0
}

// Clear removes all entries, keeping the capacity.
func (m *LongLongMap) Clear() {
	m.assigned = 0
	m.keys.Fill(0)
	m.values.Fill(0)
}

// Release drops the backing arrays and returns the bytes freed.
// The map must not be used afterwards.
func (m *LongLongMap) Release() int64 {
	if m.keys == nil {
		return 0
	}
	freed := m.keys.Release() + m.values.Release()
	m.keysCursor.Close()
	m.keys, m.values, m.keysCursor = nil, nil, nil
	m.assigned = 0
	m.mask = 0
	return freed
}

// Range calls yield for every entry until yield returns false.
// The iteration order is unspecified.
func (m *LongLongMap) Range(yield func(key, value int64) bool) {
	rangeEntries(m.keys, m.values, yield)
}

// All returns an iterator over the entries.
func (m *LongLongMap) All() iter.Seq2[int64, int64] {
	return m.Range
}

func (m *LongLongMap) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	m.Range(func(key, value int64) bool {
		if sb.Len() > 1 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(key, 10))
		sb.WriteString("=>")
		sb.WriteString(strconv.FormatInt(value, 10))
		return true
	})
	sb.WriteByte(']')
	return sb.String()
}

// rangeEntries walks keys and values in lockstep, skipping empty slots.
func rangeEntries(keys, values LongArray, yield func(key, value int64) bool) {
	kc, vc := keys.NewCursor(), values.NewCursor()
	defer kc.Close()
	defer vc.Close()
	for kc.Next() && vc.Next() {
		ks, vs := kc.Array(), vc.Array()
		for pos, end := kc.Offset(), kc.Limit(); pos < end; pos++ {
			if key := ks[pos]; key != 0 {
				if !yield(key-1, vs[pos]) {
					return
				}
			}
		}
	}
}

func (m *LongLongMap) allocateBuffers(arraySize int64) {
	m.keys = NewLongArray(arraySize)
	m.values = NewLongArray(arraySize)
	if m.keysCursor != nil {
		m.keysCursor.Close()
	}
	m.keysCursor = m.keys.NewCursor()
	m.resizeAt = expandAtCount(arraySize)
	m.mask = arraySize - 1
}

// allocateThenInsertThenRehash grows the table. The new arrays are
// allocated before the old ones are touched, so a failed allocation leaves
// the map intact.
func (m *LongLongMap) allocateThenInsertThenRehash(slot, pendingKey, pendingValue int64) {
	prevKeys, prevValues := m.keys, m.values
	m.allocateBuffers(nextBufferSize(m.mask + 1))

	prevKeys.Set(slot, pendingKey)
	prevValues.Set(slot, pendingValue)

	m.rehash(prevKeys, prevValues)

	freed := prevKeys.Release() + prevValues.Release()

	growthTotal.WithLabelValues(structLongLongMap).Inc()
	if debugEnabled() {
		Logger().WithFields(log.Fields{
			"structure": structLongLongMap,
			"capacity":  m.mask + 1,
			"entries":   m.assigned + 1,
			"freed":     HumanReadable(freed),
		}).Debug("hash map grown")
	}
}

func (m *LongLongMap) rehash(fromKeys, fromValues LongArray) {
	rangeEntries(fromKeys, fromValues, func(key, value int64) bool {
		k := key + 1
		slot := ^(1 + m.findSlot(k, mixPhi(k)&m.mask))
		m.keys.Set(slot, k)
		m.values.Set(slot, value)
		return true
	})
}

func minBufferSize(elements int64) int64 {
	if elements < 0 {
		panic(invalidCapacity(elements))
	}
	length := int64(math.Ceil(float64(elements) / mapLoadFactor))
	if length == elements {
		length++
	}
	return max(minHashArrayLength, nextPowOf2Int64(length))
}

func nextBufferSize(arraySize int64) int64 {
	return arraySize << 1
}

func expandAtCount(arraySize int64) int64 {
	return min(arraySize, int64(math.Ceil(float64(arraySize)*mapLoadFactor)))
}
