package paged

import (
	"math/bits"
)

// eytzingerLayout rearranges the sorted values into the breadth-first
// order of a complete binary search tree, which keeps the first levels of
// every search in a few cache lines.
//
// The tree is 1-based: layout[0] is unused and layout[1] is the root.
// secondary is permuted alongside, so mapping[i] belongs to layout[i].
func eytzingerLayout(sorted []int64, secondary []int32) (layout []int64, mapping []int32) {
	layout = make([]int64, len(sorted)+1)
	mapping = make([]int32, len(sorted)+1)
	layout[0] = -1
	mapping[0] = -1
	eytzinger(sorted, secondary, layout, mapping, 0, 1)
	return layout, mapping
}

// eytzinger fills the subtree rooted at dest with source[next:] in order
// and returns the index of the first unused source value.
func eytzinger(source []int64, secondary []int32, layout []int64, mapping []int32, next, dest int) int {
	if dest < len(layout) {
		next = eytzinger(source, secondary, layout, mapping, next, 2*dest)
		layout[dest] = source[next]
		mapping[dest] = secondary[next]
		next++
		next = eytzinger(source, secondary, layout, mapping, next, 2*dest+1)
	}
	return next
}

// searchEytzinger returns the layout index of the rightmost value <= needle,
// or 0 if needle is smaller than every value.
func searchEytzinger(layout []int64, needle int64) int {
	index := 1
	for index < len(layout) {
		if needle < layout[index] {
			index <<= 1
		} else {
			index = index<<1 | 1
		}
	}
	// index records the path taken, one bit per level with 1 for right.
	// Dropping the trailing left turns and the last right turn yields the
	// last node we went right at.
	return index >> (bits.TrailingZeros(uint(index)) + 1)
}
