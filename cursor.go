package paged

// Cursor iterates over the pages of an array without copying them.
//
// Each successful call to Next exposes one contiguous block: the slots
// Array()[Offset():Limit()] hold the elements with global indices
// Base()+Offset() up to Base()+Limit(). Slots outside that window belong
// to other ranges and must not be touched.
//
//	c := array.NewCursor()
//	defer c.Close()
//	for c.Next() {
//		page := c.Array()
//		for i := c.Offset(); i < c.Limit(); i++ {
//			use(c.Base()+int64(i), page[i])
//		}
//	}
//
// A cursor may be reused for several passes with Reset or SetRange.
// Cursors are not safe for concurrent use, and a cursor over a released
// array yields nothing.
type Cursor[T any] interface {
	// Next advances to the next block and reports whether there is one.
	Next() bool
	// Array returns the backing page of the current block.
	Array() []T
	// Offset returns the first valid slot of Array.
	Offset() int
	// Limit returns the slot after the last valid slot of Array.
	Limit() int
	// Base returns the global index of slot 0 of Array.
	Base() int64
	// SetRange restricts the cursor to [start, end) and rewinds it.
	SetRange(start, end int64)
	// Reset rewinds the cursor to the start of its range.
	Reset()
	// Close drops the references to the array.
	Close()
}

// pageSource is the owner of the pages a cursor walks.
type pageSource[T any] interface {
	// pageAt returns page i, or nil once the source has been released.
	pageAt(i int) []T
}

// singlePageCursor yields its range of a single page exactly once.
type singlePageCursor[T any] struct {
	owner     pageSource[T]
	array     []T
	offset    int
	limit     int
	start     int
	end       int
	exhausted bool
}

func (c *singlePageCursor[T]) init(owner pageSource[T], size int64) {
	c.owner = owner
	c.SetRange(0, size)
}

func (c *singlePageCursor[T]) Next() bool {
	if c.exhausted || c.owner == nil {
		return false
	}
	c.exhausted = true
	page := c.owner.pageAt(0)
	if page == nil {
		c.array = nil
		return false
	}
	c.array = page
	c.offset = c.start
	c.limit = c.end
	return true
}

func (c *singlePageCursor[T]) Array() []T {
	return c.array
}

func (c *singlePageCursor[T]) Offset() int {
	return c.offset
}

func (c *singlePageCursor[T]) Limit() int {
	return c.limit
}

func (c *singlePageCursor[T]) Base() int64 {
	return 0
}

func (c *singlePageCursor[T]) SetRange(start, end int64) {
	c.start = int(start)
	c.end = int(max(start, end))
	c.Reset()
}

func (c *singlePageCursor[T]) Reset() {
	c.exhausted = false
	c.array = nil
	c.offset = 0
	c.limit = 0
}

func (c *singlePageCursor[T]) Close() {
	c.owner = nil
	c.array = nil
	c.exhausted = true
}

// pagedCursor walks the pages overlapping its range, one page per Next.
type pagedCursor[T any] struct {
	owner pageSource[T]
	array []T
	base  int64

	offset      int
	limit       int
	pageIdx     int
	fromPage    int
	maxPage     int
	startOffset int
	endOffset   int
}

func (c *pagedCursor[T]) init(owner pageSource[T], size int64) {
	c.owner = owner
	c.SetRange(0, size)
}

func (c *pagedCursor[T]) Next() bool {
	if c.owner == nil {
		return false
	}
	current := c.pageIdx + 1
	if current > c.maxPage {
		return false
	}
	page := c.owner.pageAt(current)
	if page == nil {
		c.array = nil
		c.pageIdx = c.maxPage
		return false
	}
	c.pageIdx = current
	c.array = page
	c.base = indexFromPage(current, 0)
	c.offset = 0
	if current == c.fromPage {
		c.offset = c.startOffset
	}
	c.limit = len(page)
	if current == c.maxPage {
		c.limit = c.endOffset
	}
	return true
}

func (c *pagedCursor[T]) Array() []T {
	return c.array
}

func (c *pagedCursor[T]) Offset() int {
	return c.offset
}

func (c *pagedCursor[T]) Limit() int {
	return c.limit
}

func (c *pagedCursor[T]) Base() int64 {
	return c.base
}

func (c *pagedCursor[T]) SetRange(start, end int64) {
	c.fromPage = pageIndex(start)
	if end <= start {
		// empty range: no page qualifies
		c.maxPage = c.fromPage - 1
	} else {
		c.maxPage = pageIndex(end - 1)
		c.endOffset = exclusiveIndexOfPage(end)
	}
	c.startOffset = indexInPage(start)
	c.Reset()
}

func (c *pagedCursor[T]) Reset() {
	c.pageIdx = c.fromPage - 1
	c.array = nil
	c.base = 0
	c.offset = 0
	c.limit = 0
}

func (c *pagedCursor[T]) Close() {
	c.owner = nil
	c.array = nil
	c.pageIdx = c.maxPage
}
