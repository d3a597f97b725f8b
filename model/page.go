package models

import "math"

// Page is a 1-based page request.
type Page struct {
	Number int64
	Size   int64
}

// Normalize coerces a zero or negative page number to 1 and applies the
// default size when none is given.
func (p Page) Normalize(defaultSize int64) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	return p
}

// Skip is the number of records before this page. It saturates at
// math.MaxInt64 instead of overflowing.
func (p Page) Skip() int64 {
	if p.Number < 2 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt64/p.Size {
		return math.MaxInt64
	}
	return (p.Number - 1) * p.Size
}
