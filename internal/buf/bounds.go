package buf

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOverflow means a segment table size or end offset does not fit in int64.
	ErrOverflow = errors.New("overflow")
	// ErrOutOfBounds means a segment table runs past its payload.
	ErrOutOfBounds = errors.New("out of bounds")
)

// AddOverflowSafe returns a+b, or false if the sum wraps.
func AddOverflowSafe(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// MulOverflowSafe returns a*b, or false if the product wraps.
func MulOverflowSafe(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	// MinInt64 / -1 wraps back to MinInt64, so the division check misses it.
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

// CheckTableBounds returns the end offset of count entries of entrySize bytes
// at offset, failing with ErrOverflow or ErrOutOfBounds past limit.
func CheckTableBounds(limit, offset, count, entrySize int64) (int64, error) {
	if offset < 0 || count < 0 || entrySize < 0 {
		return 0, fmt.Errorf("negative table geometry: offset=%d count=%d entry=%d", offset, count, entrySize)
	}
	total, ok := MulOverflowSafe(count, entrySize)
	if !ok {
		return 0, fmt.Errorf("%d entries of %d bytes: %w", count, entrySize, ErrOverflow)
	}
	end, ok := AddOverflowSafe(offset, total)
	if !ok {
		return 0, fmt.Errorf("table at %d of %d bytes: %w", offset, total, ErrOverflow)
	}
	if end > limit {
		return 0, fmt.Errorf("table ends at %d past %d: %w", end, limit, ErrOutOfBounds)
	}
	return end, nil
}
