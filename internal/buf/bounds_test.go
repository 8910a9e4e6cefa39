package buf

import (
	"errors"
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt64, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt64")
	}
	if _, ok := AddOverflowSafe(math.MinInt64, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt64")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	tests := []struct {
		a, b   int64
		want   int64
		wantOK bool
	}{
		{4, 5, 20, true},
		{0, math.MaxInt64, 0, true},
		{-4, 5, -20, true},
		{-4, -5, 20, true},
		{math.MaxInt64, 2, 0, false},
		{math.MinInt64, 2, 0, false},
		{2, math.MinInt64, 0, false},
		{math.MinInt64, -1, 0, false},
		{-1, math.MinInt64, 0, false},
		{math.MinInt64, 1, math.MinInt64, true},
	}
	for _, tt := range tests {
		got, ok := MulOverflowSafe(tt.a, tt.b)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("MulOverflowSafe(%d,%d)=%d,%v want %d,%v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCheckTableBounds(t *testing.T) {
	end, err := CheckTableBounds(100, 40, 5, 12)
	if err != nil {
		t.Fatalf("CheckTableBounds: %v", err)
	}
	if end != 100 {
		t.Fatalf("end = %d, want 100", end)
	}

	if _, err := CheckTableBounds(100, 41, 5, 12); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
	if _, err := CheckTableBounds(100, -1, 1, 1); err == nil {
		t.Fatalf("expected negative offset error")
	}
	if _, err := CheckTableBounds(100, 0, -1, 1); err == nil {
		t.Fatalf("expected negative count error")
	}
	if _, err := CheckTableBounds(math.MaxInt64, 0, math.MaxInt64, 24); !errors.Is(err, ErrOverflow) {
		t.Fatalf("err = %v, want ErrOverflow", err)
	}
	if _, err := CheckTableBounds(math.MaxInt64, math.MaxInt64, 1, 24); !errors.Is(err, ErrOverflow) {
		t.Fatalf("err = %v, want ErrOverflow for end offset", err)
	}
}
