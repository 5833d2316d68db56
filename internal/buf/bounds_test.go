package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if p, ok := MulOverflowSafe(6, 7); !ok || p != 42 {
		t.Fatalf("MulOverflowSafe(6,7)=%d,%v want 42,true", p, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt/2+1, 2); ok {
		t.Fatalf("expected overflow")
	}
	if p, ok := MulOverflowSafe(0, math.MaxInt); !ok || p != 0 {
		t.Fatalf("zero factor should never overflow")
	}
}

func TestCheckIndex(t *testing.T) {
	if err := CheckIndex(2, 3, 3); err != nil {
		t.Fatalf("CheckIndex(2,3,3) unexpected error: %v", err)
	}
	if err := CheckIndex(3, 3, 3); err == nil {
		t.Fatalf("index equal to count must fail")
	}
	if err := CheckIndex(-1, 3, 3); err == nil {
		t.Fatalf("negative index must fail")
	}
	if err := CheckIndex(2, 5, 2); err == nil {
		t.Fatalf("declared count larger than backing slice must fail")
	}
	if err := CheckIndex(0, -1, 4); err == nil {
		t.Fatalf("negative declared count must fail")
	}
}

func TestElemOffset(t *testing.T) {
	if off, ok := ElemOffset(16, 3, 8); !ok || off != 40 {
		t.Fatalf("ElemOffset(16,3,8)=%d,%v want 40,true", off, ok)
	}
	if _, ok := ElemOffset(0, math.MaxInt, 2); ok {
		t.Fatalf("expected overflow")
	}
	if _, ok := ElemOffset(-1, 0, 8); ok {
		t.Fatalf("negative base must fail")
	}
}
