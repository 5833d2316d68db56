package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow int.
// This is essential for index * elementSize calculations in array access.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > 0 && b > 0 {
		if a > math.MaxInt/b {
			return 0, false
		}
	}
	if a < 0 && b < 0 {
		if a < math.MaxInt/b {
			return 0, false
		}
	}
	if a > 0 && b < 0 {
		if b < math.MinInt/a {
			return 0, false
		}
	}
	if a < 0 && b > 0 {
		if a < math.MinInt/b {
			return 0, false
		}
	}
	return a * b, true
}

// CheckIndex validates index against an element count resolved at access
// time. Both the declared count and the actual backing length are checked:
// a sibling count field may claim more elements than the slice holds.
//
//	if err := buf.CheckIndex(i, declared, len(slice)); err != nil {
//	    return fmt.Errorf("array %q: %w", name, err)
//	}
func CheckIndex(index, declared, actual int) error {
	if index < 0 {
		return fmt.Errorf("negative index: %d", index)
	}
	if declared < 0 {
		return fmt.Errorf("negative count: %d", declared)
	}
	if index >= declared {
		return fmt.Errorf("bounds: index=%d >= count=%d", index, declared)
	}
	if index >= actual {
		return fmt.Errorf("bounds: index=%d >= len=%d", index, actual)
	}
	return nil
}

// ElemOffset returns base + index*elemSize, the byte offset of an array
// element inside its owning structure, or ok = false on overflow.
func ElemOffset(base, index, elemSize int) (int, bool) {
	if base < 0 || index < 0 || elemSize < 0 {
		return 0, false
	}
	rel, ok := MulOverflowSafe(index, elemSize)
	if !ok {
		return 0, false
	}
	return AddOverflowSafe(base, rel)
}
