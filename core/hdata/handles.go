package hdata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/hookkit/pkg/types"
)

// Handle is an opaque reference to a host object, safe to hand to external
// clients. The high 32 bits hold the slot generation, the low 32 bits the
// slot index plus one; zero is the null handle.
type Handle uint64

// NullHandle refers to no object.
const NullHandle Handle = 0

func makeHandle(gen uint32, idx int) Handle {
	return Handle(uint64(gen)<<32 | uint64(idx+1))
}

func (h Handle) index() int { return int(uint32(h)) - 1 }
func (h Handle) generation() uint32 { return uint32(h >> 32) }

// String renders the handle as fixed-width hex, e.g. "0x0000000100000003".
func (h Handle) String() string { return fmt.Sprintf("0x%016x", uint64(h)) }

// ParseHandle parses the text form of a handle. "0x0" and "" are the null
// handle.
func ParseHandle(s string) (Handle, error) {
	if s == "" {
		return NullHandle, nil
	}
	hex, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		return NullHandle, types.Errorf(types.ErrInvalid, "handle %q: missing 0x prefix", s)
	}
	n, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return NullHandle, types.Errorf(types.ErrInvalid, "handle %q: %v", s, err)
	}
	return Handle(n), nil
}

type handleSlot struct {
	obj any
	gen uint32
}

// Handles maps host objects to generational handles. A released handle
// never resolves again, even after its slot is reused.
//
// NOT thread-safe.
type Handles struct {
	slots []handleSlot
	free  []int
	byObj map[any]Handle
}

// NewHandles returns an empty handle table.
func NewHandles() *Handles {
	return &Handles{byObj: make(map[any]Handle)}
}

// Ref returns the handle for obj, allocating one on first use. obj must be
// a comparable pointer-like value; nil yields the null handle.
func (h *Handles) Ref(obj any) Handle {
	obj = normalizeNil(obj)
	if obj == nil {
		return NullHandle
	}
	if hd, ok := h.byObj[obj]; ok {
		return hd
	}
	var idx int
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		idx = len(h.slots)
		h.slots = append(h.slots, handleSlot{gen: 1})
	}
	h.slots[idx].obj = obj
	hd := makeHandle(h.slots[idx].gen, idx)
	h.byObj[obj] = hd
	return hd
}

// Resolve returns the object behind hd. Stale, released and foreign
// handles yield false.
func (h *Handles) Resolve(hd Handle) (any, bool) {
	idx := hd.index()
	if hd == NullHandle || idx < 0 || idx >= len(h.slots) {
		return nil, false
	}
	s := h.slots[idx]
	if s.obj == nil || s.gen != hd.generation() {
		return nil, false
	}
	return s.obj, true
}

// Release invalidates the handle of obj, if any. Host subsystems call it
// when they free an object.
func (h *Handles) Release(obj any) {
	obj = normalizeNil(obj)
	if obj == nil {
		return
	}
	hd, ok := h.byObj[obj]
	if !ok {
		return
	}
	delete(h.byObj, obj)
	idx := hd.index()
	h.slots[idx].obj = nil
	h.slots[idx].gen++
	if h.slots[idx].gen == 0 {
		h.slots[idx].gen = 1
	}
	h.free = append(h.free, idx)
}

// Len returns the number of live handles.
func (h *Handles) Len() int { return len(h.byObj) }
