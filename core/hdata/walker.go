package hdata

import (
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/hookkit/internal/buf"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Walker reads, writes and traverses host objects through their Type
// descriptions.
//
// NOT thread-safe: all calls must come from the event loop goroutine.
type Walker struct {
	reg     *Registry
	handles *Handles
	limits  types.Limits
}

// NewWalker returns a walker resolving relations through reg and pointer
// text through handles. A nil handles table disables pointer parsing.
func NewWalker(reg *Registry, handles *Handles, limits types.Limits) *Walker {
	if limits.MaxListLength <= 0 {
		limits.MaxListLength = types.DefaultMaxListLength
	}
	return &Walker{reg: reg, handles: handles, limits: limits}
}

// Registry returns the registry used to resolve relations.
func (w *Walker) Registry() *Registry { return w.reg }

// Handles returns the handle table, possibly nil.
func (w *Walker) Handles() *Handles { return w.handles }

// SplitIndex splits an "N|name" field reference into its index and name.
// Without a valid numeric prefix the index is -1 and name is returned as is.
func SplitIndex(name string) (int, string) {
	prefix, rest, ok := strings.Cut(name, "|")
	if !ok {
		return -1, name
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return -1, name
	}
	return n, rest
}

// ----------------------------------------------------------------------------
// Reading
// ----------------------------------------------------------------------------

// GetField reads the field name of obj. name may carry an "N|" prefix to read
// element N of an array field. Unknown fields, array fields read without an
// index, and out-of-range elements yield false.
func (w *Walker) GetField(t *Type, obj any, name string) (Value, bool) {
	if t == nil || normalizeNil(obj) == nil {
		return Value{}, false
	}
	index, fname := SplitIndex(name)
	f, ok := t.fields[fname]
	if !ok {
		return Value{}, false
	}
	if f.IsArray() {
		if index < 0 {
			return Value{}, false
		}
		v, err := w.elem(t, f, obj, index)
		return v, err == nil
	}
	if index >= 0 {
		return Value{}, false
	}
	v := f.Get(obj)
	return v, v.IsValid()
}

// GetFieldArray reads element index of the array field name.
func (w *Walker) GetFieldArray(t *Type, obj any, name string, index int) (Value, error) {
	if t == nil || normalizeNil(obj) == nil {
		return Value{}, types.Errorf(types.ErrInvalid, "nil type or object")
	}
	f, ok := t.fields[name]
	if !ok {
		return Value{}, types.Errorf(types.ErrNotFound, "%s.%s", t.name, name)
	}
	if !f.IsArray() {
		return Value{}, types.Errorf(types.ErrInvalid, "%s.%s is not an array", t.name, name)
	}
	return w.elem(t, f, obj, index)
}

func (w *Walker) elem(t *Type, f *Field, obj any, index int) (Value, error) {
	size, err := w.arraySize(t, f, obj)
	if err != nil {
		return Value{}, err
	}
	if err := buf.CheckIndex(index, size, f.backingLen(obj, size)); err != nil {
		return Value{}, types.Errorf(types.ErrOutOfRange, "%s.%s: %v", t.name, f.Name, err)
	}
	v := f.Elem(obj, index)
	if !v.IsValid() {
		return Value{}, types.Errorf(types.ErrStalePointer, "%s.%s: object is not a %s", t.name, f.Name, t.name)
	}
	return v, nil
}

// backingLen is the number of elements actually stored; accessors without
// Len trust the declared size.
func (f *Field) backingLen(obj any, declared int) int {
	if f.Len == nil {
		return declared
	}
	return f.Len(obj)
}

// ArraySize returns the element count of the array field name, resolved
// from a literal, a sibling field, or automatically.
func (w *Walker) ArraySize(t *Type, obj any, name string) (int, error) {
	if t == nil {
		return 0, types.Errorf(types.ErrInvalid, "nil type")
	}
	f, ok := t.fields[name]
	if !ok {
		return 0, types.Errorf(types.ErrNotFound, "%s.%s", t.name, name)
	}
	if !f.IsArray() {
		return 0, types.Errorf(types.ErrInvalid, "%s.%s is not an array", t.name, name)
	}
	return w.arraySize(t, f, obj)
}

// ArraySizeString returns the raw array size declaration of name: a literal,
// a sibling field name or "*". Empty for scalar fields.
func (w *Walker) ArraySizeString(t *Type, name string) (string, bool) {
	if t == nil {
		return "", false
	}
	f, ok := t.fields[name]
	if !ok {
		return "", false
	}
	return f.ArraySize, true
}

func (w *Walker) arraySize(t *Type, f *Field, obj any) (int, error) {
	if f.ArraySize == "*" {
		if f.Len == nil {
			return 0, nil
		}
		return f.Len(obj), nil
	}
	if sib, ok := t.fields[f.ArraySize]; ok && !sib.IsArray() {
		switch sib.Type {
		case TypeChar, TypeInteger, TypeLong:
			return sib.Get(obj).Int(), nil
		}
		return 0, types.Errorf(types.ErrTypeMismatch, "%s.%s: size field %s is %s", t.name, f.Name, sib.Name, sib.Type)
	}
	n, err := strconv.Atoi(f.ArraySize)
	if err != nil {
		return 0, types.Errorf(types.ErrInvalid, "%s.%s: bad array size %q", t.name, f.Name, f.ArraySize)
	}
	return n, nil
}

// ElemOffset returns the byte offset of element index of an embedded array
// field within its host structure.
func (w *Walker) ElemOffset(t *Type, name string, index int) (uintptr, bool) {
	f, ok := t.fields[name]
	if !ok || !f.IsArray() || f.ElemSize == 0 {
		return 0, false
	}
	off, ok := buf.ElemOffset(int(f.Offset), index, int(f.ElemSize))
	return uintptr(off), ok
}

// GetPath reads a dotted path such as "window.buffer.name", following a
// relation at every segment but the last. A final "hash.key" segment pair
// reads one key of a hashtable field as a string.
func (w *Walker) GetPath(t *Type, obj any, path string) (Value, error) {
	head, rest, more := strings.Cut(path, ".")
	index, fname := SplitIndex(head)
	f, ok := t.fields[fname]
	if !ok {
		return Value{}, types.Errorf(types.ErrNotFound, "%s.%s", t.name, fname)
	}
	v, ok := w.GetField(t, obj, head)
	if !ok {
		if f.IsArray() && index < 0 {
			return Value{}, types.Errorf(types.ErrInvalid, "%s.%s is an array, use N|%s", t.name, fname, fname)
		}
		return Value{}, types.Errorf(types.ErrNotFound, "%s.%s", t.name, head)
	}
	if !more {
		return v, nil
	}
	switch v.Type() {
	case TypeHashtable:
		val, ok := v.Hashtable()[rest]
		if !ok {
			return Value{}, types.Errorf(types.ErrNotFound, "%s.%s: key %q", t.name, fname, rest)
		}
		return StringValue(val), nil
	case TypePointer:
		if f.Related == "" {
			return Value{}, types.Errorf(types.ErrNotARelation, "%s.%s", t.name, fname)
		}
		rt, ok := w.reg.Resolve(f.Related)
		if !ok {
			return Value{}, types.Errorf(types.ErrNotFound, "type %q", f.Related)
		}
		if v.IsNil() {
			return Value{}, types.Errorf(types.ErrNotFound, "%s.%s is null", t.name, fname)
		}
		return w.GetPath(rt, v.Pointer(), rest)
	}
	return Value{}, types.Errorf(types.ErrNotARelation, "%s.%s is %s", t.name, fname, v.Type())
}

// FollowRelation reads the pointer field name of obj and returns it together
// with the type it points to.
func (w *Walker) FollowRelation(t *Type, obj any, name string) (*Type, any, error) {
	if t == nil || normalizeNil(obj) == nil {
		return nil, nil, types.Errorf(types.ErrInvalid, "nil type or object")
	}
	_, fname := SplitIndex(name)
	f, ok := t.fields[fname]
	if !ok {
		return nil, nil, types.Errorf(types.ErrNotFound, "%s.%s", t.name, fname)
	}
	if f.Type != TypePointer || f.Related == "" {
		return nil, nil, types.Errorf(types.ErrNotARelation, "%s.%s", t.name, fname)
	}
	rt, ok := w.reg.Resolve(f.Related)
	if !ok {
		return nil, nil, types.Errorf(types.ErrNotFound, "type %q", f.Related)
	}
	v, ok := w.GetField(t, obj, name)
	if !ok {
		return nil, nil, types.Errorf(types.ErrNotFound, "%s.%s", t.name, name)
	}
	return rt, v.Pointer(), nil
}

// ----------------------------------------------------------------------------
// Writing
// ----------------------------------------------------------------------------

// SetField writes v into the field name of obj. The field must be writable
// and v must have the field's type; a rejected write leaves obj unchanged.
// After the write, the type's update callback (if any) receives the new
// value as text so it can keep dependent state consistent.
func (w *Walker) SetField(t *Type, obj any, name string, v Value) error {
	if t == nil || normalizeNil(obj) == nil {
		return types.Errorf(types.ErrInvalid, "nil type or object")
	}
	index, fname := SplitIndex(name)
	f, ok := t.fields[fname]
	if !ok {
		return types.Errorf(types.ErrNotFound, "%s.%s", t.name, fname)
	}
	if err := w.write(t, f, obj, index, v); err != nil {
		return err
	}
	if t.opts.Update != nil && !t.updatePending {
		t.updatePending = true
		defer func() { t.updatePending = false }()
		t.opts.Update(w, t, obj, map[string]string{name: v.String()})
	}
	return nil
}

func (w *Walker) write(t *Type, f *Field, obj any, index int, v Value) error {
	if !f.Writable {
		return types.Errorf(types.ErrNotWritable, "field %q of %q", f.Name, t.name)
	}
	if v.Type() != f.Type {
		return types.Errorf(types.ErrTypeMismatch, "%s.%s is %s, got %s", t.name, f.Name, f.Type, v.Type())
	}
	if !f.IsArray() {
		if index >= 0 {
			return types.Errorf(types.ErrInvalid, "%s.%s is not an array", t.name, f.Name)
		}
		return f.Set(obj, v)
	}
	size, err := w.arraySize(t, f, obj)
	if err != nil {
		return err
	}
	if err := buf.CheckIndex(index, size, f.backingLen(obj, size)); err != nil {
		return types.Errorf(types.ErrOutOfRange, "%s.%s: %v", t.name, f.Name, err)
	}
	return f.SetElem(obj, index, v)
}

// Set parses text according to the field type and writes it. It is only
// allowed while an update is pending, i.e. from inside an UpdateFunc.
// Pointer text is a handle, which must resolve to a live object of the
// related type.
func (w *Walker) Set(t *Type, obj any, name, text string) error {
	if t == nil || normalizeNil(obj) == nil {
		return types.Errorf(types.ErrInvalid, "nil type or object")
	}
	if !t.updatePending {
		return types.Errorf(types.ErrInvalid, "%s: no update pending", t.name)
	}
	index, fname := SplitIndex(name)
	f, ok := t.fields[fname]
	if !ok {
		return types.Errorf(types.ErrNotFound, "%s.%s", t.name, fname)
	}
	if !f.Writable {
		return types.Errorf(types.ErrNotWritable, "field %q of %q", fname, t.name)
	}
	v, err := w.parse(f, text)
	if err != nil {
		return types.Errorf(types.ErrTypeMismatch, "%s.%s: %v", t.name, fname, err)
	}
	return w.write(t, f, obj, index, v)
}

func (w *Walker) parse(f *Field, text string) (Value, error) {
	switch f.Type {
	case TypeChar:
		if text == "" {
			return CharValue(0), nil
		}
		return CharValue(text[0]), nil
	case TypeInteger:
		n, err := strconv.Atoi(text)
		if err != nil {
			return Value{}, err
		}
		return IntegerValue(n), nil
	case TypeLong:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return LongValue(n), nil
	case TypeString:
		return StringValue(text), nil
	case TypeSharedString:
		return SharedStringValue(text), nil
	case TypeTime:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, types.Errorf(types.ErrOutOfRange, "negative time %d", n)
		}
		return TimeValue(time.Unix(n, 0)), nil
	case TypePointer:
		return w.parsePointer(f, text)
	}
	return Value{}, types.Errorf(types.ErrNotWritable, "%s fields cannot be set from text", f.Type)
}

func (w *Walker) parsePointer(f *Field, text string) (Value, error) {
	h, err := ParseHandle(text)
	if err != nil {
		return Value{}, err
	}
	if h == NullHandle {
		return PointerValue(nil), nil
	}
	if w.handles == nil {
		return Value{}, types.Errorf(types.ErrStalePointer, "no handle table")
	}
	obj, ok := w.handles.Resolve(h)
	if !ok {
		return Value{}, types.Errorf(types.ErrStalePointer, "handle %s", h)
	}
	if f.Related != "" {
		rt, ok := w.reg.Resolve(f.Related)
		if !ok || !w.ValidatePointer(rt, "", obj) {
			return Value{}, types.Errorf(types.ErrStalePointer, "handle %s is not a live %s", h, f.Related)
		}
	}
	return PointerValue(obj), nil
}

// Update applies a named-value update through the type's update callback
// and returns the number of fields it changed. Three query keys short
// circuit the update: "__create_allowed" and "__delete_allowed" report the
// type's lifecycle flags, "__update_allowed" reports whether the field named
// by its value is writable.
func (w *Walker) Update(t *Type, obj any, values map[string]string) (int, error) {
	if t == nil || len(values) == 0 {
		return 0, nil
	}
	if _, ok := values["__create_allowed"]; ok {
		return boolInt(t.opts.CreateAllowed), nil
	}
	if _, ok := values["__delete_allowed"]; ok {
		return boolInt(t.opts.DeleteAllowed), nil
	}
	if name, ok := values["__update_allowed"]; ok {
		f, found := t.fields[name]
		return boolInt(found && f.Writable), nil
	}
	if t.opts.Update == nil {
		return 0, nil
	}
	if t.updatePending {
		return 0, types.Errorf(types.ErrBusy, "%s: update already pending", t.name)
	}
	t.updatePending = true
	defer func() { t.updatePending = false }()
	return t.opts.Update(w, t, obj, values), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ----------------------------------------------------------------------------
// Lists
// ----------------------------------------------------------------------------

// next follows the link field named link of obj.
func (w *Walker) next(t *Type, obj any, link string) any {
	f, ok := t.fields[link]
	if !ok || f.IsArray() || f.Type != TypePointer {
		return nil
	}
	return f.Get(obj).Pointer()
}

func sameObject(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if pa, pb := Addr(a), Addr(b); pa != 0 || pb != 0 {
		return pa == pb
	}
	return a == b
}

// WalkFrom calls fn for start and every object after it through the next
// link, until the end of the list or fn returns false. A cycle stops the
// walk with [types.ErrCycle]; nodes on the cycle may be visited more than
// once before it is detected. Walks longer than the configured maximum stop
// with [types.ErrOutOfRange].
func (w *Walker) WalkFrom(t *Type, start any, fn func(obj any) bool) error {
	start = normalizeNil(start)
	if t == nil || start == nil {
		return nil
	}
	if _, ok := t.fields[t.opts.Next]; !ok {
		return types.Errorf(types.ErrInvalid, "%s: no next link", t.name)
	}
	slow, cur := start, start
	for steps := 1; cur != nil; steps++ {
		if !fn(cur) {
			return nil
		}
		if steps >= w.limits.MaxListLength {
			return types.Errorf(types.ErrOutOfRange, "%s: list longer than %d", t.name, w.limits.MaxListLength)
		}
		cur = w.next(t, cur, t.opts.Next)
		if steps%2 == 0 {
			slow = w.next(t, slow, t.opts.Next)
		}
		if sameObject(cur, slow) {
			logger.Warn("cycle in hdata list", "type", t.name, "at", FormatAddr(cur), "steps", steps)
			return types.Errorf(types.ErrCycle, "%s: after %d nodes", t.name, steps)
		}
	}
	return nil
}

// Walk walks the list named list of t from its root.
func (w *Walker) Walk(t *Type, list string, fn func(obj any) bool) error {
	if t == nil {
		return types.Errorf(types.ErrInvalid, "nil type")
	}
	l, ok := t.lists[list]
	if !ok {
		return types.Errorf(types.ErrNotFound, "%s: list %q", t.name, list)
	}
	return w.WalkFrom(t, l.Root(), fn)
}

// Iterate returns a restartable sequence over the list named list. Each
// object is live when yielded; callers that mutate lists while iterating
// must re-validate objects they keep. Walk errors end the sequence early.
func (w *Walker) Iterate(t *Type, list string) iter.Seq[any] {
	return func(yield func(any) bool) {
		if err := w.Walk(t, list, yield); err != nil {
			logger.Debug("hdata iterate stopped", "list", list, "error", err)
		}
	}
}

// ValidatePointer reports whether ptr is reachable in the list named list.
// With an empty list name, every list flagged [ListCheckPointers] is
// searched; a type with no such list accepts any non-nil pointer. A nil
// pointer is never valid.
func (w *Walker) ValidatePointer(t *Type, list string, ptr any) bool {
	ptr = normalizeNil(ptr)
	if t == nil || ptr == nil {
		return false
	}
	if list != "" {
		l, ok := t.lists[list]
		return ok && w.ValidateFrom(t, l.Root(), ptr)
	}
	flagged := 0
	for _, name := range t.ListNames() {
		l := t.lists[name]
		if l.Flags&ListCheckPointers == 0 {
			continue
		}
		flagged++
		if w.ValidateFrom(t, l.Root(), ptr) {
			return true
		}
	}
	return flagged == 0
}

// ValidateFrom reports whether ptr is start or reachable from it.
func (w *Walker) ValidateFrom(t *Type, start, ptr any) bool {
	found := false
	_ = w.WalkFrom(t, start, func(obj any) bool {
		found = sameObject(obj, ptr)
		return !found
	})
	return found
}

// Resolve turns a handle into an object validated against list (or every
// flagged list when list is empty).
func (w *Walker) Resolve(t *Type, list string, h Handle) (any, error) {
	if w.handles == nil {
		return nil, types.Errorf(types.ErrStalePointer, "no handle table")
	}
	obj, ok := w.handles.Resolve(h)
	if !ok {
		return nil, types.Errorf(types.ErrStalePointer, "handle %s", h)
	}
	if !w.ValidatePointer(t, list, obj) {
		return nil, types.Errorf(types.ErrStalePointer, "handle %s is not in %s", h, t.Name())
	}
	return obj, nil
}

// Move returns the object n steps away from obj: forward through the next
// link for n > 0, backward through the prev link for n < 0. It returns nil
// when the list ends first or n is zero.
func (w *Walker) Move(t *Type, obj any, n int) any {
	obj = normalizeNil(obj)
	if t == nil || obj == nil || n == 0 {
		return nil
	}
	link := t.opts.Next
	if n < 0 {
		link = t.opts.Prev
		n = -n
	}
	for ; n > 0 && obj != nil; n-- {
		obj = w.next(t, obj, link)
	}
	return obj
}

// Count returns the number of objects from obj to the end of its list.
func (w *Walker) Count(t *Type, obj any) int {
	n := 0
	_ = w.WalkFrom(t, obj, func(any) bool {
		n++
		return true
	})
	return n
}

// Search returns the first object, starting at obj and stepping by move,
// that satisfies match. move must be non-zero.
func (w *Walker) Search(t *Type, obj any, match func(obj any) bool, move int) any {
	obj = normalizeNil(obj)
	if t == nil || match == nil || move == 0 {
		return nil
	}
	for steps := 0; obj != nil && steps < w.limits.MaxListLength; steps++ {
		if match(obj) {
			return obj
		}
		obj = w.Move(t, obj, move)
	}
	return nil
}

// Compare compares the values at path in a and b, returning -1, 0 or 1.
// Nil objects sort first. A path through a pointer field continues in the
// related type ("buffer.name"); a path through a hashtable compares one key
// ("localvar.type"). Opaque fields always compare equal.
func (w *Walker) Compare(t *Type, a, b any, path string, caseSensitive bool) int {
	a, b = normalizeNil(a), normalizeNil(b)
	switch {
	case t == nil || path == "":
		return 0
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	case a == nil && b == nil:
		return 0
	}

	head, rest, more := strings.Cut(path, ".")
	_, fname := SplitIndex(head)
	f, ok := t.fields[fname]
	if !ok {
		return 0
	}
	va, _ := w.GetField(t, a, head)
	vb, _ := w.GetField(t, b, head)

	switch f.Type {
	case TypeChar, TypeInteger, TypeLong, TypeTime:
		return cmp3(va.Long(), vb.Long())
	case TypeString, TypeSharedString:
		return compareText(va.Str(), vb.Str(), caseSensitive)
	case TypeHashtable:
		if !more {
			return cmp3(Addr(va.Hashtable()), Addr(vb.Hashtable()))
		}
		sa, oka := va.Hashtable()[rest]
		sb, okb := vb.Hashtable()[rest]
		switch {
		case !oka && okb:
			return -1
		case oka && !okb:
			return 1
		case !oka && !okb:
			return 0
		}
		return compareText(sa, sb, caseSensitive)
	case TypePointer:
		if !more {
			return cmp3(Addr(va.Pointer()), Addr(vb.Pointer()))
		}
		if f.Related == "" {
			return 0
		}
		rt, ok := w.reg.Resolve(f.Related)
		if !ok {
			return 0
		}
		return w.Compare(rt, va.Pointer(), vb.Pointer(), rest, caseSensitive)
	}
	return 0
}

func compareText(a, b string, caseSensitive bool) int {
	if caseSensitive {
		return strings.Compare(a, b)
	}
	return strmatch.CompareFold(a, b)
}

func cmp3[T int64 | uintptr](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
