package hdata

import (
	"maps"
	"slices"
	"testing"
	"time"
	"unique"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/pkg/types"
)

type testObj struct {
	Letter  byte                  `hdata:"letter,writable"`
	Number  int                   `hdata:"number,writable"`
	Big     int64                 `hdata:"big,writable"`
	Name    string                `hdata:"name,writable"`
	Shared  unique.Handle[string] `hdata:"shared,writable"`
	Other   *testObj              `hdata:"other,writable,related=test"`
	Created time.Time             `hdata:"created,writable"`
	Vars    map[string]string     `hdata:"vars,writable"`
	Blob    struct{ A, B int }    `hdata:"blob"`
	Fixed   [3]int                `hdata:"fixed,writable"`
	Count   int                   `hdata:"count"`
	Sized   []string              `hdata:"sized,array=count"`
	Auto    []*testObj            `hdata:"auto,related=test"`
	Locked  int                   `hdata:"locked"`
	Prev    *testObj              `hdata:"prev,prev,related=test"`
	Next    *testObj              `hdata:"next,next,related=test"`

	Ignored int
}

// fixture holds a registry with type "test" and a linked list of objects.
type fixture struct {
	reg     *Registry
	handles *Handles
	w       *Walker
	typ     *Type
	objs    []*testObj
	head    *testObj
	last    *testObj

	updates []map[string]string
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	fx := &fixture{reg: NewRegistry(), handles: NewHandles()}
	fx.w = NewWalker(fx.reg, fx.handles, types.DefaultLimits())
	for i := 1; i <= n; i++ {
		fx.objs = append(fx.objs, &testObj{Number: i, Name: "obj-" + string(rune('0'+i))})
	}
	fx.relink()

	calls := 0
	require.True(t, fx.reg.RegisterProvider("test", func(name string) (*Type, error) {
		calls++
		require.Equal(t, 1, calls, "provider must be invoked once")
		typ, err := Describe(name, testObj{}, TypeOptions{Update: fx.update})
		if err != nil {
			return nil, err
		}
		if err := typ.AddList("objects", func() any { return fx.head }, ListCheckPointers); err != nil {
			return nil, err
		}
		if err := typ.AddList("last_object", func() any { return fx.last }, 0); err != nil {
			return nil, err
		}
		return typ, nil
	}))
	fx.typ = fx.reg.MustResolve("test")
	return fx
}

// relink chains fx.objs into a list in slice order.
func (fx *fixture) relink() {
	fx.head, fx.last = nil, nil
	for i, o := range fx.objs {
		o.Prev, o.Next = nil, nil
		if i > 0 {
			o.Prev = fx.objs[i-1]
			fx.objs[i-1].Next = o
		}
	}
	if len(fx.objs) > 0 {
		fx.head = fx.objs[0]
		fx.last = fx.objs[len(fx.objs)-1]
	}
}

// update applies every value with Set and counts successes.
func (fx *fixture) update(w *Walker, t *Type, obj any, values map[string]string) int {
	fx.updates = append(fx.updates, values)
	n := 0
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if err := w.Set(t, obj, name, values[name]); err == nil {
			n++
		}
	}
	return n
}

func TestRegistry_ResolveIsIdempotent(t *testing.T) {
	fx := newFixture(t, 1)

	again, ok := fx.reg.Resolve("test")
	require.True(t, ok)
	require.Same(t, fx.typ, again)
	require.True(t, fx.typ.SameShape(again))

	require.False(t, fx.reg.RegisterProvider("test", func(string) (*Type, error) {
		t.Fatal("replacement provider must never run")
		return nil, nil
	}))
	third, ok := fx.reg.Resolve("test")
	require.True(t, ok)
	require.Same(t, fx.typ, third)
}

func TestRegistry_UnknownAndFailingProviders(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Resolve("missing")
	require.False(t, ok)

	calls := 0
	reg.RegisterProvider("broken", func(string) (*Type, error) {
		calls++
		return nil, types.ErrInvalid
	})
	_, ok = reg.Resolve("broken")
	require.False(t, ok)
	_, ok = reg.Resolve("broken")
	require.False(t, ok)
	require.Equal(t, 1, calls)

	reg.RegisterProvider("liar", func(string) (*Type, error) {
		return NewType("other", TypeOptions{}), nil
	})
	_, ok = reg.Resolve("liar")
	require.False(t, ok)

	require.Equal(t, []string{"broken", "liar"}, reg.AllNames())
	require.Empty(t, reg.Materialized())
}

type mapSource map[string]Provider

func (m mapSource) LookupProvider(name string) (Provider, bool) {
	p, ok := m[name]
	return p, ok
}

func TestRegistry_SourceAndOwnerCleanup(t *testing.T) {
	reg := NewRegistry()
	reg.SetSource(mapSource{
		"plugin_type": func(name string) (*Type, error) {
			return NewType(name, TypeOptions{Owner: "charset"}), nil
		},
	})
	require.NoError(t, reg.Register(NewType("core_type", TypeOptions{})))

	pt, ok := reg.Resolve("plugin_type")
	require.True(t, ok)
	require.Equal(t, "charset", pt.Owner())
	require.Equal(t, []string{"core_type", "plugin_type"}, reg.Materialized())

	require.Equal(t, 1, reg.FreeAllOwner("charset"))
	require.Equal(t, []string{"core_type"}, reg.AllNames())

	require.NoError(t, reg.Register(NewType("core_type", TypeOptions{})))
	err := reg.Register(NewType("core_type", TypeOptions{Next: "next"}))
	require.ErrorIs(t, err, types.ErrInvalid)
}

func TestDescribe_Fields(t *testing.T) {
	fx := newFixture(t, 0)
	want := map[string]ValueType{
		"letter":  TypeChar,
		"number":  TypeInteger,
		"big":     TypeLong,
		"name":    TypeString,
		"shared":  TypeSharedString,
		"other":   TypePointer,
		"created": TypeTime,
		"vars":    TypeHashtable,
		"blob":    TypeOther,
		"fixed":   TypeInteger,
		"count":   TypeInteger,
		"sized":   TypeString,
		"auto":    TypePointer,
		"locked":  TypeInteger,
		"prev":    TypePointer,
		"next":    TypePointer,
	}
	require.Len(t, fx.typ.FieldNames(), len(want))
	for name, vt := range want {
		f, ok := fx.typ.Field(name)
		require.True(t, ok, name)
		require.Equal(t, vt, f.Type, name)
	}
	_, ok := fx.typ.Field("Ignored")
	require.False(t, ok)

	require.Equal(t, "prev", fx.typ.Prev())
	require.Equal(t, "next", fx.typ.Next())

	number, _ := fx.typ.Field("number")
	other, _ := fx.typ.Field("other")
	require.Greater(t, other.Offset, number.Offset)
	require.Equal(t, "test", other.Related)

	fixed, _ := fx.typ.Field("fixed")
	require.Equal(t, "3", fixed.ArraySize)
	auto, _ := fx.typ.Field("auto")
	require.Equal(t, "*", auto.ArraySize)

	off, ok := fx.w.ElemOffset(fx.typ, "fixed", 2)
	require.True(t, ok)
	require.Equal(t, fixed.Offset+2*fixed.ElemSize, off)
}

func TestDescribe_Rejects(t *testing.T) {
	type hidden struct {
		secret int `hdata:"secret"`
	}
	_, err := Describe("hidden", hidden{}, TypeOptions{})
	require.ErrorIs(t, err, types.ErrInvalid)

	type badArray struct {
		N int `hdata:"n,array=3"`
	}
	_, err = Describe("bad", &badArray{}, TypeOptions{})
	require.ErrorIs(t, err, types.ErrInvalid)

	_, err = Describe("scalar", 42, TypeOptions{})
	require.ErrorIs(t, err, types.ErrInvalid)
}

func TestWalker_RoundTripEveryType(t *testing.T) {
	fx := newFixture(t, 2)
	o, target := fx.objs[0], fx.objs[1]

	tests := []struct {
		field string
		value Value
	}{
		{"letter", CharValue('z')},
		{"number", IntegerValue(-42)},
		{"big", LongValue(1 << 40)},
		{"name", StringValue("renamed")},
		{"shared", SharedStringValue("core")},
		{"other", PointerValue(target)},
		{"other", PointerValue(nil)},
		{"created", TimeValue(time.Unix(1700000000, 0))},
		{"vars", HashtableValue(map[string]string{"type": "channel"})},
		{"1|fixed", IntegerValue(9)},
	}
	for _, tc := range tests {
		t.Run(tc.field+"="+tc.value.String(), func(t *testing.T) {
			require.NoError(t, fx.w.SetField(fx.typ, o, tc.field, tc.value))
			got, ok := fx.w.GetField(fx.typ, o, tc.field)
			require.True(t, ok)
			require.True(t, tc.value.Equal(got), "want %s, got %s", tc.value, got)
		})
	}
	require.Equal(t, 9, o.Fixed[1])
	require.Equal(t, unique.Make("core"), o.Shared)
}

func TestWalker_OtherIsAddressOnly(t *testing.T) {
	fx := newFixture(t, 1)
	o := fx.objs[0]

	v, ok := fx.w.GetField(fx.typ, o, "blob")
	require.True(t, ok)
	require.Equal(t, TypeOther, v.Type())
	require.Same(t, &o.Blob, v.Pointer())
}

func TestWalker_WriteProtection(t *testing.T) {
	fx := newFixture(t, 3)
	o := fx.objs[1]
	o.Count = 1
	o.Sized = []string{"a"}
	before := *o

	tests := []struct {
		field string
		value Value
	}{
		{"blob", OtherValue(&o.Blob)},
		{"count", IntegerValue(7)},
		{"0|sized", StringValue("b")},
		{"0|auto", PointerValue(o)},
		{"locked", IntegerValue(1)},
		{"prev", PointerValue(nil)},
		{"next", PointerValue(nil)},
	}
	for _, tc := range tests {
		err := fx.w.SetField(fx.typ, o, tc.field, tc.value)
		require.ErrorIs(t, err, types.ErrNotWritable, tc.field)
	}
	require.Equal(t, before, *o)
	require.Empty(t, fx.updates)
}

func TestWalker_TypeMismatchAndUnknown(t *testing.T) {
	fx := newFixture(t, 1)
	o := fx.objs[0]
	before := *o

	require.ErrorIs(t, fx.w.SetField(fx.typ, o, "number", StringValue("1")), types.ErrTypeMismatch)
	require.ErrorIs(t, fx.w.SetField(fx.typ, o, "big", IntegerValue(1)), types.ErrTypeMismatch)
	require.ErrorIs(t, fx.w.SetField(fx.typ, o, "missing", IntegerValue(1)), types.ErrNotFound)
	require.ErrorIs(t, fx.w.SetField(fx.typ, o, "other", PointerValue(&before.Blob)), types.ErrTypeMismatch)
	require.Equal(t, before, *o)

	_, ok := fx.w.GetField(fx.typ, o, "missing")
	require.False(t, ok)
	_, ok = fx.w.GetField(fx.typ, nil, "number")
	require.False(t, ok)
	_, ok = fx.w.GetField(fx.typ, &struct{}{}, "number")
	require.False(t, ok)
}

func TestWalker_Arrays(t *testing.T) {
	fx := newFixture(t, 3)
	o := fx.objs[0]
	o.Fixed = [3]int{10, 20, 30}
	o.Sized = []string{"a", "b", "c"}
	o.Count = 2
	o.Auto = []*testObj{fx.objs[1], fx.objs[2], nil, fx.objs[0]}

	v, ok := fx.w.GetField(fx.typ, o, "2|fixed")
	require.True(t, ok)
	require.Equal(t, 30, v.Int())
	_, ok = fx.w.GetField(fx.typ, o, "3|fixed")
	require.False(t, ok)
	_, ok = fx.w.GetField(fx.typ, o, "fixed")
	require.False(t, ok, "array read without index")

	n, err := fx.w.ArraySize(fx.typ, o, "sized")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, err = fx.w.GetFieldArray(fx.typ, o, "sized", 2)
	require.ErrorIs(t, err, types.ErrOutOfRange)

	o.Count = 5
	v, err = fx.w.GetFieldArray(fx.typ, o, "sized", 2)
	require.NoError(t, err)
	require.Equal(t, "c", v.Str())
	_, err = fx.w.GetFieldArray(fx.typ, o, "sized", 3)
	require.ErrorIs(t, err, types.ErrOutOfRange, "declared count beyond backing slice")

	n, err = fx.w.ArraySize(fx.typ, o, "auto")
	require.NoError(t, err)
	require.Equal(t, 2, n, "automatic size stops at the first nil")

	size, ok := fx.w.ArraySizeString(fx.typ, "sized")
	require.True(t, ok)
	require.Equal(t, "count", size)

	_, err = fx.w.GetFieldArray(fx.typ, o, "number", 0)
	require.ErrorIs(t, err, types.ErrInvalid)
	require.ErrorIs(t, fx.w.SetField(fx.typ, o, "3|fixed", IntegerValue(1)), types.ErrOutOfRange)
}

func TestWalker_IterateOrderAndRestart(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		fx := newFixture(t, n)

		got := slices.Collect(fx.w.Iterate(fx.typ, "objects"))
		require.Len(t, got, n)
		for i, obj := range got {
			require.Same(t, fx.objs[i], obj)
		}
		require.Equal(t, got, slices.Collect(fx.w.Iterate(fx.typ, "objects")))
	}
}

func TestWalker_WalkStopsEarlyAndReportsUnknownList(t *testing.T) {
	fx := newFixture(t, 5)
	seen := 0
	require.NoError(t, fx.w.Walk(fx.typ, "objects", func(any) bool {
		seen++
		return seen < 2
	}))
	require.Equal(t, 2, seen)

	require.ErrorIs(t, fx.w.Walk(fx.typ, "nope", func(any) bool { return true }), types.ErrNotFound)
}

func TestWalker_CycleDetection(t *testing.T) {
	fx := newFixture(t, 5)
	fx.last.Next = fx.objs[1]

	visits := 0
	err := fx.w.Walk(fx.typ, "objects", func(any) bool {
		visits++
		return true
	})
	require.ErrorIs(t, err, types.ErrCycle)
	require.Less(t, visits, 20)

	stranger := &testObj{}
	require.False(t, fx.w.ValidatePointer(fx.typ, "", stranger))
	require.True(t, fx.w.ValidatePointer(fx.typ, "", fx.objs[4]))
	require.Greater(t, fx.w.Count(fx.typ, fx.head), 0)

	self := &testObj{}
	self.Next = self
	err = fx.w.WalkFrom(fx.typ, self, func(any) bool { return true })
	require.ErrorIs(t, err, types.ErrCycle)
}

func TestWalker_WalkLimit(t *testing.T) {
	fx := newFixture(t, 5)
	limits := types.DefaultLimits()
	limits.MaxListLength = 3
	w := NewWalker(fx.reg, fx.handles, limits)

	err := w.Walk(fx.typ, "objects", func(any) bool { return true })
	require.ErrorIs(t, err, types.ErrOutOfRange)
}

func TestWalker_ValidatePointer(t *testing.T) {
	fx := newFixture(t, 5)
	for _, o := range fx.objs {
		require.True(t, fx.w.ValidatePointer(fx.typ, "", o))
		require.True(t, fx.w.ValidatePointer(fx.typ, "objects", o))
	}

	unrelated := []*testObj{{Number: 100}, {Number: 101}}
	unrelated[0].Next = unrelated[1]
	require.False(t, fx.w.ValidatePointer(fx.typ, "", unrelated[0]))
	require.False(t, fx.w.ValidatePointer(fx.typ, "", unrelated[1]))

	freed := fx.objs[2]
	fx.objs = slices.Delete(fx.objs, 2, 3)
	fx.relink()
	require.False(t, fx.w.ValidatePointer(fx.typ, "", freed))

	require.False(t, fx.w.ValidatePointer(fx.typ, "", nil))
	require.False(t, fx.w.ValidatePointer(fx.typ, "", (*testObj)(nil)))
	require.False(t, fx.w.ValidatePointer(fx.typ, "nope", fx.head))

	// last_object is not flagged; walking from it only sees the tail.
	require.True(t, fx.w.ValidatePointer(fx.typ, "last_object", fx.last))
	require.False(t, fx.w.ValidatePointer(fx.typ, "last_object", fx.head))
}

func TestWalker_ValidatePointerWithoutFlaggedLists(t *testing.T) {
	typ := MustDescribe("loose", testObj{}, TypeOptions{})
	w := NewWalker(NewRegistry(), nil, types.DefaultLimits())
	require.True(t, w.ValidatePointer(typ, "", &testObj{}))
	require.False(t, w.ValidatePointer(typ, "", nil))
}

func TestWalker_MoveCountSearch(t *testing.T) {
	fx := newFixture(t, 5)

	require.Same(t, fx.objs[2], fx.w.Move(fx.typ, fx.head, 2))
	require.Same(t, fx.objs[3], fx.w.Move(fx.typ, fx.last, -1))
	require.Nil(t, fx.w.Move(fx.typ, fx.head, 10))
	require.Nil(t, fx.w.Move(fx.typ, fx.head, 0))

	require.Equal(t, 5, fx.w.Count(fx.typ, fx.head))
	require.Equal(t, 3, fx.w.Count(fx.typ, fx.objs[2]))
	require.Equal(t, 0, fx.w.Count(fx.typ, nil))

	byNumber := func(n int) func(any) bool {
		return func(obj any) bool {
			v, _ := fx.w.GetField(fx.typ, obj, "number")
			return v.Int() == n
		}
	}
	require.Same(t, fx.objs[3], fx.w.Search(fx.typ, fx.head, byNumber(4), 1))
	require.Same(t, fx.objs[0], fx.w.Search(fx.typ, fx.last, byNumber(1), -1))
	require.Nil(t, fx.w.Search(fx.typ, fx.objs[2], byNumber(1), 1))
}

func TestWalker_FollowRelationAndPath(t *testing.T) {
	fx := newFixture(t, 3)
	fx.head.Other = fx.last
	fx.last.Vars = map[string]string{"type": "private"}

	rt, obj, err := fx.w.FollowRelation(fx.typ, fx.head, "other")
	require.NoError(t, err)
	require.Same(t, fx.typ, rt)
	require.Same(t, fx.last, obj)

	_, _, err = fx.w.FollowRelation(fx.typ, fx.head, "number")
	require.ErrorIs(t, err, types.ErrNotARelation)
	_, _, err = fx.w.FollowRelation(fx.typ, fx.head, "missing")
	require.ErrorIs(t, err, types.ErrNotFound)

	v, err := fx.w.GetPath(fx.typ, fx.head, "other.name")
	require.NoError(t, err)
	require.Equal(t, "obj-3", v.Str())
	v, err = fx.w.GetPath(fx.typ, fx.head, "next.next.vars.type")
	require.NoError(t, err)
	require.Equal(t, "private", v.Str())
	_, err = fx.w.GetPath(fx.typ, fx.head, "number.name")
	require.ErrorIs(t, err, types.ErrNotARelation)
	_, err = fx.w.GetPath(fx.typ, fx.last, "other.name")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestWalker_Compare(t *testing.T) {
	fx := newFixture(t, 3)
	a, b := fx.objs[0], fx.objs[1]
	a.Name, b.Name = "Alpha", "alpha"
	a.Vars = map[string]string{"k": "1"}
	b.Vars = map[string]string{"k": "2"}
	a.Other, b.Other = fx.objs[2], fx.objs[0]

	require.Equal(t, -1, fx.w.Compare(fx.typ, a, b, "number", true))
	require.Equal(t, 1, fx.w.Compare(fx.typ, b, a, "number", true))
	require.Equal(t, 0, fx.w.Compare(fx.typ, a, b, "name", false))
	require.Equal(t, -1, fx.w.Compare(fx.typ, a, b, "name", true))
	require.Equal(t, -1, fx.w.Compare(fx.typ, a, b, "vars.k", true))
	require.Equal(t, 1, fx.w.Compare(fx.typ, a, b, "other.number", true))
	require.Equal(t, 0, fx.w.Compare(fx.typ, a, b, "blob", true))
	require.Equal(t, -1, fx.w.Compare(fx.typ, nil, b, "number", true))
	require.Equal(t, 1, fx.w.Compare(fx.typ, a, nil, "number", true))
	require.Equal(t, 0, fx.w.Compare(fx.typ, nil, nil, "number", true))
}

func TestWalker_Update(t *testing.T) {
	fx := newFixture(t, 3)
	o := fx.head

	n, err := fx.w.Update(fx.typ, o, map[string]string{"__update_allowed": "name"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, _ = fx.w.Update(fx.typ, o, map[string]string{"__update_allowed": "locked"})
	require.Equal(t, 0, n)
	n, _ = fx.w.Update(fx.typ, o, map[string]string{"__create_allowed": ""})
	require.Equal(t, 0, n)
	require.Empty(t, fx.updates, "query keys never reach the callback")

	n, err = fx.w.Update(fx.typ, o, map[string]string{
		"name":    "renamed",
		"number":  "12",
		"big":     "not-a-number",
		"locked":  "3",
		"created": "1700000000",
		"other":   fx.handles.Ref(fx.last).String(),
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "renamed", o.Name)
	require.Equal(t, 12, o.Number)
	require.Equal(t, 0, o.Locked)
	require.Equal(t, int64(1700000000), o.Created.Unix())
	require.Same(t, fx.last, o.Other)

	require.Error(t, fx.w.Set(fx.typ, o, "name", "outside"), "Set requires a pending update")
	require.Equal(t, "renamed", o.Name)
}

func TestWalker_UpdateRejectsStaleHandles(t *testing.T) {
	fx := newFixture(t, 2)
	stranger := &testObj{}
	h := fx.handles.Ref(stranger)

	n, err := fx.w.Update(fx.typ, fx.head, map[string]string{"other": h.String()})
	require.NoError(t, err)
	require.Equal(t, 0, n, "pointer outside every flagged list")

	released := fx.handles.Ref(fx.last)
	fx.handles.Release(fx.last)
	n, _ = fx.w.Update(fx.typ, fx.head, map[string]string{"other": released.String()})
	require.Equal(t, 0, n)
	require.Nil(t, fx.head.Other)

	n, _ = fx.w.Update(fx.typ, fx.head, map[string]string{"other": "0x0"})
	require.Equal(t, 1, n)
}

func TestWalker_SetFieldNotifiesUpdate(t *testing.T) {
	fx := newFixture(t, 1)
	require.NoError(t, fx.w.SetField(fx.typ, fx.head, "name", StringValue("x")))
	require.Equal(t, []map[string]string{{"name": "x"}}, fx.updates)
}

func TestType_Properties(t *testing.T) {
	fx := newFixture(t, 0)

	p, ok := fx.typ.Property("var_prev")
	require.True(t, ok)
	require.Equal(t, "prev", p)
	p, _ = fx.typ.Property("list_keys")
	require.Equal(t, "last_object,objects", p)
	p, _ = fx.typ.Property("list_keys_values")
	require.Equal(t, "last_object:0,objects:1", p)
	p, _ = fx.typ.Property("var_keys")
	require.Contains(t, p, "auto,big,blob")
	_, ok = fx.typ.Property("nope")
	require.False(t, ok)
}

func TestType_AddFieldValidation(t *testing.T) {
	typ := NewType("w", TypeOptions{})
	get := IntField(func(o *testObj) int { return o.Number }, nil)

	require.NoError(t, typ.AddField(Field{Name: "n", Type: TypeInteger, Accessor: get}))
	require.ErrorIs(t, typ.AddField(Field{Name: "n", Type: TypeInteger, Accessor: get}), types.ErrInvalid)
	require.ErrorIs(t, typ.AddField(Field{Name: "", Type: TypeInteger, Accessor: get}), types.ErrInvalid)
	require.ErrorIs(t, typ.AddField(Field{Name: "1|n", Type: TypeInteger, Accessor: get}), types.ErrInvalid)
	require.ErrorIs(t, typ.AddField(Field{Name: "x", Type: TypeInteger}), types.ErrInvalid)
	require.ErrorIs(t, typ.AddField(Field{Name: "arr", Type: TypeInteger, ArraySize: "2", Accessor: get}), types.ErrInvalid)

	// Writable without a setter degrades to read-only.
	require.NoError(t, typ.AddField(Field{Name: "ro", Type: TypeInteger, Writable: true, Accessor: get}))
	f, _ := typ.Field("ro")
	require.False(t, f.Writable)
}
