package hdata

import (
	"reflect"
	"strconv"
	"strings"
	"time"
	"unique"

	"github.com/joshuapare/hookkit/pkg/types"
)

const tagName = "hdata"

var (
	timeType   = reflect.TypeFor[time.Time]()
	sharedType = reflect.TypeFor[unique.Handle[string]]()
	hashType   = reflect.TypeFor[map[string]string]()
)

// Describe builds a Type from the exported fields of a struct that carry an
// `hdata` tag. sample is the struct or a pointer to it; objects passed to
// the walker must then be pointers to that struct.
//
// Tag syntax is `hdata:"name,opt,opt..."` where name defaults to the Go
// field name and opts are:
//
//	writable     field may be set through the walker
//	array=SIZE   array size: literal, sibling field name, or "*"
//	related=T    pointer field points to an object of type T
//	prev, next   field links objects into a list
//
// Unexported fields must be added explicitly with [Type.AddField].
func Describe(name string, sample any, opts TypeOptions) (*Type, error) {
	st := reflect.TypeOf(sample)
	for st != nil && st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st == nil || st.Kind() != reflect.Struct {
		return nil, types.Errorf(types.ErrInvalid, "%s: sample %T is not a struct", name, sample)
	}

	type link struct{ prev, next string }
	var links link
	t := NewType(name, opts)
	for _, sf := range reflect.VisibleFields(st) {
		tag, ok := sf.Tag.Lookup(tagName)
		if !ok || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, types.Errorf(types.ErrInvalid, "%s: field %s is unexported", name, sf.Name)
		}
		f, flags, err := describeField(st, sf, tag)
		if err != nil {
			return nil, types.Errorf(types.ErrInvalid, "%s.%s: %v", name, sf.Name, err)
		}
		if flags.prev {
			links.prev = f.Name
		}
		if flags.next {
			links.next = f.Name
		}
		if err := t.AddField(f); err != nil {
			return nil, err
		}
	}
	if t.opts.Prev == "" {
		t.opts.Prev = links.prev
	}
	if t.opts.Next == "" {
		t.opts.Next = links.next
	}
	return t, nil
}

// MustDescribe is Describe for static host structures; it panics on error.
func MustDescribe(name string, sample any, opts TypeOptions) *Type {
	t, err := Describe(name, sample, opts)
	if err != nil {
		panic(err)
	}
	return t
}

type tagFlags struct{ prev, next bool }

func describeField(st reflect.Type, sf reflect.StructField, tag string) (Field, tagFlags, error) {
	var flags tagFlags
	parts := strings.Split(tag, ",")
	f := Field{Name: parts[0], Offset: sf.Offset}
	if f.Name == "" {
		f.Name = sf.Name
	}
	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "writable":
			f.Writable = true
		case "array":
			f.ArraySize = val
		case "related":
			f.Related = val
		case "prev":
			flags.prev = true
		case "next":
			flags.next = true
		default:
			return f, flags, types.Errorf(types.ErrInvalid, "unknown tag option %q", opt)
		}
	}

	ft := sf.Type
	isArray := ft.Kind() == reflect.Array || (ft.Kind() == reflect.Slice && ft != hashType)
	if isArray {
		if f.ArraySize == "" {
			if ft.Kind() == reflect.Array {
				f.ArraySize = strconv.Itoa(ft.Len())
			} else {
				f.ArraySize = "*"
			}
		}
		f.Type = valueTypeOf(ft.Elem())
		if ft.Kind() == reflect.Array {
			f.ElemSize = ft.Elem().Size()
		}
	} else {
		if f.ArraySize != "" {
			return f, flags, types.Errorf(types.ErrInvalid, "array size on non-array field")
		}
		f.Type = valueTypeOf(ft)
	}

	index := sf.Index
	field := func(obj any) (reflect.Value, bool) {
		rv := reflect.ValueOf(obj)
		if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Type().Elem() != st {
			return reflect.Value{}, false
		}
		// A nil embedded pointer leaves promoted fields unreachable.
		fv, err := rv.Elem().FieldByIndexErr(index)
		if err != nil {
			return reflect.Value{}, false
		}
		return fv, true
	}
	vt := f.Type

	if !isArray {
		f.Get = func(obj any) Value {
			rv, ok := field(obj)
			if !ok {
				return Value{}
			}
			return readValue(rv, vt)
		}
		f.Set = func(obj any, v Value) error {
			rv, ok := field(obj)
			if !ok {
				return types.Errorf(types.ErrStalePointer, "object %T: field %q unreachable in %s", obj, f.Name, st)
			}
			return writeValue(rv, vt, v)
		}
		return f, flags, nil
	}

	f.Len = func(obj any) int {
		rv, ok := field(obj)
		if !ok {
			return 0
		}
		n := rv.Len()
		if f.ArraySize == "*" && nillable(rv.Type().Elem()) {
			for i := 0; i < n; i++ {
				if rv.Index(i).IsNil() {
					return i
				}
			}
		}
		return n
	}
	f.Elem = func(obj any, i int) Value {
		rv, ok := field(obj)
		if !ok || i < 0 || i >= rv.Len() {
			return Value{}
		}
		return readValue(rv.Index(i), vt)
	}
	f.SetElem = func(obj any, i int, v Value) error {
		rv, ok := field(obj)
		if !ok {
			return types.Errorf(types.ErrStalePointer, "object %T: field %q unreachable in %s", obj, f.Name, st)
		}
		if i < 0 || i >= rv.Len() {
			return types.Errorf(types.ErrOutOfRange, "index %d, length %d", i, rv.Len())
		}
		return writeValue(rv.Index(i), vt, v)
	}
	return f, flags, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface,
		reflect.Slice, reflect.UnsafePointer:
		return true
	}
	return false
}

// valueTypeOf maps a Go type to the semantic type used to expose it.
func valueTypeOf(t reflect.Type) ValueType {
	switch t {
	case timeType:
		return TypeTime
	case sharedType:
		return TypeSharedString
	case hashType:
		return TypeHashtable
	}
	switch t.Kind() {
	case reflect.Uint8:
		return TypeChar
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint16, reflect.Uint32, reflect.Bool:
		return TypeInteger
	case reflect.Int64, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return TypeLong
	case reflect.String:
		return TypeString
	case reflect.Pointer, reflect.UnsafePointer, reflect.Func, reflect.Chan, reflect.Interface:
		return TypePointer
	}
	return TypeOther
}

func readValue(rv reflect.Value, vt ValueType) Value {
	switch vt {
	case TypeChar:
		return CharValue(byte(rv.Uint()))
	case TypeInteger:
		switch {
		case rv.Kind() == reflect.Bool:
			if rv.Bool() {
				return IntegerValue(1)
			}
			return IntegerValue(0)
		case rv.CanInt():
			return IntegerValue(int(rv.Int()))
		default:
			return IntegerValue(int(rv.Uint()))
		}
	case TypeLong:
		if rv.CanInt() {
			return LongValue(rv.Int())
		}
		return LongValue(int64(rv.Uint()))
	case TypeString:
		return StringValue(rv.String())
	case TypeSharedString:
		h := rv.Interface().(unique.Handle[string])
		if h == (unique.Handle[string]{}) {
			return SharedStringValue("")
		}
		return Value{typ: TypeSharedString, shared: h}
	case TypePointer:
		if rv.IsNil() {
			return PointerValue(nil)
		}
		return PointerValue(rv.Interface())
	case TypeTime:
		return TimeValue(rv.Interface().(time.Time))
	case TypeHashtable:
		return HashtableValue(rv.Interface().(map[string]string))
	case TypeOther:
		if rv.CanAddr() {
			return OtherValue(rv.Addr().Interface())
		}
		return OtherValue(nil)
	}
	return Value{}
}

func writeValue(rv reflect.Value, vt ValueType, v Value) error {
	if v.Type() != vt {
		return types.Errorf(types.ErrTypeMismatch, "cannot store %s in %s field", v.Type(), vt)
	}
	if !rv.CanSet() {
		return types.ErrNotWritable
	}
	switch vt {
	case TypeChar:
		rv.SetUint(uint64(v.Char()))
	case TypeInteger:
		switch {
		case rv.Kind() == reflect.Bool:
			rv.SetBool(v.Int() != 0)
		case rv.CanInt():
			if rv.OverflowInt(v.Long()) {
				return types.Errorf(types.ErrOutOfRange, "%d overflows %s", v.Long(), rv.Type())
			}
			rv.SetInt(v.Long())
		default:
			if v.Long() < 0 || rv.OverflowUint(uint64(v.Long())) {
				return types.Errorf(types.ErrOutOfRange, "%d overflows %s", v.Long(), rv.Type())
			}
			rv.SetUint(uint64(v.Long()))
		}
	case TypeLong:
		if rv.CanInt() {
			rv.SetInt(v.Long())
		} else {
			rv.SetUint(uint64(v.Long()))
		}
	case TypeString:
		rv.SetString(v.Str())
	case TypeSharedString:
		h, _ := v.Shared()
		rv.Set(reflect.ValueOf(h))
	case TypePointer:
		if v.IsNil() {
			rv.SetZero()
			return nil
		}
		pv := reflect.ValueOf(v.Pointer())
		if !pv.Type().AssignableTo(rv.Type()) {
			return types.Errorf(types.ErrTypeMismatch, "cannot store %s in %s", pv.Type(), rv.Type())
		}
		rv.Set(pv)
	case TypeTime:
		rv.Set(reflect.ValueOf(v.Time()))
	case TypeHashtable:
		h := v.Hashtable()
		if h == nil {
			rv.SetZero()
			return nil
		}
		rv.Set(reflect.ValueOf(h))
	default:
		return types.ErrNotWritable
	}
	return nil
}
