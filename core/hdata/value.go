package hdata

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unique"
)

// ValueType is the semantic type of a field.
type ValueType uint8

const (
	// TypeInvalid marks the zero Value (no field, failed read).
	TypeInvalid ValueType = iota
	TypeChar
	TypeInteger
	TypeLong
	TypeString
	TypeSharedString
	TypePointer
	TypeTime
	TypeHashtable
	// TypeOther fields are opaque: readable only as the field's address.
	TypeOther
)

var valueTypeNames = [...]string{
	TypeInvalid:      "invalid",
	TypeChar:         "char",
	TypeInteger:      "integer",
	TypeLong:         "long",
	TypeString:       "string",
	TypeSharedString: "shared_string",
	TypePointer:      "pointer",
	TypeTime:         "time",
	TypeHashtable:    "hashtable",
	TypeOther:        "other",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", t)
}

// ParseValueType returns the ValueType whose String form is s.
func ParseValueType(s string) (ValueType, bool) {
	for i, name := range valueTypeNames {
		if i != int(TypeInvalid) && name == s {
			return ValueType(i), true
		}
	}
	return TypeInvalid, false
}

// Value is a tagged union holding one field value. The zero Value is
// invalid and is what failed reads produce.
type Value struct {
	typ    ValueType
	num    int64
	str    string
	shared unique.Handle[string]
	ptr    any
	tm     time.Time
	hash   map[string]string
}

// CharValue returns a Char value.
func CharValue(c byte) Value { return Value{typ: TypeChar, num: int64(c)} }

// IntegerValue returns an Integer value.
func IntegerValue(n int) Value { return Value{typ: TypeInteger, num: int64(n)} }

// LongValue returns a Long value.
func LongValue(n int64) Value { return Value{typ: TypeLong, num: n} }

// StringValue returns a String value.
func StringValue(s string) Value { return Value{typ: TypeString, str: s} }

// SharedStringValue returns a SharedString value interned with [unique.Make].
func SharedStringValue(s string) Value {
	return Value{typ: TypeSharedString, shared: unique.Make(s)}
}

// PointerValue returns a Pointer value. A typed nil pointer is normalized to
// an untyped nil so that IsNil and equality behave as callers expect.
func PointerValue(p any) Value { return Value{typ: TypePointer, ptr: normalizeNil(p)} }

// TimeValue returns a Time value.
func TimeValue(t time.Time) Value { return Value{typ: TypeTime, tm: t} }

// HashtableValue returns a Hashtable value. The map is not copied.
func HashtableValue(h map[string]string) Value { return Value{typ: TypeHashtable, hash: h} }

// OtherValue returns an opaque value holding the address of a field.
func OtherValue(addr any) Value { return Value{typ: TypeOther, ptr: normalizeNil(addr)} }

// Type returns the value's semantic type.
func (v Value) Type() ValueType { return v.typ }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.typ != TypeInvalid }

// Char returns the value of a Char field, 0 otherwise.
func (v Value) Char() byte {
	if v.typ != TypeChar {
		return 0
	}
	return byte(v.num)
}

// Int returns the value of a Char, Integer or Long field as an int.
func (v Value) Int() int { return int(v.Long()) }

// Long returns the value of a Char, Integer or Long field.
func (v Value) Long() int64 {
	switch v.typ {
	case TypeChar, TypeInteger, TypeLong:
		return v.num
	case TypeTime:
		return v.tm.Unix()
	}
	return 0
}

// Str returns the value of a String or SharedString field.
func (v Value) Str() string {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeSharedString:
		return v.shared.Value()
	}
	return ""
}

// Shared returns the interned handle of a SharedString field. Two shared
// strings with the same content compare equal by handle.
func (v Value) Shared() (unique.Handle[string], bool) {
	return v.shared, v.typ == TypeSharedString
}

// Pointer returns the value of a Pointer field, or the field address of an
// Other field.
func (v Value) Pointer() any {
	if v.typ != TypePointer && v.typ != TypeOther {
		return nil
	}
	return v.ptr
}

// IsNil reports whether a Pointer value is null.
func (v Value) IsNil() bool { return v.Pointer() == nil }

// Time returns the value of a Time field.
func (v Value) Time() time.Time {
	if v.typ != TypeTime {
		return time.Time{}
	}
	return v.tm
}

// Hashtable returns the value of a Hashtable field.
func (v Value) Hashtable() map[string]string {
	if v.typ != TypeHashtable {
		return nil
	}
	return v.hash
}

// String renders the value as text. Pointers are rendered as addresses,
// times as Unix seconds, hashtables as sorted "key:value" pairs.
func (v Value) String() string {
	switch v.typ {
	case TypeChar:
		if v.num == 0 {
			return ""
		}
		return string(rune(byte(v.num)))
	case TypeInteger, TypeLong:
		return strconv.FormatInt(v.num, 10)
	case TypeString, TypeSharedString:
		return v.Str()
	case TypePointer, TypeOther:
		return FormatAddr(v.ptr)
	case TypeTime:
		if v.tm.IsZero() {
			return "0"
		}
		return strconv.FormatInt(v.tm.Unix(), 10)
	case TypeHashtable:
		if v.hash == nil {
			return ""
		}
		keys := slices.Sorted(maps.Keys(v.hash))
		var sb strings.Builder
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte(':')
			sb.WriteString(v.hash[k])
		}
		return sb.String()
	}
	return ""
}

// Equal reports whether a and b have the same type and content. Pointers
// compare by identity, hashtables by content.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeInvalid:
		return true
	case TypeChar, TypeInteger, TypeLong:
		return v.num == o.num
	case TypeString:
		return v.str == o.str
	case TypeSharedString:
		return v.shared == o.shared
	case TypePointer, TypeOther:
		return Addr(v.ptr) == Addr(o.ptr)
	case TypeTime:
		return v.tm.Equal(o.tm)
	case TypeHashtable:
		return maps.Equal(v.hash, o.hash)
	}
	return false
}

// normalizeNil turns a typed nil (pointer, map, func, ...) into untyped nil.
func normalizeNil(p any) any {
	if p == nil {
		return nil
	}
	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice,
		reflect.Interface, reflect.UnsafePointer:
		if rv.IsNil() {
			return nil
		}
	}
	return p
}

// Addr returns the machine address behind a pointer-like value, or 0.
func Addr(p any) uintptr {
	p = normalizeNil(p)
	if p == nil {
		return 0
	}
	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice,
		reflect.UnsafePointer:
		return rv.Pointer()
	}
	return 0
}

// FormatAddr renders a pointer-like value as "0x..." hex, "0x0" for nil.
func FormatAddr(p any) string {
	return "0x" + strconv.FormatUint(uint64(Addr(p)), 16)
}
