package hdata

import (
	"time"

	"github.com/joshuapare/hookkit/pkg/types"
)

// Accessor reads and writes one field of a host object. Scalar fields set
// Get (and Set when writable). Array fields set Elem (and SetElem when
// writable) plus Len, which reports how many elements are actually backed
// by storage and bounds every array access.
type Accessor struct {
	Get     func(obj any) Value
	Set     func(obj any, v Value) error
	Len     func(obj any) int
	Elem    func(obj any, i int) Value
	SetElem func(obj any, i int, v Value) error
}

// scalar builds an Accessor for a field of *T with Go type F.
func scalar[T, F any](get func(*T) F, set func(*T, F), wrap func(F) Value, unwrap func(Value) (F, bool)) Accessor {
	acc := Accessor{
		Get: func(obj any) Value {
			o, ok := obj.(*T)
			if !ok || o == nil {
				return Value{}
			}
			return wrap(get(o))
		},
	}
	if set != nil {
		acc.Set = func(obj any, v Value) error {
			o, ok := obj.(*T)
			if !ok || o == nil {
				return types.Errorf(types.ErrStalePointer, "object is %T, want %T", obj, o)
			}
			f, ok := unwrap(v)
			if !ok {
				return types.Errorf(types.ErrTypeMismatch, "cannot store %s", v.Type())
			}
			set(o, f)
			return nil
		}
	}
	return acc
}

// CharField describes a byte field of *T.
func CharField[T any](get func(*T) byte, set func(*T, byte)) Accessor {
	return scalar(get, set, CharValue, func(v Value) (byte, bool) {
		return v.Char(), v.Type() == TypeChar
	})
}

// IntField describes an int field of *T.
func IntField[T any](get func(*T) int, set func(*T, int)) Accessor {
	return scalar(get, set, IntegerValue, func(v Value) (int, bool) {
		return v.Int(), v.Type() == TypeInteger
	})
}

// LongField describes an int64 field of *T.
func LongField[T any](get func(*T) int64, set func(*T, int64)) Accessor {
	return scalar(get, set, LongValue, func(v Value) (int64, bool) {
		return v.Long(), v.Type() == TypeLong
	})
}

// StringField describes a string field of *T.
func StringField[T any](get func(*T) string, set func(*T, string)) Accessor {
	return scalar(get, set, StringValue, func(v Value) (string, bool) {
		return v.Str(), v.Type() == TypeString
	})
}

// TimeField describes a time.Time field of *T.
func TimeField[T any](get func(*T) time.Time, set func(*T, time.Time)) Accessor {
	return scalar(get, set, TimeValue, func(v Value) (time.Time, bool) {
		return v.Time(), v.Type() == TypeTime
	})
}

// HashtableField describes a map[string]string field of *T.
func HashtableField[T any](get func(*T) map[string]string, set func(*T, map[string]string)) Accessor {
	return scalar(get, set, HashtableValue, func(v Value) (map[string]string, bool) {
		return v.Hashtable(), v.Type() == TypeHashtable
	})
}

// PointerField describes a pointer-like field of *T holding a P.
func PointerField[T, P any](get func(*T) P, set func(*T, P)) Accessor {
	return scalar(get, set, func(p P) Value { return PointerValue(p) }, func(v Value) (P, bool) {
		var zero P
		if v.Type() != TypePointer {
			return zero, false
		}
		if v.IsNil() {
			return zero, true
		}
		p, ok := v.Pointer().(P)
		return p, ok
	})
}

// OtherField describes an opaque field of *T; addr returns the field's address.
func OtherField[T, F any](addr func(*T) *F) Accessor {
	return scalar[T, *F](addr, nil, func(p *F) Value { return OtherValue(p) }, nil)
}

// StringSliceField describes a []string field of *T as an array with
// automatic ("*") size.
func StringSliceField[T any](get func(*T) []string) Accessor {
	return Accessor{
		Len: func(obj any) int {
			o, ok := obj.(*T)
			if !ok || o == nil {
				return 0
			}
			return len(get(o))
		},
		Elem: func(obj any, i int) Value {
			o, ok := obj.(*T)
			if !ok || o == nil {
				return Value{}
			}
			s := get(o)
			if i < 0 || i >= len(s) {
				return Value{}
			}
			return StringValue(s[i])
		},
	}
}
