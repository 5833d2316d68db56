package hdata

import (
	"strconv"
	"strings"

	"github.com/joshuapare/hookkit/pkg/types"
)

// FieldValue is one named value of a query result.
type FieldValue struct {
	Name  string
	Type  ValueType
	Value Value
}

// Item is one object reached by a query.
type Item struct {
	// Path holds the handle of every object on the way to this one, root
	// first.
	Path []Handle

	// Type is the name of the object's type.
	Type string

	Fields []FieldValue
}

// Query evaluates a path of the form
//
//	type:root(count)/field(count)/field...
//
// root is a list name of type or an object handle ("0x..."); each later
// segment follows a relation field. count is optional and defaults to 1;
// "*" takes every following object, a negative count walks backward. keys
// restricts the reported fields of the final objects (nil reports all).
//
// Handles supplied by the caller are resolved and then validated against
// the type's flagged lists before use.
func (w *Walker) Query(path string, keys []string) ([]Item, error) {
	if w.handles == nil {
		return nil, types.Errorf(types.ErrInvalid, "query: no handle table")
	}
	typeName, rest, ok := strings.Cut(path, ":")
	if !ok || typeName == "" || rest == "" {
		return nil, types.Errorf(types.ErrInvalid, "query %q: want type:root[/field...]", path)
	}
	t, ok := w.reg.Resolve(typeName)
	if !ok {
		return nil, types.Errorf(types.ErrNotFound, "type %q", typeName)
	}

	segs := strings.Split(rest, "/")
	rootName, count, err := w.parseSegment(segs[0])
	if err != nil {
		return nil, err
	}

	var root any
	if strings.HasPrefix(rootName, "0x") {
		h, err := ParseHandle(rootName)
		if err != nil {
			return nil, err
		}
		if root, err = w.Resolve(t, "", h); err != nil {
			return nil, err
		}
	} else {
		l, ok := t.List(rootName)
		if !ok {
			return nil, types.Errorf(types.ErrNotFound, "%s: list %q", typeName, rootName)
		}
		root = l.Root()
	}

	var out []Item
	if err := w.query(t, root, count, segs[1:], nil, keys, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Walker) parseSegment(seg string) (string, int, error) {
	name, arg, ok := strings.Cut(seg, "(")
	if !ok {
		return seg, 1, nil
	}
	arg, ok = strings.CutSuffix(arg, ")")
	if !ok || name == "" {
		return "", 0, types.Errorf(types.ErrInvalid, "query segment %q", seg)
	}
	if arg == "*" {
		return name, w.limits.MaxListLength, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n == 0 {
		return "", 0, types.Errorf(types.ErrInvalid, "query segment %q: bad count", seg)
	}
	return name, n, nil
}

func (w *Walker) query(t *Type, obj any, count int, segs []string, path []Handle, keys []string, out *[]Item) error {
	step := 1
	if count < 0 {
		step, count = -1, -count
	}
	for i := 0; i < count; i++ {
		if obj = normalizeNil(obj); obj == nil {
			break
		}
		p := append(path[:len(path):len(path)], w.handles.Ref(obj))
		if len(segs) == 0 {
			*out = append(*out, w.item(t, obj, p, keys))
		} else {
			name, n, err := w.parseSegment(segs[0])
			if err != nil {
				return err
			}
			rt, sub, err := w.FollowRelation(t, obj, name)
			if err != nil {
				return err
			}
			if err := w.query(rt, sub, n, segs[1:], p, keys, out); err != nil {
				return err
			}
		}
		if len(*out) >= w.limits.MaxListLength {
			return types.Errorf(types.ErrOutOfRange, "query: more than %d items", w.limits.MaxListLength)
		}
		obj = w.Move(t, obj, step)
	}
	return nil
}

func (w *Walker) item(t *Type, obj any, path []Handle, keys []string) Item {
	it := Item{Path: path, Type: t.Name()}
	names := keys
	if len(names) == 0 {
		names = t.FieldNames()
	}
	for _, name := range names {
		f, ok := t.Field(name)
		if !ok {
			continue
		}
		if !f.IsArray() {
			if v, ok := w.GetField(t, obj, name); ok {
				it.Fields = append(it.Fields, FieldValue{Name: name, Type: f.Type, Value: v})
			}
			continue
		}
		n, err := w.arraySize(t, f, obj)
		if err != nil {
			continue
		}
		for i := 0; i < n; i++ {
			v, err := w.elem(t, f, obj, i)
			if err != nil {
				break
			}
			it.Fields = append(it.Fields, FieldValue{Name: strconv.Itoa(i) + "|" + name, Type: f.Type, Value: v})
		}
	}
	return it
}
