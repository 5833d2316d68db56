package hdata

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joshuapare/hookkit/pkg/types"
)

// Field describes one named, typed field of a host structure.
type Field struct {
	Name string

	// Offset is the byte offset of the field in its host structure. It is
	// informational: all access goes through the Accessor.
	Offset uintptr

	Type ValueType

	// Writable allows external callers to mutate the field through
	// [Walker.SetField] and update callbacks.
	Writable bool

	// ArraySize is empty for scalar fields. Otherwise it is a literal count,
	// the name of a sibling integer field holding the count, or "*" for an
	// automatic size.
	ArraySize string

	// ElemSize is the byte size of one array element, when known.
	ElemSize uintptr

	// Related names the type of the object this pointer field points to.
	Related string

	Accessor
}

// IsArray reports whether the field is an array.
func (f *Field) IsArray() bool { return f.ArraySize != "" }

// ListFlags modify list root behavior.
type ListFlags uint8

const (
	// ListCheckPointers makes the list part of pointer validation when
	// [Walker.ValidatePointer] is called without a list name.
	ListCheckPointers ListFlags = 1 << iota
)

// List is a named entry point into a linked list of objects of a type.
type List struct {
	Name  string
	Flags ListFlags

	// Root returns the current head (or tail, for "last_*" lists) of the list.
	Root func() any
}

// UpdateFunc applies a named-value update to obj. It runs with the type's
// update pending, so it may call [Walker.Set]. It returns the number of
// fields updated.
type UpdateFunc func(w *Walker, t *Type, obj any, values map[string]string) int

// TypeOptions configure a new Type.
type TypeOptions struct {
	// Owner is the plugin that registered the type; empty means core.
	Owner string

	// Prev and Next name the pointer fields linking objects into a list.
	Prev, Next string

	CreateAllowed bool
	DeleteAllowed bool

	Update UpdateFunc
}

// Type describes a host structure: its fields, list links and list roots.
type Type struct {
	name   string
	opts   TypeOptions
	fields map[string]*Field
	lists  map[string]*List

	updatePending bool
}

// NewType returns an empty type description.
func NewType(name string, opts TypeOptions) *Type {
	return &Type{
		name:   name,
		opts:   opts,
		fields: make(map[string]*Field),
		lists:  make(map[string]*List),
	}
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Owner returns the owning plugin, empty for core.
func (t *Type) Owner() string { return t.opts.Owner }

// SetOwner sets the plugin owning the type, if it has none yet.
func (t *Type) SetOwner(owner string) {
	if t.opts.Owner == "" {
		t.opts.Owner = owner
	}
}

// Prev returns the name of the field linking to the previous object.
func (t *Type) Prev() string { return t.opts.Prev }

// Next returns the name of the field linking to the next object.
func (t *Type) Next() string { return t.opts.Next }

func (t *Type) CreateAllowed() bool { return t.opts.CreateAllowed }
func (t *Type) DeleteAllowed() bool { return t.opts.DeleteAllowed }

// HasUpdate reports whether the type has an update callback.
func (t *Type) HasUpdate() bool { return t.opts.Update != nil }

// AddField adds a field. Names are unique within a type.
func (t *Type) AddField(f Field) error {
	switch {
	case f.Name == "":
		return types.Errorf(types.ErrInvalid, "%s: empty field name", t.name)
	case strings.ContainsAny(f.Name, "|."):
		return types.Errorf(types.ErrInvalid, "%s: field name %q contains '|' or '.'", t.name, f.Name)
	case f.Type == TypeInvalid || f.Type > TypeOther:
		return types.Errorf(types.ErrInvalid, "%s.%s: invalid value type", t.name, f.Name)
	}
	if _, dup := t.fields[f.Name]; dup {
		return types.Errorf(types.ErrInvalid, "%s.%s: duplicate field", t.name, f.Name)
	}
	if f.IsArray() {
		if f.Elem == nil {
			return types.Errorf(types.ErrInvalid, "%s.%s: array field without element accessor", t.name, f.Name)
		}
		if f.Writable && f.SetElem == nil {
			f.Writable = false
		}
	} else {
		if f.Get == nil {
			return types.Errorf(types.ErrInvalid, "%s.%s: field without accessor", t.name, f.Name)
		}
		if f.Writable && f.Set == nil {
			f.Writable = false
		}
	}
	if f.Type == TypeOther {
		f.Writable = false
	}
	t.fields[f.Name] = &f
	return nil
}

// MustAddField is AddField for static descriptions; it panics on error.
func (t *Type) MustAddField(f Field) {
	if err := t.AddField(f); err != nil {
		panic(err)
	}
}

// AddList adds a named list root.
func (t *Type) AddList(name string, root func() any, flags ListFlags) error {
	if name == "" || root == nil {
		return types.Errorf(types.ErrInvalid, "%s: invalid list %q", t.name, name)
	}
	if _, dup := t.lists[name]; dup {
		return types.Errorf(types.ErrInvalid, "%s: duplicate list %q", t.name, name)
	}
	t.lists[name] = &List{Name: name, Flags: flags, Root: root}
	return nil
}

// Field returns the field named name.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// FieldNames returns the sorted field names.
func (t *Type) FieldNames() []string {
	return slices.Sorted(maps.Keys(t.fields))
}

// List returns the list root named name.
func (t *Type) List(name string) (*List, bool) {
	l, ok := t.lists[name]
	return l, ok
}

// ListNames returns the sorted list names.
func (t *Type) ListNames() []string {
	return slices.Sorted(maps.Keys(t.lists))
}

// Property returns a string property of the type:
//
//	var_keys         field names
//	var_values       field types
//	var_keys_values  name:type pairs
//	var_prev         prev link field
//	var_next         next link field
//	list_keys        list names
//	list_values      list flags
//	list_keys_values name:flags pairs
//
// Multiple entries are comma-separated, sorted by name.
func (t *Type) Property(name string) (string, bool) {
	switch name {
	case "var_keys":
		return strings.Join(t.FieldNames(), ","), true
	case "var_values", "var_keys_values":
		var parts []string
		for _, n := range t.FieldNames() {
			v := t.fields[n].Type.String()
			if name == "var_keys_values" {
				v = n + ":" + v
			}
			parts = append(parts, v)
		}
		return strings.Join(parts, ","), true
	case "var_prev":
		return t.opts.Prev, true
	case "var_next":
		return t.opts.Next, true
	case "list_keys":
		return strings.Join(t.ListNames(), ","), true
	case "list_values", "list_keys_values":
		var parts []string
		for _, n := range t.ListNames() {
			v := strconv.Itoa(int(t.lists[n].Flags))
			if name == "list_keys_values" {
				v = n + ":" + v
			}
			parts = append(parts, v)
		}
		return strings.Join(parts, ","), true
	}
	return "", false
}

// SameShape reports whether t and o describe the same fields, links and
// lists. Accessors are not compared.
func (t *Type) SameShape(o *Type) bool {
	if t.name != o.name || t.opts.Prev != o.opts.Prev || t.opts.Next != o.opts.Next ||
		t.opts.CreateAllowed != o.opts.CreateAllowed || t.opts.DeleteAllowed != o.opts.DeleteAllowed ||
		len(t.fields) != len(o.fields) || len(t.lists) != len(o.lists) {
		return false
	}
	for name, f := range t.fields {
		g, ok := o.fields[name]
		if !ok || f.Offset != g.Offset || f.Type != g.Type || f.Writable != g.Writable ||
			f.ArraySize != g.ArraySize || f.Related != g.Related {
			return false
		}
	}
	for name, l := range t.lists {
		if m, ok := o.lists[name]; !ok || l.Flags != m.Flags {
			return false
		}
	}
	return true
}
