// Package infolist provides read-only snapshots of object state: a list of
// items, each a sequence of named, typed variables. Unlike hdata, an
// infolist holds copies, so it can outlive the objects it describes and be
// serialized across a process boundary.
package infolist

import (
	"encoding/json"
	"strings"
	"time"
)

// VarType is the type of one infolist variable.
type VarType uint8

const (
	Integer VarType = iota
	String
	Pointer
	Buffer
	Time
)

var varTypeChars = [...]string{
	Integer: "i",
	String:  "s",
	Pointer: "p",
	Buffer:  "b",
	Time:    "t",
}

// Char returns the one-letter code used in field lists ("i", "s", ...).
func (t VarType) Char() string {
	if int(t) < len(varTypeChars) {
		return varTypeChars[t]
	}
	return "?"
}

// Var is one named value of an item. Pointer variables hold the text form
// of a handle or address, never a live reference.
type Var struct {
	Name string
	Type VarType

	Int  int
	Str  string
	Buf  []byte
	Time time.Time
}

func (v *Var) value() any {
	switch v.Type {
	case Integer:
		return v.Int
	case Buffer:
		return v.Buf
	case Time:
		return v.Time.Unix()
	}
	return v.Str
}

// Item is one entry of an infolist.
type Item struct {
	vars []Var
}

func (it *Item) add(v Var) *Item {
	it.vars = append(it.vars, v)
	return it
}

// AddInteger appends an integer variable.
func (it *Item) AddInteger(name string, n int) *Item {
	return it.add(Var{Name: name, Type: Integer, Int: n})
}

// AddString appends a string variable.
func (it *Item) AddString(name, s string) *Item {
	return it.add(Var{Name: name, Type: String, Str: s})
}

// AddPointer appends a pointer variable given in text form.
func (it *Item) AddPointer(name, ref string) *Item {
	return it.add(Var{Name: name, Type: Pointer, Str: ref})
}

// AddBuffer appends a copy of b.
func (it *Item) AddBuffer(name string, b []byte) *Item {
	return it.add(Var{Name: name, Type: Buffer, Buf: append([]byte(nil), b...)})
}

// AddTime appends a time variable.
func (it *Item) AddTime(name string, t time.Time) *Item {
	return it.add(Var{Name: name, Type: Time, Time: t})
}

// Var returns the variable named name.
func (it *Item) Var(name string) (Var, bool) {
	for _, v := range it.vars {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// Vars returns the item's variables in insertion order.
func (it *Item) Vars() []Var { return it.vars }

// Fields describes the item's variables as "type:name" pairs, e.g.
// "s:name,i:priority".
func (it *Item) Fields() string {
	parts := make([]string, len(it.vars))
	for i, v := range it.vars {
		parts[i] = v.Type.Char() + ":" + v.Name
	}
	return strings.Join(parts, ",")
}

// MarshalJSON encodes the item as an object of its variables.
func (it *Item) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(it.vars))
	for i := range it.vars {
		m[it.vars[i].Name] = it.vars[i].value()
	}
	return json.Marshal(m)
}

// Infolist is an ordered list of items with a cursor. The cursor starts
// before the first item.
type Infolist struct {
	Name  string
	Owner string

	items  []*Item
	cursor int
}

// New returns an empty infolist.
func New(name, owner string) *Infolist {
	return &Infolist{Name: name, Owner: owner, cursor: -1}
}

// NewItem appends an empty item and returns it.
func (l *Infolist) NewItem() *Item {
	it := &Item{}
	l.items = append(l.items, it)
	return it
}

// Len returns the number of items.
func (l *Infolist) Len() int { return len(l.items) }

// Items returns all items.
func (l *Infolist) Items() []*Item { return l.items }

// Next moves the cursor to the next item and reports whether there is one.
func (l *Infolist) Next() bool {
	if l.cursor < len(l.items) {
		l.cursor++
	}
	return l.cursor < len(l.items)
}

// Prev moves the cursor to the previous item. From the reset position it
// moves to the last item.
func (l *Infolist) Prev() bool {
	switch {
	case l.cursor < 0 || l.cursor >= len(l.items):
		l.cursor = len(l.items) - 1
	default:
		l.cursor--
	}
	return l.cursor >= 0
}

// Reset puts the cursor back before the first item.
func (l *Infolist) Reset() { l.cursor = -1 }

// Current returns the item under the cursor, nil when there is none.
func (l *Infolist) Current() *Item {
	if l.cursor < 0 || l.cursor >= len(l.items) {
		return nil
	}
	return l.items[l.cursor]
}

// Integer reads an integer variable of the current item.
func (l *Infolist) Integer(name string) int {
	if v, ok := l.lookup(name); ok && v.Type == Integer {
		return v.Int
	}
	return 0
}

// String reads a string or pointer variable of the current item.
func (l *Infolist) String(name string) string {
	if v, ok := l.lookup(name); ok && (v.Type == String || v.Type == Pointer) {
		return v.Str
	}
	return ""
}

// Time reads a time variable of the current item.
func (l *Infolist) Time(name string) time.Time {
	if v, ok := l.lookup(name); ok && v.Type == Time {
		return v.Time
	}
	return time.Time{}
}

func (l *Infolist) lookup(name string) (Var, bool) {
	it := l.Current()
	if it == nil {
		return Var{}, false
	}
	return it.Var(name)
}

// MarshalJSON encodes the infolist as {"name":..., "items":[...]}.
func (l *Infolist) MarshalJSON() ([]byte, error) {
	items := l.items
	if items == nil {
		items = []*Item{}
	}
	return json.Marshal(struct {
		Name  string  `json:"name"`
		Items []*Item `json:"items"`
	}{l.Name, items})
}
