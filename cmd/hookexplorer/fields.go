package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/pkg/host"
)

// fieldRow is one line of the field pane.
type fieldRow struct {
	Name     string
	Type     string
	Value    string
	Writable bool

	// Raw is the value as /set-style text, used to seed edits and copies.
	Raw string

	// Detail is the multi-line rendering shown in the detail modal.
	Detail string
}

// describeRows lists the field declarations of a type, for type and list
// nodes where there is no object to read.
func describeRows(w *hdata.Walker, t *hdata.Type) []fieldRow {
	rows := make([]fieldRow, 0, len(t.FieldNames()))
	for _, name := range t.FieldNames() {
		f, _ := t.Field(name)
		typ := f.Type.String()
		if size, ok := w.ArraySizeString(t, name); ok && size != "" {
			typ += "[" + size + "]"
		}
		var notes []string
		if f.Related != "" {
			notes = append(notes, "→ "+f.Related)
		}
		switch name {
		case t.Prev():
			notes = append(notes, "prev link")
		case t.Next():
			notes = append(notes, "next link")
		}
		if f.Writable {
			notes = append(notes, "writable")
		}
		rows = append(rows, fieldRow{
			Name:     name,
			Type:     typ,
			Value:    strings.Join(notes, ", "),
			Writable: f.Writable,
			Detail:   fmt.Sprintf("%s.%s\n\ntype:   %s\noffset: %d\n", t.Name(), name, typ, f.Offset),
		})
	}
	return rows
}

// valueRows reads every field of obj.
func valueRows(c *host.Context, t *hdata.Type, obj any) []fieldRow {
	w := c.Walker()
	rows := make([]fieldRow, 0, len(t.FieldNames()))
	for _, name := range t.FieldNames() {
		f, _ := t.Field(name)
		row := fieldRow{Name: name, Type: f.Type.String(), Writable: f.Writable}
		if f.IsArray() {
			row.Type += "[]"
			n, err := w.ArraySize(t, obj, name)
			if err != nil {
				row.Value = "error: " + err.Error()
				row.Detail = row.Value
				rows = append(rows, row)
				continue
			}
			var sb strings.Builder
			elems := make([]string, 0, n)
			for i := range n {
				v, err := w.GetFieldArray(t, obj, name, i)
				text := c.FormatValue(v)
				if err != nil {
					text = "error: " + err.Error()
				}
				elems = append(elems, v.String())
				fmt.Fprintf(&sb, "[%d] %s\n", i, text)
			}
			row.Value = fmt.Sprintf("[%d] %s", n, strings.Join(elems, ", "))
			row.Raw = strings.Join(elems, ",")
			row.Detail = sb.String()
			rows = append(rows, row)
			continue
		}
		v, ok := w.GetField(t, obj, name)
		if !ok {
			row.Value = "?"
			rows = append(rows, row)
			continue
		}
		row.Value = c.FormatValue(v)
		row.Raw = v.String()
		if v.Type() == hdata.TypePointer && !v.IsNil() {
			row.Raw = c.Handle(v.Pointer()).String()
		}
		row.Detail = valueDetail(v, row.Value)
		rows = append(rows, row)
	}
	return rows
}

func valueDetail(v hdata.Value, formatted string) string {
	if v.Type() != hdata.TypeHashtable {
		return formatted
	}
	h := v.Hashtable()
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Fprintf(&sb, "%s = %q\n", k, h[k])
	}
	return sb.String()
}
