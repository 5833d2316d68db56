// Package printer dumps the type registry and the hook registry for
// diagnostics ("print all hdata", "print all hooks"), as text or JSON.
//
// Dumps are read-only: types not yet materialized are listed by name but
// never resolved, and a panic while describing one entry is reported in
// place of that entry instead of aborting the dump.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/core/infolist"
)

// Format selects the dump encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat returns the format named s ("text" or "json").
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, true
	case "json":
		return FormatJSON, true
	}
	return FormatText, false
}

// Options configure a Printer.
type Options struct {
	Format Format

	// IncludeDeleted also dumps hooks unregistered but not swept yet.
	IncludeDeleted bool

	// Kinds restricts the hook dump; empty means every kind.
	Kinds []hook.Kind

	// Header styles section headers in text output. Nil prints them as is.
	Header func(string) string

	// Dim styles secondary lines (deleted hooks, unmaterialized types).
	Dim func(string) string
}

// DefaultOptions returns plain text options.
func DefaultOptions() Options {
	return Options{Format: FormatText}
}

// Printer writes dumps to w.
type Printer struct {
	w    io.Writer
	opts Options
}

// New returns a printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	if opts.Header == nil {
		opts.Header = identity
	}
	if opts.Dim == nil {
		opts.Dim = identity
	}
	return &Printer{w: w, opts: opts}
}

func identity(s string) string { return s }

// ----------------------------------------------------------------------------
// Snapshots
// ----------------------------------------------------------------------------

// FieldDump describes one field of a type.
type FieldDump struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Offset    uintptr `json:"offset"`
	Writable  bool    `json:"writable,omitempty"`
	ArraySize string  `json:"array_size,omitempty"`
	Related   string  `json:"hdata,omitempty"`
}

// ListDump describes one list root of a type.
type ListDump struct {
	Name          string `json:"name"`
	CheckPointers bool   `json:"check_pointers,omitempty"`
}

// TypeDump describes one registered type. Unmaterialized types only carry
// their name.
type TypeDump struct {
	Name         string      `json:"name"`
	Materialized bool        `json:"materialized"`
	Owner        string      `json:"owner,omitempty"`
	Prev         string      `json:"var_prev,omitempty"`
	Next         string      `json:"var_next,omitempty"`
	Create       bool        `json:"create_allowed,omitempty"`
	Delete       bool        `json:"delete_allowed,omitempty"`
	Update       bool        `json:"update,omitempty"`
	Fields       []FieldDump `json:"fields,omitempty"`
	Lists        []ListDump  `json:"lists,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// HookDump describes one hook.
type HookDump struct {
	Kind        string         `json:"kind"`
	Seq         uint64         `json:"seq"`
	Owner       string         `json:"owner"`
	Subowner    string         `json:"subowner,omitempty"`
	Priority    int            `json:"priority"`
	State       string         `json:"state"`
	Running     int            `json:"running"`
	Description string         `json:"description"`
	Vars        *infolist.Item `json:"vars,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// KindDump groups the hooks of one kind.
type KindDump struct {
	Kind    string     `json:"kind"`
	Count   int        `json:"count"`
	Deleted int        `json:"deleted"`
	Hooks   []HookDump `json:"hooks"`
}

// Types snapshots every registered type name, describing the
// materialized ones.
func Types(reg *hdata.Registry) []TypeDump {
	materialized := reg.Materialized()
	var out []TypeDump
	for _, name := range reg.AllNames() {
		if _, ok := slices.BinarySearch(materialized, name); !ok {
			out = append(out, TypeDump{Name: name})
			continue
		}
		out = append(out, describeType(reg, name))
	}
	return out
}

func describeType(reg *hdata.Registry, name string) (d TypeDump) {
	d = TypeDump{Name: name, Materialized: true}
	defer func() {
		if r := recover(); r != nil {
			d.Error = fmt.Sprint(r)
		}
	}()
	// Already materialized: Resolve only reads the cache.
	t, ok := reg.Resolve(name)
	if !ok {
		d.Error = "type vanished during dump"
		return d
	}
	d.Owner = t.Owner()
	d.Prev, d.Next = t.Prev(), t.Next()
	d.Create, d.Delete, d.Update = t.CreateAllowed(), t.DeleteAllowed(), t.HasUpdate()
	for _, fname := range t.FieldNames() {
		f, _ := t.Field(fname)
		d.Fields = append(d.Fields, FieldDump{
			Name:      f.Name,
			Type:      f.Type.String(),
			Offset:    f.Offset,
			Writable:  f.Writable,
			ArraySize: f.ArraySize,
			Related:   f.Related,
		})
	}
	for _, lname := range t.ListNames() {
		l, _ := t.List(lname)
		d.Lists = append(d.Lists, ListDump{Name: l.Name, CheckPointers: l.Flags&hdata.ListCheckPointers != 0})
	}
	return d
}

// Hooks snapshots the hooks of reg selected by opts.
func Hooks(reg *hook.Registry, opts Options) []KindDump {
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = hook.Kinds()
	}
	var out []KindDump
	for _, k := range kinds {
		kd := KindDump{Kind: k.String(), Count: reg.Count(k), Deleted: reg.Pending(k), Hooks: []HookDump{}}
		for h := range reg.Hooks(k) {
			if h.Deleted() && !opts.IncludeDeleted {
				continue
			}
			kd.Hooks = append(kd.Hooks, describeHook(h))
		}
		out = append(out, kd)
	}
	return out
}

func describeHook(h *hook.Hook) (d HookDump) {
	d = HookDump{
		Kind:     h.Kind().String(),
		Seq:      h.Seq(),
		Owner:    h.Owner(),
		Subowner: h.Subowner(),
		Priority: h.Priority(),
		State:    h.State().String(),
		Running:  h.Running(),
	}
	if d.Owner == "" {
		d.Owner = "core"
	}
	defer func() {
		if r := recover(); r != nil {
			d.Error = fmt.Sprint(r)
		}
	}()
	d.Description = h.Description()
	l := infolist.New("hook", "")
	h.AddToInfolist(l)
	if items := l.Items(); len(items) == 1 {
		d.Vars = items[0]
	}
	return d
}

// ----------------------------------------------------------------------------
// Output
// ----------------------------------------------------------------------------

// Hdata dumps every type of reg.
func (p *Printer) Hdata(reg *hdata.Registry) error {
	types := Types(reg)
	if p.opts.Format == FormatJSON {
		return p.json(map[string]any{"hdata": types})
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", p.opts.Header(fmt.Sprintf("hdata (%d types)", len(types))))
	for _, t := range types {
		writeType(&sb, t, p.opts)
	}
	_, err := io.WriteString(p.w, sb.String())
	return err
}

func writeType(sb *strings.Builder, t TypeDump, opts Options) {
	if !t.Materialized {
		fmt.Fprintf(sb, "%s\n", opts.Dim(fmt.Sprintf("  [hdata %q] (not materialized)", t.Name)))
		return
	}
	owner := t.Owner
	if owner == "" {
		owner = "core"
	}
	fmt.Fprintf(sb, "  [hdata %q] (owner: %s)\n", t.Name, owner)
	if t.Error != "" {
		fmt.Fprintf(sb, "    error: %s\n", t.Error)
		return
	}
	fmt.Fprintf(sb, "    var_prev: %q, var_next: %q, create: %s, delete: %s, update: %s\n",
		t.Prev, t.Next, yesNo(t.Create), yesNo(t.Delete), yesNo(t.Update))
	for _, f := range t.Fields {
		var attrs []string
		attrs = append(attrs, f.Type, "offset "+strconv.FormatUint(uint64(f.Offset), 10))
		if f.Writable {
			attrs = append(attrs, "writable")
		}
		if f.ArraySize != "" {
			attrs = append(attrs, fmt.Sprintf("array_size: %q", f.ArraySize))
		}
		if f.Related != "" {
			attrs = append(attrs, fmt.Sprintf("hdata: %q", f.Related))
		}
		fmt.Fprintf(sb, "    %-24s %s\n", f.Name, strings.Join(attrs, ", "))
	}
	for _, l := range t.Lists {
		check := ""
		if l.CheckPointers {
			check = " (check pointers)"
		}
		fmt.Fprintf(sb, "    list %q%s\n", l.Name, check)
	}
}

// Hooks dumps the hooks of reg.
func (p *Printer) Hooks(reg *hook.Registry) error {
	kinds := Hooks(reg, p.opts)
	if p.opts.Format == FormatJSON {
		return p.json(map[string]any{"hooks": kinds, "total": reg.CountTotal()})
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", p.opts.Header(fmt.Sprintf("hooks (%d total)", reg.CountTotal())))
	for _, kd := range kinds {
		if len(kd.Hooks) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  [%s] %d hooks, %d deleted\n", kd.Kind, kd.Count, kd.Deleted)
		for _, h := range kd.Hooks {
			writeHook(&sb, h, p.opts)
		}
	}
	_, err := io.WriteString(p.w, sb.String())
	return err
}

func writeHook(sb *strings.Builder, h HookDump, opts Options) {
	line := fmt.Sprintf("    #%d %s/%s prio %d: %s", h.Seq, h.Owner, h.Kind, h.Priority, h.Description)
	if h.State != hook.StateActive.String() {
		line = opts.Dim(line + " (" + h.State + ")")
	}
	sb.WriteString(line)
	sb.WriteByte('\n')
	if h.Error != "" {
		fmt.Fprintf(sb, "      error: %s\n", h.Error)
		return
	}
	if h.Vars == nil {
		return
	}
	for _, v := range h.Vars.Vars() {
		fmt.Fprintf(sb, "      %-20s %s\n", v.Name+":", formatVar(v))
	}
}

func formatVar(v infolist.Var) string {
	switch v.Type {
	case infolist.Integer:
		return strconv.Itoa(v.Int)
	case infolist.Time:
		if v.Time.IsZero() {
			return "0"
		}
		return v.Time.UTC().Format(time.RFC3339)
	case infolist.Buffer:
		return fmt.Sprintf("(%d bytes)", len(v.Buf))
	}
	return strconv.Quote(v.Str)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
