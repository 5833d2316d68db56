package hook

import (
	"time"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/pkg/types"
)

// HdataSpec describes an hdata hook: a provider for the description of
// one host type, called at most once, on the first lookup of the name.
type HdataSpec struct {
	Name        string
	Description string
	Priority    int
	Callback    hdata.Provider
}

type hdataData struct{ spec HdataSpec }

func (d *hdataData) describe() string { return d.spec.Name }

func (d *hdataData) addToInfolist(it *infolist.Item) {
	it.AddString("hdata_name", d.spec.Name).
		AddString("description", d.spec.Description)
}

// HookHdata registers a type provider.
func (r *Registry) HookHdata(owner string, spec HdataSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Name)
	spec.Name, spec.Priority = k.Name, k.Priority
	if spec.Name == "" || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "hdata %q: missing name or callback", spec.Name)
	}
	return r.add(KindHdata, owner, spec.Priority, &hdataData{spec: spec}), nil
}

// LookupProvider implements hdata.Source: the first hdata hook registered
// for name (exact match) provides the type.
func (r *Registry) LookupProvider(name string) (hdata.Provider, bool) {
	for h := range r.Hooks(KindHdata) {
		d := h.data.(*hdataData)
		if h.state != StateActive || d.spec.Name != name {
			continue
		}
		return func(name string) (*hdata.Type, error) {
			var t *hdata.Type
			var err error
			if !r.execStart() {
				return nil, types.Errorf(types.ErrBusy, "hdata %q", name)
			}
			defer r.execEnd()
			r.call(h, func() { t, err = d.spec.Callback(name) })
			if t != nil {
				t.SetOwner(h.owner)
			}
			return t, err
		}, true
	}
	return nil, false
}

// HdataDescriptions lists the names and descriptions of hdata hooks.
func (r *Registry) HdataDescriptions() map[string]string {
	out := make(map[string]string)
	for h := range r.Hooks(KindHdata) {
		if d := h.data.(*hdataData); h.state == StateActive {
			if _, ok := out[d.spec.Name]; !ok {
				out[d.spec.Name] = d.spec.Description
			}
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Self description
// ----------------------------------------------------------------------------

// HookListName is the hdata list of kind's hooks, from the first one.
func HookListName(kind Kind) string { return "weechat_hooks_" + kind.String() }

// LastHookListName is the hdata list of kind's hooks, from the last one.
func LastHookListName(kind Kind) string { return "last_weechat_hook_" + kind.String() }

// DescribeHooks is the hdata provider of type "hook": every hook with its
// generic attributes, linked per kind through prev_hook / next_hook.
func (r *Registry) DescribeHooks(name string) (*hdata.Type, error) {
	t := hdata.NewType(name, hdata.TypeOptions{Prev: "prev_hook", Next: "next_hook"})
	fields := []hdata.Field{
		{Name: "type", Type: hdata.TypeString, Accessor: hdata.StringField(
			func(h *Hook) string { return h.kind.String() }, nil)},
		{Name: "plugin", Type: hdata.TypeString, Accessor: hdata.StringField(
			func(h *Hook) string { return ownerName(h.owner) }, nil)},
		{Name: "subplugin", Type: hdata.TypeString, Accessor: hdata.StringField(
			func(h *Hook) string { return h.subowner }, nil)},
		{Name: "priority", Type: hdata.TypeInteger, Accessor: hdata.IntField(
			func(h *Hook) int { return h.priority }, nil)},
		{Name: "deleted", Type: hdata.TypeInteger, Accessor: hdata.IntField(
			func(h *Hook) int { return boolInt(h.Deleted()) }, nil)},
		{Name: "running", Type: hdata.TypeInteger, Accessor: hdata.IntField(
			func(h *Hook) int { return h.running }, nil)},
		{Name: "seq", Type: hdata.TypeLong, Accessor: hdata.LongField(
			func(h *Hook) int64 { return int64(h.seq) }, nil)},
		{Name: "created", Type: hdata.TypeTime, Accessor: hdata.TimeField(
			func(h *Hook) time.Time { return h.created }, nil)},
		{Name: "description", Type: hdata.TypeString, Accessor: hdata.StringField(
			(*Hook).Description, nil)},
		{Name: "prev_hook", Type: hdata.TypePointer, Related: name, Accessor: hdata.PointerField(
			func(h *Hook) *Hook { return h.prev }, nil)},
		{Name: "next_hook", Type: hdata.TypePointer, Related: name, Accessor: hdata.PointerField(
			func(h *Hook) *Hook { return h.next }, nil)},
	}
	for _, f := range fields {
		if err := t.AddField(f); err != nil {
			return nil, err
		}
	}
	for _, kind := range Kinds() {
		if err := t.AddList(HookListName(kind), func() any { return r.lists[kind].head }, hdata.ListCheckPointers); err != nil {
			return nil, err
		}
		if err := t.AddList(LastHookListName(kind), func() any { return r.lists[kind].last }, 0); err != nil {
			return nil, err
		}
	}
	return t, nil
}
