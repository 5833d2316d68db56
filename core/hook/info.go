package hook

import (
	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// InfoFunc answers an info request. ok=false means no answer.
type InfoFunc func(name, args string) (value string, ok bool)

// InfoHashtableFunc answers an info request with a hashtable.
type InfoHashtableFunc func(name string, in map[string]string) map[string]string

// InfolistFunc builds an infolist. obj restricts it to one object when
// not nil.
type InfolistFunc func(name string, obj any, args string) *infolist.Infolist

// InfoSpec describes an info, info_hashtable or infolist hook; exactly one
// callback must be set and selects the kind.
type InfoSpec struct {
	Name               string
	Description        string
	ArgsDescription    string
	PointerDescription string
	OutputDescription  string
	Priority           int

	Info          InfoFunc
	InfoHashtable InfoHashtableFunc
	Infolist      InfolistFunc
}

type infoData struct{ spec InfoSpec }

func (d *infoData) describe() string { return d.spec.Name }

func (d *infoData) addToInfolist(it *infolist.Item) {
	it.AddString("info_name", d.spec.Name).
		AddString("description", d.spec.Description).
		AddString("args_description", d.spec.ArgsDescription)
	switch {
	case d.spec.InfoHashtable != nil:
		it.AddString("output_description", d.spec.OutputDescription)
	case d.spec.Infolist != nil:
		it.AddString("pointer_description", d.spec.PointerDescription)
	}
}

func (r *Registry) hookInfo(kind Kind, owner string, spec InfoSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Name)
	spec.Name, spec.Priority = k.Name, k.Priority
	if spec.Name == "" {
		return nil, types.Errorf(types.ErrInvalid, "%s: empty name", kind)
	}
	return r.add(kind, owner, spec.Priority, &infoData{spec: spec}), nil
}

// HookInfo registers an info.
func (r *Registry) HookInfo(owner string, spec InfoSpec) (*Hook, error) {
	if spec.Info == nil {
		return nil, types.Errorf(types.ErrInvalid, "info %q: nil callback", spec.Name)
	}
	return r.hookInfo(KindInfo, owner, spec)
}

// HookInfoHashtable registers an info returning a hashtable.
func (r *Registry) HookInfoHashtable(owner string, spec InfoSpec) (*Hook, error) {
	if spec.InfoHashtable == nil {
		return nil, types.Errorf(types.ErrInvalid, "info_hashtable %q: nil callback", spec.Name)
	}
	return r.hookInfo(KindInfoHashtable, owner, spec)
}

// HookInfolist registers an infolist.
func (r *Registry) HookInfolist(owner string, spec InfoSpec) (*Hook, error) {
	if spec.Infolist == nil {
		return nil, types.Errorf(types.ErrInvalid, "infolist %q: nil callback", spec.Name)
	}
	return r.hookInfo(KindInfolist, owner, spec)
}

// first runs fn on the first active, idle hook of kind whose name matches.
// Later hooks are never consulted, even when the first has no answer.
func (r *Registry) first(kind Kind, name string, fn func(d *infoData)) bool {
	if name == "" {
		return false
	}
	found := false
	r.each(kind, func(h *Hook) bool {
		d := h.data.(*infoData)
		if h.running > 0 || !strmatch.EqualFold(d.spec.Name, name) {
			return true
		}
		found = true
		r.call(h, func() { fn(d) })
		return false
	})
	return found
}

// GetInfo asks the info hooks for name.
func (r *Registry) GetInfo(name, args string) (string, bool) {
	var value string
	var ok bool
	r.first(KindInfo, name, func(d *infoData) { value, ok = d.spec.Info(name, args) })
	return value, ok
}

// GetInfoHashtable asks the info_hashtable hooks for name.
func (r *Registry) GetInfoHashtable(name string, in map[string]string) (map[string]string, bool) {
	var out map[string]string
	r.first(KindInfoHashtable, name, func(d *infoData) { out = d.spec.InfoHashtable(name, in) })
	return out, out != nil
}

// GetInfolist asks the infolist hooks for name.
func (r *Registry) GetInfolist(name string, obj any, args string) (*infolist.Infolist, bool) {
	var out *infolist.Infolist
	r.first(KindInfolist, name, func(d *infoData) { out = d.spec.Infolist(name, obj, args) })
	return out, out != nil
}

// Infos describes the registered hooks of an info kind, for /help.
func (r *Registry) Infos(kind Kind) []InfoSpec {
	var out []InfoSpec
	for h := range r.Hooks(kind) {
		if d, ok := h.data.(*infoData); ok && h.state == StateActive {
			out = append(out, d.spec)
		}
	}
	return out
}
