package hook

import (
	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// ModifierFunc transforms s. Returning ok=false leaves s unchanged for the
// next modifier; returning an empty string drops the message.
type ModifierFunc func(modifier, data, s string) (out string, ok bool)

// ModifierSpec describes a modifier hook.
type ModifierSpec struct {
	Modifier string
	Priority int
	Callback ModifierFunc
}

type modifierData struct{ spec ModifierSpec }

func (d *modifierData) describe() string { return d.spec.Modifier }

func (d *modifierData) addToInfolist(it *infolist.Item) {
	it.AddString("modifier", d.spec.Modifier)
}

// HookModifier registers a link of a modifier chain.
func (r *Registry) HookModifier(owner string, spec ModifierSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Modifier)
	spec.Modifier, spec.Priority = k.Name, k.Priority
	if spec.Modifier == "" || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "modifier %q: missing name or callback", spec.Modifier)
	}
	return r.add(KindModifier, owner, spec.Priority, &modifierData{spec: spec}), nil
}

// ExecModifier runs s through the chain of modifier hooks in priority
// order, each receiving the previous one's output. An empty result drops
// the message: the chain stops and "" is returned.
func (r *Registry) ExecModifier(modifier, data, s string) string {
	if modifier == "" {
		return s
	}
	r.each(KindModifier, func(h *Hook) bool {
		d := h.data.(*modifierData)
		if h.running > 0 || !strmatch.EqualFold(d.spec.Modifier, modifier) {
			return true
		}
		var out string
		var ok bool
		r.call(h, func() { out, ok = d.spec.Callback(modifier, data, s) })
		if !ok {
			return true
		}
		s = out
		return s != ""
	})
	return s
}
