package hook

import (
	"maps"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/pkg/types"
)

// FocusFunc adds information about what is under the pointer. info holds
// the keys known so far; the returned keys are merged into it.
type FocusFunc func(info map[string]string) map[string]string

// FocusSpec describes a focus hook. Area is "chat" or the name of a bar
// item.
type FocusSpec struct {
	Area     string
	Priority int
	Callback FocusFunc
}

type focusData struct{ spec FocusSpec }

func (d *focusData) describe() string { return d.spec.Area }

func (d *focusData) addToInfolist(it *infolist.Item) {
	it.AddString("area", d.spec.Area)
}

// HookFocus registers a focus hook.
func (r *Registry) HookFocus(owner string, spec FocusSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Area)
	spec.Area, spec.Priority = k.Name, k.Priority
	if spec.Area == "" || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "focus %q: missing area or callback", spec.Area)
	}
	return r.add(KindFocus, owner, spec.Priority, &focusData{spec: spec}), nil
}

// FocusData collects focus information for a point (focus1) and, for a
// gesture, the point where it ended (focus2). Every hook whose area
// matches adds its keys; keys of the second point get the suffix "2".
// The inputs are not modified.
func (r *Registry) FocusData(focus1, focus2 map[string]string) map[string]string {
	if focus1 == nil {
		return nil
	}
	out := r.focus(focus1)
	if focus2 != nil {
		for k, v := range r.focus(focus2) {
			out[k+"2"] = v
		}
	}
	return out
}

func (r *Registry) focus(in map[string]string) map[string]string {
	info := maps.Clone(in)
	isChat := info["_chat"] == "1"
	item := info["_bar_item_name"]
	r.each(KindFocus, func(h *Hook) bool {
		d := h.data.(*focusData)
		if h.running > 0 || !((isChat && d.spec.Area == "chat") || (item != "" && d.spec.Area == item)) {
			return true
		}
		var got map[string]string
		r.call(h, func() { got = d.spec.Callback(maps.Clone(info)) })
		maps.Copy(info, got)
		return true
	})
	return info
}
