package hook

import (
	"github.com/joshuapare/hookkit/pkg/types"
)

// Set changes a property of h:
//   - "subowner": tag the hook with a script or sub-plugin name
//   - "stdin": write value to a process hook's standard input
//   - "stdin_close": close a process hook's standard input
//   - "signal": send a signal ("term", "kill", "9") to a process hook's child
func (r *Registry) Set(h *Hook, property, value string) error {
	if !r.Valid(h) {
		return types.Errorf(types.ErrStalePointer, "hook is not active")
	}
	if property == "subowner" {
		h.subowner = value
		return nil
	}
	d, ok := h.data.(*processData)
	if !ok {
		return types.Errorf(types.ErrNotFound, "%s hook has no property %q", h.kind, property)
	}
	switch property {
	case "stdin":
		return d.writeStdin(value)
	case "stdin_close":
		d.closeStdin()
		return nil
	case "signal":
		return d.signal(value)
	}
	return types.Errorf(types.ErrNotFound, "%s hook has no property %q", h.kind, property)
}
