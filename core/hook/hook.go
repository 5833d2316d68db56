package hook

import (
	"strings"
	"time"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
)

// Hook is one registered callback. Hooks are created by the Registry's
// Hook* methods and stay owned by it; callers keep the pointer only as a
// handle for Unregister and Set.
type Hook struct {
	reg      *Registry
	kind     Kind
	owner    string
	subowner string
	priority int
	seq      uint64
	state    State
	running  int
	created  time.Time

	prev, next *Hook

	data payload
}

// payload is the kind-specific part of a hook.
type payload interface {
	describe() string
	addToInfolist(it *infolist.Item)
}

// teardowner is implemented by payloads holding resources (watched fds,
// child processes, dialers) released when the hook is unregistered.
type teardowner interface {
	teardown(h *Hook)
}

// Kind returns the hook's kind.
func (h *Hook) Kind() Kind { return h.kind }

// Owner returns the plugin that registered the hook; empty means core.
func (h *Hook) Owner() string { return h.owner }

// Subowner returns the script or sub-plugin name set with Set("subowner").
func (h *Hook) Subowner() string { return h.subowner }

// Priority returns the hook priority.
func (h *Hook) Priority() int { return h.priority }

// State returns the lifecycle state.
func (h *Hook) State() State { return h.state }

// Deleted reports whether the hook has been unregistered.
func (h *Hook) Deleted() bool { return h.state != StateActive }

// Running returns how many invocations of the hook are on the call stack.
func (h *Hook) Running() int { return h.running }

// Seq returns the registration sequence number, unique per registry.
func (h *Hook) Seq() uint64 { return h.seq }

// Description returns a short kind-specific summary, e.g. the command name
// or the timer interval.
func (h *Hook) Description() string {
	if h.data == nil {
		return ""
	}
	return h.data.describe()
}

// AddToInfolist appends the hook's generic and kind-specific variables to
// a new item of l.
func (h *Hook) AddToInfolist(l *infolist.Infolist) {
	it := l.NewItem().
		AddString("type", h.kind.String()).
		AddString("plugin_name", ownerName(h.owner)).
		AddString("subplugin", h.subowner).
		AddInteger("priority", h.priority).
		AddInteger("deleted", boolInt(h.Deleted())).
		AddInteger("running", h.running).
		AddTime("created", h.created)
	if h.data != nil {
		h.data.addToInfolist(it)
	}
}

// ownerName renders the empty owner as "core".
func ownerName(owner string) string {
	if owner == "" {
		return "core"
	}
	return owner
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AddToInfolist appends hooks to l. With h set, only that hook is added.
// Otherwise args selects them: "" for every hook, "kind" for one kind,
// "kind,mask" for the hooks of kind whose description matches mask.
// It returns false for an unknown kind or a hook of another registry.
func (r *Registry) AddToInfolist(l *infolist.Infolist, h *Hook, args string) bool {
	if h != nil {
		if h.reg != r || h.state == StateFreed {
			return false
		}
		h.AddToInfolist(l)
		return true
	}
	kinds := Kinds()
	mask := ""
	if args != "" {
		name, m, _ := strings.Cut(args, ",")
		k, ok := ParseKind(name)
		if !ok {
			return false
		}
		kinds, mask = []Kind{k}, strings.TrimSpace(m)
	}
	for _, k := range kinds {
		for h := range r.Hooks(k) {
			if h.state != StateActive {
				continue
			}
			if mask != "" && !strmatch.Match(h.Description(), mask, false) {
				continue
			}
			h.AddToInfolist(l)
		}
	}
	return true
}
