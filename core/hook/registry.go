package hook

import (
	"iter"
	"time"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Options configure a Registry.
type Options struct {
	// Limits bound recursive command calls and nested dispatch passes.
	Limits types.Limits

	// LongCallbackThreshold logs a warning for every callback running at
	// least this long. Zero disables the check.
	LongCallbackThreshold time.Duration

	// IncompleteCommands lets a unique command prefix run the command.
	IncompleteCommands bool

	// Now is the clock used by timers and callback timing.
	Now func() time.Time

	// OnFree, if set, is called for every hook a sweep frees.
	OnFree func(*Hook)
}

// DefaultOptions returns the options used by NewRegistry(DefaultOptions()).
func DefaultOptions() Options {
	return Options{
		Limits: types.DefaultLimits(),
		Now:    time.Now,
	}
}

type hookList struct {
	head, last *Hook
	linked     int
	deleted    int
}

// Registry holds one priority-ordered list of hooks per kind and runs
// them. Unregistered hooks are only marked; they are unlinked by a sweep,
// which runs automatically when the outermost dispatch pass ends.
//
// NOT thread-safe: hooks are registered and run on the event loop
// goroutine. Connect hooks are the only ones doing work elsewhere, and
// they hand results back through a pipe watched by an fd hook.
type Registry struct {
	opts  Options
	lists [numKinds]hookList
	seq   uint64
	depth int

	fds       map[int]*Hook
	lastClock time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Limits.Validate() != nil {
		opts.Limits = types.DefaultLimits()
	}
	return &Registry{
		opts:      opts,
		fds:       make(map[int]*Hook),
		lastClock: opts.Now(),
	}
}

// Options returns the registry options.
func (r *Registry) Options() Options { return r.opts }

// SetIncompleteCommands toggles unique-prefix command matching.
func (r *Registry) SetIncompleteCommands(on bool) { r.opts.IncompleteCommands = on }

func (r *Registry) now() time.Time { return r.opts.Now() }

// ----------------------------------------------------------------------------
// Linking
// ----------------------------------------------------------------------------

// findPos returns the hook before which h must be inserted, nil to append.
// Commands sort by name, then priority; every other kind by priority only,
// ties keeping insertion order.
func (r *Registry) findPos(h *Hook) *Hook {
	for p := r.lists[h.kind].head; p != nil; p = p.next {
		if p.Deleted() {
			continue
		}
		if h.kind == KindCommand {
			c := compareCommandNames(commandName(h), commandName(p))
			if c < 0 || (c == 0 && h.priority > p.priority) {
				return p
			}
			continue
		}
		if h.priority > p.priority {
			return p
		}
	}
	return nil
}

func (r *Registry) link(h *Hook) {
	l := &r.lists[h.kind]
	pos := r.findPos(h)
	if pos == nil {
		h.prev = l.last
		if l.last != nil {
			l.last.next = h
		} else {
			l.head = h
		}
		l.last = h
	} else {
		h.prev = pos.prev
		h.next = pos
		if pos.prev != nil {
			pos.prev.next = h
		} else {
			l.head = h
		}
		pos.prev = h
	}
	l.linked++
}

func (r *Registry) unlink(h *Hook) {
	l := &r.lists[h.kind]
	if h.prev != nil {
		h.prev.next = h.next
	} else {
		l.head = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	} else {
		l.last = h.prev
	}
	h.prev, h.next = nil, nil
	l.linked--
}

// add creates and links a hook.
func (r *Registry) add(kind Kind, owner string, priority int, data payload) *Hook {
	r.seq++
	h := &Hook{
		reg:      r,
		kind:     kind,
		owner:    owner,
		priority: priority,
		seq:      r.seq,
		created:  r.now(),
		data:     data,
	}
	r.link(h)
	logger.Debug("adding hook", "kind", kind.String(), "owner", ownerName(owner),
		"priority", priority, "description", h.Description())
	return h
}

// ----------------------------------------------------------------------------
// Removal
// ----------------------------------------------------------------------------

// Unregister marks h deleted. It is never invoked again, including later in
// the dispatch pass that may be running it right now; it stays linked until
// the next sweep. Kind-specific resources (watched fds, child processes)
// are released immediately. Unregistering a hook twice is a no-op.
func (r *Registry) Unregister(h *Hook) {
	if h == nil || h.reg != r || h.state != StateActive {
		return
	}
	h.state = StateSoftDeleted
	r.lists[h.kind].deleted++
	if td, ok := h.data.(teardowner); ok {
		td.teardown(h)
	}
	logger.Debug("removing hook", "kind", h.kind.String(), "owner", ownerName(h.owner),
		"description", h.Description(), "dispatching", r.depth > 0)
}

// UnregisterAll unregisters every hook of owner across all kinds and
// returns how many were removed. Plugin unload calls it, then Sweep.
func (r *Registry) UnregisterAll(owner string) int {
	return r.unregisterWhere(func(h *Hook) bool { return h.owner == owner })
}

// UnregisterSubowner unregisters the hooks of owner tagged with subowner,
// e.g. the hooks of one script loaded by a scripting plugin.
func (r *Registry) UnregisterSubowner(owner, subowner string) int {
	return r.unregisterWhere(func(h *Hook) bool {
		return h.owner == owner && h.subowner == subowner
	})
}

// UnhookAll unregisters every hook.
func (r *Registry) UnhookAll() int {
	return r.unregisterWhere(func(*Hook) bool { return true })
}

func (r *Registry) unregisterWhere(match func(h *Hook) bool) int {
	n := 0
	for k := range r.lists {
		for h := r.lists[k].head; h != nil; h = h.next {
			if h.state == StateActive && match(h) {
				r.Unregister(h)
				n++
			}
		}
	}
	return n
}

// Sweep unlinks every unregistered hook and returns how many were freed.
// It refuses to run while a dispatch pass is in progress.
func (r *Registry) Sweep() (int, error) {
	if r.depth > 0 {
		return 0, types.Errorf(types.ErrBusy, "sweep at dispatch depth %d", r.depth)
	}
	return r.sweep(), nil
}

func (r *Registry) sweep() int {
	n := 0
	for k := range r.lists {
		l := &r.lists[k]
		if l.deleted == 0 {
			continue
		}
		for h := l.head; h != nil; {
			next := h.next
			if h.state == StateSoftDeleted {
				r.unlink(h)
				h.state = StateFreed
				h.data = freed{desc: h.data.describe()}
				if r.opts.OnFree != nil {
					r.opts.OnFree(h)
				}
				n++
			}
			h = next
		}
		l.deleted = 0
	}
	if n > 0 {
		logger.Debug("hooks swept", "count", n)
	}
	return n
}

// freed replaces the payload of a swept hook so it no longer references
// callbacks or resources.
type freed struct{ desc string }

func (f freed) describe() string { return f.desc }
func (freed) addToInfolist(*infolist.Item) {}

// ----------------------------------------------------------------------------
// Queries
// ----------------------------------------------------------------------------

// Count returns the number of hooks linked in kind's list. Unregistered
// hooks count until they are swept.
func (r *Registry) Count(kind Kind) int {
	if kind >= numKinds {
		return 0
	}
	return r.lists[kind].linked
}

// Pending returns the number of unregistered hooks of kind awaiting a sweep.
func (r *Registry) Pending(kind Kind) int {
	if kind >= numKinds {
		return 0
	}
	return r.lists[kind].deleted
}

// CountTotal returns the number of linked hooks of every kind.
func (r *Registry) CountTotal() int {
	n := 0
	for k := range r.lists {
		n += r.lists[k].linked
	}
	return n
}

// Valid reports whether h is an active hook of this registry.
func (r *Registry) Valid(h *Hook) bool {
	return h != nil && h.reg == r && h.state == StateActive
}

// Hooks returns the hooks linked in kind's list, unregistered ones
// included, in dispatch order.
func (r *Registry) Hooks(kind Kind) iter.Seq[*Hook] {
	return func(yield func(*Hook) bool) {
		if kind >= numKinds {
			return
		}
		for h := r.lists[kind].head; h != nil; h = h.next {
			if !yield(h) {
				return
			}
		}
	}
}

// Dispatching reports whether a dispatch pass is in progress.
func (r *Registry) Dispatching() bool { return r.depth > 0 }

// ----------------------------------------------------------------------------
// Execution
// ----------------------------------------------------------------------------

// execStart opens a dispatch pass. It fails when passes are nested deeper
// than the configured limit.
func (r *Registry) execStart() bool {
	if r.depth >= r.opts.Limits.MaxDispatchDepth {
		logger.Warn("dispatch depth exceeded", "depth", r.depth)
		return false
	}
	r.depth++
	return true
}

// execEnd closes a dispatch pass; the outermost one sweeps.
func (r *Registry) execEnd() {
	r.depth--
	if r.depth == 0 {
		r.sweep()
	}
}

// each calls fn for every active hook of kind in list order until fn
// returns false. The successor of each hook is captured before its
// callback runs: hooks it unregisters are skipped, hooks it registers are
// visited only if they land after the captured successor.
func (r *Registry) each(kind Kind, fn func(h *Hook) bool) {
	if !r.execStart() {
		return
	}
	defer r.execEnd()
	for h := r.lists[kind].head; h != nil; {
		next := h.next
		if h.state == StateActive && !fn(h) {
			return
		}
		h = next
	}
}

// call runs fn as an invocation of h, tracking re-entrance and duration.
func (r *Registry) call(h *Hook, fn func()) {
	h.running++
	start := r.now()
	defer func() {
		h.running--
		if t := r.opts.LongCallbackThreshold; t > 0 {
			if d := r.now().Sub(start); d >= t {
				logger.Warn("long callback", "kind", h.kind.String(), "owner", ownerName(h.owner),
					"description", h.Description(), "duration", d)
			}
		}
	}()
	fn()
}
