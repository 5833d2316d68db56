package hook

import (
	"fmt"
	"strings"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// FdFlags selects the conditions an fd hook waits for.
type FdFlags uint8

const (
	FdRead FdFlags = 1 << iota
	FdWrite
	FdException
)

func (f FdFlags) String() string {
	var parts []string
	if f&FdRead != 0 {
		parts = append(parts, "read")
	}
	if f&FdWrite != 0 {
		parts = append(parts, "write")
	}
	if f&FdException != 0 {
		parts = append(parts, "exception")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// FdFunc is called when fd is ready.
type FdFunc func(fd int) types.RC

// FdSpec describes an fd hook.
type FdSpec struct {
	Fd       int
	Flags    FdFlags
	Priority int
	Callback FdFunc
}

type fdData struct {
	spec FdSpec
	err  error
}

func (d *fdData) describe() string { return fmt.Sprintf("%d (%s)", d.spec.Fd, d.spec.Flags) }

func (d *fdData) addToInfolist(it *infolist.Item) {
	errText := ""
	if d.err != nil {
		errText = d.err.Error()
	}
	it.AddInteger("fd", d.spec.Fd).
		AddInteger("flags", int(d.spec.Flags)).
		AddString("error", errText)
}

func (d *fdData) teardown(h *Hook) {
	if h.reg.fds[d.spec.Fd] == h {
		delete(h.reg.fds, d.spec.Fd)
	}
}

// HookFd watches a file descriptor. A descriptor is watched by at most one
// active hook.
func (r *Registry) HookFd(owner string, spec FdSpec) (*Hook, error) {
	if spec.Fd < 0 || spec.Flags == 0 || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "fd %d: flags %s, callback set: %t", spec.Fd, spec.Flags, spec.Callback != nil)
	}
	if _, ok := r.fds[spec.Fd]; ok {
		return nil, types.Errorf(types.ErrInvalid, "fd %d is already watched", spec.Fd)
	}
	if spec.Priority == 0 {
		spec.Priority = DefaultPriority
	}
	h := r.add(KindFd, owner, spec.Priority, &fdData{spec: spec})
	r.fds[spec.Fd] = h
	return h, nil
}

// FdWatch is one descriptor the event loop must poll.
type FdWatch struct {
	Fd    int
	Flags FdFlags
}

// FdWatches returns the descriptors of the active fd hooks, skipping the
// ones marked bad.
func (r *Registry) FdWatches() []FdWatch {
	var out []FdWatch
	for h := range r.Hooks(KindFd) {
		if h.state != StateActive {
			continue
		}
		d := h.data.(*fdData)
		if d.err != nil {
			continue
		}
		out = append(out, FdWatch{Fd: d.spec.Fd, Flags: d.spec.Flags})
	}
	return out
}

// MarkFdError records that fd cannot be polled (closed behind the hook's
// back). The hook stays registered but is no longer polled; the error is
// logged once.
func (r *Registry) MarkFdError(fd int, err error) {
	h, ok := r.fds[fd]
	if !ok {
		return
	}
	d := h.data.(*fdData)
	if d.err != nil {
		return
	}
	d.err = err
	logger.Warn("bad file descriptor used in fd hook", "fd", fd, "owner", ownerName(h.owner), "error", err)
}

// FdError returns the error recorded for an fd hook.
func (h *Hook) FdError() error {
	if d, ok := h.data.(*fdData); ok {
		return d.err
	}
	return nil
}

// ExecFd calls the hooks whose descriptor is ready for one of the
// conditions they watch, in priority order, and returns how many ran.
func (r *Registry) ExecFd(ready map[int]FdFlags) int {
	if len(ready) == 0 {
		return 0
	}
	n := 0
	r.each(KindFd, func(h *Hook) bool {
		d := h.data.(*fdData)
		if h.running > 0 || d.err != nil || ready[d.spec.Fd]&d.spec.Flags == 0 {
			return true
		}
		r.call(h, func() { d.spec.Callback(d.spec.Fd) })
		n++
		return true
	})
	return n
}
