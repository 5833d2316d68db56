// Package eventloop drives the hooks that wait on the outside world:
// timers, file descriptors, child processes and connection attempts. It
// polls the fd hooks of a hook.Registry and runs every dispatch on the
// goroutine calling Run.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Options configure a Loop.
type Options struct {
	// MaxWait caps a single poll, whatever the next timer.
	MaxWait time.Duration

	// MinWait is the shortest poll when nothing is due. It keeps an
	// overdue timer from spinning the loop.
	MinWait time.Duration
}

// DefaultOptions returns the options used when a zero Options is given.
func DefaultOptions() Options {
	return Options{
		MaxWait: 2 * time.Second,
		MinWait: time.Millisecond,
	}
}

// Loop is a single-goroutine event loop over a hook registry. Only Post
// and Stop may be called from other goroutines.
type Loop struct {
	reg  *hook.Registry
	opts Options

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake     [2]int
	wakeHook *hook.Hook
	quit     bool
}

// New creates a loop for reg. The wake pipe it opens is watched by an fd
// hook owned by the core, so Close must be called once the loop is done.
func New(reg *hook.Registry, opts Options) (*Loop, error) {
	def := DefaultOptions()
	if opts.MaxWait <= 0 {
		opts.MaxWait = def.MaxWait
	}
	if opts.MinWait <= 0 {
		opts.MinWait = def.MinWait
	}
	if opts.MinWait > opts.MaxWait {
		opts.MinWait = opts.MaxWait
	}

	l := &Loop{reg: reg, opts: opts}
	if err := unix.Pipe2(l.wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}
	h, err := reg.HookFd("", hook.FdSpec{
		Fd:       l.wake[0],
		Flags:    hook.FdRead,
		Priority: 100000,
		Callback: func(int) types.RC {
			l.drainWake()
			l.runPosted()
			return types.OK
		},
	})
	if err != nil {
		unix.Close(l.wake[0])
		unix.Close(l.wake[1])
		return nil, err
	}
	l.wakeHook = h
	return l, nil
}

// Registry returns the registry the loop drives.
func (l *Loop) Registry() *hook.Registry { return l.reg }

// Post queues fn to run on the loop goroutine and wakes the loop. It
// reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	// A full pipe already guarantees a wakeup.
	unix.Write(l.wake[1], []byte{0})
	return true
}

// Stop makes Run return after the current iteration.
func (l *Loop) Stop() {
	l.Post(func() { l.quit = true })
}

func (l *Loop) drainWake() {
	var b [64]byte
	for {
		n, err := unix.Read(l.wake[0], b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (l *Loop) runPosted() {
	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	l.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
}

func (l *Loop) pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) > 0
}

// Run iterates until Stop is called or ctx is done. It returns ctx's
// error in the latter case.
func (l *Loop) Run(ctx context.Context) error {
	l.quit = false
	stop := context.AfterFunc(ctx, l.Stop)
	defer stop()

	logger.Debug("event loop started")
	for !l.quit {
		if err := l.RunOnce(); err != nil {
			return err
		}
	}
	logger.Debug("event loop stopped")
	return ctx.Err()
}

// RunOnce runs one iteration: start pending processes, wait for fd
// readiness or the next timer, run ready fd hooks, due timers, then sweep.
func (l *Loop) RunOnce() error {
	l.runPosted()
	l.reg.ExecProcesses()

	wait := l.reg.TimeToNext()
	switch {
	case l.pending():
		wait = 0
	case wait < l.opts.MinWait:
		wait = l.opts.MinWait
	case wait > l.opts.MaxWait:
		wait = l.opts.MaxWait
	}

	ready, err := l.poll(wait)
	if err != nil {
		return err
	}
	l.reg.ExecFd(ready)
	l.reg.ExecTimers()
	if _, err := l.reg.Sweep(); err != nil && !errors.Is(err, types.ErrBusy) {
		return err
	}
	return nil
}

func (l *Loop) poll(wait time.Duration) (map[int]hook.FdFlags, error) {
	watches := l.reg.FdWatches()
	fds := make([]unix.PollFd, 0, len(watches))
	watched := make([]hook.FdFlags, 0, len(watches))
	for _, w := range watches {
		if _, err := unix.FcntlInt(uintptr(w.Fd), unix.F_GETFD, 0); errors.Is(err, unix.EBADF) {
			l.reg.MarkFdError(w.Fd, err)
			continue
		}
		fds = append(fds, unix.PollFd{Fd: int32(w.Fd), Events: pollEvents(w.Flags)})
		watched = append(watched, w.Flags)
	}

	ms := int((wait + time.Millisecond - 1) / time.Millisecond)
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	ready := make(map[int]hook.FdFlags, n)
	for i, p := range fds {
		if p.Revents == 0 {
			continue
		}
		if p.Revents&unix.POLLNVAL != 0 {
			l.reg.MarkFdError(int(p.Fd), unix.EBADF)
			continue
		}
		ready[int(p.Fd)] = readyFlags(p.Revents, watched[i])
	}
	return ready, nil
}

func pollEvents(f hook.FdFlags) int16 {
	var ev int16
	if f&hook.FdRead != 0 {
		ev |= unix.POLLIN
	}
	if f&hook.FdWrite != 0 {
		ev |= unix.POLLOUT
	}
	if f&hook.FdException != 0 {
		ev |= unix.POLLPRI
	}
	return ev
}

// readyFlags maps poll results back to hook flags. A hangup or error is
// reported on every watched flag, so the callback sees EOF or the error
// whatever it waits for.
func readyFlags(rev int16, watched hook.FdFlags) hook.FdFlags {
	var f hook.FdFlags
	if rev&unix.POLLIN != 0 {
		f |= hook.FdRead
	}
	if rev&unix.POLLOUT != 0 {
		f |= hook.FdWrite
	}
	if rev&unix.POLLPRI != 0 {
		f |= hook.FdException
	}
	if rev&(unix.POLLHUP|unix.POLLERR) != 0 {
		f |= watched
	}
	return f
}

// Close unregisters the wake hook and closes the wake pipe. Posting to a
// closed loop is a no-op.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	l.reg.Unregister(l.wakeHook)
	l.reg.Sweep()
	return errors.Join(unix.Close(l.wake[0]), unix.Close(l.wake[1]))
}
