package hook

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

const (
	// ProcessRunning as rc: the child is still running, the output is a
	// partial chunk.
	ProcessRunning = -1

	// ProcessError as rc: the child could not be started, was killed by a
	// signal or ran past its timeout.
	ProcessError = -2

	processBufferSize    = 64 * 1024
	processCheckInterval = 100 * time.Millisecond
)

const (
	procStdout = iota
	procStderr
)

// ProcessFunc receives the output of a child process. rc is the exit
// status once the child is done, ProcessRunning for an intermediate chunk
// or ProcessError.
type ProcessFunc func(command string, rc int, out, errOut string) types.RC

// ProcessSpec describes a process hook.
type ProcessSpec struct {
	// Command is split like a shell would when Args is empty; otherwise it
	// is the program and Args its arguments.
	Command string
	Args    []string
	Dir     string
	Env     []string

	// Stdin opens a pipe to the child's standard input, fed with
	// Set(h, "stdin", data) and closed with Set(h, "stdin_close", "").
	Stdin bool

	// BufferFlush sends output to the callback as soon as this many bytes
	// are buffered. Zero or out of range means 64KiB.
	BufferFlush int

	// Timeout kills the child; zero means no timeout.
	Timeout time.Duration

	Priority int
	Callback ProcessFunc
}

type processData struct {
	spec    ProcessSpec
	started bool
	done    bool
	cmd     *exec.Cmd
	pid     int

	stdin   int
	pipes   [2]int
	fdHooks [2]*Hook
	timer   *Hook

	bufs  [2][]byte
	flush int
}

func (d *processData) describe() string { return d.spec.Command }

func (d *processData) addToInfolist(it *infolist.Item) {
	it.AddString("command", d.spec.Command).
		AddString("args", strings.Join(d.spec.Args, " ")).
		AddInteger("timeout", int(d.spec.Timeout.Milliseconds())).
		AddInteger("buffer_flush", d.flush).
		AddInteger("child_write_stdin", d.stdin).
		AddInteger("child_read_stdout", d.pipes[procStdout]).
		AddInteger("child_read_stderr", d.pipes[procStderr]).
		AddInteger("child_pid", d.pid)
}

// HookProcess registers a child process. It is started by the next
// ExecProcesses, run by the event loop after each iteration.
func (r *Registry) HookProcess(owner string, spec ProcessSpec) (*Hook, error) {
	if strings.TrimSpace(spec.Command) == "" || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "process %q: missing command or callback", spec.Command)
	}
	if spec.Priority == 0 {
		spec.Priority = DefaultPriority
	}
	d := &processData{spec: spec, stdin: -1, pipes: [2]int{-1, -1}, flush: spec.BufferFlush}
	if d.flush < 1 || d.flush > processBufferSize {
		d.flush = processBufferSize
	}
	return r.add(KindProcess, owner, spec.Priority, d), nil
}

// ExecProcesses starts every process hook not started yet and returns how
// many were started.
func (r *Registry) ExecProcesses() int {
	n := 0
	r.each(KindProcess, func(h *Hook) bool {
		d := h.data.(*processData)
		if d.started || h.running > 0 {
			return true
		}
		d.started = true
		r.call(h, func() { r.startProcess(h, d) })
		n++
		return true
	})
	return n
}

func (r *Registry) startProcess(h *Hook, d *processData) {
	args := d.spec.Args
	name := d.spec.Command
	if len(args) == 0 {
		words := SplitShell(d.spec.Command)
		name, args = words[0], words[1:]
	}
	cmd := exec.Command(expandHome(name), args...)
	cmd.Dir = d.spec.Dir
	if d.spec.Env != nil {
		cmd.Env = d.spec.Env
	}

	var child []*os.File
	closeChild := func() {
		for _, f := range child {
			f.Close()
		}
	}
	fail := func(err error) {
		closeChild()
		logger.Warn("process hook failed to start", "command", d.spec.Command, "error", err)
		d.spec.Callback(d.spec.Command, ProcessError, "", "")
		r.Unregister(h)
	}

	for i := range d.pipes {
		var p [2]int
		if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
			fail(err)
			return
		}
		d.pipes[i] = p[0]
		child = append(child, os.NewFile(uintptr(p[1]), "child-output"))
	}
	cmd.Stdout, cmd.Stderr = child[procStdout], child[procStderr]
	if d.spec.Stdin {
		var p [2]int
		if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
			fail(err)
			return
		}
		d.stdin = p[1]
		in := os.NewFile(uintptr(p[0]), "child-stdin")
		child = append(child, in)
		cmd.Stdin = in
	}

	if err := cmd.Start(); err != nil {
		fail(err)
		return
	}
	closeChild()
	d.cmd = cmd
	d.pid = cmd.Process.Pid
	logger.Debug("process started", "command", d.spec.Command, "pid", d.pid)

	for i, fd := range d.pipes {
		if err := unix.SetNonblock(fd, true); err != nil {
			logger.Warn("process pipe", "fd", fd, "error", err)
		}
		idx := i
		fh, err := r.HookFd(h.owner, FdSpec{
			Fd:    fd,
			Flags: FdRead,
			Callback: func(int) types.RC {
				r.readChild(h, d, idx)
				return types.OK
			},
		})
		if err == nil {
			d.fdHooks[i] = fh
		}
	}

	interval, calls := processCheckInterval, Forever
	if t := d.spec.Timeout; t > 0 {
		if t <= processCheckInterval {
			interval, calls = t, 1
		} else {
			calls = int(t / processCheckInterval)
			if t%processCheckInterval == 0 {
				calls++
			}
		}
	}
	d.timer, _ = r.HookTimer(h.owner, TimerSpec{
		Interval: interval,
		MaxCalls: calls,
		Callback: func(remaining int) types.RC {
			r.checkChild(h, d, remaining)
			return types.OK
		},
	})
}

// readChild reads what is available on one output pipe. It returns false
// once nothing more can be read from it.
func (r *Registry) readChild(h *Hook, d *processData, idx int) bool {
	if h.state != StateActive || d.pipes[idx] < 0 {
		return false
	}
	var chunk [processBufferSize / 8]byte
	n, err := unix.Read(d.pipes[idx], chunk[:])
	switch {
	case n > 0:
		d.addOutput(r, h, idx, chunk[:n])
		return true
	case err == unix.EAGAIN || err == unix.EINTR:
		return false
	}
	r.Unregister(d.fdHooks[idx])
	d.fdHooks[idx] = nil
	unix.Close(d.pipes[idx])
	d.pipes[idx] = -1
	return false
}

func (d *processData) addOutput(r *Registry, h *Hook, idx int, p []byte) {
	if len(d.bufs[idx])+len(p) > processBufferSize {
		r.sendOutput(h, d, ProcessRunning)
	}
	d.bufs[idx] = append(d.bufs[idx], p...)
	if len(d.bufs[idx]) >= d.flush {
		r.sendOutput(h, d, ProcessRunning)
	}
}

func (r *Registry) sendOutput(h *Hook, d *processData, rc int) {
	out, errOut := string(d.bufs[procStdout]), string(d.bufs[procStderr])
	d.bufs[procStdout], d.bufs[procStderr] = d.bufs[procStdout][:0], d.bufs[procStderr][:0]
	r.call(h, func() { d.spec.Callback(d.spec.Command, rc, out, errOut) })
}

// drainChild reads both pipes until they are exhausted, bounded so a
// child that keeps writing cannot hold the loop.
func (r *Registry) drainChild(h *Hook, d *processData) {
	for range 1024 {
		more := false
		for i := range d.pipes {
			if r.readChild(h, d, i) {
				more = true
			}
		}
		if !more {
			return
		}
	}
}

// checkChild runs on the reaping timer: it collects the exit status or
// enforces the timeout on the last call.
func (r *Registry) checkChild(h *Hook, d *processData, remaining int) {
	if h.state != StateActive {
		return
	}
	if remaining == 0 {
		r.sendOutput(h, d, ProcessError)
		logger.Debug("process timeout reached", "command", d.spec.Command, "timeout", d.spec.Timeout)
		r.Unregister(h)
		return
	}
	var ws unix.WaitStatus
	pid, err := unix.Wait4(d.pid, &ws, unix.WNOHANG, nil)
	if pid <= 0 {
		if err != nil && !errors.Is(err, unix.EINTR) {
			logger.Warn("process wait", "pid", d.pid, "error", err)
		}
		return
	}
	d.done = true
	d.cmd.Process.Release()
	rc := ProcessError
	if ws.Exited() {
		rc = ws.ExitStatus()
	}
	r.drainChild(h, d)
	r.sendOutput(h, d, rc)
	r.Unregister(h)
}

func (d *processData) teardown(h *Hook) {
	for i := range d.fdHooks {
		h.reg.Unregister(d.fdHooks[i])
		d.fdHooks[i] = nil
	}
	h.reg.Unregister(d.timer)
	d.timer = nil
	if d.pid > 0 && !d.done {
		pid := d.pid
		unix.Kill(pid, unix.SIGKILL)
		d.cmd.Process.Release()
		go unix.Wait4(pid, nil, 0, nil)
	}
	d.pid = 0
	for i, fd := range d.pipes {
		if fd >= 0 {
			unix.Close(fd)
			d.pipes[i] = -1
		}
	}
	d.closeStdin()
}

func (d *processData) closeStdin() {
	if d.stdin >= 0 {
		unix.Close(d.stdin)
		d.stdin = -1
	}
}

// writeStdin sends data to the child's standard input.
func (d *processData) writeStdin(data string) error {
	if d.stdin < 0 {
		return types.Errorf(types.ErrInvalid, "process %q has no stdin pipe", d.spec.Command)
	}
	p := []byte(data)
	for len(p) > 0 {
		n, err := unix.Write(d.stdin, p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// signal sends a signal given by name ("term", "SIGKILL") or number.
func (d *processData) signal(name string) error {
	if d.pid <= 0 {
		return types.Errorf(types.ErrInvalid, "process %q is not running", d.spec.Command)
	}
	sig, err := parseSignal(name)
	if err != nil {
		return err
	}
	return unix.Kill(d.pid, sig)
}

func parseSignal(name string) (unix.Signal, error) {
	if n, err := strconv.Atoi(name); err == nil && n > 0 {
		return unix.Signal(n), nil
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(upper, "SIG") {
		upper = "SIG" + upper
	}
	if sig := unix.SignalNum(upper); sig != 0 {
		return sig, nil
	}
	return 0, types.Errorf(types.ErrInvalid, "unknown signal %q", name)
}

// SplitShell splits a command line into words the way a shell does for
// simple commands: blanks separate words, single quotes keep text as is,
// double quotes and backslashes escape.
func SplitShell(line string) []string {
	var (
		words []string
		cur   strings.Builder
		have  bool
		quote byte
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case quote == '"':
			switch {
			case c == '"':
				quote = 0
			case c == '\\' && i+1 < len(line) && strings.IndexByte("\"\\$`", line[i+1]) >= 0:
				i++
				cur.WriteByte(line[i])
			default:
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			have = true
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
			have = true
		case c == ' ' || c == '\t' || c == '\n':
			if have {
				words = append(words, cur.String())
				cur.Reset()
				have = false
			}
		default:
			cur.WriteByte(c)
			have = true
		}
	}
	if have {
		words = append(words, cur.String())
	}
	if len(words) == 0 {
		words = []string{""}
	}
	return words
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
