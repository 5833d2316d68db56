package eventloop

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l, err := New(hook.NewRegistry(hook.DefaultOptions()), Options{MaxWait: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Registry().UnhookAll()
		l.Close()
	})
	return l
}

// runUntil iterates the loop until done reports true.
func runUntil(t *testing.T, l *Loop, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !done() {
		require.True(t, time.Now().Before(deadline), "condition not met in time")
		require.NoError(t, l.RunOnce())
	}
}

type processResult struct {
	rc      int
	out     string
	errOut  string
	running int
	done    bool
}

func (p *processResult) callback(_ string, rc int, out, errOut string) types.RC {
	p.out += out
	p.errOut += errOut
	if rc == hook.ProcessRunning {
		p.running++
		return types.OK
	}
	p.rc, p.done = rc, true
	return types.OK
}

func TestPostAndStop(t *testing.T) {
	l := newTestLoop(t)
	var got []int
	go func() {
		l.Post(func() { got = append(got, 1) })
		l.Post(func() { got = append(got, 2) })
		l.Stop()
	}()
	require.NoError(t, l.Run(context.Background()))
	require.Equal(t, []int{1, 2}, got)
}

func TestRunContextCanceled(t *testing.T) {
	l := newTestLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.Run(ctx), context.DeadlineExceeded)
}

func TestPostAfterClose(t *testing.T) {
	l, err := New(hook.NewRegistry(hook.DefaultOptions()), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, l.Registry().Count(hook.KindFd))
	require.NoError(t, l.Close())
	require.False(t, l.Post(func() {}))
	require.Zero(t, l.Registry().Count(hook.KindFd))
	require.NoError(t, l.Close())
}

func TestTimersRunOnLoop(t *testing.T) {
	l := newTestLoop(t)
	var args []int
	_, err := l.Registry().HookTimer("", hook.TimerSpec{
		Interval: 10 * time.Millisecond,
		MaxCalls: 3,
		Callback: func(remaining int) types.RC {
			args = append(args, remaining)
			return types.OK
		},
	})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return l.Registry().Count(hook.KindTimer) == 0 })
	require.Equal(t, []int{2, 1, 0}, args)
}

func TestBadFdIsReported(t *testing.T) {
	l := newTestLoop(t)
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	unix.Close(p[0])
	unix.Close(p[1])

	h, err := l.Registry().HookFd("", hook.FdSpec{Fd: p[0], Flags: hook.FdRead, Callback: func(int) types.RC { return types.OK }})
	require.NoError(t, err)
	require.NoError(t, l.RunOnce())
	require.ErrorIs(t, h.FdError(), unix.EBADF)
	require.True(t, l.Registry().Valid(h))
}

func TestHangupReachesWriteWatcher(t *testing.T) {
	l := newTestLoop(t)
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	t.Cleanup(func() { unix.Close(p[0]) })
	require.NoError(t, unix.Close(p[1]))

	fired := 0
	h, err := l.Registry().HookFd("", hook.FdSpec{
		Fd:    p[0],
		Flags: hook.FdWrite,
		Callback: func(int) types.RC {
			fired++
			return types.OK
		},
	})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return fired > 0 })
	require.NoError(t, h.FdError())
}

func TestProcessOutput(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	_, err := l.Registry().HookProcess("", hook.ProcessSpec{Command: "echo hello  world", Callback: res.callback})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, 0, res.rc)
	require.Equal(t, "hello world\n", res.out)
	runUntil(t, l, func() bool { return l.Registry().CountTotal() == 1 })
}

func TestProcessExitCodeAndStderr(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	_, err := l.Registry().HookProcess("", hook.ProcessSpec{
		Command:  "sh",
		Args:     []string{"-c", "echo oops >&2; exit 3"},
		Callback: res.callback,
	})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, 3, res.rc)
	require.Equal(t, "oops\n", res.errOut)
	require.Empty(t, res.out)
}

func TestProcessMissingProgram(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	_, err := l.Registry().HookProcess("", hook.ProcessSpec{Command: "/nonexistent/hookkit-test", Callback: res.callback})
	require.NoError(t, err)
	require.NoError(t, l.RunOnce())
	require.True(t, res.done)
	require.Equal(t, hook.ProcessError, res.rc)
	require.Zero(t, l.Registry().Count(hook.KindProcess))
}

func TestProcessTimeout(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	start := time.Now()
	_, err := l.Registry().HookProcess("", hook.ProcessSpec{
		Command:  "sleep 5",
		Timeout:  200 * time.Millisecond,
		Callback: res.callback,
	})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, hook.ProcessError, res.rc)
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestProcessStdin(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	h, err := l.Registry().HookProcess("", hook.ProcessSpec{Command: "cat", Stdin: true, Callback: res.callback})
	require.NoError(t, err)
	require.Equal(t, 1, l.Registry().ExecProcesses())

	require.NoError(t, l.Registry().Set(h, "stdin", "line one\n"))
	require.NoError(t, l.Registry().Set(h, "stdin", "line two\n"))
	require.NoError(t, l.Registry().Set(h, "stdin_close", ""))
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, 0, res.rc)
	require.Equal(t, "line one\nline two\n", res.out)
}

func TestProcessBufferFlush(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	_, err := l.Registry().HookProcess("", hook.ProcessSpec{Command: "printf abcdef", BufferFlush: 2, Callback: res.callback})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, 0, res.rc)
	require.Equal(t, "abcdef", res.out)
	require.GreaterOrEqual(t, res.running, 1)
}

func TestProcessUnregisterKillsChild(t *testing.T) {
	l := newTestLoop(t)
	var res processResult
	h, err := l.Registry().HookProcess("", hook.ProcessSpec{Command: "sleep 30", Callback: res.callback})
	require.NoError(t, err)
	require.NoError(t, l.RunOnce())
	require.Equal(t, 1, l.Registry().Count(hook.KindTimer), "reaping timer")
	require.Equal(t, 3, l.Registry().Count(hook.KindFd), "wake pipe plus two output pipes")

	l.Registry().Unregister(h)
	require.NoError(t, l.RunOnce())
	require.False(t, res.done)
	require.Zero(t, l.Registry().Count(hook.KindTimer))
	require.Equal(t, 1, l.Registry().Count(hook.KindFd))
}

type connectResult struct {
	status hook.ConnectStatus
	ip     string
	conn   net.Conn
	done   bool
}

func (c *connectResult) callback(status hook.ConnectStatus, conn net.Conn, _ error, ip string) types.RC {
	c.status, c.conn, c.ip, c.done = status, conn, ip, true
	return types.OK
}

func TestConnectOK(t *testing.T) {
	l := newTestLoop(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var res connectResult
	_, err = l.Registry().HookConnect("irc", hook.ConnectSpec{Address: ln.Addr().String(), Timeout: 5 * time.Second, Callback: res.callback})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, hook.ConnectOK, res.status)
	require.Equal(t, "127.0.0.1", res.ip)
	require.NotNil(t, res.conn)
	res.conn.Close()

	runUntil(t, l, func() bool { return l.Registry().Count(hook.KindConnect) == 0 })
	require.Equal(t, 1, l.Registry().Count(hook.KindFd))
}

func TestConnectRefused(t *testing.T) {
	l := newTestLoop(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	var res connectResult
	_, err = l.Registry().HookConnect("", hook.ConnectSpec{Address: addr, Callback: res.callback})
	require.NoError(t, err)
	runUntil(t, l, func() bool { return res.done })
	require.Equal(t, hook.ConnectRefused, res.status)
	require.Nil(t, res.conn)
}

func TestConnectUnregisteredBeforeResult(t *testing.T) {
	l := newTestLoop(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var res connectResult
	h, err := l.Registry().HookConnect("", hook.ConnectSpec{Address: ln.Addr().String(), Callback: res.callback})
	require.NoError(t, err)
	l.Registry().Unregister(h)

	for range 5 {
		require.NoError(t, l.RunOnce())
	}
	require.False(t, res.done)
	require.Zero(t, l.Registry().Count(hook.KindConnect))
	require.Equal(t, 1, l.Registry().Count(hook.KindFd))
}

func TestReadyFlags(t *testing.T) {
	require.Equal(t, hook.FdRead, readyFlags(unix.POLLHUP, hook.FdRead))
	require.Equal(t, hook.FdWrite, readyFlags(unix.POLLHUP, hook.FdWrite))
	require.Equal(t, hook.FdException, readyFlags(unix.POLLERR, hook.FdException))
	require.Equal(t, hook.FdRead|hook.FdWrite, readyFlags(unix.POLLIN|unix.POLLOUT, hook.FdRead|hook.FdWrite))
	require.Equal(t, hook.FdException, readyFlags(unix.POLLPRI, hook.FdException))
	require.Equal(t, int16(unix.POLLIN|unix.POLLPRI), pollEvents(hook.FdRead|hook.FdException))
}
