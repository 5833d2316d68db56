package hook

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// ConnectStatus is the outcome passed to a connect callback.
type ConnectStatus int

const (
	ConnectOK ConnectStatus = iota
	ConnectAddressNotFound
	ConnectRefused
	ConnectTimeout
	ConnectError
)

func (s ConnectStatus) String() string {
	switch s {
	case ConnectOK:
		return "ok"
	case ConnectAddressNotFound:
		return "address not found"
	case ConnectRefused:
		return "connection refused"
	case ConnectTimeout:
		return "timeout"
	}
	return "error"
}

// ConnectFunc receives the result of a connection attempt. conn is nil
// unless status is ConnectOK; the callback owns it from then on. ip is the
// remote address actually connected to.
type ConnectFunc func(status ConnectStatus, conn net.Conn, err error, ip string) types.RC

// ConnectSpec describes a connect hook.
type ConnectSpec struct {
	// Network is "tcp", "tcp4", "tcp6" or "unix"; empty means "tcp".
	Network string
	Address string

	// LocalAddress binds the local end, e.g. "192.0.2.1:0".
	LocalAddress string

	// Timeout bounds the attempt; zero means the dialer's default.
	Timeout time.Duration

	Priority int
	Callback ConnectFunc
}

type connectResult struct {
	conn net.Conn
	err  error
}

type connectData struct {
	spec      ConnectSpec
	cancel    context.CancelFunc
	results   chan connectResult
	wake      int
	fdHook    *Hook
	delivered bool
}

func (d *connectData) describe() string { return d.spec.Network + " " + d.spec.Address }

func (d *connectData) addToInfolist(it *infolist.Item) {
	it.AddString("network", d.spec.Network).
		AddString("address", d.spec.Address).
		AddString("local_address", d.spec.LocalAddress).
		AddInteger("timeout", int(d.spec.Timeout.Milliseconds())).
		AddInteger("child_read", d.wake)
}

func (d *connectData) teardown(h *Hook) {
	d.cancel()
	h.reg.Unregister(d.fdHook)
	d.fdHook = nil
	if d.wake >= 0 {
		unix.Close(d.wake)
		d.wake = -1
	}
	if !d.delivered {
		d.delivered = true
		go func(results chan connectResult) {
			if res := <-results; res.conn != nil {
				res.conn.Close()
			}
		}(d.results)
	}
}

// HookConnect starts a connection attempt on a separate goroutine. The
// callback runs on the event loop once the attempt ends, after which the
// hook unregisters itself.
func (r *Registry) HookConnect(owner string, spec ConnectSpec) (*Hook, error) {
	if spec.Address == "" || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "connect %q: missing address or callback", spec.Address)
	}
	if spec.Network == "" {
		spec.Network = "tcp"
	}
	if spec.Priority == 0 {
		spec.Priority = DefaultPriority
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, types.Errorf(types.ErrInvalid, "connect %q: %v", spec.Address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &connectData{
		spec:    spec,
		cancel:  cancel,
		results: make(chan connectResult, 1),
		wake:    p[0],
	}
	h := r.add(KindConnect, owner, spec.Priority, d)

	fh, err := r.HookFd(owner, FdSpec{
		Fd:    p[0],
		Flags: FdRead,
		Callback: func(int) types.RC {
			r.connectDone(h, d)
			return types.OK
		},
	})
	if err != nil {
		unix.Close(p[1])
		d.delivered = true
		r.Unregister(h)
		return nil, err
	}
	d.fdHook = fh

	go dial(ctx, spec, d.results, p[1])
	return h, nil
}

// dial runs off the event loop: it only touches the result channel and
// the write end of the wake pipe.
func dial(ctx context.Context, spec ConnectSpec, results chan<- connectResult, wake int) {
	defer unix.Close(wake)
	dialer := net.Dialer{Timeout: spec.Timeout}
	if spec.LocalAddress != "" {
		local, err := localAddr(spec.Network, spec.LocalAddress)
		if err != nil {
			results <- connectResult{err: err}
			unix.Write(wake, []byte{0})
			return
		}
		dialer.LocalAddr = local
	}
	conn, err := dialer.DialContext(ctx, spec.Network, spec.Address)
	results <- connectResult{conn: conn, err: err}
	unix.Write(wake, []byte{0})
}

func localAddr(network, addr string) (net.Addr, error) {
	if strings.HasPrefix(network, "unix") {
		return net.ResolveUnixAddr(network, addr)
	}
	return net.ResolveTCPAddr(network, addr)
}

func (r *Registry) connectDone(h *Hook, d *connectData) {
	if h.state != StateActive || d.delivered {
		return
	}
	var res connectResult
	select {
	case res = <-d.results:
	default:
		return
	}
	d.delivered = true

	status, ip := ConnectOK, ""
	if res.err != nil {
		status = connectStatus(res.err)
		logger.Debug("connect failed", "address", d.spec.Address, "status", status.String(), "error", res.err)
	} else {
		ip = res.conn.RemoteAddr().String()
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}
	r.call(h, func() { d.spec.Callback(status, res.conn, res.err, ip) })
	r.Unregister(h)
}

func connectStatus(err error) ConnectStatus {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		return ConnectAddressNotFound
	case errors.Is(err, unix.ECONNREFUSED):
		return ConnectRefused
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ConnectTimeout
	}
	return ConnectError
}
