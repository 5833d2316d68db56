package hook

import (
	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Signal payload types.
const (
	SignalString  = "string"
	SignalInt     = "int"
	SignalPointer = "pointer"
)

// SignalFunc handles a signal. typeData tells how to read data (one of the
// Signal* constants).
type SignalFunc func(signal, typeData string, data any) types.RC

// HsignalFunc handles a signal carrying a hashtable.
type HsignalFunc func(signal string, hashtable map[string]string) types.RC

// SignalSpec describes a signal or hsignal hook.
type SignalSpec struct {
	// Signal is a comma-separated list of masks: "buffer_*,!buffer_moved".
	Signal   string
	Priority int
	Callback SignalFunc
}

// HsignalSpec describes an hsignal hook.
type HsignalSpec struct {
	Signal   string
	Priority int
	Callback HsignalFunc
}

type signalData struct {
	signal string
	masks  []string
	cb     SignalFunc
	hcb    HsignalFunc
}

func (d *signalData) describe() string { return d.signal }

func (d *signalData) addToInfolist(it *infolist.Item) {
	it.AddString("signal", d.signal)
}

func (d *signalData) matches(name string) bool {
	return strmatch.MatchList(name, d.masks, false)
}

func newSignalData(kind Kind, priority int, signal string) (*signalData, int, error) {
	k := key(priority, signal)
	masks := strmatch.SplitMasks(k.Name)
	if len(masks) == 0 {
		return nil, 0, types.Errorf(types.ErrInvalid, "%s: empty signal", kind)
	}
	return &signalData{signal: k.Name, masks: masks}, k.Priority, nil
}

// HookSignal registers a signal handler.
func (r *Registry) HookSignal(owner string, spec SignalSpec) (*Hook, error) {
	if spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "signal %q: nil callback", spec.Signal)
	}
	d, prio, err := newSignalData(KindSignal, spec.Priority, spec.Signal)
	if err != nil {
		return nil, err
	}
	d.cb = spec.Callback
	return r.add(KindSignal, owner, prio, d), nil
}

// HookHsignal registers an hsignal handler.
func (r *Registry) HookHsignal(owner string, spec HsignalSpec) (*Hook, error) {
	if spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "hsignal %q: nil callback", spec.Signal)
	}
	d, prio, err := newSignalData(KindHsignal, spec.Priority, spec.Signal)
	if err != nil {
		return nil, err
	}
	d.hcb = spec.Callback
	return r.add(KindHsignal, owner, prio, d), nil
}

// SendSignal runs the handlers of signal in priority order. It returns
// types.OKEat if a handler consumed the signal (later handlers are
// skipped), types.RCError if one failed, types.OK otherwise. A handler
// never runs again while it is already running.
func (r *Registry) SendSignal(signal, typeData string, data any) types.RC {
	return r.sendSignal(KindSignal, signal, func(d *signalData) types.RC {
		return d.cb(signal, typeData, data)
	})
}

// SendHsignal is SendSignal for hashtable signals.
func (r *Registry) SendHsignal(signal string, hashtable map[string]string) types.RC {
	return r.sendSignal(KindHsignal, signal, func(d *signalData) types.RC {
		return d.hcb(signal, hashtable)
	})
}

func (r *Registry) sendSignal(kind Kind, signal string, invoke func(d *signalData) types.RC) types.RC {
	if signal == "" {
		return types.OK
	}
	rc := types.OK
	r.each(kind, func(h *Hook) bool {
		d := h.data.(*signalData)
		if h.running > 0 || !d.matches(signal) {
			return true
		}
		var got types.RC
		r.call(h, func() { got = invoke(d) })
		switch got {
		case types.OKEat:
			rc = types.OKEat
			return false
		case types.RCError:
			rc = types.RCError
		}
		return true
	})
	return rc
}

// ----------------------------------------------------------------------------
// config
// ----------------------------------------------------------------------------

// ConfigFunc is called after an option changed.
type ConfigFunc func(option, value string) types.RC

// ConfigSpec describes a config hook.
type ConfigSpec struct {
	// Option is a list of masks like "weechat.look.*"; empty matches every
	// option.
	Option   string
	Priority int
	Callback ConfigFunc
}

type configData struct {
	spec  ConfigSpec
	masks []string
}

func (d *configData) describe() string { return d.spec.Option }

func (d *configData) addToInfolist(it *infolist.Item) {
	it.AddString("option", d.spec.Option)
}

// HookConfig registers a handler for option changes.
func (r *Registry) HookConfig(owner string, spec ConfigSpec) (*Hook, error) {
	if spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "config %q: nil callback", spec.Option)
	}
	k := key(spec.Priority, spec.Option)
	spec.Option, spec.Priority = k.Name, k.Priority
	return r.add(KindConfig, owner, spec.Priority, &configData{spec: spec, masks: strmatch.SplitMasks(spec.Option)}), nil
}

// ExecConfig notifies the config hooks matching option and returns how
// many ran.
func (r *Registry) ExecConfig(option, value string) int {
	n := 0
	r.each(KindConfig, func(h *Hook) bool {
		d := h.data.(*configData)
		if h.running > 0 || (len(d.masks) > 0 && !strmatch.MatchList(option, d.masks, false)) {
			return true
		}
		r.call(h, func() { d.spec.Callback(option, value) })
		n++
		return true
	})
	return n
}
