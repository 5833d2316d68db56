package hook

import (
	"fmt"
	"strconv"
	"time"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

const (
	// Forever as TimerSpec.MaxCalls runs the timer until it is unregistered.
	Forever = -1

	// maxTimerWait caps TimeToNext so clock skew is noticed within it.
	maxTimerWait = 2 * time.Second

	// clockSkew is the jump in wall time that reinitializes every timer.
	clockSkew = 10 * time.Second

	// alignSlack delays aligned timers slightly past the second boundary.
	alignSlack = 10 * time.Millisecond
)

// TimerFunc is called when a timer fires. remaining is the number of calls
// left after this one: 0 on the last call, -1 for a timer without limit.
type TimerFunc func(remaining int) types.RC

// TimerSpec describes a timer hook.
type TimerSpec struct {
	Interval time.Duration

	// AlignSecond aligns the first call on a multiple of this many seconds
	// of local time (e.g. 60 fires on the minute). Only for intervals of one
	// second or more.
	AlignSecond int

	// MaxCalls is the number of calls before the timer unregisters itself:
	// zero means one call, a negative value (Forever) no limit.
	MaxCalls int

	Priority int
	Callback TimerFunc
}

type timerData struct {
	spec      TimerSpec
	remaining int
	lastExec  time.Time
	nextExec  time.Time
}

func (d *timerData) describe() string {
	if d.remaining > 0 {
		return fmt.Sprintf("%s (%d calls remaining)", d.spec.Interval, d.remaining)
	}
	return fmt.Sprintf("%s (no call limit)", d.spec.Interval)
}

func (d *timerData) addToInfolist(it *infolist.Item) {
	it.AddString("interval", strconv.FormatInt(d.spec.Interval.Milliseconds(), 10)).
		AddInteger("align_second", d.spec.AlignSecond).
		AddInteger("remaining_calls", d.remaining).
		AddTime("last_exec", d.lastExec).
		AddTime("next_exec", d.nextExec)
}

// init schedules the next call one interval after now, aligned if asked.
func (d *timerData) init(now time.Time) {
	d.lastExec = now
	if d.spec.Interval >= time.Second && d.spec.AlignSecond > 0 {
		_, offset := now.Zone()
		sec := now.Unix()
		align := int64(d.spec.AlignSecond)
		d.lastExec = time.Unix(sec-((sec+int64(offset))%align), int64(alignSlack))
	}
	d.nextExec = d.lastExec.Add(d.spec.Interval)
}

// NextExec returns when a timer hook fires next; zero for other kinds.
func (h *Hook) NextExec() time.Time {
	if d, ok := h.data.(*timerData); ok {
		return d.nextExec
	}
	return time.Time{}
}

// HookTimer registers a timer.
func (r *Registry) HookTimer(owner string, spec TimerSpec) (*Hook, error) {
	if spec.Interval <= 0 || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "timer: interval %s, callback set: %t", spec.Interval, spec.Callback != nil)
	}
	if spec.Priority == 0 {
		spec.Priority = DefaultPriority
	}
	d := &timerData{spec: spec, remaining: spec.MaxCalls}
	switch {
	case spec.MaxCalls == 0:
		d.remaining = 1
	case spec.MaxCalls < 0:
		d.remaining = Forever
	}
	d.init(r.now())
	return r.add(KindTimer, owner, spec.Priority, d), nil
}

// checkClock reinitializes every timer when wall time jumped by more than
// clockSkew since the last check.
func (r *Registry) checkClock(now time.Time) {
	diff := now.Sub(r.lastClock)
	r.lastClock = now
	if diff > -clockSkew && diff < clockSkew {
		return
	}
	logger.Info("system clock skew detected, reinitializing timers", "skew", diff)
	for h := range r.Hooks(KindTimer) {
		if h.state == StateActive {
			h.data.(*timerData).init(now)
		}
	}
}

// TimeToNext returns how long the event loop may wait before a timer is
// due: at least a millisecond, at most two seconds.
func (r *Registry) TimeToNext() time.Duration {
	now := r.now()
	r.checkClock(now)
	var next time.Time
	for h := range r.Hooks(KindTimer) {
		if h.state != StateActive {
			continue
		}
		if t := h.data.(*timerData).nextExec; next.IsZero() || t.Before(next) {
			next = t
		}
	}
	if next.IsZero() {
		return maxTimerWait
	}
	wait := next.Sub(now)
	switch {
	case wait < time.Millisecond:
		return time.Millisecond
	case wait > maxTimerWait:
		return maxTimerWait
	}
	return wait
}

// ExecTimers fires every due timer and returns how many ran. A timer whose
// call budget is spent is unregistered, and swept when the pass ends.
func (r *Registry) ExecTimers() int {
	if r.lists[KindTimer].head == nil {
		return 0
	}
	now := r.now()
	r.checkClock(now)
	n := 0
	r.each(KindTimer, func(h *Hook) bool {
		d := h.data.(*timerData)
		if h.running > 0 || d.nextExec.After(now) {
			return true
		}
		arg := Forever
		if d.remaining > 0 {
			arg = d.remaining - 1
		}
		r.call(h, func() { d.spec.Callback(arg) })
		n++
		if h.state != StateActive {
			return true
		}
		d.lastExec = now
		d.nextExec = d.nextExec.Add(d.spec.Interval)
		if d.remaining > 0 {
			d.remaining--
			if d.remaining == 0 {
				r.Unregister(h)
			}
		}
		return true
	})
	return n
}
