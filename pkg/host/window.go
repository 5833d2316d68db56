package host

import (
	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Window displays one buffer.
type Window struct {
	Number int     `hdata:"number"`
	Buffer *Buffer `hdata:"buffer,related=buffer"`
	Prev   *Window `hdata:"prev_window,related=window,prev"`
	Next   *Window `hdata:"next_window,related=window,next"`
}

type windowList struct {
	head, last *Window
	current    *Window
}

func (c *Context) initWindows() error {
	w := &Window{Number: 1, Buffer: c.buffers.core}
	c.windows = windowList{head: w, last: w, current: w}
	return nil
}

// Windows returns every window in list order.
func (c *Context) Windows() []*Window {
	var out []*Window
	for w := c.windows.head; w != nil; w = w.Next {
		out = append(out, w)
	}
	return out
}

// CurrentWindow returns the window with focus.
func (c *Context) CurrentWindow() *Window { return c.windows.current }

// CurrentBuffer returns the buffer of the window with focus.
func (c *Context) CurrentBuffer() *Buffer {
	if c.windows.current == nil {
		return c.buffers.core
	}
	return c.windows.current.Buffer
}

// WindowByNumber returns the window numbered n.
func (c *Context) WindowByNumber(n int) *Window {
	for w := c.windows.head; w != nil; w = w.Next {
		if w.Number == n {
			return w
		}
	}
	return nil
}

func (c *Context) validWindow(w *Window) bool {
	for p := c.windows.head; p != nil; p = p.Next {
		if p == w {
			return true
		}
	}
	return false
}

// SwitchBuffer displays b in the current window.
func (c *Context) SwitchBuffer(b *Buffer) error {
	if !c.ValidBuffer(b) {
		return types.Errorf(types.ErrStalePointer, "switch: buffer not found")
	}
	if c.windows.current == nil {
		return types.Errorf(types.ErrInvalid, "switch: no window")
	}
	c.setWindowBuffer(c.windows.current, b)
	return nil
}

func (c *Context) setWindowBuffer(w *Window, b *Buffer) {
	if w.Buffer == b {
		return
	}
	w.Buffer = b
	c.hooks.SendSignal("window_switch", hook.SignalPointer, w)
	if w == c.windows.current {
		c.hooks.SendSignal("buffer_switch", hook.SignalPointer, b)
	}
}

// SplitWindow adds a window showing the current buffer and focuses it.
func (c *Context) SplitWindow() *Window {
	w := &Window{Buffer: c.CurrentBuffer(), Prev: c.windows.last}
	if c.windows.last != nil {
		c.windows.last.Next = w
		w.Number = c.windows.last.Number + 1
	} else {
		c.windows.head = w
		w.Number = 1
	}
	c.windows.last = w
	c.windows.current = w
	c.hooks.SendSignal("window_opened", hook.SignalPointer, w)
	return w
}

// FocusWindow gives focus to w.
func (c *Context) FocusWindow(w *Window) error {
	if !c.validWindow(w) {
		return types.Errorf(types.ErrStalePointer, "focus: window not found")
	}
	if w != c.windows.current {
		c.windows.current = w
		c.hooks.SendSignal("window_switch", hook.SignalPointer, w)
	}
	return nil
}

// CloseWindow closes w unless it is the last window.
func (c *Context) CloseWindow(w *Window) error {
	if !c.validWindow(w) {
		return types.Errorf(types.ErrStalePointer, "close: window not found")
	}
	if c.windows.head == c.windows.last {
		return types.Errorf(types.ErrInvalid, "close: cannot close the only window")
	}
	c.hooks.SendSignal("window_closing", hook.SignalPointer, w)
	if w.Prev != nil {
		w.Prev.Next = w.Next
	} else {
		c.windows.head = w.Next
	}
	if w.Next != nil {
		w.Next.Prev = w.Prev
	} else {
		c.windows.last = w.Prev
	}
	for n := w.Next; n != nil; n = n.Next {
		n.Number--
	}
	if c.windows.current == w {
		c.windows.current = c.windows.head
	}
	w.Prev, w.Next = nil, nil
	c.handles.Release(w)
	c.hooks.SendSignal("window_closed", hook.SignalPointer, w)
	return nil
}

func (c *Context) freeWindows() {
	for w := c.windows.head; w != nil; w = w.Next {
		c.handles.Release(w)
	}
	c.windows = windowList{}
}

func (c *Context) describeWindow(name string) (*hdata.Type, error) {
	t, err := hdata.Describe(name, (*Window)(nil), hdata.TypeOptions{})
	if err != nil {
		return nil, err
	}
	lists := []struct {
		name  string
		root  func() any
		flags hdata.ListFlags
	}{
		{"gui_windows", func() any { return c.windows.head }, hdata.ListCheckPointers},
		{"last_gui_window", func() any { return c.windows.last }, 0},
		{"gui_current_window", func() any { return c.windows.current }, 0},
	}
	for _, l := range lists {
		if err := t.AddList(l.name, l.root, l.flags); err != nil {
			return nil, err
		}
	}
	return t, nil
}
