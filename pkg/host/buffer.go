package host

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Buffer types.
const (
	BufferFormatted = "formatted"
	BufferFree      = "free"
)

// Buffer is a named list of printed lines.
type Buffer struct {
	Number     int               `hdata:"number"`
	PluginName string            `hdata:"plugin_name"`
	Name       string            `hdata:"name"`
	FullName   string            `hdata:"full_name"`
	ShortName  string            `hdata:"short_name,writable"`
	Type       string            `hdata:"type"`
	Title      string            `hdata:"title,writable"`
	Notify     int               `hdata:"notify,writable"`
	LocalVars  map[string]string `hdata:"local_variables"`
	NumLines   int               `hdata:"num_lines"`
	Lines      *Line             `hdata:"lines,related=line"`
	LastLine   *Line             `hdata:"last_line,related=line"`
	Prev       *Buffer           `hdata:"prev_buffer,related=buffer,prev"`
	Next       *Buffer           `hdata:"next_buffer,related=buffer,next"`

	closing bool
}

// Line is one printed line of a buffer.
type Line struct {
	Buffer    *Buffer   `hdata:"buffer,related=buffer"`
	Date      time.Time `hdata:"date"`
	Tags      []string  `hdata:"tags_array,array=tags_count"`
	TagsCount int       `hdata:"tags_count"`
	Prefix    string    `hdata:"prefix"`
	Message   string    `hdata:"message"`
	Prev      *Line     `hdata:"prev_line,related=line,prev"`
	Next      *Line     `hdata:"next_line,related=line,next"`
}

type bufferList struct {
	head, last *Buffer
	byName     map[string]*Buffer
	core       *Buffer
}

func (c *Context) initBuffers() error {
	c.buffers.byName = make(map[string]*Buffer)
	b, err := c.NewBuffer("core", "weechat", BufferFormatted)
	if err != nil {
		return err
	}
	b.Title = "hookkit " + Version
	c.buffers.core = b
	return nil
}

// CoreBuffer returns the buffer every context starts with.
func (c *Context) CoreBuffer() *Buffer { return c.buffers.core }

// NewBuffer creates a buffer named plugin.name at the end of the list.
func (c *Context) NewBuffer(plugin, name, typ string) (*Buffer, error) {
	if plugin == "" || name == "" {
		return nil, types.Errorf(types.ErrInvalid, "buffer: empty plugin or name")
	}
	switch typ {
	case "":
		typ = BufferFormatted
	case BufferFormatted, BufferFree:
	default:
		return nil, types.Errorf(types.ErrInvalid, "buffer %s.%s: unknown type %q", plugin, name, typ)
	}
	full := plugin + "." + name
	if _, ok := c.buffers.byName[full]; ok {
		return nil, types.Errorf(types.ErrInvalid, "buffer %s already exists", full)
	}
	b := &Buffer{
		PluginName: plugin,
		Name:       name,
		FullName:   full,
		ShortName:  name,
		Type:       typ,
		Notify:     3,
		LocalVars:  map[string]string{"plugin": plugin, "name": name},
		Prev:       c.buffers.last,
	}
	if c.buffers.last != nil {
		c.buffers.last.Next = b
		b.Number = c.buffers.last.Number + 1
	} else {
		c.buffers.head = b
		b.Number = 1
	}
	c.buffers.last = b
	c.buffers.byName[full] = b

	c.hooks.SendSignal("buffer_opened", hook.SignalPointer, b)
	return b, nil
}

// SearchBuffer finds a buffer by plugin and name. An empty plugin matches
// the name against every buffer, full name first.
func (c *Context) SearchBuffer(plugin, name string) *Buffer {
	if plugin != "" {
		return c.buffers.byName[plugin+"."+name]
	}
	if b, ok := c.buffers.byName[name]; ok {
		return b
	}
	for b := c.buffers.head; b != nil; b = b.Next {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// BufferByNumber returns the buffer numbered n.
func (c *Context) BufferByNumber(n int) *Buffer {
	for b := c.buffers.head; b != nil; b = b.Next {
		if b.Number == n {
			return b
		}
	}
	return nil
}

// FindBuffer resolves a user argument: a number, a full name or a name.
func (c *Context) FindBuffer(arg string) *Buffer {
	if n, err := strconv.Atoi(arg); err == nil {
		return c.BufferByNumber(n)
	}
	return c.SearchBuffer("", arg)
}

// Buffers returns every buffer in list order.
func (c *Context) Buffers() []*Buffer {
	var out []*Buffer
	for b := c.buffers.head; b != nil; b = b.Next {
		out = append(out, b)
	}
	return out
}

// ValidBuffer reports whether b is a live buffer of this context.
func (c *Context) ValidBuffer(b *Buffer) bool {
	return b != nil && !b.closing && c.buffers.byName[b.FullName] == b
}

// RenameBuffer changes the name of b, keeping its plugin.
func (c *Context) RenameBuffer(b *Buffer, name string) error {
	if !c.ValidBuffer(b) {
		return types.Errorf(types.ErrStalePointer, "rename: buffer not found")
	}
	if name == "" || strings.ContainsAny(name, " ,") {
		return types.Errorf(types.ErrInvalid, "rename %s: invalid name %q", b.FullName, name)
	}
	if b == c.buffers.core {
		return types.Errorf(types.ErrInvalid, "rename: the core buffer cannot be renamed")
	}
	if name == b.Name {
		return nil
	}
	full := b.PluginName + "." + name
	if _, ok := c.buffers.byName[full]; ok {
		return types.Errorf(types.ErrInvalid, "rename %s: buffer %s already exists", b.FullName, full)
	}
	delete(c.buffers.byName, b.FullName)
	if b.ShortName == b.Name {
		b.ShortName = name
	}
	b.Name, b.FullName = name, full
	b.LocalVars["name"] = name
	c.buffers.byName[full] = b

	c.hooks.SendSignal("buffer_renamed", hook.SignalPointer, b)
	return nil
}

// CloseBuffer closes b. Windows showing it switch to the previous buffer
// (or the core buffer), and the numbers of following buffers shift down.
func (c *Context) CloseBuffer(b *Buffer) error {
	if !c.ValidBuffer(b) {
		return types.Errorf(types.ErrStalePointer, "close: buffer not found")
	}
	if b == c.buffers.core {
		return types.Errorf(types.ErrInvalid, "close: the core buffer cannot be closed")
	}
	c.hooks.SendSignal("buffer_closing", hook.SignalPointer, b)
	// A closing callback may have closed it already.
	if !c.ValidBuffer(b) {
		return nil
	}
	b.closing = true

	other := b.Prev
	if other == nil {
		other = c.buffers.core
	}
	for w := c.windows.head; w != nil; w = w.Next {
		if w.Buffer == b {
			c.setWindowBuffer(w, other)
		}
	}

	c.unlinkBuffer(b)
	full := b.FullName
	c.releaseBuffer(b)
	c.hooks.SendSignal("buffer_closed", hook.SignalString, full)
	return nil
}

func (c *Context) unlinkBuffer(b *Buffer) {
	if b.Prev != nil {
		b.Prev.Next = b.Next
	} else {
		c.buffers.head = b.Next
	}
	if b.Next != nil {
		b.Next.Prev = b.Prev
	} else {
		c.buffers.last = b.Prev
	}
	for n := b.Next; n != nil; n = n.Next {
		n.Number--
	}
	b.Prev, b.Next = nil, nil
	delete(c.buffers.byName, b.FullName)
}

func (c *Context) releaseBuffer(b *Buffer) {
	for l := b.Lines; l != nil; l = l.Next {
		c.handles.Release(l)
	}
	b.Lines, b.LastLine, b.NumLines = nil, nil, 0
	c.handles.Release(b)
}

func (c *Context) freeBuffers() {
	for b := c.buffers.head; b != nil; {
		next := b.Next
		b.closing = true
		c.releaseBuffer(b)
		b.Prev, b.Next = nil, nil
		b = next
	}
	c.buffers = bufferList{byName: make(map[string]*Buffer)}
}

// closePluginBuffers closes the buffers a plugin created.
func (c *Context) closePluginBuffers(plugin string) int {
	n := 0
	for b := c.buffers.head; b != nil; {
		next := b.Next
		if b.PluginName == plugin && c.CloseBuffer(b) == nil {
			n++
		}
		b = next
	}
	return n
}

// SetLocalVar sets (or with an empty value removes) a local variable.
func (c *Context) SetLocalVar(b *Buffer, name, value string) {
	if value == "" {
		delete(b.LocalVars, name)
	} else {
		b.LocalVars[name] = value
	}
	c.hooks.SendSignal("buffer_localvar_changed", hook.SignalPointer, b)
}

// ----------------------------------------------------------------------------
// Lines
// ----------------------------------------------------------------------------

// Print adds a line to b. The message first goes through the
// "weechat_print" modifier, then through the line hooks, which may change
// any part of it, move it to another buffer or drop it. It returns the
// line added, or nil when it was dropped.
func (c *Context) Print(b *Buffer, prefix, message string, tags ...string) *Line {
	if !c.ValidBuffer(b) {
		b = c.buffers.core
	}
	data := b.PluginName + ";" + b.FullName + ";" + strings.Join(tags, ",")
	text := c.hooks.ExecModifier("weechat_print", data, prefix+"\t"+message)
	if text == "" {
		return nil
	}
	var ok bool
	if prefix, message, ok = strings.Cut(text, "\t"); !ok {
		prefix, message = "", text
	}

	line := c.hooks.ExecLine(map[string]string{
		hook.LineBufferName: b.FullName,
		hook.LineBufferType: b.Type,
		hook.LineTags:       strings.Join(tags, ","),
		hook.LinePrefix:     prefix,
		hook.LineMessage:    message,
	})
	if line == nil {
		return nil
	}
	if name := line[hook.LineBufferName]; name != b.FullName {
		if other := c.buffers.byName[name]; other != nil {
			b = other
		}
	}

	l := &Line{
		Buffer:  b,
		Date:    c.opts.Now(),
		Tags:    strmatch.SplitMasks(line[hook.LineTags]),
		Prefix:  line[hook.LinePrefix],
		Message: line[hook.LineMessage],
	}
	l.TagsCount = len(l.Tags)
	c.appendLine(b, l)
	c.writeLine(l)
	c.hooks.SendSignal("buffer_line_added", hook.SignalPointer, l)
	return l
}

// Printf is Print with a formatted message and no prefix.
func (c *Context) Printf(b *Buffer, format string, args ...any) *Line {
	return c.Print(b, "", fmt.Sprintf(format, args...))
}

// PrintError prints message with the error prefix.
func (c *Context) PrintError(b *Buffer, format string, args ...any) *Line {
	return c.Print(b, c.OptionString("weechat.look.prefix_error"), fmt.Sprintf(format, args...))
}

// PrintRaw prints bytes received from outside (a process, a server),
// decoded by the "charset_decode" modifier.
func (c *Context) PrintRaw(b *Buffer, prefix string, raw []byte, tags ...string) *Line {
	name := ""
	if c.ValidBuffer(b) {
		name = b.FullName
	}
	text := c.hooks.ExecModifier("charset_decode", name, string(raw))
	return c.Print(b, prefix, text, tags...)
}

func (c *Context) appendLine(b *Buffer, l *Line) {
	l.Prev = b.LastLine
	if b.LastLine != nil {
		b.LastLine.Next = l
	} else {
		b.Lines = l
	}
	b.LastLine = l
	b.NumLines++

	limit := c.OptionInt("weechat.history.max_buffer_lines_number")
	for limit > 0 && b.NumLines > limit {
		old := b.Lines
		b.Lines = old.Next
		b.Lines.Prev = nil
		old.Next = nil
		b.NumLines--
		c.handles.Release(old)
	}
}

func (c *Context) writeLine(l *Line) {
	var sb strings.Builder
	sb.WriteString(l.Date.Format(c.timeFormat()))
	fmt.Fprintf(&sb, " [%s] ", l.Buffer.FullName)
	if l.Prefix != "" {
		sb.WriteString(l.Prefix)
		sb.WriteByte(' ')
	}
	sb.WriteString(l.Message)
	sb.WriteByte('\n')
	fmt.Fprint(c.opts.Output, sb.String())
}

func (c *Context) timeFormat() string {
	if f := c.OptionString("weechat.look.buffer_time_format"); f != "" {
		return f
	}
	return time.TimeOnly
}

// Lines returns the lines of b, oldest first.
func (c *Context) Lines(b *Buffer) []*Line {
	var out []*Line
	for l := b.Lines; l != nil; l = l.Next {
		out = append(out, l)
	}
	return out
}

// ----------------------------------------------------------------------------
// hdata
// ----------------------------------------------------------------------------

func (c *Context) describeBuffer(name string) (*hdata.Type, error) {
	t, err := hdata.Describe(name, (*Buffer)(nil), hdata.TypeOptions{Update: c.updateBuffer})
	if err != nil {
		return nil, err
	}
	if err := t.AddList("gui_buffers", func() any { return c.buffers.head }, hdata.ListCheckPointers); err != nil {
		return nil, err
	}
	if err := t.AddList("last_gui_buffer", func() any { return c.buffers.last }, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// updateBuffer applies named values to a buffer: "name" renames it,
// writable fields are set as text, "localvar_set_X" and "localvar_del_X"
// change local variables.
func (c *Context) updateBuffer(w *hdata.Walker, t *hdata.Type, obj any, values map[string]string) int {
	b, ok := obj.(*Buffer)
	if !ok || !c.ValidBuffer(b) {
		return 0
	}
	n := 0
	for _, k := range slices.Sorted(maps.Keys(values)) {
		v := values[k]
		switch {
		case k == "name":
			if c.RenameBuffer(b, v) == nil {
				n++
			}
		case k == "title" || k == "short_name" || k == "notify":
			if w.Set(t, b, k, v) == nil {
				n++
				c.hooks.SendSignal("buffer_"+k+"_changed", hook.SignalPointer, b)
			}
		case strings.HasPrefix(k, "localvar_set_"):
			c.SetLocalVar(b, strings.TrimPrefix(k, "localvar_set_"), v)
			n++
		case strings.HasPrefix(k, "localvar_del_"):
			c.SetLocalVar(b, strings.TrimPrefix(k, "localvar_del_"), "")
			n++
		}
	}
	return n
}

func (c *Context) describeLine(name string) (*hdata.Type, error) {
	return hdata.Describe(name, (*Line)(nil), hdata.TypeOptions{})
}
