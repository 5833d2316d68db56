package host

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

func TestBufferNumbering(t *testing.T) {
	c, _ := newTestContext(t)
	signals := recordSignals(t, c, "buffer_*")

	a, err := c.NewBuffer("test", "a", "")
	require.NoError(t, err)
	b, err := c.NewBuffer("test", "b", BufferFree)
	require.NoError(t, err)
	require.Equal(t, 2, a.Number)
	require.Equal(t, 3, b.Number)
	require.Equal(t, BufferFormatted, a.Type)
	require.Equal(t, "test.b", b.FullName)
	require.Equal(t, map[string]string{"plugin": "test", "name": "b"}, b.LocalVars)

	_, err = c.NewBuffer("test", "a", "")
	require.Error(t, err, "duplicate")
	_, err = c.NewBuffer("test", "c", "weird")
	require.Error(t, err)

	require.NoError(t, c.CloseBuffer(a))
	require.False(t, c.ValidBuffer(a))
	require.Equal(t, 2, b.Number)
	require.Same(t, b, c.BufferByNumber(2))
	require.Nil(t, c.SearchBuffer("test", "a"))
	require.ErrorIs(t, c.CloseBuffer(a), types.ErrStalePointer)

	require.Equal(t, []string{"buffer_opened", "buffer_opened", "buffer_closing", "buffer_closed"}, *signals)
}

func TestCoreBufferIsPermanent(t *testing.T) {
	c, _ := newTestContext(t)
	require.Error(t, c.CloseBuffer(c.CoreBuffer()))
	require.Error(t, c.RenameBuffer(c.CoreBuffer(), "other"))
	require.True(t, c.ValidBuffer(c.CoreBuffer()))
}

func TestRenameBuffer(t *testing.T) {
	c, _ := newTestContext(t)
	b, err := c.NewBuffer("irc", "server", "")
	require.NoError(t, err)
	_, err = c.NewBuffer("irc", "taken", "")
	require.NoError(t, err)
	signals := recordSignals(t, c, "buffer_renamed")

	require.NoError(t, c.RenameBuffer(b, "libera"))
	require.Equal(t, "irc.libera", b.FullName)
	require.Equal(t, "libera", b.ShortName, "short name follows when it was the name")
	require.Equal(t, "libera", b.LocalVars["name"])
	require.Same(t, b, c.SearchBuffer("irc", "libera"))
	require.Same(t, b, c.FindBuffer("irc.libera"))
	require.Nil(t, c.SearchBuffer("irc", "server"))

	require.Error(t, c.RenameBuffer(b, "taken"))
	require.Error(t, c.RenameBuffer(b, "has space"))
	require.Equal(t, []string{"buffer_renamed"}, *signals)
}

func TestCloseBufferMovesWindows(t *testing.T) {
	c, _ := newTestContext(t)
	a, _ := c.NewBuffer("test", "a", "")
	b, _ := c.NewBuffer("test", "b", "")
	require.NoError(t, c.SwitchBuffer(b))
	w2 := c.SplitWindow()
	require.Same(t, b, w2.Buffer)
	require.Len(t, c.Windows(), 2)

	require.NoError(t, c.CloseBuffer(b))
	for _, w := range c.Windows() {
		require.Same(t, a, w.Buffer, "window %d", w.Number)
	}
	require.NoError(t, c.CloseBuffer(a))
	require.Same(t, c.CoreBuffer(), c.CurrentBuffer())
}

func TestWindows(t *testing.T) {
	c, _ := newTestContext(t)
	signals := recordSignals(t, c, "window_*")

	first := c.CurrentWindow()
	second := c.SplitWindow()
	require.Equal(t, 2, second.Number)
	require.Same(t, second, c.CurrentWindow())

	require.NoError(t, c.FocusWindow(first))
	require.Same(t, first, c.CurrentWindow())

	require.NoError(t, c.CloseWindow(first))
	require.Equal(t, 1, second.Number)
	require.Same(t, second, c.CurrentWindow())
	require.Error(t, c.CloseWindow(second), "last window")
	require.ErrorIs(t, c.FocusWindow(first), types.ErrStalePointer)

	require.Equal(t, []string{"window_opened", "window_switch", "window_closing", "window_closed"}, *signals)
}

func TestPrint(t *testing.T) {
	c, out := newTestContext(t)
	core := c.CoreBuffer()

	l := c.Print(core, "--", "hello", "tag1", "tag2")
	require.NotNil(t, l)
	require.Equal(t, "--", l.Prefix)
	require.Equal(t, "hello", l.Message)
	require.Equal(t, []string{"tag1", "tag2"}, l.Tags)
	require.Equal(t, 2, l.TagsCount)
	require.Equal(t, testNow, l.Date)
	require.Same(t, core, l.Buffer)
	require.Equal(t, "12:00:00 [core.weechat] -- hello\n", out.String())

	c.Printf(nil, "n=%d", 3)
	lines := c.Lines(core)
	require.Len(t, lines, 2)
	require.Equal(t, "n=3", lines[1].Message)
	require.Same(t, lines[1], core.LastLine)
	require.Equal(t, 2, core.NumLines)
}

func TestPrintModifier(t *testing.T) {
	c, _ := newTestContext(t)
	var data string
	_, err := c.Hooks().HookModifier("", hook.ModifierSpec{
		Modifier: "weechat_print",
		Callback: func(_, d, s string) (string, bool) {
			data = d
			if strings.Contains(s, "secret") {
				return "", true
			}
			return strings.ToUpper(s), true
		},
	})
	require.NoError(t, err)

	l := c.Print(c.CoreBuffer(), "pre", "text", "a", "b")
	require.NotNil(t, l)
	require.Equal(t, "core;core.weechat;a,b", data)
	require.Equal(t, "PRE", l.Prefix)
	require.Equal(t, "TEXT", l.Message)

	require.Nil(t, c.Print(c.CoreBuffer(), "", "a secret"))
	require.Equal(t, 1, c.CoreBuffer().NumLines)
}

func TestPrintLineHooks(t *testing.T) {
	c, _ := newTestContext(t)
	other, err := c.NewBuffer("test", "other", "")
	require.NoError(t, err)

	_, err = c.Hooks().HookLine("", hook.LineSpec{
		BufferName: CoreBufferName,
		Tags:       "move",
		Callback: func(map[string]string) map[string]string {
			return map[string]string{hook.LineBufferName: other.FullName, hook.LineMessage: "moved"}
		},
	})
	require.NoError(t, err)
	_, err = c.Hooks().HookLine("", hook.LineSpec{
		Tags: "drop",
		Callback: func(map[string]string) map[string]string {
			return map[string]string{hook.LineBufferName: ""}
		},
	})
	require.NoError(t, err)

	l := c.Print(c.CoreBuffer(), "", "original", "move")
	require.NotNil(t, l)
	require.Same(t, other, l.Buffer)
	require.Equal(t, "moved", l.Message)
	require.Zero(t, c.CoreBuffer().NumLines)
	require.Equal(t, 1, other.NumLines)

	require.Nil(t, c.Print(other, "", "gone", "drop"))
	require.Equal(t, 1, other.NumLines)

	kept := c.Print(c.CoreBuffer(), "", "kept", "other")
	require.NotNil(t, kept)
	require.Same(t, c.CoreBuffer(), kept.Buffer)
}

func TestPrintTrimsHistory(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.SetOption("weechat.history.max_buffer_lines_number", "2"))
	core := c.CoreBuffer()

	first := c.Printf(core, "a")
	h := c.Handle(first)
	c.Printf(core, "b")
	c.Printf(core, "c")

	lines := c.Lines(core)
	require.Len(t, lines, 2)
	require.Equal(t, "b", lines[0].Message)
	require.Nil(t, lines[0].Prev)
	require.Equal(t, 2, core.NumLines)

	_, _, err := c.Lookup("line", h.String())
	require.Error(t, err, "trimmed lines lose their handle")
}

func TestLocalVars(t *testing.T) {
	c, _ := newTestContext(t)
	b, _ := c.NewBuffer("test", "vars", "")
	signals := recordSignals(t, c, "buffer_localvar_changed")

	c.SetLocalVar(b, "charset_modifier", "test.x")
	require.Equal(t, "test.x", b.LocalVars["charset_modifier"])
	c.SetLocalVar(b, "charset_modifier", "")
	_, ok := b.LocalVars["charset_modifier"]
	require.False(t, ok)
	require.Len(t, *signals, 2)
}
