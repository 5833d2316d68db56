package host

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

func TestBufferCommand(t *testing.T) {
	c, out := newTestContext(t)
	b, err := c.NewBuffer("test", "work", "")
	require.NoError(t, err)

	c.Exec(nil, "/buffer list")
	require.Contains(t, out.String(), "1. core.weechat [formatted] (current)")
	require.Contains(t, out.String(), "2. test.work [formatted]")

	require.Equal(t, hook.ExecOK, c.Exec(nil, "/buffer 2"))
	require.Same(t, b, c.CurrentBuffer())

	require.Equal(t, hook.ExecOK, c.Exec(b, "/buffer rename play"))
	require.Equal(t, "test.play", b.FullName)

	require.Equal(t, hook.ExecOK, c.Exec(b, "/buffer set title Some title"))
	require.Equal(t, "Some title", b.Title)

	require.Equal(t, hook.ExecError, c.Exec(b, "/buffer set number 9"), "not writable")
	require.Equal(t, 2, b.Number)

	out.Reset()
	c.Exec(b, "/buffer localvar")
	require.Contains(t, out.String(), `name: "play"`)

	require.Equal(t, hook.ExecOK, c.Exec(b, "/buffer close"))
	require.False(t, c.ValidBuffer(b))
	require.Same(t, c.CoreBuffer(), c.CurrentBuffer())

	out.Reset()
	require.Equal(t, hook.ExecError, c.Exec(nil, "/buffer nowhere"))
	require.Contains(t, out.String(), `Buffer "nowhere" not found`)
}

func TestWindowCommand(t *testing.T) {
	c, out := newTestContext(t)
	c.Exec(nil, "/window split")
	require.Len(t, c.Windows(), 2)
	c.Exec(nil, "/window 1")
	require.Equal(t, 1, c.CurrentWindow().Number)
	c.Exec(nil, "/window list")
	require.Contains(t, out.String(), "1. core.weechat (current)")
	c.Exec(nil, "/window close 2")
	require.Len(t, c.Windows(), 1)
	require.Equal(t, hook.ExecError, c.Exec(nil, "/window close"))
}

func TestSetAndUnsetCommands(t *testing.T) {
	c, out := newTestContext(t)

	c.Exec(nil, `/set weechat.look.prefix_error "!!"`)
	require.Equal(t, "!!", c.OptionString("weechat.look.prefix_error"))
	require.Contains(t, out.String(), `weechat.look.prefix_error = "!!"  (default: =!=)`)

	c.Exec(nil, `/set weechat.look.prefix_error ""`)
	require.Equal(t, "", c.OptionString("weechat.look.prefix_error"))

	out.Reset()
	c.Exec(nil, "/set weechat.history.*")
	require.Contains(t, out.String(), "weechat.history.max_buffer_lines_number = 4096")

	c.Exec(nil, "/unset weechat.look.prefix_error")
	require.Equal(t, "=!=", c.OptionString("weechat.look.prefix_error"))

	out.Reset()
	require.Equal(t, hook.ExecError, c.Exec(nil, "/set weechat.core.incomplete_commands perhaps"))
	require.Contains(t, out.String(), "=!= ")
}

func TestUnknownCommand(t *testing.T) {
	c, out := newTestContext(t)
	require.Equal(t, hook.ExecNotFound, c.Exec(nil, "/frobnicate now"))
	require.Contains(t, out.String(), `Unknown command "frobnicate"`)
}

func TestHelpCommand(t *testing.T) {
	c, out := newTestContext(t)
	c.Exec(nil, "/help")
	require.Contains(t, out.String(), "core commands:")

	out.Reset()
	c.Exec(nil, "/help /buffer")
	require.Contains(t, out.String(), "[core]  /buffer  manage buffers")
	require.Contains(t, out.String(), "/buffer rename <name>")

	require.Equal(t, hook.ExecError, c.Exec(nil, "/help nothing"))
}

func TestPrintCommand(t *testing.T) {
	c, _ := newTestContext(t)
	b, _ := c.NewBuffer("test", "target", "")

	c.Exec(nil, `/print -buffer test.target -tags a,b nick\thello world`)
	require.Equal(t, 1, b.NumLines)
	l := b.LastLine
	require.Equal(t, "nick", l.Prefix)
	require.Equal(t, "hello world", l.Message)
	require.Equal(t, []string{"a", "b"}, l.Tags)

	c.Exec(nil, "/print just text")
	require.Equal(t, "just text", c.CoreBuffer().LastLine.Message)
}

func TestDebugCommand(t *testing.T) {
	c, out := newTestContext(t)

	require.Equal(t, hook.ExecOK, c.Exec(nil, "/debug hooks command"))
	require.Contains(t, out.String(), "buffer")
	last := c.CoreBuffer().LastLine
	require.Equal(t, []string{"no_log"}, last.Tags)

	require.Equal(t, hook.ExecError, c.Exec(nil, "/debug hooks nonsense"))

	c.Types().Resolve("buffer")
	out.Reset()
	require.Equal(t, hook.ExecOK, c.Exec(nil, "/debug hdata"))
	require.Contains(t, out.String(), "gui_buffers")
}

func TestDebugCheck(t *testing.T) {
	c, out := newTestContext(t)
	b, err := c.NewBuffer("test", "check", "")
	require.NoError(t, err)
	c.Print(b, "", "one")
	c.Print(b, "", "two")

	require.Equal(t, hook.ExecOK, c.Exec(nil, "/debug check buffer line window"))
	report := c.Walker().Verify("buffer", "window")
	require.False(t, report.HasErrors(), report.FormatTextCompact())
	require.Greater(t, report.Objects, 4, "lines are reached through buffers")

	saved := b.Prev
	b.Prev = nil
	t.Cleanup(func() { b.Prev = saved })
	out.Reset()
	require.Equal(t, hook.ExecError, c.Exec(nil, "/debug check buffer"))
	require.Contains(t, out.String(), "does not link back")
}

func TestInput(t *testing.T) {
	c, out := newTestContext(t)
	b, _ := c.NewBuffer("test", "chat", "")
	var got []map[string]string
	_, err := c.Hooks().HookHsignal("", hook.HsignalSpec{
		Signal: "buffer_input",
		Callback: func(_ string, m map[string]string) types.RC {
			got = append(got, m)
			return types.OK
		},
	})
	require.NoError(t, err)

	c.Input(b, "hi there")
	c.Input(b, "//not a command")
	require.Equal(t, []map[string]string{
		{"buffer": "test.chat", "text": "hi there"},
		{"buffer": "test.chat", "text": "/not a command"},
	}, got)

	c.Input(c.CoreBuffer(), "hello")
	require.Contains(t, out.String(), "You can not write text in this buffer")
	require.Len(t, got, 2)

	c.Input(b, "/buffer rename chatter")
	require.Equal(t, "test.chatter", b.FullName)
}

func TestExecCommand(t *testing.T) {
	c, out := newTestContext(t, func(o *Options) { o.Now = time.Now })

	_, err := c.Hooks().HookLine("", hook.LineSpec{
		Callback: func(line map[string]string) map[string]string {
			if strings.HasPrefix(line[hook.LineMessage], "exec: ") {
				c.Loop().Stop()
			}
			return nil
		},
	})
	require.NoError(t, err)

	require.Equal(t, hook.ExecOK, c.Exec(nil, "/exec echo hello"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	require.Contains(t, out.String(), "hello")
	require.Contains(t, out.String(), `exec: "echo hello" ended (rc 0)`)
	var tagged bool
	for _, l := range c.Lines(c.CoreBuffer()) {
		if l.Message == "hello" {
			tagged = len(l.Tags) == 1 && l.Tags[0] == "exec_stdout"
		}
	}
	require.True(t, tagged)
}

func TestQuitCommand(t *testing.T) {
	c, _ := newTestContext(t)
	quit := recordSignals(t, c, "quit")
	require.True(t, c.Post(func() { c.Exec(nil, "/quit") }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	require.Equal(t, []string{"quit"}, *quit)
}
