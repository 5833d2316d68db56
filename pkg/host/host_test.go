package host

import (
	"bytes"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestContext(t *testing.T, mutate ...func(*Options)) (*Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts := DefaultOptions()
	opts.Output = &out
	opts.Now = func() time.Time { return testNow }
	for _, m := range mutate {
		m(&opts)
	}
	c := New(opts)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Shutdown() })
	return c, &out
}

// recordSignals collects the names of the signals matching mask.
func recordSignals(t *testing.T, c *Context, mask string) *[]string {
	t.Helper()
	var got []string
	_, err := c.Hooks().HookSignal("", hook.SignalSpec{
		Signal: mask,
		Callback: func(signal, _ string, _ any) types.RC {
			got = append(got, signal)
			return types.OK
		},
	})
	require.NoError(t, err)
	return &got
}

// notesPlugin exercises every kind of resource a plugin can own.
type notesPlugin struct {
	initErr error
	ended   int
	notes   []*note
}

type note struct {
	Text string `hdata:"text,writable"`
	Next *note  `hdata:"next_note,related=note,next"`
}

func (p *notesPlugin) Name() string { return "notes" }

func (p *notesPlugin) Init(c *Context) error {
	if _, err := c.NewOption("notes", OptionSpec{Name: "notes.look.color", Type: OptionString, Default: "red"}); err != nil {
		return err
	}
	if _, err := c.NewBuffer("notes", "main", BufferFormatted); err != nil {
		return err
	}
	_, err := c.Hooks().HookHdata("notes", hook.HdataSpec{
		Name: "note",
		Callback: func(name string) (*hdata.Type, error) {
			return hdata.Describe(name, (*note)(nil), hdata.TypeOptions{Owner: "notes"})
		},
	})
	if err != nil {
		return err
	}
	_, err = c.Hooks().HookHdata("notes", hook.HdataSpec{
		Name: "pnote",
		Callback: func(name string) (*hdata.Type, error) {
			return hdata.Describe(name, (*note)(nil), hdata.TypeOptions{})
		},
	})
	if err != nil {
		return err
	}
	_, err = c.Hooks().HookCommand("notes", hook.CommandSpec{
		Name: "note",
		Callback: func(target any, argv, argvEOL []string) types.RC {
			if len(argv) > 1 {
				p.notes = append(p.notes, &note{Text: argvEOL[1]})
			}
			return types.OK
		},
	})
	if err != nil {
		return err
	}
	return p.initErr
}

func (p *notesPlugin) End(*Context) error {
	p.ended++
	return nil
}

func TestInitAndShutdown(t *testing.T) {
	c, _ := newTestContext(t)

	core := c.CoreBuffer()
	require.NotNil(t, core)
	require.Equal(t, CoreBufferName, core.FullName)
	require.Equal(t, 1, core.Number)
	require.Len(t, c.Windows(), 1)
	require.Same(t, core, c.CurrentBuffer())
	require.Positive(t, c.Hooks().Count(hook.KindCommand))
	require.Positive(t, c.Hooks().Count(hook.KindTimer), "day change timer")

	require.Error(t, c.Init(), "second Init")

	quit := recordSignals(t, c, "quit")
	require.NoError(t, c.Shutdown())
	require.Equal(t, []string{"quit"}, *quit)
	require.Zero(t, c.Hooks().CountTotal())
	require.Empty(t, c.Buffers())
	require.Empty(t, c.Options(""))
	require.NoError(t, c.Shutdown(), "second Shutdown is a no-op")
}

func TestShutdownFromCallbackIsBusy(t *testing.T) {
	c, _ := newTestContext(t)
	var err error
	_, herr := c.Hooks().HookSignal("", hook.SignalSpec{
		Signal: "try_shutdown",
		Callback: func(string, string, any) types.RC {
			err = c.Shutdown()
			return types.OK
		},
	})
	require.NoError(t, herr)
	c.Hooks().SendSignal("try_shutdown", hook.SignalString, "")
	require.ErrorIs(t, err, types.ErrBusy)
}

func TestPluginLifecycle(t *testing.T) {
	p := &notesPlugin{}
	c, _ := newTestContext(t, func(o *Options) { o.Plugins = []Plugin{p} })
	signals := recordSignals(t, c, "plugin_*")

	require.Len(t, c.Plugins(), 1, "autoloaded")
	lp := c.Plugins()[0]
	require.Equal(t, "notes", lp.Name)
	require.True(t, lp.Initialized)
	require.Equal(t, testNow, lp.LoadedAt)

	_, ok := c.Option("notes.look.color")
	require.True(t, ok)
	require.NotNil(t, c.SearchBuffer("notes", "main"))
	nt, ok := c.Types().Resolve("note")
	require.True(t, ok)
	require.Equal(t, "notes", nt.Owner())
	pt, ok := c.Types().Resolve("pnote")
	require.True(t, ok)
	require.Equal(t, "notes", pt.Owner(), "owner taken from the hook")

	c.Exec(nil, "/note buy milk")
	require.Len(t, p.notes, 1)
	require.Equal(t, "buy milk", p.notes[0].Text)

	require.NoError(t, c.UnloadPlugin("notes"))
	require.Equal(t, 1, p.ended)
	require.Empty(t, c.Plugins())
	require.False(t, lp.Initialized)
	_, ok = c.Option("notes.look.color")
	require.False(t, ok)
	require.Nil(t, c.SearchBuffer("notes", "main"))
	require.NotContains(t, c.Types().Materialized(), "note")
	_, ok = c.Types().Resolve("note")
	require.False(t, ok, "provider went with the plugin")
	require.NotContains(t, c.Types().Materialized(), "pnote")
	_, ok = c.Types().Resolve("pnote")
	require.False(t, ok)
	require.Equal(t, hook.ExecNotFound, c.Exec(nil, "/note again"))

	require.NoError(t, c.LoadPlugin("notes"))
	require.Equal(t, []string{"plugin_unloaded", "plugin_loaded"}, *signals)

	require.Error(t, c.LoadPlugin("notes"), "already loaded")
	require.ErrorIs(t, c.LoadPlugin("nope"), types.ErrNotFound)
	require.ErrorIs(t, c.UnloadPlugin("nope"), types.ErrNotFound)
}

func TestPluginInitFailureIsUndone(t *testing.T) {
	p := &notesPlugin{initErr: errors.New("boom")}
	c, out := newTestContext(t, func(o *Options) { o.Plugins = []Plugin{p} })

	require.Empty(t, c.Plugins())
	require.Contains(t, out.String(), "init failed")
	_, ok := c.Option("notes.look.color")
	require.False(t, ok)
	require.Nil(t, c.SearchBuffer("notes", "main"))
	require.Zero(t, p.ended)

	err := c.LoadPlugin("notes")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
}

func TestAutoloadMasks(t *testing.T) {
	p := &notesPlugin{}
	c, _ := newTestContext(t, func(o *Options) {
		o.Plugins = []Plugin{p}
		o.Autoload = "charset"
	})
	require.Empty(t, c.Plugins())
	require.Equal(t, []string{"notes"}, c.Available())

	comp := c.Complete(c.CoreBuffer(), "/plugin load ")
	require.Equal(t, []string{"notes"}, comp)
}

func TestShutdownUnloadsInReverseOrder(t *testing.T) {
	a, b := &orderPlugin{name: "a"}, &orderPlugin{name: "b"}
	var order []string
	a.log, b.log = &order, &order
	c, _ := newTestContext(t, func(o *Options) { o.Plugins = []Plugin{a, b} })
	require.Len(t, c.Plugins(), 2)

	require.NoError(t, c.Shutdown())
	require.Equal(t, []string{"b", "a"}, order)
}

type orderPlugin struct {
	name string
	log  *[]string
}

func (p *orderPlugin) Name() string        { return p.name }
func (p *orderPlugin) Init(*Context) error { return nil }
func (p *orderPlugin) End(*Context) error {
	*p.log = append(*p.log, p.name)
	return nil
}

func TestInfos(t *testing.T) {
	c, _ := newTestContext(t)
	reg := c.Hooks()

	v, ok := reg.GetInfo("version", "")
	require.True(t, ok)
	require.Equal(t, Version, v)

	v, ok = reg.GetInfo("hook_count", "command")
	require.True(t, ok)
	require.Equal(t, strconv.Itoa(reg.Count(hook.KindCommand)), v)

	_, ok = reg.GetInfo("hook_count", "nonsense")
	require.False(t, ok)

	v, ok = reg.GetInfo("uptime", "")
	require.True(t, ok)
	require.Equal(t, "0", v)

	counts, ok := reg.GetInfoHashtable("hook_counts", nil)
	require.True(t, ok)
	require.Equal(t, strconv.Itoa(reg.Count(hook.KindTimer)), counts["timer"])

	l, ok := reg.GetInfolist("buffer", nil, "")
	require.True(t, ok)
	require.Equal(t, 1, l.Len())
	require.True(t, l.Next())
	require.Equal(t, CoreBufferName, l.String("full_name"))
	require.Equal(t, 1, l.Integer("current_buffer"))

	l, ok = reg.GetInfolist("option", nil, "weechat.look.*")
	require.True(t, ok)
	require.Equal(t, 2, l.Len())

	_, ok = reg.GetInfolist("buffer", &Buffer{FullName: "gone"}, "")
	require.False(t, ok, "objects are checked")
}
