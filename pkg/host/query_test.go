package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/types"
)

func TestQueryBuffers(t *testing.T) {
	c, _ := newTestContext(t)
	b, err := c.NewBuffer("test", "q", "")
	require.NoError(t, err)
	c.Printf(b, "first")
	c.Printf(b, "second")

	items, err := c.Query("buffer:gui_buffers(*)", []string{"number", "full_name"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "buffer", items[0].Type)
	require.Len(t, items[1].Fields, 2)
	for _, f := range items[1].Fields {
		switch f.Name {
		case "number":
			require.Equal(t, 2, f.Value.Int())
		case "full_name":
			require.Equal(t, "test.q", f.Value.Str())
		}
	}

	items, err = c.Query("buffer:last_gui_buffer/lines(*)", []string{"message"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "line", items[0].Type)
	require.Len(t, items[0].Path, 2)
	require.Equal(t, "first", items[0].Fields[0].Value.Str())

	items, err = c.Query("window:gui_current_window/buffer", []string{"full_name"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, CoreBufferName, items[0].Fields[0].Value.Str())

	_, err = c.Query("nosuch:list", nil)
	require.ErrorIs(t, err, types.ErrNotFound)
	_, err = c.Query("buffer:nolist", nil)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestLookupStaleHandle(t *testing.T) {
	c, _ := newTestContext(t)
	b, err := c.NewBuffer("test", "stale", "")
	require.NoError(t, err)
	h := c.Handle(b).String()

	typ, obj, err := c.Lookup("buffer", h)
	require.NoError(t, err)
	require.Equal(t, "buffer", typ.Name())
	require.Same(t, b, obj)

	v, err := c.GetPath("buffer", h, "full_name")
	require.NoError(t, err)
	require.Equal(t, "test.stale", v.Str())

	n, err := c.UpdateHandle("buffer", h, map[string]string{"short_name": "st"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "st", b.ShortName)

	require.NoError(t, c.CloseBuffer(b))
	_, _, err = c.Lookup("buffer", h)
	require.ErrorIs(t, err, types.ErrStalePointer)
	_, err = c.Query("buffer:"+h, nil)
	require.Error(t, err)

	_, _, err = c.Lookup("buffer", "junk")
	require.Error(t, err)
	_, _, err = c.Lookup("nosuch", h)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestLookupChecksType(t *testing.T) {
	c, _ := newTestContext(t)
	h := c.Handle(c.CurrentWindow()).String()

	_, _, err := c.Lookup("buffer", h)
	require.Error(t, err, "a window handle is not a buffer")
	_, obj, err := c.Lookup("window", h)
	require.NoError(t, err)
	require.Same(t, c.CurrentWindow(), obj)
}

func TestUpdateBufferThroughHdata(t *testing.T) {
	c, _ := newTestContext(t)
	b, _ := c.NewBuffer("test", "upd", "")
	signals := recordSignals(t, c, "buffer_*")

	err := c.UpdateObject("buffer", b, map[string]string{
		"name":                          "renamed",
		"title":                         "A title",
		"notify":                        "1",
		"localvar_set_charset_modifier": "x.y",
	})
	require.NoError(t, err)
	require.Equal(t, "test.renamed", b.FullName)
	require.Equal(t, "A title", b.Title)
	require.Equal(t, 1, b.Notify)
	require.Equal(t, "x.y", b.LocalVars["charset_modifier"])
	require.ElementsMatch(t, []string{
		"buffer_localvar_changed", "buffer_renamed", "buffer_notify_changed", "buffer_title_changed",
	}, *signals)

	require.NoError(t, c.UpdateObject("buffer", b, map[string]string{"localvar_del_charset_modifier": ""}))
	_, ok := b.LocalVars["charset_modifier"]
	require.False(t, ok)
}

func TestHdataCommand(t *testing.T) {
	c, out := newTestContext(t)
	c.Exec(nil, "/hdata buffer:gui_buffers(*) number,full_name")
	require.Contains(t, out.String(), `full_name (string): "core.weechat"`)
	require.Contains(t, out.String(), "number (integer): 1")
	require.Contains(t, out.String(), "1 items")

	_, err := c.NewBuffer("test", "empty", "")
	require.NoError(t, err)
	out.Reset()
	c.Exec(nil, "/hdata buffer:last_gui_buffer lines")
	require.Contains(t, out.String(), "lines (pointer): "+hdata.NullHandle.String())
}

func TestHdataOfHooks(t *testing.T) {
	c, _ := newTestContext(t)
	items, err := c.Query("hook:weechat_hooks_command(*)", []string{"description", "plugin"})
	require.NoError(t, err)
	var names []string
	for _, it := range items {
		for _, f := range it.Fields {
			if f.Name == "description" {
				names = append(names, f.Value.Str())
			}
		}
	}
	require.Contains(t, names, "buffer")
	require.Contains(t, names, "quit")
}

func TestSweptHookHandleReleased(t *testing.T) {
	c, _ := newTestContext(t)
	hk, err := c.Hooks().HookSignal("test", hook.SignalSpec{
		Signal:   "test_gone",
		Callback: func(string, string, any) types.RC { return types.OK },
	})
	require.NoError(t, err)

	items, err := c.Query("hook:weechat_hooks_signal(*)", []string{"description"})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	hd := c.Handle(hk)
	_, _, err = c.Lookup("hook", hd.String())
	require.NoError(t, err)
	before := c.Handles().Len()

	require.Equal(t, 1, c.Hooks().UnregisterAll("test"))
	_, err = c.Hooks().Sweep()
	require.NoError(t, err)

	require.Equal(t, before-1, c.Handles().Len())
	_, ok := c.Handles().Resolve(hd)
	require.False(t, ok)
	_, _, err = c.Lookup("hook", hd.String())
	require.Error(t, err)
}
