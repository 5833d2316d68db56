package hook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/pkg/types"
)

func appendModifier(t *testing.T, r *Registry, priority int, suffix string) {
	t.Helper()
	_, err := r.HookModifier("", ModifierSpec{
		Modifier: "input_text_display",
		Priority: priority,
		Callback: func(_, _, s string) (string, bool) { return s + suffix, true },
	})
	require.NoError(t, err)
}

func TestModifierChain(t *testing.T) {
	r, _ := newTestRegistry(t)
	appendModifier(t, r, 500, "c")
	appendModifier(t, r, 2000, "a")
	appendModifier(t, r, 1000, "b")

	require.Equal(t, "xabc", r.ExecModifier("input_text_display", "", "x"))
	require.Equal(t, "xabc", r.ExecModifier("INPUT_TEXT_DISPLAY", "", "x"))
	require.Equal(t, "x", r.ExecModifier("other", "", "x"))
	require.Equal(t, "x", r.ExecModifier("", "", "x"))
}

func TestModifierDropAndPass(t *testing.T) {
	r, _ := newTestRegistry(t)
	var data []string
	_, err := r.HookModifier("", ModifierSpec{
		Modifier: "3000|irc_in_privmsg",
		Callback: func(_, d, s string) (string, bool) {
			data = append(data, d)
			return "", false
		},
	})
	require.NoError(t, err)
	_, err = r.HookModifier("", ModifierSpec{
		Modifier: "irc_in_privmsg",
		Callback: func(_, _, s string) (string, bool) {
			if strings.Contains(s, "spam") {
				return "", true
			}
			return strings.ToUpper(s), true
		},
	})
	require.NoError(t, err)
	_, err = r.HookModifier("", ModifierSpec{
		Modifier: "irc_in_privmsg",
		Priority: 1,
		Callback: func(_, _, s string) (string, bool) { return s + "?", true },
	})
	require.NoError(t, err)

	require.Equal(t, "HELLO?", r.ExecModifier("irc_in_privmsg", "libera", "hello"))
	require.Equal(t, "", r.ExecModifier("irc_in_privmsg", "libera", "buy spam"))
	require.Equal(t, []string{"libera", "libera"}, data)
}

func TestInfoFirstMatchAnswers(t *testing.T) {
	r, _ := newTestRegistry(t)
	calls := 0
	_, err := r.HookInfo("a", InfoSpec{
		Name: "version",
		Info: func(name, args string) (string, bool) { calls++; return "", false },
	})
	require.NoError(t, err)
	_, err = r.HookInfo("b", InfoSpec{
		Name: "version",
		Info: func(name, args string) (string, bool) { calls++; return "4.0", true },
	})
	require.NoError(t, err)

	v, ok := r.GetInfo("VERSION", "")
	require.False(t, ok, "the first hook answers even without a value")
	require.Empty(t, v)
	require.Equal(t, 1, calls)

	_, ok = r.GetInfo("missing", "")
	require.False(t, ok)
	_, ok = r.GetInfo("", "")
	require.False(t, ok)
	require.Len(t, r.Infos(KindInfo), 2)
}

func TestInfoHashtableAndInfolist(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.HookInfoHashtable("", InfoSpec{
		Name: "echo",
		InfoHashtable: func(_ string, in map[string]string) map[string]string {
			return map[string]string{"got": in["x"]}
		},
	})
	require.NoError(t, err)
	_, err = r.HookInfolist("", InfoSpec{
		Name: "things",
		Infolist: func(_ string, _ any, args string) *infolist.Infolist {
			l := infolist.New("things", "")
			l.NewItem().AddString("arg", args)
			return l
		},
	})
	require.NoError(t, err)
	_, err = r.HookInfo("", InfoSpec{Name: "no_callback"})
	require.ErrorIs(t, err, types.ErrInvalid)

	out, ok := r.GetInfoHashtable("echo", map[string]string{"x": "1"})
	require.True(t, ok)
	require.Equal(t, map[string]string{"got": "1"}, out)

	l, ok := r.GetInfolist("things", nil, "abc")
	require.True(t, ok)
	require.True(t, l.Next())
	require.Equal(t, "abc", l.String("arg"))
}

func TestFocusMergesBothPoints(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.HookFocus("", FocusSpec{
		Area: "chat",
		Callback: func(info map[string]string) map[string]string {
			return map[string]string{"nick": "alice"}
		},
	})
	require.NoError(t, err)
	_, err = r.HookFocus("", FocusSpec{
		Area: "buffer_nicklist",
		Callback: func(info map[string]string) map[string]string {
			return map[string]string{"nick": "bob", "host": "b@example"}
		},
	})
	require.NoError(t, err)

	p1 := map[string]string{"_chat": "1", "_x": "3"}
	p2 := map[string]string{"_bar_item_name": "buffer_nicklist", "_x": "40"}
	got := r.FocusData(p1, p2)
	require.Equal(t, map[string]string{
		"_chat": "1", "_x": "3", "nick": "alice",
		"_bar_item_name2": "buffer_nicklist", "_x2": "40", "nick2": "bob", "host2": "b@example",
	}, got)
	require.Equal(t, map[string]string{"_chat": "1", "_x": "3"}, p1)

	require.Equal(t, map[string]string{"_x": "1"}, r.FocusData(map[string]string{"_x": "1"}, nil))
	require.Nil(t, r.FocusData(nil, p2))
}

func TestLineFilters(t *testing.T) {
	r, _ := newTestRegistry(t)
	var seen []string
	_, err := r.HookLine("", LineSpec{
		BufferName: "irc.*,!irc.server.*",
		Tags:       "irc_join,irc_privmsg+nick_bob",
		Callback: func(line map[string]string) map[string]string {
			seen = append(seen, line[LineMessage])
			return nil
		},
	})
	require.NoError(t, err)

	lines := []map[string]string{
		{LineBufferType: "formatted", LineBufferName: "irc.libera.#go", LineTags: "irc_join,nick_x", LineMessage: "join"},
		{LineBufferType: "formatted", LineBufferName: "irc.libera.#go", LineTags: "irc_privmsg,nick_bob", LineMessage: "bob"},
		{LineBufferType: "formatted", LineBufferName: "irc.libera.#go", LineTags: "irc_privmsg,nick_eve", LineMessage: "eve"},
		{LineBufferType: "formatted", LineBufferName: "irc.server.libera", LineTags: "irc_join", LineMessage: "server"},
		{LineBufferType: "free", LineBufferName: "irc.libera.#go", LineTags: "irc_join", LineMessage: "free"},
	}
	for _, l := range lines {
		require.Equal(t, l, r.ExecLine(l))
	}
	require.Equal(t, []string{"join", "bob"}, seen)
}

func TestLineUpdateAndDrop(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.HookLine("", LineSpec{
		BufferType: "*",
		Priority:   2000,
		Callback: func(line map[string]string) map[string]string {
			return map[string]string{LinePrefix: "-->", LineMessage: strings.ToUpper(line[LineMessage])}
		},
	})
	require.NoError(t, err)
	_, err = r.HookLine("", LineSpec{
		BufferType: "*",
		Callback: func(line map[string]string) map[string]string {
			if strings.Contains(line[LineMessage], "SECRET") {
				return map[string]string{LineBufferName: ""}
			}
			return nil
		},
	})
	require.NoError(t, err)
	_, err = r.HookLine("", LineSpec{BufferType: "grid", Callback: func(map[string]string) map[string]string { return nil }})
	require.ErrorIs(t, err, types.ErrInvalid)

	in := map[string]string{LineBufferType: "free", LineBufferName: "core.weechat", LineMessage: "hi"}
	out := r.ExecLine(in)
	require.Equal(t, "-->", out[LinePrefix])
	require.Equal(t, "HI", out[LineMessage])
	require.Equal(t, "hi", in[LineMessage])

	in[LineMessage] = "a secret"
	require.Nil(t, r.ExecLine(in))
}

func TestCompletionAdd(t *testing.T) {
	c := NewCompletion(nil, "/buffer", "b")
	c.Add("charlie", WhereSort)
	c.Add("Bravo", WhereSort)
	c.Add("alpha", WhereSort)
	c.Add("bravo2", WhereEnd)
	c.Add("first", WhereBeginning)
	c.Add("alpha", WhereEnd)
	c.Add("", WhereEnd)
	require.Equal(t, []string{"first", "alpha", "Bravo", "charlie", "bravo2"}, c.Words())
	require.Equal(t, []string{"Bravo", "bravo2"}, c.Matches())
}

func TestCompleteTemplate(t *testing.T) {
	r, _ := newTestRegistry(t)
	var items []string
	_, err := r.HookCompletion("", CompletionSpec{
		Item: "buffers_names",
		Callback: func(item string, c *Completion) types.RC {
			items = append(items, item)
			c.Add("core.weechat", WhereSort)
			c.Add("irc.libera", WhereSort)
			return types.OK
		},
	})
	require.NoError(t, err)
	_, err = r.HookCompletion("", CompletionSpec{Item: "bad item", Callback: func(string, *Completion) types.RC { return types.OK }})
	require.ErrorIs(t, err, types.ErrInvalid)

	c := NewCompletion(nil, "/buffer", "")
	r.CompleteTemplate("close|list|%(buffers_names) %-", 0, c)
	require.Equal(t, []string{"close", "core.weechat", "irc.libera", "list"}, c.Words())
	require.Equal(t, []string{"buffers_names"}, items)

	c = NewCompletion(nil, "/buffer close", "")
	r.CompleteTemplate("close|list|%(buffers_names) %-", 1, c)
	require.Empty(t, c.Words())

	c = NewCompletion(nil, "/mute a b c", "")
	r.CompleteTemplate("%(buffers_names:all) %*", 4, c)
	require.Equal(t, []string{"core.weechat", "irc.libera"}, c.Words())
	require.Equal(t, "buffers_names:all", items[1])

	c = NewCompletion(nil, "", "")
	r.CompleteTemplate("", 0, c)
	require.Empty(t, c.Words())
	require.Equal(t, 0, r.ExecCompletion("nicks", c))
}

func TestConfigMasks(t *testing.T) {
	r, _ := newTestRegistry(t)
	var got []string
	record := func(tag string) ConfigFunc {
		return func(option, value string) types.RC {
			got = append(got, tag+":"+option+"="+value)
			return types.OK
		}
	}
	_, err := r.HookConfig("", ConfigSpec{Option: "weechat.look.*,!weechat.look.color", Callback: record("look")})
	require.NoError(t, err)
	_, err = r.HookConfig("", ConfigSpec{Priority: 10, Callback: record("all")})
	require.NoError(t, err)

	require.Equal(t, 2, r.ExecConfig("weechat.look.prefix", "x"))
	require.Equal(t, 1, r.ExecConfig("weechat.look.color", "red"))
	require.Equal(t, 1, r.ExecConfig("irc.server.port", "6697"))
	require.Equal(t, []string{
		"look:weechat.look.prefix=x",
		"all:weechat.look.prefix=x",
		"all:weechat.look.color=red",
		"all:irc.server.port=6697",
	}, got)
}
