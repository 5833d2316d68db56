package host

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// ----------------------------------------------------------------------------
// Infos and infolists
// ----------------------------------------------------------------------------

func (c *Context) hookInfos() error {
	infos := []hook.InfoSpec{
		{
			Name:        "version",
			Description: "hookkit version",
			Info:        func(string, string) (string, bool) { return Version, true },
		},
		{
			Name:            "hook_count",
			Description:     "number of hooks",
			ArgsDescription: "hook kind (optional)",
			Info:            c.infoHookCount,
		},
		{
			Name:        "uptime",
			Description: "seconds since the context was initialized",
			Info: func(string, string) (string, bool) {
				return strconv.Itoa(int(c.opts.Now().Sub(c.started) / time.Second)), true
			},
		},
		{
			Name:              "hook_counts",
			Description:       "number of hooks per kind",
			OutputDescription: "kind: count",
			InfoHashtable: func(string, map[string]string) map[string]string {
				out := make(map[string]string)
				for _, k := range hook.Kinds() {
					out[k.String()] = strconv.Itoa(c.hooks.Count(k))
				}
				return out
			},
		},
		{
			Name:               "hook",
			Description:        "list of hooks",
			PointerDescription: "hook (optional)",
			ArgsDescription:    "kind,mask (optional)",
			Infolist:           c.infolistHook,
		},
		{
			Name:               "buffer",
			Description:        "list of buffers",
			PointerDescription: "buffer (optional)",
			ArgsDescription:    "buffer name mask (optional)",
			Infolist:           c.infolistBuffer,
		},
		{
			Name:            "option",
			Description:     "list of options",
			ArgsDescription: "option name masks (optional)",
			Infolist:        c.infolistOption,
		},
		{
			Name:        "plugin",
			Description: "list of loaded plugins",
			Infolist:    c.infolistPlugin,
		},
	}
	for _, s := range infos {
		var err error
		switch {
		case s.Info != nil:
			_, err = c.hooks.HookInfo("", s)
		case s.InfoHashtable != nil:
			_, err = c.hooks.HookInfoHashtable("", s)
		default:
			_, err = c.hooks.HookInfolist("", s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) infoHookCount(_, args string) (string, bool) {
	if args == "" {
		return strconv.Itoa(c.hooks.CountTotal()), true
	}
	k, ok := hook.ParseKind(args)
	if !ok {
		return "", false
	}
	return strconv.Itoa(c.hooks.Count(k)), true
}

func (c *Context) infolistHook(name string, obj any, args string) *infolist.Infolist {
	l := infolist.New(name, "")
	h, _ := obj.(*hook.Hook)
	if !c.hooks.AddToInfolist(l, h, args) {
		return nil
	}
	return l
}

func (c *Context) infolistBuffer(name string, obj any, args string) *infolist.Infolist {
	l := infolist.New(name, "")
	add := func(b *Buffer) {
		l.NewItem().
			AddPointer("pointer", c.handles.Ref(b).String()).
			AddInteger("number", b.Number).
			AddString("plugin_name", b.PluginName).
			AddString("name", b.Name).
			AddString("full_name", b.FullName).
			AddString("short_name", b.ShortName).
			AddString("type", b.Type).
			AddString("title", b.Title).
			AddInteger("notify", b.Notify).
			AddInteger("num_lines", b.NumLines).
			AddInteger("current_buffer", boolInt(b == c.CurrentBuffer()))
	}
	if obj != nil {
		b, ok := obj.(*Buffer)
		if !ok || !c.ValidBuffer(b) {
			return nil
		}
		add(b)
		return l
	}
	for b := c.buffers.head; b != nil; b = b.Next {
		if args == "" || strmatch.Match(b.FullName, args, false) {
			add(b)
		}
	}
	return l
}

func (c *Context) infolistOption(name string, _ any, args string) *infolist.Infolist {
	l := infolist.New(name, "")
	for _, o := range c.Options(args) {
		l.NewItem().
			AddString("full_name", o.Name).
			AddString("type", o.Type).
			AddString("value", o.Value).
			AddString("default_value", o.DefaultValue).
			AddString("description", o.Description).
			AddInteger("min", o.Min).
			AddInteger("max", o.Max).
			AddString("plugin_name", o.PluginName)
	}
	return l
}

func (c *Context) infolistPlugin(name string, _ any, _ string) *infolist.Infolist {
	l := infolist.New(name, "")
	for p := c.plugins.head; p != nil; p = p.Next {
		l.NewItem().
			AddString("name", p.Name).
			AddString("description", p.Description).
			AddString("version", p.Version).
			AddInteger("initialized", boolInt(p.Initialized)).
			AddTime("loaded", p.LoadedAt)
	}
	return l
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ----------------------------------------------------------------------------
// Completion
// ----------------------------------------------------------------------------

func (c *Context) hookCompletions() error {
	items := []hook.CompletionSpec{
		{Item: "buffers_names", Description: "names of buffers", Callback: c.completeBuffersNames},
		{Item: "buffers_numbers", Description: "numbers of buffers", Callback: c.completeBuffersNumbers},
		{Item: "windows_numbers", Description: "numbers of windows", Callback: c.completeWindowsNumbers},
		{Item: "commands", Description: "commands", Callback: c.completeCommands},
		{Item: "config_options", Description: "config options", Callback: c.completeOptions},
		{Item: "plugins_names", Description: "names of loaded plugins", Callback: c.completePluginsNames},
		{Item: "plugins_available", Description: "names of plugins that can be loaded", Callback: c.completePluginsAvailable},
		{Item: "hook_kinds", Description: "hook kinds", Callback: completeHookKinds},
		{Item: "hdata_names", Description: "hdata type names", Callback: c.completeHdataNames},
	}
	for _, s := range items {
		if _, err := c.hooks.HookCompletion("", s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) completeBuffersNames(_ string, comp *hook.Completion) types.RC {
	for b := c.buffers.head; b != nil; b = b.Next {
		comp.Add(b.FullName, hook.WhereSort)
	}
	return types.OK
}

func (c *Context) completeBuffersNumbers(_ string, comp *hook.Completion) types.RC {
	for b := c.buffers.head; b != nil; b = b.Next {
		comp.Add(strconv.Itoa(b.Number), hook.WhereEnd)
	}
	return types.OK
}

func (c *Context) completeWindowsNumbers(_ string, comp *hook.Completion) types.RC {
	for w := c.windows.head; w != nil; w = w.Next {
		comp.Add(strconv.Itoa(w.Number), hook.WhereEnd)
	}
	return types.OK
}

func (c *Context) completeCommands(_ string, comp *hook.Completion) types.RC {
	for _, ci := range c.hooks.Commands() {
		comp.Add(ci.Name, hook.WhereSort)
	}
	return types.OK
}

func (c *Context) completeOptions(_ string, comp *hook.Completion) types.RC {
	for o := c.options.head; o != nil; o = o.Next {
		comp.Add(o.Name, hook.WhereEnd)
	}
	return types.OK
}

func (c *Context) completePluginsNames(_ string, comp *hook.Completion) types.RC {
	for p := c.plugins.head; p != nil; p = p.Next {
		comp.Add(p.Name, hook.WhereSort)
	}
	return types.OK
}

func (c *Context) completePluginsAvailable(_ string, comp *hook.Completion) types.RC {
	for _, name := range c.Available() {
		if c.findPlugin(name) == nil {
			comp.Add(name, hook.WhereSort)
		}
	}
	return types.OK
}

func completeHookKinds(_ string, comp *hook.Completion) types.RC {
	for _, k := range hook.Kinds() {
		comp.Add(k.String(), hook.WhereEnd)
	}
	return types.OK
}

func (c *Context) completeHdataNames(_ string, comp *hook.Completion) types.RC {
	for name := range c.hooks.HdataDescriptions() {
		comp.Add(name, hook.WhereSort)
	}
	for _, name := range c.types.AllNames() {
		comp.Add(name, hook.WhereSort)
	}
	return types.OK
}

// Complete returns the candidates for the last word of line typed in b. A
// first word starting with "/" completes command names; later words use
// the command's completion templates.
func (c *Context) Complete(b *Buffer, line string) []string {
	if !c.ValidBuffer(b) {
		b = c.CurrentBuffer()
	}
	argv, _ := hook.SplitArgs(line)
	base := ""
	if len(argv) > 0 && !strings.HasSuffix(line, " ") {
		base = argv[len(argv)-1]
		argv = argv[:len(argv)-1]
	}

	if len(argv) == 0 {
		name, ok := strings.CutPrefix(base, "/")
		if !ok {
			return nil
		}
		comp := hook.NewCompletion(b, "", name)
		c.hooks.ExecCompletion("commands", comp)
		out := comp.Matches()
		for i := range out {
			out[i] = "/" + out[i]
		}
		return out
	}

	name, ok := strings.CutPrefix(argv[0], "/")
	if !ok {
		return nil
	}
	comp := hook.NewCompletion(b, strings.Join(argv, " "), base)
	arg := len(argv) - 1
	for _, ci := range c.hooks.Commands() {
		if !strmatch.EqualFold(ci.Name, name) {
			continue
		}
		for _, tmpl := range ci.Templates {
			if templateFits(tmpl, argv[1:]) {
				c.hooks.CompleteTemplate(tmpl, arg, comp)
			}
		}
		break
	}
	return comp.Matches()
}

// templateFits reports whether the words already typed agree with the
// literal words of a template. Item and wildcard positions accept anything.
func templateFits(tmpl string, typed []string) bool {
	parts := strings.Fields(tmpl)
	for i, word := range typed {
		if i >= len(parts) {
			return len(parts) > 0 && parts[len(parts)-1] == "%*"
		}
		alts := strings.Split(parts[i], "|")
		if slices.ContainsFunc(alts, func(a string) bool { return strings.HasPrefix(a, "%") }) {
			continue
		}
		if !slices.Contains(alts, word) {
			return false
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// Timers
// ----------------------------------------------------------------------------

// hookTimers adds the minute timer sending "day_changed" when the date
// changes.
func (c *Context) hookTimers() error {
	last := c.opts.Now().Format(time.DateOnly)
	h, err := c.hooks.HookTimer("", hook.TimerSpec{
		Interval:    time.Minute,
		AlignSecond: 60,
		MaxCalls:    hook.Forever,
		Callback: func(int) types.RC {
			today := c.opts.Now().Format(time.DateOnly)
			if today != last {
				last = today
				c.hooks.SendSignal("day_changed", hook.SignalString, today)
			}
			return types.OK
		},
	})
	c.dayTimer = h
	return err
}
