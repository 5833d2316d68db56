package host

import (
	"bytes"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/core/printer"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// ----------------------------------------------------------------------------
// Input
// ----------------------------------------------------------------------------

// Exec runs a command line in b ("/buffer list"). Errors the dispatcher
// reports (unknown, ambiguous or failing commands) are printed in b.
func (c *Context) Exec(b *Buffer, line string) hook.ExecResult {
	if !c.ValidBuffer(b) {
		b = c.CurrentBuffer()
	}
	argv, _ := hook.SplitArgs(line)
	name := ""
	if len(argv) > 0 {
		name = strings.TrimPrefix(argv[0], "/")
	}
	res := c.hooks.ExecCommand(b, ownerOf(b.PluginName), true, line)
	switch res {
	case hook.ExecNotFound:
		c.PrintError(b, "Unknown command %q (type /help for help)", name)
	case hook.ExecAmbiguousOwners:
		c.PrintError(b, "Ambiguous command %q: it exists in many plugins and not in %q", name, b.PluginName)
	case hook.ExecAmbiguousIncomplete:
		c.PrintError(b, "Incomplete command %q and multiple commands start with this name", name)
	case hook.ExecRunning:
		c.PrintError(b, "Too many calls to command %q (looping)", name)
	case hook.ExecError:
		c.PrintError(b, "Error with command %q (help on command: /help %s)", name, name)
	}
	return res
}

// Input handles a line typed in b: commands run, "//" escapes a leading
// slash, anything else is text for the buffer. Text goes through the
// "input_text_for_buffer" modifier, which may drop it, then is announced
// with the hsignal "buffer_input".
func (c *Context) Input(b *Buffer, text string) {
	if !c.ValidBuffer(b) {
		b = c.CurrentBuffer()
	}
	if strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "//") {
		c.Exec(b, text)
		return
	}
	text = strings.TrimPrefix(text, "/")
	text = c.hooks.ExecModifier("input_text_for_buffer", b.FullName, text)
	if text == "" {
		return
	}
	if b == c.buffers.core {
		c.PrintError(b, "You can not write text in this buffer")
		return
	}
	c.hooks.SendHsignal("buffer_input", map[string]string{"buffer": b.FullName, "text": text})
}

// ----------------------------------------------------------------------------
// Commands
// ----------------------------------------------------------------------------

func (c *Context) target(t any) *Buffer {
	if b, ok := t.(*Buffer); ok && c.ValidBuffer(b) {
		return b
	}
	return c.CurrentBuffer()
}

func (c *Context) hookCommands() error {
	specs := []hook.CommandSpec{
		{
			Name:        "buffer",
			Description: "manage buffers",
			Args:        "list || close [<buffer>] || rename <name> || set <property> <value> || localvar || <number>|<name>",
			ArgsDescription: "    list: list buffers (without argument, this list is displayed)\n" +
				"   close: close the current buffer or the given one\n" +
				"  rename: rename the current buffer\n" +
				"     set: set a property of the current buffer\n" +
				"localvar: display the local variables of the current buffer\n" +
				"  number: jump to buffer by number",
			Completion: "list || close %(buffers_names)|%(buffers_numbers) || rename || set title|short_name|notify || localvar || %(buffers_names)|%(buffers_numbers)",
			Callback:   c.cmdBuffer,
		},
		{
			Name:            "window",
			Description:     "manage windows",
			Args:            "list || split || close [<number>] || <number>",
			ArgsDescription: " list: list windows\nsplit: split the current window\nclose: close a window\nnumber: focus window by number",
			Completion:      "list || split || close %(windows_numbers) || %(windows_numbers)",
			Callback:        c.cmdWindow,
		},
		{
			Name:            "set",
			Description:     "set config options",
			Args:            "[<option> [<value>]]",
			ArgsDescription: "option: name of an option (wildcard \"*\" is allowed to list options)\n value: new value; \"toggle\" flips a boolean",
			Completion:      "%(config_options)",
			Callback:        c.cmdSet,
		},
		{
			Name:        "unset",
			Description: "reset config options",
			Args:        "<option>",
			Completion:  "%(config_options)",
			Callback:    c.cmdUnset,
		},
		{
			Name:        "plugin",
			Description: "list/load/unload plugins",
			Args:        "list || load <name> || unload <name> || reload <name>",
			Completion:  "list || load %(plugins_available) || unload %(plugins_names) || reload %(plugins_names)",
			Callback:    c.cmdPlugin,
		},
		{
			Name:            "debug",
			Description:     "debug functions",
			Args:            "hdata [json] || hooks [<kind>...] || deleted || check [<type>...]",
			ArgsDescription: "  hdata: display the hdata types\n  hooks: display the hooks, optionally of some kinds\ndeleted: display the hooks, including those waiting for a sweep\n  check: check the lists and relations of hdata types (default: the materialized ones)",
			Completion:      "hdata json || hooks %(hook_kinds) %* || deleted || check %(hdata_names) %*",
			Callback:        c.cmdDebug,
		},
		{
			Name:            "hdata",
			Description:     "query objects through their hdata",
			Args:            "<type>:<list>|<handle>[(<count>)][/<field>[(<count>)]...] [<field>,...]",
			ArgsDescription: "Example: /hdata buffer:gui_buffers(*) number,full_name",
			Completion:      "%(hdata_names)",
			Callback:        c.cmdHdata,
		},
		{
			Name:        "help",
			Description: "display help about commands",
			Args:        "[<command>]",
			Completion:  "%(commands)",
			Callback:    c.cmdHelp,
		},
		{
			Name:            "print",
			Description:     "display text on a buffer",
			Args:            "[-buffer <number>|<name>] [-tags <tags>] <text>",
			ArgsDescription: "text: a literal \\t separates the prefix from the message",
			Completion:      "-buffer|-tags %(buffers_names)",
			Callback:        c.cmdPrint,
		},
		{
			Name:        "exec",
			Description: "run an external command and display its output",
			Args:        "[-timeout <duration>] <command>",
			Completion:  "-timeout",
			Callback:    c.cmdExec,
		},
		{
			Name:        "quit",
			Description: "stop the event loop",
			Callback:    c.cmdQuit,
		},
	}
	for _, s := range specs {
		if _, err := c.hooks.HookCommand("", s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) cmdBuffer(target any, argv, argvEOL []string) types.RC {
	b := c.target(target)
	if len(argv) == 1 || argv[1] == "list" {
		c.Printf(b, "Buffers list:")
		cur := c.CurrentBuffer()
		for p := c.buffers.head; p != nil; p = p.Next {
			mark := ""
			if p == cur {
				mark = " (current)"
			}
			c.Printf(b, "  %d. %s [%s]%s", p.Number, p.FullName, p.Type, mark)
		}
		return types.OK
	}
	switch argv[1] {
	case "close":
		victim := b
		if len(argv) > 2 {
			if victim = c.FindBuffer(argv[2]); victim == nil {
				c.PrintError(b, "Buffer %q not found", argv[2])
				return types.RCError
			}
		}
		if err := c.CloseBuffer(victim); err != nil {
			c.PrintError(c.CurrentBuffer(), "%v", err)
			return types.RCError
		}
	case "rename":
		if len(argv) < 3 {
			return types.RCError
		}
		if err := c.RenameBuffer(b, argv[2]); err != nil {
			c.PrintError(b, "%v", err)
			return types.RCError
		}
	case "set":
		if len(argv) < 4 {
			return types.RCError
		}
		if err := c.UpdateObject("buffer", b, map[string]string{argv[2]: argvEOL[3]}); err != nil {
			c.PrintError(b, "%v", err)
			return types.RCError
		}
	case "localvar":
		c.Printf(b, "Local variables for buffer %q:", b.FullName)
		for _, k := range slices.Sorted(maps.Keys(b.LocalVars)) {
			c.Printf(b, "  %s: %q", k, b.LocalVars[k])
		}
	default:
		dest := c.FindBuffer(argv[1])
		if dest == nil {
			c.PrintError(b, "Buffer %q not found", argv[1])
			return types.RCError
		}
		if err := c.SwitchBuffer(dest); err != nil {
			c.PrintError(b, "%v", err)
			return types.RCError
		}
	}
	return types.OK
}

func (c *Context) cmdWindow(target any, argv, _ []string) types.RC {
	b := c.target(target)
	if len(argv) == 1 || argv[1] == "list" {
		c.Printf(b, "Windows list:")
		for w := c.windows.head; w != nil; w = w.Next {
			mark := ""
			if w == c.windows.current {
				mark = " (current)"
			}
			c.Printf(b, "  %d. %s%s", w.Number, w.Buffer.FullName, mark)
		}
		return types.OK
	}
	switch argv[1] {
	case "split":
		c.SplitWindow()
		return types.OK
	case "close":
		w := c.windows.current
		if len(argv) > 2 {
			n, err := strconv.Atoi(argv[2])
			if err != nil {
				return types.RCError
			}
			w = c.WindowByNumber(n)
		}
		if err := c.CloseWindow(w); err != nil {
			c.PrintError(b, "%v", err)
			return types.RCError
		}
		return types.OK
	}
	n, err := strconv.Atoi(argv[1])
	if err != nil {
		return types.RCError
	}
	if err := c.FocusWindow(c.WindowByNumber(n)); err != nil {
		c.PrintError(b, "Window %d not found", n)
		return types.RCError
	}
	return types.OK
}

func (c *Context) cmdSet(target any, argv, argvEOL []string) types.RC {
	b := c.target(target)
	if len(argv) < 3 {
		mask := "*"
		if len(argv) == 2 {
			mask = argv[1]
		}
		opts := c.Options(mask)
		if len(opts) == 0 {
			c.PrintError(b, "Option %q not found", mask)
			return types.RCError
		}
		for _, o := range opts {
			c.printOption(b, o)
		}
		return types.OK
	}
	if err := c.SetOption(argv[1], unquote(argvEOL[2])); err != nil {
		c.PrintError(b, "%v", err)
		return types.RCError
	}
	o, _ := c.Option(argv[1])
	c.printOption(b, o)
	return types.OK
}

func (c *Context) printOption(b *Buffer, o *Option) {
	value := o.Value
	if o.Type == OptionString {
		value = strconv.Quote(value)
	}
	if o.Value != o.DefaultValue {
		value += "  (default: " + o.DefaultValue + ")"
	}
	c.Printf(b, "  %s = %s", o.Name, value)
}

// unquote strips one pair of double quotes, so /set x "" sets an empty
// string.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (c *Context) cmdUnset(target any, argv, _ []string) types.RC {
	b := c.target(target)
	if len(argv) < 2 {
		return types.RCError
	}
	if err := c.ResetOption(argv[1]); err != nil {
		c.PrintError(b, "%v", err)
		return types.RCError
	}
	o, _ := c.Option(argv[1])
	c.printOption(b, o)
	return types.OK
}

func (c *Context) cmdPlugin(target any, argv, _ []string) types.RC {
	b := c.target(target)
	if len(argv) == 1 || argv[1] == "list" {
		c.Printf(b, "Plugins loaded:")
		for p := c.plugins.head; p != nil; p = p.Next {
			c.Printf(b, "  %s %s: %s", p.Name, p.Version, p.Description)
		}
		return types.OK
	}
	if len(argv) < 3 {
		return types.RCError
	}
	var err error
	switch argv[1] {
	case "load":
		err = c.LoadPlugin(argv[2])
	case "unload":
		err = c.UnloadPlugin(argv[2])
	case "reload":
		if err = c.UnloadPlugin(argv[2]); err == nil {
			err = c.LoadPlugin(argv[2])
		}
	default:
		return types.RCError
	}
	if err != nil {
		c.PrintError(b, "%v", err)
		return types.RCError
	}
	return types.OK
}

func (c *Context) cmdDebug(target any, argv, _ []string) types.RC {
	b := c.target(target)
	if len(argv) < 2 {
		return types.RCError
	}
	var out bytes.Buffer
	opts := printer.DefaultOptions()
	var err error
	switch argv[1] {
	case "hdata":
		if len(argv) > 2 && argv[2] == "json" {
			opts.Format = printer.FormatJSON
		}
		err = printer.New(&out, opts).Hdata(c.types)
	case "hooks", "deleted":
		opts.IncludeDeleted = argv[1] == "deleted"
		for _, name := range argv[2:] {
			k, ok := hook.ParseKind(name)
			if !ok {
				c.PrintError(b, "Unknown hook kind %q", name)
				return types.RCError
			}
			opts.Kinds = append(opts.Kinds, k)
		}
		err = printer.New(&out, opts).Hooks(c.hooks)
	case "check":
		report := c.walker.Verify(argv[2:]...)
		out.WriteString(report.FormatTextCompact())
		if report.HasErrors() {
			for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
				c.PrintError(b, "%s", line)
			}
			return types.RCError
		}
	default:
		return types.RCError
	}
	if err != nil {
		c.PrintError(b, "%v", err)
		return types.RCError
	}
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		c.Print(b, "", line, "no_log")
	}
	return types.OK
}

func (c *Context) cmdHdata(target any, argv, _ []string) types.RC {
	b := c.target(target)
	if len(argv) < 2 {
		return types.RCError
	}
	var keys []string
	if len(argv) > 2 {
		keys = strmatch.SplitMasks(argv[2])
	}
	items, err := c.Query(argv[1], keys)
	if err != nil {
		c.PrintError(b, "%v", err)
		return types.RCError
	}
	for _, it := range items {
		path := make([]string, len(it.Path))
		for i, h := range it.Path {
			path[i] = h.String()
		}
		c.Printf(b, "%s [%s]", it.Type, strings.Join(path, "/"))
		for _, f := range it.Fields {
			c.Printf(b, "  %s (%s): %s", f.Name, f.Type, c.formatValue(f.Value))
		}
	}
	c.Printf(b, "%d items", len(items))
	return types.OK
}

// formatValue renders a value for display. Pointers are shown as handles
// so they can be fed back into /hdata.
func (c *Context) formatValue(v hdata.Value) string {
	switch v.Type() {
	case hdata.TypeString, hdata.TypeSharedString:
		return strconv.Quote(v.Str())
	case hdata.TypeTime:
		if v.Time().IsZero() {
			return "0"
		}
		return v.Time().Format(time.RFC3339)
	case hdata.TypePointer:
		if v.IsNil() {
			return hdata.NullHandle.String()
		}
		return c.handles.Ref(v.Pointer()).String()
	}
	return v.String()
}

func (c *Context) cmdHelp(target any, argv, _ []string) types.RC {
	b := c.target(target)
	cmds := c.hooks.Commands()
	if len(argv) < 2 {
		byOwner := make(map[string][]string)
		for _, ci := range cmds {
			owner := ci.Owner
			if owner == "" {
				owner = "core"
			}
			byOwner[owner] = append(byOwner[owner], ci.Name)
		}
		for _, owner := range slices.Sorted(maps.Keys(byOwner)) {
			c.Printf(b, "%s commands:", owner)
			c.Printf(b, "  %s", strings.Join(byOwner[owner], " "))
		}
		return types.OK
	}
	name := strings.TrimPrefix(argv[1], "/")
	for _, ci := range cmds {
		if !strmatch.EqualFold(ci.Name, name) {
			continue
		}
		owner := ci.Owner
		if owner == "" {
			owner = "core"
		}
		c.Printf(b, "[%s]  /%s  %s", owner, ci.Name, ci.Description)
		for _, alt := range strings.Split(ci.Args, "||") {
			if alt = strings.TrimSpace(alt); alt != "" {
				c.Printf(b, "  /%s %s", ci.Name, alt)
			}
		}
		for _, line := range strings.Split(ci.ArgsDescription, "\n") {
			if line != "" {
				c.Printf(b, "%s", line)
			}
		}
		return types.OK
	}
	c.PrintError(b, "No help available, %q is not a command", name)
	return types.RCError
}

func (c *Context) cmdPrint(target any, argv, argvEOL []string) types.RC {
	b := c.target(target)
	var tags []string
	i := 1
	for ; i+1 < len(argv); i += 2 {
		switch argv[i] {
		case "-buffer":
			if b = c.FindBuffer(argv[i+1]); b == nil {
				c.PrintError(c.target(target), "Buffer %q not found", argv[i+1])
				return types.RCError
			}
			continue
		case "-tags":
			tags = strmatch.SplitMasks(argv[i+1])
			continue
		}
		break
	}
	if i >= len(argv) {
		return types.RCError
	}
	text := strings.ReplaceAll(argvEOL[i], `\t`, "\t")
	prefix, message, ok := strings.Cut(text, "\t")
	if !ok {
		prefix, message = "", text
	}
	c.Print(b, prefix, message, tags...)
	return types.OK
}

func (c *Context) cmdExec(target any, argv, argvEOL []string) types.RC {
	b := c.target(target)
	var timeout time.Duration
	i := 1
	if len(argv) > 2 && argv[1] == "-timeout" {
		d, err := time.ParseDuration(argv[2])
		if err != nil {
			c.PrintError(b, "Invalid timeout %q", argv[2])
			return types.RCError
		}
		timeout, i = d, 3
	}
	if i >= len(argv) {
		return types.RCError
	}
	command := argvEOL[i]
	var pending [2]string
	flush := func(stream int, chunk string, final bool, tag string) {
		pending[stream] += chunk
		for {
			line, rest, ok := strings.Cut(pending[stream], "\n")
			if !ok {
				break
			}
			c.PrintRaw(b, "", []byte(line), tag)
			pending[stream] = rest
		}
		if final && pending[stream] != "" {
			c.PrintRaw(b, "", []byte(pending[stream]), tag)
			pending[stream] = ""
		}
	}
	_, err := c.hooks.HookProcess("", hook.ProcessSpec{
		Command: command,
		Timeout: timeout,
		Callback: func(_ string, rc int, out, errOut string) types.RC {
			final := rc != hook.ProcessRunning
			flush(0, out, final, "exec_stdout")
			flush(1, errOut, final, "exec_stderr")
			switch {
			case rc == hook.ProcessError:
				c.PrintError(b, "exec: %q failed", command)
			case final:
				c.Printf(b, "exec: %q ended (rc %d)", command, rc)
			}
			return types.OK
		},
	})
	if err != nil {
		c.PrintError(b, "%v", err)
		return types.RCError
	}
	return types.OK
}

func (c *Context) cmdQuit(any, []string, []string) types.RC {
	c.hooks.SendSignal("quit", hook.SignalString, "")
	c.loop.Stop()
	return types.OK
}
