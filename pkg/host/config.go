package host

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Option types.
const (
	OptionBoolean = "boolean"
	OptionInteger = "integer"
	OptionString  = "string"
)

// Option is a named configuration value. Values are kept as text in their
// canonical form ("on"/"off" for booleans).
type Option struct {
	Name         string  `hdata:"name"`
	Type         string  `hdata:"type"`
	Description  string  `hdata:"description"`
	Value        string  `hdata:"value"`
	DefaultValue string  `hdata:"default_value"`
	Min          int     `hdata:"min"`
	Max          int     `hdata:"max"`
	PluginName   string  `hdata:"plugin_name"`
	Prev         *Option `hdata:"prev_option,related=config_option,prev"`
	Next         *Option `hdata:"next_option,related=config_option,next"`
}

// OptionSpec describes an option to create. For strings, Max limits the
// length in characters when positive.
type OptionSpec struct {
	Name        string
	Type        string
	Description string
	Default     string
	Min, Max    int
}

type optionList struct {
	head, last *Option
	byName     map[string]*Option
}

func (c *Context) initConfig() error {
	c.options.byName = make(map[string]*Option)
	incomplete := "off"
	if c.opts.IncompleteCommands {
		incomplete = "on"
	}
	core := []OptionSpec{
		{Name: "weechat.core.incomplete_commands", Type: OptionBoolean, Default: incomplete,
			Description: "allow incomplete commands: /he runs /help"},
		{Name: "weechat.history.max_buffer_lines_number", Type: OptionInteger, Default: "4096", Max: 1 << 24,
			Description: "maximum number of lines kept per buffer (0 = unlimited)"},
		{Name: "weechat.look.buffer_time_format", Type: OptionString, Default: "15:04:05",
			Description: "time layout of printed lines (Go layout)"},
		{Name: "weechat.look.prefix_error", Type: OptionString, Default: "=!=", Max: 32,
			Description: "prefix of error messages"},
		{Name: "weechat.plugin.autoload", Type: OptionString, Default: c.opts.Autoload,
			Description: "comma-separated masks of plugins loaded on startup, \"!\" excludes"},
	}
	for _, spec := range core {
		if _, err := c.NewOption("core", spec); err != nil {
			return err
		}
	}
	_, err := c.hooks.HookConfig("", hook.ConfigSpec{
		Option: "weechat.core.incomplete_commands",
		Callback: func(_, value string) types.RC {
			c.hooks.SetIncompleteCommands(value == "on")
			return types.OK
		},
	})
	return err
}

// NewOption creates an option owned by plugin ("core" for the host).
func (c *Context) NewOption(plugin string, spec OptionSpec) (*Option, error) {
	if spec.Name == "" || strings.ContainsAny(spec.Name, " *") {
		return nil, types.Errorf(types.ErrInvalid, "option: invalid name %q", spec.Name)
	}
	if _, ok := c.options.byName[spec.Name]; ok {
		return nil, types.Errorf(types.ErrInvalid, "option %s already exists", spec.Name)
	}
	o := &Option{
		Name:        spec.Name,
		Type:        spec.Type,
		Description: spec.Description,
		Min:         spec.Min,
		Max:         spec.Max,
		PluginName:  plugin,
	}
	switch o.Type {
	case OptionBoolean, OptionInteger, OptionString:
	default:
		return nil, types.Errorf(types.ErrInvalid, "option %s: unknown type %q", o.Name, o.Type)
	}
	def, err := o.parse(spec.Default)
	if err != nil {
		return nil, err
	}
	o.Value, o.DefaultValue = def, def
	c.linkOption(o)
	return o, nil
}

// linkOption inserts o keeping the list sorted by name.
func (c *Context) linkOption(o *Option) {
	var after *Option
	for p := c.options.last; p != nil; p = p.Prev {
		if p.Name < o.Name {
			after = p
			break
		}
	}
	o.Prev = after
	if after != nil {
		o.Next = after.Next
		after.Next = o
	} else {
		o.Next = c.options.head
		c.options.head = o
	}
	if o.Next != nil {
		o.Next.Prev = o
	} else {
		c.options.last = o
	}
	c.options.byName[o.Name] = o
}

func (c *Context) unlinkOption(o *Option) {
	if o.Prev != nil {
		o.Prev.Next = o.Next
	} else {
		c.options.head = o.Next
	}
	if o.Next != nil {
		o.Next.Prev = o.Prev
	} else {
		c.options.last = o.Prev
	}
	o.Prev, o.Next = nil, nil
	delete(c.options.byName, o.Name)
	c.handles.Release(o)
}

// FreeOption removes an option.
func (c *Context) FreeOption(name string) error {
	o, ok := c.options.byName[name]
	if !ok {
		return types.Errorf(types.ErrNotFound, "option %s", name)
	}
	c.unlinkOption(o)
	return nil
}

// freePluginOptions removes the options of plugin.
func (c *Context) freePluginOptions(plugin string) int {
	n := 0
	for o := c.options.head; o != nil; {
		next := o.Next
		if o.PluginName == plugin {
			c.unlinkOption(o)
			n++
		}
		o = next
	}
	return n
}

func (c *Context) freeAllOptions() {
	for o := c.options.head; o != nil; o = o.Next {
		c.handles.Release(o)
	}
	c.options = optionList{byName: make(map[string]*Option)}
}

// Option returns the option named name.
func (c *Context) Option(name string) (*Option, bool) {
	o, ok := c.options.byName[name]
	return o, ok
}

// Options returns the options matching the comma-separated masks, sorted
// by name. Empty masks match every option.
func (c *Context) Options(masks string) []*Option {
	list := strmatch.SplitMasks(masks)
	var out []*Option
	for o := c.options.head; o != nil; o = o.Next {
		if len(list) == 0 || strmatch.MatchList(o.Name, list, false) {
			out = append(out, o)
		}
	}
	return out
}

// OptionString returns the value of an option, "" when it does not exist.
func (c *Context) OptionString(name string) string {
	if o, ok := c.options.byName[name]; ok {
		return o.Value
	}
	return ""
}

// OptionInt returns the value of an integer option, 0 when it does not
// exist.
func (c *Context) OptionInt(name string) int {
	n, _ := strconv.Atoi(c.OptionString(name))
	return n
}

// OptionBool returns the value of a boolean option.
func (c *Context) OptionBool(name string) bool {
	return c.OptionString(name) == "on"
}

// SetOption validates and sets an option, then runs the config hooks
// matching its name. Setting the current value runs nothing.
func (c *Context) SetOption(name, value string) error {
	o, ok := c.options.byName[name]
	if !ok {
		return types.Errorf(types.ErrNotFound, "option %s", name)
	}
	if o.Type == OptionBoolean && strings.EqualFold(value, "toggle") {
		value = "on"
		if o.Value == "on" {
			value = "off"
		}
	}
	v, err := o.parse(value)
	if err != nil {
		return err
	}
	if v == o.Value {
		return nil
	}
	o.Value = v
	c.hooks.ExecConfig(o.Name, v)
	return nil
}

// ResetOption sets an option back to its default value.
func (c *Context) ResetOption(name string) error {
	o, ok := c.options.byName[name]
	if !ok {
		return types.Errorf(types.ErrNotFound, "option %s", name)
	}
	return c.SetOption(name, o.DefaultValue)
}

func (o *Option) parse(value string) (string, error) {
	switch o.Type {
	case OptionBoolean:
		switch strings.ToLower(value) {
		case "on", "true", "yes", "1":
			return "on", nil
		case "off", "false", "no", "0":
			return "off", nil
		}
		return "", types.Errorf(types.ErrTypeMismatch, "%s: %q is not a boolean", o.Name, value)
	case OptionInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", types.Errorf(types.ErrTypeMismatch, "%s: %q is not an integer", o.Name, value)
		}
		if n < o.Min || (o.Max > o.Min && n > o.Max) {
			return "", types.Errorf(types.ErrOutOfRange, "%s: %d not in [%d, %d]", o.Name, n, o.Min, o.Max)
		}
		return strconv.Itoa(n), nil
	}
	if o.Max > 0 && utf8.RuneCountInString(value) > o.Max {
		return "", types.Errorf(types.ErrOutOfRange, "%s: longer than %d chars", o.Name, o.Max)
	}
	return value, nil
}

// ----------------------------------------------------------------------------
// hdata
// ----------------------------------------------------------------------------

func (c *Context) describeOption(name string) (*hdata.Type, error) {
	t, err := hdata.Describe(name, (*Option)(nil), hdata.TypeOptions{Update: c.updateOption})
	if err != nil {
		return nil, err
	}
	if err := t.AddList("config_options", func() any { return c.options.head }, hdata.ListCheckPointers); err != nil {
		return nil, err
	}
	if err := t.AddList("last_config_option", func() any { return c.options.last }, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// updateOption accepts "value" (set) and "value_reset" keys.
func (c *Context) updateOption(_ *hdata.Walker, _ *hdata.Type, obj any, values map[string]string) int {
	o, ok := obj.(*Option)
	if !ok || c.options.byName[o.Name] != o {
		return 0
	}
	n := 0
	for _, k := range slices.Sorted(maps.Keys(values)) {
		var err error
		switch k {
		case "value":
			err = c.SetOption(o.Name, values[k])
		case "value_reset":
			err = c.ResetOption(o.Name)
		default:
			continue
		}
		if err == nil {
			n++
		}
	}
	return n
}
