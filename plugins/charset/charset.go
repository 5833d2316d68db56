// Package charset converts text between UTF-8 and the charsets of the
// outside world. It serves the "charset_decode" and "charset_encode"
// modifiers: the modifier data is a buffer full name, and the charset
// applied is found from the most specific option down to the default.
//
//	charset.decode.exec.make   exec.make only
//	charset.decode.exec        every buffer of the exec plugin
//	charset.default.decode     everything else
package charset

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Name is the plugin name and the owner of its hooks and options.
const Name = "charset"

const (
	optDefaultDecode = "charset.default.decode"
	optDefaultEncode = "charset.default.encode"
	prefixDecode     = "charset.decode."
	prefixEncode     = "charset.encode."
)

// Plugin is the charset plugin. The zero value is not usable; call New.
type Plugin struct {
	c *host.Context
}

// New returns the plugin, ready to be passed in host.Options.Plugins.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string        { return Name }
func (p *Plugin) Description() string { return "charset conversions" }
func (p *Plugin) Version() string     { return host.Version }

// Init creates the default options and hooks the modifiers and /charset.
func (p *Plugin) Init(c *host.Context) error {
	p.c = c
	specs := []host.OptionSpec{
		{Name: optDefaultDecode, Type: host.OptionString, Default: "iso-8859-1",
			Description: "global decoding charset: charset used to decode incoming text that is not valid UTF-8"},
		{Name: optDefaultEncode, Type: host.OptionString, Default: "",
			Description: "global encoding charset: charset used to encode outgoing text (empty = no encoding)"},
	}
	for _, s := range specs {
		if _, err := c.NewOption(Name, s); err != nil {
			return err
		}
	}

	reg := c.Hooks()
	if _, err := reg.HookModifier(Name, hook.ModifierSpec{Modifier: "charset_decode", Callback: p.decode}); err != nil {
		return err
	}
	if _, err := reg.HookModifier(Name, hook.ModifierSpec{Modifier: "charset_encode", Callback: p.encode}); err != nil {
		return err
	}
	_, err := reg.HookCommand(Name, hook.CommandSpec{
		Name:        "charset",
		Description: "change charset for current buffer",
		Args:        "decode|encode <charset> || reset",
		ArgsDescription: " decode: change decoding charset\n" +
			" encode: change encoding charset\n" +
			"charset: new charset for current buffer\n" +
			"  reset: reset charsets for current buffer",
		Completion: "decode|encode|reset",
		Callback:   p.command,
	})
	return err
}

// End has nothing to release: the host frees the plugin's hooks and
// options.
func (p *Plugin) End(*host.Context) error {
	p.c = nil
	return nil
}

// Lookup returns the charset configured for name in the "decode" or
// "encode" section, "" when none applies.
func (p *Plugin) Lookup(section, name string) string {
	prefix, def := prefixDecode, optDefaultDecode
	if section == "encode" {
		prefix, def = prefixEncode, optDefaultEncode
	}
	for name != "" {
		if o, ok := p.c.Option(prefix + name); ok {
			return o.Value
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return p.c.OptionString(def)
}

func (p *Plugin) decode(modifier, data, s string) (string, bool) {
	if utf8.ValidString(s) {
		return s, false
	}
	cs := p.Lookup("decode", data)
	logger.Debug("charset: decode", "charset", cs, "modifier", modifier, "data", data)
	if cs == "" {
		return s, false
	}
	enc, err := Find(cs)
	if err != nil {
		logger.Warn("charset: decode", "charset", cs, "error", err)
		return s, false
	}
	out, err := enc.NewDecoder().String(s)
	if err != nil {
		logger.Debug("charset: decode failed", "charset", cs, "error", err)
		return s, false
	}
	return out, true
}

func (p *Plugin) encode(modifier, data, s string) (string, bool) {
	cs := p.Lookup("encode", data)
	logger.Debug("charset: encode", "charset", cs, "modifier", modifier, "data", data)
	if cs == "" {
		return s, false
	}
	enc, err := Find(cs)
	if err != nil {
		logger.Warn("charset: encode", "charset", cs, "error", err)
		return s, false
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(s)
	if err != nil {
		return s, false
	}
	return out, true
}

// Find returns the encoding named by an IANA name or a WHATWG label.
func Find(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	return nil, types.Errorf(types.ErrInvalid, "unknown charset %q", name)
}

// isUTF8 reports names of UTF-8, which is the internal charset and so
// never a decoding charset.
func isUTF8(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "utf-8") || strings.Contains(n, "utf8")
}

// Set sets the charset of section for name; an empty charset removes the
// option.
func (p *Plugin) Set(section, name, charset string) error {
	prefix := prefixDecode
	switch section {
	case "decode":
		if isUTF8(charset) {
			return types.Errorf(types.ErrInvalid,
				"UTF-8 is not allowed in charset decoding options (it is internal and default charset)")
		}
	case "encode":
		prefix = prefixEncode
	default:
		return types.Errorf(types.ErrInvalid, "wrong charset type %q (decode or encode expected)", section)
	}
	opt := prefix + name
	if charset == "" {
		if _, ok := p.c.Option(opt); !ok {
			return nil
		}
		return p.c.FreeOption(opt)
	}
	if _, err := Find(charset); err != nil {
		return err
	}
	if _, ok := p.c.Option(opt); ok {
		return p.c.SetOption(opt, charset)
	}
	_, err := p.c.NewOption(Name, host.OptionSpec{
		Name:        opt,
		Type:        host.OptionString,
		Description: section + " charset for " + name,
		Default:     charset,
	})
	return err
}

func (p *Plugin) command(target any, argv, argvEOL []string) types.RC {
	c := p.c
	b, ok := target.(*host.Buffer)
	if !ok || !c.ValidBuffer(b) {
		b = c.CurrentBuffer()
	}
	if len(argv) < 2 {
		p.display(b)
		return types.OK
	}

	name := b.FullName
	if v, ok := b.LocalVars["charset_modifier"]; ok && v != "" {
		name = v
	}

	var err error
	switch {
	case strings.EqualFold(argv[1], "reset"):
		err = errors.Join(p.Set("decode", name, ""), p.Set("encode", name, ""))
	case len(argv) > 2:
		section := strings.ToLower(argv[1])
		if section != "decode" && section != "encode" {
			c.PrintError(nil, "%s: wrong charset type (decode or encode expected)", Name)
			return types.OK
		}
		err = p.Set(section, name, argvEOL[2])
	default:
		cs := argvEOL[1]
		if _, ferr := Find(cs); ferr != nil {
			c.PrintError(nil, "%s: invalid charset: %q", Name, cs)
			return types.OK
		}
		err = errors.Join(p.Set("decode", name, cs), p.Set("encode", name, cs))
	}
	if err != nil {
		c.PrintError(nil, "%s: %v", Name, err)
		return types.OK
	}
	p.display(b)
	return types.OK
}

func (p *Plugin) display(b *host.Buffer) {
	c := p.c
	c.Printf(nil, "%s: default decode %q, default encode %q", Name,
		c.OptionString(optDefaultDecode), c.OptionString(optDefaultEncode))
	for _, o := range c.Options(prefixDecode + "*," + prefixEncode + "*") {
		c.Printf(nil, "  %s = %q", o.Name, o.Value)
	}
	c.Printf(nil, "%s: buffer %s uses decode %q, encode %q", Name, b.FullName,
		p.Lookup("decode", b.FullName), p.Lookup("encode", b.FullName))
}
