package host

import (
	"errors"
	"time"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Plugin is an extension loaded into a Context. Its name is the owner of
// every hook, option, buffer and hdata type it creates; unloading it frees
// all of them.
type Plugin interface {
	Name() string
	Init(c *Context) error
	End(c *Context) error
}

// Describer is implemented by plugins with a description and version.
type Describer interface {
	Description() string
	Version() string
}

// LoadedPlugin is a plugin running in a context.
type LoadedPlugin struct {
	Name        string        `hdata:"name"`
	Description string        `hdata:"description"`
	Version     string        `hdata:"version"`
	Initialized bool          `hdata:"initialized"`
	LoadedAt    time.Time     `hdata:"loaded"`
	Prev        *LoadedPlugin `hdata:"prev_plugin,related=plugin,prev"`
	Next        *LoadedPlugin `hdata:"next_plugin,related=plugin,next"`

	plugin Plugin
}

type pluginList struct {
	head, last *LoadedPlugin
}

// Plugins returns the loaded plugins in load order.
func (c *Context) Plugins() []*LoadedPlugin {
	var out []*LoadedPlugin
	for p := c.plugins.head; p != nil; p = p.Next {
		out = append(out, p)
	}
	return out
}

// Available returns the names of the plugins LoadPlugin can find.
func (c *Context) Available() []string {
	var out []string
	for _, p := range c.opts.Plugins {
		out = append(out, p.Name())
	}
	return out
}

func (c *Context) findPlugin(name string) *LoadedPlugin {
	for p := c.plugins.head; p != nil; p = p.Next {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// LoadPlugin loads the available plugin named name. A failing Init is
// undone like an unload.
func (c *Context) LoadPlugin(name string) error {
	p, ok := c.available[name]
	if !ok {
		return types.Errorf(types.ErrNotFound, "plugin %q", name)
	}
	if name == "" || name == "core" {
		return types.Errorf(types.ErrInvalid, "plugin name %q is reserved", name)
	}
	if c.findPlugin(name) != nil {
		return types.Errorf(types.ErrInvalid, "plugin %q already loaded", name)
	}
	lp := &LoadedPlugin{Name: name, LoadedAt: c.opts.Now(), plugin: p, Prev: c.plugins.last}
	if d, ok := p.(Describer); ok {
		lp.Description, lp.Version = d.Description(), d.Version()
	}
	if c.plugins.last != nil {
		c.plugins.last.Next = lp
	} else {
		c.plugins.head = lp
	}
	c.plugins.last = lp

	if err := p.Init(c); err != nil {
		logger.Warn("plugin init failed", "plugin", name, "error", err)
		c.cleanupPlugin(lp)
		return errors.Join(types.Errorf(types.ErrInvalid, "plugin %q: init failed", name), err)
	}
	lp.Initialized = true
	logger.Info("plugin loaded", "plugin", name)
	c.hooks.SendSignal("plugin_loaded", hook.SignalString, name)
	return nil
}

// UnloadPlugin ends a plugin and frees everything it owns, in order: End,
// unregister its hooks, sweep, free its hdata types, options and buffers.
// From inside a callback the sweep is left to the end of the outermost
// dispatch pass; the unregistered hooks never run again either way.
func (c *Context) UnloadPlugin(name string) error {
	lp := c.findPlugin(name)
	if lp == nil {
		return types.Errorf(types.ErrNotFound, "plugin %q not loaded", name)
	}
	err := lp.plugin.End(c)
	if err != nil {
		logger.Warn("plugin end failed", "plugin", name, "error", err)
	}
	c.cleanupPlugin(lp)
	logger.Info("plugin unloaded", "plugin", name)
	c.hooks.SendSignal("plugin_unloaded", hook.SignalString, name)
	return err
}

func (c *Context) cleanupPlugin(lp *LoadedPlugin) {
	hooks := c.hooks.UnregisterAll(lp.Name)
	if _, err := c.hooks.Sweep(); err != nil && !errors.Is(err, types.ErrBusy) {
		logger.Warn("sweep after unload", "plugin", lp.Name, "error", err)
	}
	typesFreed := c.types.FreeAllOwner(lp.Name)
	options := c.freePluginOptions(lp.Name)
	buffers := c.closePluginBuffers(lp.Name)
	logger.Debug("plugin resources freed", "plugin", lp.Name,
		"hooks", hooks, "types", typesFreed, "options", options, "buffers", buffers)

	if lp.Prev != nil {
		lp.Prev.Next = lp.Next
	} else {
		c.plugins.head = lp.Next
	}
	if lp.Next != nil {
		lp.Next.Prev = lp.Prev
	} else {
		c.plugins.last = lp.Prev
	}
	lp.Prev, lp.Next = nil, nil
	lp.Initialized = false
	c.handles.Release(lp)
}

// autoload loads the available plugins matching weechat.plugin.autoload.
// Failures are printed and do not stop the others.
func (c *Context) autoload() {
	masks := strmatch.SplitMasks(c.OptionString("weechat.plugin.autoload"))
	for _, p := range c.opts.Plugins {
		if !strmatch.MatchList(p.Name(), masks, false) {
			continue
		}
		if err := c.LoadPlugin(p.Name()); err != nil {
			c.PrintError(c.buffers.core, "%v", err)
		}
	}
}

func (c *Context) describePlugin(name string) (*hdata.Type, error) {
	t, err := hdata.Describe(name, (*LoadedPlugin)(nil), hdata.TypeOptions{})
	if err != nil {
		return nil, err
	}
	if err := t.AddList("weechat_plugins", func() any { return c.plugins.head }, hdata.ListCheckPointers); err != nil {
		return nil, err
	}
	if err := t.AddList("last_weechat_plugin", func() any { return c.plugins.last }, 0); err != nil {
		return nil, err
	}
	return t, nil
}
