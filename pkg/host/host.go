// Package host is the embedding side of the hook and hdata runtime: one
// Context owns the type registry, the hook registry and the event loop,
// and builds the host subsystems on top of them (buffers, windows, config
// options, plugins) in a fixed order.
//
// Everything except Context.Post runs on the goroutine driving the loop.
package host

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/joshuapare/hookkit/core/eventloop"
	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Version is reported by the "version" info.
const Version = "0.4.0"

// CoreBufferName is the full name of the buffer that cannot be closed.
const CoreBufferName = "core.weechat"

// Options configure a Context.
type Options struct {
	// Limits bound list walks, recursive commands and nested dispatch.
	Limits types.Limits

	// LongCallbackThreshold logs callbacks running at least this long.
	LongCallbackThreshold time.Duration

	// IncompleteCommands is the initial value of the option
	// weechat.core.incomplete_commands.
	IncompleteCommands bool

	// Now is the clock of timers and line dates.
	Now func() time.Time

	// Loop configures the event loop.
	Loop eventloop.Options

	// Output receives every printed line. Nil discards them.
	Output io.Writer

	// Log is applied with logger.Init by Init when Log.Enabled is set.
	Log logger.Options

	// Plugins are the plugins /plugin load can find. Those matching the
	// option weechat.plugin.autoload are loaded by Init.
	Plugins []Plugin

	// Autoload is the initial value of weechat.plugin.autoload.
	Autoload string
}

// DefaultOptions returns the options used by New when given a zero value.
func DefaultOptions() Options {
	return Options{
		Limits:                types.DefaultLimits(),
		LongCallbackThreshold: time.Second,
		Now:                   time.Now,
		Loop:                  eventloop.DefaultOptions(),
		Autoload:              "*",
	}
}

// Context is the explicit replacement for process-wide registries: every
// subsystem reaches the registries through it.
type Context struct {
	opts Options

	types   *hdata.Registry
	handles *hdata.Handles
	walker  *hdata.Walker
	hooks   *hook.Registry
	loop    *eventloop.Loop

	buffers bufferList
	windows windowList
	options optionList
	plugins pluginList

	available map[string]Plugin
	started   time.Time
	dayTimer  *hook.Hook
	ready     bool
}

// New returns an uninitialized context. Call Init before using it.
func New(opts Options) *Context {
	def := DefaultOptions()
	if opts.Limits.Validate() != nil {
		opts.Limits = def.Limits
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Autoload == "" {
		opts.Autoload = def.Autoload
	}
	c := &Context{opts: opts, available: make(map[string]Plugin)}
	for _, p := range opts.Plugins {
		c.available[p.Name()] = p
	}
	return c
}

// Init builds the context: logger, type registry, hook registry, event
// loop, then the host subsystems and their hooks, and finally the
// autoloaded plugins. A failed Init leaves nothing running.
func (c *Context) Init() error {
	if c.ready {
		return types.Errorf(types.ErrInvalid, "host: already initialized")
	}
	if c.opts.Log.Enabled {
		if err := logger.Init(c.opts.Log); err != nil {
			return err
		}
	}

	c.types = hdata.NewRegistry()
	c.handles = hdata.NewHandles()
	c.walker = hdata.NewWalker(c.types, c.handles, c.opts.Limits)

	c.hooks = hook.NewRegistry(hook.Options{
		Limits:                c.opts.Limits,
		LongCallbackThreshold: c.opts.LongCallbackThreshold,
		IncompleteCommands:    c.opts.IncompleteCommands,
		Now:                   c.opts.Now,
		OnFree:                func(h *hook.Hook) { c.handles.Release(h) },
	})
	c.types.SetSource(c.hooks)

	loop, err := eventloop.New(c.hooks, c.opts.Loop)
	if err != nil {
		return err
	}
	c.loop = loop
	c.started = c.opts.Now()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", c.initConfig},
		{"buffers", c.initBuffers},
		{"windows", c.initWindows},
		{"hdata", c.hookHdata},
		{"commands", c.hookCommands},
		{"infos", c.hookInfos},
		{"completions", c.hookCompletions},
		{"timers", c.hookTimers},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			c.teardown()
			return errors.Join(types.Errorf(types.ErrInvalid, "host init: %s", s.name), err)
		}
	}
	c.ready = true
	logger.Info("host initialized", "version", Version, "hooks", c.hooks.CountTotal())

	c.autoload()
	return nil
}

// Shutdown unloads plugins in reverse load order, removes every hook, frees
// the host objects and closes the loop. It is the reverse of Init.
func (c *Context) Shutdown() error {
	if !c.ready {
		return nil
	}
	if c.hooks.Dispatching() {
		return types.Errorf(types.ErrBusy, "host: shutdown from a callback")
	}
	var errs []error
	for p := c.plugins.last; p != nil; p = c.plugins.last {
		if err := c.UnloadPlugin(p.Name); err != nil {
			errs = append(errs, err)
		}
	}
	c.hooks.SendSignal("quit", hook.SignalString, "")
	errs = append(errs, c.teardown())
	c.ready = false
	logger.Info("host shut down")
	return errors.Join(errs...)
}

func (c *Context) teardown() error {
	c.hooks.UnhookAll()
	_, err := c.hooks.Sweep()
	c.freeWindows()
	c.freeBuffers()
	c.freeAllOptions()
	return errors.Join(err, c.loop.Close())
}

// Run drives the event loop until ctx is done or /quit runs.
func (c *Context) Run(ctx context.Context) error {
	if !c.ready {
		return types.Errorf(types.ErrInvalid, "host: not initialized")
	}
	err := c.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Post runs fn on the loop goroutine. Safe from any goroutine.
func (c *Context) Post(fn func()) bool { return c.loop.Post(fn) }

// Types returns the type registry.
func (c *Context) Types() *hdata.Registry { return c.types }

// Handles returns the handle table used at the external boundary.
func (c *Context) Handles() *hdata.Handles { return c.handles }

// Walker returns the object walker.
func (c *Context) Walker() *hdata.Walker { return c.walker }

// Hooks returns the hook registry.
func (c *Context) Hooks() *hook.Registry { return c.hooks }

// Loop returns the event loop.
func (c *Context) Loop() *eventloop.Loop { return c.loop }

// Now returns the context clock's time.
func (c *Context) Now() time.Time { return c.opts.Now() }

// ownerOf maps a plugin name to a hook owner; the core owns hooks as "".
func ownerOf(plugin string) string {
	if plugin == "core" {
		return ""
	}
	return plugin
}
