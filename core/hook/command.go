package hook

import (
	"strings"
	"unicode/utf8"

	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/types"
)

// CommandFunc runs a command. argv holds the words of the command line,
// argv[0] being the command itself with its prefix; argvEOL[i] is the line
// from word i to the end, spacing preserved.
type CommandFunc func(target any, argv, argvEOL []string) types.RC

// CommandSpec describes a command hook.
type CommandSpec struct {
	// Name is the command name without prefix. A "priority|" prefix sets
	// the priority when Priority is zero.
	Name     string
	Priority int

	Description     string
	Args            string
	ArgsDescription string

	// Completion is a completion template; alternatives for different
	// argument shapes are separated by "||".
	Completion string

	Callback CommandFunc
}

type commandData struct {
	spec      CommandSpec
	templates []string
}

func (d *commandData) describe() string { return d.spec.Name }

func (d *commandData) addToInfolist(it *infolist.Item) {
	it.AddString("command", d.spec.Name).
		AddString("description", d.spec.Description).
		AddString("args", d.spec.Args).
		AddString("args_description", d.spec.ArgsDescription).
		AddString("completion", d.spec.Completion)
}

func commandName(h *Hook) string {
	if d, ok := h.data.(*commandData); ok {
		return d.spec.Name
	}
	return ""
}

func compareCommandNames(a, b string) int { return strmatch.CompareFold(a, b) }

// HookCommand registers a command. An owner may register a given name only
// once; other owners may register the same name, the winner being chosen
// at execution time.
func (r *Registry) HookCommand(owner string, spec CommandSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Name)
	spec.Name, spec.Priority = k.Name, k.Priority
	switch {
	case spec.Callback == nil:
		return nil, types.Errorf(types.ErrInvalid, "command %q: nil callback", spec.Name)
	case spec.Name == "" || strings.ContainsAny(spec.Name, " \t"):
		return nil, types.Errorf(types.ErrInvalid, "command %q: invalid name", spec.Name)
	}
	if h := r.FindCommand(owner, spec.Name); h != nil {
		return nil, types.Errorf(types.ErrInvalid, "command %q already registered by %s", spec.Name, ownerName(owner))
	}
	d := &commandData{spec: spec}
	if spec.Completion != "" {
		for _, t := range strings.Split(spec.Completion, "||") {
			d.templates = append(d.templates, strings.TrimSpace(t))
		}
	}
	return r.add(KindCommand, owner, spec.Priority, d), nil
}

// FindCommand returns the active command hook of owner named name.
func (r *Registry) FindCommand(owner, name string) *Hook {
	for h := range r.Hooks(KindCommand) {
		if h.state == StateActive && h.owner == owner && strmatch.EqualFold(commandName(h), name) {
			return h
		}
	}
	return nil
}

// CommandInfo describes one registered command for help and completion.
type CommandInfo struct {
	Owner string
	CommandSpec
	Templates []string
}

// Commands returns every active command in list order (by name).
func (r *Registry) Commands() []CommandInfo {
	var out []CommandInfo
	for h := range r.Hooks(KindCommand) {
		if h.state != StateActive {
			continue
		}
		d := h.data.(*commandData)
		out = append(out, CommandInfo{Owner: h.owner, CommandSpec: d.spec, Templates: d.templates})
	}
	return out
}

// ExecResult is the outcome of ExecCommand.
type ExecResult int

const (
	ExecOK ExecResult = iota
	ExecError
	ExecNotFound
	// ExecAmbiguousOwners: no command of the calling owner, and two other
	// owners registered the name with the same priority.
	ExecAmbiguousOwners
	// ExecAmbiguousIncomplete: the name is a prefix of several commands.
	ExecAmbiguousIncomplete
	// ExecRunning: the command is already on the call stack too many times.
	ExecRunning
)

func (e ExecResult) String() string {
	switch e {
	case ExecOK:
		return "ok"
	case ExecError:
		return "error"
	case ExecNotFound:
		return "not found"
	case ExecAmbiguousOwners:
		return "ambiguous: registered by several owners"
	case ExecAmbiguousIncomplete:
		return "ambiguous: incomplete command"
	case ExecRunning:
		return "already running"
	}
	return "unknown"
}

// SplitArgs splits a command line on spaces. argvEOL[i] is the remainder
// of the line starting at word i.
func SplitArgs(line string) (argv, argvEOL []string) {
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		for i < len(line) && line[i] != ' ' {
			i++
		}
		argv = append(argv, line[start:i])
		argvEOL = append(argvEOL, strings.TrimRight(line[start:], " "))
	}
	return argv, argvEOL
}

// ExecCommand runs the command line line (e.g. "/buffer 2"). command_run
// hooks run first and may eat the command. Exactly one command hook is
// then chosen by name:
//   - the caller's own (owner) hook, unless a foreign hook has a strictly
//     higher priority
//   - with anyOwner, the highest priority foreign hook; two foreign hooks
//     tied at the top are ambiguous
//   - with incomplete commands enabled and no exact match, the single
//     command starting with the name
func (r *Registry) ExecCommand(target any, owner string, anyOwner bool, line string) ExecResult {
	if strings.TrimSpace(line) == "" {
		return ExecNotFound
	}
	if r.RunCommandRun(target, line) == types.OKEat {
		return ExecOK
	}
	argv, argvEOL := SplitArgs(line)
	if len(argv) == 0 {
		return ExecNotFound
	}
	_, size := utf8.DecodeRuneInString(argv[0])
	name := argv[0][size:]

	if !r.execStart() {
		return ExecError
	}
	defer r.execEnd()

	var own, other, other2, incomplete *Hook
	otherCount, incompleteCount := 0, 0
	for h := r.lists[KindCommand].head; h != nil; h = h.next {
		if h.state != StateActive {
			continue
		}
		cmd := commandName(h)
		switch {
		case strmatch.EqualFold(name, cmd):
			if h.owner == owner {
				if own == nil {
					own = h
				}
			} else if anyOwner {
				if other == nil {
					other = h
				} else if other2 == nil {
					other2 = h
				}
				otherCount++
			}
		case r.opts.IncompleteCommands && name != "" && strmatch.HasPrefixFold(cmd, name):
			incomplete = h
			incompleteCount++
		}
	}

	var chosen *Hook
	switch {
	case own != nil || other != nil:
		switch {
		case own == nil && otherCount > 1 && other.priority == other2.priority:
			return ExecAmbiguousOwners
		case own != nil && other != nil && other.priority > own.priority:
			chosen = other
		case own != nil:
			chosen = own
		default:
			chosen = other
		}
	case incomplete != nil:
		if incompleteCount > 1 {
			return ExecAmbiguousIncomplete
		}
		chosen = incomplete
	default:
		return ExecNotFound
	}

	if chosen.running >= r.opts.Limits.MaxCommandCalls {
		return ExecRunning
	}
	cb := chosen.data.(*commandData).spec.Callback
	var rc types.RC
	r.call(chosen, func() { rc = cb(target, argv, argvEOL) })
	if rc == types.RCError {
		return ExecError
	}
	return ExecOK
}

// ----------------------------------------------------------------------------
// command_run
// ----------------------------------------------------------------------------

// CommandRunFunc intercepts a command line before it runs. Returning
// types.OKEat cancels the command.
type CommandRunFunc func(target any, command string) types.RC

// CommandRunSpec describes a command_run hook.
type CommandRunSpec struct {
	// Command is a mask ("/buffer *") or a command name prefix ("/buffer")
	// matched case-insensitively.
	Command  string
	Priority int
	Callback CommandRunFunc
}

type commandRunData struct{ spec CommandRunSpec }

func (d *commandRunData) describe() string { return d.spec.Command }

func (d *commandRunData) addToInfolist(it *infolist.Item) {
	it.AddString("command", d.spec.Command)
}

// HookCommandRun registers a command_run hook.
func (r *Registry) HookCommandRun(owner string, spec CommandRunSpec) (*Hook, error) {
	k := key(spec.Priority, spec.Command)
	spec.Command, spec.Priority = k.Name, k.Priority
	if spec.Command == "" || spec.Callback == nil {
		return nil, types.Errorf(types.ErrInvalid, "command_run %q: missing command or callback", spec.Command)
	}
	return r.add(KindCommandRun, owner, spec.Priority, &commandRunData{spec: spec}), nil
}

// RunCommandRun runs the command_run hooks matching command and returns
// types.OKEat if one of them ate it.
func (r *Registry) RunCommandRun(target any, command string) types.RC {
	if command == "" {
		return types.OK
	}
	if command[0] != '/' {
		_, size := utf8.DecodeRuneInString(command)
		command = "/" + command[size:]
	}
	rc := types.OK
	r.each(KindCommandRun, func(h *Hook) bool {
		if h.running > 0 {
			return true
		}
		d := h.data.(*commandRunData)
		if !commandRunMatches(command, d.spec.Command) {
			return true
		}
		var got types.RC
		r.call(h, func() { got = d.spec.Callback(target, command) })
		if got == types.OKEat {
			rc = types.OKEat
			return false
		}
		return true
	})
	return rc
}

func commandRunMatches(command, mask string) bool {
	if strmatch.Match(command, mask, false) {
		return true
	}
	if strings.Contains(mask, " ") || len(command) < len(mask) {
		return false
	}
	return strmatch.EqualFold(command[:len(mask)], mask) &&
		(len(command) == len(mask) || command[len(mask)] == ' ')
}
