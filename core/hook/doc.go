// Package hook implements the registry of prioritized, typed callbacks
// every extension point of the host is built on.
//
// # Lists and ordering
//
// A [Registry] keeps one doubly linked list per [Kind]. Hooks are ordered by
// priority, highest first, ties keeping registration order. Command hooks
// are ordered by name first so that commands registered by several owners
// sit next to each other.
//
// # Lifecycle
//
// A hook is Active until [Registry.Unregister] marks it SoftDeleted; it is
// never called again but stays linked, so dispatch passes walking the list
// keep a valid successor. The outermost pass sweeps deleted hooks when it
// ends, moving them to Freed. [Registry.Sweep] does the same between
// passes and refuses to run during one.
//
// Hooks registered during a pass are visited by it only when they are
// linked beyond the successor of the hook being run, which the pass reads
// before calling it.
//
// # Dispatch
//
// Each kind has its own entry point:
//
//	ExecCommand       one command hook, chosen by name and owner
//	RunCommandRun     interceptors; OKEat cancels the command
//	SendSignal        fan-out; OKEat stops the pass
//	ExecModifier      chain; each hook gets the previous output
//	GetInfo           first matching hook answers
//	ExecTimers/ExecFd driven by the event loop
//
// # Event loop kinds
//
// Timer, fd, process and connect hooks do not block. Process hooks read
// the child's output through fd hooks and reap it from a timer; connect
// hooks dial on a goroutine and report back through a pipe watched by an
// fd hook. Everything else runs on the goroutine driving the registry,
// which is not safe for concurrent use.
package hook
