package types

import "fmt"

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindNotFound    ErrKind = iota // unknown type, field, list or hook
	ErrKindNotWritable                // field exists but is not writable
	ErrKindType                       // value type does not match field type
	ErrKindRange                      // array index out of range
	ErrKindRelation                   // field is not a pointer to a described type
	ErrKindPointer                    // stale, foreign or malformed object handle
	ErrKindState                      // operation invalid in the current state
	ErrKindInvalid                    // malformed argument
)

// String returns a short label for the kind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not-found"
	case ErrKindNotWritable:
		return "not-writable"
	case ErrKindType:
		return "type"
	case ErrKindRange:
		return "range"
	case ErrKindRelation:
		return "relation"
	case ErrKindPointer:
		return "pointer"
	case ErrKindState:
		return "state"
	case ErrKindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a detail error of the same kind as sentinel, wrapping it.
func Errorf(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

// Sentinels commonly returned by implementations.
var (
	// ErrNotFound indicates a missing type, field, list or hook.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrNotWritable indicates a write to a field that does not allow updates.
	ErrNotWritable = &Error{Kind: ErrKindNotWritable, Msg: "field is not writable"}
	// ErrTypeMismatch indicates the value does not match the field's declared type.
	ErrTypeMismatch = &Error{Kind: ErrKindType, Msg: "value has different type"}
	// ErrOutOfRange indicates an array index beyond the resolved element count.
	ErrOutOfRange = &Error{Kind: ErrKindRange, Msg: "index out of range"}
	// ErrNotARelation indicates a field without a related type.
	ErrNotARelation = &Error{Kind: ErrKindRelation, Msg: "field is not a relation"}
	// ErrStalePointer indicates a handle that is not reachable from any checked list.
	ErrStalePointer = &Error{Kind: ErrKindPointer, Msg: "stale or foreign pointer"}
	// ErrCycle indicates a linked list that loops back on itself.
	ErrCycle = &Error{Kind: ErrKindState, Msg: "cycle detected in list"}
	// ErrBusy indicates an operation that cannot run while a dispatch is in progress.
	ErrBusy = &Error{Kind: ErrKindState, Msg: "dispatch in progress"}
	// ErrInvalid indicates a malformed argument.
	ErrInvalid = &Error{Kind: ErrKindInvalid, Msg: "invalid argument"}
)

// -----------------------------------------------------------------------------
// Callback return codes
// -----------------------------------------------------------------------------

// RC is the code returned by every hook callback.
type RC int

const (
	// OK means the callback ran; dispatch continues with the next hook.
	OK RC = 0
	// OKEat means the event is consumed; lower-priority hooks are skipped.
	OKEat RC = 1
	// RCError means the callback failed; dispatch still continues.
	RCError RC = -1
)

// String implements the Stringer interface for RC.
func (rc RC) String() string {
	switch rc {
	case OK:
		return "ok"
	case OKEat:
		return "ok_eat"
	case RCError:
		return "error"
	default:
		return fmt.Sprintf("rc(%d)", int(rc))
	}
}
