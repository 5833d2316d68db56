package types

const (
	// DefaultMaxListLength bounds a single list walk. Host lists are far
	// shorter in practice; the bound only matters for corrupted links that
	// cycle detection cannot see (e.g. a list rebuilt while walking).
	DefaultMaxListLength = 1 << 24

	// DefaultMaxCommandCalls is how many times the same command hook may be
	// on the call stack before further executions are refused.
	DefaultMaxCommandCalls = 5

	// DefaultMaxDispatchDepth bounds nested dispatch passes.
	DefaultMaxDispatchDepth = 256
)

// Limits defines runtime constraints applied by walkers and dispatchers.
type Limits struct {
	// MaxListLength is the maximum number of nodes visited by one list walk.
	MaxListLength int

	// MaxCommandCalls is the recursion guard for a single command hook.
	MaxCommandCalls int

	// MaxDispatchDepth is the maximum nesting of dispatch passes.
	MaxDispatchDepth int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxListLength:    DefaultMaxListLength,
		MaxCommandCalls:  DefaultMaxCommandCalls,
		MaxDispatchDepth: DefaultMaxDispatchDepth,
	}
}

// Validate checks that every limit is positive.
func (l Limits) Validate() error {
	if l.MaxListLength <= 0 {
		return Errorf(ErrInvalid, "MaxListLength must be positive, got %d", l.MaxListLength)
	}
	if l.MaxCommandCalls <= 0 {
		return Errorf(ErrInvalid, "MaxCommandCalls must be positive, got %d", l.MaxCommandCalls)
	}
	if l.MaxDispatchDepth <= 0 {
		return Errorf(ErrInvalid, "MaxDispatchDepth must be positive, got %d", l.MaxDispatchDepth)
	}
	return nil
}
