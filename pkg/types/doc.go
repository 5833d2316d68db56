// Package types defines the shared vocabulary of the hookkit runtime:
// typed errors with stable categories, callback return codes, the limits
// applied to list walks and reentrant command execution, and the
// diagnostic reports produced by hdata consistency checks.
//
// Design goals:
//   - Lookups that can legitimately miss return (value, ok), never panic.
//   - Mutations report failures through typed errors so callers can branch
//     on intent (NotWritable, TypeMismatch, OutOfRange...) rather than text.
//   - Detail errors wrap a sentinel, so errors.Is works on every result.
//
// This package has no dependencies beyond the standard library.
package types
