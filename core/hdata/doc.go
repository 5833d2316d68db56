// Package hdata describes host structures at runtime so that code with no
// compile-time knowledge of them can walk and mutate the host object graph.
//
// A [Type] lists the named, typed fields of one structure, the link fields
// chaining its objects into lists, and the named list roots. Types are
// registered lazily in a [Registry] through providers and materialized on
// first [Registry.Resolve].
//
// Field access goes through per-field accessors rather than raw offsets:
//   - [Describe] builds accessors from `hdata` struct tags via reflect
//   - [IntField], [StringField], [PointerField] etc. build them from
//     closures, for unexported fields
//
// A [Walker] performs every generic operation:
//   - GetField / GetFieldArray / GetPath / FollowRelation read values
//   - SetField / Update / Set write them, honoring writability
//   - Walk / Iterate / Move / Count / Search traverse lists, stopping on
//     cycles
//   - ValidatePointer checks list membership before a foreign pointer is
//     trusted
//
// Objects crossing an untrusted boundary are represented by generational
// [Handle] values from a [Handles] table; [Walker.Query] resolves and
// validates them before use.
package hdata
