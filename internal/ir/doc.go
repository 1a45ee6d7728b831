// Package ir provides the superset intermediate representation.
//
// A ClassEntry accumulates the merged API shape of one class across every
// ingested version: which versions it exists in, how its visibility and
// modality changed, and the fields and methods it ever declared. Entries
// are created on first observation and mutated in place afterwards; nothing
// is ever removed.
//
// This package holds types and their local invariants only. The merge
// policy lives in internal/merge and serialisation in internal/emit. The
// only internal import is internal/classfile, for annotation values.
//
// Key design constraints:
//   - Entities are addressed by string keys (internal class name,
//     name+descriptor, argument signature + return descriptor). Cross
//     references are names, never pointers.
//   - Containers are created eagerly; a nil map or slice never stands for
//     "unset".
//   - Member keys are unique per class and kind (AddField, AddMethod).
//   - Canonical JSON (RFC 8785) and domain-separated SHA-256 digests give a
//     stable identity to a merged class.
package ir
