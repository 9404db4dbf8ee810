// Package message holds the metadata records the library keeps for its
// objects and their binary form.
//
// # Datatype
//
// [Datatype] is the descriptor of one element. The classes that matter for
// marshalling are:
//
//   - ClassCompound (6): named members at byte offsets
//   - ClassArray (10): fixed dimensions over a base type
//   - ClassVarLen (9): a sequence ({length, pointer} in memory) or, with
//     IsVarLenString set, a NUL-terminated string (a pointer in memory)
//
// Everything else is a scalar of Size bytes. A descriptor's Size and member
// offsets describe its in-memory layout; the library derives the packed
// storage layout itself.
//
// Serialize and [ParseDatatype] use the version 1/2/3 datatype message
// encoding. [Datatype.Clone] goes through that encoding, which is how the
// library hands out private copies of committed types.
//
// # Dataspace
//
// [Dataspace] is scalar, simple (N-dimensional) or null, with an optional
// [Hyperslab] selection that is kept in memory only.
//
// # Attribute
//
// [Attribute] bundles a name, datatype, dataspace and the stored elements.
package message
