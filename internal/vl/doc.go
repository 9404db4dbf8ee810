// Package vl marshals variable-length and compound elements between the
// native memory layout the library reads and writes and in-process
// Values.
//
// # Layouts
//
// An element type compiles into a tree of codecs, one per layout class:
//
//   - variable-length sequence: {count, pointer} of two platform words
//   - variable-length string: one pointer word to a NUL-terminated string
//   - compound: named members at fixed byte offsets in one record
//   - fixed array: product(dims) sub-elements in row-major order
//   - anything else: a scalar element, copied as is
//
// # Ownership
//
// Every transfer runs classify/allocate, native call, convert and reclaim
// in that order. On read the library allocates the payloads; they are
// copied out through a native.Borrowed view and then reclaimed. On write
// the payloads come from a process-lifetime region that is handed over to
// the library once the write has succeeded, and reclaim frees them. The
// top-level buffer is confined to the call under PolicyPerCall.
//
// Reclaim runs exactly once per transfer whose element type contains
// variable-length data and whose container is not empty, and never
// otherwise. A failing reclaim is logged at warn level and does not fail
// the transfer.
package vl
