// Package native models the native side of the marshalling boundary: a flat
// address space, a malloc/free heap over it, and scoped regions with an
// explicit lifetime policy.
//
// # Memory backends
//
// [SliceMemory] keeps the address space in a Go byte slice with a 4- or
// 8-byte platform word. [WasmMemory] uses a wazero linear memory, which gives
// a sandboxed 32-bit address space with 4-byte words.
//
// # Regions
//
// A [Region] is acquired per call with one [Lifetime]:
//
//   - [Confined]: every block is freed by Close, which the caller defers so
//     it runs on all exit paths.
//   - [ProcessLifetime]: blocks survive Close once [Region.Handover] was
//     called; the native reclaim primitive frees them. Before handover Close
//     frees them, so a failed call leaks nothing.
//
// # Ownership
//
// [Owned] is a codec-owned buffer freed with its region. [Owned.Lend]
// produces a [Borrowed]: the view through which library-owned VL payloads are
// read. Reclaim invalidates the Borrowed, after which reads fail with
// [ErrReclaimed] instead of touching freed memory.
package native
