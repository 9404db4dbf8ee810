// Package alloc manages a linear address space.
//
// It backs two address spaces in this module: the simulated native heap
// (malloc/free of payload buffers handed across the native boundary) and the
// library's storage image (placement of global heap collections and raw
// container data).
//
// # Allocator
//
// The [Allocator] type provides thread-safe space management:
//
//   - First-fit reuse: freed blocks are kept in an address-sorted,
//     coalesced free list and reused before the space grows.
//   - Aligned allocation: addresses can be aligned to a boundary
//     (e.g., the platform word).
//   - Live-block tracking: [Allocator.Free] of an address that is not a live
//     block start fails with [ErrNotAllocated], which is how double frees
//     are caught.
//   - Statistics: live blocks and bytes make leaks observable in tests.
//
// # Usage
//
//	a := alloc.New(16)            // 0..15 are never handed out
//	p := a.AllocAligned(24, 8)    // word-aligned block
//	_, err := a.Free(p)
//	_, err = a.Free(p)            // ErrNotAllocated
package alloc
