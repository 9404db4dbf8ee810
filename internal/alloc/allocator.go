package alloc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotAllocated is returned by Free for an address that is not the start
// of a live block (never allocated, or already freed).
var ErrNotAllocated = errors.New("address is not a live allocation")

// Allocator manages a linear address space. Allocations are placed in the
// first free block that fits, falling back to the end of the space.
type Allocator struct {
	mu sync.Mutex

	// eofAddr is the end of the space handed out so far
	eofAddr uint64

	// baseAddr is the lowest address that can be allocated; addresses below
	// it are never returned, so 0 can serve as a null address
	baseAddr uint64

	// live maps block start to block metadata
	live map[uint64]Allocation

	// freeBlocks is kept sorted by address and coalesced
	freeBlocks []FreeBlock

	stats Stats
}

// Allocation represents a live block.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string // Optional tag for debugging
}

// FreeBlock represents a freed block of space available for reuse.
type FreeBlock struct {
	Addr uint64
	Size uint64
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64 // Number of allocations made
	TotalFrees       uint64 // Number of blocks freed
	TotalBytesAlloc  uint64 // Total bytes allocated
	TotalBytesFree   uint64 // Total bytes freed
	LiveBlocks       uint64 // Blocks allocated and not yet freed
	LiveBytes        uint64 // Bytes allocated and not yet freed
	LargestAlloc     uint64 // Largest single allocation
}

// New creates a new Allocator starting at the given base address.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
		live:     make(map[uint64]Allocation),
	}
}

// Alloc allocates a block of the given size and returns its address.
// A zero size is rounded up to one byte so every allocation has a unique
// address.
func (a *Allocator) Alloc(size uint64) uint64 {
	return a.AllocAligned(size, 1)
}

// AllocTagged allocates a block with a tag for debugging.
func (a *Allocator) AllocTagged(size uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, 1, tag)
}

// AllocAligned allocates a block whose address is a multiple of alignment.
func (a *Allocator) AllocAligned(size uint64, alignment uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, alignment, "")
}

func (a *Allocator) allocLocked(size, alignment uint64, tag string) uint64 {
	if size == 0 {
		size = 1
	}
	if alignment == 0 {
		alignment = 1
	}

	addr, ok := a.takeFreeLocked(size, alignment)
	if !ok {
		addr = alignUp(a.eofAddr, alignment)
		if addr > a.eofAddr {
			// The alignment gap becomes reusable space
			a.insertFreeLocked(FreeBlock{Addr: a.eofAddr, Size: addr - a.eofAddr})
		}
		a.eofAddr = addr + size
	}

	a.live[addr] = Allocation{Addr: addr, Size: size, Tag: tag}

	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	a.stats.LiveBlocks++
	a.stats.LiveBytes += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}

	return addr
}

// takeFreeLocked carves an aligned block out of the first free block that
// can hold it.
func (a *Allocator) takeFreeLocked(size, alignment uint64) (uint64, bool) {
	for i, fb := range a.freeBlocks {
		start := alignUp(fb.Addr, alignment)
		end := fb.Addr + fb.Size
		if start+size > end {
			continue
		}

		a.freeBlocks = append(a.freeBlocks[:i], a.freeBlocks[i+1:]...)
		if start > fb.Addr {
			a.insertFreeLocked(FreeBlock{Addr: fb.Addr, Size: start - fb.Addr})
		}
		if start+size < end {
			a.insertFreeLocked(FreeBlock{Addr: start + size, Size: end - start - size})
		}
		return start, true
	}
	return 0, false
}

// Free releases the block starting at addr and returns its size.
func (a *Allocator) Free(addr uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	blk, ok := a.live[addr]
	if !ok {
		return 0, fmt.Errorf("free 0x%x: %w", addr, ErrNotAllocated)
	}
	delete(a.live, addr)

	a.insertFreeLocked(FreeBlock{Addr: blk.Addr, Size: blk.Size})

	a.stats.TotalFrees++
	a.stats.TotalBytesFree += blk.Size
	a.stats.LiveBlocks--
	a.stats.LiveBytes -= blk.Size

	return blk.Size, nil
}

// insertFreeLocked adds a block to the sorted free list, merging neighbours.
func (a *Allocator) insertFreeLocked(fb FreeBlock) {
	if fb.Size == 0 {
		return
	}
	i := sort.Search(len(a.freeBlocks), func(i int) bool {
		return a.freeBlocks[i].Addr >= fb.Addr
	})
	a.freeBlocks = append(a.freeBlocks, FreeBlock{})
	copy(a.freeBlocks[i+1:], a.freeBlocks[i:])
	a.freeBlocks[i] = fb

	// Merge with the following block
	if i+1 < len(a.freeBlocks) && a.freeBlocks[i].Addr+a.freeBlocks[i].Size == a.freeBlocks[i+1].Addr {
		a.freeBlocks[i].Size += a.freeBlocks[i+1].Size
		a.freeBlocks = append(a.freeBlocks[:i+1], a.freeBlocks[i+2:]...)
	}
	// Merge with the preceding block
	if i > 0 && a.freeBlocks[i-1].Addr+a.freeBlocks[i-1].Size == a.freeBlocks[i].Addr {
		a.freeBlocks[i-1].Size += a.freeBlocks[i].Size
		a.freeBlocks = append(a.freeBlocks[:i], a.freeBlocks[i+1:]...)
	}
}

// SizeOf returns the size of the live block starting at addr.
func (a *Allocator) SizeOf(addr uint64) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	blk, ok := a.live[addr]
	return blk.Size, ok
}

// EOFAddr returns the end of the space handed out so far.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// BaseAddr returns the base address (start of allocatable space).
func (a *Allocator) BaseAddr() uint64 {
	return a.baseAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Allocations returns the live blocks sorted by address.
func (a *Allocator) Allocations() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]Allocation, 0, len(a.live))
	for _, blk := range a.live {
		result = append(result, blk)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Addr < result[j].Addr })
	return result
}

// FreeBlocks returns a copy of the free list.
func (a *Allocator) FreeBlocks() []FreeBlock {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]FreeBlock, len(a.freeBlocks))
	copy(result, a.freeBlocks)
	return result
}

// Validate checks that live and free blocks don't overlap and are within bounds.
func (a *Allocator) Validate() error {
	blocks := a.Allocations()
	for _, fb := range a.FreeBlocks() {
		blocks = append(blocks, Allocation{Addr: fb.Addr, Size: fb.Size, Tag: "free"})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Addr < blocks[j].Addr })

	eof := a.EOFAddr()
	for i, blk := range blocks {
		if blk.Addr < a.baseAddr {
			return fmt.Errorf("block at 0x%x is before base address 0x%x", blk.Addr, a.baseAddr)
		}
		if blk.Addr+blk.Size > eof {
			return fmt.Errorf("block at 0x%x size %d extends past end 0x%x", blk.Addr, blk.Size, eof)
		}
		if i > 0 {
			prev := blocks[i-1]
			if prev.Addr+prev.Size > blk.Addr {
				return fmt.Errorf("overlapping blocks: [0x%x, size %d] and [0x%x, size %d]",
					prev.Addr, prev.Size, blk.Addr, blk.Size)
			}
		}
	}
	return nil
}

// AllocFunc returns an allocation function for writers that place
// structures by address.
func (a *Allocator) AllocFunc() func(size int64) uint64 {
	return func(size int64) uint64 {
		if size < 0 {
			panic("negative allocation size")
		}
		return a.Alloc(uint64(size))
	}
}

func alignUp(addr, alignment uint64) uint64 {
	if alignment <= 1 {
		return addr
	}
	if r := addr % alignment; r != 0 {
		return addr + alignment - r
	}
	return addr
}
