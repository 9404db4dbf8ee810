package native

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/alloc"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// Ptr is an address in native memory. Null is 0.
type Ptr uint64

// Null is the null native pointer.
const Null Ptr = 0

var (
	// ErrNullPointer is returned when a null pointer is dereferenced.
	ErrNullPointer = errors.New("null native pointer")
	// ErrNotBlock is returned for a pointer that is not the start of a
	// live block.
	ErrNotBlock = errors.New("pointer is not a live block")
	// ErrUnterminated is returned for a string with no NUL in its block.
	ErrUnterminated = errors.New("string is not NUL-terminated")
)

// Heap is malloc/free over a native Memory. It is shared by the native
// library (allocations it makes while reading) and by codec regions.
type Heap struct {
	mem   Memory
	space *alloc.Allocator
	cfg   binary.Config
	log   *zap.Logger
}

// NewHeap creates a heap over mem. The first two words are never handed
// out so that 0 is always an invalid address.
func NewHeap(mem Memory, log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	word := mem.WordSize()
	return &Heap{
		mem:   mem,
		space: alloc.New(uint64(2 * word)),
		cfg:   binary.WordConfig(word),
		log:   log,
	}
}

// WordSize returns the platform word of the underlying memory.
func (h *Heap) WordSize() int {
	return h.cfg.OffsetSize
}

// Config returns the word configuration for binary readers and writers.
func (h *Heap) Config() binary.Config {
	return h.cfg
}

// Malloc allocates a word-aligned block of size bytes, zero-filled.
// Malloc(0) returns a unique non-null pointer.
func (h *Heap) Malloc(size uint64) (Ptr, error) {
	addr := h.space.AllocAligned(size, uint64(h.WordSize()))
	n := size
	if n == 0 {
		n = 1
	}
	if err := h.mem.Grow(addr + n); err != nil {
		h.space.Free(addr)
		return Null, fmt.Errorf("malloc(%d): %w", size, err)
	}
	if err := h.zero(Ptr(addr), n); err != nil {
		h.space.Free(addr)
		return Null, fmt.Errorf("malloc(%d): %w", size, err)
	}
	return Ptr(addr), nil
}

func (h *Heap) zero(p Ptr, n uint64) error {
	_, err := h.mem.WriteAt(make([]byte, n), int64(p))
	return err
}

// Free releases a block returned by Malloc. Freeing Null is a no-op;
// freeing anything else that is not a live block start is an error.
func (h *Heap) Free(p Ptr) error {
	if p == Null {
		return nil
	}
	_, err := h.space.Free(uint64(p))
	return err
}

// BlockSize reports the size of the live block starting at p.
func (h *Heap) BlockSize(p Ptr) (uint64, bool) {
	return h.space.SizeOf(uint64(p))
}

// Read copies n bytes starting at p.
func (h *Heap) Read(p Ptr, n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if p == Null {
		return nil, ErrNullPointer
	}
	buf := make([]byte, n)
	if _, err := h.mem.ReadAt(buf, int64(p)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Write copies data to p.
func (h *Heap) Write(p Ptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if p == Null {
		return ErrNullPointer
	}
	_, err := h.mem.WriteAt(data, int64(p))
	return err
}

// Reader returns a word-configured reader positioned at p.
func (h *Heap) Reader(p Ptr) *binary.Reader {
	return binary.NewReader(h.mem, h.cfg).At(int64(p))
}

// Writer returns a word-configured writer positioned at p.
func (h *Heap) Writer(p Ptr) *binary.Writer {
	return binary.NewWriter(h.mem, h.cfg).At(int64(p))
}

// ReadWord reads one platform word at p.
func (h *Heap) ReadWord(p Ptr) (uint64, error) {
	if p == Null {
		return 0, ErrNullPointer
	}
	return h.Reader(p).ReadOffset()
}

// WriteWord writes one platform word at p.
func (h *Heap) WriteWord(p Ptr, v uint64) error {
	if p == Null {
		return ErrNullPointer
	}
	return h.Writer(p).WriteOffset(v)
}

// CString reads a NUL-terminated byte string at p, without the terminator.
// The read is bounded by the block size when p is a block start, and by
// max otherwise.
func (h *Heap) CString(p Ptr, max int) ([]byte, error) {
	if p == Null {
		return nil, ErrNullPointer
	}
	limit := uint64(max)
	if size, ok := h.BlockSize(p); ok && size < limit {
		limit = size
	}
	if end := h.mem.Size(); uint64(p)+limit > end {
		limit = end - uint64(p)
	}
	buf, err := h.Read(p, int(limit))
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return buf[:i], nil
	}
	return buf, nil
}

// Stats returns allocation statistics of the heap.
func (h *Heap) Stats() alloc.Stats {
	return h.space.Stats()
}

// Validate checks the heap's block bookkeeping.
func (h *Heap) Validate() error {
	return h.space.Validate()
}

// Close releases the underlying memory.
func (h *Heap) Close() error {
	return h.mem.Close()
}

// BlockString reads the NUL-terminated string at the start of the block
// p, without the terminator. The whole block is scanned, so the length is
// bounded only by the allocation.
func (h *Heap) BlockString(p Ptr) ([]byte, error) {
	if p == Null {
		return nil, ErrNullPointer
	}
	size, ok := h.BlockSize(p)
	if !ok {
		return nil, fmt.Errorf("string at %#x: %w", uint64(p), ErrNotBlock)
	}
	buf, err := h.Read(p, int(size))
	if err != nil {
		return nil, err
	}
	i := bytes.IndexByte(buf, 0)
	if i < 0 {
		return nil, fmt.Errorf("string at %#x in a %d-byte block: %w", uint64(p), size, ErrUnterminated)
	}
	return buf[:i], nil
}
