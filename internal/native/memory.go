package native

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Memory is a flat native address space.
type Memory interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the number of addressable bytes.
	Size() uint64
	// Grow makes at least minSize bytes addressable.
	Grow(minSize uint64) error
	// WordSize returns the platform word (pointer and length width).
	WordSize() int
	Close() error
}

// SliceMemory is a Memory backed by a Go byte slice.
type SliceMemory struct {
	buf      []byte
	wordSize int
}

// NewSliceMemory creates a slice-backed address space with the given word size.
func NewSliceMemory(wordSize int) (*SliceMemory, error) {
	if wordSize != 4 && wordSize != 8 {
		return nil, fmt.Errorf("unsupported word size %d", wordSize)
	}
	return &SliceMemory{buf: make([]byte, 4096), wordSize: wordSize}, nil
}

func (m *SliceMemory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, fmt.Errorf("read [0x%x,+%d) outside native memory of %d bytes", off, len(p), len(m.buf))
	}
	return copy(p, m.buf[off:]), nil
}

func (m *SliceMemory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, fmt.Errorf("write [0x%x,+%d) outside native memory of %d bytes", off, len(p), len(m.buf))
	}
	return copy(m.buf[off:], p), nil
}

func (m *SliceMemory) Size() uint64 { return uint64(len(m.buf)) }

func (m *SliceMemory) Grow(minSize uint64) error {
	if minSize <= uint64(len(m.buf)) {
		return nil
	}
	size := uint64(len(m.buf))
	for size < minSize {
		size *= 2
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

func (m *SliceMemory) WordSize() int { return m.wordSize }

func (m *SliceMemory) Close() error {
	m.buf = nil
	return nil
}

// wasmPageSize is the WebAssembly linear memory page size.
const wasmPageSize = 65536

// memoryModule is a WebAssembly module whose only content is one exported
// linear memory ("mem", one page, no maximum).
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version 1
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section
	0x07, 0x07, 0x01, 0x03, 'm', 'e', 'm', 0x02, 0x00, // export section
}

// WasmMemory is a Memory backed by a wazero linear memory. Addresses are
// 32-bit, so the platform word is 4 bytes.
type WasmMemory struct {
	ctx context.Context
	rt  wazero.Runtime
	mem api.Memory
}

// NewWasmMemory instantiates a sandboxed linear memory.
func NewWasmMemory(ctx context.Context) (*WasmMemory, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	mod, err := rt.Instantiate(ctx, memoryModule)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiating memory module: %w", err)
	}
	mem := mod.ExportedMemory("mem")
	if mem == nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("memory module has no exported memory")
	}
	return &WasmMemory{ctx: ctx, rt: rt, mem: mem}, nil
}

func (m *WasmMemory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(^uint32(0)) {
		return 0, fmt.Errorf("read at 0x%x outside linear memory", off)
	}
	view, ok := m.mem.Read(uint32(off), uint32(len(p)))
	if !ok {
		return 0, fmt.Errorf("read [0x%x,+%d) outside linear memory of %d bytes", off, len(p), m.mem.Size())
	}
	return copy(p, view), nil
}

func (m *WasmMemory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(^uint32(0)) {
		return 0, fmt.Errorf("write at 0x%x outside linear memory", off)
	}
	if !m.mem.Write(uint32(off), p) {
		return 0, fmt.Errorf("write [0x%x,+%d) outside linear memory of %d bytes", off, len(p), m.mem.Size())
	}
	return len(p), nil
}

func (m *WasmMemory) Size() uint64 { return uint64(m.mem.Size()) }

func (m *WasmMemory) Grow(minSize uint64) error {
	cur := uint64(m.mem.Size())
	if minSize <= cur {
		return nil
	}
	pages := (minSize - cur + wasmPageSize - 1) / wasmPageSize
	if _, ok := m.mem.Grow(uint32(pages)); !ok {
		return fmt.Errorf("growing linear memory by %d pages: limit reached", pages)
	}
	return nil
}

func (m *WasmMemory) WordSize() int { return 4 }

func (m *WasmMemory) Close() error {
	return m.rt.Close(m.ctx)
}
