package h5lib

import (
	"fmt"
	"slices"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/dtype"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/heap"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// converter moves elements between the stored (packed, heap-referencing)
// layout and native memory layout for one read or write call.
type converter struct {
	lib  *Library
	heap *native.Heap
	word native.Ptr
	cfg  binary.Config

	// read side: native blocks allocated so far, freed on failure
	allocated []native.Ptr

	// write side: heap objects queued so far; slots index ids once flushed
	hw    *heap.Writer
	added int
	ids   []heap.ID
}

// fixup is a heap ID that can only be written once its object is flushed.
type fixup struct {
	dst  []byte
	slot int
}

func (l *Library) newConverter() *converter {
	return &converter{
		lib:  l,
		heap: l.heap,
		word: native.Ptr(l.heap.WordSize()),
		cfg:  l.cfg,
		hw:   l.store.NewWriter(),
	}
}

func (c *converter) refSize() int {
	return int(dtype.VarLenRefSize(c.cfg.OffsetSize))
}

func (c *converter) decodeRef(b []byte) (uint32, heap.ID) {
	n := c.cfg.ByteOrder.Uint32(b[0:4])
	addr := binary.DecodeUint(c.cfg.ByteOrder, b[4:], c.cfg.OffsetSize)
	idx := c.cfg.ByteOrder.Uint32(b[4+c.cfg.OffsetSize:])
	return n, heap.ID{CollectionAddress: addr, ObjectIndex: idx}
}

func (c *converter) putID(b []byte, id heap.ID) {
	binary.EncodeUint(c.cfg.ByteOrder, b, id.CollectionAddress, c.cfg.OffsetSize)
	c.cfg.ByteOrder.PutUint32(b[c.cfg.OffsetSize:], id.ObjectIndex)
}

func (c *converter) malloc(size int) (native.Ptr, error) {
	p, err := c.heap.Malloc(uint64(size))
	if err != nil {
		return native.Null, err
	}
	c.allocated = append(c.allocated, p)
	return p, nil
}

// rollback frees every native block allocated by a failed read.
func (c *converter) rollback() {
	for _, p := range c.allocated {
		c.heap.Free(p)
	}
	c.allocated = nil
}

// scalar converts a scalar element between two equivalent types, swapping
// bytes when their byte orders differ.
func scalar(to, from *message.Datatype, raw []byte) []byte {
	out := slices.Clone(raw[:from.Size])
	switch from.Class {
	case message.ClassFixedPoint, message.ClassFloatPoint, message.ClassBitfield, message.ClassEnum:
		if to.ByteOrder != from.ByteOrder {
			slices.Reverse(out)
		}
	}
	return out
}

// toMemory converts one stored element into native memory at dst,
// allocating VL payloads and strings on the native heap.
func (c *converter) toMemory(mem, stored *message.Datatype, file []byte, dst native.Ptr) error {
	switch mem.Class {
	case message.ClassVarLen:
		n, id := c.decodeRef(file)

		if mem.IsVarLenString {
			if id.IsNull() {
				return c.heap.WriteWord(dst, 0)
			}
			data, err := c.lib.store.Get(id)
			if err != nil {
				return err
			}
			p, err := c.malloc(len(data) + 1)
			if err != nil {
				return err
			}
			if err := c.heap.Write(p, data); err != nil {
				return err
			}
			return c.heap.WriteWord(dst, uint64(p))
		}

		if n == 0 || id.IsNull() {
			if err := c.heap.WriteWord(dst, 0); err != nil {
				return err
			}
			return c.heap.WriteWord(dst+c.word, 0)
		}
		data, err := c.lib.store.Get(id)
		if err != nil {
			return err
		}
		fbs := int(dtype.FileSize(stored.VarLenType, c.cfg.OffsetSize))
		mbs := int(mem.VarLenType.Size)
		if len(data) != int(n)*fbs {
			return fmt.Errorf("vlen payload has %d bytes, want %d elements of %d", len(data), n, fbs)
		}
		p, err := c.malloc(int(n) * mbs)
		if err != nil {
			return err
		}
		for j := 0; j < int(n); j++ {
			if err := c.toMemory(mem.VarLenType, stored.VarLenType, data[j*fbs:], p+native.Ptr(j*mbs)); err != nil {
				return err
			}
		}
		if err := c.heap.WriteWord(dst, uint64(n)); err != nil {
			return err
		}
		return c.heap.WriteWord(dst+c.word, uint64(p))

	case message.ClassArray:
		fbs := int(dtype.FileSize(stored.BaseType, c.cfg.OffsetSize))
		mbs := int(mem.BaseType.Size)
		for i := 0; i < mem.ArrayLen(); i++ {
			if err := c.toMemory(mem.BaseType, stored.BaseType, file[i*fbs:], dst+native.Ptr(i*mbs)); err != nil {
				return err
			}
		}
		return nil

	case message.ClassCompound:
		offs := dtype.FileOffsets(stored, c.cfg.OffsetSize)
		for i, m := range mem.Members {
			if err := c.toMemory(m.Type, stored.Members[i].Type, file[offs[i]:], dst+native.Ptr(m.ByteOffset)); err != nil {
				return fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
		return nil

	default:
		return c.heap.Write(dst, scalar(mem, stored, file))
	}
}

// toFile converts the native element at src into stored layout in out.
// VL payloads are queued as heap objects; their IDs are recorded in fx.
func (c *converter) toFile(mem, stored *message.Datatype, src native.Ptr, out []byte, fx *[]fixup) error {
	switch mem.Class {
	case message.ClassVarLen:
		clear(out[:c.refSize()])

		if mem.IsVarLenString {
			p, err := c.heap.ReadWord(src)
			if err != nil {
				return err
			}
			if native.Ptr(p) == native.Null {
				// never written
				return nil
			}
			s, err := c.heap.BlockString(native.Ptr(p))
			if err != nil {
				return err
			}
			return c.addObject(out, uint32(len(s)), s, nil, fx)
		}

		count, err := c.heap.ReadWord(src)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		p, err := c.heap.ReadWord(src + c.word)
		if err != nil {
			return err
		}
		if native.Ptr(p) == native.Null {
			return fmt.Errorf("vlen element of length %d has a null payload", count)
		}
		fbs := int(dtype.FileSize(stored.VarLenType, c.cfg.OffsetSize))
		mbs := int(mem.VarLenType.Size)
		payload := make([]byte, int(count)*fbs)
		var inner []fixup
		for j := 0; j < int(count); j++ {
			if err := c.toFile(mem.VarLenType, stored.VarLenType, native.Ptr(p)+native.Ptr(j*mbs), payload[j*fbs:], &inner); err != nil {
				return err
			}
		}
		return c.addObject(out, uint32(count), payload, inner, fx)

	case message.ClassArray:
		fbs := int(dtype.FileSize(stored.BaseType, c.cfg.OffsetSize))
		mbs := int(mem.BaseType.Size)
		for i := 0; i < mem.ArrayLen(); i++ {
			if err := c.toFile(mem.BaseType, stored.BaseType, src+native.Ptr(i*mbs), out[i*fbs:], fx); err != nil {
				return err
			}
		}
		return nil

	case message.ClassCompound:
		offs := dtype.FileOffsets(stored, c.cfg.OffsetSize)
		for i, m := range mem.Members {
			if err := c.toFile(m.Type, stored.Members[i].Type, src+native.Ptr(m.ByteOffset), out[offs[i]:], fx); err != nil {
				return fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
		return nil

	default:
		raw, err := c.heap.Read(src, int(mem.Size))
		if err != nil {
			return err
		}
		copy(out, scalar(stored, mem, raw))
		return nil
	}
}

// addObject queues payload as a heap object referenced from out. Objects
// the payload itself references are flushed first so their IDs are known.
func (c *converter) addObject(out []byte, length uint32, payload []byte, inner []fixup, fx *[]fixup) error {
	if len(inner) > 0 {
		if err := c.flush(inner); err != nil {
			return err
		}
	}
	c.cfg.ByteOrder.PutUint32(out[0:4], length)
	c.hw.Add(payload)
	*fx = append(*fx, fixup{dst: out[4:], slot: c.added})
	c.added++
	return nil
}

// flush writes queued objects and resolves fx.
func (c *converter) flush(fx []fixup) error {
	ids, err := c.hw.Flush()
	if err != nil {
		return fmt.Errorf("writing heap collection: %w", err)
	}
	c.ids = append(c.ids, ids...)
	for _, f := range fx {
		c.putID(f.dst, c.ids[f.slot])
	}
	return nil
}

// containsVL reports whether reclaiming an element of dt frees anything.
func containsVL(dt *message.Datatype) bool {
	switch dt.Class {
	case message.ClassVarLen:
		return true
	case message.ClassArray:
		return containsVL(dt.BaseType)
	case message.ClassCompound:
		for _, m := range dt.Members {
			if containsVL(m.Type) {
				return true
			}
		}
	}
	return false
}
