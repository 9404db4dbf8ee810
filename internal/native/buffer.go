package native

import "errors"

// ErrReclaimed is returned when a borrowed buffer is read after its VL
// payloads were reclaimed.
var ErrReclaimed = errors.New("native buffer already reclaimed")

// Owned is a codec-owned buffer. Its storage is freed with its region.
type Owned struct {
	ptr    Ptr
	size   int
	region *Region
}

// Ptr returns the buffer address.
func (o Owned) Ptr() Ptr { return o.ptr }

// Size returns the buffer size in bytes.
func (o Owned) Size() int { return o.size }

// Region returns the region that owns the buffer.
func (o Owned) Region() *Region { return o.region }

// Lend marks the buffer as filled with, or handed to, VL payloads that the
// native library owns. The returned Borrowed is the only way to read those
// payloads, and it stops working once invalidated by reclaim.
func (o Owned) Lend() *Borrowed {
	return &Borrowed{ptr: o.ptr, size: o.size, heap: o.region.heap}
}

// Borrowed is a buffer whose VL payloads belong to the native library and
// must be reclaimed exactly once.
type Borrowed struct {
	ptr         Ptr
	size        int
	heap        *Heap
	invalidated bool
}

// Ptr returns the buffer address for passing to the reclaim primitive.
func (b *Borrowed) Ptr() Ptr { return b.ptr }

// Size returns the size of the top-level buffer.
func (b *Borrowed) Size() int { return b.size }

// WordSize returns the platform word of the heap.
func (b *Borrowed) WordSize() int { return b.heap.WordSize() }

// Bytes copies the top-level buffer.
func (b *Borrowed) Bytes() ([]byte, error) {
	return b.Read(b.ptr, b.size)
}

// Read copies n bytes at p, which may be the buffer or any payload it
// references.
func (b *Borrowed) Read(p Ptr, n int) ([]byte, error) {
	if b.invalidated {
		return nil, ErrReclaimed
	}
	return b.heap.Read(p, n)
}

// CString reads a NUL-terminated payload at p.
func (b *Borrowed) CString(p Ptr, max int) ([]byte, error) {
	if b.invalidated {
		return nil, ErrReclaimed
	}
	return b.heap.CString(p, max)
}

// Invalidate marks the payloads as reclaimed. Subsequent reads fail.
func (b *Borrowed) Invalidate() {
	b.invalidated = true
}

// Invalidated reports whether the payloads were reclaimed.
func (b *Borrowed) Invalidated() bool {
	return b.invalidated
}
