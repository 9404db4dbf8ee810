package binary

import (
	"fmt"
	"io"
)

// Buffer is a growable in-memory byte image implementing io.ReaderAt and
// io.WriterAt. Writes past the end extend the image with zeros.
type Buffer struct {
	buf []byte
}

// NewBuffer creates a buffer with the given initial size.
func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	end := int(off) + len(p)
	if end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Len returns the current image size.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Bytes returns the underlying image. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}
