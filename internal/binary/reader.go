// Package binary provides word-sized binary I/O over native memory and the
// library's storage image.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned when an invalid word or length size is specified.
var ErrInvalidSize = errors.New("invalid word size: must be 2, 4, or 8")

// Config holds reader/writer configuration.
//
// OffsetSize is the width of an address (a native pointer, or a storage
// address inside the library image). LengthSize is the width of a count.
// For native memory both equal the platform word.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // 2, 4, or 8 bytes
	LengthSize int // 2, 4, or 8 bytes
}

// DefaultConfig returns a little-endian configuration with 8-byte words.
func DefaultConfig() Config {
	return WordConfig(8)
}

// WordConfig returns a little-endian configuration where addresses and
// lengths are both one platform word wide.
func WordConfig(wordSize int) Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: wordSize, LengthSize: wordSize}
}

// Validate checks that the sizes are supported.
func (c Config) Validate() error {
	for _, n := range []int{c.OffsetSize, c.LengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return ErrInvalidSize
		}
	}
	return nil
}

// Reader reads fixed-width integers and platform words from an io.ReaderAt.
type Reader struct {
	src io.ReaderAt
	cfg Config
	pos int64
}

// NewReader creates a binary reader with the given configuration.
func NewReader(src io.ReaderAt, cfg Config) *Reader {
	return &Reader{src: src, cfg: cfg}
}

// At returns a reader over the same source starting at offset. The two
// readers keep separate positions.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{src: r.src, cfg: r.cfg, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

func (r *Reader) readUint(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(r.cfg.ByteOrder, buf, n), nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.readUint(1)
	return uint8(v), err
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.readUint(2)
	return uint16(v), err
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.readUint(4)
	return uint32(v), err
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.readUint(8)
}

// ReadOffset reads an address of the configured offset size.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.readUint(r.cfg.OffsetSize)
}

// ReadLength reads a count of the configured length size.
func (r *Reader) ReadLength() (uint64, error) {
	return r.readUint(r.cfg.LengthSize)
}

// LengthSize returns the configured length size in bytes.
func (r *Reader) LengthSize() int {
	return r.cfg.LengthSize
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.cfg.ByteOrder
}

// DecodeUint decodes an unsigned integer of size bytes. Widths other than
// 1, 2, 4 and 8 are always little-endian.
func DecodeUint(order binary.ByteOrder, buf []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
