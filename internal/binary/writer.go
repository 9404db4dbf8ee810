package binary

import (
	"encoding/binary"
	"io"
)

// Writer writes fixed-width integers and platform words to an io.WriterAt.
type Writer struct {
	dst io.WriterAt
	cfg Config
	pos int64
}

// NewWriter creates a binary writer with the given configuration.
func NewWriter(dst io.WriterAt, cfg Config) *Writer {
	return &Writer{dst: dst, cfg: cfg}
}

// At returns a writer over the same destination starting at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{dst: w.dst, cfg: w.cfg, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes data at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.dst.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WriteUintN writes v as an unsigned integer of n bytes.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	EncodeUint(w.cfg.ByteOrder, buf, v, n)
	return w.WriteBytes(buf)
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUintN(uint64(v), 1) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }

// WriteOffset writes an address of the configured offset size.
func (w *Writer) WriteOffset(v uint64) error {
	return w.WriteUintN(v, w.cfg.OffsetSize)
}

// WriteLength writes a count of the configured length size.
func (w *Writer) WriteLength(v uint64) error {
	return w.WriteUintN(v, w.cfg.LengthSize)
}

// LengthSize returns the configured length size in bytes.
func (w *Writer) LengthSize() int {
	return w.cfg.LengthSize
}

// EncodeUint encodes v into the first size bytes of buf.
func EncodeUint(order binary.ByteOrder, buf []byte, v uint64, size int) {
	switch size {
	case 1:
		buf[0] = uint8(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	default:
		for i := 0; i < size; i++ {
			buf[i] = byte(v >> (8 * i))
		}
	}
}
