package vl

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// hvlCodec handles generic VL sequences: a {count, pointer} record of two
// platform words whose payload holds count elements of the base type.
type hvlCodec struct {
	elem codec
	word int
	// text sequences of one-byte characters carry their terminator and
	// decode as String.
	text bool
}

func compileHVL(dt *message.Datatype, word int) (codec, error) {
	if dt.VarLenType == nil {
		return nil, invalidType("vlen sequence without a base type")
	}
	if err := checkedSize("vlen record", int(dt.Size), 2*word); err != nil {
		return nil, err
	}
	elem, err := compile(dt.VarLenType, word)
	if err != nil {
		return nil, within(err, "[]")
	}
	return &hvlCodec{elem: elem, word: word, text: byteString(dt.VarLenType)}, nil
}

func (c *hvlCodec) class() Class { return ClassVariableLength }
func (c *hvlCodec) size() int    { return 2 * c.word }
func (c *hvlCodec) hasVL() bool  { return true }

// encode writes the record and links a payload block of count elements.
// A null value becomes an empty list with a real zero-length payload, so
// the native side never sees a null pointer.
func (c *hvlCodec) encode(e *encoder, v Value, b *block, off int) error {
	if c.text {
		return c.encodeText(e, v, b, off)
	}

	var items List
	switch v := v.(type) {
	case nil:
	case List:
		items = v
	default:
		return mismatch("%s for a vlen sequence", shape(v))
	}

	esz := c.elem.size()
	payload := &block{data: make([]byte, len(items)*esz)}
	for i, item := range items {
		if err := c.elem.encode(e, item, payload, i*esz); err != nil {
			return within(err, fmt.Sprintf("[%d]", i))
		}
	}
	e.putWord(b.data[off:], uint64(len(items)))
	b.link(off+c.word, payload)
	return nil
}

func (c *hvlCodec) encodeText(e *encoder, v Value, b *block, off int) error {
	var s string
	switch v := v.(type) {
	case nil:
	case String:
		s = string(v)
	default:
		return mismatch("%s for a vlen text sequence", shape(v))
	}
	if strings.IndexByte(s, 0) >= 0 {
		return mismatch("string contains a NUL byte")
	}
	payload := &block{data: append([]byte(s), 0)}
	e.putWord(b.data[off:], uint64(len(payload.data)))
	b.link(off+c.word, payload)
	return nil
}

func (c *hvlCodec) decode(d *decoder, src []byte) (Value, error) {
	count := d.getWord(src)
	p := native.Ptr(d.getWord(src[c.word:]))

	if count == 0 || p == native.Null {
		if c.text {
			return String(""), nil
		}
		return List{}, nil
	}
	esz := uint64(c.elem.size())
	if count > math.MaxInt32/max(esz, 1) {
		return nil, fmt.Errorf("vlen record claims %d elements", count)
	}
	data, err := d.buf.Read(p, int(count*esz))
	if err != nil {
		return nil, err
	}

	if c.text {
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		return String(toValidUTF8(data)), nil
	}

	out := make(List, count)
	for i := range out {
		v, err := c.elem.decode(d, data[uint64(i)*esz:])
		if err != nil {
			return nil, within(err, fmt.Sprintf("[%d]", i))
		}
		out[i] = v
	}
	return out, nil
}
