package vl

import (
	"bytes"
	"strings"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// stringCodec handles VL strings: one pointer word per element, pointing
// at a NUL-terminated byte string or null.
type stringCodec struct {
	word int
}

func (c *stringCodec) class() Class { return ClassVariableString }
func (c *stringCodec) size() int    { return c.word }
func (c *stringCodec) hasVL() bool  { return true }

// encode never leaves a slot null: a null value is stored as a one-byte
// empty string.
func (c *stringCodec) encode(e *encoder, v Value, b *block, off int) error {
	var s string
	switch v := v.(type) {
	case nil:
	case String:
		s = string(v)
	default:
		return mismatch("%s for a vlen string", shape(v))
	}
	if strings.IndexByte(s, 0) >= 0 {
		return mismatch("string contains a NUL byte")
	}
	if len(s) > e.maxStr {
		return newError("", KindBufferSizeMismatch).
			Detail("%d-byte string exceeds the %d-byte limit", len(s), e.maxStr).Build()
	}
	b.link(off, &block{data: append([]byte(s), 0)})
	return nil
}

// decode maps a null slot to "".
func (c *stringCodec) decode(d *decoder, src []byte) (Value, error) {
	p := native.Ptr(d.getWord(src))
	if p == native.Null {
		return String(""), nil
	}
	s, err := d.buf.CString(p, d.maxStr)
	if err != nil {
		return nil, err
	}
	return String(toValidUTF8(s)), nil
}

func toValidUTF8(b []byte) string {
	return string(bytes.ToValidUTF8(b, []byte("\uFFFD")))
}
