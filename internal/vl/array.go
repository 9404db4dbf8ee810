package vl

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

// arrayCodec handles fixed-size arrays. The element count comes from the
// type's dimensions; sub-elements are laid out in row-major order and
// decode as one flat List.
type arrayCodec struct {
	base codec
	dims []uint32
	n    int
}

func compileArray(dt *message.Datatype, word int) (codec, error) {
	if dt.BaseType == nil {
		return nil, invalidType("array without a base type")
	}
	n := dt.ArrayLen()
	if n == 0 {
		return nil, invalidType("array with no elements")
	}
	base, err := compile(dt.BaseType, word)
	if err != nil {
		return nil, within(err, "[]")
	}
	if err := checkedSize("array", int(dt.Size), n*base.size()); err != nil {
		return nil, err
	}
	return &arrayCodec{base: base, dims: dt.ArrayDims, n: n}, nil
}

func (c *arrayCodec) class() Class { return ClassArray }
func (c *arrayCodec) size() int    { return c.n * c.base.size() }
func (c *arrayCodec) hasVL() bool  { return c.base.hasVL() }

func (c *arrayCodec) encode(e *encoder, v Value, b *block, off int) error {
	items, ok := v.(List)
	if !ok {
		return mismatch("%s for array%v", shape(v), c.dims)
	}
	if len(items) != c.n {
		return mismatch("%d items for array%v of %d", len(items), c.dims, c.n)
	}
	bsz := c.base.size()
	for i, item := range items {
		if err := c.base.encode(e, item, b, off+i*bsz); err != nil {
			return within(err, fmt.Sprintf("[%d]", i))
		}
	}
	return nil
}

func (c *arrayCodec) decode(d *decoder, src []byte) (Value, error) {
	bsz := c.base.size()
	out := make(List, c.n)
	for i := range out {
		v, err := c.base.decode(d, src[i*bsz:])
		if err != nil {
			return nil, within(err, fmt.Sprintf("[%d]", i))
		}
		out[i] = v
	}
	return out, nil
}
