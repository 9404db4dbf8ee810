package vl

import (
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

// compoundCodec handles records of named members at fixed byte offsets.
type compoundCodec struct {
	stride  int
	members []member
	vl      bool
}

type member struct {
	name   string
	offset int
	codec  codec
}

func compileCompound(dt *message.Datatype, word int) (codec, error) {
	c := &compoundCodec{stride: int(dt.Size), members: make([]member, 0, len(dt.Members))}
	seen := make(map[string]bool, len(dt.Members))
	for _, m := range dt.Members {
		if seen[m.Name] {
			return nil, invalidType("duplicate member %q", m.Name)
		}
		seen[m.Name] = true

		mc, err := compile(m.Type, word)
		if err != nil {
			return nil, within(err, m.Name)
		}
		if end := int(m.ByteOffset) + mc.size(); end > c.stride {
			return nil, within(invalidType("member ends at byte %d of a %d-byte record", end, c.stride), m.Name)
		}
		c.members = append(c.members, member{name: m.Name, offset: int(m.ByteOffset), codec: mc})
		c.vl = c.vl || mc.hasVL()
	}
	return c, nil
}

func (c *compoundCodec) class() Class { return ClassCompound }
func (c *compoundCodec) size() int    { return c.stride }
func (c *compoundCodec) hasVL() bool  { return c.vl }

// encode takes the members by name, in any order. Every declared member
// must be present and no other.
func (c *compoundCodec) encode(e *encoder, v Value, b *block, off int) error {
	fields, ok := v.(Fields)
	if !ok {
		return mismatch("%s for a compound of %d members", shape(v), len(c.members))
	}
	if len(fields) != len(c.members) {
		for _, f := range fields {
			if !c.has(f.Name) {
				return within(mismatch("no such member"), f.Name)
			}
		}
	}
	for _, m := range c.members {
		fv, ok := fields.Get(m.name)
		if !ok {
			return within(mismatch("member missing"), m.name)
		}
		if err := m.codec.encode(e, fv, b, off+m.offset); err != nil {
			return within(err, m.name)
		}
	}
	if len(fields) != len(c.members) {
		return mismatch("%d fields for a compound of %d members", len(fields), len(c.members))
	}
	return nil
}

func (c *compoundCodec) has(name string) bool {
	for _, m := range c.members {
		if m.name == name {
			return true
		}
	}
	return false
}

func (c *compoundCodec) decode(d *decoder, src []byte) (Value, error) {
	out := make(Fields, len(c.members))
	for i, m := range c.members {
		v, err := m.codec.decode(d, src[m.offset:])
		if err != nil {
			return nil, within(err, m.name)
		}
		out[i] = Field{Name: m.name, Value: v}
	}
	return out, nil
}
