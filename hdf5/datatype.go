package hdf5

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/dtype"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"
)

// Type describes an element type. Its memory layout depends on the word
// size of the session it is committed to.
type Type struct {
	build func(word int) *message.Datatype
}

func fixed(dt *message.Datatype) Type {
	return Type{build: func(int) *message.Datatype { return dt }}
}

// Numeric element types, little-endian.

func Int8() Type    { return fixed(message.NewFixedPointDatatype(1, true, message.OrderLE)) }
func Int16() Type   { return fixed(message.NewFixedPointDatatype(2, true, message.OrderLE)) }
func Int32() Type   { return fixed(message.NewFixedPointDatatype(4, true, message.OrderLE)) }
func Int64() Type   { return fixed(message.NewFixedPointDatatype(8, true, message.OrderLE)) }
func Uint8() Type   { return fixed(message.NewFixedPointDatatype(1, false, message.OrderLE)) }
func Uint16() Type  { return fixed(message.NewFixedPointDatatype(2, false, message.OrderLE)) }
func Uint32() Type  { return fixed(message.NewFixedPointDatatype(4, false, message.OrderLE)) }
func Uint64() Type  { return fixed(message.NewFixedPointDatatype(8, false, message.OrderLE)) }
func Float32() Type { return fixed(message.NewFloatDatatype(4, message.OrderLE)) }
func Float64() Type { return fixed(message.NewFloatDatatype(8, message.OrderLE)) }

// FixedString is a null-padded string of n bytes.
func FixedString(n uint32) Type {
	return fixed(message.NewStringDatatype(n, message.PadNullPad, message.CharsetUTF8))
}

// VarLenString is a UTF-8 string of any length.
func VarLenString() Type {
	return Type{build: func(word int) *message.Datatype {
		return message.NewVarLenStringDatatype(message.CharsetUTF8, word)
	}}
}

// VarLen is a sequence of any length of base elements.
func VarLen(base Type) Type {
	return Type{build: func(word int) *message.Datatype {
		return message.NewVarLenSequenceDatatype(base.build(word), word)
	}}
}

// Array is a fixed-size array of base elements, row-major.
func Array(base Type, dims ...uint32) Type {
	return Type{build: func(word int) *message.Datatype {
		return message.NewArrayDatatype(dims, base.build(word))
	}}
}

// FieldDef is one member of a compound type.
type FieldDef struct {
	Name string
	Type Type
}

// Field declares a compound member.
func Field(name string, t Type) FieldDef {
	return FieldDef{Name: name, Type: t}
}

// Compound is a record of named members. Member offsets follow C layout
// rules for the session's word size.
func Compound(fields ...FieldDef) Type {
	return Type{build: func(word int) *message.Datatype {
		types := make([]*message.Datatype, len(fields))
		for i, f := range fields {
			types[i] = f.Type.build(word)
		}
		offsets, size := dtype.NativeLayout(types, word)
		members := make([]message.CompoundMember, len(fields))
		for i, f := range fields {
			members[i] = message.CompoundMember{Name: f.Name, ByteOffset: offsets[i], Type: types[i]}
		}
		return message.NewCompoundDatatype(size, members)
	}}
}

// Datatype is a committed element type.
type Datatype struct {
	s     *Session
	id    h5lib.ID
	dt    *message.Datatype
	class Class
}

// storedType wraps a type handle the library returned for an object.
func (s *Session) storedType(id h5lib.ID) (*Datatype, error) {
	dt, err := s.lib.Datatype(id)
	if err != nil {
		return nil, err
	}
	c, err := vl.Classify(dt)
	if err != nil {
		return nil, err
	}
	return &Datatype{s: s, id: id, dt: dt, class: c}, nil
}

// CommitType registers t with the library.
func (s *Session) CommitType(t Type) (*Datatype, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if t.build == nil {
		return nil, fmt.Errorf("commit type: %w", ErrUnsupported)
	}
	dt := t.build(s.WordSize())
	plan, err := vl.Compile(dt, s.WordSize())
	if err != nil {
		return nil, err
	}
	id, err := s.lib.CommitType(dt)
	if err != nil {
		return nil, fmt.Errorf("commit type: %w", err)
	}
	return &Datatype{s: s, id: id, dt: dt, class: plan.Class()}, nil
}

// Close releases the type handle. Transfers with a closed type fail with
// ErrInvalidTypeHandle.
func (d *Datatype) Close() error {
	return d.s.lib.CloseType(d.id)
}

// Class returns the layout class of the type.
func (d *Datatype) Class() Class {
	return d.class
}

// Size returns the in-memory size of one element.
func (d *Datatype) Size() int {
	return int(d.dt.Size)
}

// ContainsVariableLength reports whether elements reference VL payloads.
func (d *Datatype) ContainsVariableLength() bool {
	return vl.ContainsVariableLength(d.dt)
}

func (d *Datatype) String() string {
	return d.dt.String()
}
