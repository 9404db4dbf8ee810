package message

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// Serialize writes the Datatype to the writer.
func (m *Datatype) Serialize(w *binary.Writer) error {
	// Byte 0: Class (lower 4 bits) + Version (upper 4 bits)
	// Bytes 1-3: Class-specific bit fields (24 bits)
	// Bytes 4-7: Size (32 bits)
	// Bytes 8+: Class-specific properties
	version := uint8(1)
	switch m.Class {
	case ClassCompound:
		version = 3
	case ClassArray:
		version = 2
	}

	classBits := m.ClassBits
	switch m.Class {
	case ClassCompound:
		classBits = uint32(len(m.Members))
	case ClassEnum:
		classBits = uint32(len(m.EnumNames))
	}

	if err := w.WriteUint8(uint8(m.Class) | version<<4); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(classBits), 2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(classBits >> 16)); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		if err := w.WriteUint16(m.BitPrecision); err != nil {
			return err
		}

	case ClassFloatPoint:
		if len(m.Properties) >= 12 {
			return w.WriteBytes(m.Properties[:12])
		}
		return w.WriteBytes(standardFloatProperties(m.Size))

	case ClassOpaque:
		if err := w.WriteBytes([]byte(m.Tag)); err != nil {
			return err
		}
		return w.WriteUint8(0)

	case ClassCompound:
		for i := range m.Members {
			if err := writeCompoundMember(w, &m.Members[i], m.Size); err != nil {
				return err
			}
		}

	case ClassArray:
		if m.BaseType == nil {
			return fmt.Errorf("array datatype has no base type")
		}
		if err := w.WriteUint8(uint8(len(m.ArrayDims))); err != nil {
			return err
		}
		if err := w.WriteZeros(3); err != nil {
			return err
		}
		for _, dim := range m.ArrayDims {
			if err := w.WriteUint32(dim); err != nil {
				return err
			}
		}
		return m.BaseType.Serialize(w)

	case ClassVarLen:
		if m.VarLenType == nil {
			return fmt.Errorf("vlen datatype has no base type")
		}
		return m.VarLenType.Serialize(w)

	case ClassEnum:
		if m.BaseType == nil {
			return fmt.Errorf("enum datatype has no base type")
		}
		if len(m.EnumNames) != len(m.EnumValues) {
			return fmt.Errorf("enum has %d names and %d values", len(m.EnumNames), len(m.EnumValues))
		}
		if err := m.BaseType.Serialize(w); err != nil {
			return err
		}
		for _, name := range m.EnumNames {
			if err := w.WriteBytes(append([]byte(name), 0)); err != nil {
				return err
			}
		}
		for _, v := range m.EnumValues {
			if err := w.WriteBytes(v); err != nil {
				return err
			}
		}
	}

	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *Datatype) SerializedSize() int {
	size := 8

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		size += 4
	case ClassFloatPoint:
		size += 12
	case ClassOpaque:
		size += len(m.Tag) + 1
	case ClassCompound:
		for i := range m.Members {
			mem := &m.Members[i]
			size += len(mem.Name) + 1 + memberOffsetSize(m.Size)
			if mem.Type != nil {
				size += mem.Type.SerializedSize()
			}
		}
	case ClassArray:
		size += 4 + len(m.ArrayDims)*4
		if m.BaseType != nil {
			size += m.BaseType.SerializedSize()
		}
	case ClassVarLen:
		if m.VarLenType != nil {
			size += m.VarLenType.SerializedSize()
		}
	case ClassEnum:
		if m.BaseType != nil {
			size += m.BaseType.SerializedSize()
		}
		for i, name := range m.EnumNames {
			size += len(name) + 1
			if i < len(m.EnumValues) {
				size += len(m.EnumValues[i])
			}
		}
	}

	return size
}

// Encode serializes the datatype into a fresh byte slice.
func (m *Datatype) Encode() ([]byte, error) {
	buf := binary.NewBuffer(0)
	if err := m.Serialize(binary.NewWriter(buf, binary.DefaultConfig())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy produced by a serialize/parse round trip.
func (m *Datatype) Clone() (*Datatype, error) {
	data, err := m.Encode()
	if err != nil {
		return nil, err
	}
	return ParseDatatype(data)
}

// standardFloatProperties returns the IEEE 754 float properties:
// bit_offset(2) + bit_precision(2) + exp_loc(1) + exp_size(1) +
// mant_loc(1) + mant_size(1) + exp_bias(4)
func standardFloatProperties(size uint32) []byte {
	switch size {
	case 4:
		return []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	case 8:
		return []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xFF, 0x03, 0, 0}
	default:
		return make([]byte, 12)
	}
}

// writeCompoundMember writes a version 3 member: name, offset sized by the
// compound size, member type.
func writeCompoundMember(w *binary.Writer, member *CompoundMember, compoundSize uint32) error {
	if err := w.WriteBytes(append([]byte(member.Name), 0)); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(member.ByteOffset), memberOffsetSize(compoundSize)); err != nil {
		return err
	}
	if member.Type == nil {
		return fmt.Errorf("compound member %q has no type", member.Name)
	}
	return member.Type.Serialize(w)
}

// NewFixedPointDatatype creates a new fixed-point (integer) datatype.
func NewFixedPointDatatype(size uint32, signed bool, byteOrder ByteOrder) *Datatype {
	classBits := uint32(byteOrder)
	if signed {
		classBits |= 0x08
	}

	return &Datatype{
		Class:        ClassFixedPoint,
		ClassBits:    classBits,
		Size:         size,
		ByteOrder:    byteOrder,
		BitPrecision: uint16(size * 8),
		Signed:       signed,
	}
}

// NewBitfieldDatatype creates a bitfield datatype of the given byte size.
func NewBitfieldDatatype(size uint32) *Datatype {
	return &Datatype{
		Class:        ClassBitfield,
		Size:         size,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloatDatatype creates a new floating-point datatype.
func NewFloatDatatype(size uint32, byteOrder ByteOrder) *Datatype {
	// Byte 0: byte order (bit 0), mantissa normalization (bit 5).
	// Byte 1: sign bit location.
	signLocation := size*8 - 1
	classBits := uint32(byteOrder) | (1 << 5) | (signLocation << 8)

	return &Datatype{
		Class:      ClassFloatPoint,
		ClassBits:  classBits,
		Size:       size,
		ByteOrder:  byteOrder,
		Properties: standardFloatProperties(size),
	}
}

// NewStringDatatype creates a new fixed-length string datatype.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Class:         ClassString,
		ClassBits:     uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
	}
}

// NewOpaqueDatatype creates an opaque datatype of size bytes.
func NewOpaqueDatatype(size uint32, tag string) *Datatype {
	return &Datatype{Class: ClassOpaque, Size: size, Tag: tag}
}

// NewEnumDatatype creates an enum over an integer base type.
func NewEnumDatatype(base *Datatype, names []string, values [][]byte) *Datatype {
	return &Datatype{
		Class:      ClassEnum,
		Size:       base.Size,
		ByteOrder:  base.ByteOrder,
		Signed:     base.Signed,
		BaseType:   base,
		EnumNames:  names,
		EnumValues: values,
	}
}

// NewVarLenStringDatatype creates a variable-length string datatype whose
// in-memory element is one pointer of wordSize bytes.
func NewVarLenStringDatatype(charset CharacterSet, wordSize int) *Datatype {
	// VarLen string: type=1 (string), padding=nullterm, charset
	classBits := uint32(1) | uint32(PadNullTerm)<<4 | uint32(charset)<<8

	return &Datatype{
		Class:          ClassVarLen,
		ClassBits:      classBits,
		Size:           uint32(wordSize),
		VarLenType:     NewStringDatatype(1, PadNullTerm, charset),
		IsVarLenString: true,
		CharSet:        charset,
	}
}

// NewVarLenSequenceDatatype creates a variable-length sequence datatype
// whose in-memory element is a {length, pointer} record of two words.
func NewVarLenSequenceDatatype(base *Datatype, wordSize int) *Datatype {
	return &Datatype{
		Class:      ClassVarLen,
		Size:       uint32(2 * wordSize),
		VarLenType: base,
	}
}

// NewCompoundDatatype creates a new compound datatype.
func NewCompoundDatatype(size uint32, members []CompoundMember) *Datatype {
	return &Datatype{
		Class:     ClassCompound,
		ClassBits: uint32(len(members)),
		Size:      size,
		Members:   members,
	}
}

// NewArrayDatatype creates a new array datatype.
func NewArrayDatatype(dims []uint32, baseType *Datatype) *Datatype {
	total := uint32(1)
	for _, d := range dims {
		total *= d
	}

	return &Datatype{
		Class:     ClassArray,
		Size:      total * baseType.Size,
		ArrayDims: dims,
		BaseType:  baseType,
	}
}
