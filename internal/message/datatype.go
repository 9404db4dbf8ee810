package message

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DatatypeClass represents the class of a datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0  // Integers
	ClassFloatPoint DatatypeClass = 1  // Floating-point
	ClassTime       DatatypeClass = 2  // Time (rarely used)
	ClassString     DatatypeClass = 3  // Fixed-length strings
	ClassBitfield   DatatypeClass = 4  // Bitfields
	ClassOpaque     DatatypeClass = 5  // Opaque data
	ClassCompound   DatatypeClass = 6  // Compound types (records)
	ClassReference  DatatypeClass = 7  // References to objects/regions
	ClassEnum       DatatypeClass = 8  // Enumerated types
	ClassVarLen     DatatypeClass = 9  // Variable-length sequences and strings
	ClassArray      DatatypeClass = 10 // Fixed-size arrays
)

var classNames = [...]string{
	"fixed-point", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "vlen", "array",
}

func (c DatatypeClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder represents the byte order of numeric types.
type ByteOrder uint8

const (
	OrderLE   ByteOrder = 0 // Little-endian
	OrderBE   ByteOrder = 1 // Big-endian
	OrderNone ByteOrder = 3 // Not applicable
)

// StringPadding represents how strings are padded.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0 // Null-terminated
	PadNullPad  StringPadding = 1 // Null-padded
	PadSpacePad StringPadding = 2 // Space-padded
)

// CharacterSet represents the character encoding.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the layout of one element (type 0x0003).
//
// Size is the in-memory size of an element: for a VL sequence it is the
// {length, pointer} record, for a VL string a single pointer.
type Datatype struct {
	Class     DatatypeClass
	ClassBits uint32 // Class-specific bit field
	Size      uint32

	ByteOrder ByteOrder

	// Fixed-point and bitfield
	BitOffset    uint16
	BitPrecision uint16
	Signed       bool

	// String and VL string
	StringPadding StringPadding
	CharSet       CharacterSet

	// Compound
	Members []CompoundMember

	// Array, and the base of an enum
	ArrayDims []uint32
	BaseType  *Datatype

	// VarLen
	VarLenType     *Datatype
	IsVarLenString bool

	// Enum
	EnumNames  []string
	EnumValues [][]byte

	// Opaque
	Tag string

	// Raw float properties
	Properties []byte
}

// CompoundMember represents a member of a compound datatype.
type CompoundMember struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsFloat returns true if this is a floating-point type.
func (m *Datatype) IsFloat() bool {
	return m.Class == ClassFloatPoint
}

// IsString returns true if this is a string type (fixed or variable-length).
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.IsVarLenString)
}

// IsArray returns true if this is an array type.
func (m *Datatype) IsArray() bool {
	return m.Class == ClassArray
}

// IsVarLen returns true if this is a variable-length sequence or string.
func (m *Datatype) IsVarLen() bool {
	return m.Class == ClassVarLen
}

// ArrayLen returns the number of base elements in one array element.
func (m *Datatype) ArrayLen() int {
	n := 1
	for _, d := range m.ArrayDims {
		n *= int(d)
	}
	return n
}

// Member returns the compound member with the given name.
func (m *Datatype) Member(name string) (CompoundMember, bool) {
	for _, mem := range m.Members {
		if mem.Name == name {
			return mem, true
		}
	}
	return CompoundMember{}, false
}

// String renders the type tree, e.g. compound{id: i32, tags: vlen<string>}.
func (m *Datatype) String() string {
	var sb strings.Builder
	m.describe(&sb)
	return sb.String()
}

func (m *Datatype) describe(sb *strings.Builder) {
	switch m.Class {
	case ClassFixedPoint:
		if m.Signed {
			fmt.Fprintf(sb, "i%d", m.Size*8)
		} else {
			fmt.Fprintf(sb, "u%d", m.Size*8)
		}
	case ClassFloatPoint:
		fmt.Fprintf(sb, "f%d", m.Size*8)
	case ClassString:
		fmt.Fprintf(sb, "string[%d]", m.Size)
	case ClassVarLen:
		if m.IsVarLenString {
			sb.WriteString("vlen<string>")
			return
		}
		sb.WriteString("vlen<")
		if m.VarLenType != nil {
			m.VarLenType.describe(sb)
		}
		sb.WriteString(">")
	case ClassArray:
		sb.WriteString("array")
		for _, d := range m.ArrayDims {
			fmt.Fprintf(sb, "[%d]", d)
		}
		sb.WriteString("<")
		if m.BaseType != nil {
			m.BaseType.describe(sb)
		}
		sb.WriteString(">")
	case ClassCompound:
		sb.WriteString("compound{")
		for i, mem := range m.Members {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(mem.Name)
			sb.WriteString(": ")
			if mem.Type != nil {
				mem.Type.describe(sb)
			}
		}
		sb.WriteString("}")
	default:
		fmt.Fprintf(sb, "%s[%d]", m.Class, m.Size)
	}
}

// ParseDatatype parses a serialized datatype.
func ParseDatatype(data []byte) (*Datatype, error) {
	dt, _, err := parseDatatypeWithSize(data)
	return dt, err
}

// parseDatatypeWithSize parses a datatype and returns the bytes consumed.
func parseDatatypeWithSize(data []byte) (*Datatype, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("datatype message too short")
	}

	classAndVersion := data[0]
	class := DatatypeClass(classAndVersion & 0x0F)

	classBits := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16
	size := binary.LittleEndian.Uint32(data[4:8])

	dt := &Datatype{
		Class:     class,
		ClassBits: classBits,
		Size:      size,
	}

	props := data[8:]
	used := 0

	switch class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(classBits & 0x01)
		dt.Signed = classBits&0x08 != 0
		if len(props) < 4 {
			return nil, 0, fmt.Errorf("%s properties truncated", class)
		}
		dt.BitOffset = binary.LittleEndian.Uint16(props[0:2])
		dt.BitPrecision = binary.LittleEndian.Uint16(props[2:4])
		used = 4

	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(classBits & 0x01)
		if len(props) < 12 {
			return nil, 0, fmt.Errorf("float properties truncated")
		}
		dt.Properties = append([]byte(nil), props[:12]...)
		used = 12

	case ClassString:
		dt.StringPadding = StringPadding(classBits & 0x0F)
		dt.CharSet = CharacterSet((classBits >> 4) & 0x0F)

	case ClassOpaque:
		end := 0
		for end < len(props) && props[end] != 0 {
			end++
		}
		if end == len(props) {
			return nil, 0, fmt.Errorf("opaque tag not terminated")
		}
		dt.Tag = string(props[:end])
		used = end + 1

	case ClassCompound:
		numMembers := int(classBits & 0xFFFF)
		dt.Members = make([]CompoundMember, 0, numMembers)
		for i := 0; i < numMembers; i++ {
			member, consumed, err := parseCompoundMember(props[used:], size)
			if err != nil {
				return nil, 0, fmt.Errorf("compound member %d: %w", i, err)
			}
			dt.Members = append(dt.Members, member)
			used += consumed
		}

	case ClassArray:
		if len(props) < 4 {
			return nil, 0, fmt.Errorf("array properties truncated")
		}
		ndims := int(props[0])
		used = 4 // rank + reserved
		dt.ArrayDims = make([]uint32, ndims)
		for i := 0; i < ndims; i++ {
			if used+4 > len(props) {
				return nil, 0, fmt.Errorf("array dimensions truncated")
			}
			dt.ArrayDims[i] = binary.LittleEndian.Uint32(props[used:])
			used += 4
		}
		base, consumed, err := parseDatatypeWithSize(props[used:])
		if err != nil {
			return nil, 0, fmt.Errorf("array base type: %w", err)
		}
		dt.BaseType = base
		used += consumed

	case ClassVarLen:
		// Type: 0 = sequence, 1 = string
		dt.IsVarLenString = classBits&0x0F == 1
		dt.StringPadding = StringPadding((classBits >> 4) & 0x0F)
		dt.CharSet = CharacterSet((classBits >> 8) & 0x0F)
		base, consumed, err := parseDatatypeWithSize(props)
		if err != nil {
			return nil, 0, fmt.Errorf("vlen base type: %w", err)
		}
		dt.VarLenType = base
		used = consumed

	case ClassEnum:
		base, consumed, err := parseDatatypeWithSize(props)
		if err != nil {
			return nil, 0, fmt.Errorf("enum base type: %w", err)
		}
		dt.BaseType = base
		used = consumed
		n := int(classBits & 0xFFFF)
		for i := 0; i < n; i++ {
			end := used
			for end < len(props) && props[end] != 0 {
				end++
			}
			if end == len(props) {
				return nil, 0, fmt.Errorf("enum name %d not terminated", i)
			}
			dt.EnumNames = append(dt.EnumNames, string(props[used:end]))
			used = end + 1
		}
		for i := 0; i < n; i++ {
			if used+int(base.Size) > len(props) {
				return nil, 0, fmt.Errorf("enum values truncated")
			}
			dt.EnumValues = append(dt.EnumValues, append([]byte(nil), props[used:used+int(base.Size)]...))
			used += int(base.Size)
		}

	case ClassTime, ClassReference:
		// no properties

	default:
		return nil, 0, fmt.Errorf("unknown datatype class %d", class)
	}

	return dt, 8 + used, nil
}

func parseCompoundMember(data []byte, compoundSize uint32) (CompoundMember, int, error) {
	var member CompoundMember

	nameEnd := 0
	for nameEnd < len(data) && data[nameEnd] != 0 {
		nameEnd++
	}
	if nameEnd >= len(data) {
		return member, 0, fmt.Errorf("name not terminated")
	}
	member.Name = string(data[:nameEnd])
	offset := nameEnd + 1

	offsetSize := memberOffsetSize(compoundSize)
	if offset+offsetSize > len(data) {
		return member, 0, fmt.Errorf("member %q truncated", member.Name)
	}
	switch offsetSize {
	case 1:
		member.ByteOffset = uint32(data[offset])
	case 2:
		member.ByteOffset = uint32(binary.LittleEndian.Uint16(data[offset:]))
	default:
		member.ByteOffset = binary.LittleEndian.Uint32(data[offset:])
	}
	offset += offsetSize

	memberType, typeSize, err := parseDatatypeWithSize(data[offset:])
	if err != nil {
		return member, 0, fmt.Errorf("member %q: %w", member.Name, err)
	}
	member.Type = memberType
	offset += typeSize

	return member, offset, nil
}

// memberOffsetSize returns the width of a member offset for a compound of
// the given total size.
func memberOffsetSize(compoundSize uint32) int {
	switch {
	case compoundSize <= 0xFF:
		return 1
	case compoundSize <= 0xFFFF:
		return 2
	default:
		return 4
	}
}

// Equivalent reports whether two types describe the same logical element
// tree: same classes, scalar sizes, member names and array shapes. Member
// offsets and VL record sizes may differ.
func Equivalent(a, b *Datatype) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Class != b.Class {
		return false
	}
	switch a.Class {
	case ClassCompound:
		if len(a.Members) != len(b.Members) {
			return false
		}
		for i := range a.Members {
			if a.Members[i].Name != b.Members[i].Name || !Equivalent(a.Members[i].Type, b.Members[i].Type) {
				return false
			}
		}
		return true
	case ClassArray:
		if len(a.ArrayDims) != len(b.ArrayDims) {
			return false
		}
		for i := range a.ArrayDims {
			if a.ArrayDims[i] != b.ArrayDims[i] {
				return false
			}
		}
		return Equivalent(a.BaseType, b.BaseType)
	case ClassVarLen:
		if a.IsVarLenString != b.IsVarLenString {
			return false
		}
		return a.IsVarLenString || Equivalent(a.VarLenType, b.VarLenType)
	case ClassFixedPoint, ClassBitfield:
		return a.Size == b.Size && a.Signed == b.Signed
	case ClassEnum:
		return a.Size == b.Size && len(a.EnumNames) == len(b.EnumNames)
	default:
		return a.Size == b.Size
	}
}
