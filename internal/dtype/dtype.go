package dtype

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

// GoType returns the Go type a decoded scalar of dt carries.
func GoType(dt *message.Datatype) (reflect.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}

	switch dt.Class {
	case message.ClassFixedPoint:
		return intType(dt.Size, dt.Signed)
	case message.ClassBitfield:
		return intType(dt.Size, false)
	case message.ClassEnum:
		if dt.BaseType == nil {
			return nil, fmt.Errorf("enum type has no base type")
		}
		return intType(dt.BaseType.Size, dt.BaseType.Signed)
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return reflect.TypeOf(float32(0)), nil
		case 8:
			return reflect.TypeOf(float64(0)), nil
		}
		return nil, fmt.Errorf("unsupported float size: %d", dt.Size)
	case message.ClassString:
		return reflect.TypeOf(""), nil
	case message.ClassOpaque, message.ClassTime, message.ClassReference:
		return reflect.TypeOf([]byte(nil)), nil
	default:
		return nil, fmt.Errorf("%s is not a scalar class", dt.Class)
	}
}

func intType(size uint32, signed bool) (reflect.Type, error) {
	switch size {
	case 1:
		if signed {
			return reflect.TypeOf(int8(0)), nil
		}
		return reflect.TypeOf(uint8(0)), nil
	case 2:
		if signed {
			return reflect.TypeOf(int16(0)), nil
		}
		return reflect.TypeOf(uint16(0)), nil
	case 4:
		if signed {
			return reflect.TypeOf(int32(0)), nil
		}
		return reflect.TypeOf(uint32(0)), nil
	case 8:
		if signed {
			return reflect.TypeOf(int64(0)), nil
		}
		return reflect.TypeOf(uint64(0)), nil
	default:
		return nil, fmt.Errorf("unsupported fixed-point size: %d", size)
	}
}

// IsScalar reports whether dt is handled by the scalar codec.
func IsScalar(dt *message.Datatype) bool {
	switch dt.Class {
	case message.ClassCompound, message.ClassArray, message.ClassVarLen:
		return false
	}
	return true
}

// ByteOrder returns the binary.ByteOrder for the datatype.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// VarLenRefSize returns the stored size of a VL reference: a 4-byte length
// followed by a heap ID (collection address + 4-byte index).
func VarLenRefSize(offsetSize int) uint32 {
	return uint32(4 + offsetSize + 4)
}

// FileSize returns the packed storage size of one element of dt, where VL
// sequences and strings are heap references and compounds have no padding.
func FileSize(dt *message.Datatype, offsetSize int) uint32 {
	switch dt.Class {
	case message.ClassVarLen:
		return VarLenRefSize(offsetSize)
	case message.ClassArray:
		return uint32(dt.ArrayLen()) * FileSize(dt.BaseType, offsetSize)
	case message.ClassCompound:
		var n uint32
		for _, m := range dt.Members {
			n += FileSize(m.Type, offsetSize)
		}
		return n
	default:
		return dt.Size
	}
}

// FileOffsets returns the packed storage offset of each compound member.
func FileOffsets(dt *message.Datatype, offsetSize int) []uint32 {
	offs := make([]uint32, len(dt.Members))
	var off uint32
	for i, m := range dt.Members {
		offs[i] = off
		off += FileSize(m.Type, offsetSize)
	}
	return offs
}

// NativeAlignment returns the natural alignment of dt in native memory with
// the given platform word.
func NativeAlignment(dt *message.Datatype, wordSize int) uint32 {
	switch dt.Class {
	case message.ClassVarLen:
		return uint32(wordSize)
	case message.ClassArray:
		return NativeAlignment(dt.BaseType, wordSize)
	case message.ClassCompound:
		a := uint32(1)
		for _, m := range dt.Members {
			if ma := NativeAlignment(m.Type, wordSize); ma > a {
				a = ma
			}
		}
		return a
	case message.ClassFixedPoint, message.ClassFloatPoint, message.ClassBitfield, message.ClassEnum:
		if dt.Size == 1 || dt.Size == 2 || dt.Size == 4 || dt.Size == 8 {
			return dt.Size
		}
		return 1
	default:
		return 1
	}
}

// NativeLayout computes C-style member offsets and the padded total size
// for a record of the given member types.
func NativeLayout(types []*message.Datatype, wordSize int) (offsets []uint32, size uint32) {
	offsets = make([]uint32, len(types))
	align := uint32(1)
	for i, t := range types {
		a := NativeAlignment(t, wordSize)
		if a > align {
			align = a
		}
		size = alignUp(size, a)
		offsets[i] = size
		size += t.Size
	}
	return offsets, alignUp(size, align)
}

func alignUp(n, a uint32) uint32 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
