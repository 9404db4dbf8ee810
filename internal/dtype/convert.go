package dtype

import (
	"bytes"
	"fmt"
	"math"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

// Decode converts one stored scalar element into its Go value:
//
//   - fixed-point, bitfield, enum: int8..int64 / uint8..uint64 by size and sign
//   - float: float32 or float64
//   - fixed-length string: string, with padding removed
//   - opaque, time, reference: a copy of the raw bytes
func Decode(dt *message.Datatype, data []byte) (any, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}
	if len(data) < int(dt.Size) {
		return nil, fmt.Errorf("%s element needs %d bytes, have %d", dt, dt.Size, len(data))
	}
	data = data[:dt.Size]

	switch dt.Class {
	case message.ClassFixedPoint:
		return decodeInt(dt, data, dt.Signed)
	case message.ClassBitfield:
		return decodeInt(dt, data, false)
	case message.ClassEnum:
		if dt.BaseType == nil {
			return nil, fmt.Errorf("enum type has no base type")
		}
		return decodeInt(dt.BaseType, data, dt.BaseType.Signed)
	case message.ClassFloatPoint:
		return decodeFloat(dt, data)
	case message.ClassString:
		return decodeFixedString(dt, data), nil
	case message.ClassOpaque, message.ClassTime, message.ClassReference:
		return bytes.Clone(data), nil
	default:
		return nil, fmt.Errorf("%s is not a scalar class", dt.Class)
	}
}

func decodeInt(dt *message.Datatype, data []byte, signed bool) (any, error) {
	order := ByteOrder(dt)

	switch dt.Size {
	case 1:
		if signed {
			return int8(data[0]), nil
		}
		return data[0], nil
	case 2:
		v := order.Uint16(data)
		if signed {
			return int16(v), nil
		}
		return v, nil
	case 4:
		v := order.Uint32(data)
		if signed {
			return int32(v), nil
		}
		return v, nil
	case 8:
		v := order.Uint64(data)
		if signed {
			return int64(v), nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported integer size: %d", dt.Size)
	}
}

func decodeFloat(dt *message.Datatype, data []byte) (any, error) {
	order := ByteOrder(dt)

	switch dt.Size {
	case 4:
		return math.Float32frombits(order.Uint32(data)), nil
	case 8:
		return math.Float64frombits(order.Uint64(data)), nil
	default:
		return nil, fmt.Errorf("unsupported float size: %d", dt.Size)
	}
}

func decodeFixedString(dt *message.Datatype, data []byte) string {
	switch dt.StringPadding {
	case message.PadSpacePad:
		return string(bytes.TrimRight(data, " "))
	default:
		if i := bytes.IndexByte(data, 0); i >= 0 {
			return string(data[:i])
		}
		return string(data)
	}
}

// FixedString extracts the string stored in a fixed-length string element.
func FixedString(dt *message.Datatype, data []byte) string {
	if len(data) > int(dt.Size) {
		data = data[:dt.Size]
	}
	return decodeFixedString(dt, data)
}
