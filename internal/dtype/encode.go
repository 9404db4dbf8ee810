package dtype

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

var (
	// ErrKind is returned when a Go value's kind cannot be stored in the
	// element class.
	ErrKind = errors.New("value kind does not match element type")
	// ErrRange is returned when a number does not fit the element type.
	ErrRange = errors.New("value out of range for element type")
)

// Encode stores one Go value as a scalar element into dst, which must hold
// dt.Size bytes. Any Go integer kind is accepted for integer classes and
// any integer or float kind for float classes, with range checks.
func Encode(dt *message.Datatype, v any, dst []byte) error {
	if dt == nil {
		return fmt.Errorf("nil datatype")
	}
	if len(dst) < int(dt.Size) {
		return fmt.Errorf("%s element needs %d bytes, have %d", dt, dt.Size, len(dst))
	}
	dst = dst[:dt.Size]

	switch dt.Class {
	case message.ClassFixedPoint:
		return encodeInt(dt, dt.Signed, v, dst)
	case message.ClassBitfield:
		return encodeInt(dt, false, v, dst)
	case message.ClassEnum:
		if dt.BaseType == nil {
			return fmt.Errorf("enum type has no base type")
		}
		return encodeInt(dt.BaseType, dt.BaseType.Signed, v, dst)
	case message.ClassFloatPoint:
		return encodeFloat(dt, v, dst)
	case message.ClassString:
		return encodeFixedString(dt, v, dst)
	case message.ClassOpaque, message.ClassTime, message.ClassReference:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrKind, v, dt)
		}
		if len(b) != int(dt.Size) {
			return fmt.Errorf("%w: %d bytes for %s", ErrRange, len(b), dt)
		}
		copy(dst, b)
		return nil
	default:
		return fmt.Errorf("%s is not a scalar class", dt.Class)
	}
}

// integer returns v as a signed or unsigned 64-bit value.
func integer(v any) (i int64, u uint64, unsigned bool, ok bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), 0, false, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 0, rv.Uint(), true, true
	}
	return 0, 0, false, false
}

func encodeInt(dt *message.Datatype, signed bool, v any, dst []byte) error {
	i, u, unsigned, ok := integer(v)
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrKind, v, dt)
	}

	bits := uint(dt.Size * 8)
	if bits == 0 || bits > 64 {
		return fmt.Errorf("unsupported integer size: %d", dt.Size)
	}

	var raw uint64
	switch {
	case signed && unsigned:
		if u > uint64(math.MaxInt64)>>(64-bits) {
			return fmt.Errorf("%w: %d for %s", ErrRange, u, dt)
		}
		raw = u
	case signed:
		lo, hi := -int64(1)<<(bits-1), int64(uint64(1)<<(bits-1)-1)
		if i < lo || i > hi {
			return fmt.Errorf("%w: %d for %s", ErrRange, i, dt)
		}
		raw = uint64(i)
	case unsigned:
		if bits < 64 && u >= uint64(1)<<bits {
			return fmt.Errorf("%w: %d for %s", ErrRange, u, dt)
		}
		raw = u
	default:
		if i < 0 || (bits < 64 && uint64(i) >= uint64(1)<<bits) {
			return fmt.Errorf("%w: %d for %s", ErrRange, i, dt)
		}
		raw = uint64(i)
	}

	order := ByteOrder(dt)
	switch dt.Size {
	case 1:
		dst[0] = byte(raw)
	case 2:
		order.PutUint16(dst, uint16(raw))
	case 4:
		order.PutUint32(dst, uint32(raw))
	case 8:
		order.PutUint64(dst, raw)
	default:
		return fmt.Errorf("unsupported integer size: %d", dt.Size)
	}
	return nil
}

func encodeFloat(dt *message.Datatype, v any, dst []byte) error {
	var f float64
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	default:
		i, u, unsigned, ok := integer(v)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrKind, v, dt)
		}
		if unsigned {
			f = float64(u)
		} else {
			f = float64(i)
		}
	}

	order := ByteOrder(dt)
	switch dt.Size {
	case 4:
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return fmt.Errorf("%w: %g for %s", ErrRange, f, dt)
		}
		order.PutUint32(dst, math.Float32bits(float32(f)))
	case 8:
		order.PutUint64(dst, math.Float64bits(f))
	default:
		return fmt.Errorf("unsupported float size: %d", dt.Size)
	}
	return nil
}

func encodeFixedString(dt *message.Datatype, v any, dst []byte) error {
	var b []byte
	switch s := v.(type) {
	case string:
		b = []byte(s)
	case []byte:
		b = s
	default:
		return fmt.Errorf("%w: %T for %s", ErrKind, v, dt)
	}
	PutFixedString(dt, b, dst)
	return nil
}

// PutFixedString stores s into a fixed-length string element, truncating
// it to dt.Size bytes and padding per the type's padding rule.
func PutFixedString(dt *message.Datatype, s []byte, dst []byte) {
	dst = dst[:dt.Size]
	n := copy(dst, s)
	pad := byte(0)
	if dt.StringPadding == message.PadSpacePad {
		pad = ' '
	}
	for i := n; i < len(dst); i++ {
		dst[i] = pad
	}
}
