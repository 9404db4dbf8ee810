// Package dtype converts single scalar elements between their stored bytes
// and Go values, and computes element sizes and offsets.
//
// Decoded values carry the exact Go type of the element:
//
//	Class             | Go type
//	------------------|------------------------------------------
//	Fixed-point       | int8/16/32/64 or uint8/16/32/64 by size and sign
//	Bitfield          | uint8/16/32/64
//	Enum              | the base integer type
//	Floating-point    | float32 or float64
//	String (fixed)    | string
//	Opaque            | []byte
//
// [Encode] accepts any Go integer kind for integer classes and any number
// for float classes; values that do not fit fail with [ErrRange], values of
// the wrong kind with [ErrKind].
//
// Compound, array and variable-length types are not scalars; their layout
// helpers live here ([FileSize], [FileOffsets], [NativeLayout]) but their
// conversion belongs to the caller.
package dtype
