package hdf5

import "github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"

// Value is one element in memory: Scalar, List, String or Fields. A nil
// Value is null.
type Value = vl.Value

type (
	Scalar = vl.Scalar
	List   = vl.List
	String = vl.String
	Fields = vl.Fields
	Member = vl.Field
)

// Class is the layout class of an element type.
type Class = vl.Class

const (
	ClassOther          = vl.ClassOther
	ClassCompound       = vl.ClassCompound
	ClassArray          = vl.ClassArray
	ClassVariableString = vl.ClassVariableString
	ClassVariableLength = vl.ClassVariableLength
)

// Ints builds a List of integer Scalars.
func Ints[T ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](vs ...T) List {
	return vl.Ints(vs...)
}

// Strings builds a List of Strings; nil entries are null.
func Strings(vs ...*string) List {
	return vl.Strings(vs...)
}
