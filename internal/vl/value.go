package vl

import (
	"fmt"
	"strings"
)

// Value is the in-process form of one element. The concrete types are
// Scalar, List, String and Fields; a nil Value is null.
type Value interface {
	value()
	fmt.Stringer
}

// Scalar holds a number or opaque bytes. Decoded scalars carry the exact
// Go type of the element (int8..uint64, float32, float64, []byte).
type Scalar struct {
	V any
}

// List is a variable-length sequence or a flattened fixed-size array.
type List []Value

// String is a decoded string element.
type String string

// Field is one named member of a compound element.
type Field struct {
	Name  string
	Value Value
}

// Fields is a compound element, in declaration order.
type Fields []Field

func (Scalar) value() {}
func (List) value()   {}
func (String) value() {}
func (Fields) value() {}

func (s Scalar) String() string { return fmt.Sprint(s.V) }

func (s String) String() string { return fmt.Sprintf("%q", string(s)) }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = describe(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (f Fields) String() string {
	parts := make([]string, len(f))
	for i, fld := range f {
		parts[i] = fld.Name + ": " + describe(fld.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the value of the named field.
func (f Fields) Get(name string) (Value, bool) {
	for _, fld := range f {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return nil, false
}

func describe(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}

// Ints builds a List of Scalars from Go integers.
func Ints[T ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](vs ...T) List {
	l := make(List, len(vs))
	for i, v := range vs {
		l[i] = Scalar{V: v}
	}
	return l
}

// Strings builds a List of String values; nil entries become null.
func Strings(vs ...*string) List {
	l := make(List, len(vs))
	for i, v := range vs {
		if v != nil {
			l[i] = String(*v)
		}
	}
	return l
}

// shape names the kind of a value for error messages.
func shape(v Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case Scalar:
		return fmt.Sprintf("scalar %T", v.V)
	case List:
		return fmt.Sprintf("list of %d", len(v))
	case String:
		return "string"
	case Fields:
		return fmt.Sprintf("fields of %d", len(v))
	default:
		return fmt.Sprintf("%T", v)
	}
}
