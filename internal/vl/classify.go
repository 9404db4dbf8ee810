package vl

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

// Class is the wire layout an element type selects.
type Class uint8

const (
	ClassOther Class = iota
	ClassCompound
	ClassArray
	ClassVariableString
	ClassVariableLength
)

func (c Class) String() string {
	switch c {
	case ClassOther:
		return "other"
	case ClassCompound:
		return "compound"
	case ClassArray:
		return "array"
	case ClassVariableString:
		return "variable-string"
	case ClassVariableLength:
		return "variable-length"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// Classify returns the layout class of dt.
func Classify(dt *message.Datatype) (Class, error) {
	if dt == nil {
		return 0, newError(OpCompile, KindInvalidTypeHandle).Detail("nil datatype").Build()
	}
	switch dt.Class {
	case message.ClassCompound:
		return ClassCompound, nil
	case message.ClassArray:
		return ClassArray, nil
	case message.ClassVarLen:
		if dt.IsVarLenString {
			return ClassVariableString, nil
		}
		return ClassVariableLength, nil
	default:
		return ClassOther, nil
	}
}

// ContainsVariableLength reports whether elements of dt reference VL
// payloads anywhere, i.e. whether reading or writing them needs a reclaim.
func ContainsVariableLength(dt *message.Datatype) bool {
	if dt == nil {
		return false
	}
	switch dt.Class {
	case message.ClassVarLen:
		return true
	case message.ClassArray:
		return ContainsVariableLength(dt.BaseType)
	case message.ClassCompound:
		for _, m := range dt.Members {
			if ContainsVariableLength(m.Type) {
				return true
			}
		}
	}
	return false
}
