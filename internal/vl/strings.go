package vl

import (
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

func (m *Marshaller) checkStringType(op Op, typeID h5lib.ID) error {
	dt, err := m.lib.Datatype(typeID)
	if err != nil {
		return newError(op, KindInvalidTypeHandle).
			Detail("type handle %d", typeID).Cause(err).Build()
	}
	if dt.Class == message.ClassString || (dt.Class == message.ClassVarLen && dt.IsVarLenString) {
		return nil
	}
	return newError(op, KindTypeMismatch).Detail("%s is not a string type", dt).Build()
}

// ReadStrings reads a VL or fixed-length string container. Null VL
// strings read as "".
func (m *Marshaller) ReadStrings(c Container, typeID h5lib.ID) ([]string, error) {
	if err := m.checkStringType(OpRead, typeID); err != nil {
		return nil, err
	}
	values, err := m.ReadVariable(c, typeID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(String)
		if !ok {
			return nil, newError(OpRead, KindTypeMismatch).Index(i).
				Detail("decoded %s", shape(v)).Build()
		}
		out[i] = string(s)
	}
	return out, nil
}

// WriteStrings writes a VL or fixed-length string container. A nil entry
// is written as an empty string, never as a null pointer.
func (m *Marshaller) WriteStrings(c Container, typeID h5lib.ID, values []*string) error {
	if err := m.checkStringType(OpWrite, typeID); err != nil {
		return err
	}
	return m.WriteVariable(c, typeID, Strings(values...))
}
