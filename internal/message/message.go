// Package message holds the metadata records the library keeps for its
// objects: datatype descriptors, dataspaces and attributes.
package message

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// Type represents a header message type.
type Type uint16

const (
	TypeNIL       Type = 0x0000
	TypeDataspace Type = 0x0001
	TypeDatatype  Type = 0x0003
	TypeAttribute Type = 0x000C
)

// Message is the interface implemented by all header messages.
type Message interface {
	Type() Type
}

// Parse parses a header message from raw bytes.
func Parse(typ Type, data []byte, r *binary.Reader) (Message, error) {
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, r)
	case TypeDatatype:
		return ParseDatatype(data)
	case TypeAttribute:
		return parseAttribute(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
}

// Unknown represents an unrecognized message type.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Serializable is the interface for messages that can be serialized to bytes.
type Serializable interface {
	Message
	Serialize(w *binary.Writer) error
}

// Serialize serializes a message if it implements Serializable.
func Serialize(msg Message, w *binary.Writer) error {
	if s, ok := msg.(Serializable); ok {
		return s.Serialize(w)
	}
	return fmt.Errorf("message type 0x%04x is not serializable", uint16(msg.Type()))
}
