package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// Attribute represents an attribute message (type 0x000C). Data holds the
// stored elements in file layout.
type Attribute struct {
	Version       uint8
	Name          string
	DatatypeSize  uint16
	DataspaceSize uint16
	Datatype      *Datatype
	Dataspace     *Dataspace
	Data          []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// NewAttribute creates a version 3 attribute message.
func NewAttribute(name string, datatype *Datatype, dataspace *Dataspace, data []byte) *Attribute {
	return &Attribute{
		Version:   3,
		Name:      name,
		Datatype:  datatype,
		Dataspace: dataspace,
		Data:      data,
	}
}

func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	if len(data) < 9 {
		return nil, fmt.Errorf("attribute message too short")
	}
	attr := &Attribute{Version: data[0]}
	if attr.Version != 3 {
		return nil, fmt.Errorf("unsupported attribute version: %d", attr.Version)
	}

	// flags := data[1]
	nameSize := binary.LittleEndian.Uint16(data[2:4])
	attr.DatatypeSize = binary.LittleEndian.Uint16(data[4:6])
	attr.DataspaceSize = binary.LittleEndian.Uint16(data[6:8])
	// encoding := data[8]

	offset := 9

	if offset+int(nameSize) > len(data) {
		return nil, fmt.Errorf("attribute name truncated")
	}
	nameEnd := offset
	for nameEnd < offset+int(nameSize) && data[nameEnd] != 0 {
		nameEnd++
	}
	attr.Name = string(data[offset:nameEnd])
	offset += int(nameSize)

	if offset+int(attr.DatatypeSize) > len(data) {
		return nil, fmt.Errorf("attribute %q datatype truncated", attr.Name)
	}
	dt, err := ParseDatatype(data[offset : offset+int(attr.DatatypeSize)])
	if err != nil {
		return nil, fmt.Errorf("attribute %q datatype: %w", attr.Name, err)
	}
	attr.Datatype = dt
	offset += int(attr.DatatypeSize)

	if offset+int(attr.DataspaceSize) > len(data) {
		return nil, fmt.Errorf("attribute %q dataspace truncated", attr.Name)
	}
	ds, err := parseDataspace(data[offset:offset+int(attr.DataspaceSize)], r)
	if err != nil {
		return nil, fmt.Errorf("attribute %q dataspace: %w", attr.Name, err)
	}
	attr.Dataspace = ds
	offset += int(attr.DataspaceSize)

	if offset < len(data) {
		attr.Data = make([]byte, len(data)-offset)
		copy(attr.Data, data[offset:])
	}

	return attr, nil
}

// Serialize writes the Attribute message in version 3 format.
func (m *Attribute) Serialize(w *binpkg.Writer) error {
	nameSize := uint16(len(m.Name) + 1)
	datatypeSize := m.Datatype.SerializedSize()
	dataspaceSize := m.Dataspace.SerializedSize(w.LengthSize())

	// version, flags
	if err := w.WriteBytes([]byte{3, 0}); err != nil {
		return err
	}
	if err := w.WriteUint16(nameSize); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(datatypeSize)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(dataspaceSize)); err != nil {
		return err
	}
	// Encoding (0 = ASCII)
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	if err := w.WriteBytes(append([]byte(m.Name), 0)); err != nil {
		return err
	}
	if err := m.Datatype.Serialize(w); err != nil {
		return err
	}
	if err := m.Dataspace.Serialize(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Attribute) SerializedSize(lengthSize int) int {
	return 9 + len(m.Name) + 1 + m.Datatype.SerializedSize() +
		m.Dataspace.SerializedSize(lengthSize) + len(m.Data)
}
