package message

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// DataspaceType represents the type of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0 // Single element
	DataspaceSimple DataspaceType = 1 // Regular N-dimensional array
	DataspaceNull   DataspaceType = 2 // No data
)

// Dataspace represents a dataspace message (type 0x0001) together with
// the current selection, which is never serialized.
type Dataspace struct {
	Version    uint8
	Rank       int
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil if not present (means same as Dimensions)

	// Selection is a hyperslab; nil selects every element.
	Selection *Hyperslab
}

// Hyperslab is a block selection: Count elements along each dimension
// starting at Start.
type Hyperslab struct {
	Start []uint64
	Count []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the total number of elements in the dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	default:
		return 0
	}
}

// IsScalar returns true if this is a scalar dataspace.
func (m *Dataspace) IsScalar() bool {
	return m.SpaceType == DataspaceScalar
}

// IsNull returns true if this is a null dataspace.
func (m *Dataspace) IsNull() bool {
	return m.SpaceType == DataspaceNull
}

// SelectAll clears any hyperslab selection.
func (m *Dataspace) SelectAll() {
	m.Selection = nil
}

// SelectHyperslab selects a block of the dataspace.
func (m *Dataspace) SelectHyperslab(start, count []uint64) error {
	if m.SpaceType != DataspaceSimple {
		return fmt.Errorf("hyperslab selection needs a simple dataspace")
	}
	if len(start) != m.Rank || len(count) != m.Rank {
		return fmt.Errorf("hyperslab rank %d/%d does not match dataspace rank %d", len(start), len(count), m.Rank)
	}
	for i := range start {
		if start[i]+count[i] > m.Dimensions[i] {
			return fmt.Errorf("hyperslab [%d,+%d) exceeds dimension %d of size %d",
				start[i], count[i], i, m.Dimensions[i])
		}
	}
	m.Selection = &Hyperslab{
		Start: append([]uint64(nil), start...),
		Count: append([]uint64(nil), count...),
	}
	return nil
}

// SelectedCount returns the number of selected elements.
func (m *Dataspace) SelectedCount() uint64 {
	if m.Selection == nil {
		return m.NumElements()
	}
	n := uint64(1)
	for _, c := range m.Selection.Count {
		n *= c
	}
	return n
}

// SelectedIndices returns the row-major linear index of every selected
// element, in selection order.
func (m *Dataspace) SelectedIndices() []uint64 {
	total := m.SelectedCount()
	out := make([]uint64, 0, total)
	if m.Selection == nil {
		for i := uint64(0); i < total; i++ {
			out = append(out, i)
		}
		return out
	}
	if total == 0 {
		return out
	}

	rank := m.Rank
	pos := make([]uint64, rank)
	for {
		var linear uint64
		for d := 0; d < rank; d++ {
			linear = linear*m.Dimensions[d] + m.Selection.Start[d] + pos[d]
		}
		out = append(out, linear)

		d := rank - 1
		for d >= 0 {
			pos[d]++
			if pos[d] < m.Selection.Count[d] {
				break
			}
			pos[d] = 0
			d--
		}
		if d < 0 {
			return out
		}
	}
}

// Clone returns an independent copy including the selection.
func (m *Dataspace) Clone() *Dataspace {
	c := *m
	c.Dimensions = append([]uint64(nil), m.Dimensions...)
	if m.MaxDims != nil {
		c.MaxDims = append([]uint64(nil), m.MaxDims...)
	}
	if m.Selection != nil {
		c.Selection = &Hyperslab{
			Start: append([]uint64(nil), m.Selection.Start...),
			Count: append([]uint64(nil), m.Selection.Count...),
		}
	}
	return &c
}

func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dataspace message too short")
	}

	ds := &Dataspace{
		Version: data[0],
		Rank:    int(data[1]),
	}

	flags := data[2]
	hasMaxDims := flags&0x01 != 0

	// Version 2 has explicit type field
	if ds.Version >= 2 {
		ds.SpaceType = DataspaceType(data[3])
	} else if ds.Rank == 0 {
		ds.SpaceType = DataspaceScalar
	} else {
		ds.SpaceType = DataspaceSimple
	}

	if ds.SpaceType != DataspaceSimple || ds.Rank == 0 {
		return ds, nil
	}

	offset := 4
	if ds.Version == 1 {
		offset = 8 // Version 1 has 4 reserved bytes
	}

	lengthSize := r.LengthSize()
	ds.Dimensions = make([]uint64, ds.Rank)
	for i := 0; i < ds.Rank; i++ {
		if offset+lengthSize > len(data) {
			return nil, fmt.Errorf("dataspace message truncated reading dimensions")
		}
		ds.Dimensions[i] = binary.DecodeUint(r.ByteOrder(), data[offset:], lengthSize)
		offset += lengthSize
	}

	if hasMaxDims {
		ds.MaxDims = make([]uint64, ds.Rank)
		for i := 0; i < ds.Rank; i++ {
			if offset+lengthSize > len(data) {
				return nil, fmt.Errorf("dataspace message truncated reading max dimensions")
			}
			ds.MaxDims[i] = binary.DecodeUint(r.ByteOrder(), data[offset:], lengthSize)
			offset += lengthSize
		}
	}

	return ds, nil
}

// Serialize writes the Dataspace in version 2 format.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	// Byte 0: Version (2)
	// Byte 1: Dimensionality (rank)
	// Byte 2: Flags (bit 0 = max dims present)
	// Byte 3: Type (0=scalar, 1=simple, 2=null)
	flags := uint8(0)
	if len(m.MaxDims) > 0 {
		flags |= 0x01
	}
	if err := w.WriteBytes([]byte{2, uint8(m.Rank), flags, uint8(m.SpaceType)}); err != nil {
		return err
	}

	for _, dim := range m.Dimensions {
		if err := w.WriteLength(dim); err != nil {
			return err
		}
	}
	if len(m.MaxDims) > 0 {
		for _, maxDim := range m.MaxDims {
			if err := w.WriteLength(maxDim); err != nil {
				return err
			}
		}
	}

	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *Dataspace) SerializedSize(lengthSize int) int {
	size := 4 + m.Rank*lengthSize
	if len(m.MaxDims) > 0 {
		size += m.Rank * lengthSize
	}
	return size
}

// NewDataspace creates a simple dataspace.
func NewDataspace(dims []uint64, maxDims []uint64) *Dataspace {
	return &Dataspace{
		Version:    2,
		Rank:       len(dims),
		SpaceType:  DataspaceSimple,
		Dimensions: append([]uint64(nil), dims...),
		MaxDims:    maxDims,
	}
}

// NewScalarDataspace creates a new scalar dataspace.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceScalar}
}

// NewNullDataspace creates a new null dataspace.
func NewNullDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceNull}
}
