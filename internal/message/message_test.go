package message

import (
	"encoding/binary"
	"testing"

	binpkg "github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

func testConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: 8,
		LengthSize: 8,
	}
}

func mockReader() *binpkg.Reader {
	return binpkg.NewReader(binpkg.NewBuffer(0), testConfig())
}

func TestDataspaceScalar(t *testing.T) {
	data := []byte{
		2, // Version
		0, // Rank (0 = scalar)
		0, // Flags
		0, // Type = scalar
	}

	ds, err := parseDataspace(data, mockReader())
	if err != nil {
		t.Fatalf("parseDataspace failed: %v", err)
	}
	if !ds.IsScalar() {
		t.Error("IsScalar should return true")
	}
	if ds.NumElements() != 1 {
		t.Errorf("expected 1 element, got %d", ds.NumElements())
	}
	if ds.SelectedCount() != 1 {
		t.Errorf("expected 1 selected element, got %d", ds.SelectedCount())
	}
}

func TestDataspaceSimple2D(t *testing.T) {
	data := make([]byte, 4+16)
	data[0] = 2 // Version
	data[1] = 2 // Rank
	data[3] = 1 // Type = simple
	binary.LittleEndian.PutUint64(data[4:], 3)
	binary.LittleEndian.PutUint64(data[12:], 4)

	ds, err := parseDataspace(data, mockReader())
	if err != nil {
		t.Fatalf("parseDataspace failed: %v", err)
	}
	if ds.NumElements() != 12 {
		t.Errorf("expected 12 elements, got %d", ds.NumElements())
	}
}

func TestDataspaceNull(t *testing.T) {
	ds := NewNullDataspace()
	if !ds.IsNull() || ds.NumElements() != 0 {
		t.Errorf("null dataspace: IsNull=%v elements=%d", ds.IsNull(), ds.NumElements())
	}
}

func TestDataspaceTruncated(t *testing.T) {
	data := []byte{2, 1, 0, 1, 0, 0}
	if _, err := parseDataspace(data, mockReader()); err == nil {
		t.Error("expected error for truncated dimensions")
	}
}

func TestHyperslabSelection(t *testing.T) {
	ds := NewDataspace([]uint64{3, 4}, nil)

	if err := ds.SelectHyperslab([]uint64{1, 1}, []uint64{2, 2}); err != nil {
		t.Fatalf("SelectHyperslab: %v", err)
	}
	if got := ds.SelectedCount(); got != 4 {
		t.Errorf("SelectedCount = %d, want 4", got)
	}

	want := []uint64{5, 6, 9, 10}
	got := ds.SelectedIndices()
	if len(got) != len(want) {
		t.Fatalf("SelectedIndices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SelectedIndices[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	ds.SelectAll()
	if got := ds.SelectedCount(); got != 12 {
		t.Errorf("after SelectAll: SelectedCount = %d, want 12", got)
	}
}

func TestHyperslabErrors(t *testing.T) {
	tests := []struct {
		name  string
		space *Dataspace
		start []uint64
		count []uint64
	}{
		{"scalar", NewScalarDataspace(), nil, nil},
		{"rank mismatch", NewDataspace([]uint64{4}, nil), []uint64{0, 0}, []uint64{1, 1}},
		{"out of bounds", NewDataspace([]uint64{4}, nil), []uint64{3}, []uint64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.space.SelectHyperslab(tt.start, tt.count); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHyperslabEmptyCount(t *testing.T) {
	ds := NewDataspace([]uint64{4}, nil)
	if err := ds.SelectHyperslab([]uint64{2}, []uint64{0}); err != nil {
		t.Fatalf("SelectHyperslab: %v", err)
	}
	if n := len(ds.SelectedIndices()); n != 0 {
		t.Errorf("expected no indices, got %d", n)
	}
}

func TestDataspaceCloneIsIndependent(t *testing.T) {
	ds := NewDataspace([]uint64{5}, nil)
	if err := ds.SelectHyperslab([]uint64{1}, []uint64{2}); err != nil {
		t.Fatal(err)
	}

	c := ds.Clone()
	c.Dimensions[0] = 99
	c.Selection.Start[0] = 3

	if ds.Dimensions[0] != 5 || ds.Selection.Start[0] != 1 {
		t.Errorf("clone shares storage with original: %+v", ds)
	}
}

func TestDataspaceSerializeRoundTrip(t *testing.T) {
	ds := NewDataspace([]uint64{7, 2}, []uint64{14, 2})

	buf := binpkg.NewBuffer(0)
	w := binpkg.NewWriter(buf, testConfig())
	if err := ds.Serialize(w); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != ds.SerializedSize(8) {
		t.Errorf("wrote %d bytes, SerializedSize says %d", buf.Len(), ds.SerializedSize(8))
	}

	got, err := parseDataspace(buf.Bytes(), mockReader())
	if err != nil {
		t.Fatalf("parseDataspace: %v", err)
	}
	if got.Rank != 2 || got.Dimensions[0] != 7 || got.MaxDims[0] != 14 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestParseUnknownMessage(t *testing.T) {
	msg, err := Parse(Type(0x00FF), []byte{1, 2}, mockReader())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	u, ok := msg.(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", msg)
	}
	if len(u.Data()) != 2 {
		t.Errorf("expected 2 data bytes, got %d", len(u.Data()))
	}
	if err := Serialize(u, binpkg.NewWriter(binpkg.NewBuffer(0), testConfig())); err == nil {
		t.Error("expected unknown message to be unserializable")
	}
}
