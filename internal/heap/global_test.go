package heap

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/alloc"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

func newTestStore(offsetSize int) (*Store, *binary.Buffer) {
	buf := binary.NewBuffer(0)
	cfg := binary.WordConfig(offsetSize)
	space := alloc.New(64)
	return NewStore(buf, cfg, space.AllocFunc()), buf
}

func TestStoreRoundTrip(t *testing.T) {
	for _, offsetSize := range []int{2, 4, 8} {
		t.Run(fmt.Sprintf("offset%d", offsetSize), func(t *testing.T) {
			s, _ := newTestStore(offsetSize)

			payloads := [][]byte{
				[]byte("a"),
				{},
				[]byte("ccc"),
				bytes.Repeat([]byte{7}, 17),
			}

			hw := s.NewWriter()
			for _, p := range payloads {
				hw.Add(p)
			}
			if hw.Pending() != len(payloads) {
				t.Fatalf("Pending = %d, want %d", hw.Pending(), len(payloads))
			}

			ids, err := hw.Flush()
			if err != nil {
				t.Fatalf("Flush: %v", err)
			}
			if hw.Pending() != 0 {
				t.Errorf("Pending after flush = %d", hw.Pending())
			}

			for i, id := range ids {
				if id.IsNull() {
					t.Fatalf("object %d has null ID", i)
				}
				got, err := s.Get(id)
				if err != nil {
					t.Fatalf("Get(%v): %v", id, err)
				}
				if !bytes.Equal(got, payloads[i]) {
					t.Errorf("object %d = %q, want %q", i, got, payloads[i])
				}
			}
			if s.Collections() != 1 {
				t.Errorf("Collections = %d, want 1", s.Collections())
			}
		})
	}
}

func TestStoreNullID(t *testing.T) {
	s, _ := newTestStore(8)

	got, err := s.Get(ID{})
	if err != nil {
		t.Fatalf("Get(null): %v", err)
	}
	if got != nil {
		t.Errorf("Get(null) = %v, want nil", got)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(8)
	hw := s.NewWriter()
	hw.Add([]byte("abc"))
	ids, err := hw.Flush()
	if err != nil {
		t.Fatal(err)
	}

	first, _ := s.Get(ids[0])
	first[0] = 'X'
	second, _ := s.Get(ids[0])
	if string(second) != "abc" {
		t.Errorf("Get returned shared storage: %q", second)
	}
}

func TestWriterSplitsCollections(t *testing.T) {
	s, _ := newTestStore(8)
	hw := s.NewWriter()
	for i := 0; i < MaxObjects+2; i++ {
		hw.Add([]byte{byte(i)})
	}

	ids, err := hw.Flush()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != MaxObjects+2 {
		t.Fatalf("got %d ids", len(ids))
	}
	if ids[0].CollectionAddress == ids[MaxObjects].CollectionAddress {
		t.Error("expected a second collection after MaxObjects objects")
	}
	if ids[MaxObjects].ObjectIndex != 1 {
		t.Errorf("first object of second collection has index %d", ids[MaxObjects].ObjectIndex)
	}

	got, err := s.Get(ids[MaxObjects+1])
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != byte((MaxObjects+1)&0xFF) {
		t.Errorf("last object = %v", got)
	}
}

func TestReadCollectionErrors(t *testing.T) {
	s, buf := newTestStore(8)
	r := s.Reader()

	if _, err := ReadCollection(r, 0); err == nil {
		t.Error("expected error for address 0")
	}

	buf.WriteAt([]byte("JUNKJUNK"), 64)
	if _, err := ReadCollection(r, 64); err == nil {
		t.Error("expected error for bad signature")
	}

	buf.WriteAt([]byte("GCOL\x02\x00\x00\x00"), 128)
	if _, err := ReadCollection(r, 128); err == nil {
		t.Error("expected error for bad version")
	}
}

func TestCollectionMissingObject(t *testing.T) {
	s, _ := newTestStore(8)
	hw := s.NewWriter()
	hw.Add([]byte("x"))
	ids, err := hw.Flush()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(ID{CollectionAddress: ids[0].CollectionAddress, ObjectIndex: 9}); err == nil {
		t.Error("expected error for missing object index")
	}
}

func TestIDRoundTrip(t *testing.T) {
	for _, offsetSize := range []int{4, 8} {
		buf := binary.NewBuffer(0)
		cfg := binary.WordConfig(offsetSize)
		id := ID{CollectionAddress: 0x1234, ObjectIndex: 42}

		if err := WriteID(binary.NewWriter(buf, cfg), id); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != IDSize(offsetSize) {
			t.Errorf("offset %d: wrote %d bytes, IDSize says %d", offsetSize, buf.Len(), IDSize(offsetSize))
		}

		got, err := ParseID(binary.NewReader(buf, cfg))
		if err != nil {
			t.Fatal(err)
		}
		if got != id {
			t.Errorf("offset %d: got %+v, want %+v", offsetSize, got, id)
		}
	}
}
