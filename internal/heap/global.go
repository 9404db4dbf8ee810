package heap

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// MaxObjects is the largest number of objects one collection holds; object
// indices are 16-bit and 0 ends the object list.
const MaxObjects = 0xFFFF

// Collection is a global heap collection ("GCOL") holding numbered objects.
type Collection struct {
	Address        uint64
	CollectionSize uint64
	objects        map[uint32][]byte // index -> object data
}

// ID references an object in a collection. The zero ID is the null
// reference stored for empty sequences and unwritten strings.
type ID struct {
	CollectionAddress uint64
	ObjectIndex       uint32
}

// IsNull reports whether id is the null reference.
func (id ID) IsNull() bool {
	return id.CollectionAddress == 0
}

// ReadCollection reads a global heap collection at the given address.
func ReadCollection(r *binary.Reader, address uint64) (*Collection, error) {
	if address == 0 || address == 0xFFFFFFFFFFFFFFFF {
		return nil, fmt.Errorf("invalid global heap address 0x%x", address)
	}

	hr := r.At(int64(address))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading global heap signature: %w", err)
	}
	if string(sig) != "GCOL" {
		return nil, fmt.Errorf("invalid global heap signature: %q", string(sig))
	}

	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported global heap version: %d", version)
	}

	// Reserved (3 bytes)
	hr.Skip(3)

	collectionSize, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	c := &Collection{
		Address:        address,
		CollectionSize: collectionSize,
		objects:        make(map[uint32][]byte),
	}

	// The collection size includes the header
	headerSize := uint64(4 + 1 + 3 + r.LengthSize())
	if collectionSize < headerSize {
		return nil, fmt.Errorf("global heap collection size %d smaller than header", collectionSize)
	}
	remaining := collectionSize - headerSize

	for remaining >= 2 {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("reading object index: %w", err)
		}
		if index == 0 {
			break
		}

		// Reference count (2) + reserved (4)
		hr.Skip(6)

		objectSize, err := hr.ReadLength()
		if err != nil {
			return nil, fmt.Errorf("reading object %d size: %w", index, err)
		}

		data, err := hr.ReadBytes(int(objectSize))
		if err != nil {
			return nil, fmt.Errorf("reading object %d: %w", index, err)
		}
		c.objects[uint32(index)] = data

		// Objects are padded to 8-byte boundaries
		padding := (8 - objectSize%8) % 8
		hr.Skip(int64(padding))

		consumed := uint64(2+2+4+r.LengthSize()) + objectSize + padding
		if consumed > remaining {
			return nil, fmt.Errorf("object %d overruns collection at 0x%x", index, address)
		}
		remaining -= consumed
	}

	return c, nil
}

// Object retrieves a copy of an object by index.
func (c *Collection) Object(index uint32) ([]byte, error) {
	data, ok := c.objects[index]
	if !ok {
		return nil, fmt.Errorf("object index %d not found in global heap 0x%x", index, c.Address)
	}
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Len returns the number of objects in the collection.
func (c *Collection) Len() int {
	return len(c.objects)
}

// ParseID parses a heap ID: collection address (offset-sized) + object
// index (4 bytes).
func ParseID(r *binary.Reader) (ID, error) {
	addr, err := r.ReadOffset()
	if err != nil {
		return ID{}, fmt.Errorf("reading heap collection address: %w", err)
	}
	index, err := r.ReadUint32()
	if err != nil {
		return ID{}, fmt.Errorf("reading heap object index: %w", err)
	}
	return ID{CollectionAddress: addr, ObjectIndex: index}, nil
}

// WriteID writes a heap ID.
func WriteID(w *binary.Writer, id ID) error {
	if err := w.WriteOffset(id.CollectionAddress); err != nil {
		return err
	}
	return w.WriteUint32(id.ObjectIndex)
}

// IDSize returns the size of a heap ID.
func IDSize(offsetSize int) int {
	return offsetSize + 4
}
