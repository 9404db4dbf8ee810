package heap

import (
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// Writer batches objects and writes them as global heap collections.
type Writer struct {
	w         *binary.Writer
	allocator func(size int64) uint64
	objects   [][]byte
}

// NewWriter creates a writer that places collections at addresses returned
// by allocator.
func NewWriter(w *binary.Writer, allocator func(size int64) uint64) *Writer {
	return &Writer{w: w, allocator: allocator}
}

// Add queues an object and returns its position in the batch.
func (hw *Writer) Add(data []byte) int {
	hw.objects = append(hw.objects, data)
	return len(hw.objects) - 1
}

// Pending returns the number of queued objects.
func (hw *Writer) Pending() int {
	return len(hw.objects)
}

// Flush writes the queued objects, MaxObjects per collection, and returns
// their IDs in the order they were added.
func (hw *Writer) Flush() ([]ID, error) {
	ids := make([]ID, 0, len(hw.objects))
	for start := 0; start < len(hw.objects); start += MaxObjects {
		end := min(start+MaxObjects, len(hw.objects))
		batch, err := hw.writeCollection(hw.objects[start:end])
		if err != nil {
			return nil, err
		}
		ids = append(ids, batch...)
	}
	hw.objects = nil
	return ids, nil
}

func (hw *Writer) writeCollection(objects [][]byte) ([]ID, error) {
	lengthSize := hw.w.LengthSize()

	// signature(4) + version(1) + reserved(3) + collectionSize
	headerSize := 4 + 1 + 3 + lengthSize

	objectsSize := 0
	for _, obj := range objects {
		// index(2) + refcount(2) + reserved(4) + size + data padded to 8
		objectsSize += 2 + 2 + 4 + lengthSize + len(obj) + (8-len(obj)%8)%8
	}

	// End marker: index(2) = 0
	totalSize := headerSize + objectsSize + 2
	collectionSize := totalSize + (8-totalSize%8)%8

	heapAddr := hw.allocator(int64(collectionSize))
	w := hw.w.At(int64(heapAddr))

	if err := w.WriteBytes([]byte("GCOL")); err != nil {
		return nil, err
	}
	if err := w.WriteBytes([]byte{1, 0, 0, 0}); err != nil { // version 1 + reserved
		return nil, err
	}
	if err := w.WriteLength(uint64(collectionSize)); err != nil {
		return nil, err
	}

	ids := make([]ID, len(objects))
	for i, obj := range objects {
		index := uint16(i + 1) // 1-indexed

		if err := w.WriteUint16(index); err != nil {
			return nil, err
		}
		// Reference count 1, reserved
		if err := w.WriteBytes([]byte{1, 0, 0, 0, 0, 0}); err != nil {
			return nil, err
		}
		if err := w.WriteLength(uint64(len(obj))); err != nil {
			return nil, err
		}
		if err := w.WriteBytes(obj); err != nil {
			return nil, err
		}
		if err := w.WriteZeros((8 - len(obj)%8) % 8); err != nil {
			return nil, err
		}

		ids[i] = ID{CollectionAddress: heapAddr, ObjectIndex: uint32(index)}
	}

	if err := w.WriteUint16(0); err != nil {
		return nil, err
	}
	if err := w.WriteZeros(collectionSize - totalSize); err != nil {
		return nil, err
	}

	return ids, nil
}
