package heap

import (
	"io"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
)

// Image is the byte image collections live in.
type Image interface {
	io.ReaderAt
	io.WriterAt
}

// Store reads and writes VL objects in an image, caching collections.
type Store struct {
	image    Image
	cfg      binary.Config
	allocate func(size int64) uint64
	cache    map[uint64]*Collection
}

// NewStore creates a store over image.
func NewStore(image Image, cfg binary.Config, allocate func(size int64) uint64) *Store {
	return &Store{
		image:    image,
		cfg:      cfg,
		allocate: allocate,
		cache:    make(map[uint64]*Collection),
	}
}

// Get returns a copy of the object id refers to. The null reference yields
// nil.
func (s *Store) Get(id ID) ([]byte, error) {
	if id.IsNull() {
		return nil, nil
	}
	c, ok := s.cache[id.CollectionAddress]
	if !ok {
		var err error
		c, err = ReadCollection(binary.NewReader(s.image, s.cfg), id.CollectionAddress)
		if err != nil {
			return nil, err
		}
		s.cache[id.CollectionAddress] = c
	}
	return c.Object(id.ObjectIndex)
}

// NewWriter starts a batch of objects for one write.
func (s *Store) NewWriter() *Writer {
	return NewWriter(binary.NewWriter(s.image, s.cfg), s.allocate)
}

// Collections returns the number of collections read so far.
func (s *Store) Collections() int {
	return len(s.cache)
}

// Reader returns a reader over the image.
func (s *Store) Reader() *binary.Reader {
	return binary.NewReader(s.image, s.cfg)
}

// Writer returns a writer over the image.
func (s *Store) Writer() *binary.Writer {
	return binary.NewWriter(s.image, s.cfg)
}
