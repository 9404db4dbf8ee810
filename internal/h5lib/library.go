package h5lib

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/alloc"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/heap"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// ID is a library handle. Handles are process state: every handle returned
// must be closed, and Close reports the ones that were not.
type ID int64

// All selects the whole dataspace in read and write calls.
const All ID = 0

// firstID keeps handles well away from All and small integers.
const firstID ID = 1 << 24

// Kind is the kind of object a handle refers to.
type Kind uint8

const (
	KindDatatype Kind = iota + 1
	KindDataspace
	KindAttribute
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindDatatype:
		return "datatype"
	case KindDataspace:
		return "dataspace"
	case KindAttribute:
		return "attribute"
	case KindDataset:
		return "dataset"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Config configures a Library.
type Config struct {
	// Heap is the native address space VL payloads are allocated in.
	Heap *native.Heap
	// OffsetSize is the width of heap addresses in the image (2, 4 or 8).
	OffsetSize int
	Logger     *zap.Logger
}

// Library keeps typed objects in a byte image and converts their elements
// to and from native memory.
type Library struct {
	mu sync.Mutex

	heap  *native.Heap
	image *binary.Buffer
	space *alloc.Allocator
	store *heap.Store
	cfg   binary.Config
	log   *zap.Logger

	handles map[ID]*handle
	next    ID
	objects map[objectKey]*object
	closed  bool
}

type handle struct {
	kind  Kind
	dt    *message.Datatype
	space *message.Dataspace
	obj   *object
}

// New creates an empty library.
func New(cfg Config) (*Library, error) {
	if cfg.Heap == nil {
		return nil, fmt.Errorf("h5lib: no native heap")
	}
	if cfg.OffsetSize == 0 {
		cfg.OffsetSize = 8
	}
	bcfg := binary.WordConfig(cfg.OffsetSize)
	if err := bcfg.Validate(); err != nil {
		return nil, fmt.Errorf("h5lib: offset size %d: %w", cfg.OffsetSize, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	image := binary.NewBuffer(0)
	// The first 8 bytes stay unused so that address 0 is the null reference.
	space := alloc.New(8)
	return &Library{
		heap:    cfg.Heap,
		image:   image,
		space:   space,
		store:   heap.NewStore(image, bcfg, space.AllocFunc()),
		cfg:     bcfg,
		log:     cfg.Logger,
		handles: make(map[ID]*handle),
		next:    firstID,
		objects: make(map[objectKey]*object),
	}, nil
}

// Heap returns the native heap the library allocates from.
func (l *Library) Heap() *native.Heap {
	return l.heap
}

// OffsetSize returns the width of heap addresses in the image.
func (l *Library) OffsetSize() int {
	return l.cfg.OffsetSize
}

// ImageSize returns the size of the library's byte image.
func (l *Library) ImageSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.image.Len()
}

// OpenHandles returns the kinds of the handles that are still open, keyed
// by handle.
func (l *Library) OpenHandles() map[ID]Kind {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[ID]Kind, len(l.handles))
	for id, h := range l.handles {
		out[id] = h.kind
	}
	return out
}

// Close tears the library down. Handles still open are reported as an
// error, but the library is closed either way.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if len(l.handles) == 0 {
		return nil
	}
	ids := make([]ID, 0, len(l.handles))
	for id := range l.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	l.log.Warn("library closed with open handles", zap.Int("count", len(ids)))
	l.handles = nil
	return fmt.Errorf("h5lib: %d handles still open (first %d)", len(ids), ids[0])
}

// register returns a new handle for h. Called with l.mu held.
func (l *Library) register(h *handle) ID {
	id := l.next
	l.next++
	l.handles[id] = h
	return id
}

// lookup resolves a handle of the given kind. Called with l.mu held.
func (l *Library) lookup(id ID, kind Kind) (*handle, error) {
	if l.closed {
		return nil, ErrClosed
	}
	h, ok := l.handles[id]
	if !ok {
		return nil, fmt.Errorf("%s handle %d: %w", kind, id, ErrInvalidHandle)
	}
	if h.kind != kind {
		return nil, fmt.Errorf("handle %d is a %s, not a %s: %w", id, h.kind, kind, ErrInvalidHandle)
	}
	return h, nil
}

// CloseHandle releases a handle of any kind.
func (l *Library) CloseHandle(id ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, ok := l.handles[id]; !ok {
		return fmt.Errorf("close handle %d: %w", id, ErrInvalidHandle)
	}
	delete(l.handles, id)
	return nil
}

// CommitType registers a datatype and returns its handle. The library keeps
// its own copy.
func (l *Library) CommitType(dt *message.Datatype) (ID, error) {
	c, err := dt.Clone()
	if err != nil {
		return 0, fmt.Errorf("commit type: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}
	return l.register(&handle{kind: KindDatatype, dt: c}), nil
}

// CloseType releases a datatype handle.
func (l *Library) CloseType(id ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.lookup(id, KindDatatype); err != nil {
		return err
	}
	delete(l.handles, id)
	return nil
}

// Datatype returns a private copy of the descriptor behind a type handle.
func (l *Library) Datatype(id ID) (*message.Datatype, error) {
	l.mu.Lock()
	h, err := l.lookup(id, KindDatatype)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return h.dt.Clone()
}
