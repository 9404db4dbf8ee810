package native

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Lifetime is the release policy of a Region.
type Lifetime uint8

const (
	// Confined blocks are freed when the region is closed, which the
	// acquiring call defers.
	Confined Lifetime = iota
	// ProcessLifetime blocks outlive the call once handed over; the native
	// side frees them (reclaim).
	ProcessLifetime
)

func (l Lifetime) String() string {
	switch l {
	case Confined:
		return "confined"
	case ProcessLifetime:
		return "process-lifetime"
	default:
		return fmt.Sprintf("Lifetime(%d)", uint8(l))
	}
}

var (
	// ErrRegionClosed is returned when allocating from a closed region.
	ErrRegionClosed = errors.New("native region is closed")
	// ErrConfinedHandover is returned when handing over a confined region.
	ErrConfinedHandover = errors.New("confined region cannot be handed over")
)

// Region is a scoped set of heap blocks with one lifetime policy. A region
// is owned by the call that acquired it and is not safe for concurrent use.
type Region struct {
	heap       *Heap
	lifetime   Lifetime
	blocks     []Ptr
	bytes      uint64
	handedOver bool
	closed     bool
}

// Acquire creates an empty region with the given lifetime.
func (h *Heap) Acquire(l Lifetime) *Region {
	return &Region{heap: h, lifetime: l}
}

// Lifetime returns the region's lifetime policy.
func (r *Region) Lifetime() Lifetime {
	return r.lifetime
}

// Heap returns the heap the region allocates from.
func (r *Region) Heap() *Heap {
	return r.heap
}

// Allocate returns a zeroed block of size bytes owned by the region.
func (r *Region) Allocate(size int) (Ptr, error) {
	if r.closed {
		return Null, ErrRegionClosed
	}
	if r.handedOver {
		return Null, fmt.Errorf("allocate after handover: %w", ErrRegionClosed)
	}
	p, err := r.heap.Malloc(uint64(size))
	if err != nil {
		return Null, err
	}
	r.blocks = append(r.blocks, p)
	r.bytes += uint64(size)
	return p, nil
}

// Buffer allocates a block and wraps it as an Owned buffer.
func (r *Region) Buffer(size int) (Owned, error) {
	p, err := r.Allocate(size)
	if err != nil {
		return Owned{}, err
	}
	return Owned{ptr: p, size: size, region: r}, nil
}

// Handover transfers ownership of every block to the native side. After
// handover Close leaves the blocks alive.
func (r *Region) Handover() error {
	if r.lifetime != ProcessLifetime {
		return ErrConfinedHandover
	}
	r.handedOver = true
	return nil
}

// Blocks returns the number of blocks allocated from the region.
func (r *Region) Blocks() int {
	return len(r.blocks)
}

// Close ends the region's scope. Confined blocks are always freed;
// process-lifetime blocks are freed only if they were never handed over.
// Close is idempotent.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.handedOver {
		r.heap.log.Debug("region handed over",
			zap.Stringer("lifetime", r.lifetime),
			zap.Int("blocks", len(r.blocks)),
			zap.Uint64("bytes", r.bytes))
		r.blocks = nil
		return nil
	}

	var errs []error
	for _, p := range r.blocks {
		if err := r.heap.Free(p); err != nil {
			errs = append(errs, err)
		}
	}
	r.heap.log.Debug("region released",
		zap.Stringer("lifetime", r.lifetime),
		zap.Int("blocks", len(r.blocks)),
		zap.Uint64("bytes", r.bytes))
	r.blocks = nil
	return errors.Join(errs...)
}
