package h5lib

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

// CreateSimpleSpace creates an N-dimensional dataspace handle. No
// dimensions gives a scalar dataspace.
func (l *Library) CreateSimpleSpace(dims []uint64) (ID, error) {
	ds := message.NewScalarDataspace()
	if len(dims) > 0 {
		ds = message.NewDataspace(dims, nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}
	return l.register(&handle{kind: KindDataspace, space: ds}), nil
}

// SelectHyperslab replaces the selection of a dataspace handle.
func (l *Library) SelectHyperslab(id ID, start, count []uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(id, KindDataspace)
	if err != nil {
		return err
	}
	if err := h.space.SelectHyperslab(start, count); err != nil {
		return fmt.Errorf("select hyperslab on %d: %w", id, err)
	}
	return nil
}

// ElementCount returns the number of selected elements of a dataspace.
func (l *Library) ElementCount(id ID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(id, KindDataspace)
	if err != nil {
		return 0, err
	}
	return h.space.SelectedCount(), nil
}

// Dimensions returns the extent of a dataspace.
func (l *Library) Dimensions(id ID) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(id, KindDataspace)
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), h.space.Dimensions...), nil
}

// spaceOf resolves a dataspace handle, or def when id is All. Called with
// l.mu held.
func (l *Library) spaceOf(id ID, def *message.Dataspace) (*message.Dataspace, error) {
	if id == All {
		return def, nil
	}
	h, err := l.lookup(id, KindDataspace)
	if err != nil {
		return nil, err
	}
	return h.space, nil
}
