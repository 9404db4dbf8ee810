package hdf5

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"
)

// Dataset is a named N-dimensional array of elements.
type Dataset struct {
	s     *Session
	id    h5lib.ID
	name  string
	dtype *Datatype
	owned bool
}

// Selection picks a block of a dataset: Count elements per dimension
// starting at Start. MemDims optionally shapes the memory side; its
// element count must match. A nil *Selection selects everything.
type Selection struct {
	Start   []uint64
	Count   []uint64
	MemDims []uint64
}

// CreateDataset creates a dataset of type t with the given dimensions.
func (s *Session) CreateDataset(name string, t *Datatype, dims ...uint64) (*Dataset, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	space, err := s.lib.CreateSimpleSpace(dims)
	if err != nil {
		return nil, err
	}
	defer s.lib.CloseHandle(space)

	id, err := s.lib.CreateDataset(name, t.id, space)
	if err != nil {
		return nil, fmt.Errorf("creating dataset %q: %w", name, err)
	}
	return &Dataset{s: s, id: id, name: name, dtype: t}, nil
}

// OpenDataset opens an existing dataset with its stored type.
func (s *Session) OpenDataset(name string) (*Dataset, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	id, err := s.lib.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %q: %w", name, err)
	}
	tid, err := s.lib.DatasetType(id)
	if err != nil {
		s.lib.CloseHandle(id)
		return nil, err
	}
	t, err := s.storedType(tid)
	if err != nil {
		s.lib.CloseHandle(tid)
		s.lib.CloseHandle(id)
		return nil, err
	}
	return &Dataset{s: s, id: id, name: name, dtype: t, owned: true}, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// Type returns the dataset's element type.
func (d *Dataset) Type() *Datatype {
	return d.dtype
}

// Shape returns the dimensions of the dataset.
func (d *Dataset) Shape() ([]uint64, error) {
	space, err := d.s.lib.DatasetSpace(d.id)
	if err != nil {
		return nil, err
	}
	defer d.s.lib.CloseHandle(space)
	return d.s.lib.Dimensions(space)
}

// region builds the container for sel. The returned release closes the
// space handles it created.
func (d *Dataset) region(sel *Selection) (vl.DatasetRegion, func(), error) {
	r := vl.DatasetRegion{ID: d.id, Name: d.name, MemSpace: h5lib.All, FileSpace: h5lib.All}
	var handles []h5lib.ID
	release := func() {
		for _, h := range handles {
			d.s.lib.CloseHandle(h)
		}
	}
	if sel == nil {
		return r, release, nil
	}

	if sel.Count != nil {
		fs, err := d.s.lib.DatasetSpace(d.id)
		if err != nil {
			return r, release, err
		}
		handles = append(handles, fs)
		start := sel.Start
		if start == nil {
			start = make([]uint64, len(sel.Count))
		}
		if err := d.s.lib.SelectHyperslab(fs, start, sel.Count); err != nil {
			release()
			return r, func() {}, fmt.Errorf("selecting %v+%v of %q: %w", start, sel.Count, d.name, err)
		}
		r.FileSpace = fs
	}
	if sel.MemDims != nil {
		ms, err := d.s.lib.CreateSimpleSpace(sel.MemDims)
		if err != nil {
			release()
			return r, func() {}, err
		}
		handles = append(handles, ms)
		r.MemSpace = ms
	}
	return r, release, nil
}

// ReadVariable reads the selected elements.
func (d *Dataset) ReadVariable(sel *Selection) ([]Value, error) {
	if err := d.s.check(); err != nil {
		return nil, err
	}
	r, release, err := d.region(sel)
	if err != nil {
		return nil, err
	}
	defer release()
	return d.s.vl.ReadVariable(r, d.dtype.id)
}

// WriteVariable writes one value per selected element.
func (d *Dataset) WriteVariable(sel *Selection, values []Value) error {
	if err := d.s.check(); err != nil {
		return err
	}
	r, release, err := d.region(sel)
	if err != nil {
		return err
	}
	defer release()
	return d.s.vl.WriteVariable(r, d.dtype.id, values)
}

// ReadStrings reads the selected elements of a string dataset.
func (d *Dataset) ReadStrings(sel *Selection) ([]string, error) {
	if err := d.s.check(); err != nil {
		return nil, err
	}
	r, release, err := d.region(sel)
	if err != nil {
		return nil, err
	}
	defer release()
	return d.s.vl.ReadStrings(r, d.dtype.id)
}

// WriteStrings writes the selected elements of a string dataset. nil
// entries are written as "".
func (d *Dataset) WriteStrings(sel *Selection, values []*string) error {
	if err := d.s.check(); err != nil {
		return err
	}
	r, release, err := d.region(sel)
	if err != nil {
		return err
	}
	defer release()
	return d.s.vl.WriteStrings(r, d.dtype.id, values)
}

// Close releases the dataset handle.
func (d *Dataset) Close() error {
	if d.owned {
		if err := d.dtype.Close(); err != nil {
			return err
		}
	}
	return d.s.lib.CloseHandle(d.id)
}
