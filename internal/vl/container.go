package vl

import (
	"fmt"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// Library is the native library surface the marshalling core consumes.
// *h5lib.Library implements it.
type Library interface {
	Heap() *native.Heap
	Datatype(id h5lib.ID) (*message.Datatype, error)

	CreateSimpleSpace(dims []uint64) (h5lib.ID, error)
	ElementCount(space h5lib.ID) (uint64, error)
	Dimensions(space h5lib.ID) ([]uint64, error)
	CloseHandle(id h5lib.ID) error

	AttributeSpace(attr h5lib.ID) (h5lib.ID, error)
	DatasetSpace(ds h5lib.ID) (h5lib.ID, error)

	ReadAttribute(attr, memType h5lib.ID, buf native.Ptr) error
	WriteAttribute(attr, memType h5lib.ID, buf native.Ptr) error
	ReadDataset(ds, memType, memSpace, fileSpace h5lib.ID, buf native.Ptr) error
	WriteDataset(ds, memType, memSpace, fileSpace h5lib.ID, buf native.Ptr) error

	Reclaim(memType, space h5lib.ID, buf native.Ptr) error
}

var _ Library = (*h5lib.Library)(nil)

// Container is where a transfer reads or writes: an Attribute or a
// DatasetRegion.
type Container interface {
	fmt.Stringer
	// elementCount returns the number of elements the transfer covers.
	elementCount(lib Library) (uint64, error)
	// bufferSpace returns a space describing the memory buffer, for the
	// reclaim primitive. release closes it if it was created for the call.
	bufferSpace(lib Library) (space h5lib.ID, release func(), err error)
	transfer(lib Library, op Op, memType h5lib.ID, buf native.Ptr) error
}

// Attribute addresses every element of an attribute.
type Attribute struct {
	ID   h5lib.ID
	Name string
}

func (a Attribute) String() string {
	return fmt.Sprintf("attribute %q", a.Name)
}

func (a Attribute) elementCount(lib Library) (uint64, error) {
	space, release, err := a.bufferSpace(lib)
	if err != nil {
		return 0, err
	}
	defer release()
	return lib.ElementCount(space)
}

func (a Attribute) bufferSpace(lib Library) (h5lib.ID, func(), error) {
	space, err := lib.AttributeSpace(a.ID)
	if err != nil {
		return 0, nil, err
	}
	return space, func() { lib.CloseHandle(space) }, nil
}

func (a Attribute) transfer(lib Library, op Op, memType h5lib.ID, buf native.Ptr) error {
	if op == OpWrite {
		return lib.WriteAttribute(a.ID, memType, buf)
	}
	return lib.ReadAttribute(a.ID, memType, buf)
}

// DatasetRegion addresses the selected elements of a dataset. h5lib.All
// for FileSpace means the whole dataset; for MemSpace it means a dense
// buffer of the selected elements. A memory space must not carry a
// selection of its own.
type DatasetRegion struct {
	ID        h5lib.ID
	Name      string
	MemSpace  h5lib.ID
	FileSpace h5lib.ID
}

func (r DatasetRegion) String() string {
	if r.FileSpace == h5lib.All {
		return fmt.Sprintf("dataset %q", r.Name)
	}
	return fmt.Sprintf("dataset %q (selection)", r.Name)
}

func (r DatasetRegion) elementCount(lib Library) (uint64, error) {
	var n uint64
	if r.FileSpace == h5lib.All {
		space, err := lib.DatasetSpace(r.ID)
		if err != nil {
			return 0, err
		}
		defer lib.CloseHandle(space)
		if n, err = lib.ElementCount(space); err != nil {
			return 0, err
		}
	} else {
		var err error
		if n, err = lib.ElementCount(r.FileSpace); err != nil {
			return 0, err
		}
	}

	if r.MemSpace == h5lib.All {
		return n, nil
	}
	m, err := lib.ElementCount(r.MemSpace)
	if err != nil {
		return 0, err
	}
	dims, err := lib.Dimensions(r.MemSpace)
	if err != nil {
		return 0, err
	}
	extent := uint64(1)
	for _, d := range dims {
		extent *= d
	}
	if m != n || extent != m {
		return 0, newError("", KindBufferSizeMismatch).
			Detail("memory space of %d elements (%d selected) for %d file elements", extent, m, n).Build()
	}
	return n, nil
}

// bufferSpace re-queries the dataset's space when the call used the
// default, since the buffer then covers the whole dataset.
func (r DatasetRegion) bufferSpace(lib Library) (h5lib.ID, func(), error) {
	if r.MemSpace != h5lib.All {
		return r.MemSpace, func() {}, nil
	}
	var (
		space h5lib.ID
		err   error
	)
	if r.FileSpace == h5lib.All {
		space, err = lib.DatasetSpace(r.ID)
	} else {
		var n uint64
		if n, err = lib.ElementCount(r.FileSpace); err != nil {
			return 0, nil, err
		}
		space, err = lib.CreateSimpleSpace([]uint64{n})
	}
	if err != nil {
		return 0, nil, err
	}
	return space, func() { lib.CloseHandle(space) }, nil
}

func (r DatasetRegion) transfer(lib Library, op Op, memType h5lib.ID, buf native.Ptr) error {
	if op == OpWrite {
		return lib.WriteDataset(r.ID, memType, r.MemSpace, r.FileSpace, buf)
	}
	return lib.ReadDataset(r.ID, memType, r.MemSpace, r.FileSpace, buf)
}
