package vl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/dtype"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

var errInjected = errors.New("injected failure")

// spyLibrary counts reclaim and write calls and can inject failures.
type spyLibrary struct {
	*h5lib.Library

	reclaims   int
	reclaimErr error
	reads      int
	readErr    error
	writes     int
	writeErr   error
	// onRead sees the buffer after a successful native read.
	onRead func(buf native.Ptr)
	// onWrite sees the buffer handed to the native write.
	onWrite func(buf native.Ptr)
}

func (s *spyLibrary) Reclaim(memType, space h5lib.ID, buf native.Ptr) error {
	s.reclaims++
	if s.reclaimErr != nil {
		return s.reclaimErr
	}
	return s.Library.Reclaim(memType, space, buf)
}

func (s *spyLibrary) ReadAttribute(attr, memType h5lib.ID, buf native.Ptr) error {
	s.reads++
	if s.readErr != nil {
		return s.readErr
	}
	if err := s.Library.ReadAttribute(attr, memType, buf); err != nil {
		return err
	}
	if s.onRead != nil {
		s.onRead(buf)
	}
	return nil
}

func (s *spyLibrary) ReadDataset(ds, memType, memSpace, fileSpace h5lib.ID, buf native.Ptr) error {
	s.reads++
	if s.readErr != nil {
		return s.readErr
	}
	if err := s.Library.ReadDataset(ds, memType, memSpace, fileSpace, buf); err != nil {
		return err
	}
	if s.onRead != nil {
		s.onRead(buf)
	}
	return nil
}

func (s *spyLibrary) WriteAttribute(attr, memType h5lib.ID, buf native.Ptr) error {
	s.writes++
	if s.onWrite != nil {
		s.onWrite(buf)
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.Library.WriteAttribute(attr, memType, buf)
}

func (s *spyLibrary) WriteDataset(ds, memType, memSpace, fileSpace h5lib.ID, buf native.Ptr) error {
	s.writes++
	if s.onWrite != nil {
		s.onWrite(buf)
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.Library.WriteDataset(ds, memType, memSpace, fileSpace, buf)
}

type fixture struct {
	t    *testing.T
	lib  *spyLibrary
	heap *native.Heap
	word int
}

func newFixture(t *testing.T, word int) *fixture {
	t.Helper()
	mem, err := native.NewSliceMemory(word)
	require.NoError(t, err)
	return newFixtureOn(t, mem)
}

func newFixtureOn(t *testing.T, mem native.Memory) *fixture {
	t.Helper()
	h := native.NewHeap(mem, nil)
	lib, err := h5lib.New(h5lib.Config{Heap: h})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return &fixture{t: t, lib: &spyLibrary{Library: lib}, heap: h, word: mem.WordSize()}
}

func (f *fixture) commit(dt *message.Datatype) h5lib.ID {
	f.t.Helper()
	id, err := f.lib.CommitType(dt)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) space(dims ...uint64) h5lib.ID {
	f.t.Helper()
	id, err := f.lib.CreateSimpleSpace(dims)
	require.NoError(f.t, err)
	return id
}

// attribute creates an attribute of dt and returns it with dt's handle.
func (f *fixture) attribute(name string, dt *message.Datatype, dims ...uint64) (Attribute, h5lib.ID) {
	f.t.Helper()
	tid := f.commit(dt)
	id, err := f.lib.CreateAttribute(name, tid, f.space(dims...))
	require.NoError(f.t, err)
	return Attribute{ID: id, Name: name}, tid
}

func (f *fixture) dataset(name string, dt *message.Datatype, dims ...uint64) (DatasetRegion, h5lib.ID) {
	f.t.Helper()
	tid := f.commit(dt)
	id, err := f.lib.CreateDataset(name, tid, f.space(dims...))
	require.NoError(f.t, err)
	return DatasetRegion{ID: id, Name: name, MemSpace: h5lib.All, FileSpace: h5lib.All}, tid
}

func (f *fixture) marshaller(opts ...Option) *Marshaller {
	return New(f.lib, opts...)
}

func (f *fixture) live() uint64 {
	return f.heap.Stats().LiveBlocks
}

// Element types in native layout.

func i32() *message.Datatype {
	return message.NewFixedPointDatatype(4, true, message.OrderLE)
}

func f64() *message.Datatype {
	return message.NewFloatDatatype(8, message.OrderLE)
}

func (f *fixture) vlString() *message.Datatype {
	return message.NewVarLenStringDatatype(message.CharsetUTF8, f.word)
}

func (f *fixture) vlen(base *message.Datatype) *message.Datatype {
	return message.NewVarLenSequenceDatatype(base, f.word)
}

func (f *fixture) compound(names []string, types ...*message.Datatype) *message.Datatype {
	offs, size := dtype.NativeLayout(types, f.word)
	members := make([]message.CompoundMember, len(types))
	for i, t := range types {
		members[i] = message.CompoundMember{Name: names[i], ByteOffset: offs[i], Type: t}
	}
	return message.NewCompoundDatatype(size, members)
}

func ptr(s string) *string { return &s }
