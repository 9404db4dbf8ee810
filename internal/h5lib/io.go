package h5lib

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/dtype"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// transfer is one resolved read or write: the memory and stored types and
// the element indices on both sides.
type transfer struct {
	mem, stored *message.Datatype
	fileIdx     []uint64
	memIdx      []uint64
}

func (l *Library) memType(id ID, stored *message.Datatype) (*message.Datatype, error) {
	th, err := l.lookup(id, KindDatatype)
	if err != nil {
		return nil, err
	}
	if !message.Equivalent(th.dt, stored) {
		return nil, fmt.Errorf("memory type %s, stored type %s: %w", th.dt, stored, ErrConversion)
	}
	return th.dt, nil
}

// resolve builds a transfer for an object. Called with l.mu held.
func (l *Library) resolve(stored *message.Datatype, space *message.Dataspace, memTypeID, memSpace, fileSpace ID) (*transfer, error) {
	mem, err := l.memType(memTypeID, stored)
	if err != nil {
		return nil, err
	}

	fs, err := l.spaceOf(fileSpace, space)
	if err != nil {
		return nil, err
	}
	if fs.NumElements() != space.NumElements() || len(fs.Dimensions) != len(space.Dimensions) {
		return nil, fmt.Errorf("file space of %d elements for an object of %d: %w",
			fs.NumElements(), space.NumElements(), ErrSelection)
	}

	t := &transfer{mem: mem, stored: stored, fileIdx: fs.SelectedIndices()}

	ms, err := l.spaceOf(memSpace, nil)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		t.memIdx = make([]uint64, len(t.fileIdx))
		for i := range t.memIdx {
			t.memIdx[i] = uint64(i)
		}
	} else {
		t.memIdx = ms.SelectedIndices()
	}
	if len(t.memIdx) != len(t.fileIdx) {
		return nil, fmt.Errorf("%d memory elements for %d file elements: %w",
			len(t.memIdx), len(t.fileIdx), ErrSelection)
	}
	return t, nil
}

// readElements fills buf from data. On failure every native block the call
// allocated is freed again.
func (l *Library) readElements(t *transfer, data []byte, buf native.Ptr) error {
	if len(t.fileIdx) > 0 && buf == native.Null {
		return fmt.Errorf("read into null buffer: %w", native.ErrNullPointer)
	}
	c := l.newConverter()
	fsz := uint64(dtype.FileSize(t.stored, l.cfg.OffsetSize))
	msz := uint64(t.mem.Size)
	for k, fi := range t.fileIdx {
		dst := buf + native.Ptr(t.memIdx[k]*msz)
		if err := c.toMemory(t.mem, t.stored, data[fi*fsz:(fi+1)*fsz], dst); err != nil {
			c.rollback()
			return fmt.Errorf("element %d: %w", fi, err)
		}
	}
	l.log.Debug("elements read",
		zap.Int("elements", len(t.fileIdx)),
		zap.Int("native_blocks", len(c.allocated)))
	return nil
}

// writeElements converts buf into a copy of data and returns it with every
// heap reference resolved.
func (l *Library) writeElements(t *transfer, data []byte, buf native.Ptr) ([]byte, error) {
	if len(t.fileIdx) > 0 && buf == native.Null {
		return nil, fmt.Errorf("write from null buffer: %w", native.ErrNullPointer)
	}
	out := append([]byte(nil), data...)
	c := l.newConverter()
	fsz := uint64(dtype.FileSize(t.stored, l.cfg.OffsetSize))
	msz := uint64(t.mem.Size)

	var fx []fixup
	for k, fi := range t.fileIdx {
		src := buf + native.Ptr(t.memIdx[k]*msz)
		if err := c.toFile(t.mem, t.stored, src, out[fi*fsz:(fi+1)*fsz], &fx); err != nil {
			return nil, fmt.Errorf("element %d: %w", fi, err)
		}
	}
	if err := c.flush(fx); err != nil {
		return nil, err
	}
	l.log.Debug("elements written",
		zap.Int("elements", len(t.fileIdx)),
		zap.Int("heap_objects", c.added))
	return out, nil
}

// ReadAttribute reads every element of an attribute into buf, laid out per
// memType. VL payloads and strings are allocated on the native heap and
// belong to the caller until reclaimed.
func (l *Library) ReadAttribute(attr, memType ID, buf native.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(attr, KindAttribute)
	if err != nil {
		return err
	}
	stored, space, a, err := l.meta(h.obj)
	if err != nil {
		return err
	}
	t, err := l.resolve(stored, space, memType, All, All)
	if err != nil {
		return fmt.Errorf("read attribute %q: %w", h.obj.name, err)
	}
	if err := l.readElements(t, a.Data, buf); err != nil {
		return fmt.Errorf("read attribute %q: %w", h.obj.name, err)
	}
	return nil
}

// WriteAttribute replaces every element of an attribute with the contents
// of buf. The library does not take ownership of any native memory.
func (l *Library) WriteAttribute(attr, memType ID, buf native.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(attr, KindAttribute)
	if err != nil {
		return err
	}
	o := h.obj
	stored, space, a, err := l.meta(o)
	if err != nil {
		return err
	}
	t, err := l.resolve(stored, space, memType, All, All)
	if err != nil {
		return fmt.Errorf("write attribute %q: %w", o.name, err)
	}
	data, err := l.writeElements(t, a.Data, buf)
	if err != nil {
		return fmt.Errorf("write attribute %q: %w", o.name, err)
	}

	a.Data = data
	addr, size, err := l.writeHeader(a)
	if err != nil {
		return fmt.Errorf("write attribute %q: %w", o.name, err)
	}
	if _, err := l.space.Free(o.headerAddr); err != nil {
		l.log.Warn("freeing old attribute header", zap.String("name", o.name), zap.Error(err))
	}
	o.headerAddr, o.headerSize = addr, size
	return nil
}

func (l *Library) datasetData(o *object) ([]byte, error) {
	return l.store.Reader().At(int64(o.dataAddr)).ReadBytes(o.dataSize)
}

// ReadDataset reads the elements selected by fileSpace into the positions
// of buf selected by memSpace. All for fileSpace means every element; All
// for memSpace means a dense buffer of the selected elements.
func (l *Library) ReadDataset(ds, memType, memSpace, fileSpace ID, buf native.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(ds, KindDataset)
	if err != nil {
		return err
	}
	stored, space, _, err := l.meta(h.obj)
	if err != nil {
		return err
	}
	t, err := l.resolve(stored, space, memType, memSpace, fileSpace)
	if err != nil {
		return fmt.Errorf("read dataset %q: %w", h.obj.name, err)
	}
	data, err := l.datasetData(h.obj)
	if err != nil {
		return fmt.Errorf("read dataset %q: %w", h.obj.name, err)
	}
	if err := l.readElements(t, data, buf); err != nil {
		return fmt.Errorf("read dataset %q: %w", h.obj.name, err)
	}
	return nil
}

// WriteDataset writes the selected elements of buf into the selected
// elements of a dataset. Nothing is stored unless every element converts.
func (l *Library) WriteDataset(ds, memType, memSpace, fileSpace ID, buf native.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(ds, KindDataset)
	if err != nil {
		return err
	}
	o := h.obj
	stored, space, _, err := l.meta(o)
	if err != nil {
		return err
	}
	t, err := l.resolve(stored, space, memType, memSpace, fileSpace)
	if err != nil {
		return fmt.Errorf("write dataset %q: %w", o.name, err)
	}
	data, err := l.datasetData(o)
	if err != nil {
		return fmt.Errorf("write dataset %q: %w", o.name, err)
	}
	data, err = l.writeElements(t, data, buf)
	if err != nil {
		return fmt.Errorf("write dataset %q: %w", o.name, err)
	}
	if err := l.store.Writer().At(int64(o.dataAddr)).WriteBytes(data); err != nil {
		return fmt.Errorf("write dataset %q: %w", o.name, err)
	}
	return nil
}
