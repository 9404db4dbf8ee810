package h5lib

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/dtype"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

type objectKey struct {
	kind Kind
	name string
}

// object is an attribute or dataset. Its metadata lives in the image as a
// header of messages; a dataset's elements live in a separate data block.
type object struct {
	kind       Kind
	name       string
	headerAddr uint64
	headerSize int
	dataAddr   uint64
	dataSize   int
}

// writeHeader stores msgs as a header: for each message a 2-byte type, a
// 4-byte size and the body. Called with l.mu held.
func (l *Library) writeHeader(msgs ...message.Serializable) (uint64, int, error) {
	size := 0
	bodies := make([][]byte, len(msgs))
	for i, m := range msgs {
		body, err := l.encodeMessage(m)
		if err != nil {
			return 0, 0, err
		}
		bodies[i] = body
		size += 6 + len(body)
	}

	addr := l.space.AllocTagged(uint64(size), "header")
	w := l.store.Writer().At(int64(addr))
	for i, m := range msgs {
		if err := w.WriteUint16(uint16(m.Type())); err != nil {
			return 0, 0, err
		}
		if err := w.WriteUint32(uint32(len(bodies[i]))); err != nil {
			return 0, 0, err
		}
		if err := w.WriteBytes(bodies[i]); err != nil {
			return 0, 0, err
		}
	}
	return addr, size, nil
}

func (l *Library) encodeMessage(m message.Serializable) ([]byte, error) {
	buf := binary.NewBuffer(0)
	if err := m.Serialize(binary.NewWriter(buf, l.cfg)); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", m, err)
	}
	return buf.Bytes(), nil
}

// readHeader parses the header of o into fresh messages. Called with l.mu
// held.
func (l *Library) readHeader(o *object) ([]message.Message, error) {
	r := l.store.Reader().At(int64(o.headerAddr))
	end := int64(o.headerAddr) + int64(o.headerSize)

	var msgs []message.Message
	for r.Pos() < end {
		typ, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, err
		}
		msg, err := message.Parse(message.Type(typ), body, r)
		if err != nil {
			return nil, fmt.Errorf("%s %q header: %w", o.kind, o.name, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// meta returns the stored type and dataspace of o, and for attributes the
// attribute message itself. Called with l.mu held.
func (l *Library) meta(o *object) (*message.Datatype, *message.Dataspace, *message.Attribute, error) {
	msgs, err := l.readHeader(o)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		dt   *message.Datatype
		ds   *message.Dataspace
		attr *message.Attribute
	)
	for _, m := range msgs {
		switch m := m.(type) {
		case *message.Datatype:
			dt = m
		case *message.Dataspace:
			ds = m
		case *message.Attribute:
			attr, dt, ds = m, m.Datatype, m.Dataspace
		}
	}
	if dt == nil || ds == nil {
		return nil, nil, nil, fmt.Errorf("%s %q header has no datatype or dataspace", o.kind, o.name)
	}
	return dt, ds, attr, nil
}

func (l *Library) create(kind Kind, name string, typeID, spaceID ID) (ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	th, err := l.lookup(typeID, KindDatatype)
	if err != nil {
		return 0, err
	}
	sh, err := l.lookup(spaceID, KindDataspace)
	if err != nil {
		return 0, err
	}
	key := objectKey{kind, name}
	if _, ok := l.objects[key]; ok {
		return 0, fmt.Errorf("%s %q: %w", kind, name, ErrExists)
	}

	dt, space := th.dt, sh.space.Clone()
	space.SelectAll()
	dataSize := int(space.NumElements()) * int(dtype.FileSize(dt, l.cfg.OffsetSize))

	o := &object{kind: kind, name: name}
	if kind == KindAttribute {
		attr := message.NewAttribute(name, dt, space, make([]byte, dataSize))
		o.headerAddr, o.headerSize, err = l.writeHeader(attr)
	} else {
		o.headerAddr, o.headerSize, err = l.writeHeader(dt, space)
		if err == nil {
			o.dataAddr = l.space.AllocTagged(uint64(dataSize), "data")
			o.dataSize = dataSize
			err = l.store.Writer().At(int64(o.dataAddr)).WriteZeros(dataSize)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("create %s %q: %w", kind, name, err)
	}

	l.objects[key] = o
	l.log.Debug("object created",
		zap.Stringer("kind", kind),
		zap.String("name", name),
		zap.Stringer("type", dt),
		zap.Uint64("elements", space.NumElements()))
	return l.register(&handle{kind: kind, obj: o}), nil
}

func (l *Library) open(kind Kind, name string) (ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}
	o, ok := l.objects[objectKey{kind, name}]
	if !ok {
		return 0, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return l.register(&handle{kind: kind, obj: o}), nil
}

// CreateAttribute creates an attribute with the given type and extent.
// Every element starts zeroed: VL elements are null references.
func (l *Library) CreateAttribute(name string, typeID, spaceID ID) (ID, error) {
	return l.create(KindAttribute, name, typeID, spaceID)
}

// OpenAttribute returns a new handle to an existing attribute.
func (l *Library) OpenAttribute(name string) (ID, error) {
	return l.open(KindAttribute, name)
}

// CreateDataset creates a dataset with the given type and extent.
func (l *Library) CreateDataset(name string, typeID, spaceID ID) (ID, error) {
	return l.create(KindDataset, name, typeID, spaceID)
}

// OpenDataset returns a new handle to an existing dataset.
func (l *Library) OpenDataset(name string) (ID, error) {
	return l.open(KindDataset, name)
}

func (l *Library) objectMeta(id ID, kind Kind) (*message.Datatype, *message.Dataspace, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, err := l.lookup(id, kind)
	if err != nil {
		return nil, nil, err
	}
	dt, ds, _, err := l.meta(h.obj)
	return dt, ds, err
}

func (l *Library) typeOf(id ID, kind Kind) (ID, error) {
	dt, _, err := l.objectMeta(id, kind)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.register(&handle{kind: KindDatatype, dt: dt}), nil
}

func (l *Library) spaceHandle(id ID, kind Kind) (ID, error) {
	_, ds, err := l.objectMeta(id, kind)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.register(&handle{kind: KindDataspace, space: ds}), nil
}

// AttributeType returns a new handle to the stored type of an attribute.
func (l *Library) AttributeType(attr ID) (ID, error) {
	return l.typeOf(attr, KindAttribute)
}

// AttributeSpace returns a new handle to the dataspace of an attribute.
func (l *Library) AttributeSpace(attr ID) (ID, error) {
	return l.spaceHandle(attr, KindAttribute)
}

// DatasetType returns a new handle to the stored type of a dataset.
func (l *Library) DatasetType(ds ID) (ID, error) {
	return l.typeOf(ds, KindDataset)
}

// DatasetSpace returns a new handle to the dataspace of a dataset, with
// everything selected.
func (l *Library) DatasetSpace(ds ID) (ID, error) {
	return l.spaceHandle(ds, KindDataset)
}
