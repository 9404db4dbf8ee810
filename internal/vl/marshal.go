package vl

import (
	"errors"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// Policy selects the lifetime of the native memory a transfer allocates.
type Policy uint8

const (
	// PolicyPerCall keeps every buffer the library only borrows during the
	// call in a confined region. Only memory the library frees later (the
	// payloads of a write, released by reclaim) is process-lifetime.
	PolicyPerCall Policy = iota
	// PolicyProcessLifetime allocates the top-level buffer from a
	// process-lifetime region as well. It is never freed.
	PolicyProcessLifetime
)

func (p Policy) String() string {
	if p == PolicyProcessLifetime {
		return "process-lifetime"
	}
	return "per-call"
}

// Marshaller converts between containers of the native library and
// Values.
type Marshaller struct {
	lib    Library
	policy Policy
	maxStr int
	log    *zap.Logger
}

// Option configures a Marshaller.
type Option func(*Marshaller)

// WithPolicy sets the lifetime policy.
func WithPolicy(p Policy) Option {
	return func(m *Marshaller) { m.policy = p }
}

// WithMaxStringSize bounds VL strings: encode rejects longer ones, decode
// stops scanning there.
func WithMaxStringSize(n int) Option {
	return func(m *Marshaller) { m.maxStr = n }
}

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Marshaller) { m.log = l }
}

// New returns a Marshaller over lib.
func New(lib Library, opts ...Option) *Marshaller {
	m := &Marshaller{lib: lib, maxStr: DefaultMaxStringSize}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = Logger()
	}
	return m
}

// ReadVariable reads every element of c as memory type typeID.
func ReadVariable(lib Library, c Container, typeID h5lib.ID) ([]Value, error) {
	return New(lib).ReadVariable(c, typeID)
}

// WriteVariable writes one value per element of c as memory type typeID.
func WriteVariable(lib Library, c Container, typeID h5lib.ID, values []Value) error {
	return New(lib).WriteVariable(c, typeID, values)
}

// ReadStrings reads a string container; null strings read as "".
func ReadStrings(lib Library, c Container, typeID h5lib.ID) ([]string, error) {
	return New(lib).ReadStrings(c, typeID)
}

// WriteStrings writes a string container; nil entries are written as "".
func WriteStrings(lib Library, c Container, typeID h5lib.ID, values []*string) error {
	return New(lib).WriteStrings(c, typeID, values)
}

// prepare resolves and compiles the type and sizes the transfer. Nothing
// is allocated yet.
func (m *Marshaller) prepare(op Op, c Container, typeID h5lib.ID) (*Plan, uint64, error) {
	dt, err := m.lib.Datatype(typeID)
	if err != nil {
		return nil, 0, newError(op, KindInvalidTypeHandle).
			Detail("type handle %d", typeID).Cause(err).Build()
	}
	plan, err := Compile(dt, m.lib.Heap().WordSize())
	if err != nil {
		return nil, 0, reop(err, op)
	}
	count, err := c.elementCount(m.lib)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, 0, reop(err, op)
		}
		return nil, 0, newError(op, KindNativeCallFailure).
			Detail("element count of %s", c).Cause(err).Build()
	}
	return plan, count, nil
}

func reop(err error, op Op) error {
	if e, ok := err.(*Error); ok {
		e.Op = op
	}
	return err
}

func (m *Marshaller) lifetime() native.Lifetime {
	if m.policy == PolicyProcessLifetime {
		return native.ProcessLifetime
	}
	return native.Confined
}

// keep hands r over when it is process-lifetime. Confined regions stay
// with the call and are freed by Close.
func keep(r *native.Region) error {
	if r.Lifetime() != native.ProcessLifetime {
		return nil
	}
	return r.Handover()
}

func (m *Marshaller) reclaimer(c Container, typeID h5lib.ID, buf *native.Borrowed) func() error {
	return func() error {
		defer buf.Invalidate()
		space, release, err := c.bufferSpace(m.lib)
		if err != nil {
			return err
		}
		defer release()
		return m.lib.Reclaim(typeID, space, buf.Ptr())
	}
}

// ReadVariable reads every element of c as memory type typeID. The
// result is complete or nil.
func (m *Marshaller) ReadVariable(c Container, typeID h5lib.ID) ([]Value, error) {
	plan, count, err := m.prepare(OpRead, c, typeID)
	if err != nil {
		return nil, err
	}

	heap := m.lib.Heap()
	region := heap.Acquire(m.lifetime())
	defer region.Close()
	m.log.Debug("transfer",
		zap.String("op", string(OpRead)),
		zap.Stringer("target", c),
		zap.Stringer("class", plan.Class()),
		zap.Uint64("elements", count),
		zap.Stringer("buffer", region.Lifetime()))

	buf, err := region.Buffer(int(count) * plan.Size())
	if err != nil {
		return nil, newError(OpRead, KindNativeCallFailure).Detail("allocate buffer").Cause(err).Build()
	}
	if err := c.transfer(m.lib, OpRead, typeID, buf.Ptr()); err != nil {
		return nil, newError(OpRead, KindNativeCallFailure).Detail("read %s", c).Cause(err).Build()
	}
	borrowed := buf.Lend()
	coord := newCoordinator(OpRead, c.String(), plan, count, m.log)
	reclaim := m.reclaimer(c, typeID, borrowed)

	if err := keep(region); err != nil {
		err = newError(OpRead, KindNativeCallFailure).Detail("hand over buffer").Cause(err).Build()
		return nil, errors.Join(err, coord.abandon(reclaim))
	}

	values, err := m.decode(plan, borrowed, count)
	if err != nil {
		if aerr := coord.abandon(reclaim); aerr != nil {
			return nil, errors.Join(err, aerr)
		}
		return nil, err
	}
	if err := coord.converted(); err != nil {
		return nil, err
	}
	if err := coord.finish(reclaim); err != nil {
		return nil, err
	}
	return values, nil
}

func (m *Marshaller) decode(plan *Plan, buf *native.Borrowed, count uint64) ([]Value, error) {
	raw, err := buf.Bytes()
	if err != nil {
		return nil, newError(OpRead, KindNativeCallFailure).Cause(err).Build()
	}
	d := newDecoder(buf, m.maxStr)
	size := plan.Size()
	values := make([]Value, count)
	for i := range values {
		v, err := plan.root.decode(d, raw[i*size:(i+1)*size])
		if err != nil {
			return nil, at(err, OpRead, i)
		}
		values[i] = v
	}
	return values, nil
}

// WriteVariable writes one value per element of c as memory type typeID.
// Every value is checked against the type before any native memory is
// allocated.
func (m *Marshaller) WriteVariable(c Container, typeID h5lib.ID, values []Value) error {
	plan, count, err := m.prepare(OpWrite, c, typeID)
	if err != nil {
		return err
	}
	if uint64(len(values)) != count {
		return newError(OpWrite, KindBufferSizeMismatch).
			Detail("%d values for %s of %d elements", len(values), c, count).Build()
	}

	enc := newEncoder(plan.WordSize(), m.maxStr)
	size := plan.Size()
	top := &block{data: make([]byte, len(values)*size)}
	for i, v := range values {
		if err := plan.root.encode(enc, v, top, i*size); err != nil {
			return at(err, OpWrite, i)
		}
	}

	heap := m.lib.Heap()
	region := heap.Acquire(m.lifetime())
	defer region.Close()
	payloads := heap.Acquire(native.ProcessLifetime)
	defer payloads.Close()

	buf, err := region.Buffer(len(top.data))
	if err != nil {
		return newError(OpWrite, KindNativeCallFailure).Detail("allocate buffer").Cause(err).Build()
	}
	blocks, err := enc.place(heap, top, buf.Ptr(), payloads.Allocate)
	if err != nil {
		return newError(OpWrite, KindNativeCallFailure).Detail("place payloads").Cause(err).Build()
	}
	m.log.Debug("transfer",
		zap.String("op", string(OpWrite)),
		zap.Stringer("target", c),
		zap.Stringer("class", plan.Class()),
		zap.Uint64("elements", count),
		zap.Stringer("buffer", region.Lifetime()),
		zap.Int("payload_blocks", blocks))

	if err := c.transfer(m.lib, OpWrite, typeID, buf.Ptr()); err != nil {
		return newError(OpWrite, KindNativeCallFailure).Detail("write %s", c).Cause(err).Build()
	}

	coord := newCoordinator(OpWrite, c.String(), plan, count, m.log)
	if coord.needed {
		// From here on the payloads are the library's to free.
		if err := payloads.Handover(); err != nil {
			return newError(OpWrite, KindNativeCallFailure).Detail("hand over payloads").Cause(err).Build()
		}
	}
	if err := keep(region); err != nil {
		return newError(OpWrite, KindNativeCallFailure).Detail("hand over buffer").Cause(err).Build()
	}
	borrowed := buf.Lend()
	if err := coord.converted(); err != nil {
		return err
	}
	return coord.finish(m.reclaimer(c, typeID, borrowed))
}
