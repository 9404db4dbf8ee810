package vl

import (
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/binary"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/dtype"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// DefaultMaxStringSize is the longest VL string encoded, and how far a VL
// string is scanned for its terminator on decode.
const DefaultMaxStringSize = 1 << 20

// codec converts one element between its native layout and a Value.
// Codecs form a closed tree built once per call by Compile.
type codec interface {
	class() Class
	size() int
	hasVL() bool
	// encode lowers v into b.data[off:off+size()]. It only builds Go-side
	// images; nothing is allocated natively until the tree is placed.
	encode(e *encoder, v Value, b *block, off int) error
	// decode copies one element out of src, following payload pointers
	// through the borrowed buffer.
	decode(d *decoder, src []byte) (Value, error)
}

// Plan is a compiled element type.
type Plan struct {
	dt   *message.Datatype
	root codec
	word int
}

// Compile classifies dt once and builds its codec tree for a native
// address space with the given platform word. Layout errors (sizes that do
// not match the word, members outside the record) make the type unusable.
func Compile(dt *message.Datatype, wordSize int) (*Plan, error) {
	if wordSize != 4 && wordSize != 8 {
		return nil, newError(OpCompile, KindInvalidTypeHandle).
			Detail("unsupported word size %d", wordSize).Build()
	}
	root, err := compile(dt, wordSize)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Op = OpCompile
		}
		return nil, err
	}
	return &Plan{dt: dt, root: root, word: wordSize}, nil
}

// Datatype returns the descriptor the plan was compiled from.
func (p *Plan) Datatype() *message.Datatype { return p.dt }

// Class returns the layout class of the element type.
func (p *Plan) Class() Class { return p.root.class() }

// Size returns the native stride of one element.
func (p *Plan) Size() int { return p.root.size() }

// ContainsVariableLength reports whether transfers of this type need a
// reclaim.
func (p *Plan) ContainsVariableLength() bool { return p.root.hasVL() }

// WordSize returns the platform word the plan was compiled for.
func (p *Plan) WordSize() int { return p.word }

func compile(dt *message.Datatype, word int) (codec, error) {
	cls, err := Classify(dt)
	if err != nil {
		return nil, err
	}
	switch cls {
	case ClassCompound:
		return compileCompound(dt, word)
	case ClassArray:
		return compileArray(dt, word)
	case ClassVariableString:
		if int(dt.Size) != word {
			return nil, invalidType("vlen string of %d bytes with a %d-byte word", dt.Size, word)
		}
		return &stringCodec{word: word}, nil
	case ClassVariableLength:
		return compileHVL(dt, word)
	default:
		return compileScalar(dt)
	}
}

func invalidType(format string, args ...any) *Error {
	return newError("", KindInvalidTypeHandle).Detail(format, args...).Build()
}

// block is the Go-side image of one native block. Pointer slots are
// patched in when the children are placed.
type block struct {
	data []byte
	refs []ref
}

type ref struct {
	off   int
	child *block
}

func (b *block) link(off int, child *block) {
	b.refs = append(b.refs, ref{off: off, child: child})
}

// encoder carries the per-call settings of the lowering pass.
type encoder struct {
	word   int
	cfg    binary.Config
	maxStr int
}

// newEncoder returns an encoder for word-sized pointers. VL strings longer
// than maxStr bytes are rejected, so that whatever is written reads back
// whole under the same bound.
func newEncoder(word, maxStr int) *encoder {
	if maxStr <= 0 {
		maxStr = DefaultMaxStringSize
	}
	return &encoder{word: word, cfg: binary.WordConfig(word), maxStr: maxStr}
}

func (e *encoder) putWord(dst []byte, v uint64) {
	binary.EncodeUint(e.cfg.ByteOrder, dst, v, e.word)
}

// place allocates b and every block it references, children first, and
// writes their images. alloc returns the address for a block; the top
// block is usually placed elsewhere than its payloads.
func (e *encoder) place(h *native.Heap, b *block, dst native.Ptr, alloc func(n int) (native.Ptr, error)) (blocks int, err error) {
	for _, r := range b.refs {
		p, err := alloc(len(r.child.data))
		if err != nil {
			return blocks, err
		}
		n, err := e.place(h, r.child, p, alloc)
		blocks += n + 1
		if err != nil {
			return blocks, err
		}
		e.putWord(b.data[r.off:], uint64(p))
	}
	return blocks, h.Write(dst, b.data)
}

// decoder reads a borrowed buffer and the payloads it references.
type decoder struct {
	buf    *native.Borrowed
	word   int
	cfg    binary.Config
	maxStr int
}

func newDecoder(buf *native.Borrowed, maxStr int) *decoder {
	if maxStr <= 0 {
		maxStr = DefaultMaxStringSize
	}
	word := buf.WordSize()
	return &decoder{buf: buf, word: word, cfg: binary.WordConfig(word), maxStr: maxStr}
}

func (d *decoder) getWord(src []byte) uint64 {
	return binary.DecodeUint(d.cfg.ByteOrder, src, d.word)
}

// scalarCodec handles every fixed-size, pointer-free class: numbers,
// enums, bitfields, opaque bytes and fixed-length strings.
type scalarCodec struct {
	dt *message.Datatype
}

func compileScalar(dt *message.Datatype) (codec, error) {
	switch dt.Class {
	case message.ClassFixedPoint, message.ClassFloatPoint, message.ClassBitfield,
		message.ClassString, message.ClassOpaque, message.ClassTime, message.ClassReference:
	case message.ClassEnum:
		if dt.BaseType == nil {
			return nil, invalidType("enum without a base type")
		}
	default:
		return nil, invalidType("unsupported class %s", dt.Class)
	}
	if dt.Size == 0 {
		return nil, invalidType("zero-sized %s", dt.Class)
	}
	return &scalarCodec{dt: dt}, nil
}

func (c *scalarCodec) class() Class { return ClassOther }
func (c *scalarCodec) size() int    { return int(c.dt.Size) }
func (c *scalarCodec) hasVL() bool  { return false }

func (c *scalarCodec) encode(_ *encoder, v Value, b *block, off int) error {
	dst := b.data[off : off+c.size()]
	if c.dt.IsString() {
		switch s := v.(type) {
		case nil:
			dtype.PutFixedString(c.dt, nil, dst)
			return nil
		case String:
			dtype.PutFixedString(c.dt, []byte(s), dst)
			return nil
		}
		return mismatch("%s for %s", shape(v), c.dt)
	}

	s, ok := v.(Scalar)
	if !ok {
		return mismatch("%s for %s", shape(v), c.dt)
	}
	if err := dtype.Encode(c.dt, s.V, dst); err != nil {
		e := mismatch("%T for %s", s.V, c.dt)
		e.Cause = err
		return e
	}
	return nil
}

func (c *scalarCodec) decode(_ *decoder, src []byte) (Value, error) {
	v, err := dtype.Decode(c.dt, src)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return String(s), nil
	}
	return Scalar{V: v}, nil
}

// byteString reports whether dt is a one-byte character type, whose VL
// sequences are stored with their terminator.
func byteString(dt *message.Datatype) bool {
	return dt != nil && dt.Class == message.ClassString && dt.Size == 1
}

func checkedSize(name string, got, want int) error {
	if got != want {
		return invalidType("%s of %d bytes, layout needs %d", name, got, want)
	}
	return nil
}
