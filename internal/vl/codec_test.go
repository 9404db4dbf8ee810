package vl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
)

func TestCompilePlan(t *testing.T) {
	for _, word := range []int{4, 8} {
		f := &fixture{word: word}
		tags := message.NewArrayDatatype([]uint32{2}, f.vlString())
		rec := f.compound([]string{"id", "tags", "values"}, i32(), tags, f.vlen(f64()))

		plan, err := Compile(rec, word)
		require.NoError(t, err)
		assert.Equal(t, ClassCompound, plan.Class())
		assert.True(t, plan.ContainsVariableLength())
		assert.Equal(t, int(rec.Size), plan.Size())
		assert.Same(t, rec, plan.Datatype())
		assert.Equal(t, word, plan.WordSize())
	}
}

func TestCompileNativeLayout(t *testing.T) {
	f := &fixture{word: 8}
	tags := message.NewArrayDatatype([]uint32{2}, f.vlString())
	rec := f.compound([]string{"id", "tags", "values"}, i32(), tags, f.vlen(f64()))

	plan, err := Compile(rec, 8)
	require.NoError(t, err)
	c := plan.root.(*compoundCodec)
	require.Len(t, c.members, 3)
	assert.Equal(t, 0, c.members[0].offset)
	assert.Equal(t, 8, c.members[1].offset)
	assert.Equal(t, 24, c.members[2].offset)
	assert.Equal(t, 40, c.size())
}

func TestCompileRejectsUnusableLayouts(t *testing.T) {
	f := &fixture{word: 8}
	overlong := message.NewCompoundDatatype(4, []message.CompoundMember{
		{Name: "x", ByteOffset: 2, Type: i32()},
	})
	dup := message.NewCompoundDatatype(8, []message.CompoundMember{
		{Name: "x", ByteOffset: 0, Type: i32()},
		{Name: "x", ByteOffset: 4, Type: i32()},
	})
	shortArray := message.NewArrayDatatype([]uint32{2}, i32())
	shortArray.Size = 4

	tests := []struct {
		name string
		dt   *message.Datatype
		path []string
	}{
		{"vlen string with 4-byte slot", message.NewVarLenStringDatatype(message.CharsetUTF8, 4), nil},
		{"vlen record with 4-byte words", message.NewVarLenSequenceDatatype(i32(), 4), nil},
		{"member past record end", overlong, []string{"x"}},
		{"duplicate member", dup, nil},
		{"array size", shortArray, nil},
		{"nested", f.compound([]string{"inner"}, f.vlen(message.NewVarLenStringDatatype(message.CharsetUTF8, 4))), []string{"inner", "[]"}},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.dt, 8)
			require.ErrorIs(t, err, ErrInvalidTypeHandle)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, OpCompile, e.Op)
			assert.Equal(t, tt.path, e.Path)
		})
	}
}

func TestCompileRejectsWordSize(t *testing.T) {
	_, err := Compile(i32(), 2)
	assert.ErrorIs(t, err, ErrInvalidTypeHandle)
}

func TestScalarCodecShapes(t *testing.T) {
	c, err := compileScalar(i32())
	require.NoError(t, err)
	b := &block{data: make([]byte, 4)}

	require.NoError(t, c.encode(nil, Scalar{V: uint8(7)}, b, 0))
	assert.Equal(t, []byte{7, 0, 0, 0}, b.data)

	for _, v := range []Value{nil, String("7"), List{}} {
		err := c.encode(nil, v, b, 0)
		assert.ErrorIs(t, err, ErrTypeMismatch, "%v", v)
	}

	v, err := c.decode(nil, []byte{0xfe, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, Scalar{V: int32(-2)}, v)
}
