package hdf5

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func openSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := Open(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func commit(t *testing.T, s *Session, typ Type) *Datatype {
	t.Helper()
	dt, err := s.CommitType(typ)
	require.NoError(t, err)
	return dt
}

func ptr(s string) *string { return &s }

func TestStringAttributeWithNull(t *testing.T) {
	for _, word := range []int{4, 8} {
		s := openSession(t, WithWordSize(word))
		require.Equal(t, word, s.WordSize())

		str := commit(t, s, VarLenString())
		attr, err := s.CreateAttribute("names", str, 3)
		require.NoError(t, err)
		before := s.Stats().LiveBlocks

		require.NoError(t, attr.WriteStrings([]*string{ptr("a"), nil, ptr("ccc")}))
		got, err := attr.ReadStrings()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "", "ccc"}, got)
		assert.Equal(t, before, s.Stats().LiveBlocks)

		require.NoError(t, attr.Close())
		require.NoError(t, str.Close())
		assert.Zero(t, s.Stats().OpenHandles)
	}
}

func TestLongStrings(t *testing.T) {
	s := openSession(t, WithMaxStringSize(4))
	str := commit(t, s, VarLenString())
	attr, err := s.CreateAttribute("names", str, 1)
	require.NoError(t, err)
	defer attr.Close()

	err = attr.WriteStrings([]*string{ptr("hello world")})
	assert.ErrorIs(t, err, ErrBufferSizeMismatch)
	got, err := attr.ReadStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got, "a rejected write stores nothing")

	big := openSession(t, WithMaxStringSize(4<<20))
	str = commit(t, big, VarLenString())
	attr, err = big.CreateAttribute("names", str, 1)
	require.NoError(t, err)
	defer attr.Close()

	long := strings.Repeat("x", 3<<20)
	require.NoError(t, attr.WriteStrings([]*string{&long}))
	got, err = attr.ReadStrings()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, len(long), len(got[0]))
}

func TestReopenAttribute(t *testing.T) {
	s := openSession(t)
	str := commit(t, s, VarLenString())
	attr, err := s.CreateAttribute("title", str)
	require.NoError(t, err)
	require.NoError(t, attr.WriteStrings([]*string{ptr("hello")}))
	require.NoError(t, attr.Close())
	require.NoError(t, str.Close())

	attr, err = s.OpenAttribute("title")
	require.NoError(t, err)
	assert.Equal(t, "title", attr.Name())
	assert.Equal(t, ClassVariableString, attr.Type().Class())

	shape, err := attr.Shape()
	require.NoError(t, err)
	assert.Nil(t, shape)
	n, err := attr.NumElements()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	got, err := attr.ReadStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got)

	require.NoError(t, attr.Close())
	assert.Zero(t, s.Stats().OpenHandles)

	_, err = s.OpenAttribute("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVarLenIntsDataset(t *testing.T) {
	s := openSession(t)
	seq := commit(t, s, VarLen(Int32()))
	assert.Equal(t, ClassVariableLength, seq.Class())
	assert.True(t, seq.ContainsVariableLength())
	assert.Equal(t, 16, seq.Size())

	ds, err := s.CreateDataset("seq", seq, 2)
	require.NoError(t, err)
	defer ds.Close()
	before := s.Stats().LiveBlocks

	in := []Value{Ints[int32](1, 2, 3), Ints[int32]()}
	require.NoError(t, ds.WriteVariable(nil, in))

	got, err := ds.ReadVariable(nil)
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, before, s.Stats().LiveBlocks)
}

func TestCompoundWithStringArray(t *testing.T) {
	s := openSession(t)
	rec := commit(t, s, Compound(
		Field("id", Int32()),
		Field("tags", Array(VarLenString(), 2)),
		Field("score", Float64()),
	))
	assert.Equal(t, ClassCompound, rec.Class())
	assert.True(t, rec.ContainsVariableLength())

	ds, err := s.CreateDataset("records", rec, 2)
	require.NoError(t, err)
	defer ds.Close()

	in := []Value{
		Fields{
			{Name: "id", Value: Scalar{V: int32(1)}},
			{Name: "tags", Value: List{String("x"), String("y")}},
			{Name: "score", Value: Scalar{V: 0.5}},
		},
		Fields{
			{Name: "score", Value: Scalar{V: 2.0}},
			{Name: "tags", Value: Strings(nil, ptr("z"))},
			{Name: "id", Value: Scalar{V: int32(2)}},
		},
	}
	require.NoError(t, ds.WriteVariable(nil, in))

	got, err := ds.ReadVariable(nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, in[0], got[0])
	assert.Equal(t, Fields{
		{Name: "id", Value: Scalar{V: int32(2)}},
		{Name: "tags", Value: List{String(""), String("z")}},
		{Name: "score", Value: Scalar{V: 2.0}},
	}, got[1])
}

func TestDatasetSelection(t *testing.T) {
	s := openSession(t)
	str := commit(t, s, VarLenString())
	ds, err := s.CreateDataset("grid", str, 2, 3)
	require.NoError(t, err)
	defer ds.Close()

	shape, err := ds.Shape()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, shape)

	row := &Selection{Start: []uint64{1, 0}, Count: []uint64{1, 3}, MemDims: []uint64{3}}
	require.NoError(t, ds.WriteStrings(row, []*string{ptr("d"), ptr("e"), ptr("f")}))

	got, err := ds.ReadStrings(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", "d", "e", "f"}, got)

	got, err = ds.ReadStrings(&Selection{Start: []uint64{1, 1}, Count: []uint64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "f"}, got)

	err = ds.WriteStrings(row, []*string{ptr("only")})
	assert.ErrorIs(t, err, ErrBufferSizeMismatch)

	_, err = ds.ReadStrings(&Selection{Start: []uint64{2, 0}, Count: []uint64{1, 3}})
	assert.Error(t, err)

	// Temporary space handles are released on every path.
	assert.Equal(t, 2, s.Stats().OpenHandles)
}

func TestTypeMismatchReportsPath(t *testing.T) {
	s := openSession(t)
	rec := commit(t, s, Compound(Field("id", Int32()), Field("name", VarLenString())))
	attr, err := s.CreateAttribute("recs", rec, 2)
	require.NoError(t, err)
	defer attr.Close()
	before := s.Stats()

	err = attr.WriteVariable([]Value{
		Fields{{Name: "id", Value: Scalar{V: int32(1)}}, {Name: "name", Value: String("a")}},
		Fields{{Name: "id", Value: Scalar{V: int32(2)}}, {Name: "name", Value: Scalar{V: 3}}},
	})
	require.ErrorIs(t, err, ErrTypeMismatch)

	var te *TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Index)
	assert.Equal(t, []string{"name"}, te.Path)
	assert.Equal(t, before.Allocations, s.Stats().Allocations)
}

func TestClosedTypeIsInvalid(t *testing.T) {
	s := openSession(t)
	str := commit(t, s, VarLenString())
	attr, err := s.CreateAttribute("names", str, 1)
	require.NoError(t, err)
	defer attr.Close()

	require.NoError(t, str.Close())
	assert.Equal(t, ClassVariableString, str.Class(), "class is known without the handle")
	_, err = attr.ReadStrings()
	assert.ErrorIs(t, err, ErrInvalidTypeHandle)
	err = attr.WriteStrings([]*string{ptr("x")})
	assert.ErrorIs(t, err, ErrInvalidTypeHandle)
}

func TestReadStringsOfIntegers(t *testing.T) {
	s := openSession(t)
	i := commit(t, s, Int64())
	attr, err := s.CreateAttribute("n", i, 1)
	require.NoError(t, err)
	defer attr.Close()

	_, err = attr.ReadStrings()
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestFixedStringAttribute(t *testing.T) {
	s := openSession(t)
	fs := commit(t, s, FixedString(8))
	assert.False(t, fs.ContainsVariableLength())
	attr, err := s.CreateAttribute("code", fs, 2)
	require.NoError(t, err)
	defer attr.Close()

	require.NoError(t, attr.WriteStrings([]*string{ptr("abc"), nil}))
	got, err := attr.ReadStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", ""}, got)
}

func TestWasmSession(t *testing.T) {
	s := openSession(t, WithWasmMemory())
	assert.Equal(t, 4, s.WordSize())

	seq := commit(t, s, VarLen(VarLenString()))
	assert.Equal(t, 8, seq.Size())
	attr, err := s.CreateAttribute("words", seq, 2)
	require.NoError(t, err)
	defer attr.Close()
	before := s.Stats().LiveBlocks

	in := []Value{List{String("wasm"), String("")}, List{}}
	require.NoError(t, attr.WriteVariable(in))
	got, err := attr.ReadVariable()
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, before, s.Stats().LiveBlocks)
}

func TestProcessLifetimePolicy(t *testing.T) {
	s := openSession(t, WithLifetimePolicy(PolicyProcessLifetime))
	seq := commit(t, s, VarLen(Int16()))
	attr, err := s.CreateAttribute("seq", seq, 1)
	require.NoError(t, err)
	defer attr.Close()
	before := s.Stats().LiveBlocks

	require.NoError(t, attr.WriteVariable([]Value{Ints[int16](4, 5)}))
	_, err = attr.ReadVariable()
	require.NoError(t, err)
	assert.Equal(t, before+2, s.Stats().LiveBlocks, "one top-level buffer per call is kept")
}

func TestSessionClose(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, err := Open(WithLogger(zap.New(core)))
	require.NoError(t, err)

	str := commit(t, s, VarLenString())
	_, err = s.CreateAttribute("leak", str)
	require.NoError(t, err)

	assert.Error(t, s.Close(), "open handles are reported")
	assert.Equal(t, 1, logs.FilterMessage("library closed with open handles").Len())
	assert.NoError(t, s.Close())

	_, err = s.CommitType(Int8())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.OpenDataset("x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCommitRejectsBadTypes(t *testing.T) {
	s := openSession(t)

	_, err := s.CommitType(Type{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = s.CommitType(Array(Int32(), 0))
	assert.ErrorIs(t, err, ErrInvalidTypeHandle)
	assert.Zero(t, s.Stats().OpenHandles)
}

func TestReopenDataset(t *testing.T) {
	s := openSession(t)
	rec := commit(t, s, Compound(Field("id", Int32()), Field("seq", VarLen(Float64()))))
	ds, err := s.CreateDataset("recs", rec, 1)
	require.NoError(t, err)
	in := []Value{Fields{
		{Name: "id", Value: Scalar{V: int32(3)}},
		{Name: "seq", Value: List{Scalar{V: 1.5}}},
	}}
	require.NoError(t, ds.WriteVariable(nil, in))
	require.NoError(t, ds.Close())
	require.NoError(t, rec.Close())

	ds, err = s.OpenDataset("recs")
	require.NoError(t, err)
	assert.Equal(t, "recs", ds.Name())
	assert.Equal(t, ClassCompound, ds.Type().Class())
	got, err := ds.ReadVariable(nil)
	require.NoError(t, err)
	assert.Equal(t, in, got)
	require.NoError(t, ds.Close())
	assert.Zero(t, s.Stats().OpenHandles)
}

func TestDuplicateNames(t *testing.T) {
	s := openSession(t)
	i := commit(t, s, Int32())
	ds, err := s.CreateDataset("d", i, 4)
	require.NoError(t, err)
	defer ds.Close()

	_, err = s.CreateDataset("d", i, 4)
	assert.ErrorIs(t, err, ErrExists)
}
