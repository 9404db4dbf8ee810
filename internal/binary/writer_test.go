package binary

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRoundTrip(t *testing.T) {
	for _, wordSize := range []int{2, 4, 8} {
		buf := NewBuffer(0)
		w := NewWriter(buf, WordConfig(wordSize))

		require.NoError(t, w.WriteUint8(0xAB))
		require.NoError(t, w.WriteUint16(0x1234))
		require.NoError(t, w.WriteUint32(0xDEADBEEF))
		require.NoError(t, w.WriteOffset(0x0102))
		require.NoError(t, w.WriteLength(7))
		require.NoError(t, w.WriteUint64(0x0102030405060708))

		r := NewReader(buf, WordConfig(wordSize))
		v8, _ := r.ReadUint8()
		v16, _ := r.ReadUint16()
		v32, _ := r.ReadUint32()
		off, _ := r.ReadOffset()
		n, _ := r.ReadLength()
		v64, err := r.ReadUint64()
		require.NoError(t, err)

		assert.Equal(t, uint8(0xAB), v8)
		assert.Equal(t, uint16(0x1234), v16)
		assert.Equal(t, uint32(0xDEADBEEF), v32)
		assert.Equal(t, uint64(0x0102), off)
		assert.Equal(t, uint64(7), n)
		assert.Equal(t, uint64(0x0102030405060708), v64)
		assert.Equal(t, 1+2+4+2*wordSize+8, buf.Len())
	}
}

func TestWriterBigEndian(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf, Config{ByteOrder: binary.BigEndian, OffsetSize: 4, LengthSize: 4})
	require.NoError(t, w.WriteUint32(0x01020304))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())
}

func TestWriteZeros(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf, DefaultConfig())
	require.NoError(t, w.WriteUint8(1))
	require.NoError(t, w.WriteZeros(7))
	require.NoError(t, w.WriteZeros(0))
	assert.Equal(t, int64(8), w.Pos())
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, buf.Bytes())
}

func TestWriterAtSharesBuffer(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf, DefaultConfig())
	require.NoError(t, w.At(4).WriteUint32(0xFFFFFFFF))
	assert.Equal(t, int64(0), w.Pos())
	assert.Equal(t, []byte{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}, buf.Bytes())
}

func TestEncodeDecodeUintOddWidth(t *testing.T) {
	buf := make([]byte, 3)
	EncodeUint(binary.LittleEndian, buf, 0x030201, 3)
	assert.Equal(t, []byte{1, 2, 3}, buf)
	assert.Equal(t, uint64(0x030201), DecodeUint(binary.LittleEndian, buf, 3))
}
