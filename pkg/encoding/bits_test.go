package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitWriter_MixedWidths(t *testing.T) {
	w := NewBitWriter(16)
	w.WriteBool(true)
	w.WriteBits(5, 3)
	w.WriteInt32(-42)
	w.WriteBool(false)
	w.WriteFloat32(1.666)
	w.WriteFloat64(math.Pi)
	w.WriteUint16(0xBEEF)
	w.WriteBits(0x1FFFFFFFFFFFF, 49)

	assert.Equal(t, 1+3+32+1+32+64+16+49, w.BitLen())

	r := NewBitReader(w.Bytes())
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint64(5), r.ReadBits(3))
	assert.Equal(t, int32(-42), r.ReadInt32())
	assert.False(t, r.ReadBool())
	assert.Equal(t, float32(1.666), r.ReadFloat32())
	assert.Equal(t, math.Pi, r.ReadFloat64())
	assert.Equal(t, uint16(0xBEEF), r.ReadUint16())
	assert.Equal(t, uint64(0x1FFFFFFFFFFFF), r.ReadBits(49))
	require.NoError(t, r.Err())
	assert.Less(t, r.RemainingBits(), 8)
}

func TestBitWriter_FloatBitsAreExact(t *testing.T) {
	values := []float32{0, -0, float32(math.Inf(1)), math.SmallestNonzeroFloat32, 1.0 / 3.0}
	w := NewBitWriter(0)
	for _, v := range values {
		w.WriteFloat32(v)
	}
	r := NewBitReader(w.Bytes())
	for _, v := range values {
		assert.Equal(t, math.Float32bits(v), math.Float32bits(r.ReadFloat32()))
	}
	require.NoError(t, r.Err())
}

func TestBitReader_ShortBufferIsSticky(t *testing.T) {
	w := NewBitWriter(4)
	w.WriteUint16(7)

	r := NewBitReader(w.Bytes())
	assert.Equal(t, uint16(7), r.ReadUint16())
	assert.Equal(t, uint32(0), r.ReadUint32())
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)

	// Later reads keep failing with the original error.
	assert.False(t, r.ReadBool())
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)
}

func TestBitReader_PeekDoesNotConsume(t *testing.T) {
	w := NewBitWriter(8)
	w.WriteInt32(10)
	w.WriteInt32(20)

	r := NewBitReader(w.Bytes())
	v, err := r.PeekBits(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)
	assert.Equal(t, int32(10), r.ReadInt32())
	assert.Equal(t, int32(20), r.ReadInt32())

	_, err = r.PeekBits(1)
	assert.ErrorIs(t, err, ErrShortBuffer)
	assert.NoError(t, r.Err())
}

func TestBitWriter_AlignAndReset(t *testing.T) {
	w := NewBitWriter(4)
	w.WriteBool(true)
	w.AlignByte()
	w.WriteUint8(0xAB)
	assert.Equal(t, []byte{0x80, 0xAB}, w.Bytes())

	r := NewBitReader(w.Bytes())
	assert.True(t, r.ReadBool())
	r.AlignByte()
	assert.Equal(t, uint8(0xAB), r.ReadUint8())

	w.Reset()
	assert.Equal(t, 0, w.Len())
	w.WriteUint8(1)
	assert.Equal(t, []byte{1}, w.Bytes())
}

func TestBitReader_Fail(t *testing.T) {
	r := NewBitReader([]byte{0xFF})
	r.Fail(ErrBitCount)
	r.Fail(ErrShortBuffer)
	assert.ErrorIs(t, r.Err(), ErrBitCount)
	assert.Equal(t, uint8(0), r.ReadUint8())
}
