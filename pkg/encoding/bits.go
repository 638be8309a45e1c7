package encoding

import (
	"errors"
	"math"
)

var (
	ErrShortBuffer = errors.New("encoding: short buffer")
	ErrBitCount    = errors.New("encoding: bit count out of range")
)

// BitWriter appends values most-significant bit first. Integers are written
// two's complement and floats by their IEEE-754 bit pattern, so every value
// round-trips exactly.
type BitWriter struct {
	buf   []byte
	nbits int
}

func NewBitWriter(capacity int) *BitWriter {
	return &BitWriter{buf: make([]byte, 0, capacity)}
}

// Reset discards written data but keeps the underlying buffer.
func (w *BitWriter) Reset() {
	w.buf = w.buf[:0]
	w.nbits = 0
}

func (w *BitWriter) WriteBits(v uint64, n int) {
	if n < 0 || n > 64 {
		panic(ErrBitCount)
	}
	for n > 0 {
		if w.nbits%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		free := 8 - w.nbits%8
		take := min(free, n)
		chunk := byte(v>>(n-take)) & byte(1<<take-1)
		w.buf[len(w.buf)-1] |= chunk << (free - take)
		w.nbits += take
		n -= take
	}
}

func (w *BitWriter) WriteBool(v bool) {
	if v {
		w.WriteBits(1, 1)
		return
	}
	w.WriteBits(0, 1)
}

func (w *BitWriter) WriteUint8(v uint8)   { w.WriteBits(uint64(v), 8) }
func (w *BitWriter) WriteUint16(v uint16) { w.WriteBits(uint64(v), 16) }
func (w *BitWriter) WriteUint32(v uint32) { w.WriteBits(uint64(v), 32) }
func (w *BitWriter) WriteUint64(v uint64) { w.WriteBits(v, 64) }
func (w *BitWriter) WriteInt32(v int32)   { w.WriteBits(uint64(uint32(v)), 32) }
func (w *BitWriter) WriteInt64(v int64)   { w.WriteBits(uint64(v), 64) }

func (w *BitWriter) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *BitWriter) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// AlignByte pads with zero bits up to the next byte boundary.
func (w *BitWriter) AlignByte() {
	w.nbits = len(w.buf) * 8
}

// Bytes returns the written data, zero padded to a whole byte. The slice is
// only valid until the next write or Reset.
func (w *BitWriter) Bytes() []byte { return w.buf }

func (w *BitWriter) BitLen() int { return w.nbits }

func (w *BitWriter) Len() int { return len(w.buf) }

// BitReader is the inverse of BitWriter. The first failure is sticky: every
// later read returns zero and Err reports the original cause.
type BitReader struct {
	buf []byte
	pos int
	err error
}

func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

func (r *BitReader) Reset(buf []byte) {
	r.buf = buf
	r.pos = 0
	r.err = nil
}

func (r *BitReader) Err() error { return r.err }

// Fail records err unless an earlier error is already held.
func (r *BitReader) Fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *BitReader) RemainingBits() int {
	return len(r.buf)*8 - r.pos
}

func (r *BitReader) ReadBits(n int) uint64 {
	if r.err != nil {
		return 0
	}
	if n < 0 || n > 64 {
		r.err = ErrBitCount
		return 0
	}
	if n > r.RemainingBits() {
		r.err = ErrShortBuffer
		r.pos = len(r.buf) * 8
		return 0
	}
	var v uint64
	for n > 0 {
		used := r.pos % 8
		avail := 8 - used
		take := min(avail, n)
		chunk := (r.buf[r.pos/8] >> (avail - take)) & byte(1<<take-1)
		v = v<<take | uint64(chunk)
		r.pos += take
		n -= take
	}
	return v
}

// PeekBits reads n bits without consuming them.
func (r *BitReader) PeekBits(n int) (uint64, error) {
	pos, err := r.pos, r.err
	v := r.ReadBits(n)
	peekErr := r.err
	r.pos, r.err = pos, err
	if peekErr != nil && err == nil {
		return 0, peekErr
	}
	return v, err
}

func (r *BitReader) ReadBool() bool     { return r.ReadBits(1) == 1 }
func (r *BitReader) ReadUint8() uint8   { return uint8(r.ReadBits(8)) }
func (r *BitReader) ReadUint16() uint16 { return uint16(r.ReadBits(16)) }
func (r *BitReader) ReadUint32() uint32 { return uint32(r.ReadBits(32)) }
func (r *BitReader) ReadUint64() uint64 { return r.ReadBits(64) }
func (r *BitReader) ReadInt32() int32   { return int32(uint32(r.ReadBits(32))) }
func (r *BitReader) ReadInt64() int64   { return int64(r.ReadBits(64)) }

func (r *BitReader) ReadFloat32() float32 { return math.Float32frombits(r.ReadUint32()) }
func (r *BitReader) ReadFloat64() float64 { return math.Float64frombits(r.ReadUint64()) }

// AlignByte skips the padding up to the next byte boundary.
func (r *BitReader) AlignByte() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}
