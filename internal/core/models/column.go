package models

import (
	"bytes"

	"github.com/bits-and-blooms/bitset"

	"github.com/zeusync/tickstate/pkg/encoding"
)

// anyColumn is the type-erased view the Store and the snapshot codec use to
// walk columns in registry order.
type anyColumn interface {
	reset(slot int)
	has(slot int) bool
	copyFrom(src anyColumn)
	copySlot(src anyColumn, slot int)
	interpolateSlot(from, to anyColumn, slot int, amount float32, fromValid bool)
	equalSlot(other anyColumn, slot int) bool
	encodeSlot(w *encoding.BitWriter, slot int)
	decodeSlot(r *encoding.BitReader, slot int)
}

// Column is one densely packed array of component values plus a presence
// bit-set. A set bit means the value at that slot belongs to the current
// occupant; a clear bit means the value is stale and must not be read.
type Column[T comparable, PT Component[T]] struct {
	values  []T
	present *bitset.BitSet

	lhs, rhs *encoding.BitWriter
}

func NewColumn[T comparable, PT Component[T]](capacity int) *Column[T, PT] {
	return &Column[T, PT]{
		values:  make([]T, capacity),
		present: bitset.New(uint(capacity)),
	}
}

func (c *Column[T, PT]) has(slot int) bool {
	return c.present.Test(uint(slot))
}

func (c *Column[T, PT]) reset(slot int) {
	var zero T
	c.values[slot] = zero
	c.present.Clear(uint(slot))
}

// add resets the value only when it was absent; an existing value is kept.
func (c *Column[T, PT]) add(slot int) *T {
	if !c.present.Test(uint(slot)) {
		var zero T
		c.values[slot] = zero
		c.present.Set(uint(slot))
	}
	return &c.values[slot]
}

func (c *Column[T, PT]) remove(slot int) {
	c.present.Clear(uint(slot))
}

func (c *Column[T, PT]) copyFrom(src anyColumn) {
	s := src.(*Column[T, PT])
	copy(c.values, s.values)
	s.present.Copy(c.present)
}

func (c *Column[T, PT]) copySlot(src anyColumn, slot int) {
	s := src.(*Column[T, PT])
	c.values[slot] = s.values[slot]
	c.present.SetTo(uint(slot), s.present.Test(uint(slot)))
}

func (c *Column[T, PT]) interpolateSlot(from, to anyColumn, slot int, amount float32, fromValid bool) {
	f, t := from.(*Column[T, PT]), to.(*Column[T, PT])
	if !t.has(slot) {
		c.reset(slot)
		return
	}
	c.present.Set(uint(slot))
	if !fromValid || !f.has(slot) {
		c.values[slot] = t.values[slot]
		return
	}
	PT(&c.values[slot]).Interpolate(&f.values[slot], &t.values[slot], amount)
}

// equalSlot compares the encoded forms, so values that == cannot tell
// apart (+0 and -0) differ and identical NaNs are equal.
func (c *Column[T, PT]) equalSlot(other anyColumn, slot int) bool {
	o := other.(*Column[T, PT])
	if c.lhs == nil {
		c.lhs, c.rhs = encoding.NewBitWriter(16), encoding.NewBitWriter(16)
	}
	c.lhs.Reset()
	c.rhs.Reset()
	PT(&c.values[slot]).Encode(c.lhs)
	PT(&o.values[slot]).Encode(c.rhs)
	return c.lhs.BitLen() == c.rhs.BitLen() && bytes.Equal(c.lhs.Bytes(), c.rhs.Bytes())
}

func (c *Column[T, PT]) encodeSlot(w *encoding.BitWriter, slot int) {
	PT(&c.values[slot]).Encode(w)
}

func (c *Column[T, PT]) decodeSlot(r *encoding.BitReader, slot int) {
	PT(&c.values[slot]).Decode(r)
	c.present.Set(uint(slot))
}
