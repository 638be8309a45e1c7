package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/pkg/encoding"
)

func roundTrip(t *testing.T, current, base *Store) (*Store, int) {
	t.Helper()
	w := encoding.NewBitWriter(64)
	current.EncodeDelta(w, base)

	out := NewStore(current.Registry(), current.Capacity())
	junk := spawn(out)
	out.EndTick()
	Set(out, junk, team{ID: 7})

	r := encoding.NewBitReader(w.Bytes())
	require.NoError(t, out.DecodeDelta(r, base))
	assert.Less(t, r.RemainingBits(), 8)
	return out, w.BitLen()
}

func TestStore_DeltaRoundTripWithoutBase(t *testing.T) {
	s := NewStore(newTestRegistry(), 5)
	a, b := spawn(s), spawn(s)
	_ = spawn(s)
	s.EndTick()
	s.Remove(b)
	s.EndTick()
	Set(s, a, position{X: 1.25, Y: -3})
	Set(s, a, team{ID: 6})

	out, _ := roundTrip(t, s, nil)
	assert.Equal(t, s.Checksum(), out.Checksum())
	assert.Equal(t, s.Count(), out.Count())
	assert.False(t, out.Exists(b))
	assert.False(t, Has[health](out, a))
	assert.Equal(t, position{X: 1.25, Y: -3}, *GetUnchecked[position](out, a))
}

func TestStore_DeltaRoundTripAgainstBase(t *testing.T) {
	r := newTestRegistry()
	base := NewStore(r, 6)
	unchanged, moved, stripped, removed := spawn(base), spawn(base), spawn(base), spawn(base)
	base.EndTick()
	Set(base, unchanged, position{X: 1})
	Set(base, moved, position{X: 2})
	Set(base, moved, health{HP: 10})
	Set(base, stripped, health{HP: 3})
	Set(base, removed, team{ID: 1})

	current := NewStore(r, 6)
	base.CopyInto(current)
	current.Remove(removed)
	current.EndTick()
	added := spawn(current)
	current.EndTick()
	Set(current, moved, position{X: 2.5})
	RemoveComponent[health](current, stripped)
	Set(current, stripped, team{ID: 4})
	Set(current, added, health{HP: 99})

	out, _ := roundTrip(t, current, base)
	assert.Equal(t, current.Checksum(), out.Checksum())
	assert.Equal(t, position{X: 1}, *GetUnchecked[position](out, unchanged))
	assert.Equal(t, position{X: 2.5}, *GetUnchecked[position](out, moved))
	assert.Equal(t, int32(10), GetUnchecked[health](out, moved).HP)
	assert.False(t, Has[health](out, stripped))
	assert.True(t, Has[team](out, stripped))
	assert.Equal(t, added, removed, "freed slot is reused by the new entity")
	assert.Equal(t, int32(99), GetUnchecked[health](out, added).HP)
	assert.False(t, Has[team](out, added), "previous occupant's component must not leak through the base")
}

func TestStore_DeltaKeepsFloatBits(t *testing.T) {
	r := newTestRegistry()
	base := NewStore(r, 2)
	signed, nan := spawn(base), spawn(base)
	base.EndTick()
	nanValue := float32(math.NaN())
	Set(base, signed, position{X: 0})
	Set(base, nan, position{Y: nanValue})

	current := NewStore(r, 2)
	base.CopyInto(current)
	GetUnchecked[position](current, signed).X = float32(math.Copysign(0, -1))

	assert.True(t, current.slotDiffers(base, int(signed)), "-0 must be sent against +0")
	assert.False(t, current.slotDiffers(base, int(nan)), "identical NaN is unchanged")

	out, _ := roundTrip(t, current, base)
	assert.True(t, math.Signbit(float64(GetUnchecked[position](out, signed).X)))
	assert.Equal(t, math.Float32bits(nanValue), math.Float32bits(GetUnchecked[position](out, nan).Y))
	assert.Equal(t, current.Checksum(), out.Checksum())
}

func TestStore_DeltaSizeTracksChanges(t *testing.T) {
	const capacity = 64
	r := newTestRegistry()
	base := NewStore(r, capacity)
	for range capacity {
		e := spawn(base)
		Set(base, e, position{X: float32(e)})
	}
	base.EndTick()

	current := NewStore(r, capacity)
	base.CopyInto(current)

	_, fullBits := roundTrip(t, current, nil)
	_, idleBits := roundTrip(t, current, base)
	assert.Equal(t, capacity*2, idleBits, "an unchanged entity costs two bits")

	Set(current, 10, position{X: -1})
	_, oneChange := roundTrip(t, current, base)
	assert.Equal(t, idleBits+1+1+64+1+1, oneChange)
	assert.Less(t, oneChange, fullBits)
}

func TestStore_DecodeDeltaShortBuffer(t *testing.T) {
	s := NewStore(newTestRegistry(), 4)
	e := spawn(s)
	s.EndTick()
	Set(s, e, position{X: 1, Y: 1})

	w := encoding.NewBitWriter(32)
	s.EncodeDelta(w, nil)
	truncated := w.Bytes()[:len(w.Bytes())-3]

	out := NewStore(s.Registry(), 4)
	err := out.DecodeDelta(encoding.NewBitReader(truncated), nil)
	assert.ErrorIs(t, err, encoding.ErrShortBuffer)
}
