package snapshot

import (
	"errors"
	"fmt"

	"github.com/zeusync/tickstate/pkg/encoding"
)

var ErrSameSnapshot = errors.New("snapshot: baseline and target are the same snapshot")

// Wire layout of one encoded snapshot:
//
//	tick:int32
//	store delta, see models.Store.EncodeDelta
//
// The baseline is not named inside the encoding. Whoever frames the message
// carries the baseline tick next to it, and both sides must resolve it to the
// same snapshot.

// Serialize writes current relative to baseline. A nil baseline, or one
// holding no data, produces a full encoding.
func Serialize(w *encoding.BitWriter, current, baseline *Snapshot) {
	w.WriteInt32(current.Tick)
	if baseline != nil && baseline.HasData() {
		current.Store.EncodeDelta(w, baseline.Store)
		return
	}
	current.Store.EncodeDelta(w, nil)
}

// PeekTick returns the tick of the encoded snapshot at the reader's position
// without consuming it.
func PeekTick(r *encoding.BitReader) (int32, error) {
	v, err := r.PeekBits(32)
	if err != nil {
		return NoTick, err
	}
	return int32(uint32(v)), nil
}

// Deserialize decodes into out against baseline. If decoding fails out is
// invalidated, so a partially written snapshot is never observed.
func Deserialize(r *encoding.BitReader, baseline, out *Snapshot) error {
	if baseline == out {
		return ErrSameSnapshot
	}
	tick := r.ReadInt32()
	if err := r.Err(); err != nil {
		out.Invalidate()
		return fmt.Errorf("read snapshot tick: %w", err)
	}
	var err error
	if baseline != nil && baseline.HasData() {
		err = out.Store.DecodeDelta(r, baseline.Store)
	} else {
		err = out.Store.DecodeDelta(r, nil)
	}
	if err != nil {
		out.Invalidate()
		return fmt.Errorf("decode snapshot %d: %w", tick, err)
	}
	out.Tick = tick
	return nil
}

// DeserializeIfNewer decodes only when the encoded tick is strictly newer
// than the one out already holds. It reports whether out was written; stale,
// duplicate and malformed encodings leave out untouched.
func DeserializeIfNewer(r *encoding.BitReader, baseline, out *Snapshot) (bool, error) {
	tick, err := PeekTick(r)
	if err != nil {
		return false, fmt.Errorf("peek snapshot tick: %w", err)
	}
	if tick <= out.Tick {
		return false, nil
	}
	scratch := New(out.Store.Registry(), out.Store.Capacity())
	if err = Deserialize(r, baseline, scratch); err != nil {
		return false, err
	}
	out.CopyFrom(scratch)
	return true, nil
}
