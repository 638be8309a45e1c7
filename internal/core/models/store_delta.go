package models

import "github.com/zeusync/tickstate/pkg/encoding"

// EncodeDelta writes the membership and components of s relative to base,
// which may be nil for a full encode. Per slot:
//
//	active:1
//	if active and base holds the slot as Active:
//	    changed:1
//	    if changed, per column in registry order:
//	        differs:1 [present:1 [value]]
//	if active and base does not hold the slot:
//	    per column: present:1 [value]
//
// Values are written by the component's Encode.
func (s *Store) EncodeDelta(w *encoding.BitWriter, base *Store) {
	if base != nil {
		s.mustMatch(base)
	}
	for slot, state := range s.states {
		active := state == SlotActive
		w.WriteBool(active)
		if !active {
			continue
		}
		if base != nil && base.states[slot] == SlotActive {
			changed := s.slotDiffers(base, slot)
			w.WriteBool(changed)
			if !changed {
				continue
			}
			for i, col := range s.columns {
				has := col.has(slot)
				differs := columnDiffers(col, base.columns[i], slot)
				w.WriteBool(differs)
				if !differs {
					continue
				}
				w.WriteBool(has)
				if has {
					col.encodeSlot(w, slot)
				}
			}
			continue
		}
		for _, col := range s.columns {
			has := col.has(slot)
			w.WriteBool(has)
			if has {
				col.encodeSlot(w, slot)
			}
		}
	}
}

// DecodeDelta overwrites s with the state EncodeDelta wrote against base.
// Slots and components the encoding does not mention are copied from base,
// or left empty when there is no base. On error s holds partial data and
// must be discarded by the caller.
func (s *Store) DecodeDelta(r *encoding.BitReader, base *Store) error {
	if base != nil {
		s.mustMatch(base)
		if base == s {
			panic("models: delta base and target are the same store")
		}
	}
	s.pending = s.pending[:0]
	for slot := range s.states {
		if !r.ReadBool() {
			s.setState(slot, SlotEmpty)
			s.resetSlot(slot)
			if r.Err() != nil {
				break
			}
			continue
		}
		s.setState(slot, SlotActive)
		if base != nil && base.states[slot] == SlotActive {
			if !r.ReadBool() {
				for i, col := range s.columns {
					col.copySlot(base.columns[i], slot)
				}
			} else {
				for i, col := range s.columns {
					if !r.ReadBool() {
						col.copySlot(base.columns[i], slot)
						continue
					}
					if r.ReadBool() {
						col.decodeSlot(r, slot)
					} else {
						col.reset(slot)
					}
				}
			}
		} else {
			for _, col := range s.columns {
				if r.ReadBool() {
					col.decodeSlot(r, slot)
				} else {
					col.reset(slot)
				}
			}
		}
		if r.Err() != nil {
			break
		}
	}
	return r.Err()
}

func (s *Store) slotDiffers(base *Store, slot int) bool {
	for i, col := range s.columns {
		if columnDiffers(col, base.columns[i], slot) {
			return true
		}
	}
	return false
}

func columnDiffers(col, base anyColumn, slot int) bool {
	has := col.has(slot)
	if has != base.has(slot) {
		return true
	}
	return has && !col.equalSlot(base, slot)
}
