package models

import (
	"fmt"
	"iter"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/tickstate/pkg/encoding"
)

// Store is a fixed-capacity table of entity slots with one column per
// registered component kind.
//
// Creation and removal are two-phase: TryCreate and Remove only mark a slot,
// and EndTick commits every pending transition at once so all callbacks of a
// tick observe the same membership.
//
// A Store is not safe for concurrent use.
type Store struct {
	registry *Registry
	states   []SlotState
	columns  []anyColumn
	pending  []EntityID
	active   int
	ticking  bool

	scratch *encoding.BitWriter
}

// NewStore builds a store shaped by r. The registry is frozen afterwards.
func NewStore(r *Registry, capacity int) *Store {
	if capacity <= 0 {
		panic(fmt.Sprintf("models: invalid store capacity %d", capacity))
	}
	return &Store{
		registry: r,
		states:   make([]SlotState, capacity),
		columns:  r.newColumns(capacity),
		pending:  make([]EntityID, 0, capacity),
	}
}

func (s *Store) Registry() *Registry { return s.registry }

func (s *Store) Capacity() int { return len(s.states) }

// Count returns the number of Active entities.
func (s *Store) Count() int { return s.active }

// TryCreate reserves the lowest empty slot. The entity becomes visible to
// TryGet and iteration after the next EndTick. It returns NoEntity and false
// when every slot is taken.
func (s *Store) TryCreate() (EntityID, bool) {
	for slot, state := range s.states {
		if state != SlotEmpty {
			continue
		}
		s.resetSlot(slot)
		s.states[slot] = SlotCreating
		e := EntityID(slot)
		s.pending = append(s.pending, e)
		return e, true
	}
	return NoEntity, false
}

// Remove marks e for removal at the next EndTick. Removing an entity that
// does not exist or is already being removed does nothing. An entity still
// being created is dropped immediately.
func (s *Store) Remove(e EntityID) {
	if !s.inRange(e) {
		return
	}
	switch s.states[e] {
	case SlotActive:
		s.states[e] = SlotRemoving
		s.pending = append(s.pending, e)
	case SlotCreating:
		s.states[e] = SlotEmpty
		s.resetSlot(int(e))
	}
}

// TryGet reports whether id names an entity other consumers may see: an
// Active entity, or one marked for removal this tick.
func (s *Store) TryGet(id EntityID) (EntityID, bool) {
	if !s.inRange(id) {
		return NoEntity, false
	}
	switch s.states[id] {
	case SlotActive, SlotRemoving:
		return id, true
	default:
		return NoEntity, false
	}
}

func (s *Store) Exists(e EntityID) bool {
	_, ok := s.TryGet(e)
	return ok
}

func (s *Store) State(e EntityID) SlotState {
	if !s.inRange(e) {
		return SlotEmpty
	}
	return s.states[e]
}

// BeginTick opens a simulation pass.
func (s *Store) BeginTick() {
	if s.ticking {
		panic("models: BeginTick called twice without EndTick")
	}
	s.ticking = true
}

// EndTick commits Creating->Active and Removing->Empty transitions
// requested since the previous EndTick.
func (s *Store) EndTick() {
	for _, e := range s.pending {
		switch s.states[e] {
		case SlotCreating:
			s.states[e] = SlotActive
			s.active++
		case SlotRemoving:
			s.states[e] = SlotEmpty
			s.resetSlot(int(e))
			s.active--
		}
	}
	s.pending = s.pending[:0]
	s.ticking = false
}

// Entities yields Active entities in slot order.
func (s *Store) Entities() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for slot, state := range s.states {
			if state == SlotActive && !yield(EntityID(slot)) {
				return
			}
		}
	}
}

// Clear empties every slot.
func (s *Store) Clear() {
	for slot := range s.states {
		s.states[slot] = SlotEmpty
		s.resetSlot(slot)
	}
	s.pending = s.pending[:0]
	s.active = 0
}

// CopyInto overwrites dst with a full copy of s: slot states and every
// column. Both stores must come from the same registry and capacity.
func (s *Store) CopyInto(dst *Store) {
	s.mustMatch(dst)
	if dst == s {
		return
	}
	copy(dst.states, s.states)
	for i, col := range dst.columns {
		col.copyFrom(s.columns[i])
	}
	dst.pending = append(dst.pending[:0], s.pending...)
	dst.active = s.active
}

// CopyEntityInto copies the slot state and every component of e into dst.
func (s *Store) CopyEntityInto(dst *Store, e EntityID) {
	s.mustMatch(dst)
	slot := int(e)
	dst.setState(slot, s.states[slot])
	for i, col := range dst.columns {
		col.copySlot(s.columns[i], slot)
	}
}

// Interpolate writes the blend of from and to into result. Membership and
// component presence come from to; values present on both sides are blended
// by each component's Interpolate, all others are taken from to.
func Interpolate(result, from, to *Store, amount float32) {
	result.mustMatch(from)
	result.mustMatch(to)
	for slot, state := range to.states {
		result.setState(slot, state)
		if state != SlotActive {
			for i, col := range result.columns {
				col.copySlot(to.columns[i], slot)
			}
			continue
		}
		fromValid := from.states[slot] == SlotActive
		for i, col := range result.columns {
			col.interpolateSlot(from.columns[i], to.columns[i], slot, amount, fromValid)
		}
	}
	result.pending = result.pending[:0]
}

// Checksum hashes the Active entities and their components with xxhash.
// Stores holding the same state produce the same checksum.
func (s *Store) Checksum() uint64 {
	if s.scratch == nil {
		s.scratch = encoding.NewBitWriter(256)
	}
	w := s.scratch
	w.Reset()
	for slot, state := range s.states {
		if state != SlotActive {
			continue
		}
		w.WriteInt32(int32(slot))
		for _, col := range s.columns {
			has := col.has(slot)
			w.WriteBool(has)
			if has {
				col.encodeSlot(w, slot)
			}
		}
	}
	return xxhash.Sum64(w.Bytes())
}

func (s *Store) setState(slot int, state SlotState) {
	prev := s.states[slot]
	if prev == state {
		return
	}
	if prev == SlotActive {
		s.active--
	}
	if state == SlotActive {
		s.active++
	}
	s.states[slot] = state
}

func (s *Store) resetSlot(slot int) {
	for _, col := range s.columns {
		col.reset(slot)
	}
}

func (s *Store) inRange(e EntityID) bool {
	return e >= 0 && int(e) < len(s.states)
}

func (s *Store) mustMatch(other *Store) {
	if other.registry != s.registry || len(other.states) != len(s.states) {
		panic("models: stores built from different registries or capacities")
	}
}
