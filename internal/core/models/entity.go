package models

import "fmt"

// EntityID indexes a slot in a Store. An id carries no identity beyond its
// slot's lifecycle and is handed out again once the slot is freed.
type EntityID int32

// NoEntity is returned when no slot is available or no entity is known.
const NoEntity EntityID = -1

func (e EntityID) Valid() bool { return e >= 0 }

// ComponentID is the position of a component kind in its Registry.
type ComponentID uint16

// SlotState tracks an entity slot through the two-phase lifecycle:
// Empty -> Creating -> Active -> Removing -> Empty. Transitions out of
// Creating and Removing only happen in Store.EndTick.
type SlotState uint8

const (
	SlotEmpty SlotState = iota
	SlotCreating
	SlotActive
	SlotRemoving
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotCreating:
		return "creating"
	case SlotActive:
		return "active"
	case SlotRemoving:
		return "removing"
	default:
		return fmt.Sprintf("slot_state(%d)", uint8(s))
	}
}
