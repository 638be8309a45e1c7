package models

import "reflect"

func typedColumn[T comparable, PT Component[T]](s *Store) *Column[T, PT] {
	return s.columns[s.registry.lookup(reflect.TypeFor[T]())].(*Column[T, PT])
}

// Has reports whether e currently holds a T.
func Has[T comparable, PT Component[T]](s *Store, e EntityID) bool {
	return typedColumn[T, PT](s).has(int(e))
}

// Get returns e's T when present.
func Get[T comparable, PT Component[T]](s *Store, e EntityID) (*T, bool) {
	col := typedColumn[T, PT](s)
	if !col.has(int(e)) {
		return nil, false
	}
	return &col.values[e], true
}

// GetUnchecked returns the slot storage for e's T without looking at
// presence. When the component is absent the value is stale or zero; callers
// must have checked Has first.
func GetUnchecked[T comparable, PT Component[T]](s *Store, e EntityID) *T {
	return &typedColumn[T, PT](s).values[e]
}

// Add marks T present on e and returns it for writing. A component that is
// already present keeps its value; one that was absent starts from the zero
// value.
func Add[T comparable, PT Component[T]](s *Store, e EntityID) *T {
	return typedColumn[T, PT](s).add(int(e))
}

// Set adds T to e and stores v.
func Set[T comparable, PT Component[T]](s *Store, e EntityID, v T) {
	*Add[T, PT](s, e) = v
}

// RemoveComponent clears T from e. Removing an absent component does nothing.
func RemoveComponent[T comparable, PT Component[T]](s *Store, e EntityID) {
	typedColumn[T, PT](s).remove(int(e))
}
