package models

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/zeusync/tickstate/pkg/encoding"
)

var (
	ErrRegistryFrozen     = errors.New("component registry is frozen")
	ErrDuplicateComponent = errors.New("component already registered")
	ErrUnknownComponent   = errors.New("component not registered")
)

// Component is the contract of a registered component kind. T is stored by
// value in a dense column; the pointer methods encode, decode and blend it.
//
// Interpolate sets the receiver to the blend of from and to. amount is 0 at
// from and 1 at to, and exceeds 1 while extrapolating. The receiver may
// alias from or to.
type Component[T any] interface {
	*T
	encoding.Serializable
	Interpolate(from, to *T, amount float32)
}

type kind struct {
	newColumn func(capacity int) anyColumn
}

// Registry is the ordered set of component kinds taking part in
// synchronization. Every endpoint of a session builds its stores from an
// identical registry, so column order doubles as the wire order. The
// registry freezes when the first Store is built from it.
type Registry struct {
	kinds  []kind
	byType map[reflect.Type]ComponentID
	frozen bool
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]ComponentID)}
}

// Register appends the component kind T to r.
func Register[T comparable, PT Component[T]](r *Registry, name string) (ComponentID, error) {
	if r.frozen {
		return 0, fmt.Errorf("register %q: %w", name, ErrRegistryFrozen)
	}
	typ := reflect.TypeFor[T]()
	if _, ok := r.byType[typ]; ok {
		return 0, fmt.Errorf("register %q (%s): %w", name, typ, ErrDuplicateComponent)
	}
	id := ComponentID(len(r.kinds))
	r.kinds = append(r.kinds, kind{
		newColumn: func(capacity int) anyColumn {
			return NewColumn[T, PT](capacity)
		},
	})
	r.byType[typ] = id
	return id, nil
}

// MustRegister is Register for package initialization; it panics on error.
func MustRegister[T comparable, PT Component[T]](r *Registry, name string) ComponentID {
	id, err := Register[T, PT](r, name)
	if err != nil {
		panic(err)
	}
	return id
}

// IDOf returns the id T was registered under.
func IDOf[T any](r *Registry) (ComponentID, bool) {
	id, ok := r.byType[reflect.TypeFor[T]()]
	return id, ok
}

func (r *Registry) Len() int { return len(r.kinds) }

func (r *Registry) Frozen() bool { return r.frozen }

func (r *Registry) lookup(typ reflect.Type) ComponentID {
	id, ok := r.byType[typ]
	if !ok {
		panic(fmt.Errorf("%s: %w", typ, ErrUnknownComponent))
	}
	return id
}

func (r *Registry) newColumns(capacity int) []anyColumn {
	r.frozen = true
	columns := make([]anyColumn, len(r.kinds))
	for i, k := range r.kinds {
		columns[i] = k.newColumn(capacity)
	}
	return columns
}
