// Package snapshot holds tick-stamped copies of a models.Store, the fixed
// history ring they live in, and the delta codec that moves them over the
// wire.
package snapshot

import "github.com/zeusync/tickstate/internal/core/models"

// NoTick marks a snapshot that holds no data.
const NoTick int32 = -1

// Snapshot is the full state of a store at one authoritative tick. Snapshots
// are allocated once per history slot and overwritten in place.
type Snapshot struct {
	Tick  int32
	Store *models.Store
}

func New(r *models.Registry, capacity int) *Snapshot {
	return &Snapshot{Tick: NoTick, Store: models.NewStore(r, capacity)}
}

func (s *Snapshot) HasData() bool { return s.Tick >= 0 }

// Capture overwrites s with a copy of store taken at tick.
func (s *Snapshot) Capture(tick int32, store *models.Store) {
	store.CopyInto(s.Store)
	s.Tick = tick
}

func (s *Snapshot) CopyFrom(src *Snapshot) {
	src.Store.CopyInto(s.Store)
	s.Tick = src.Tick
}

// Interpolate blends from and to into s and stamps it with tick.
func (s *Snapshot) Interpolate(from, to *Snapshot, amount float32, tick int32) {
	models.Interpolate(s.Store, from.Store, to.Store, amount)
	s.Tick = tick
}

// Invalidate drops the data held by s.
func (s *Snapshot) Invalidate() {
	s.Tick = NoTick
	s.Store.Clear()
}
