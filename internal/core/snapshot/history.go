package snapshot

import (
	"iter"

	"github.com/zeusync/tickstate/internal/core/models"
)

// History is a fixed set of snapshot slots in no particular order. Lookups
// scan linearly; the depth is small and bounded for a session.
type History struct {
	slots []*Snapshot
}

func NewHistory(r *models.Registry, capacity, depth int) *History {
	if depth <= 0 {
		panic("snapshot: history depth must be positive")
	}
	slots := make([]*Snapshot, depth)
	for i := range slots {
		slots[i] = New(r, capacity)
	}
	return &History{slots: slots}
}

func (h *History) Len() int { return len(h.slots) }

func (h *History) All() iter.Seq[*Snapshot] {
	return func(yield func(*Snapshot) bool) {
		for _, s := range h.slots {
			if !yield(s) {
				return
			}
		}
	}
}

// Oldest returns the slot to overwrite next: an empty slot if there is one,
// otherwise the one with the lowest tick.
func (h *History) Oldest() *Snapshot {
	oldest := h.slots[0]
	for _, s := range h.slots[1:] {
		if s.Tick < oldest.Tick {
			oldest = s
		}
	}
	return oldest
}

// Newest returns the snapshot with the highest tick, or nil when the history
// holds no data.
func (h *History) Newest() *Snapshot {
	var newest *Snapshot
	for _, s := range h.slots {
		if s.HasData() && (newest == nil || s.Tick > newest.Tick) {
			newest = s
		}
	}
	return newest
}

// Find returns the snapshot taken at tick, or nil.
func (h *History) Find(tick int32) *Snapshot {
	if tick < 0 {
		return nil
	}
	for _, s := range h.slots {
		if s.Tick == tick {
			return s
		}
	}
	return nil
}

// Floor returns the snapshot with the greatest tick not after tick.
func (h *History) Floor(tick int32) *Snapshot {
	var best *Snapshot
	for _, s := range h.slots {
		if s.HasData() && s.Tick <= tick && (best == nil || s.Tick > best.Tick) {
			best = s
		}
	}
	return best
}

// After returns the snapshot with the least tick strictly after tick.
func (h *History) After(tick int32) *Snapshot {
	var best *Snapshot
	for _, s := range h.slots {
		if s.HasData() && s.Tick > tick && (best == nil || s.Tick < best.Tick) {
			best = s
		}
	}
	return best
}

func (h *History) Reset() {
	for _, s := range h.slots {
		s.Invalidate()
	}
}
