// Package game is a small top-down movement simulation built on the
// synchronization core. The harness and the loop tests run it.
package game

import (
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/pkg/encoding"
)

type Position struct{ X, Y float32 }

func (p *Position) Encode(w *encoding.BitWriter) {
	w.WriteFloat32(p.X)
	w.WriteFloat32(p.Y)
}

func (p *Position) Decode(r *encoding.BitReader) {
	p.X = r.ReadFloat32()
	p.Y = r.ReadFloat32()
}

func (p *Position) Interpolate(from, to *Position, amount float32) {
	p.X = lerp(from.X, to.X, amount)
	p.Y = lerp(from.Y, to.Y, amount)
}

type Velocity struct{ X, Y float32 }

func (v *Velocity) Encode(w *encoding.BitWriter) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
}

func (v *Velocity) Decode(r *encoding.BitReader) {
	v.X = r.ReadFloat32()
	v.Y = r.ReadFloat32()
}

func (v *Velocity) Interpolate(from, to *Velocity, amount float32) {
	v.X = lerp(from.X, to.X, amount)
	v.Y = lerp(from.Y, to.Y, amount)
}

// Health is discrete and snaps to the newer value.
type Health struct {
	Current int32
	Max     int32
}

func (h *Health) Encode(w *encoding.BitWriter) {
	w.WriteInt32(h.Current)
	w.WriteInt32(h.Max)
}

func (h *Health) Decode(r *encoding.BitReader) {
	h.Current = r.ReadInt32()
	h.Max = r.ReadInt32()
}

func (h *Health) Interpolate(_, to *Health, _ float32) { *h = *to }

// NewRegistry registers the game's component kinds in wire order.
func NewRegistry() *models.Registry {
	r := models.NewRegistry()
	models.MustRegister[Position](r, "position")
	models.MustRegister[Velocity](r, "velocity")
	models.MustRegister[Health](r, "health")
	return r
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
