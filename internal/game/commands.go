package game

import (
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/pkg/encoding"
)

// Speed is the distance a full-axis Move covers in one tick.
const Speed float32 = 1

// Move is one tick of directional input. Each axis is expected in [-1, 1].
type Move struct {
	X, Y float32
}

func (m *Move) Encode(w *encoding.BitWriter) {
	w.WriteFloat32(m.X)
	w.WriteFloat32(m.Y)
}

func (m *Move) Decode(r *encoding.BitReader) {
	m.X = r.ReadFloat32()
	m.Y = r.ReadFloat32()
}

// Apply moves e by the input. Entities without a Position are left alone.
func (m *Move) Apply(s *models.Store, e models.EntityID) {
	p, ok := models.Get[Position](s, e)
	if !ok {
		return
	}
	p.X += m.X * Speed
	p.Y += m.Y * Speed
}
