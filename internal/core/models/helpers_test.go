package models

import "github.com/zeusync/tickstate/pkg/encoding"

type position struct{ X, Y float32 }

func (p *position) Encode(w *encoding.BitWriter) {
	w.WriteFloat32(p.X)
	w.WriteFloat32(p.Y)
}

func (p *position) Decode(r *encoding.BitReader) {
	p.X = r.ReadFloat32()
	p.Y = r.ReadFloat32()
}

func (p *position) Interpolate(from, to *position, amount float32) {
	p.X = from.X + (to.X-from.X)*amount
	p.Y = from.Y + (to.Y-from.Y)*amount
}

type health struct{ HP int32 }

func (h *health) Encode(w *encoding.BitWriter)         { w.WriteInt32(h.HP) }
func (h *health) Decode(r *encoding.BitReader)         { h.HP = r.ReadInt32() }
func (h *health) Interpolate(_, to *health, _ float32) { *h = *to }

type team struct{ ID uint8 }

func (t *team) Encode(w *encoding.BitWriter)       { w.WriteBits(uint64(t.ID), 3) }
func (t *team) Decode(r *encoding.BitReader)       { t.ID = uint8(r.ReadBits(3)) }
func (t *team) Interpolate(_, to *team, _ float32) { *t = *to }

func newTestRegistry() *Registry {
	r := NewRegistry()
	MustRegister[position](r, "position")
	MustRegister[health](r, "health")
	MustRegister[team](r, "team")
	return r
}

func spawn(s *Store) EntityID {
	e, ok := s.TryCreate()
	if !ok {
		panic("store full")
	}
	return e
}
