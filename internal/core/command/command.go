// Package command records per-tick client input so it can be replayed for
// prediction and resent until the server acknowledges it.
package command

import (
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/pkg/encoding"
)

// NoTick marks a command slot that holds no input.
const NoTick int32 = -1

// Payload is the game-specific part of a command. Apply must be
// deterministic: the server applies it once to the authoritative store and
// the client replays it on every tick until it is acknowledged.
type Payload[T any] interface {
	*T
	encoding.Serializable
	Apply(s *models.Store, e models.EntityID)
}

// Command is one tick of input with the timing it was issued under.
// Payload is held by value and written in place; History hands out pointers
// into its own storage, never copies.
type Command[T any, PT Payload[T]] struct {
	IssuingTick            int32
	RenderedTick           int32
	InterpolationStartTick int32
	InterpolationEndTick   int32
	Entity                 models.EntityID
	Payload                T
}

func (c *Command[T, PT]) HasData() bool { return c.IssuingTick >= 0 }

// Apply runs the payload against the command's entity in s.
func (c *Command[T, PT]) Apply(s *models.Store) {
	PT(&c.Payload).Apply(s, c.Entity)
}

func (c *Command[T, PT]) Encode(w *encoding.BitWriter) {
	w.WriteInt32(c.IssuingTick)
	w.WriteInt32(c.RenderedTick)
	w.WriteInt32(c.InterpolationStartTick)
	w.WriteInt32(c.InterpolationEndTick)
	w.WriteInt32(int32(c.Entity))
	PT(&c.Payload).Encode(w)
}

func (c *Command[T, PT]) Decode(r *encoding.BitReader) {
	c.IssuingTick = r.ReadInt32()
	c.RenderedTick = r.ReadInt32()
	c.InterpolationStartTick = r.ReadInt32()
	c.InterpolationEndTick = r.ReadInt32()
	c.Entity = models.EntityID(r.ReadInt32())
	PT(&c.Payload).Decode(r)
}

func (c *Command[T, PT]) clear() {
	var zero T
	*c = Command[T, PT]{
		IssuingTick:            NoTick,
		RenderedTick:           NoTick,
		InterpolationStartTick: NoTick,
		InterpolationEndTick:   NoTick,
		Entity:                 models.NoEntity,
		Payload:                zero,
	}
}
