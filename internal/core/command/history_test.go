package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/game"
	"github.com/zeusync/tickstate/pkg/encoding"
)

type moveHistory = History[game.Move, *game.Move]

func ticks(h *moveHistory, after int32) []int32 {
	var out []int32
	for c := range h.Pending(after) {
		out = append(out, c.IssuingTick)
	}
	return out
}

func TestHistory_AlwaysPopulated(t *testing.T) {
	h := NewHistory[game.Move](4)
	require.Equal(t, 4, h.Len())
	for i := range h.Len() {
		c := h.At(i)
		assert.False(t, c.HasData())
		assert.Equal(t, models.NoEntity, c.Entity)
	}
	assert.Empty(t, ticks(h, NoTick))
}

func TestHistory_UpdateWritesInPlace(t *testing.T) {
	h := NewHistory[game.Move](3)
	c := h.Update(5, 1, 0, 3, 2, game.Move{X: 1})
	assert.Same(t, h.At(0), c)
	assert.Equal(t, int32(5), h.At(0).IssuingTick)
	assert.Equal(t, int32(1), h.At(0).RenderedTick)
	assert.Equal(t, models.EntityID(2), h.At(0).Entity)

	c.Payload.Y = -1
	assert.Equal(t, float32(-1), h.At(0).Payload.Y)
}

func TestHistory_PendingIsOrderedAcrossWrap(t *testing.T) {
	h := NewHistory[game.Move](4)
	for tick := int32(1); tick <= 6; tick++ {
		h.Update(tick, 0, 0, 0, 0, game.Move{X: float32(tick)})
	}
	// Slots now hold 5, 6, 3, 4.
	assert.Equal(t, int32(5), h.At(0).IssuingTick)
	assert.Equal(t, []int32{3, 4, 5, 6}, ticks(h, NoTick))
	assert.Equal(t, []int32{5, 6}, ticks(h, 4))
	assert.Equal(t, 2, h.Count(4))
	assert.Empty(t, ticks(h, 6))
}

func TestHistory_SerializeSkipsAcknowledged(t *testing.T) {
	h := NewHistory[game.Move](8)
	for tick := int32(10); tick < 15; tick++ {
		h.Update(tick, tick-8, tick-9, tick-6, 3, game.Move{X: 0.5, Y: float32(tick)})
	}

	w := encoding.NewBitWriter(64)
	assert.Equal(t, 3, h.Serialize(w, 11))

	r := encoding.NewBitReader(w.Bytes())
	got, err := DecodeBatch[game.Move](r, nil, MaxBatch)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		tick := int32(12 + i)
		assert.Equal(t, tick, c.IssuingTick)
		assert.Equal(t, tick-8, c.RenderedTick)
		assert.Equal(t, tick-9, c.InterpolationStartTick)
		assert.Equal(t, tick-6, c.InterpolationEndTick)
		assert.Equal(t, models.EntityID(3), c.Entity)
		assert.Equal(t, game.Move{X: 0.5, Y: float32(tick)}, c.Payload)
	}
}

func TestDecodeBatch_Truncated(t *testing.T) {
	h := NewHistory[game.Move](2)
	h.Update(1, 0, 0, 0, 0, game.Move{})
	w := encoding.NewBitWriter(16)
	h.Serialize(w, NoTick)

	_, err := DecodeBatch[game.Move](encoding.NewBitReader(w.Bytes()[:5]), nil, MaxBatch)
	assert.ErrorIs(t, err, encoding.ErrShortBuffer)
}

func TestCommand_Apply(t *testing.T) {
	s := models.NewStore(game.NewRegistry(), 2)
	e, _ := game.Spawn(s, 0, 0)
	s.EndTick()

	c := Command[game.Move, *game.Move]{IssuingTick: 1, Entity: e, Payload: game.Move{X: 1, Y: 1}}
	c.Apply(s)
	c.Apply(s)
	assert.Equal(t, game.Position{X: 2, Y: 2}, *models.GetUnchecked[game.Position](s, e))
}

func TestDecodeBatch_Limit(t *testing.T) {
	h := NewHistory[game.Move](4)
	for tick := int32(0); tick < 4; tick++ {
		h.Update(tick, 0, 0, 0, 0, game.Move{})
	}
	w := encoding.NewBitWriter(64)
	h.Serialize(w, NoTick)

	got, err := DecodeBatch[game.Move](encoding.NewBitReader(w.Bytes()), nil, 3)
	assert.ErrorIs(t, err, ErrTooManyCommands)
	assert.Empty(t, got)
}
