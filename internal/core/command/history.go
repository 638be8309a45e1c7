package command

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/pkg/encoding"
)

// MaxBatch is the most commands one message can carry.
const MaxBatch = math.MaxUint8

// History is a fixed ring of commands. Every slot always holds a Command
// value; unused slots have IssuingTick == NoTick.
type History[T any, PT Payload[T]] struct {
	commands []Command[T, PT]
	next     int
	order    []int
}

func NewHistory[T any, PT Payload[T]](depth int) *History[T, PT] {
	if depth <= 0 {
		panic("command: history depth must be positive")
	}
	h := &History[T, PT]{
		commands: make([]Command[T, PT], depth),
		order:    make([]int, 0, depth),
	}
	h.Reset()
	return h
}

func (h *History[T, PT]) Len() int { return len(h.commands) }

func (h *History[T, PT]) At(i int) *Command[T, PT] { return &h.commands[i] }

// Update overwrites the oldest slot in place and returns it.
func (h *History[T, PT]) Update(issuing, rendered, start, end int32, entity models.EntityID, payload T) *Command[T, PT] {
	c := &h.commands[h.next]
	c.IssuingTick = issuing
	c.RenderedTick = rendered
	c.InterpolationStartTick = start
	c.InterpolationEndTick = end
	c.Entity = entity
	c.Payload = payload
	h.next = (h.next + 1) % len(h.commands)
	return c
}

// Pending yields the commands issued after tick in increasing tick order.
func (h *History[T, PT]) Pending(after int32) iter.Seq[*Command[T, PT]] {
	return func(yield func(*Command[T, PT]) bool) {
		for _, i := range h.sorted(after) {
			if !yield(&h.commands[i]) {
				return
			}
		}
	}
}

// Count returns how many commands were issued after tick.
func (h *History[T, PT]) Count(after int32) int {
	n := 0
	for i := range h.commands {
		if h.commands[i].IssuingTick > after {
			n++
		}
	}
	return n
}

// Serialize writes the commands issued after acked, oldest first, preceded
// by their count. When more than MaxBatch are pending only the newest are
// written.
func (h *History[T, PT]) Serialize(w *encoding.BitWriter, acked int32) int {
	order := h.sorted(acked)
	if len(order) > MaxBatch {
		order = order[len(order)-MaxBatch:]
	}
	w.WriteUint8(uint8(len(order)))
	for _, i := range order {
		h.commands[i].Encode(w)
	}
	return len(order)
}

func (h *History[T, PT]) Reset() {
	for i := range h.commands {
		h.commands[i].clear()
	}
	h.next = 0
}

func (h *History[T, PT]) sorted(after int32) []int {
	h.order = h.order[:0]
	for i := range h.commands {
		if h.commands[i].IssuingTick > after {
			h.order = append(h.order, i)
		}
	}
	slices.SortFunc(h.order, func(a, b int) int {
		return int(h.commands[a].IssuingTick) - int(h.commands[b].IssuingTick)
	})
	return h.order
}

// ErrTooManyCommands is returned when a batch claims more commands than the
// reader accepts.
var ErrTooManyCommands = errors.New("command: too many commands in batch")

// DecodeBatch reads a batch written by Serialize, appending to dst. Batches
// larger than limit are rejected before any command is read.
func DecodeBatch[T any, PT Payload[T]](r *encoding.BitReader, dst []Command[T, PT], limit int) ([]Command[T, PT], error) {
	n := int(r.ReadUint8())
	if err := r.Err(); err != nil {
		return dst, err
	}
	if n > limit {
		return dst, fmt.Errorf("%w: %d > %d", ErrTooManyCommands, n, limit)
	}
	for range n {
		var c Command[T, PT]
		c.Decode(r)
		if err := r.Err(); err != nil {
			return dst, err
		}
		dst = append(dst, c)
	}
	return dst, nil
}
