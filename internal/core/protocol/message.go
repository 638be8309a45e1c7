// Package protocol defines the two messages exchanged by the synchronization
// loops and the transport abstraction that carries them.
//
// Server to client:
//
//	ack:int32 entity:int32 baseline:int32 checksum:uint64 snapshot
//
// where snapshot is the delta encoding written by snapshot.Serialize against
// the snapshot whose tick is baseline, or a full encoding when baseline is
// NoBaseline.
//
// Client to server:
//
//	latest:int32 count:uint8 count*command
//
// Both messages are padded to a whole byte. Anything after the padding is
// rejected with ErrTrailingData.
package protocol

import (
	"fmt"

	"github.com/zeusync/tickstate/internal/core/command"
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/snapshot"
	"github.com/zeusync/tickstate/pkg/encoding"
)

// NoBaseline marks a full snapshot encoding.
const NoBaseline = snapshot.NoTick

// ServerHeader precedes the snapshot in a server update.
type ServerHeader struct {
	// Ack is the newest client command tick the server has processed.
	Ack int32
	// Entity is the entity the client commands, or models.NoEntity.
	Entity   models.EntityID
	Baseline int32
	Checksum uint64
}

func (h *ServerHeader) Encode(w *encoding.BitWriter) {
	w.WriteInt32(h.Ack)
	w.WriteInt32(int32(h.Entity))
	w.WriteInt32(h.Baseline)
	w.WriteUint64(h.Checksum)
}

func (h *ServerHeader) Decode(r *encoding.BitReader) {
	h.Ack = r.ReadInt32()
	h.Entity = models.EntityID(r.ReadInt32())
	h.Baseline = r.ReadInt32()
	h.Checksum = r.ReadUint64()
}

// WriteServerUpdate writes h followed by current encoded against baseline.
// h.Baseline is filled in here: a nil or empty baseline produces a full
// encoding and the header says so.
func WriteServerUpdate(w *encoding.BitWriter, h ServerHeader, current, baseline *snapshot.Snapshot) {
	h.Baseline = NoBaseline
	if baseline != nil && baseline.HasData() {
		h.Baseline = baseline.Tick
	} else {
		baseline = nil
	}
	h.Encode(w)
	snapshot.Serialize(w, current, baseline)
	w.AlignByte()
}

// ReadServerHeader decodes the header and validates the entity against the
// store capacity. The reader is left at the start of the snapshot.
func ReadServerHeader(r *encoding.BitReader, capacity int) (ServerHeader, error) {
	var h ServerHeader
	h.Decode(r)
	if err := r.Err(); err != nil {
		return h, WrapError(err, "decode server header")
	}
	if h.Entity < models.NoEntity || int(h.Entity) >= capacity {
		return h, NewProtocolError(ErrorCodeInvalidEntity, "decode server header",
			fmt.Errorf("%w: %d", ErrInvalidEntity, h.Entity))
	}
	return h, nil
}

// ClientUpdate is the decoded form of a client message. Commands is reused
// across Decode calls.
type ClientUpdate[T any, PT command.Payload[T]] struct {
	LatestServerTick int32
	Commands         []command.Command[T, PT]
}

// WriteClientUpdate encodes every command in history issued after acked.
func WriteClientUpdate[T any, PT command.Payload[T]](w *encoding.BitWriter, latest int32, history *command.History[T, PT], acked int32) int {
	w.WriteInt32(latest)
	n := history.Serialize(w, acked)
	w.AlignByte()
	return n
}

// Decode reads a client message. At most maxCommands commands are accepted
// and every command entity must fit a store of the given capacity.
func (u *ClientUpdate[T, PT]) Decode(r *encoding.BitReader, maxCommands, capacity int) error {
	u.LatestServerTick = r.ReadInt32()
	cmds, err := command.DecodeBatch(r, u.Commands[:0], maxCommands)
	u.Commands = cmds
	if err != nil {
		return WrapError(err, "decode client update")
	}
	for i := range u.Commands {
		if e := u.Commands[i].Entity; e < models.NoEntity || int(e) >= capacity {
			return NewProtocolError(ErrorCodeInvalidEntity, "decode client update",
				fmt.Errorf("%w: %d", ErrInvalidEntity, e))
		}
	}
	return Finish(r)
}

// Finish checks that only byte padding is left in r.
func Finish(r *encoding.BitReader) error {
	if err := r.Err(); err != nil {
		return WrapError(err, "decode")
	}
	r.AlignByte()
	if n := r.RemainingBits(); n > 0 {
		return NewProtocolError(ErrorCodeTrailingData, "decode",
			fmt.Errorf("%w: %d bytes", ErrTrailingData, n/8))
	}
	return nil
}
