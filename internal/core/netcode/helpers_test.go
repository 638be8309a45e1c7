package netcode

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/internal/core/command"
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/protocol"
	"github.com/zeusync/tickstate/internal/core/snapshot"
	"github.com/zeusync/tickstate/internal/game"
	"github.com/zeusync/tickstate/pkg/encoding"
)

const testCapacity = 8

type fakeConn struct {
	inbox  [][]byte
	sent   [][]byte
	closed bool
}

func (f *fakeConn) ID() string { return "fake" }

func (f *fakeConn) Poll() ([]byte, bool) {
	if len(f.inbox) == 0 {
		return nil, false
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msg, true
}

func (f *fakeConn) Send(buf []byte) error {
	f.sent = append(f.sent, slices.Clone(buf))
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) push(msg []byte) { f.inbox = append(f.inbox, msg) }

type update struct {
	tick     int32
	x        float32
	ack      int32
	baseline *snapshot.Snapshot
	checksum func(uint64) uint64
}

// encodeUpdate builds a server message holding a single entity 0 at x.
func encodeUpdate(t *testing.T, r *models.Registry, u update) []byte {
	t.Helper()
	store := models.NewStore(r, testCapacity)
	e, ok := game.Spawn(store, u.x, 0)
	require.True(t, ok)
	store.EndTick()

	snap := snapshot.New(r, testCapacity)
	snap.Capture(u.tick, store)
	sum := snap.Store.Checksum()
	if u.checksum != nil {
		sum = u.checksum(sum)
	}

	w := encoding.NewBitWriter(128)
	protocol.WriteServerUpdate(w, protocol.ServerHeader{Ack: u.ack, Entity: e, Checksum: sum}, snap, u.baseline)
	return slices.Clone(w.Bytes())
}

func clientConfig() ClientConfig {
	return ClientConfig{
		Capacity:              testCapacity,
		SnapshotHistory:       16,
		CommandHistory:        32,
		SendRate:              1,
		RenderDelay:           8,
		MaxExtrapolationTicks: 3,
		Interpolation:         true,
		Prediction:            true,
		VerifyChecksums:       true,
	}
}

func renderedX(t *testing.T, c *Client[game.Move, *game.Move]) float32 {
	t.Helper()
	p, ok := models.Get[game.Position](c.Rendered().Store, 0)
	require.True(t, ok, "entity 0 has no rendered position")
	return p.X
}

func decodeClientUpdate(t *testing.T, msg []byte) protocol.ClientUpdate[game.Move, *game.Move] {
	t.Helper()
	var u protocol.ClientUpdate[game.Move, *game.Move]
	require.NoError(t, u.Decode(encoding.NewBitReader(msg), command.MaxBatch, testCapacity))
	return u
}

func issuingTicks(cmds []command.Command[game.Move, *game.Move]) []int32 {
	out := make([]int32, len(cmds))
	for i, c := range cmds {
		out[i] = c.IssuingTick
	}
	return out
}

type recordingSystem struct {
	updates  int
	renders  int
	entities []models.EntityID
}

func (s *recordingSystem) Update(_ *models.Store, e models.EntityID) {
	s.updates++
	s.entities = append(s.entities, e)
}

func (s *recordingSystem) Render(*models.Store, models.EntityID) { s.renders++ }
