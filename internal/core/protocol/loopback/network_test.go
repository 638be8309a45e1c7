package loopback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/internal/core/protocol"
)

func drain(c *Conn) []string {
	var out []string
	for {
		msg, ok := c.Poll()
		if !ok {
			return out
		}
		out = append(out, string(msg))
	}
}

func TestNetwork_LatencyAndOrder(t *testing.T) {
	n := New(Options{Latency: 2})
	a, b := n.Pipe()
	assert.NotEqual(t, a.ID(), b.ID())

	buf := []byte("one")
	require.NoError(t, a.Send(buf))
	buf[0] = 'X'
	require.NoError(t, a.Send([]byte("two")))

	n.Step()
	assert.Empty(t, drain(b))
	n.Step()
	assert.Equal(t, []string{"one", "two"}, drain(b))
	assert.Empty(t, drain(a))
	assert.Equal(t, Stats{Sent: 2, Delivered: 2}, n.Stats())
}

func TestNetwork_ZeroLatencyArrivesNextStep(t *testing.T) {
	n := New(Options{})
	a, b := n.Pipe()
	require.NoError(t, b.Send([]byte("hi")))
	assert.Empty(t, drain(a))
	n.Step()
	assert.Equal(t, []string{"hi"}, drain(a))
}

func TestNetwork_LossAndDuplicate(t *testing.T) {
	n := New(Options{Loss: 1})
	a, b := n.Pipe()
	for range 10 {
		require.NoError(t, a.Send([]byte("x")))
	}
	n.Step()
	assert.Empty(t, drain(b))
	assert.Equal(t, 10, n.Stats().Dropped)

	n = New(Options{Duplicate: 1})
	a, b = n.Pipe()
	require.NoError(t, a.Send([]byte("x")))
	n.Step()
	assert.Equal(t, []string{"x", "x"}, drain(b))
	assert.Equal(t, 1, n.Stats().Duplicated)
}

func TestNetwork_JitterIsDeterministic(t *testing.T) {
	run := func() []string {
		n := New(Options{Latency: 1, Jitter: 4, Seed: 7})
		a, b := n.Pipe()
		for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
			require.NoError(t, a.Send([]byte(s)))
		}
		var got []string
		for range 6 {
			n.Step()
			got = append(got, drain(b)...)
		}
		assert.Zero(t, n.InFlight())
		return got
	}
	first := run()
	assert.Len(t, first, 6)
	assert.Equal(t, first, run())
}

func TestConn_Close(t *testing.T) {
	n := New(Options{})
	a, b := n.Pipe()
	require.NoError(t, a.Send([]byte("x")))
	require.NoError(t, b.Close())
	n.Step()
	assert.Empty(t, drain(b))
	assert.Equal(t, 1, n.Stats().Dropped)
	assert.ErrorIs(t, b.Send([]byte("y")), protocol.ErrConnectionClosed)
}
