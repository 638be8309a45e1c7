package quic

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
)

func receive(t *testing.T, c protocol.Conn) []byte {
	t.Helper()
	var got []byte
	require.Eventually(t, func() bool {
		msg, ok := c.Poll()
		got = msg
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	return got
}

// pair returns a connected client and server Conn.
func pair(t *testing.T, ctx context.Context) (*Conn, protocol.Conn) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", nil, Options{}, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan protocol.Conn, 1)
	go func() {
		c, err := ln.Accept(ctx)
		if err == nil {
			accepted <- c
		}
	}()

	client, err := Dial(ctx, ln.Addr().String(), nil, Options{}, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server := <-accepted:
		t.Cleanup(func() { _ = server.Close() })
		return client, server
	case <-ctx.Done():
		t.Fatal("accept timed out")
		return nil, nil
	}
}

func TestQUIC_SendAndPoll(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, server := pair(t, ctx)
	assert.NotEqual(t, client.ID(), server.ID())

	_, ok := server.Poll()
	assert.False(t, ok)

	require.NoError(t, client.Send([]byte("hello")))
	assert.Equal(t, []byte("hello"), receive(t, server))

	big := bytes.Repeat([]byte{0xab}, 8*1024)
	require.NoError(t, server.Send(big))
	assert.Equal(t, big, receive(t, client))

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Send([]byte("late")), protocol.ErrConnectionClosed)
}

func TestQUIC_CloseDuringLargeSends(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, _ := pair(t, ctx)

	big := bytes.Repeat([]byte{0xcd}, 4*1024)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				err := client.Send(big)
				if err != nil {
					assert.ErrorIs(t, err, protocol.ErrConnectionClosed)
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	assert.NoError(t, client.Close())
	wg.Wait()
	assert.ErrorIs(t, client.Send(big), protocol.ErrConnectionClosed)
	assert.NoError(t, client.Close())
}
