package protocol

import (
	"context"
	"io"
	"net"
)

// Conn is an unreliable, message-oriented link to one peer. Messages may be
// lost, duplicated or reordered, but each one arrives whole or not at all.
//
// Poll never blocks: it returns the next queued message, or false when none
// is waiting. Send never blocks either and does not retain buf after it
// returns.
type Conn interface {
	ID() string
	Poll() ([]byte, bool)
	Send(buf []byte) error
	io.Closer
}

// Listener hands out server-side Conns for peers that dial in.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	io.Closer
}
