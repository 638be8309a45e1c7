package main

import (
	"context"
	"fmt"

	"github.com/zeusync/tickstate/internal/config"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
	"github.com/zeusync/tickstate/internal/core/protocol/quic"
	"github.com/zeusync/tickstate/internal/core/protocol/websocket"
)

// closer is implemented by transports that report when the peer is gone.
type closer interface {
	Done() <-chan struct{}
}

func listen(n config.Network, logger log.Log) (protocol.Listener, error) {
	switch n.Transport {
	case config.TransportQUIC:
		tlsConfig, err := quic.SelfSignedTLS()
		if err != nil {
			return nil, err
		}
		ln, err := quic.Listen(n.Address, tlsConfig, quic.Options{}, logger)
		if err != nil {
			return nil, err
		}
		return ln, nil
	case config.TransportWebSocket:
		ln, err := websocket.Listen(n.Address, websocket.Options{}, logger)
		if err != nil {
			return nil, err
		}
		return ln, nil
	}
	return nil, fmt.Errorf("transport %q cannot listen, use quic or websocket", n.Transport)
}

func dial(ctx context.Context, n config.Network, logger log.Log) (protocol.Conn, error) {
	switch n.Transport {
	case config.TransportQUIC:
		conn, err := quic.Dial(ctx, n.Address, quic.InsecureClientTLS(), quic.Options{}, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case config.TransportWebSocket:
		conn, err := websocket.Dial(ctx, "ws://"+n.Address+websocket.DefaultPath, websocket.Options{}, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("transport %q cannot dial, use quic or websocket", n.Transport)
}
