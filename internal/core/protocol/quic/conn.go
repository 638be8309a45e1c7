// Package quic carries protocol messages as QUIC datagrams. Messages too big
// for one datagram go out on their own unidirectional stream instead, so
// they arrive reliably but may overtake or trail the datagrams around them.
package quic

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
)

const (
	DefaultQueueSize = 256
	// MaxMessageSize bounds stream-carried messages.
	MaxMessageSize = 1 << 20
)

type Options struct {
	QueueSize      int
	MaxIdleTimeout time.Duration
}

func (o Options) quicConfig() *quic.Config {
	idle := o.MaxIdleTimeout
	if idle <= 0 {
		idle = 30 * time.Second
	}
	return &quic.Config{
		MaxIdleTimeout:        idle,
		KeepAlivePeriod:       idle / 2,
		MaxIncomingUniStreams: 1000,
		EnableDatagrams:       true,
	}
}

var _ protocol.Conn = (*Conn)(nil)

type Conn struct {
	id     string
	conn   *quic.Conn
	inbox  chan []byte
	logger log.Log
	closed atomic.Bool
	// mu orders Close after every writers.Add made by Send.
	mu      sync.Mutex
	cancel  context.CancelFunc
	readers *errgroup.Group
	writers sync.WaitGroup
}

func newConn(qc *quic.Conn, opts Options, logger log.Log) *Conn {
	queue := opts.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(qc.Context())
	group, ctx := errgroup.WithContext(ctx)

	c := &Conn{
		id:      id,
		conn:    qc,
		inbox:   make(chan []byte, queue),
		logger:  logger.With(log.String("connection_id", id), log.String("remote_addr", qc.RemoteAddr().String())),
		cancel:  cancel,
		readers: group,
	}
	group.Go(func() error { return c.receiveDatagrams(ctx) })
	group.Go(func() error { return c.acceptStreams(ctx) })

	c.logger.Info("QUIC connection established")
	return c
}

func (c *Conn) ID() string { return c.id }

// Done is closed when the QUIC connection ends.
func (c *Conn) Done() <-chan struct{} { return c.conn.Context().Done() }

func (c *Conn) Poll() ([]byte, bool) {
	select {
	case msg := <-c.inbox:
		return msg, true
	default:
		return nil, false
	}
}

func (c *Conn) Send(buf []byte) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}
	if len(buf) > MaxMessageSize {
		return protocol.ErrMessageTooLarge
	}
	msg := slices.Clone(buf)
	err := c.conn.SendDatagram(msg)
	var tooLarge *quic.DatagramTooLargeError
	if errors.As(err, &tooLarge) {
		c.mu.Lock()
		if c.closed.Load() {
			c.mu.Unlock()
			return protocol.ErrConnectionClosed
		}
		c.writers.Add(1)
		c.mu.Unlock()
		go c.sendStream(msg)
		return nil
	}
	if err != nil {
		if c.closed.Load() {
			return protocol.ErrConnectionClosed
		}
		return pkgerrors.Wrap(err, "failed to send datagram")
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	first := c.closed.CompareAndSwap(false, true)
	c.mu.Unlock()
	if !first {
		return nil
	}
	c.logger.Info("Closing QUIC connection")
	c.writers.Wait()
	c.cancel()
	err := c.conn.CloseWithError(0, "connection closed")
	_ = c.readers.Wait()
	return err
}

func (c *Conn) sendStream(msg []byte) {
	defer c.writers.Done()
	stream, err := c.conn.OpenUniStream()
	if err != nil {
		c.logger.Warn("Failed to open stream", log.Error(err))
		return
	}
	if _, err = stream.Write(msg); err != nil {
		c.logger.Warn("Failed to write stream", log.Error(err))
	}
	_ = stream.Close()
}

func (c *Conn) receiveDatagrams(ctx context.Context) error {
	for {
		msg, err := c.conn.ReceiveDatagram(ctx)
		if err != nil {
			return c.stopped(ctx, err)
		}
		c.push(msg)
	}
}

func (c *Conn) acceptStreams(ctx context.Context) error {
	for {
		stream, err := c.conn.AcceptUniStream(ctx)
		if err != nil {
			return c.stopped(ctx, err)
		}
		go func() {
			msg, err := io.ReadAll(io.LimitReader(stream, MaxMessageSize+1))
			if err != nil {
				c.logger.Debug("Failed to read stream", log.Error(err))
				return
			}
			if len(msg) > MaxMessageSize {
				c.logger.Warn("Dropping oversized stream message", log.Int("size", len(msg)))
				return
			}
			c.push(msg)
		}()
	}
}

func (c *Conn) push(msg []byte) {
	select {
	case c.inbox <- msg:
	default:
		c.logger.Debug("Inbox full, dropping message", log.Int("size", len(msg)))
	}
}

func (c *Conn) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil || c.closed.Load() {
		return nil
	}
	c.logger.Debug("QUIC connection reader stopped", log.Error(err))
	return err
}
