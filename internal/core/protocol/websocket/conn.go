// Package websocket carries protocol messages as binary websocket frames.
// The link is reliable and ordered; the loops treat it like any other Conn.
package websocket

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 5 * time.Second
	DefaultMaxMessage   = 1 << 20
)

type Options struct {
	QueueSize      int
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessage
	}
	return o
}

var _ protocol.Conn = (*Conn)(nil)

// Conn runs one reader and one writer goroutine per websocket so that
// Poll and Send never wait on the network.
type Conn struct {
	id      string
	conn    *websocket.Conn
	opts    Options
	logger  log.Log
	inbox   chan []byte
	outbox  chan []byte
	done    chan struct{}
	gone    chan struct{}
	closed  atomic.Bool
	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func newConn(ws *websocket.Conn, opts Options, logger log.Log) *Conn {
	opts = opts.withDefaults()
	id := uuid.NewString()
	ws.SetReadLimit(opts.MaxMessageSize)

	c := &Conn{
		id:     id,
		conn:   ws,
		opts:   opts,
		logger: logger.With(log.String("connection_id", id), log.String("remote_addr", ws.RemoteAddr().String())),
		inbox:  make(chan []byte, opts.QueueSize),
		outbox: make(chan []byte, opts.QueueSize),
		done:   make(chan struct{}),
		gone:   make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *Conn) ID() string { return c.id }

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
	if int64(len(buf)) > c.opts.MaxMessageSize {
		return protocol.ErrMessageTooLarge
	}
	select {
	case c.outbox <- slices.Clone(buf):
		return nil
	default:
		return protocol.ErrSendQueueFull
	}
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.writeMu.Lock()
	closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "connection closed")
	_ = c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	c.logger.Info("WebSocket connection closed")
	return err
}

// Done is closed once the peer can no longer be read from.
func (c *Conn) Done() <-chan struct{} { return c.gone }

func (c *Conn) readLoop() {
	defer c.wg.Done()
	defer close(c.gone)
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("WebSocket read stopped", log.Error(err))
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			c.logger.Debug("Ignoring non-binary frame", log.Int("type", messageType))
			continue
		}
		select {
		case c.inbox <- data:
		default:
			c.logger.Debug("Inbox full, dropping message", log.Int("size", len(data)))
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outbox:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			err := c.conn.WriteMessage(websocket.BinaryMessage, msg)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("WebSocket write failed", log.Error(err))
			}
		}
	}
}
