package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"

	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
)

// DefaultPath is where Listen mounts the Handler.
const DefaultPath = "/ws"

// Handler upgrades HTTP requests and queues the resulting Conns for Accept.
type Handler struct {
	upgrader websocket.Upgrader
	opts     Options
	logger   log.Log
	accepted chan *Conn
	done     chan struct{}
}

func NewHandler(opts Options, logger log.Log) *Handler {
	opts = opts.withDefaults()
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts:     opts,
		logger:   logger,
		accepted: make(chan *Conn, opts.QueueSize),
		done:     make(chan struct{}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", log.Error(err))
		return
	}
	c := newConn(ws, h.opts, h.logger)
	select {
	case h.accepted <- c:
		c.logger.Info("Client connected")
	case <-h.done:
		_ = c.Close()
	default:
		h.logger.Warn("Accept queue full, rejecting connection")
		_ = c.Close()
	}
}

func (h *Handler) Accept(ctx context.Context) (protocol.Conn, error) {
	select {
	case c := <-h.accepted:
		return c, nil
	case <-h.done:
		return nil, protocol.ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ protocol.Listener = (*Listener)(nil)

// Listener serves a Handler on its own HTTP server.
type Listener struct {
	*Handler
	ln     net.Listener
	server *http.Server
}

func Listen(addr string, opts Options, logger log.Log) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", addr)
	}
	h := NewHandler(opts, logger.With(log.String("listener_addr", ln.Addr().String())))
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, h)
	l := &Listener{
		Handler: h,
		ln:      ln,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("WebSocket server stopped", log.Error(err))
		}
	}()
	h.logger.Info("WebSocket listener created")
	return l, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error {
	close(l.done)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}

// Dial connects to url, e.g. ws://127.0.0.1:9000/ws.
func Dial(ctx context.Context, url string, opts Options, logger log.Log) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to dial %s", url)
	}
	return newConn(ws, opts, logger), nil
}
