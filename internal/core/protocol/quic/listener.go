package quic

import (
	"context"
	"crypto/tls"
	"net"

	pkgerrors "github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
)

var _ protocol.Listener = (*Listener)(nil)

type Listener struct {
	listener *quic.Listener
	opts     Options
	logger   log.Log
}

// Listen accepts QUIC connections on addr. A nil tlsConfig gets a
// self-signed certificate.
func Listen(addr string, tlsConfig *tls.Config, opts Options, logger log.Log) (*Listener, error) {
	if tlsConfig == nil {
		var err error
		if tlsConfig, err = SelfSignedTLS(); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to generate TLS config")
		}
	}
	ln, err := quic.ListenAddr(addr, tlsConfig, opts.quicConfig())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", addr)
	}
	l := &Listener{
		listener: ln,
		opts:     opts,
		logger:   logger.With(log.String("listener_addr", ln.Addr().String())),
	}
	l.logger.Info("QUIC listener created")
	return l, nil
}

func (l *Listener) Accept(ctx context.Context) (protocol.Conn, error) {
	qc, err := l.listener.Accept(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to accept QUIC connection")
	}
	return newConn(qc, l.opts, l.logger), nil
}

func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *Listener) Close() error {
	l.logger.Info("Closing QUIC listener")
	return l.listener.Close()
}

// Dial connects to a Listener. A nil tlsConfig trusts any certificate.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, opts Options, logger log.Log) (*Conn, error) {
	if tlsConfig == nil {
		tlsConfig = InsecureClientTLS()
	}
	qc, err := quic.DialAddr(ctx, addr, tlsConfig, opts.quicConfig())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to dial %s", addr)
	}
	return newConn(qc, opts, logger), nil
}
