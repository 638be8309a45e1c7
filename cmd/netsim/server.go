package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/netcode"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol"
	"github.com/zeusync/tickstate/internal/game"
	"github.com/zeusync/tickstate/internal/injector"
)

type session struct {
	conn   protocol.Conn
	entity models.EntityID
}

// runServer accepts clients on the configured transport and gives each an
// avatar. Accepting runs beside the tick loop; the loop itself owns all
// server state.
func runServer(ctx context.Context, rt *injector.Runtime, steps int) error {
	logger := rt.Logger
	ln, err := listen(rt.Config.Network, logger)
	if err != nil {
		return err
	}
	logger.Info("Listening", log.String("transport", string(rt.Config.Network.Transport)),
		log.String("addr", ln.Addr().String()))

	ctx, cancel := context.WithCancel(ctx)
	accepted := make(chan protocol.Conn)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			conn, err := ln.Accept(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, protocol.ErrConnectionClosed) {
					return nil
				}
				return err
			}
			select {
			case accepted <- conn:
			case <-ctx.Done():
				_ = conn.Close()
				return nil
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		server := netcode.NewServer[game.Move](rt.Registry, serverConfig(rt), game.Integrate{})
		sessions := make(map[uuid.UUID]session)
		defer func() {
			for _, s := range sessions {
				_ = s.conn.Close()
			}
		}()

		return runTicks(ctx, rt.Config.Network.TickInterval, steps, func(int) {
		drain:
			for {
				select {
				case conn := <-accepted:
					admit(server, sessions, conn, logger)
				default:
					break drain
				}
			}
			for id, s := range sessions {
				c, ok := s.conn.(closer)
				if !ok {
					continue
				}
				select {
				case <-c.Done():
					server.Disconnect(id)
					server.Store().Remove(s.entity)
					delete(sessions, id)
				default:
				}
			}
			server.Step()
		})
	})

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	return g.Wait()
}

// admit spawns an avatar for conn. The avatar appears to clients from the
// next tick on.
func admit(server *netcode.Server[game.Move, *game.Move], sessions map[uuid.UUID]session, conn protocol.Conn, logger log.Log) {
	e, ok := game.Spawn(server.Store(), 0, 0)
	if !ok {
		logger.Warn("Store is full, rejecting client", log.String("connection_id", conn.ID()))
		_ = conn.Close()
		return
	}
	p := server.Connect(conn, e)
	sessions[p.ID] = session{conn: conn, entity: e}
}
