package main

import (
	"context"
	"fmt"

	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/netcode"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/protocol/loopback"
	"github.com/zeusync/tickstate/internal/game"
	"github.com/zeusync/tickstate/internal/injector"
)

type player struct {
	client *netcode.Client[game.Move, *game.Move]
	entity models.EntityID
}

// runSim drives one server and several clients in a single goroutine over
// a loopback network.
func runSim(ctx context.Context, rt *injector.Runtime, players, steps int) error {
	n := rt.Config.Network
	net := loopback.New(loopback.Options{
		Latency:   n.LatencyTicks,
		Jitter:    n.JitterTicks,
		Loss:      n.Loss,
		Duplicate: n.Duplicate,
		Seed:      n.Seed,
	})

	server := netcode.NewServer[game.Move](rt.Registry, serverConfig(rt), game.Integrate{})
	all := make([]player, 0, players)
	for i := range players {
		e, ok := game.Spawn(server.Store(), float32(i), 0)
		if !ok {
			return fmt.Errorf("store full after %d players", i)
		}
		serverEnd, clientEnd := net.Pipe()
		server.Connect(serverEnd, e)
		all = append(all, player{
			client: netcode.NewClient[game.Move](rt.Registry, clientEnd, clientConfig(rt)),
			entity: e,
		})
	}
	server.Store().EndTick()

	err := runTicks(ctx, n.TickInterval, steps, func(tick int) {
		server.Step()
		for i, p := range all {
			p.client.Step(patrol(tick, i))
		}
		net.Step()
	})

	st := net.Stats()
	rt.Logger.Info("Simulation done",
		log.Int32("server_tick", server.Tick()),
		log.Int("sent", st.Sent),
		log.Int("dropped", st.Dropped),
		log.Int("duplicated", st.Duplicated))
	for _, p := range all {
		logClientStats(rt.Logger.With(log.Int32("entity", int32(p.entity))), p.client.Stats())
	}
	return err
}
