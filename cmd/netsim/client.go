package main

import (
	"context"

	"github.com/zeusync/tickstate/internal/core/netcode"
	"github.com/zeusync/tickstate/internal/game"
	"github.com/zeusync/tickstate/internal/injector"
)

// statsEvery is how many ticks pass between client stats log lines.
const statsEvery = 100

func runClient(ctx context.Context, rt *injector.Runtime, steps int) error {
	conn, err := dial(ctx, rt.Config.Network, rt.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := netcode.NewClient[game.Move](rt.Registry, conn, clientConfig(rt))
	return runTicks(ctx, rt.Config.Network.TickInterval, steps, func(tick int) {
		client.Step(patrol(tick, 0))
		if tick%statsEvery == statsEvery-1 {
			logClientStats(rt.Logger, client.Stats())
		}
	})
}
