package main

import (
	"context"
	"time"

	"github.com/zeusync/tickstate/internal/core/netcode"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/game"
	"github.com/zeusync/tickstate/internal/injector"
)

// runTicks calls step once per interval until ctx ends or steps ticks have
// run. steps <= 0 means no limit.
func runTicks(ctx context.Context, interval time.Duration, steps int, step func(tick int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for tick := 0; steps <= 0 || tick < steps; tick++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		step(tick)
	}
	return nil
}

// patrol walks player i back and forth along x, reversing every 40 ticks.
func patrol(tick, i int) game.Move {
	const leg = 40
	if ((tick+i*7)/leg)%2 == 0 {
		return game.Move{X: 1}
	}
	return game.Move{X: -1}
}

func serverConfig(rt *injector.Runtime) netcode.ServerConfig {
	c := rt.Config
	return netcode.ServerConfig{
		Capacity:        c.Store.Capacity,
		SnapshotHistory: c.Store.SnapshotHistory,
		MaxCommands:     c.Store.CommandHistory,
		SendRate:        c.Server.SendRate,
		Logger:          rt.Logger,
		Metrics:         rt.Metrics,
	}
}

func clientConfig(rt *injector.Runtime) netcode.ClientConfig {
	c := rt.Config
	return netcode.ClientConfig{
		Capacity:              c.Store.Capacity,
		SnapshotHistory:       c.Store.SnapshotHistory,
		CommandHistory:        c.Store.CommandHistory,
		SendRate:              c.Client.SendRate,
		RenderDelay:           c.Client.RenderDelay,
		MaxExtrapolationTicks: c.Client.MaxExtrapolationTicks,
		Interpolation:         c.Client.Interpolation,
		Prediction:            c.Client.Prediction,
		VerifyChecksums:       c.Client.VerifyChecksums,
		Logger:                rt.Logger,
		Metrics:               rt.Metrics,
	}
}

func logClientStats(logger log.Log, st netcode.Stats) {
	logger.Info("Client stats",
		log.Int32("tick", st.Tick),
		log.Int32("latest_server_tick", st.LatestServerTick),
		log.Int32("render_tick", st.RenderTick),
		log.Bool("rendering", st.Rendering),
		log.Uint64("extrapolated", st.Extrapolated),
		log.Uint64("no_interpolation", st.NoInterpolation),
		log.Uint64("stale", st.Stale),
		log.Uint64("decode_failed", st.DecodeFailed),
		log.Uint64("baseline_missing", st.BaselineMissing),
		log.Uint64("desync", st.Desync))
}
