// Command netsim runs the tick synchronization loops, either together over
// a simulated lossy network or as a separate server and client over QUIC or
// websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/tickstate/internal/config"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/injector"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		mode       = flag.String("mode", "sim", "sim, server or client")
		players    = flag.Int("players", 2, "clients to simulate in sim mode")
		steps      = flag.Int("steps", 0, "ticks to run before exiting, 0 runs until interrupted")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(2)
		}
	}

	rt, cleanup, err := injector.InitializeRuntime(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing:", err)
		os.Exit(2)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := rt.Logger.With(log.String("mode", *mode))
	switch *mode {
	case "sim":
		err = runSim(ctx, rt, *players, *steps)
	case "server":
		err = runServer(ctx, rt, *steps)
	case "client":
		err = runClient(ctx, rt, *steps)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("Netsim stopped", log.Error(err))
		cleanup()
		os.Exit(1)
	}
	logger.Info("Netsim finished")
}
