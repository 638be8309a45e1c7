// Package injector assembles the long-lived collaborators of the netsim
// harness with google/wire.
package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/tickstate/internal/config"
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/observability/metrics"
	"github.com/zeusync/tickstate/internal/game"
)

// Runtime is everything a harness mode needs besides its transport.
type Runtime struct {
	Config   config.Config
	Logger   log.Log
	Metrics  metrics.Collector
	Registry *models.Registry
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideCollector,
	game.NewRegistry,
	wire.Struct(new(Runtime), "*"),
)

func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(log.Options{Level: level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideCollector builds the configured collector. The cleanup flushes a
// statsd client.
func ProvideCollector(cfg config.Config, logger log.Log) (metrics.Collector, func(), error) {
	c, err := metrics.New(cfg.MetricsOptions(), logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if s, ok := c.(*metrics.Statsd); ok {
		cleanup = func() {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close statsd client", log.Error(err))
			}
		}
	}
	return c, cleanup, nil
}
