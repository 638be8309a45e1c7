// Package netcode runs the two halves of tick-based state synchronization.
//
// A Server owns the authoritative store. Every tick it applies the commands
// its clients sent, runs the simulation and records a snapshot, then on its
// send cadence pushes each client a delta against the last snapshot that
// client acknowledged.
//
// A Client keeps a ring of received snapshots, renders a blend of two of
// them a fixed delay behind its local tick, sends its input as commands,
// and predicts its own entity by replaying every command the server has not
// acknowledged yet on top of the newest snapshot.
//
// Both loops are single-threaded: callers must not call into one instance
// from more than one goroutine at a time. Neither ever blocks on the
// network.
package netcode

import (
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/observability/metrics"
)

// ServerSystem is a per-tick simulation step on the authoritative store.
type ServerSystem interface {
	Update(s *models.Store)
}

// ClientSystem runs over the rendered store every client tick. entity is
// the entity the client commands, or models.NoEntity.
type ClientSystem interface {
	Update(s *models.Store, entity models.EntityID)
	Render(s *models.Store, entity models.EntityID)
}

type ServerSystemFunc func(s *models.Store)

func (f ServerSystemFunc) Update(s *models.Store) { f(s) }

func orNop(logger log.Log, collector metrics.Collector) (log.Log, metrics.Collector) {
	if logger == nil {
		logger = log.NewNop()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return logger, collector
}
