package netcode

import (
	"errors"
	"time"

	"github.com/zeusync/tickstate/internal/core/command"
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/observability/metrics"
	"github.com/zeusync/tickstate/internal/core/protocol"
	"github.com/zeusync/tickstate/internal/core/snapshot"
	"github.com/zeusync/tickstate/pkg/encoding"
)

type ClientConfig struct {
	Capacity        int
	SnapshotHistory int
	CommandHistory  int
	// SendRate is the number of ticks between command messages.
	SendRate int
	// RenderDelay is how many ticks behind the local tick rendering runs.
	RenderDelay           int
	MaxExtrapolationTicks int
	Interpolation         bool
	Prediction            bool
	VerifyChecksums       bool

	Logger  log.Log
	Metrics metrics.Collector
}

// Stats are diagnostic counters, monotonic for the life of a Client.
type Stats struct {
	Tick             int32
	LatestServerTick int32
	RenderTick       int32
	Rendering        bool
	Extrapolated     uint64
	NoInterpolation  uint64
	Stale            uint64
	DecodeFailed     uint64
	BaselineMissing  uint64
	Desync           uint64
}

type Client[T any, PT command.Payload[T]] struct {
	cfg     ClientConfig
	conn    protocol.Conn
	logger  log.Log
	metrics metrics.Collector
	systems []ClientSystem

	tick     int32
	synced   bool
	latest   int32
	acked    int32
	entity   models.EntityID
	history  *snapshot.History
	incoming *snapshot.Snapshot

	rendering bool
	start     *snapshot.Snapshot
	end       *snapshot.Snapshot
	rendered  *snapshot.Snapshot

	commands *command.History[T, PT]
	stats    Stats

	reader *encoding.BitReader
	writer *encoding.BitWriter
}

func NewClient[T any, PT command.Payload[T]](r *models.Registry, conn protocol.Conn, cfg ClientConfig, systems ...ClientSystem) *Client[T, PT] {
	if cfg.SendRate <= 0 {
		cfg.SendRate = 1
	}
	if cfg.CommandHistory <= 0 || cfg.CommandHistory > command.MaxBatch {
		cfg.CommandHistory = command.MaxBatch
	}
	logger, collector := orNop(cfg.Logger, cfg.Metrics)
	return &Client[T, PT]{
		cfg:      cfg,
		conn:     conn,
		logger:   logger.With(log.String("role", "client"), log.String("connection_id", conn.ID())),
		metrics:  collector,
		systems:  systems,
		tick:     snapshot.NoTick,
		latest:   snapshot.NoTick,
		acked:    command.NoTick,
		entity:   models.NoEntity,
		history:  snapshot.NewHistory(r, cfg.Capacity, cfg.SnapshotHistory),
		incoming: snapshot.New(r, cfg.Capacity),
		start:    snapshot.New(r, cfg.Capacity),
		end:      snapshot.New(r, cfg.Capacity),
		rendered: snapshot.New(r, cfg.Capacity),
		commands: command.NewHistory[T, PT](cfg.CommandHistory),
		reader:   encoding.NewBitReader(nil),
		writer:   encoding.NewBitWriter(256),
	}
}

// Rendered is the state to present this tick. It holds no data until
// rendering has started.
func (c *Client[T, PT]) Rendered() *snapshot.Snapshot { return c.rendered }

func (c *Client[T, PT]) Entity() models.EntityID { return c.entity }

func (c *Client[T, PT]) Commands() *command.History[T, PT] { return c.commands }

func (c *Client[T, PT]) History() *snapshot.History { return c.history }

func (c *Client[T, PT]) Stats() Stats {
	st := c.stats
	st.Tick = c.tick
	st.LatestServerTick = c.latest
	st.RenderTick = c.rendered.Tick
	st.Rendering = c.rendering
	return st
}

// Step runs one client tick with this tick's input.
func (c *Client[T, PT]) Step(input T) {
	if c.synced {
		c.tick++
	}

	c.receive()
	if !c.synced {
		c.runSystems()
		return
	}

	desired := c.tick - int32(c.cfg.RenderDelay)
	if !c.rendering {
		c.startRendering(desired)
	} else if desired > c.end.Tick {
		c.advanceEnd(desired)
	}

	if c.rendering {
		c.render(desired)
		c.commands.Update(c.tick, c.rendered.Tick, c.start.Tick, c.end.Tick, c.entity, input)
		if c.tick%int32(c.cfg.SendRate) == 0 {
			c.send()
		}
		if c.cfg.Prediction {
			c.predict()
		}
	}

	c.runSystems()
}

func (c *Client[T, PT]) receive() {
	for {
		msg, ok := c.conn.Poll()
		if !ok {
			return
		}
		c.metrics.BytesReceived(len(msg))
		start := time.Now()
		err := c.accept(msg)
		metrics.Since(c.metrics, metrics.Decode, start)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, errStale):
			c.stats.Stale++
			c.metrics.Count(metrics.StaleDropped, 1)
		case errors.Is(err, protocol.ErrBaselineMissing):
			c.stats.BaselineMissing++
			c.metrics.Count(metrics.BaselineMissing, 1)
			c.logger.Debug("Dropping update against unknown baseline", log.Error(err))
		default:
			c.stats.DecodeFailed++
			c.metrics.Count(metrics.DecodeFailed, 1)
			c.logger.Warn("Dropping server update", log.Error(err),
				log.String("code", protocol.GetErrorCode(err).String()))
		}
	}
}

var errStale = errors.New("stale update")

// accept decodes one server update into the history. Updates not newer
// than the latest one held are rejected with errStale.
func (c *Client[T, PT]) accept(msg []byte) error {
	c.reader.Reset(msg)
	h, err := protocol.ReadServerHeader(c.reader, c.incoming.Store.Capacity())
	if err != nil {
		return err
	}
	tick, err := snapshot.PeekTick(c.reader)
	if err != nil {
		return protocol.WrapError(err, "peek snapshot tick")
	}
	if tick <= c.latest {
		return errStale
	}

	var baseline *snapshot.Snapshot
	if h.Baseline != protocol.NoBaseline {
		if baseline = c.history.Find(h.Baseline); baseline == nil {
			return protocol.NewProtocolError(protocol.ErrorCodeBaselineMissing, "decode server update", protocol.ErrBaselineMissing)
		}
	}
	if err = snapshot.Deserialize(c.reader, baseline, c.incoming); err != nil {
		return protocol.WrapError(err, "decode server update")
	}
	if err = protocol.Finish(c.reader); err != nil {
		c.incoming.Invalidate()
		return err
	}

	if c.cfg.VerifyChecksums && c.incoming.Store.Checksum() != h.Checksum {
		c.stats.Desync++
		c.metrics.Count(metrics.Desync, 1)
		c.logger.Warn("Snapshot checksum mismatch", log.Int32("tick", tick))
	}

	c.history.Oldest().CopyFrom(c.incoming)
	c.latest = tick
	c.acked = h.Ack
	c.entity = h.Entity
	if !c.synced {
		c.synced = true
		c.tick = tick
		c.logger.Info("Synchronized with server", log.Int32("tick", tick))
	}
	return nil
}

func (c *Client[T, PT]) startRendering(desired int32) {
	from := c.history.Floor(desired)
	to := c.history.After(desired)
	if from == nil || to == nil {
		return
	}
	c.start.CopyFrom(from)
	c.end.CopyFrom(to)
	c.rendering = true
	c.logger.Info("Rendering started", log.Int32("render_tick", desired),
		log.Int32("start", from.Tick), log.Int32("end", to.Tick))
}

// advanceEnd moves the interpolation window forward once desired has
// passed its end. The new window starts from what is on screen now so the
// blend continues without a jump.
func (c *Client[T, PT]) advanceEnd(desired int32) {
	next := c.history.After(desired)
	if next == nil {
		return
	}
	c.start.CopyFrom(c.rendered)
	c.end.CopyFrom(next)
}

func (c *Client[T, PT]) render(desired int32) {
	tick := min(desired, c.end.Tick+int32(c.cfg.MaxExtrapolationTicks))
	switch {
	case tick < desired:
		c.stats.NoInterpolation++
		c.metrics.Count(metrics.NoInterpolation, 1)
	case tick > c.end.Tick:
		c.stats.Extrapolated++
		c.metrics.Count(metrics.Extrapolated, 1)
	}

	if !c.cfg.Interpolation {
		c.rendered.CopyFrom(c.end)
		return
	}
	amount := float32(1)
	if span := c.end.Tick - c.start.Tick; span > 0 {
		amount = float32(tick-c.start.Tick) / float32(span)
	}
	c.rendered.Interpolate(c.start, c.end, amount, tick)
}

func (c *Client[T, PT]) send() {
	c.writer.Reset()
	n := protocol.WriteClientUpdate(c.writer, c.latest, c.commands, c.acked)
	buf := c.writer.Bytes()
	if err := c.conn.Send(buf); err != nil {
		c.metrics.Count(metrics.SendFailed, 1)
		c.logger.Debug("Failed to send commands", log.Int("commands", n), log.Error(err))
		return
	}
	c.metrics.BytesSent(len(buf))
}

// predict rebuilds the commanded entity from the newest snapshot plus every
// command the server has not acknowledged yet.
func (c *Client[T, PT]) predict() {
	e := c.entity
	if !e.Valid() || !c.rendered.Store.Exists(e) {
		return
	}
	newest := c.history.Newest()
	if newest == nil {
		return
	}
	newest.Store.CopyEntityInto(c.rendered.Store, e)
	for cmd := range c.commands.Pending(c.acked) {
		if cmd.Entity == e {
			cmd.Apply(c.rendered.Store)
		}
	}
}

func (c *Client[T, PT]) runSystems() {
	for _, sys := range c.systems {
		sys.Update(c.rendered.Store, c.entity)
		sys.Render(c.rendered.Store, c.entity)
	}
}
