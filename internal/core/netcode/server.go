package netcode

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/tickstate/internal/core/command"
	"github.com/zeusync/tickstate/internal/core/models"
	"github.com/zeusync/tickstate/internal/core/observability/log"
	"github.com/zeusync/tickstate/internal/core/observability/metrics"
	"github.com/zeusync/tickstate/internal/core/protocol"
	"github.com/zeusync/tickstate/internal/core/snapshot"
	"github.com/zeusync/tickstate/pkg/encoding"
)

type ServerConfig struct {
	Capacity        int
	SnapshotHistory int
	// MaxCommands caps the commands accepted in one client message.
	MaxCommands int
	// SendRate is the number of ticks between updates to each client.
	SendRate int

	Logger  log.Log
	Metrics metrics.Collector
}

// ClientProxy is the server's view of one connected client.
type ClientProxy[T any, PT command.Payload[T]] struct {
	ID   uuid.UUID
	Conn protocol.Conn
	// Entity is the only entity this client's commands may move.
	Entity models.EntityID
	// LastProcessedTick is the newest command tick consumed from this client.
	LastProcessedTick int32
	// LastAckedServerTick is the newest snapshot the client reported holding.
	LastAckedServerTick int32

	logger  log.Log
	update  protocol.ClientUpdate[T, PT]
	faulted bool
}

type Server[T any, PT command.Payload[T]] struct {
	cfg     ServerConfig
	logger  log.Log
	metrics metrics.Collector

	tick    int32
	store   *models.Store
	history *snapshot.History
	systems []ServerSystem
	proxies []*ClientProxy[T, PT]

	writer   *encoding.BitWriter
	reader   *encoding.BitReader
	incoming []command.Command[T, PT]
}

func NewServer[T any, PT command.Payload[T]](r *models.Registry, cfg ServerConfig, systems ...ServerSystem) *Server[T, PT] {
	if cfg.SendRate <= 0 {
		cfg.SendRate = 1
	}
	if cfg.MaxCommands <= 0 || cfg.MaxCommands > command.MaxBatch {
		cfg.MaxCommands = command.MaxBatch
	}
	logger, collector := orNop(cfg.Logger, cfg.Metrics)
	return &Server[T, PT]{
		cfg:     cfg,
		logger:  logger.With(log.String("role", "server")),
		metrics: collector,
		tick:    0,
		store:   models.NewStore(r, cfg.Capacity),
		history: snapshot.NewHistory(r, cfg.Capacity, cfg.SnapshotHistory),
		systems: systems,
		writer:  encoding.NewBitWriter(1024),
		reader:  encoding.NewBitReader(nil),
	}
}

// Tick is the number of the last completed tick.
func (s *Server[T, PT]) Tick() int32 { return s.tick }

// Store is the authoritative store. Entities created outside Tick become
// visible at the end of the next tick.
func (s *Server[T, PT]) Store() *models.Store { return s.store }

func (s *Server[T, PT]) History() *snapshot.History { return s.history }

func (s *Server[T, PT]) Clients() []*ClientProxy[T, PT] { return s.proxies }

// Connect starts serving a client over conn, commanding entity.
func (s *Server[T, PT]) Connect(conn protocol.Conn, entity models.EntityID) *ClientProxy[T, PT] {
	id := uuid.New()
	p := &ClientProxy[T, PT]{
		ID:                  id,
		Conn:                conn,
		Entity:              entity,
		LastProcessedTick:   command.NoTick,
		LastAckedServerTick: snapshot.NoTick,
		logger:              s.logger.With(log.String("client_id", id.String()), log.String("connection_id", conn.ID())),
	}
	s.proxies = append(s.proxies, p)
	p.logger.Info("Client proxy added", log.Int32("entity", int32(entity)))
	return p
}

// Disconnect stops serving the client. The connection is not closed.
func (s *Server[T, PT]) Disconnect(id uuid.UUID) bool {
	for i, p := range s.proxies {
		if p.ID == id {
			s.proxies = slices.Delete(s.proxies, i, i+1)
			p.logger.Info("Client proxy removed")
			return true
		}
	}
	return false
}

func (s *Server[T, PT]) SetCommandingEntity(id uuid.UUID, entity models.EntityID) bool {
	for _, p := range s.proxies {
		if p.ID == id {
			p.Entity = entity
			return true
		}
	}
	return false
}

// Step runs one tick: apply client commands, run the systems, record the
// snapshot, and send updates when the cadence says so.
func (s *Server[T, PT]) Step() {
	s.tick++

	s.store.BeginTick()
	for _, p := range s.proxies {
		s.receive(p)
	}
	s.proxies = slices.DeleteFunc(s.proxies, s.dropFaulted)
	for _, sys := range s.systems {
		sys.Update(s.store)
	}
	s.store.EndTick()

	current := s.history.Oldest()
	current.Capture(s.tick, s.store)

	if s.tick%int32(s.cfg.SendRate) == 0 {
		checksum := current.Store.Checksum()
		for _, p := range s.proxies {
			s.send(p, current, checksum)
		}
	}
}

func (s *Server[T, PT]) receive(p *ClientProxy[T, PT]) {
	s.incoming = s.incoming[:0]
	for {
		msg, ok := p.Conn.Poll()
		if !ok {
			break
		}
		s.metrics.BytesReceived(len(msg))
		s.reader.Reset(msg)
		if err := p.update.Decode(s.reader, s.cfg.MaxCommands, s.store.Capacity()); err != nil {
			s.metrics.Count(metrics.DecodeFailed, 1)
			p.logger.Warn("Dropping client update", log.Error(err),
				log.String("code", protocol.GetErrorCode(err).String()))
			if protocol.IsFatal(err) {
				p.faulted = true
				break
			}
			continue
		}
		// Only snapshots already recorded can be acknowledged.
		if ack := p.update.LatestServerTick; ack > p.LastAckedServerTick && ack < s.tick {
			p.LastAckedServerTick = ack
		}
		s.incoming = append(s.incoming, p.update.Commands...)
	}

	slices.SortStableFunc(s.incoming, func(a, b command.Command[T, PT]) int {
		return cmp.Compare(a.IssuingTick, b.IssuingTick)
	})
	for i := range s.incoming {
		c := &s.incoming[i]
		if c.IssuingTick <= p.LastProcessedTick {
			s.metrics.Count(metrics.CommandsDropped, 1)
			continue
		}
		p.LastProcessedTick = c.IssuingTick
		if c.Entity != p.Entity || !s.store.Exists(c.Entity) {
			s.metrics.Count(metrics.CommandsDropped, 1)
			continue
		}
		c.Apply(s.store)
		s.metrics.Count(metrics.CommandsApplied, 1)
	}
}

// dropFaulted closes and reports proxies whose peer violated the protocol.
// Commands already decoded from them this tick are still applied.
func (s *Server[T, PT]) dropFaulted(p *ClientProxy[T, PT]) bool {
	if !p.faulted {
		return false
	}
	p.logger.Warn("Client proxy removed after protocol violation")
	if err := p.Conn.Close(); err != nil {
		p.logger.Debug("Failed to close connection", log.Error(err))
	}
	return true
}

func (s *Server[T, PT]) send(p *ClientProxy[T, PT], current *snapshot.Snapshot, checksum uint64) {
	baseline := s.history.Find(p.LastAckedServerTick)
	if baseline == nil && p.LastAckedServerTick != snapshot.NoTick {
		s.metrics.Count(metrics.BaselineMissing, 1)
		p.logger.Debug("Acknowledged snapshot no longer held, sending full update",
			log.Int32("ack", p.LastAckedServerTick))
	}

	start := time.Now()
	s.writer.Reset()
	protocol.WriteServerUpdate(s.writer, protocol.ServerHeader{
		Ack:      p.LastProcessedTick,
		Entity:   p.Entity,
		Checksum: checksum,
	}, current, baseline)
	metrics.Since(s.metrics, metrics.Encode, start)

	buf := s.writer.Bytes()
	if err := p.Conn.Send(buf); err != nil {
		s.metrics.Count(metrics.SendFailed, 1)
		if errors.Is(err, protocol.ErrConnectionClosed) {
			p.logger.Debug("Send on closed connection", log.Error(err))
			return
		}
		p.logger.Warn("Failed to send server update", log.Error(err))
		return
	}
	s.metrics.BytesSent(len(buf))
}
