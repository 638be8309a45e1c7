// Package loopback is an in-memory lossy network. It is deterministic for a
// given seed and sequence of calls, and only moves when Step is called, so
// a test or harness can drive it in lockstep with its loops.
package loopback

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/zeusync/tickstate/internal/core/protocol"
)

// Options shapes the simulated link. Latency and Jitter are in steps.
type Options struct {
	Latency   int
	Jitter    int
	Loss      float64
	Duplicate float64
	Seed      uint64
}

type Stats struct {
	Sent       int
	Delivered  int
	Dropped    int
	Duplicated int
}

type packet struct {
	due  int64
	seq  uint64
	to   *Conn
	data []byte
}

// Network holds every message in flight between the Conns it created.
type Network struct {
	mu       sync.Mutex
	opts     Options
	rng      *rand.Rand
	now      int64
	seq      uint64
	inflight []packet
	stats    Stats
}

func New(opts Options) *Network {
	return &Network{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// Pipe returns the two ends of a new link.
func (n *Network) Pipe() (*Conn, *Conn) {
	a := &Conn{id: uuid.NewString(), net: n}
	b := &Conn{id: uuid.NewString(), net: n}
	a.peer, b.peer = b, a
	return a, b
}

// Step advances the clock by one and delivers every message that is due.
// Messages due on the same step arrive in the order they were sent.
func (n *Network) Step() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.now++
	slices.SortFunc(n.inflight, func(a, b packet) int {
		if c := cmp.Compare(a.due, b.due); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	i := 0
	for ; i < len(n.inflight) && n.inflight[i].due <= n.now; i++ {
		p := n.inflight[i]
		if p.to.closed {
			n.stats.Dropped++
			continue
		}
		p.to.inbox = append(p.to.inbox, p.data)
		n.stats.Delivered++
	}
	n.inflight = slices.Delete(n.inflight, 0, i)
}

func (n *Network) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// InFlight returns how many messages are queued but not yet delivered.
func (n *Network) InFlight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.inflight)
}

func (n *Network) send(to *Conn, buf []byte) {
	n.stats.Sent++
	if n.opts.Loss > 0 && n.rng.Float64() < n.opts.Loss {
		n.stats.Dropped++
		return
	}
	copies := 1
	if n.opts.Duplicate > 0 && n.rng.Float64() < n.opts.Duplicate {
		copies = 2
		n.stats.Duplicated++
	}
	for range copies {
		delay := n.opts.Latency
		if n.opts.Jitter > 0 {
			delay += n.rng.IntN(n.opts.Jitter + 1)
		}
		n.seq++
		n.inflight = append(n.inflight, packet{
			due:  n.now + int64(max(delay, 1)),
			seq:  n.seq,
			to:   to,
			data: slices.Clone(buf),
		})
	}
}

var _ protocol.Conn = (*Conn)(nil)

// Conn is one end of a Pipe.
type Conn struct {
	id     string
	net    *Network
	peer   *Conn
	inbox  [][]byte
	closed bool
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Poll() ([]byte, bool) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil, false
	}
	msg := c.inbox[0]
	c.inbox[0] = nil
	c.inbox = c.inbox[1:]
	return msg, true
}

func (c *Conn) Send(buf []byte) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	if c.closed {
		return protocol.ErrConnectionClosed
	}
	c.net.send(c.peer, buf)
	return nil
}

// Close stops this end. Messages already queued for it are discarded and
// later sends from the peer are dropped on delivery.
func (c *Conn) Close() error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	c.closed = true
	c.inbox = nil
	return nil
}
