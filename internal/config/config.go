// Package config loads the YAML configuration shared by the loops and the
// netsim harness.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/tickstate/internal/core/command"
	"github.com/zeusync/tickstate/internal/core/observability/metrics"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Store   Store   `yaml:"store"`
	Server  Server  `yaml:"server"`
	Client  Client  `yaml:"client"`
	Metrics Metrics `yaml:"metrics"`
	Network Network `yaml:"network"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type Store struct {
	Capacity        int `yaml:"capacity"`
	SnapshotHistory int `yaml:"snapshot_history"`
	CommandHistory  int `yaml:"command_history"`
}

type Server struct {
	// SendRate is the number of ticks between updates to each client.
	SendRate int `yaml:"send_rate"`
}

type Client struct {
	SendRate              int  `yaml:"send_rate"`
	Interpolation         bool `yaml:"interpolation"`
	RenderDelay           int  `yaml:"render_delay"`
	MaxExtrapolationTicks int  `yaml:"max_extrapolation_ticks"`
	Prediction            bool `yaml:"prediction"`
	VerifyChecksums       bool `yaml:"verify_checksums"`
}

type Metrics struct {
	Kind          metrics.Kind `yaml:"kind"`
	StatsdAddress string       `yaml:"statsd_address"`
	Namespace     string       `yaml:"namespace"`
	Tags          []string     `yaml:"tags"`
	Window        int          `yaml:"window"`
}

type Transport string

const (
	TransportLoopback  Transport = "loopback"
	TransportQUIC      Transport = "quic"
	TransportWebSocket Transport = "websocket"
)

type Network struct {
	Transport    Transport     `yaml:"transport"`
	Address      string        `yaml:"address"`
	TickInterval time.Duration `yaml:"tick_interval"`
	LatencyTicks int           `yaml:"latency_ticks"`
	JitterTicks  int           `yaml:"jitter_ticks"`
	Loss         float64       `yaml:"loss"`
	Duplicate    float64       `yaml:"duplicate"`
	Seed         uint64        `yaml:"seed"`
}

func Default() Config {
	return Config{
		Log: Log{Level: "info", Encoding: "json"},
		Store: Store{
			Capacity:        64,
			SnapshotHistory: 16,
			CommandHistory:  64,
		},
		Server: Server{SendRate: 3},
		Client: Client{
			SendRate:              1,
			Interpolation:         true,
			RenderDelay:           8,
			MaxExtrapolationTicks: 3,
			Prediction:            true,
			VerifyChecksums:       true,
		},
		Metrics: Metrics{
			Kind:      metrics.KindNone,
			Namespace: "tickstate.",
			Window:    metrics.DefaultWindow,
		},
		Network: Network{
			Transport:    TransportLoopback,
			Address:      "127.0.0.1:4646",
			TickInterval: 50 * time.Millisecond,
			LatencyTicks: 2,
		},
	}
}

// Load decodes a YAML document over Default. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Load(f)
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Store.Capacity > 0, "store.capacity must be positive, got %d", c.Store.Capacity)
	check(c.Store.SnapshotHistory >= 2, "store.snapshot_history must be at least 2, got %d", c.Store.SnapshotHistory)
	check(c.Store.CommandHistory > 0 && c.Store.CommandHistory <= command.MaxBatch,
		"store.command_history must be in [1, %d], got %d", command.MaxBatch, c.Store.CommandHistory)
	check(c.Server.SendRate > 0, "server.send_rate must be positive, got %d", c.Server.SendRate)
	check(c.Client.SendRate > 0, "client.send_rate must be positive, got %d", c.Client.SendRate)
	check(c.Client.RenderDelay >= 0, "client.render_delay must not be negative, got %d", c.Client.RenderDelay)
	check(c.Client.RenderDelay >= c.Server.SendRate,
		"client.render_delay %d is shorter than server.send_rate %d", c.Client.RenderDelay, c.Server.SendRate)
	check(c.Client.MaxExtrapolationTicks >= 0,
		"client.max_extrapolation_ticks must not be negative, got %d", c.Client.MaxExtrapolationTicks)

	switch c.Metrics.Kind {
	case metrics.KindNone, metrics.KindRolling:
	case metrics.KindStatsd:
		check(c.Metrics.StatsdAddress != "", "metrics.statsd_address is required for statsd")
	default:
		check(false, "metrics.kind %q is not one of none, rolling, statsd", c.Metrics.Kind)
	}

	switch c.Network.Transport {
	case TransportLoopback, TransportQUIC, TransportWebSocket:
	default:
		check(false, "network.transport %q is not one of loopback, quic, websocket", c.Network.Transport)
	}
	check(c.Network.TickInterval > 0, "network.tick_interval must be positive")
	check(c.Network.LatencyTicks >= 0 && c.Network.JitterTicks >= 0, "network latency and jitter must not be negative")
	check(c.Network.Loss >= 0 && c.Network.Loss <= 1, "network.loss must be in [0, 1], got %v", c.Network.Loss)
	check(c.Network.Duplicate >= 0 && c.Network.Duplicate <= 1, "network.duplicate must be in [0, 1], got %v", c.Network.Duplicate)

	return errors.Join(errs...)
}

// MetricsOptions converts the metrics section for metrics.New.
func (c Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		Kind:      c.Metrics.Kind,
		Address:   c.Metrics.StatsdAddress,
		Namespace: c.Metrics.Namespace,
		Tags:      c.Metrics.Tags,
		Window:    c.Metrics.Window,
	}
}
