// Package metrics collects the counters and timings the synchronization
// loops emit. Loops hold a Collector and never touch globals.
package metrics

import (
	"fmt"
	"time"

	"github.com/zeusync/tickstate/internal/core/observability/log"
)

// Metric names shared by every Collector.
const (
	Encode          = "encode"
	Decode          = "decode"
	StaleDropped    = "stale_dropped"
	DecodeFailed    = "decode_failed"
	BaselineMissing = "baseline_missing"
	CommandsApplied = "commands_applied"
	CommandsDropped = "commands_dropped"
	Extrapolated    = "extrapolated"
	NoInterpolation = "no_interpolation"
	Desync          = "desync"
	SendFailed      = "send_failed"
)

type Collector interface {
	BytesSent(n int)
	BytesReceived(n int)
	Timing(name string, d time.Duration)
	Count(name string, delta int64)
}

type Kind string

const (
	KindNone    Kind = "none"
	KindRolling Kind = "rolling"
	KindStatsd  Kind = "statsd"
)

type Options struct {
	Kind      Kind
	Address   string
	Namespace string
	Tags      []string
	Window    int
}

// New builds the collector named by opts.Kind. An empty kind is KindNone.
func New(opts Options, logger log.Log) (Collector, error) {
	switch opts.Kind {
	case KindNone, "":
		return Nop{}, nil
	case KindRolling:
		return NewRolling(opts.Window), nil
	case KindStatsd:
		return NewStatsd(opts.Address, opts.Namespace, opts.Tags, logger)
	}
	return nil, fmt.Errorf("metrics: unknown kind %q", opts.Kind)
}

// Since records the time elapsed from start under name.
func Since(c Collector, name string, start time.Time) {
	c.Timing(name, time.Since(start))
}

type Nop struct{}

func (Nop) BytesSent(int)                {}
func (Nop) BytesReceived(int)            {}
func (Nop) Timing(string, time.Duration) {}
func (Nop) Count(string, int64)          {}
