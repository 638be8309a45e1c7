package metrics

import (
	"errors"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"

	"github.com/zeusync/tickstate/internal/core/observability/log"
)

// Statsd forwards to a DataDog statsd client. Emission errors are logged at
// debug and otherwise ignored.
type Statsd struct {
	client ddstatsd.ClientInterface
	logger log.Log
}

func NewStatsd(address, namespace string, tags []string, logger log.Log) (*Statsd, error) {
	if address == "" {
		return nil, errors.New("metrics: statsd address must not be empty")
	}
	opts := []ddstatsd.Option{
		ddstatsd.WithNamespace(namespace),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	client, err := ddstatsd.New(address, opts...)
	if err != nil {
		return nil, err
	}
	return NewStatsdWithClient(client, logger), nil
}

func NewStatsdWithClient(client ddstatsd.ClientInterface, logger log.Log) *Statsd {
	if client == nil {
		client = &ddstatsd.NoOpClient{}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Statsd{client: client, logger: logger}
}

func (s *Statsd) BytesSent(n int) {
	s.check("bytes_sent", s.client.Count("bytes_sent", int64(n), nil, 1))
}

func (s *Statsd) BytesReceived(n int) {
	s.check("bytes_received", s.client.Count("bytes_received", int64(n), nil, 1))
}

func (s *Statsd) Timing(name string, d time.Duration) {
	s.check(name, s.client.Timing(name, d, nil, 1))
}

func (s *Statsd) Count(name string, delta int64) {
	s.check(name, s.client.Count(name, delta, nil, 1))
}

func (s *Statsd) Close() error {
	return s.client.Close()
}

func (s *Statsd) check(name string, err error) {
	if err != nil {
		s.logger.Debug("failed to emit stat", log.String("name", name), log.Error(err))
	}
}
