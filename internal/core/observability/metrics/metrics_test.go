package metrics

import (
	"testing"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/internal/core/observability/log"
)

func TestWindow(t *testing.T) {
	w := NewWindow(3)
	assert.Zero(t, w.Average())
	for _, v := range []float64{1, 2, 3, 10} {
		w.Add(v)
	}
	assert.InDelta(t, 5, w.Average(), 1e-9)
	assert.Equal(t, float64(16), w.Total())
	assert.Equal(t, int64(4), w.Count())
}

func TestRolling(t *testing.T) {
	r := NewRolling(2)
	r.BytesSent(10)
	r.BytesSent(20)
	r.BytesSent(40)
	r.BytesReceived(5)
	r.Timing(Encode, time.Millisecond)
	r.Timing(Encode, 3*time.Millisecond)
	r.Count(Extrapolated, 1)
	r.Count(Extrapolated, 2)

	avg, total := r.Sent()
	assert.InDelta(t, 30, avg, 1e-9)
	assert.Equal(t, int64(70), total)
	_, total = r.Received()
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 2*time.Millisecond, r.AverageTiming(Encode))
	assert.Zero(t, r.AverageTiming(Decode))
	assert.Equal(t, int64(3), r.Counter(Extrapolated))
}

type recorder struct {
	ddstatsd.NoOpClient
	counts  map[string]int64
	timings map[string]time.Duration
}

func (r *recorder) Count(name string, value int64, _ []string, _ float64) error {
	r.counts[name] += value
	return nil
}

func (r *recorder) Timing(name string, value time.Duration, _ []string, _ float64) error {
	r.timings[name] += value
	return nil
}

func TestStatsd(t *testing.T) {
	rec := &recorder{counts: map[string]int64{}, timings: map[string]time.Duration{}}
	s := NewStatsdWithClient(rec, nil)
	s.BytesSent(12)
	s.BytesReceived(4)
	s.Count(Desync, 1)
	s.Timing(Decode, time.Second)

	assert.Equal(t, int64(12), rec.counts["bytes_sent"])
	assert.Equal(t, int64(4), rec.counts["bytes_received"])
	assert.Equal(t, int64(1), rec.counts[Desync])
	assert.Equal(t, time.Second, rec.timings[Decode])
}

func TestNew(t *testing.T) {
	c, err := New(Options{}, log.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, c)

	c, err = New(Options{Kind: KindRolling, Window: 4}, log.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Rolling{}, c)

	_, err = New(Options{Kind: KindStatsd}, log.NewNop())
	assert.Error(t, err)

	_, err = New(Options{Kind: "prometheus"}, log.NewNop())
	assert.Error(t, err)
}
