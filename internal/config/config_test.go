package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tickstate/internal/core/observability/metrics"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	c, err := Load(strings.NewReader(`
store:
  capacity: 128
client:
  prediction: false
  render_delay: 6
metrics:
  kind: rolling
  window: 10
network:
  transport: quic
  tick_interval: 20ms
  loss: 0.1
`))
	require.NoError(t, err)
	assert.Equal(t, 128, c.Store.Capacity)
	assert.Equal(t, 16, c.Store.SnapshotHistory)
	assert.False(t, c.Client.Prediction)
	assert.True(t, c.Client.Interpolation)
	assert.Equal(t, 6, c.Client.RenderDelay)
	assert.Equal(t, TransportQUIC, c.Network.Transport)
	assert.Equal(t, 20*time.Millisecond, c.Network.TickInterval)
	assert.Equal(t, metrics.Options{Kind: metrics.KindRolling, Namespace: "tickstate.", Window: 10}, c.MetricsOptions())
}

func TestLoad_Empty(t *testing.T) {
	c, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(strings.NewReader("store:\n  capacty: 3\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Store.CommandHistory = 300
	c.Client.RenderDelay = 1
	c.Metrics.Kind = metrics.KindStatsd
	c.Network.Transport = "carrier-pigeon"

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"command_history", "render_delay", "statsd_address", "carrier-pigeon"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  send_rate: 2\n"), 0o600))
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Server.SendRate)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
