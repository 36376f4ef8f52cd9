package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/snapshot"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Host.ConfigureRetry.Attempts)
	assert.Equal(t, 4*time.Second, cfg.Host.GateTimeout)
	assert.Equal(t, 5*time.Second, cfg.Endpoint.WakeWindow)
	assert.Equal(t, hw.SequenceStartup, cfg.Endpoint.Sequences.Startup)
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
log_level: debug
host:
  link_timeout: 250ms
  veto_suspend_when_powered: true
  expected_identity:
    vendor_id: 0x1234
    device_id: 0x5678
  snapshot:
    - offset: 0x10
    - offset: 0x14
      mask: 0xffff
endpoint:
  wake_window: 2s
  sequences:
    fixup: ""
lines:
  perst:
    chip: gpiochip1
    offset: 7
    active_low: false
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 250*time.Millisecond, cfg.Host.LinkTimeout)
	assert.Equal(t, 4*time.Second, cfg.Host.GateTimeout, "unset fields keep defaults")
	assert.True(t, cfg.Host.VetoSuspendWhenPowered)
	assert.Equal(t, hw.Identity{VendorID: 0x1234, DeviceID: 0x5678}, cfg.Host.ExpectedIdentity)
	assert.Equal(t, snapshot.Layout{{Offset: 0x10}, {Offset: 0x14, Mask: 0xffff}}, cfg.Host.Snapshot)

	assert.Equal(t, 2*time.Second, cfg.Endpoint.WakeWindow)
	assert.Empty(t, cfg.Endpoint.Sequences.Fixup)
	assert.Equal(t, hw.SequenceStartup, cfg.Endpoint.Sequences.Startup)

	assert.Equal(t, "gpiochip1", cfg.Lines.Perst.Chip)
	assert.Equal(t, 7, cfg.Lines.Perst.Offset)
	assert.False(t, cfg.Lines.Perst.ActiveLow)
	assert.True(t, cfg.Lines.Wake.ActiveLow)

	hc := cfg.HostControllerConfig()
	assert.Equal(t, cfg.Host.Snapshot, hc.SnapshotLayout)
	assert.True(t, hc.VetoSuspendWhenPowered)
	ec := cfg.EndpointControllerConfig()
	assert.Equal(t, 2*time.Second, ec.WakeWindow)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("host: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	data := []byte(`
log_level: chatty
host:
  link_timeout: 0s
  configure_retry:
    attempts: 0
  snapshot:
    - offset: 0x11
    - offset: 0x11
endpoint:
  wake_window: 2m
  sequences:
    startup: ""
lines:
  wake:
    chip: gpiochip0
    offset: 3
  perst:
    chip: gpiochip0
    offset: 3
`)
	_, err := Parse(data)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make(map[string]bool)
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, want := range []string{
		"log_level",
		"host.link_timeout",
		"host.configure_retry.attempts",
		"host.snapshot[0].offset",
		"host.snapshot[1].offset",
		"endpoint.wake_window",
		"endpoint.sequences.startup",
		"lines.perst",
	} {
		assert.True(t, fields[want], "missing validation error for %s", want)
	}
	assert.Contains(t, err.Error(), "invalid config: ")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkpm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint:\n  wake_window: 750ms\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Endpoint.WakeWindow)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Host.Snapshot = snapshot.Layout{{Offset: 0x20, Mask: 0xff00}}
	cfg.Endpoint.WakeWindow = 3 * time.Second

	data, err := cfg.Marshal()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
