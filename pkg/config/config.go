package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkpm/linkpm-go/pkg/endpoint"
	"github.com/linkpm/linkpm-go/pkg/host"
	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/irq"
	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/snapshot"
	"github.com/linkpm/linkpm-go/pkg/wakeguard"
)

// Config is the deployment configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Trace    TraceConfig    `yaml:"trace"`
	Host     HostConfig     `yaml:"host"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Lines    LinesConfig    `yaml:"lines"`
}

// TraceConfig selects lifecycle trace sinks.
type TraceConfig struct {
	// File is the path of a trace file. Empty disables file tracing.
	File string `yaml:"file"`

	// Console mirrors trace events to the operational log.
	Console bool `yaml:"console"`
}

// HostConfig configures the host controller.
type HostConfig struct {
	Sequences              host.Sequences  `yaml:"sequences"`
	SettleDelay            time.Duration   `yaml:"settle_delay"`
	LinkTimeout            time.Duration   `yaml:"link_timeout"`
	GateTimeout            time.Duration   `yaml:"gate_timeout"`
	ConfigureRetry         retry.Policy    `yaml:"configure_retry"`
	IdentityRetry          retry.Policy    `yaml:"identity_retry"`
	LowPowerRetry          retry.Policy    `yaml:"low_power_retry"`
	ExpectedIdentity       hw.Identity     `yaml:"expected_identity"`
	Snapshot               snapshot.Layout `yaml:"snapshot"`
	VetoSuspendWhenPowered bool            `yaml:"veto_suspend_when_powered"`
}

// EndpointConfig configures the endpoint controller.
type EndpointConfig struct {
	Sequences        endpoint.Sequences `yaml:"sequences"`
	SettleDelay      time.Duration      `yaml:"settle_delay"`
	LinkTimeout      time.Duration      `yaml:"link_timeout"`
	WakeWindow       time.Duration      `yaml:"wake_window"`
	IdentityRetry    retry.Policy       `yaml:"identity_retry"`
	ExpectedIdentity hw.Identity        `yaml:"expected_identity"`
}

// LinesConfig names the interrupt lines.
type LinesConfig struct {
	Wake  LineConfig `yaml:"wake"`
	Perst LineConfig `yaml:"perst"`
}

// LineConfig is one GPIO line.
type LineConfig struct {
	// Chip is the GPIO chip name, e.g. gpiochip0. Empty means simulated.
	Chip      string        `yaml:"chip"`
	Offset    int           `yaml:"offset"`
	ActiveLow bool          `yaml:"active_low"`
	StayAwake time.Duration `yaml:"stay_awake"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Host: HostConfig{
			Sequences:   host.DefaultSequences(),
			SettleDelay: host.DefaultSettleDelay,
			LinkTimeout: host.DefaultLinkTimeout,
			GateTimeout: host.DefaultGateTimeout,
			ConfigureRetry: retry.Policy{
				Attempts: host.DefaultConfigureAttempts,
				Backoff:  retry.BackoffConfig{Initial: 50 * time.Millisecond, Max: 500 * time.Millisecond, Multiplier: 2},
			},
			IdentityRetry: retry.Policy{Attempts: host.DefaultIdentityAttempts, Backoff: retry.Fixed(10 * time.Millisecond)},
			LowPowerRetry: retry.Policy{Attempts: host.DefaultLowPowerAttempts, Backoff: retry.Fixed(10 * time.Millisecond)},
		},
		Endpoint: EndpointConfig{
			Sequences:     endpoint.DefaultSequences(),
			SettleDelay:   endpoint.DefaultSettleDelay,
			LinkTimeout:   endpoint.DefaultLinkTimeout,
			WakeWindow:    wakeguard.DefaultWindow,
			IdentityRetry: retry.Policy{Attempts: endpoint.DefaultIdentityAttempts, Backoff: retry.Fixed(endpoint.DefaultIdentityInterval)},
		},
		Lines: LinesConfig{
			Wake:  LineConfig{ActiveLow: true, StayAwake: irq.DefaultStayAwake},
			Perst: LineConfig{ActiveLow: true, StayAwake: irq.DefaultStayAwake},
		},
	}
}

// Parse parses YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// SlogLevel returns the log level as an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HostControllerConfig converts the host section into a host.Config. The
// caller sets Logger and TraceLogger.
func (c *Config) HostControllerConfig() host.Config {
	h := c.Host
	return host.Config{
		Sequences:              h.Sequences,
		SettleDelay:            h.SettleDelay,
		LinkTimeout:            h.LinkTimeout,
		GateTimeout:            h.GateTimeout,
		ConfigureRetry:         h.ConfigureRetry,
		IdentityRetry:          h.IdentityRetry,
		LowPowerRetry:          h.LowPowerRetry,
		ExpectedIdentity:       h.ExpectedIdentity,
		SnapshotLayout:         h.Snapshot,
		VetoSuspendWhenPowered: h.VetoSuspendWhenPowered,
	}
}

// EndpointControllerConfig converts the endpoint section into an
// endpoint.Config. The caller sets Logger and TraceLogger.
func (c *Config) EndpointControllerConfig() endpoint.Config {
	e := c.Endpoint
	return endpoint.Config{
		Sequences:        e.Sequences,
		SettleDelay:      e.SettleDelay,
		IdentityRetry:    e.IdentityRetry,
		ExpectedIdentity: e.ExpectedIdentity,
		LinkTimeout:      e.LinkTimeout,
		WakeWindow:       e.WakeWindow,
	}
}
