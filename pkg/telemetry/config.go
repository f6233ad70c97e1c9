package telemetry

import "fmt"

// Config bundles the telemetry configuration of one engine process.
type Config struct {
	// ServiceName identifies the process in traces and metrics.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// Logging configures structured logging.
	Logging LoggingConfig

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string

	// Format is console or json.
	Format string
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool

	// Namespace prefixes every metric name.
	Namespace string

	// ListenAddress is the host:port the scrape endpoint binds to. Empty
	// leaves the server off.
	ListenAddress string

	// Path is the scrape endpoint path. Defaults to /metrics.
	Path string
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool

	// Exporter is stdout or none.
	Exporter string

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64
}

// DefaultConfig returns a conservative default: info-level console logs,
// metrics enabled under the strata namespace, tracing off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "strata",
		ServiceVersion: "dev",
		Logging:        LoggingConfig{Level: "info", Format: "console"},
		Metrics:        MetricsConfig{Enabled: true, Namespace: "strata"},
		Tracing:        TracingConfig{Enabled: false, Exporter: "none", SamplingRate: 1.0},
	}
}

// Validate rejects configurations the constructors could not honor.
func (c Config) Validate() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	switch c.Tracing.Exporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("invalid trace exporter %q", c.Tracing.Exporter)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("sampling rate %v outside [0, 1]", c.Tracing.SamplingRate)
	}
	return nil
}
