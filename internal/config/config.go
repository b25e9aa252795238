// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the Prometheus listen address, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// StoreDSN is the Postgres connection string for durable state.
	// Empty selects the in-memory store.
	StoreDSN string `koanf:"store_dsn"`

	// Timezone names the location whose calendar days bound streaks and
	// duplicate checks, e.g. "Europe/Berlin". Empty means the process
	// local zone.
	Timezone string `koanf:"timezone"`

	// WriteQueueSize bounds the background save queue.
	WriteQueueSize int `koanf:"write_queue_size"`

	// PublishCoolDownSeconds is the per-game debounce window for
	// outbound result summaries.
	PublishCoolDownSeconds int `koanf:"publish_cool_down_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		MetricsAddr:            ":9090",
		StoreDSN:               "",
		Timezone:               "",
		WriteQueueSize:         1024,
		PublishCoolDownSeconds: 10,
	}
}
