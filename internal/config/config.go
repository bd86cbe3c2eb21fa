// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error kinds.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AuthSecret is the HS256 secret for bearer-token verification.
	AuthSecret string `koanf:"auth_secret"`

	// AuthDisabled switches to the passthrough verifier: the bearer
	// credential is taken as the caller id. Development only.
	AuthDisabled bool `koanf:"auth_disabled"`

	// TxAttempts bounds the store's optimistic retry loop.
	TxAttempts int `koanf:"tx_attempts"`

	// SeedFile optionally points at a YAML fixture of stations,
	// profiles, and blank progress records loaded at startup.
	SeedFile string `koanf:"seed_file"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:   "info",
		Addr:       ":9080",
		TxAttempts: 5,
	}
}
