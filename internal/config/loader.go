package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MILEPOST_CONFIG is set
//  3. env (prefix MILEPOST_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("MILEPOST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MILEPOST_ADDR, MILEPOST_AUTH_SECRET, ...
	// Map env keys like MILEPOST_TX_ATTEMPTS -> tx_attempts (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MILEPOST_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "milepost_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !cfg.AuthDisabled && cfg.AuthSecret == "":
		return nil, fmt.Errorf("%w: auth_secret is required unless auth_disabled is set", ErrInvalidConfig)
	case cfg.TxAttempts <= 0:
		return nil, fmt.Errorf("%w: tx_attempts must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
