package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if STREAKD_CONFIG is set
//  3. env (prefix STREAKD_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("STREAKD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: STREAKD_LOG_LEVEL, STREAKD_STORE_DSN, ...
	// Map env keys like STREAKD_WRITE_QUEUE_SIZE -> write_queue_size.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("STREAKD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "streakd_")
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

	// Basic validation
	if cfg.WriteQueueSize <= 0 {
		return nil, fmt.Errorf("%w: write_queue_size must be positive", ErrInvalidConfig)
	}
	if cfg.PublishCoolDownSeconds < 0 {
		return nil, fmt.Errorf("%w: publish_cool_down_seconds must not be negative", ErrInvalidConfig)
	}
	return &cfg, nil
}
