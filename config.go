// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix read by [LoadConfig]
// when called with an empty prefix.
const DefaultEnvPrefix = "AMBIENT_"

// Config is the environment-tunable part of a [Store]'s configuration.
type Config struct {
	// RestorePolicy is one of "ignore", "log", or "panic".
	RestorePolicy string `koanf:"restore_policy"`
	// Shards is the number of lock shards.
	Shards int `koanf:"shards"`
}

func configDefaults() map[string]any {
	return map[string]any{
		"restore_policy": RestoreIgnore.String(),
		"shards":         DefaultShards,
	}
}

// LoadConfig reads store settings from environment variables named by
// prefix followed by the upper-case field key, for instance
// AMBIENT_RESTORE_POLICY and AMBIENT_SHARDS. Unset variables keep their
// defaults. The result is validated.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(configDefaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, prefix))
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg can be turned into store options.
func (cfg Config) Validate() error {
	if _, err := ParseRestorePolicy(cfg.RestorePolicy); err != nil {
		return err
	}
	if cfg.Shards < 1 {
		return fmt.Errorf("shards must be at least 1, got %d", cfg.Shards)
	}
	return nil
}

// Options converts cfg into options for [NewStore]. Invalid settings are
// reported as an error rather than silently replaced.
func (cfg Config) Options() ([]Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := ParseRestorePolicy(cfg.RestorePolicy)
	return []Option{
		WithRestorePolicy(policy),
		WithShards(cfg.Shards),
	}, nil
}
