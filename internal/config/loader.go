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

const (
	envPrefix  = "SQXRANK_"
	envConfig  = envPrefix + "CONFIG"
	keyConfig  = "config"
	keyCrit    = "criteria"
	keyLower   = "lower_is_better"
	keyExclude = "excluded_columns"
	keyLabels  = "metrics_labels"
	keyBuckets = "metrics_buckets"
)

// fileOnlyKeys hold lists or maps; they are read from the file only, never
// from env.
var fileOnlyKeys = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup
	keyCrit:    {},
	keyLower:   {},
	keyExclude: {},
	keyLabels:  {},
	keyBuckets: {},
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, or at SQXRANK_CONFIG when path is empty
//  3. env (prefix SQXRANK_), scalar keys only
func Load(ctx context.Context, path string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SQXRANK_TOP_K -> top_k; underscores stay to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if s == keyConfig {
			return ""
		}
		if _, fileOnly := fileOnlyKeys[s]; fileOnly {
			return ""
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Slices would merge element-wise into the defaults; a configured list
	// replaces the default one instead.
	if k.Exists(keyCrit) {
		cfg.Criteria = nil
	}
	if k.Exists(keyLower) {
		cfg.LowerIsBetter = nil
	}
	if k.Exists(keyExclude) {
		cfg.ExcludedColumns = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
