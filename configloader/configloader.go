// Package configloader overlays types.Config from an optional YAML file and
// from environment variables (spec §4/SPEC_FULL §K.1), so the embedding host
// can configure the engine without hand-wiring types.Option calls at every
// call site. The functional-options Config itself remains the source of
// truth; this package only produces the Option list that reproduces a file's
// or environment's settings.
package configloader

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/ksd-co/rule-engine-postgres/types"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape for the optional config file. Fields mirror
// types.Config's overlayable subset; zero values mean "leave the built-in
// default alone" except where explicitly noted. BusConnectTimeout,
// BusReconnectDelay and BusMaxReconnect are decoded but not applied: the
// loaded Config keeps its built-in values for those three settings.
type FileConfig struct {
	BackEnd           string        `yaml:"backEnd"`
	MaxIterations     int           `yaml:"maxIterations"`
	Timeout           time.Duration `yaml:"timeout"`
	Strict            bool          `yaml:"strict"`
	CacheCapacity     int           `yaml:"cacheCapacity"`
	BusPoolSize       int           `yaml:"busPoolSize"`
	BusConnectTimeout time.Duration `yaml:"busConnectTimeout"`
	BusReconnectDelay time.Duration `yaml:"busReconnectDelay"`
	BusMaxReconnect   int           `yaml:"busMaxReconnect"`
	DedupWindow       time.Duration `yaml:"dedupWindow"`
	RetentionInterval time.Duration `yaml:"retentionInterval"`
}

// EnvConfig is the environment-variable overlay, applied after the file so
// an operator can override any file-provided setting without editing it.
// As with FileConfig, the three bus connection fields (connect timeout,
// reconnect delay, max reconnect) are decoded but not applied.
type EnvConfig struct {
	BackEnd           string        `env:"RULE_ENGINE_BACKEND"`
	MaxIterations     int           `env:"RULE_ENGINE_MAX_ITERATIONS"`
	Timeout           time.Duration `env:"RULE_ENGINE_TIMEOUT"`
	Strict            bool          `env:"RULE_ENGINE_STRICT"`
	CacheCapacity     int           `env:"RULE_ENGINE_CACHE_CAPACITY"`
	BusPoolSize       int           `env:"RULE_ENGINE_BUS_POOL_SIZE"`
	BusConnectTimeout time.Duration `env:"RULE_ENGINE_BUS_CONNECT_TIMEOUT"`
	BusReconnectDelay time.Duration `env:"RULE_ENGINE_BUS_RECONNECT_DELAY"`
	BusMaxReconnect   int           `env:"RULE_ENGINE_BUS_MAX_RECONNECT"`
	DedupWindow       time.Duration `env:"RULE_ENGINE_DEDUP_WINDOW"`
	RetentionInterval time.Duration `env:"RULE_ENGINE_RETENTION_INTERVAL"`
}

// Load builds a types.Config from the engine's built-in defaults, optionally
// overlaid by the YAML file at path (skipped entirely if path is empty or
// the file does not exist — the file is opt-in, not required), and then by
// any RULE_ENGINE_* environment variables present.
func Load(path string) (types.Config, error) {
	var opts []types.Option

	if path != "" {
		fileOpts, err := loadFile(path)
		if err != nil {
			return types.Config{}, err
		}
		opts = append(opts, fileOpts...)
	}

	envOpts, err := loadEnv()
	if err != nil {
		return types.Config{}, err
	}
	opts = append(opts, envOpts...)

	return types.NewConfig(opts...), nil
}

func loadFile(path string) ([]types.Option, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configloader: reading %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("configloader: parsing %s: %w", path, err)
	}
	return fileOptions(fc), nil
}

func loadEnv() ([]types.Option, error) {
	var ec EnvConfig
	if err := envdecode.Decode(&ec); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("configloader: decoding environment: %w", err)
	}
	return envOptions(ec), nil
}

func fileOptions(fc FileConfig) []types.Option {
	var opts []types.Option
	if fc.BackEnd != "" {
		opts = append(opts, types.WithBackEnd(types.BackEnd(fc.BackEnd)))
	}
	if fc.MaxIterations != 0 {
		opts = append(opts, types.WithMaxIterations(fc.MaxIterations))
	}
	if fc.Timeout != 0 {
		opts = append(opts, types.WithTimeout(fc.Timeout))
	}
	if fc.Strict {
		opts = append(opts, types.WithStrict(true))
	}
	if fc.CacheCapacity != 0 {
		opts = append(opts, types.WithCacheCapacity(fc.CacheCapacity))
	}
	if fc.BusPoolSize != 0 {
		opts = append(opts, types.WithBusPoolSize(fc.BusPoolSize))
	}
	if fc.DedupWindow != 0 {
		opts = append(opts, types.WithDedupWindow(fc.DedupWindow))
	}
	if fc.RetentionInterval != 0 {
		opts = append(opts, types.WithRetentionInterval(fc.RetentionInterval))
	}
	return opts
}

func envOptions(ec EnvConfig) []types.Option {
	var opts []types.Option
	if ec.BackEnd != "" {
		opts = append(opts, types.WithBackEnd(types.BackEnd(ec.BackEnd)))
	}
	if ec.MaxIterations != 0 {
		opts = append(opts, types.WithMaxIterations(ec.MaxIterations))
	}
	if ec.Timeout != 0 {
		opts = append(opts, types.WithTimeout(ec.Timeout))
	}
	if ec.Strict {
		opts = append(opts, types.WithStrict(true))
	}
	if ec.CacheCapacity != 0 {
		opts = append(opts, types.WithCacheCapacity(ec.CacheCapacity))
	}
	if ec.BusPoolSize != 0 {
		opts = append(opts, types.WithBusPoolSize(ec.BusPoolSize))
	}
	if ec.DedupWindow != 0 {
		opts = append(opts, types.WithDedupWindow(ec.DedupWindow))
	}
	if ec.RetentionInterval != 0 {
		opts = append(opts, types.WithRetentionInterval(ec.RetentionInterval))
	}
	return opts
}
