package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SELLERPULSE_COLLECT_WORKERS.
	EnvPrefix = "SELLERPULSE_"
	// PathEnvVar overrides the config file location.
	PathEnvVar = "SELLERPULSE_CONFIG"
)

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config is the full engine configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Collect  CollectConfig  `koanf:"collect"`
	Optimize OptimizeConfig `koanf:"optimize"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Report   ReportConfig   `koanf:"report"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// CollectConfig bounds the per-listing fan-out and every connector call.
type CollectConfig struct {
	Workers         int           `koanf:"workers" validate:"gte=1,lte=64"`
	RatePerSecond   float64       `koanf:"rate_per_second" validate:"gte=0"`
	Burst           int           `koanf:"burst" validate:"gte=0"`
	CallTimeout     time.Duration `koanf:"call_timeout" validate:"gt=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// OptimizeConfig holds the policy coefficients of the optimization analyzer.
type OptimizeConfig struct {
	CTRFactor         float64 `koanf:"ctr_factor" validate:"gt=0"`
	ConversionFactor  float64 `koanf:"conversion_factor" validate:"gt=0"`
	ViewsFactor       float64 `koanf:"views_factor" validate:"gt=0"`
	PricingHighFactor float64 `koanf:"pricing_high_factor" validate:"gt=0"`
	PricingLowFactor  float64 `koanf:"pricing_low_factor" validate:"gt=0"`
}

type MonitorConfig struct {
	DefaultInterval time.Duration `koanf:"default_interval" validate:"gt=0"`
	DefaultPlatform string        `koanf:"default_platform" validate:"required"`
	PumpSpec        string        `koanf:"pump_spec" validate:"required"`
}

type ReportConfig struct {
	MaxRecommendations int `koanf:"max_recommendations" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Collect: CollectConfig{
			Workers:         4,
			RatePerSecond:   5,
			Burst:           4,
			CallTimeout:     30 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		Optimize: OptimizeConfig{
			CTRFactor:         0.9,
			ConversionFactor:  0.8,
			ViewsFactor:       0.8,
			PricingHighFactor: 1.1,
			PricingLowFactor:  0.9,
		},
		Monitor: MonitorConfig{
			DefaultInterval: time.Hour,
			DefaultPlatform: "ebay",
			PumpSpec:        "@every 1m",
		},
		Report: ReportConfig{
			MaxRecommendations: 5,
		},
	}
}

// Load layers defaults, an optional YAML file and SELLERPULSE_* environment
// variables, in that order. A .env file in the working directory is read into
// the environment first. An explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps SELLERPULSE_COLLECT_CALL_TIMEOUT to collect.call_timeout.
// Variables without a section are dropped.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + rest
}
