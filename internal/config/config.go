// Package config loads matchcore's configuration via viper (yaml file +
// environment overrides), grounded on the teacher's internal/config
// package: same SetConfigName/AddConfigPath/AutomaticEnv/SetEnvPrefix
// sequence, same once-initialized package-level accessor, narrowed down
// from tradsys's server/database/websocket/risk/auth sections to the
// sections this engine actually has.
package config

import (
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// schemaConstraint is the range of config schema versions this build
// understands; bumped whenever a breaking field is added or removed.
const schemaConstraint = ">= 1.0.0, < 2.0.0"

// Config is matchcore's full configuration surface.
type Config struct {
	SchemaVersion string `mapstructure:"schema_version"`

	Engine struct {
		SideBookCapacity int `mapstructure:"side_book_capacity"`
	} `mapstructure:"engine"`

	Input struct {
		// RateLimitPerSecond bounds how fast the driver admits lines off
		// the wire (§5 "input admission"), independent of how fast the
		// engine itself can process them.
		RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
		RateLimitBurst     int `mapstructure:"rate_limit_burst"`
	} `mapstructure:"input"`

	Report struct {
		Compress       bool `mapstructure:"compress"`
		FlushPerSecond int  `mapstructure:"flush_per_second"`
	} `mapstructure:"report"`

	Monitoring struct {
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"monitoring"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration from configPath (a directory containing a
// config.yaml) plus MATCHCORE_-prefixed environment overrides, applying
// defaults for anything unset. Safe to call repeatedly; the underlying
// viper read happens only once per process.
func Load(configPath string) (*Config, error) {
	var err error

	once.Do(func() {
		cfg = &Config{}
		setDefaults(cfg)

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/matchcore")
		}

		v.AutomaticEnv()
		v.SetEnvPrefix("MATCHCORE")

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("config: read config file: %w", readErr)
				return
			}
		}

		if unmarshalErr := v.Unmarshal(cfg); unmarshalErr != nil {
			err = fmt.Errorf("config: unmarshal: %w", unmarshalErr)
			return
		}

		if validateErr := validateSchema(cfg.SchemaVersion); validateErr != nil {
			err = validateErr
			return
		}
	})

	return cfg, err
}

func validateSchema(version string) error {
	constraint, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return fmt.Errorf("config: invalid internal schema constraint: %w", err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("config: invalid schema_version %q: %w", version, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("config: schema_version %s does not satisfy %s", version, schemaConstraint)
	}
	return nil
}

func setDefaults(c *Config) {
	c.SchemaVersion = "1.0.0"
	c.Engine.SideBookCapacity = 0 // 0 means book.DefaultCapacity
	c.Input.RateLimitPerSecond = 100000
	c.Input.RateLimitBurst = 10000
	c.Report.Compress = false
	c.Report.FlushPerSecond = 50
	c.Monitoring.LogLevel = "info"
}

// NewLogger builds a zap.Logger matching cfg.Monitoring.LogLevel,
// mirroring the teacher's InitLogger switch.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch cfg.Monitoring.LogLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("config: init logger: %w", err)
	}
	return logger, nil
}
