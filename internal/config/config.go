package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ScopeShared keeps one keyspace for the whole process
	ScopeShared = "shared"
	// ScopeConnection gives every connection a private keyspace dropped on disconnect
	ScopeConnection = "connection"
)

var ErrInvalidScope = errors.New("storage.scope must be shared or connection")

// Config represents the root configuration structure for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	GC      GCConfig      `mapstructure:"gc"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	RateLimit int    `mapstructure:"rate_limit"` // commands per second per connection, 0 disables
}

// StorageConfig defines the internal structure of the storage engine
type StorageConfig struct {
	Shards      uint   `mapstructure:"shards"`
	Scope       string `mapstructure:"scope"`         // shared, connection
	SetKeepsTTL bool   `mapstructure:"set_keeps_ttl"` // if true, SET leaves an existing TTL in place
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOONKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Scope {
	case ScopeShared, ScopeConnection:
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidScope, c.Storage.Scope)
	}

	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}

	return nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "7878")
	v.SetDefault("server.rate_limit", 0)

	// Storage
	v.SetDefault("storage.shards", 32)
	v.SetDefault("storage.scope", ScopeShared)
	v.SetDefault("storage.set_keeps_ttl", false)

	// GC
	gc := DefaultGCConfig()
	v.SetDefault("gc.enabled", gc.Enabled)
	v.SetDefault("gc.interval", gc.Interval)
	v.SetDefault("gc.samples_per_check", gc.SamplesPerCheck)
	v.SetDefault("gc.match_threshold", gc.MatchThreshold)

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9121")
}
