// Package config provides configuration management for every platoon process.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends for the bootstrap registry.
const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config holds all configuration for a platoon process.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Node      NodeConfig      `mapstructure:"node"`
	Platoon   PlatoonConfig   `mapstructure:"platoon"`
	Cruise    CruiseConfig    `mapstructure:"cruise"`
	Peer      PeerConfig      `mapstructure:"peer"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration. Port 0 picks a free port.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// NodeConfig holds the identity overrides and collaborator addresses of a truck process.
type NodeConfig struct {
	// ProcessID overrides the OS process id used as the election key when non-zero.
	ProcessID       int64  `mapstructure:"process_id"`
	RegistryAddress string `mapstructure:"registry_address"`
	MonitorAddress  string `mapstructure:"monitor_address"`
}

// PlatoonConfig holds coordination node timings.
type PlatoonConfig struct {
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// CruiseConfig holds motion node timings and the physical constants of the convoy.
type CruiseConfig struct {
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	ReportInterval   time.Duration `mapstructure:"report_interval"`
	ProbeInterval    time.Duration `mapstructure:"probe_interval"`
	CloseGapInterval time.Duration `mapstructure:"close_gap_interval"`
	MaxSpeed         int           `mapstructure:"max_speed"`
	InitialSpeed     int           `mapstructure:"initial_speed"`
	GapBoost         int           `mapstructure:"gap_boost"`
	ExpectedDistance float64       `mapstructure:"expected_distance"`
	TruckLength      float64       `mapstructure:"truck_length"`
	CloseThreshold   float64       `mapstructure:"close_threshold"`
}

// PeerConfig holds outbound HTTP client configuration.
type PeerConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkersConfig sizes the pool that delivers fire-and-forget notifications.
type WorkersConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
	QueueSize  int `mapstructure:"queue_size"`
}

// RateLimitConfig holds inbound rate limiter configuration.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// RegistryConfig holds the bootstrap registry persistence settings.
type RegistryConfig struct {
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig represents the Redis registry store configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// PostgresConfig represents the PostgreSQL registry store configuration
type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"`
}

// TelemetryConfig holds the MQTT speed telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BrokerURL   string `mapstructure:"broker_url"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// MetricsConfig holds Prometheus metrics configuration. Port 0 serves metrics on the main listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("platoon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/platoon/")
	}

	v.SetEnvPrefix("PLATOON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, use defaults/env)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 0)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Node defaults
	v.SetDefault("node.process_id", 0)
	v.SetDefault("node.registry_address", "localhost:1111")
	v.SetDefault("node.monitor_address", "localhost:1112")

	v.SetDefault("platoon.probe_interval", "5s")

	// Cruise defaults
	v.SetDefault("cruise.tick_interval", "1s")
	v.SetDefault("cruise.report_interval", "2s")
	v.SetDefault("cruise.probe_interval", "5s")
	v.SetDefault("cruise.close_gap_interval", "1s")
	v.SetDefault("cruise.max_speed", 80)
	v.SetDefault("cruise.initial_speed", 30)
	v.SetDefault("cruise.gap_boost", 10)
	v.SetDefault("cruise.expected_distance", 0.02)
	v.SetDefault("cruise.truck_length", 0.02)
	v.SetDefault("cruise.close_threshold", 0.025)

	v.SetDefault("peer.timeout", "5s")

	v.SetDefault("workers.max_workers", 16)
	v.SetDefault("workers.queue_size", 256)

	// Rate limiter defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 500.0)
	v.SetDefault("rate_limit.burst_size", 100)

	// Registry defaults
	v.SetDefault("registry.backend", StoreBackendMemory)
	v.SetDefault("registry.redis.host", "localhost")
	v.SetDefault("registry.redis.port", 6379)
	v.SetDefault("registry.redis.password", "")
	v.SetDefault("registry.redis.db", 0)
	v.SetDefault("registry.redis.key", "platoon:registry")
	v.SetDefault("registry.postgres.host", "localhost")
	v.SetDefault("registry.postgres.port", 5432)
	v.SetDefault("registry.postgres.database", "platoon")
	v.SetDefault("registry.postgres.user", "platoon")
	v.SetDefault("registry.postgres.password", "")
	v.SetDefault("registry.postgres.max_connections", 4)
	v.SetDefault("registry.postgres.min_connections", 1)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.broker_url", "")
	v.SetDefault("telemetry.client_id", "")
	v.SetDefault("telemetry.topic_prefix", "platoon")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Platoon.ProbeInterval <= 0 {
		return fmt.Errorf("platoon probe interval must be positive")
	}

	if c.Cruise.TickInterval <= 0 || c.Cruise.ReportInterval <= 0 ||
		c.Cruise.ProbeInterval <= 0 || c.Cruise.CloseGapInterval <= 0 {
		return fmt.Errorf("cruise intervals must be positive")
	}

	if c.Cruise.MaxSpeed <= 0 {
		return fmt.Errorf("cruise max speed must be positive")
	}

	if c.Cruise.InitialSpeed < 0 || c.Cruise.InitialSpeed > c.Cruise.MaxSpeed {
		return fmt.Errorf("cruise initial speed %d outside [0, %d]", c.Cruise.InitialSpeed, c.Cruise.MaxSpeed)
	}

	if c.Peer.Timeout <= 0 {
		return fmt.Errorf("peer timeout must be positive")
	}

	if c.Workers.MaxWorkers <= 0 || c.Workers.QueueSize <= 0 {
		return fmt.Errorf("worker pool size and queue size must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limiter requests per second must be positive")
		}
		if c.RateLimit.BurstSize <= 0 {
			return fmt.Errorf("rate limiter burst size must be positive")
		}
	}

	switch c.Registry.Backend {
	case StoreBackendMemory, StoreBackendRedis, StoreBackendPostgres:
	default:
		return fmt.Errorf("unknown registry backend: %q", c.Registry.Backend)
	}

	if c.Telemetry.Enabled && c.Telemetry.BrokerURL == "" {
		return fmt.Errorf("telemetry broker url is required when telemetry is enabled")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
		}
	}

	return nil
}

// ValidateTruck checks the settings a coordination or motion node cannot start without.
func (c *Config) ValidateTruck() error {
	if c.Node.RegistryAddress == "" {
		return fmt.Errorf("node registry address is required")
	}
	if c.Node.MonitorAddress == "" {
		return fmt.Errorf("node monitor address is required")
	}
	return nil
}
