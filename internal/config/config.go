package config

import (
	"time"

	"github.com/vovakirdan/drawrelay-server/internal/core"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RoomGracePeriod time.Duration `mapstructure:"room_grace_period" yaml:"room_grace_period"`
	ClientBuffer    int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	EventsPerSecond float64       `mapstructure:"events_per_second" yaml:"events_per_second"`
	EventBurst      int           `mapstructure:"event_burst" yaml:"event_burst"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	PersistQueueSize int           `mapstructure:"persist_queue_size" yaml:"persist_queue_size"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   1 << 20,
		RoomGracePeriod:   core.DefaultGracePeriod,
		ClientBuffer:      256,
		EventsPerSecond:   120,
		EventBurst:        240,
		AllowedOrigins:    []string{"*"},
		PersistQueueSize:  1024,
		PersistTimeout:    5 * time.Second,
		Store: StoreConfig{
			Driver:      StoreSQLite,
			SQLitePath:  "data/drawrelay.db",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "drawrelay:",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
