package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache" validate:"required"`
	Queue     QueueConfig     `mapstructure:"queue" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains the settings used to validate admin API tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// RedisConfig contains the connection settings for the cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0,lte=15"`
}

// CacheConfig controls key namespacing and the overdue list lifetime.
type CacheConfig struct {
	Namespace         string `mapstructure:"namespace" validate:"required"`
	OverdueTTLSeconds int    `mapstructure:"overdue_ttl_seconds" validate:"required,gt=0"`
}

// QueueConfig controls the durable job queue and its worker loop.
type QueueConfig struct {
	Name                        string `mapstructure:"name" validate:"required"`
	Backend                     string `mapstructure:"backend" validate:"required,oneof=postgres memory"`
	WorkerCount                 int    `mapstructure:"worker_count" validate:"required,gt=0"`
	PollIntervalMS              int    `mapstructure:"poll_interval_ms" validate:"required,gt=0"`
	LeaseSeconds                int    `mapstructure:"lease_seconds" validate:"required,gt=0"`
	StalledCheckIntervalSeconds int    `mapstructure:"stalled_check_interval_seconds" validate:"required,gt=0"`
}

// SchedulerConfig controls the cron trigger for the overdue scanner.
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	OverdueSpec string `mapstructure:"overdue_spec" validate:"required_if=Enabled true"`
}

// OverdueTTL returns the overdue list cache lifetime.
func (c CacheConfig) OverdueTTL() time.Duration {
	return time.Duration(c.OverdueTTLSeconds) * time.Second
}

// PollInterval returns how long an idle worker waits before polling again.
func (c QueueConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Lease returns how long a claimed job stays reserved for its worker.
func (c QueueConfig) Lease() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

// StalledCheckInterval returns how often expired leases are recovered.
func (c QueueConfig) StalledCheckInterval() time.Duration {
	return time.Duration(c.StalledCheckIntervalSeconds) * time.Second
}
