package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bedside alert service
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Records database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Due-time scheduler configuration
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// Call-session configuration
	Calls CallsConfig `mapstructure:"calls"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds records database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig holds due-time scheduler configuration. All durations are
// in seconds except where named otherwise.
type SchedulerConfig struct {
	// TickInterval is how often the tick loop re-evaluates all treatments
	TickInterval int `mapstructure:"tick_interval"`

	// HorizonMinutes is how far ahead occurrences are surfaced at all
	HorizonMinutes int `mapstructure:"horizon_minutes"`

	// WarningMinutes and CriticalMinutes are the urgency tier thresholds
	WarningMinutes  int `mapstructure:"warning_minutes"`
	CriticalMinutes int `mapstructure:"critical_minutes"`

	// FiringWindow is the tolerance window after the due instant inside
	// which an occurrence fires, to absorb tick jitter
	FiringWindow int `mapstructure:"firing_window"`

	// DedupRetentionHours is how long fired occurrences are remembered
	DedupRetentionHours int `mapstructure:"dedup_retention_hours"`

	// SnapshotRefresh is the ward snapshot refresh interval
	SnapshotRefresh int `mapstructure:"snapshot_refresh"`

	// Department restricts the scheduler to one ward when set
	Department string `mapstructure:"department"`
}

// CallsConfig holds call-session configuration
type CallsConfig struct {
	// TTL is the call session time-to-live in seconds
	TTL int `mapstructure:"ttl"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MetricsPath    string  `mapstructure:"metrics_path"`
	HealthPath     string  `mapstructure:"health_path"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/bedside")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvPrefix("bedside")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8084)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "hospital")
	viper.SetDefault("database.user", "bedside")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Scheduler defaults
	viper.SetDefault("scheduler.tick_interval", 1)
	viper.SetDefault("scheduler.horizon_minutes", 30)
	viper.SetDefault("scheduler.warning_minutes", 15)
	viper.SetDefault("scheduler.critical_minutes", 5)
	viper.SetDefault("scheduler.firing_window", 3)
	viper.SetDefault("scheduler.dedup_retention_hours", 24)
	viper.SetDefault("scheduler.snapshot_refresh", 15)

	// Call session defaults
	viper.SetDefault("calls.ttl", 30)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")
	viper.SetDefault("monitoring.tracing_enabled", false)
	viper.SetDefault("monitoring.jaeger_endpoint", "http://localhost:14268/api/traces")
	viper.SetDefault("monitoring.sampling_rate", 0.1)

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	if department := os.Getenv("DEPARTMENT"); department != "" {
		config.Scheduler.Department = department
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("scheduler tick interval must be positive: %d", config.Scheduler.TickInterval)
	}

	if config.Scheduler.CriticalMinutes > config.Scheduler.WarningMinutes {
		return fmt.Errorf("critical threshold (%dm) must not exceed warning threshold (%dm)",
			config.Scheduler.CriticalMinutes, config.Scheduler.WarningMinutes)
	}

	if config.Scheduler.WarningMinutes > config.Scheduler.HorizonMinutes {
		return fmt.Errorf("warning threshold (%dm) must not exceed horizon (%dm)",
			config.Scheduler.WarningMinutes, config.Scheduler.HorizonMinutes)
	}

	if config.Calls.TTL <= 0 {
		return fmt.Errorf("call session TTL must be positive: %d", config.Calls.TTL)
	}

	return nil
}
