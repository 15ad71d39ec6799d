package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Booking  BookingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type BookingConfig struct {
	// DefaultGranularity is used when a schedule has no slot granularity
	// configured.
	DefaultGranularity int           `mapstructure:"default_granularity"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheCleanup       time.Duration `mapstructure:"cache_cleanup"`
	CacheMaxEntries    int           `mapstructure:"cache_max_entries"`
	ReminderInterval   time.Duration `mapstructure:"reminder_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Overrides are environment knobs that take precedence over the config
// file, for container deployments where a mounted file is inconvenient.
type Overrides struct {
	Port        int    `envconfig:"PORT"`
	DatabaseURL string `envconfig:"DATABASE_HOST"`
	RedisURL    string `envconfig:"REDIS_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var overrides Overrides
	if err := envconfig.Process("scheduling", &overrides); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	if overrides.Port != 0 {
		config.Server.Port = overrides.Port
	}
	if overrides.DatabaseURL != "" {
		config.Database.Host = overrides.DatabaseURL
	}
	if overrides.RedisURL != "" {
		config.Redis.URL = overrides.RedisURL
	}
	if overrides.LogLevel != "" {
		config.Log.Level = overrides.LogLevel
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Booking.DefaultGranularity <= 0 {
		config.Booking.DefaultGranularity = 30
	}
	if config.Booking.CacheTTL <= 0 {
		config.Booking.CacheTTL = 5 * time.Minute
	}
	if config.Booking.CacheCleanup <= 0 {
		config.Booking.CacheCleanup = 10 * time.Minute
	}
	if config.Booking.CacheMaxEntries <= 0 {
		config.Booking.CacheMaxEntries = 10000
	}
	if config.Booking.ReminderInterval <= 0 {
		config.Booking.ReminderInterval = time.Hour
	}
	if config.Server.RateLimit <= 0 {
		config.Server.RateLimit = 50
	}
	if config.Server.RateBurst <= 0 {
		config.Server.RateBurst = 100
	}
	if config.Database.MaxOpenConns <= 0 {
		config.Database.MaxOpenConns = 25
	}
	if config.Database.MaxIdleConns <= 0 {
		config.Database.MaxIdleConns = 5
	}
}
