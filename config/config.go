package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Queue     QueueConfig      `mapstructure:"queue"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Alerts    AlertConfig      `mapstructure:"alerts"`
	CORS      CORSConfig       `mapstructure:"cors"`
	Providers []ProviderConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type QueueConfig struct {
	MaxWorkers         int `mapstructure:"max_workers"`
	BatchSize          int `mapstructure:"batch_size"`
	PollSeconds        int `mapstructure:"poll_seconds"`
	ProviderTimeoutSec int `mapstructure:"provider_timeout_seconds"`
	StaleAfterMinutes  int `mapstructure:"stale_after_minutes"`
	RetryBackoffSec    int `mapstructure:"retry_backoff_seconds"`
	ScanIntervalMin    int `mapstructure:"scan_interval_minutes"`
}

type CacheConfig struct {
	TTLHours int `mapstructure:"ttl_hours"`
}

type AlertConfig struct {
	DefaultCooldownMinutes int `mapstructure:"default_cooldown_minutes"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// PollInterval is the idle wait between claim attempts.
func (q QueueConfig) PollInterval() time.Duration {
	if q.PollSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(q.PollSeconds) * time.Second
}

// ProviderTimeout bounds every vision invocation.
func (q QueueConfig) ProviderTimeout() time.Duration {
	if q.ProviderTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(q.ProviderTimeoutSec) * time.Second
}

// ScanInterval is the cadence of the image ingestion scan.
func (q QueueConfig) ScanInterval() time.Duration {
	if q.ScanIntervalMin <= 0 {
		return time.Minute
	}
	return time.Duration(q.ScanIntervalMin) * time.Minute
}

// StaleAfter is the processing duration past which a task is recoverable.
func (q QueueConfig) StaleAfter() time.Duration {
	if q.StaleAfterMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(q.StaleAfterMinutes) * time.Minute
}

// RetryBackoff delays requeued transient failures.
func (q QueueConfig) RetryBackoff() time.Duration {
	if q.RetryBackoffSec < 0 {
		return 0
	}
	return time.Duration(q.RetryBackoffSec) * time.Second
}

// TTL is the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// DefaultCooldown applies when a config leaves its cooldown unset.
func (a AlertConfig) DefaultCooldown() time.Duration {
	if a.DefaultCooldownMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.DefaultCooldownMinutes) * time.Minute
}

func Load(configPath string) (*Config, error) {
	// Prefer config.local.yaml (real keys, not committed) when present.
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
