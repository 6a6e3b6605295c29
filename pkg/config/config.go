// Package config loads the docconvd configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all docconvd configuration.
type Config struct {
	Listen string      `yaml:"listen"`
	Redis  RedisConfig `yaml:"redis"`
	Cache  CacheConfig `yaml:"cache"`
	Pool   PoolConfig  `yaml:"pool"`
	Retry  RetryConfig `yaml:"retry"`
	Warm   WarmConfig  `yaml:"warm"`
	Log    LogConfig   `yaml:"log"`
}

// RedisConfig identifies the cache backend. An empty Addr selects the
// in-process memory backend, for development and tests.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	BaseTTL        time.Duration `yaml:"base_ttl"`
	StatsTTL       time.Duration `yaml:"stats_ttl"`
	FrontCacheSize int           `yaml:"front_cache_size"`
	FrontCacheTTL  time.Duration `yaml:"front_cache_ttl"`
}

// PoolConfig controls the conversion worker pool. Zero values take the
// pool's own defaults (workers from CPU count).
type PoolConfig struct {
	Workers     int           `yaml:"workers"`
	QueueDepth  int           `yaml:"queue_depth"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// RetryConfig controls retries for transient conversion failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// WarmConfig controls cache warming.
type WarmConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	BatchPause time.Duration `yaml:"batch_pause"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			BaseTTL:        time.Hour,
			StatsTTL:       30 * 24 * time.Hour,
			FrontCacheSize: 256,
			FrontCacheTTL:  5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
		},
		Warm: WarmConfig{
			BatchSize:  10,
			BatchPause: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
