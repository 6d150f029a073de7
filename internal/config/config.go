package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the publish bridge.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Clients ClientsConfig `yaml:"clients"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups the two downstream integrations.
type ClientsConfig struct {
	Subscriptions SubscriptionsClientConfig `yaml:"subscriptions"`
	Eval          EvalClientConfig          `yaml:"eval"`
}

// SubscriptionsClientConfig configures the subscription configuration endpoint.
type SubscriptionsClientConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// EvalClientConfig configures the downstream evaluation endpoint.
type EvalClientConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// BridgeConfig controls evaluation bucketing and the refresh schedule.
type BridgeConfig struct {
	Step                time.Duration `yaml:"step"`
	RefreshInterval     time.Duration `yaml:"refreshInterval"`
	RefreshInitialDelay time.Duration `yaml:"refreshInitialDelay"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls the Redis-backed subscription snapshot.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	SnapshotTTL  time.Duration `yaml:"snapshotTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PUBLISH_BRIDGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Bridge.Step <= 0 {
		return nil, fmt.Errorf("bridge.step must be positive, got %s", cfg.Bridge.Step)
	}
	if cfg.Bridge.RefreshInterval <= 0 {
		return nil, fmt.Errorf("bridge.refreshInterval must be positive, got %s", cfg.Bridge.RefreshInterval)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":7101",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			Subscriptions: SubscriptionsClientConfig{Timeout: 5 * time.Second},
			Eval:          EvalClientConfig{Timeout: 5 * time.Second},
		},
		Bridge: BridgeConfig{
			Step:                time.Minute,
			RefreshInterval:     10 * time.Second,
			RefreshInitialDelay: 0,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			SnapshotTTL:  24 * time.Hour,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PUBLISH_BRIDGE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_SUBSCRIPTIONS_URL"); v != "" {
		cfg.Clients.Subscriptions.URL = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_EVAL_URL"); v != "" {
		cfg.Clients.Eval.URL = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_STEP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Bridge.Step = d
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Bridge.RefreshInterval = d
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_REFRESH_INITIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Bridge.RefreshInitialDelay = d
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retries
		}
	}
	if v := os.Getenv("PUBLISH_BRIDGE_CACHE_SNAPSHOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SnapshotTTL = d
		}
	}
}
