package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the bootstrap feeds into the core.
type Config struct {
	// Network
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
	MaxClients int    `toml:"max_clients" yaml:"max_clients"`

	// Limits
	MaxKeyBytes   int `toml:"max_key_bytes" yaml:"max_key_bytes"`
	MaxValueBytes int `toml:"max_value_bytes" yaml:"max_value_bytes"`

	// Evictor
	SampleSize  int     `toml:"sample_size" yaml:"sample_size"`
	Threshold   float64 `toml:"threshold" yaml:"threshold"`
	FrequencyMs int     `toml:"frequency_ms" yaml:"frequency_ms"`

	// Metrics
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`

	// Logging
	LogLevel           string `toml:"log_level" yaml:"log_level"`
	LogFile            string `toml:"log_file" yaml:"log_file"`
	SlowlogThresholdMs int    `toml:"slowlog_threshold_ms" yaml:"slowlog_threshold_ms"`
}

// DefaultConfig returns the configuration used when no config file is
// present, and as the base that a partial file is decoded on top of.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:         "0.0.0.0:6379",
		MaxClients:         10000,
		MaxKeyBytes:        512,
		MaxValueBytes:      16 * 1024 * 1024, // 16 MiB
		SampleSize:         10,
		Threshold:          0.5,
		FrequencyMs:        100,
		MetricsAddr:        "",
		LogLevel:           "INFO",
		LogFile:            "",
		SlowlogThresholdMs: 50,
	}
}

// LoadConfig reads path and decodes it into a Config seeded with
// DefaultConfig. The format is chosen by file extension: .yaml/.yml
// decodes as YAML, anything else decodes as TOML. A missing file is not
// an error — defaults are returned as-is. After the file is loaded (or
// skipped), a PORT environment variable, if set, overrides the port
// component of ListenAddr.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyPortEnv(cfg)
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyPortEnv(cfg)
	return cfg, nil
}

// applyPortEnv overrides the port component of cfg.ListenAddr with the
// PORT environment variable, when set, per the bootstrap's documented
// environment surface.
func applyPortEnv(cfg *Config) {
	port := os.Getenv("PORT")
	if port == "" {
		return
	}

	host := cfg.ListenAddr
	if idx := strings.LastIndex(cfg.ListenAddr, ":"); idx != -1 {
		host = cfg.ListenAddr[:idx]
	}
	cfg.ListenAddr = host + ":" + port
}

func (c *Config) Frequency() time.Duration {
	return time.Duration(c.FrequencyMs) * time.Millisecond
}

func (c *Config) SlowlogThreshold() time.Duration {
	return time.Duration(c.SlowlogThresholdMs) * time.Millisecond
}
