// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the serve surface
type Config struct {
	// Server configuration
	Addr string `mapstructure:"addr"`

	// Model configuration
	Model         string  `mapstructure:"model"`      // gp, seq, ensemble, onnx
	ModelPath     string  `mapstructure:"model_path"` // ONNX graph path
	TestBatchSize int     `mapstructure:"batch_size"` // inference micro-batch size
	Dropout       float64 `mapstructure:"dropout"`    // seq inference dropout rate
	EnsembleSize  int     `mapstructure:"ensemble_size"`

	// Fingerprint configuration
	FingerprintBits   int `mapstructure:"fingerprint_bits"`
	FingerprintRadius int `mapstructure:"fingerprint_radius"`

	// Cache configuration
	Redis    string        `mapstructure:"redis"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// OpenTelemetry configuration
	OTELEnabled  bool   `mapstructure:"otel_enabled"`
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Logging configuration
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("model", "seq")
	v.SetDefault("model_path", "")
	v.SetDefault("batch_size", 0) // 0 = backend default
	v.SetDefault("dropout", 0.0)
	v.SetDefault("ensemble_size", 5)
	v.SetDefault("fingerprint_bits", 2048)
	v.SetDefault("fingerprint_radius", 3)
	v.SetDefault("redis", "")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the OTEL standard env var as well
	if endpoint := viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		v.Set("otel_endpoint", endpoint)
		v.Set("otel_enabled", true)
	}
	return v
}

// Load loads configuration from environment variables and an optional config
// file discovered in the usual locations.
// Priority (highest to lowest): env vars > config file > defaults
func Load() (*Config, error) {
	v := newViper()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/prospect/")
	v.AddConfigPath("$HOME/.prospect")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; ignore
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadWithConfigFile loads configuration from a specific config file
func LoadWithConfigFile(configPath string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	switch c.Model {
	case "gp", "seq", "ensemble", "onnx":
	default:
		return fmt.Errorf("unknown model %q (want gp, seq, ensemble, or onnx)", c.Model)
	}
	if c.Model == "onnx" && c.ModelPath == "" {
		return fmt.Errorf("model_path is required for the onnx model")
	}
	if c.TestBatchSize < 0 {
		return fmt.Errorf("invalid batch_size: %d", c.TestBatchSize)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}
	if c.EnsembleSize < 2 {
		return fmt.Errorf("ensemble_size must be at least 2, got %d", c.EnsembleSize)
	}
	if c.FingerprintBits <= 0 || c.FingerprintRadius <= 0 {
		return fmt.Errorf("fingerprint_bits and fingerprint_radius must be positive")
	}
	return nil
}
