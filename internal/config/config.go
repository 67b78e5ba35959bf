package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	instance *Config
	once     sync.Once
)

// Config represents the complete proxy server configuration
// Aggregates all component configurations for centralized management
// Built from DefaultConfig, optionally overridden by a YAML file;
// environment variables are not consulted
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Admission     AdmissionConfig     `yaml:"admission" json:"admission"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Tracing       TracingConfig       `yaml:"tracing" json:"tracing"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
}

// ServerConfig defines the proxy's listening and timeout parameters.
// Port is the only field spec.md's CLI contract requires (the
// positional argument in argv); DialTimeout is an implementation-added
// bound that spec.md §5 explicitly permits without changing the
// forwarding semantics it mandates. It defaults to zero (no timeout),
// matching spec.md's own default exactly; operators opt into a bound
// through config.
type ServerConfig struct {
	Port        int           `yaml:"port" json:"port" default:"9090"`
	DialTimeout time.Duration `yaml:"dialTimeout" json:"dialTimeout" default:"0s"`
}

// AdmissionConfig defines per-client connection admission limits,
// enforced once per accepted TCP connection rather than per HTTP
// request. See internal/middleware.RateLimiter.
type AdmissionConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled" default:"false"`
	Capacity   int  `yaml:"capacity" json:"capacity" default:"100"`
	RefillRate int  `yaml:"refillRate" json:"refillRate" default:"20"`
}

// ObservabilityConfig controls the small admin HTTP surface exposing
// health and metrics, separate from the proxy's raw-TCP data plane, and
// the minimum level the structured logger emits.
type ObservabilityConfig struct {
	AdminAddr string `yaml:"adminAddr" json:"adminAddr" default:":9091"`
	LogLevel  string `yaml:"logLevel" json:"logLevel" default:"info"`
}

// MetricsConfig controls whether Prometheus metrics are collected.
// Path is not read anywhere: the admin server always exposes metrics
// at /metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" default:"true"`
	Path    string `yaml:"path" json:"path" default:"/metrics"`
}

// TracingConfig defines OpenTelemetry tracing configuration
// Controls distributed tracing and observability
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled" json:"enabled" default:"false"`
	ServiceName    string  `yaml:"serviceName" json:"serviceName" default:"cache-proxy"`
	ServiceVersion string  `yaml:"serviceVersion" json:"serviceVersion" default:"1.0.0"`
	Environment    string  `yaml:"environment" json:"environment" default:"development"`
	JaegerEndpoint string  `yaml:"jaegerEndpoint" json:"jaegerEndpoint"`
	OTLPEndpoint   string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRatio  float64 `yaml:"samplingRatio" json:"samplingRatio" default:"0.1"`
}

// DefaultConfig returns configuration with sensible defaults
// Provides baseline configuration for development and testing
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        9090,
			DialTimeout: 0,
		},
		Admission: AdmissionConfig{
			Enabled:    false,
			Capacity:   100,
			RefillRate: 20,
		},
		Observability: ObservabilityConfig{
			AdminAddr: ":9091",
			LogLevel:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceName:    "cache-proxy",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			SamplingRatio:  0.1,
		},
	}
}

// GetInstance returns the singleton config instance
// Uses sync.Once to ensure thread-safe lazy initialisation
// Time Complexity: O(1) - returns cached instance after first call
// Space Complexity: O(1) - stores single configuration instance
func GetInstance() *Config {
	once.Do(func() {
		instance = DefaultConfig()
	})
	return instance
}

// LoadConfig loads configuration from a YAML file and installs it as
// the singleton instance. Only the first call across the process
// establishes the singleton; later calls are no-ops with respect to
// the singleton but still validate the named file can be parsed.
// Time Complexity: O(n) where n is config file size
// Space Complexity: O(n) for parsing configuration
func LoadConfig(path string) error {
	cfg, err := loadFromFile(path)
	if err != nil {
		return err
	}

	once.Do(func() {
		instance = cfg
	})
	return nil
}

// loadFromFile reads configuration from a YAML file, starting from
// DefaultConfig so that a partial file only overrides the fields it
// names.
// Time Complexity: O(n) where n is file size
// Space Complexity: O(n) for file content
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
