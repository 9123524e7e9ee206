package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds Forgesight configuration.
type Config struct {
	Server      ServerConfig                `yaml:"server"`
	Classifiers map[string]ClassifierConfig `yaml:"classifiers"`
	Analysis    AnalysisConfig              `yaml:"analysis"`
	Auth        AuthConfig                  `yaml:"auth"`
	Audit       AuditConfig                 `yaml:"audit"`
	Telemetry   TelemetryConfig             `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
	// MaxRequestBodyBytes caps uploads; bodies above it get HTTP 413.
	MaxRequestBodyBytes      int64 `yaml:"max_request_body_bytes"`
	MaxInFlightRequests      int   `yaml:"max_in_flight_requests"`
	ReadHeaderTimeoutSeconds int   `yaml:"read_header_timeout_seconds"`
	ReadTimeoutSeconds       int   `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds      int   `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds       int   `yaml:"idle_timeout_seconds"`
}

type ClassifierConfig struct {
	Type      string `yaml:"type"`        // "http" | "onnx_local"
	Endpoint  string `yaml:"endpoint"`    // http type: inference URL
	APIKeyEnv string `yaml:"api_key_env"` // http type: env var holding the key
	// KeyRequired marks vendors that refuse keyless calls; the
	// classifier then degrades to unavailable when the env is empty.
	KeyRequired      bool   `yaml:"key_required"`
	BundleDir        string `yaml:"bundle_dir"` // onnx_local type
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	MaxResponseBytes int64  `yaml:"max_response_bytes"`
}

// ResolveAPIKey reads the key from the configured env var. Keys never
// live in the config file itself.
func (c ClassifierConfig) ResolveAPIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

type AnalysisConfig struct {
	// ClassifierTimeoutSeconds is the per-call budget for each
	// external classifier. One-shot, no retry.
	ClassifierTimeoutSeconds int `yaml:"classifier_timeout_seconds"`
	// FetchTimeoutSeconds bounds downloading a source image by URL.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

type AuthConfig struct {
	// SharedSecretEnv names the env var holding the trusted-caller
	// secret. Empty (or an empty env) leaves the gateway open.
	SharedSecretEnv string `yaml:"shared_secret_env"`
}

type AuditConfig struct {
	Sinks           []SinkConfig `yaml:"sinks"`
	QueueSize       int          `yaml:"queue_size"`
	Workers         int          `yaml:"workers"`
	ShutdownTimeout int          `yaml:"shutdown_timeout_seconds"`
}

type SinkConfig struct {
	Type    string            `yaml:"type"` // "stdout" | "file_jsonl" | "webhook"
	Path    string            `yaml:"path"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{
		Classifiers: map[string]ClassifierConfig{},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxRequestBodyBytes <= 0 {
		cfg.Server.MaxRequestBodyBytes = 12 * 1024 * 1024
	}
	if cfg.Server.MaxInFlightRequests <= 0 {
		cfg.Server.MaxInFlightRequests = 32
	}
	if cfg.Server.ReadHeaderTimeoutSeconds <= 0 {
		cfg.Server.ReadHeaderTimeoutSeconds = 5
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 60
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 120
	}

	if cfg.Analysis.ClassifierTimeoutSeconds <= 0 {
		cfg.Analysis.ClassifierTimeoutSeconds = 20
	}
	if cfg.Analysis.FetchTimeoutSeconds <= 0 {
		cfg.Analysis.FetchTimeoutSeconds = 20
	}

	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}
	if cfg.Audit.ShutdownTimeout <= 0 {
		cfg.Audit.ShutdownTimeout = 2
	}

	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "forgesight"
	}
}
