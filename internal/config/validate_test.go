package config

import (
	"strings"
	"testing"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg, err := Load("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	cfg.Classifiers = map[string]ClassifierConfig{
		"vendor-a": {
			Type:      "http",
			Endpoint:  "https://api.vendor-a.example/v1/classify",
			APIKeyEnv: "VENDOR_A_KEY",
		},
	}
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig(t)
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	if cfg.Server.MaxRequestBodyBytes != 12*1024*1024 {
		t.Errorf("default body limit = %d", cfg.Server.MaxRequestBodyBytes)
	}
	if cfg.Analysis.ClassifierTimeoutSeconds != 20 {
		t.Errorf("default classifier timeout = %d", cfg.Analysis.ClassifierTimeoutSeconds)
	}
}

func TestValidateRejectsBadClassifiers(t *testing.T) {
	cases := []struct {
		name string
		cc   ClassifierConfig
		want string
	}{
		{"missing type", ClassifierConfig{Endpoint: "https://x.example"}, "missing type"},
		{"unknown type", ClassifierConfig{Type: "grpc"}, "unsupported type"},
		{"http missing endpoint", ClassifierConfig{Type: "http"}, "missing endpoint"},
		{"http bad scheme", ClassifierConfig{Type: "http", Endpoint: "ftp://x.example"}, "http or https"},
		{"http unparsable endpoint", ClassifierConfig{Type: "http", Endpoint: "://"}, "invalid endpoint"},
		{"onnx missing bundle", ClassifierConfig{Type: "onnx_local"}, "missing bundle_dir"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Classifiers["bad"] = tc.cc
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestValidateAuditSinks(t *testing.T) {
	cfg := validConfig(t)
	cfg.Audit.Sinks = []SinkConfig{{Type: "webhook"}}
	if err := Validate(cfg); err == nil {
		t.Error("webhook sink without url accepted")
	}

	cfg.Audit.Sinks = []SinkConfig{{Type: "file_jsonl"}}
	if err := Validate(cfg); err == nil {
		t.Error("file sink without path accepted")
	}

	cfg.Audit.Sinks = []SinkConfig{
		{Type: "stdout"},
		{Type: "file_jsonl", Path: "/tmp/forgesight-audit.jsonl"},
		{Type: "webhook", URL: "https://sink.example/hook"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("valid sinks rejected: %v", err)
	}
}

func TestValidateTelemetry(t *testing.T) {
	cfg := validConfig(t)
	cfg.Telemetry.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Error("telemetry without endpoint accepted")
	}

	cfg.Telemetry.Endpoint = "collector:4317"
	cfg.Telemetry.Protocol = "quic"
	if err := Validate(cfg); err == nil {
		t.Error("bad telemetry protocol accepted")
	}

	cfg.Telemetry.Protocol = "grpc"
	if err := Validate(cfg); err != nil {
		t.Errorf("valid telemetry rejected: %v", err)
	}
}
