package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
core:
  host: "192.168.1.50"
  port: 1710
api:
  host: "0.0.0.0"
  port: 8080
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
cache:
  max_age_ms: 600000
  max_events: 5000
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Core.Host != "192.168.1.50" {
		t.Errorf("Core.Host = %q, want %q", cfg.Core.Host, "192.168.1.50")
	}

	if cfg.Cache.MaxEvents != 5000 {
		t.Errorf("Cache.MaxEvents = %d, want 5000", cfg.Cache.MaxEvents)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	// Unset sections keep their defaults
	if cfg.Cache.QueryTimeoutMS != 30_000 {
		t.Errorf("Cache.QueryTimeoutMS = %d, want 30000", cfg.Cache.QueryTimeoutMS)
	}
	if cfg.Core.Port != 1710 {
		t.Errorf("Core.Port = %d, want 1710", cfg.Core.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// Missing core.host must fail validation
	content := `
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty core.host, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
core:
  host: "from-file"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("QSYSBRIDGE_CORE_HOST", "from-env")
	t.Setenv("QSYSBRIDGE_API_TOKEN", "secret-token")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Core.Host != "from-env" {
		t.Errorf("Core.Host = %q, want env override %q", cfg.Core.Host, "from-env")
	}
	if cfg.API.Token != "secret-token" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "secret-token")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Core.Host = "core.local"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing core host",
			mutate:  func(c *Config) { c.Core.Host = "" },
			wantErr: true,
		},
		{
			name:    "core port out of range",
			mutate:  func(c *Config) { c.Core.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "non-positive cache age",
			mutate:  func(c *Config) { c.Cache.MaxAgeMS = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive query timeout",
			mutate:  func(c *Config) { c.Cache.QueryTimeoutMS = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetQueryTimeout(); got != 30*time.Second {
		t.Errorf("GetQueryTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetKeepaliveInterval(); got != 30*time.Second {
		t.Errorf("GetKeepaliveInterval() = %v, want 30s", got)
	}
	if got := cfg.GetConnectTimeout(); got != 10*time.Second {
		t.Errorf("GetConnectTimeout() = %v, want 10s", got)
	}
}

func TestConfig_CoreAddress(t *testing.T) {
	cfg := defaultConfig()
	cfg.Core.Host = "10.0.0.5"

	if got := cfg.CoreAddress(); got != "10.0.0.5:1710" {
		t.Errorf("CoreAddress() = %q, want %q", got, "10.0.0.5:1710")
	}
}
