package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Engine.FaultPolicy != FaultPolicyLog {
		t.Errorf("Engine.FaultPolicy = %q, want %q", cfg.Engine.FaultPolicy, FaultPolicyLog)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if !strings.Contains(err.Error(), "E401") {
		t.Errorf("Expected E401 error, got: %v", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "name": "edge",
  "server": {
    "port": 9090,
    "host": "0.0.0.0"
  },
  "stream": {
    "bufferSize": 8,
    "allowedOrigins": ["https://example.com"]
  },
  "engine": {
    "debug": true,
    "contention": "failfast"
  },
  "metrics": {
    "enabled": false
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "edge" {
		t.Errorf("Name = %q, want %q", cfg.Name, "edge")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Stream.BufferSize != 8 {
		t.Errorf("Stream.BufferSize = %d, want %d", cfg.Stream.BufferSize, 8)
	}
	if !cfg.Engine.Debug {
		t.Error("Engine.Debug should be true")
	}
	if cfg.Engine.Contention != ContentionFailFast {
		t.Errorf("Engine.Contention = %q, want %q", cfg.Engine.Contention, ContentionFailFast)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}

	// Omitted fields keep their defaults.
	if cfg.Engine.FaultPolicy != FaultPolicyLog {
		t.Errorf("Engine.FaultPolicy = %q, want %q", cfg.Engine.FaultPolicy, FaultPolicyLog)
	}
	if cfg.Stream.WriteTimeout != "10s" {
		t.Errorf("Stream.WriteTimeout = %q, want %q", cfg.Stream.WriteTimeout, "10s")
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E402") {
		t.Errorf("Expected E402 error, got: %v", err)
	}
}

func TestLoadFromDir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromDir(nested); err == nil {
		t.Error("Expected error when no config exists")
	}

	cfg := New()
	cfg.Name = "root"
	if err := cfg.SaveTo(filepath.Join(root, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFromDir(nested)
	if err != nil {
		t.Fatalf("LoadFromDir error: %v", err)
	}
	if loaded.Name != "root" {
		t.Errorf("Name = %q, want %q", loaded.Name, "root")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Server.Port = 9000

	// Save should fail without configPath set
	if err := cfg.Save(); err == nil {
		t.Error("Expected error when saving without path")
	}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", loaded.Server.Port, 9000)
	}

	loaded.Server.Port = 9001
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reloaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if reloaded.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want %d", reloaded.Server.Port, 9001)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"negative buffer", func(c *Config) { c.Stream.BufferSize = -1 }},
		{"unknown fault policy", func(c *Config) { c.Engine.FaultPolicy = "explode" }},
		{"unknown contention", func(c *Config) { c.Engine.Contention = "spin" }},
		{"bad duration", func(c *Config) { c.Stream.WriteTimeout = "soon" }},
		{"zero duration", func(c *Config) { c.Demo.TickInterval = "0s" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), "E403") {
				t.Errorf("Expected E403 error, got: %v", err)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := New()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8081

	if got := cfg.Address(); got != "0.0.0.0:8081" {
		t.Errorf("Address = %q, want %q", got, "0.0.0.0:8081")
	}
	if got := cfg.URL(); got != "http://0.0.0.0:8081" {
		t.Errorf("URL = %q, want %q", got, "http://0.0.0.0:8081")
	}

	cfg.Server.HTTPS = true
	if got := cfg.URL(); got != "https://0.0.0.0:8081" {
		t.Errorf("URL with HTTPS = %q, want %q", got, "https://0.0.0.0:8081")
	}
}

func TestDurations(t *testing.T) {
	cfg := New()
	cfg.Stream.WriteTimeout = "250ms"
	cfg.Demo.TickInterval = "nonsense"

	if got := cfg.WriteTimeout(); got != 250*time.Millisecond {
		t.Errorf("WriteTimeout = %v, want %v", got, 250*time.Millisecond)
	}
	if got := cfg.TickInterval(); got != time.Second {
		t.Errorf("TickInterval fallback = %v, want %v", got, time.Second)
	}
	if got := cfg.ShutdownTimeout(); got != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want %v", got, 5*time.Second)
	}
}

func TestOriginAllowed(t *testing.T) {
	cfg := New()
	if cfg.OriginAllowed("https://example.com") {
		t.Error("no origins should be allowed by default")
	}

	cfg.Stream.AllowedOrigins = []string{"https://example.com"}
	if !cfg.OriginAllowed("https://example.com") {
		t.Error("listed origin should be allowed")
	}
	if cfg.OriginAllowed("https://other.com") {
		t.Error("unlisted origin should be rejected")
	}

	cfg.Stream.AllowedOrigins = []string{"*"}
	if !cfg.OriginAllowed("https://other.com") {
		t.Error("wildcard should allow any origin")
	}
}
