package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "flbridge-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
station:
  callsign: "N7PKT"
  grid: "DN06"

flrig:
  host: "192.168.1.50"
  port: 12345
  timeout_ms: 1500

receiver:
  host: "127.0.0.1"
  port: 4532

rigctld:
  host: "0.0.0.0"
  port: 4533

sync:
  poll_interval_ms: 250
  reconnect_interval_ms: 3000
  sync_mode: true

logging:
  level: "debug"
  console: true
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Station.Callsign != "N7PKT" {
			t.Errorf("Expected callsign N7PKT, got %s", config.Station.Callsign)
		}
		if config.Flrig.Host != "192.168.1.50" {
			t.Errorf("Expected flrig host 192.168.1.50, got %s", config.Flrig.Host)
		}
		if config.Flrig.TimeoutMs != 1500 {
			t.Errorf("Expected flrig timeout 1500, got %d", config.Flrig.TimeoutMs)
		}
		if config.Receiver.Port != 4532 {
			t.Errorf("Expected receiver port 4532, got %d", config.Receiver.Port)
		}
		if config.Sync.PollIntervalMs != 250 {
			t.Errorf("Expected poll interval 250, got %d", config.Sync.PollIntervalMs)
		}
		if !config.Sync.SyncMode {
			t.Error("Expected sync_mode true")
		}
		if config.Logging.Level != "debug" {
			t.Errorf("Expected log level debug, got %s", config.Logging.Level)
		}
	})

	t.Run("Config With Defaults", func(t *testing.T) {
		configContent := `
station:
  callsign: "N0ABC"
`
		configPath := filepath.Join(tempDir, "minimal.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Flrig.Host != "127.0.0.1" {
			t.Errorf("Expected default flrig host 127.0.0.1, got %s", config.Flrig.Host)
		}
		if config.Flrig.Port != 12345 {
			t.Errorf("Expected default flrig port 12345, got %d", config.Flrig.Port)
		}
		if config.Receiver.Port != 7356 {
			t.Errorf("Expected default receiver port 7356, got %d", config.Receiver.Port)
		}
		if config.Rigctld.Port != 4533 {
			t.Errorf("Expected default rigctld port 4533, got %d", config.Rigctld.Port)
		}
		if config.Sync.PollIntervalMs != 500 {
			t.Errorf("Expected default poll interval 500, got %d", config.Sync.PollIntervalMs)
		}
		if config.Sync.ReconnectIntervalMs != 5000 {
			t.Errorf("Expected default reconnect interval 5000, got %d", config.Sync.ReconnectIntervalMs)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected default log level info, got %s", config.Logging.Level)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tempDir, "nope.yaml"))
		if err == nil {
			t.Error("Expected error for missing config file, got nil")
		}
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "broken.yaml")
		if err := os.WriteFile(configPath, []byte("flrig: [not a map"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		_, err := LoadConfig(configPath)
		if err == nil {
			t.Error("Expected error for malformed YAML, got nil")
		}
		if err != nil && !strings.Contains(err.Error(), "parse") {
			t.Errorf("Expected parse error, got: %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("Defaults Are Valid", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Errorf("Expected default config to validate, got: %v", err)
		}
	})

	t.Run("Invalid Listen Address", func(t *testing.T) {
		config := Default()
		config.Rigctld.Host = "not a host name"
		if err := config.Validate(); err == nil {
			t.Error("Expected error for invalid listen address, got nil")
		}
	})

	t.Run("Invalid Flrig Port", func(t *testing.T) {
		config := Default()
		config.Flrig.Port = 70000
		if err := config.Validate(); err == nil {
			t.Error("Expected error for out-of-range flrig port, got nil")
		}
	})
}

func TestAddressHelpers(t *testing.T) {
	config := Default()

	if config.FlrigURL() != "http://127.0.0.1:12345" {
		t.Errorf("Unexpected flrig URL: %s", config.FlrigURL())
	}
	if config.ReceiverAddr() != "127.0.0.1:7356" {
		t.Errorf("Unexpected receiver address: %s", config.ReceiverAddr())
	}
	if config.RigctldAddr() != "127.0.0.1:4533" {
		t.Errorf("Unexpected rigctld address: %s", config.RigctldAddr())
	}
}
