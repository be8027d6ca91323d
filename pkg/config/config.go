package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config represents the flbridge configuration
type Config struct {
	Station struct {
		Callsign string `yaml:"callsign"`
		Grid     string `yaml:"grid"`
	} `yaml:"station"`

	Flrig struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		// TimeoutMs bounds each XML-RPC round trip
		TimeoutMs int `yaml:"timeout_ms"`
		// Mock replaces the XML-RPC client with an in-process fake rig
		Mock bool `yaml:"mock"`
	} `yaml:"flrig"`

	Receiver struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		TimeoutMs int    `yaml:"timeout_ms"`
	} `yaml:"receiver"`

	Rigctld struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"rigctld"`

	Sync struct {
		PollIntervalMs      int  `yaml:"poll_interval_ms"`
		ReconnectIntervalMs int  `yaml:"reconnect_interval_ms"`
		SyncMode            bool `yaml:"sync_mode"`
	} `yaml:"sync"`

	Web struct {
		Enabled     bool   `yaml:"enabled"`
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
		MaxEvents    int    `yaml:"max_events"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// Default returns a configuration with all defaults applied, used when
// no config file is given.
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.Flrig.Host == "" {
		c.Flrig.Host = "127.0.0.1"
	}
	if c.Flrig.Port == 0 {
		c.Flrig.Port = 12345
	}
	if c.Flrig.TimeoutMs == 0 {
		c.Flrig.TimeoutMs = 2000
	}
	if c.Receiver.Host == "" {
		c.Receiver.Host = "127.0.0.1"
	}
	if c.Receiver.Port == 0 {
		c.Receiver.Port = 7356 // GQRX remote control default; some setups use 4532
	}
	if c.Receiver.TimeoutMs == 0 {
		c.Receiver.TimeoutMs = 2000
	}
	if c.Rigctld.Host == "" {
		c.Rigctld.Host = "127.0.0.1"
	}
	if c.Rigctld.Port == 0 {
		c.Rigctld.Port = 4533
	}
	if c.Sync.PollIntervalMs == 0 {
		c.Sync.PollIntervalMs = 500
	}
	if c.Sync.ReconnectIntervalMs == 0 {
		c.Sync.ReconnectIntervalMs = 5000
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "127.0.0.1"
	}
	if c.Storage.MaxEvents == 0 {
		c.Storage.MaxEvents = 10000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 30
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", c.RigctldAddr()); err != nil {
		return fmt.Errorf("invalid rigctld listen address %q: %w", c.RigctldAddr(), err)
	}
	if c.Flrig.Port < 1 || c.Flrig.Port > 65535 {
		return fmt.Errorf("invalid flrig port %d", c.Flrig.Port)
	}
	if c.Receiver.Port < 1 || c.Receiver.Port > 65535 {
		return fmt.Errorf("invalid receiver port %d", c.Receiver.Port)
	}
	if c.Sync.PollIntervalMs < 0 || c.Sync.ReconnectIntervalMs < 0 {
		return fmt.Errorf("sync intervals must be positive")
	}
	return nil
}

// FlrigURL returns the XML-RPC endpoint URL for flrig
func (c *Config) FlrigURL() string {
	return fmt.Sprintf("http://%s:%d", c.Flrig.Host, c.Flrig.Port)
}

// ReceiverAddr returns the receiver remote control address
func (c *Config) ReceiverAddr() string {
	return net.JoinHostPort(c.Receiver.Host, strconv.Itoa(c.Receiver.Port))
}

// RigctldAddr returns the rigctld listen address
func (c *Config) RigctldAddr() string {
	return net.JoinHostPort(c.Rigctld.Host, strconv.Itoa(c.Rigctld.Port))
}
