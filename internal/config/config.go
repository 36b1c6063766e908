// Package config loads the history server's settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the history server's configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address            string        `yaml:"address"` // IP address; empty means all interfaces
	Port               string        `yaml:"port"`    // defaults to 443 with TLS, 80 without
	TLSCertificateFile string        `yaml:"tls_cert_file"`
	TLSPrivateKeyFile  string        `yaml:"tls_private_key_file"`
	ShutdownGrace      time.Duration `yaml:"shutdown_grace"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type StoreConfig struct {
	InitialHistoryMapCapacity int `yaml:"initial_history_map_capacity"`
}

// Default returns the configuration used in the absence of a file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file, filling in defaults for absent settings.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.InitialHistoryMapCapacity == 0 {
		c.Store.InitialHistoryMapCapacity = 50
	}
	if c.Server.ShutdownGrace == 0 {
		c.Server.ShutdownGrace = 10 * time.Second
	}
}

// UsesTLS reports whether the server should serve HTTPS.
func (c *Config) UsesTLS() bool {
	return len(c.Server.TLSCertificateFile) > 0
}

// ListenPort returns the configured port, or the conventional one for the chosen protocol.
func (c *Config) ListenPort() string {
	if len(c.Server.Port) > 0 {
		return c.Server.Port
	}
	if c.UsesTLS() {
		return "443"
	}
	return "80"
}

// Validate confirms that the settings are consistent with one another.
func (c *Config) Validate() error {
	var errs []error
	switch hasCert, hasKey := len(c.Server.TLSCertificateFile) > 0, len(c.Server.TLSPrivateKeyFile) > 0; {
	case hasCert && !hasKey:
		errs = append(errs, errors.New("TLS private key file must be nonempty when the certificate file is specified"))
	case hasKey && !hasCert:
		errs = append(errs, errors.New("TLS certificate file must be nonempty when the private key file is specified"))
	}
	if len(c.Server.Address) > 0 && net.ParseIP(c.Server.Address) == nil {
		errs = append(errs, fmt.Errorf("server address %q is not an IP address", c.Server.Address))
	}
	if c.Store.InitialHistoryMapCapacity < 1 {
		errs = append(errs, errors.New("initial history map capacity must be positive"))
	}
	if c.Server.ShutdownGrace < 0 {
		errs = append(errs, errors.New("shutdown grace period must not be negative"))
	}
	return errors.Join(errs...)
}
