// internal/config/config.go
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig for the dashboard server
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	DBPath         string        `yaml:"db_path"`
	BaseDir        string        `yaml:"base_dir"` // application directory under diagnosis
	ProbePorts     []int         `yaml:"probe_ports"`
	FixTimeout     time.Duration `yaml:"fix_timeout"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
	MetricsEvery   time.Duration `yaml:"metrics_interval"`
	TLSCert        string        `yaml:"tls_cert"`
	TLSKey         string        `yaml:"tls_key"`
}

// DefaultServerConfig returns the config used when no file is given.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig loads server config from YAML file with env overrides
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Env overrides
	if addr := os.Getenv("PREFLIGHT_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if dbPath := os.Getenv("PREFLIGHT_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if baseDir := os.Getenv("PREFLIGHT_BASE_DIR"); baseDir != "" {
		cfg.BaseDir = baseDir
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":5050"
	}
	if c.DBPath == "" {
		c.DBPath = "preflight.db"
	}
	if c.BaseDir == "" {
		c.BaseDir, _ = os.Getwd()
	}
	if len(c.ProbePorts) == 0 {
		c.ProbePorts = []int{3000, 8080, 5000}
	}
	if c.FixTimeout <= 0 {
		c.FixTimeout = 30 * time.Second
	}
	if c.MetricsEvery <= 0 {
		c.MetricsEvery = 15 * time.Second
	}
}
