// Package config holds the gateway process's own bootstrap
// configuration — the handful of settings needed before the Engine can be
// built at all (listen address, log shape, where the provider file and
// price catalog live). This is deliberately separate from the repo's
// root config.Loader/config.Config, which is the teacher's broader
// agent-framework configuration (database, Qdrant, agent defaults) that
// this gateway does not need; the builder-style API and YAML+env-override
// precedence are carried over from it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bootstrap is the gateway process's own configuration.
type Bootstrap struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ProvidersPath   string        `yaml:"providers_path"`
	PriceCatalogURL string        `yaml:"price_catalog_url"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	MetricsNamespace string       `yaml:"metrics_namespace"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultBootstrap returns the zero-config defaults: listen on :8080, read
// providers from providers.yaml in the working directory, no remote price feed
// (catalog starts empty and fails open), info-level JSON logging.
func DefaultBootstrap() *Bootstrap {
	return &Bootstrap{
		ListenAddr:       ":8080",
		ProvidersPath:    "providers.yaml",
		LogLevel:         "info",
		LogFormat:        "json",
		MetricsNamespace: "costgate",
		ShutdownTimeout:  10 * time.Second,
	}
}

// Loader builds a Bootstrap from defaults, an optional YAML file, then
// COSTGATE_-prefixed environment variable overrides, in that priority
// order — mirroring the root config.Loader's
// defaults → file → env precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader returns a Loader with the default COSTGATE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "COSTGATE"}
}

// WithConfigPath sets the YAML file to read, if any.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load runs the full defaults → file → env pipeline.
func (l *Loader) Load() (*Bootstrap, error) {
	cfg := DefaultBootstrap()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read bootstrap config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse bootstrap config: %w", err)
			}
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Bootstrap) error {
	if v, ok := os.LookupEnv(l.envPrefix + "_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv(l.envPrefix + "_PROVIDERS_PATH"); ok {
		cfg.ProvidersPath = v
	}
	if v, ok := os.LookupEnv(l.envPrefix + "_PRICE_CATALOG_URL"); ok {
		cfg.PriceCatalogURL = v
	}
	if v, ok := os.LookupEnv(l.envPrefix + "_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(l.envPrefix + "_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := os.LookupEnv(l.envPrefix + "_METRICS_NAMESPACE"); ok {
		cfg.MetricsNamespace = v
	}
	if v, ok := os.LookupEnv(l.envPrefix + "_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s_SHUTDOWN_TIMEOUT: %w", l.envPrefix, err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}
