// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	"github.com/choria-io/filedist/digest"
)

const (
	DefaultCacheDir       = "/var/lib/choria/filedist"
	DefaultNatsContext    = "FILEDIST"
	DefaultMasterSubject  = "filedist.fileserver"
	DefaultRequestRetries = 3
	DefaultRequestTimeout = time.Minute
)

// Config holds the file distribution client configuration
type Config struct {
	// FileClient selects the client implementation
	// Valid values: remote, local
	FileClient string `yaml:"file_client"`

	// CacheDir is the root directory all fetched and cached content is stored
	// under. Defaults to DefaultCacheDir.
	CacheDir string `yaml:"cache_dir"`

	// FileRoots maps environment names to ordered lists of local root
	// directories, consulted in declaration order by the local client
	FileRoots map[string][]string `yaml:"file_roots"`

	// HashType is the digest algorithm used for files resolved through a root
	// or asserted by configuration. Defaults to sha256.
	HashType string `yaml:"hash_type"`

	// ExternalNodes is a command run with the minion id to classify this node,
	// local client only
	ExternalNodes string `yaml:"external_nodes"`

	// ID is the minion identity sent with authority requests
	ID string `yaml:"id"`

	// NatsContext is the NATS context used to reach the authority
	NatsContext string `yaml:"nats_context"`

	// MasterSubject is the subject the authority's file server answers on
	MasterSubject string `yaml:"master_subject"`

	// RequestRetries is how often each authority request is attempted
	RequestRetries int `yaml:"request_retries"`

	// RequestTimeout bounds each authority request attempt (e.g. "60s", "2m")
	RequestTimeout        string `yaml:"request_timeout"`
	requestTimeoutSeconds time.Duration

	// LogLevel is the log level to use
	// Valid values: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// LogFile writes logs to a rotated file instead of the terminal when set
	LogFile string `yaml:"log_file"`

	// MonitorPort is the port to listen on for accessing Prometheus stats
	MonitorPort int `yaml:"monitor_port"`
}

// NewDefaultConfig creates a config with all defaults applied
func NewDefaultConfig() *Config {
	return &Config{
		FileClient:            "remote",
		CacheDir:              DefaultCacheDir,
		FileRoots:             map[string][]string{},
		HashType:              digest.DefaultHashType,
		NatsContext:           DefaultNatsContext,
		MasterSubject:         DefaultMasterSubject,
		RequestRetries:        DefaultRequestRetries,
		requestTimeoutSeconds: DefaultRequestTimeout,
		LogLevel:              "info",
	}
}

// ParseConfig parses YAML configuration bytes, applies defaults and validates
func ParseConfig(c []byte) (*Config, error) {
	cfg := NewDefaultConfig()

	err := yaml.Unmarshal(c, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RequestTimeout != "" {
		cfg.requestTimeoutSeconds, err = fisk.ParseDuration(cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig reads and parses the configuration file at path
func LoadConfig(path string) (*Config, error) {
	cb, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(cb)
}

func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must be set")
	}

	switch c.FileClient {
	case "remote", "local":
		// valid
	default:
		return fmt.Errorf("file_client must be one of: remote, local")
	}

	if c.RequestRetries < 1 {
		return fmt.Errorf("request_retries must be at least 1")
	}

	if c.requestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// RequestTimeoutDuration is the parsed per attempt request timeout
func (c *Config) RequestTimeoutDuration() time.Duration {
	if c.requestTimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}

	return c.requestTimeoutSeconds
}

// ToMap renders the configuration as generic data, the local client serves
// this as its master opts
func (c *Config) ToMap() (map[string]any, error) {
	cb, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}

	res := map[string]any{}
	err = yaml.Unmarshal(cb, &res)
	if err != nil {
		return nil, err
	}

	return res, nil
}
