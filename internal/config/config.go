// Package config loads service configuration from file and environment, the
// environment taking precedence. Command-line flags are applied on top by
// the daemon entrypoint, not here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved configuration for either daemon.
type Config struct {
	// Root is the registry root directory: one subdirectory per schema.
	Root string `mapstructure:"root"`

	// IndexerListen and SearcherListen are the HTTP bind addresses.
	IndexerListen  string `mapstructure:"indexer_listen"`
	SearcherListen string `mapstructure:"searcher_listen"`

	// CommitInterval paces background commits on the indexer.
	CommitInterval time.Duration `mapstructure:"commit_interval"`

	// WriterRAMMB is the advisory in-memory budget for pending writes, per
	// index.
	WriterRAMMB int `mapstructure:"writer_ram_mb"`

	// TelemetryEnabled turns on the metrics pipeline.
	TelemetryEnabled bool `mapstructure:"telemetry_enabled"`
}

// Defaults mirror the single-host development setup.
func defaults(v *viper.Viper) {
	v.SetDefault("root", "./data")
	v.SetDefault("indexer_listen", "127.0.0.1:7700")
	v.SetDefault("searcher_listen", "127.0.0.1:7701")
	v.SetDefault("commit_interval", 30*time.Second)
	v.SetDefault("writer_ram_mb", 1024)
	v.SetDefault("telemetry_enabled", false)
}

// Load reads lantern.yaml (from path if given, else the working directory),
// then LANTERN_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("LANTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("lantern")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and env carry it.
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.CommitInterval <= 0 {
		return nil, fmt.Errorf("commit_interval must be positive, got %s", cfg.CommitInterval)
	}
	if cfg.WriterRAMMB <= 0 {
		return nil, fmt.Errorf("writer_ram_mb must be positive, got %d", cfg.WriterRAMMB)
	}
	return &cfg, nil
}

// WriterArenaBytes converts the configured budget to bytes.
func (c *Config) WriterArenaBytes() uint64 {
	return uint64(c.WriterRAMMB) << 20
}
