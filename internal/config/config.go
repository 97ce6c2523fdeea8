package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir   string
	SourceDir string
	SitesFile string
	Timezone  string
	Location  *time.Location

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Rebuild notifications. Empty KafkaBrokers disables them.
	KafkaBrokers      []string
	KafkaRebuildTopic string
	KafkaGroupID      string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")
	cfg := &Config{
		DataDir:           dataDir,
		SourceDir:         sharedcfg.EnvOrDefault("SOURCE_DIR", "."),
		SitesFile:         sharedcfg.EnvOrDefault("SITES_FILE", filepath.Join(dataDir, "sites.json")),
		Timezone:          sharedcfg.EnvOrDefault("TIMEZONE", "Europe/Paris"),
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		KafkaRebuildTopic: sharedcfg.EnvOrDefault("KAFKA_REBUILD_TOPIC", "site-dataset-rebuilt"),
		KafkaGroupID:      sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "traffic-dashboard"),
	}

	if brokers := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.KafkaEnabled() && cfg.KafkaRebuildTopic == "" {
		return nil, errors.New("KAFKA_REBUILD_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether rebuild notifications should be published and consumed.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ParquetDir is where per-site columnar snapshots live.
func (c *Config) ParquetDir() string {
	return filepath.Join(c.DataDir, "parquet_store")
}
