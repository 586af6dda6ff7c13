// Package config loads and validates ETL service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Sources SourcesConfig `mapstructure:"sources"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores, useful for local development.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// IngestConfig governs the per-run ingestion pipeline.
type IngestConfig struct {
	// DefaultLimit caps records fetched per source per run.
	DefaultLimit int `mapstructure:"default_limit"`
	// BatchSize is the flush interval in processed records.
	BatchSize int `mapstructure:"batch_size"`
	// HTTPTimeoutSeconds bounds each upstream API call.
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`
}

// SourcesConfig enables and parameterizes the data sources.
type SourcesConfig struct {
	CoinGecko   APISourceConfig `mapstructure:"coingecko"`
	CoinPaprika APISourceConfig `mapstructure:"coinpaprika"`
	CSV         CSVSourceConfig `mapstructure:"csv"`
}

// APISourceConfig configures one REST-backed source.
type APISourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// CSVSourceConfig configures the file-backed source.
type CSVSourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig controls raw payload archival.
type ArchiveConfig struct {
	// Backend is one of "", "local", "gcs"; empty disables archival.
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
}

// PubSubConfig holds metadata for run-completion notifications. An empty
// project id disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("ingest.default_limit", 100)
	v.SetDefault("ingest.batch_size", 50)
	v.SetDefault("ingest.http_timeout_seconds", 30)
	v.SetDefault("sources.coingecko.enabled", true)
	v.SetDefault("sources.coinpaprika.enabled", true)
	v.SetDefault("sources.csv.enabled", true)
	v.SetDefault("sources.csv.path", "data/crypto_prices.csv")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("pubsub.topic_name", "etl-runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Ingest.DefaultLimit <= 0 {
		return fmt.Errorf("ingest.default_limit must be > 0")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be > 0")
	}
	if c.Ingest.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("ingest.http_timeout_seconds must be > 0")
	}
	if c.Sources.CSV.Enabled && c.Sources.CSV.Path == "" {
		return fmt.Errorf("sources.csv.path must be set when the csv source is enabled")
	}
	switch c.Archive.Backend {
	case "", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of \"\", \"local\", \"gcs\"")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.backend is gcs")
	}
	if c.Archive.Backend == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir must be set when archive.backend is local")
	}
	return nil
}

// HTTPTimeout converts the configured upstream timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Ingest.HTTPTimeoutSeconds) * time.Second
}
