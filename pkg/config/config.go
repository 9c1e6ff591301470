// Package config loads engine configuration from file and environment via
// viper. Defaults are chosen so a bare `graphweave serve` works with no
// config file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine and its surfaces.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Export    ExportConfig    `mapstructure:"export"`
	Query     QueryConfig     `mapstructure:"query"`
	Subgraph  SubgraphConfig  `mapstructure:"subgraph"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // openai, local
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// SnapshotConfig holds durable snapshot store configuration.
type SnapshotConfig struct {
	// Path is the badger database directory. Empty disables durable
	// snapshots.
	Path string `mapstructure:"path"`
}

// ExportConfig holds external graph export configuration.
type ExportConfig struct {
	// Neo4jURI enables mirroring exports into a Neo4j instance when set.
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password"`
	Neo4jDatabase string `mapstructure:"neo4j_database"`
}

// QueryConfig holds query engine configuration.
type QueryConfig struct {
	// TemplatesPath points at a YAML file of custom intent templates.
	TemplatesPath string `mapstructure:"templates_path"`
}

// SubgraphConfig holds subgraph extraction bounds.
type SubgraphConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
	MaxNodes int `mapstructure:"max_nodes"`
}

// TelemetryConfig holds telemetry output configuration.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// CircuitBreakerConfig holds embedder circuit breaker configuration.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("embedding.provider", "local")
	viper.SetDefault("embedding.model", "")

	viper.SetDefault("subgraph.max_depth", 2)
	viper.SetDefault("subgraph.max_nodes", 50)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("snapshot.path", fmt.Sprintf("%s/.graphweave/snapshots", home))
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.graphweave/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables.
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
		if config.Embedding.Provider == "" || config.Embedding.Provider == "local" {
			config.Embedding.Provider = "openai"
		}
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Export.Neo4jURI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Export.Neo4jUser = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Export.Neo4jPassword = pass
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if path := os.Getenv("GRAPHWEAVE_SNAPSHOT_PATH"); path != "" {
		config.Snapshot.Path = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
