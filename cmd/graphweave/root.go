package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/embedder"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/query"
	"github.com/graphweave/graphweave/pkg/telemetry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "graphweave",
		Short: "GraphWeave: text-to-knowledge-graph engine",
		Long: `GraphWeave ingests extracted text documents into a weighted knowledge
graph and answers natural-language questions over it: importance ranking,
paths, similarity, neighborhoods, and graph statistics.`,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.graphweave.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("snapshot-path", "", "badger snapshot directory (empty disables durability)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("snapshot.path", rootCmd.PersistentFlags().Lookup("snapshot-path"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".graphweave")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildClient assembles the engine from the loaded configuration.
func buildClient(cfg *config.Config) (*graphweave.Client, error) {
	log := logger.NewDefaultLogger(logger.ParseLevel(cfg.Log.Level))

	emb, err := embedder.New(embedder.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	if cfg.CircuitBreaker.Enabled && cfg.Embedding.Provider == "openai" {
		emb = embedder.NewBreakerClient(emb, embedder.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         secondsDuration(cfg.CircuitBreaker.Interval),
			Timeout:          secondsDuration(cfg.CircuitBreaker.Timeout),
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, log)
	}

	opts := graphweave.Options{
		Logger:           log,
		Embedder:         emb,
		SnapshotPath:     cfg.Snapshot.Path,
		SubgraphMaxDepth: cfg.Subgraph.MaxDepth,
		SubgraphMaxNodes: cfg.Subgraph.MaxNodes,
	}

	if cfg.Telemetry.ParquetPath != "" {
		recorder, err := telemetry.NewRecorder(cfg.Telemetry.ParquetPath)
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
		} else {
			opts.Recorder = recorder
		}
	}

	if cfg.Query.TemplatesPath != "" {
		data, err := os.ReadFile(cfg.Query.TemplatesPath)
		if err != nil {
			return nil, fmt.Errorf("read query templates: %w", err)
		}
		templates, err := query.LoadCustomTemplates(data)
		if err != nil {
			return nil, err
		}
		opts.CustomTemplates = templates
	}

	return graphweave.New(opts)
}
