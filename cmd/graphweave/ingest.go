package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/pkg/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest text files into the graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			sourceID := filepath.Base(path)
			report, err := client.IngestText(cmd.Context(), sourceID, string(data))
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			if report.Skipped {
				fmt.Printf("%s: unchanged, skipped\n", sourceID)
				continue
			}
			fmt.Printf("%s: %d mentions, %d new entities, %d new relations, %d issues\n",
				sourceID, report.MentionsResolved, report.EntitiesCreated,
				report.RelationsAdded, len(report.Issues))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
