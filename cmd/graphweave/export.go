package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/persist"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the graph as JSON, optionally mirroring to Neo4j",
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

		data, err := client.ExportJSON()
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" || out == "-" {
			fmt.Println(string(data))
		} else {
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(os.Stderr, "Exported graph to %s\n", out)
		}

		if mirror, _ := cmd.Flags().GetBool("neo4j"); mirror {
			if cfg.Export.Neo4jURI == "" {
				return fmt.Errorf("neo4j mirror requested but export.neo4j_uri is unset")
			}
			exporter, err := persist.NewNeo4jExporter(cmd.Context(),
				cfg.Export.Neo4jURI, cfg.Export.Neo4jUser, cfg.Export.Neo4jPassword,
				cfg.Export.Neo4jDatabase, nil)
			if err != nil {
				return err
			}
			defer exporter.Close(cmd.Context())

			g := client.Export()
			if err := exporter.Export(cmd.Context(), &g); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Mirrored graph to Neo4j")
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a previously exported graph",
	Args:  cobra.ExactArgs(1),
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

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if err := client.ImportJSON(data); err != nil {
			return err
		}
		st := client.Stats()
		fmt.Printf("Imported %d entities and %d relations (seq %d)\n",
			st.NodeCount, st.EdgeCount, st.Seq)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	exportCmd.Flags().Bool("neo4j", false, "also mirror the export to Neo4j")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
