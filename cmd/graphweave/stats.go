package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print graph statistics",
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

		st := client.Stats()
		fmt.Printf("Entities:   %d\n", st.NodeCount)
		fmt.Printf("Relations:  %d\n", st.EdgeCount)
		fmt.Printf("Density:    %.4f\n", st.Density)
		fmt.Printf("Components: %d\n", st.Components)
		fmt.Printf("Sequence:   %d\n", st.Seq)
		if st.ArchivedCount > 0 {
			fmt.Printf("Archived:   %d\n", st.ArchivedCount)
		}

		kinds := make([]types.EntityType, 0, len(st.EntitiesByType))
		for t := range st.EntitiesByType {
			kinds = append(kinds, t)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, t := range kinds {
			fmt.Printf("  %-14s %d\n", t, st.EntitiesByType[t])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
