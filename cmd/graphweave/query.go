package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/pkg/config"
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a natural-language question over the graph",
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

		answer, err := client.Query(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer.Text)
		fmt.Printf("(confidence: %s)\n", answer.Confidence)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
