package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection and enrichment statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.Stats(ctx)
		if err != nil {
			return err
		}
		enrichment, err := env.Store.EnrichmentStats(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"stats":      stats,
			"enrichment": enrichment,
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
