package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	jobsLimit      int
	jobsEnrichment bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List collection and enrichment jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if jobsEnrichment {
			list, err := env.Store.ListEnrichmentJobs(ctx, jobsLimit)
			if err != nil {
				return err
			}
			return enc.Encode(list)
		}

		list, err := env.Store.ListJobs(ctx, jobsLimit)
		if err != nil {
			return err
		}
		return enc.Encode(list)
	},
}

func init() {
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum jobs to list")
	jobsCmd.Flags().BoolVar(&jobsEnrichment, "enrichment", false, "list enrichment jobs instead")
	rootCmd.AddCommand(jobsCmd)
}
