package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Collapse duplicate contractor records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Reconciler.Reconcile(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("reconcile complete",
			zap.Int("scanned", report.Scanned),
			zap.Int("groups", report.Groups),
			zap.Int("removed", report.Removed),
			zap.Int("records_updated", report.RecordsUpdated),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
