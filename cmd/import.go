package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var (
	importCSVPath     string
	importEnrichAfter bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import contractors from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close()

		report, err := env.Importer.Import(ctx, f)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}

		zap.L().Info("import complete",
			zap.Int("rows", report.Rows),
			zap.Int("created", report.Created),
			zap.Int("merged", report.Merged),
			zap.Int("skipped", report.Skipped),
			zap.String("csv", importCSVPath),
		)

		if importEnrichAfter && report.Created+report.Merged > 0 {
			job, err := env.Manager.StartEnrichment(ctx, store.EnrichmentFilter{OnlyMissing: true}, jobs.EnrichOptions{
				Source: model.EnrichmentSourceCSVImport,
			})
			if err != nil {
				return eris.Wrap(err, "start enrichment")
			}
			zap.L().Info("enrichment started", zap.Int64("job", job.ID))
			env.Manager.WaitEnrichment(job.ID)
		}

		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().BoolVar(&importEnrichAfter, "enrich-after", false, "enrich imported records afterwards")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
