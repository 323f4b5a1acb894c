package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/contractor"
)

var (
	exportOut      string
	exportCategory string
	exportLocation string
	exportState    string
	exportCity     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contractors to CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter := contractor.ExportFilter{
			Category: exportCategory,
			Location: exportLocation,
			State:    exportState,
			City:     exportCity,
		}

		out := exportOut
		if out == "" {
			out = contractor.ExportFilename(filter)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close()

		rows, err := contractor.ExportCSV(ctx, env.Store, filter, f)
		if err != nil {
			return eris.Wrap(err, "export csv")
		}

		zap.L().Info("export complete", zap.Int("rows", rows), zap.String("file", out))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default derived from filters)")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "filter by category")
	exportCmd.Flags().StringVar(&exportLocation, "location", "", "filter by searched location substring")
	exportCmd.Flags().StringVar(&exportState, "state", "", "filter by state")
	exportCmd.Flags().StringVar(&exportCity, "city", "", "filter by city")
	rootCmd.AddCommand(exportCmd)
}
