package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var (
	enrichThreads  int
	enrichCategory string
	enrichState    string
	enrichLimit    int
	enrichAll      bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run an enrichment job over stored contractors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		threads := enrichThreads
		if threads == 0 {
			threads = cfg.Enrich.Threads
		}

		filter := store.EnrichmentFilter{
			OnlyMissing: !enrichAll,
			Category:    enrichCategory,
			State:       enrichState,
			Limit:       enrichLimit,
		}
		job, err := env.Manager.StartEnrichment(ctx, filter, jobs.EnrichOptions{Threads: threads})
		if err != nil {
			return err
		}

		zap.L().Info("enrichment started",
			zap.Int64("job", job.ID),
			zap.Int("total_records", job.TotalRecords),
		)

		sub := env.Hub.Subscribe(jobs.EnrichmentTopic(job.ID))
		defer env.Hub.Unsubscribe(sub)
		go func() {
			for ev := range sub.C {
				zap.L().Info("progress", zap.String("kind", ev.Kind), zap.Any("data", ev.Data))
			}
		}()

		env.Manager.WaitEnrichment(job.ID)

		final, err := env.Store.GetEnrichmentJob(ctx, job.ID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichThreads, "threads", 0, "concurrent lookup workers (default from config)")
	enrichCmd.Flags().StringVar(&enrichCategory, "category", "", "restrict to one category")
	enrichCmd.Flags().StringVar(&enrichState, "state", "", "restrict to one state")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "cap the number of records")
	enrichCmd.Flags().BoolVar(&enrichAll, "all", false, "include records that already have owner and email")
	rootCmd.AddCommand(enrichCmd)
}
