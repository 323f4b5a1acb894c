package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/jobs"
)

var (
	scrapeLocation    string
	scrapeLocationID  int
	scrapeCategories  []string
	scrapeThreads     int
	scrapeEnrichAfter bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a collection job for a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		loc, err := resolveLocation(scrapeLocationID, scrapeLocation)
		if err != nil {
			return err
		}

		threads := scrapeThreads
		if threads == 0 {
			threads = cfg.Scrape.Threads
		}

		job, err := env.Manager.StartCollection(ctx, loc, scrapeCategories, jobs.CollectOptions{
			Threads:     threads,
			EnrichAfter: scrapeEnrichAfter,
		})
		if err != nil {
			return err
		}

		zap.L().Info("collection started",
			zap.Int64("job", job.ID),
			zap.String("location", job.Location),
			zap.Strings("categories", job.Categories),
		)

		// Relay progress while the job runs.
		sub := env.Hub.Subscribe(jobs.CollectionTopic(job.ID))
		defer env.Hub.Unsubscribe(sub)
		go func() {
			for ev := range sub.C {
				zap.L().Info("progress", zap.String("kind", ev.Kind), zap.Any("data", ev.Data))
			}
		}()

		env.Manager.WaitCollection(job.ID)

		final, err := env.Store.GetJob(ctx, job.ID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeLocation, "location", "", "location name or \"City, ST\" (required unless --location-id)")
	scrapeCmd.Flags().IntVar(&scrapeLocationID, "location-id", 0, "built-in location id")
	scrapeCmd.Flags().StringSliceVar(&scrapeCategories, "categories", nil, "categories to collect (default all)")
	scrapeCmd.Flags().IntVar(&scrapeThreads, "threads", 0, "concurrent site workers (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeEnrichAfter, "enrich-after", false, "start an enrichment job when collection completes")
	rootCmd.AddCommand(scrapeCmd)
}
