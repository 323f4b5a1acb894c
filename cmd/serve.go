package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Jobs left non-terminal by a previous process can never
		// progress; mark them before accepting new work.
		orphaned, err := env.Manager.RecoverOrphans(ctx)
		if err != nil {
			return eris.Wrap(err, "recover orphaned jobs")
		}
		if orphaned > 0 {
			zap.L().Info("recovered orphaned jobs", zap.Int("count", orphaned))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.String("host", cfg.Server.Host), zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the chi router over the application services.
func newRouter(env *appEnv) http.Handler {
	s := &server{env: env, log: zap.L().With(zap.String("component", "api"))}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/stats", s.stats)
		r.Get("/stats/enrichment", s.enrichmentStats)
		r.Get("/locations", s.availableLocations)
		r.Get("/config/locations", s.configLocations)
		r.Get("/config/categories", s.configCategories)

		r.Post("/cleanup-duplicates", s.cleanupDuplicates)
		r.Post("/cleanup-location", s.cleanupLocation)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/", s.listJobs)
			r.Get("/{id}", s.getJob)
			r.Delete("/{id}", s.cancelJob)
		})

		r.Route("/enrichment-jobs", func(r chi.Router) {
			r.Post("/", s.createEnrichmentJob)
			r.Get("/", s.listEnrichmentJobs)
			r.Get("/{id}", s.getEnrichmentJob)
			r.Delete("/{id}", s.cancelEnrichmentJob)
		})

		r.Route("/contractors", func(r chi.Router) {
			r.Get("/", s.listContractors)
			r.Get("/{id}", s.getContractor)
			r.Delete("/{id}", s.deleteContractor)
		})

		r.Post("/import", s.importCSV)
		r.Get("/export", s.exportCSV)

		r.Get("/progress/jobs/{id}", s.streamCollectionProgress)
		r.Get("/progress/enrichment/{id}", s.streamEnrichmentProgress)
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
