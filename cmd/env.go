package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/contractor"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/scraper"
	"github.com/sells-group/leadgen-cli/internal/store"
	anthropicpkg "github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/jina"
	"github.com/sells-group/leadgen-cli/pkg/tavily"
)

// appEnv bundles the wired application services shared by the CLI
// commands and the HTTP server.
type appEnv struct {
	Store      store.Store
	Coord      *store.Coordinator
	Hub        *progress.Hub
	Gateway    *contractor.Gateway
	Manager    *jobs.Manager
	Reconciler *contractor.Reconciler
	Importer   *contractor.Importer
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "contractors.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv builds the full service graph from configuration.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	coord := store.NewCoordinator()
	hub := progress.NewHub()
	gw := contractor.NewGateway(st, coord)

	jinaOpts := []jina.Option{jina.WithReaderBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)
	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	extractor := scraper.NewClaudeExtractor(anthropicClient, cfg.Anthropic.ExtractModel)
	provider := enrich.NewWebProvider(tavilyClient, anthropicClient, cfg.Anthropic.EnrichModel)

	newEngine := func(threads int) jobs.CollectEngine {
		search := scraper.NewJinaSearcher(jinaClient, cfg.Scrape.SearchRPS, cfg.Scrape.ResultsPerTerm)
		return scraper.NewEngine(search, search, extractor, gw, scraper.Config{
			Threads:        threads,
			PerSiteTimeout: time.Duration(cfg.Scrape.SiteTimeoutSecs) * time.Second,
		})
	}
	newEnrich := func(threads int) jobs.EnrichRunner {
		return enrich.NewEnricher(provider, gw, threads)
	}

	return &appEnv{
		Store:      st,
		Coord:      coord,
		Hub:        hub,
		Gateway:    gw,
		Manager:    jobs.NewManager(st, coord, hub, newEngine, newEnrich),
		Reconciler: contractor.NewReconciler(st, coord),
		Importer:   contractor.NewImporter(gw),
	}, nil
}
