package enrich

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/contractor"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Progress is reported as each record finishes.
type Progress struct {
	Processed       int    `json:"processed"`
	Enriched        int    `json:"enriched"`
	Failed          int    `json:"failed"`
	CurrentBusiness string `json:"current_business"`
}

// Enricher runs contact lookups over a batch of contractors with a
// bounded worker pool.
type Enricher struct {
	provider Provider
	gateway  *contractor.Gateway
	threads  int
	log      *zap.Logger
}

// NewEnricher creates an Enricher. threads is clamped elsewhere; a
// non-positive value falls back to 1.
func NewEnricher(provider Provider, gw *contractor.Gateway, threads int) *Enricher {
	if threads <= 0 {
		threads = 1
	}
	return &Enricher{
		provider: provider,
		gateway:  gw,
		threads:  threads,
		log:      zap.L().With(zap.String("component", "enricher")),
	}
}

// Run enriches every record in the batch. report may be nil. Per-record
// failures are counted, not fatal; Run returns an error only when the
// context is cancelled.
func (e *Enricher) Run(ctx context.Context, records []model.Contractor, report func(Progress)) (Progress, error) {
	// Counter updates and the report call happen under one lock so every
	// observer sees snapshots in increasing order.
	var mu sync.Mutex
	var tally Progress

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)

	for i := range records {
		rec := records[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ok, err := e.enrichOne(gctx, &rec)
			if err != nil {
				e.log.Warn("enrichment failed",
					zap.Int64("id", rec.ID),
					zap.String("name", rec.Name),
					zap.Error(err))
			}

			mu.Lock()
			tally.Processed++
			switch {
			case err != nil:
				tally.Failed++
			case ok:
				tally.Enriched++
			}
			if report != nil {
				snap := tally
				snap.CurrentBusiness = rec.Name
				report(snap)
			}
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return tally, eris.Wrap(err, "enrich: run")
	}
	return tally, nil
}

// enrichOne looks up one record and applies the finding when it carries
// anything usable.
func (e *Enricher) enrichOne(ctx context.Context, rec *model.Contractor) (bool, error) {
	finding, err := e.provider.Lookup(ctx, rec)
	if err != nil {
		return false, err
	}
	if finding.Empty() {
		return false, nil
	}

	err = e.gateway.ApplyEnrichment(ctx, rec.ID, store.EnrichmentUpdate{
		OwnerName:   finding.OwnerName,
		Email:       finding.Email,
		LinkedInURL: finding.LinkedInURL,
		Confidence:  finding.Confidence,
		SourceURLs:  finding.SourceURLs,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
