package contractor

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// IngestAction describes what Ingest did with an incoming record.
type IngestAction string

const (
	ActionCreated IngestAction = "created"
	ActionMerged  IngestAction = "merged"
	ActionSkipped IngestAction = "skipped"
)

// IngestResult reports the outcome of a single ingestion.
type IngestResult struct {
	Action IngestAction
	ID     int64
	Filled int
}

// Gateway is the single entry point for contractor writes. Every
// ingestion resolves against existing records and either creates,
// merges, or skips, all inside one coordinator write so concurrent
// ingestions are strictly ordered.
type Gateway struct {
	store    store.Store
	coord    *store.Coordinator
	resolver *Resolver
	log      *zap.Logger
}

// NewGateway creates a Gateway.
func NewGateway(st store.Store, coord *store.Coordinator) *Gateway {
	return &Gateway{
		store:    st,
		coord:    coord,
		resolver: NewResolver(st),
		log:      zap.L().With(zap.String("component", "gateway")),
	}
}

// Ingest resolves the incoming record against the store and either
// creates it, fills gaps in its match, or skips it as a pure duplicate.
func (g *Gateway) Ingest(ctx context.Context, incoming *model.Contractor) (*IngestResult, error) {
	if incoming.Name == "" {
		return nil, eris.New("contractor: ingest requires a name")
	}

	var result *IngestResult
	err := g.coord.Write(func() error {
		match, err := g.resolver.Resolve(ctx, incoming)
		if err != nil {
			return err
		}

		if match == nil {
			if err := g.store.CreateContractor(ctx, incoming); err != nil {
				return err
			}
			result = &IngestResult{Action: ActionCreated, ID: incoming.ID}
			return nil
		}

		updates := MergeMissing(match, incoming)
		if len(updates) == 0 {
			result = &IngestResult{Action: ActionSkipped, ID: match.ID}
			return nil
		}
		if err := g.store.UpdateContractorFields(ctx, match.ID, updates); err != nil {
			return err
		}
		result = &IngestResult{Action: ActionMerged, ID: match.ID, Filled: len(updates)}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "contractor: ingest")
	}

	g.log.Debug("ingested contractor",
		zap.String("name", incoming.Name),
		zap.String("action", string(result.Action)),
		zap.Int64("id", result.ID))
	return result, nil
}

// ApplyEnrichment writes an authoritative enrichment result for the
// given contractor under the coordinator lock.
func (g *Gateway) ApplyEnrichment(ctx context.Context, id int64, update store.EnrichmentUpdate) error {
	err := g.coord.Write(func() error {
		return g.store.ApplyEnrichment(ctx, id, update)
	})
	return eris.Wrap(err, "contractor: apply enrichment")
}
