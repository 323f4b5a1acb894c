package contractor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

func newTestGateway(t *testing.T) (*Gateway, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewGateway(st, store.NewCoordinator()), st
}

func TestGateway_Ingest_CreatesNewRecord(t *testing.T) {
	gw, st := newTestGateway(t)
	ctx := context.Background()

	result, err := gw.Ingest(ctx, &model.Contractor{
		Name:             "Smith Plumbing",
		Category:         model.CategoryPlumber,
		Phone:            "3045550100",
		Source:           "web_scrape",
		LocationSearched: "Martinsburg, WV",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, result.Action)
	require.NotZero(t, result.ID)

	got, err := st.GetContractor(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Smith Plumbing", got.Name)
}

func TestGateway_Ingest_ShortConflictingPhone_CreatesDistinctRecord(t *testing.T) {
	gw, st := newTestGateway(t)
	ctx := context.Background()

	first, err := gw.Ingest(ctx, &model.Contractor{
		Name:             "Acme Plumbing",
		Category:         model.CategoryPlumber,
		Phone:            "(304) 555-0100",
		Email:            "info@acme.com",
		Source:           "web_scrape",
		LocationSearched: "Martinsburg, WV",
	})
	require.NoError(t, err)
	require.Equal(t, ActionCreated, first.Action)

	// Shared email, but a differing partial phone: a different
	// business, so a second record is created rather than merged.
	second, err := gw.Ingest(ctx, &model.Contractor{
		Name:             "Acme Plumbing East",
		Category:         model.CategoryPlumber,
		Phone:            "555-0199",
		Email:            "info@acme.com",
		Source:           "web_scrape",
		LocationSearched: "Martinsburg, WV",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, second.Action)
	assert.NotEqual(t, first.ID, second.ID)

	all, err := st.AllContractors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGateway_Ingest_MergesFillsGapsOnly(t *testing.T) {
	gw, st := newTestGateway(t)
	ctx := context.Background()

	existing := mustCreate(t, st, model.Contractor{
		Name:  "Smith Plumbing",
		Phone: "(304) 555-0100",
		City:  "Martinsburg",
	})

	result, err := gw.Ingest(ctx, &model.Contractor{
		Name:     "Smith Plumbing LLC",
		Category: model.CategoryPlumber,
		Phone:    "304-555-0100",
		Email:    "info@smith.com",
		City:     "Shepherdstown",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionMerged, result.Action)
	assert.Equal(t, existing.ID, result.ID)
	assert.Equal(t, 1, result.Filled)

	got, err := st.GetContractor(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "info@smith.com", got.Email)
	assert.Equal(t, "Martinsburg", got.City)
	assert.Equal(t, "(304) 555-0100", got.Phone)
}

func TestGateway_Ingest_SkipsPureDuplicate(t *testing.T) {
	gw, st := newTestGateway(t)

	existing := mustCreate(t, st, model.Contractor{
		Name:  "Smith Plumbing",
		Phone: "3045550100",
		Email: "info@smith.com",
	})

	result, err := gw.Ingest(context.Background(), &model.Contractor{
		Name:  "Smith Plumbing",
		Phone: "3045550100",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, result.Action)
	assert.Equal(t, existing.ID, result.ID)
}

func TestGateway_Ingest_RequiresName(t *testing.T) {
	gw, _ := newTestGateway(t)

	_, err := gw.Ingest(context.Background(), &model.Contractor{Phone: "3045550100"})
	require.Error(t, err)
}

func TestGateway_Ingest_ConcurrentSamePhone_SingleRecord(t *testing.T) {
	gw, st := newTestGateway(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.Ingest(ctx, &model.Contractor{
				Name:             "Smith Plumbing",
				Category:         model.CategoryPlumber,
				Phone:            "(304) 555-0100",
				Source:           "web_scrape",
				LocationSearched: "Martinsburg, WV",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := st.AllContractors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGateway_ApplyEnrichment(t *testing.T) {
	gw, st := newTestGateway(t)
	ctx := context.Background()

	c := mustCreate(t, st, model.Contractor{Name: "Smith Plumbing"})

	err := gw.ApplyEnrichment(ctx, c.ID, store.EnrichmentUpdate{
		OwnerName:  "John Smith",
		Confidence: 0.75,
	})
	require.NoError(t, err)

	got, err := st.GetContractor(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Enriched)
	assert.Equal(t, "John Smith", got.OwnerName)
}
