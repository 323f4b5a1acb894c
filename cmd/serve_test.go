package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/contractor"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/scraper"
	"github.com/sells-group/leadgen-cli/internal/store"
)

type stubEngine struct {
	total int
}

func (e *stubEngine) Collect(ctx context.Context, loc model.Location, categories []string, report func(scraper.Progress)) (int, error) {
	report(scraper.Progress{Category: categories[0], CategoriesDone: len(categories), TotalFound: e.total})
	return e.total, nil
}

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, records []model.Contractor, report func(enrich.Progress)) (enrich.Progress, error) {
	p := enrich.Progress{Processed: len(records)}
	report(p)
	return p, nil
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	coord := store.NewCoordinator()
	hub := progress.NewHub()
	gw := contractor.NewGateway(st, coord)

	newEngine := func(threads int) jobs.CollectEngine { return &stubEngine{total: 4} }
	newRunner := func(threads int) jobs.EnrichRunner { return stubRunner{} }

	return &appEnv{
		Store:      st,
		Coord:      coord,
		Hub:        hub,
		Gateway:    gw,
		Manager:    jobs.NewManager(st, coord, hub, newEngine, newRunner),
		Reconciler: contractor.NewReconciler(st, coord),
		Importer:   contractor.NewImporter(gw),
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func seedContractor(t *testing.T, env *appEnv, c model.Contractor) *model.Contractor {
	t.Helper()
	if c.Category == "" {
		c.Category = model.CategoryPlumber
	}
	if c.Source == "" {
		c.Source = "web_scrape"
	}
	if c.LocationSearched == "" {
		c.LocationSearched = "Martinsburg, WV"
	}
	require.NoError(t, env.Store.CreateContractor(context.Background(), &c))
	return &c
}

func TestRouter_Health(t *testing.T) {
	r := newRouter(newTestEnv(t))

	rr := doJSON(t, r, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_ConfigEndpoints(t *testing.T) {
	r := newRouter(newTestEnv(t))

	rr := doJSON(t, r, http.MethodGet, "/api/config/locations", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var locs []model.Location
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &locs))
	assert.Len(t, locs, len(model.DefaultLocations))

	rr = doJSON(t, r, http.MethodGet, "/api/config/categories", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var cats []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	assert.Len(t, cats, len(model.Categories))
	for _, c := range cats {
		if c["value"] == model.CategoryGeneralContractor {
			assert.Equal(t, "General Contractor", c["label"])
		}
	}
}

func TestRouter_ContractorLifecycle(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	seedContractor(t, env, model.Contractor{Name: "Acme Plumbing", Phone: "3045550100"})

	rr := doJSON(t, r, http.MethodGet, "/api/contractors/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Items      []model.Contractor `json:"items"`
		Total      int                `json:"total"`
		TotalPages int                `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	rr = doJSON(t, r, http.MethodGet, "/api/contractors/1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, r, http.MethodDelete, "/api/contractors/1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, r, http.MethodGet, "/api/contractors/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CleanupLocation_RequiresStates(t *testing.T) {
	r := newRouter(newTestEnv(t))

	rr := doJSON(t, r, http.MethodPost, "/api/cleanup-location", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_CleanupLocation_Removes(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	seedContractor(t, env, model.Contractor{Name: "WV Plumber", State: "WV", Phone: "3045550100"})
	seedContractor(t, env, model.Contractor{Name: "OH Plumber", State: "OH", Phone: "6145550200"})

	rr := doJSON(t, r, http.MethodPost, "/api/cleanup-location", map[string]any{
		"remove_states": []string{"OH"},
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Deleted)
}

func TestRouter_CleanupDuplicates_ReportsRecordsUpdated(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	seedContractor(t, env, model.Contractor{Name: "Acme Plumbing", Phone: "3045550100"})
	seedContractor(t, env, model.Contractor{Name: "Acme Plumbing LLC", Phone: "3045550100",
		Email: "info@acme.com", City: "Martinsburg"})

	rr := doJSON(t, r, http.MethodPost, "/api/cleanup-duplicates", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Removed        int `json:"duplicates_removed"`
		RecordsUpdated int `json:"records_updated"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)
	// One surviving record absorbed fields, however many columns it took.
	assert.Equal(t, 1, resp.RecordsUpdated)
}

func TestRouter_JobLifecycle(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)

	rr := doJSON(t, r, http.MethodPost, "/api/jobs/", map[string]any{
		"location_id": 1,
		"categories":  []string{model.CategoryPlumber},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var job model.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, "Martinsburg, WV", job.Location)

	env.Manager.WaitCollection(job.ID)

	rr = doJSON(t, r, http.MethodGet, "/api/jobs/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 4, job.TotalFound)

	// Deleting a finished job removes it.
	rr = doJSON(t, r, http.MethodDelete, "/api/jobs/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, r, http.MethodGet, "/api/jobs/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CreateJob_BadLocation(t *testing.T) {
	r := newRouter(newTestEnv(t))

	rr := doJSON(t, r, http.MethodPost, "/api/jobs/", map[string]any{
		"location": "nowhere",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_EnrichmentJob_NoCandidates(t *testing.T) {
	r := newRouter(newTestEnv(t))

	rr := doJSON(t, r, http.MethodPost, "/api/enrichment-jobs/", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no records need enrichment")
}

func TestRouter_EnrichmentJob_Runs(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	seedContractor(t, env, model.Contractor{Name: "Acme Plumbing", Phone: "3045550100"})

	rr := doJSON(t, r, http.MethodPost, "/api/enrichment-jobs/", map[string]any{})
	require.Equal(t, http.StatusCreated, rr.Code)
	var job model.EnrichmentJob
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, 1, job.TotalRecords)

	env.Manager.WaitEnrichment(job.ID)

	rr = doJSON(t, r, http.MethodGet, "/api/enrichment-jobs/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestRouter_ImportAndExport(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)

	csv := "Business Name,Phone,City,State\nAcme Plumbing,(304) 555-0100,Martinsburg,WV\n"
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Report contractor.ImportReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Report.Created)

	rr = doJSON(t, r, http.MethodGet, "/api/export?state=WV", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "contractors_WV.csv")
	assert.Contains(t, rr.Body.String(), "Acme Plumbing")
}

func TestRouter_Stats(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	seedContractor(t, env, model.Contractor{Name: "Acme Plumbing", Phone: "3045550100"})

	rr := doJSON(t, r, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalContractors)

	rr = doJSON(t, r, http.MethodGet, "/api/stats/enrichment", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_StreamCollectionProgress(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)

	rr := doJSON(t, r, http.MethodPost, "/api/jobs/", map[string]any{"location_id": 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	var job model.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	env.Manager.WaitCollection(job.ID)

	// Publish a terminal event after the subscriber attaches so the
	// stream ends deterministically.
	go func() {
		time.Sleep(50 * time.Millisecond)
		env.Hub.Publish(jobs.CollectionTopic(job.ID), progress.KindResult, map[string]any{"total_found": 4})
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/progress/jobs/1", nil)
	sr := httptest.NewRecorder()
	r.ServeHTTP(sr, req)

	assert.Equal(t, http.StatusOK, sr.Code)
	assert.Contains(t, sr.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, sr.Body.String(), "data: ")
	assert.Contains(t, sr.Body.String(), "result")
}

func TestRouter_StreamProgress_UnknownJob(t *testing.T) {
	r := newRouter(newTestEnv(t))

	rr := doJSON(t, r, http.MethodGet, "/api/progress/jobs/99", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResolveLocation(t *testing.T) {
	loc, err := resolveLocation(2, "")
	require.NoError(t, err)
	assert.Equal(t, "Charles Town", loc.City)

	loc, err = resolveLocation(0, "Berkeley County, WV")
	require.NoError(t, err)
	assert.Equal(t, "Martinsburg", loc.City)

	loc, err = resolveLocation(0, "Frederick, md")
	require.NoError(t, err)
	assert.Equal(t, "Frederick", loc.City)
	assert.Equal(t, "MD", loc.State)

	_, err = resolveLocation(0, "")
	assert.Error(t, err)
}
