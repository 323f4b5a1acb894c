package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/contractor"
	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/store"
)

type server struct {
	env *appEnv
	log *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func intQuery(r *http.Request, key string, def, min, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.env.Store.Stats(r.Context())
	if err != nil {
		s.log.Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) enrichmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.env.Store.EnrichmentStats(r.Context())
	if err != nil {
		s.log.Error("enrichment stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) availableLocations(w http.ResponseWriter, r *http.Request) {
	idx, err := s.env.Store.AvailableLocations(r.Context())
	if err != nil {
		s.log.Error("locations query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "locations query failed")
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *server) configLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.DefaultLocations)
}

func (s *server) configCategories(w http.ResponseWriter, r *http.Request) {
	type categoryOption struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	out := make([]categoryOption, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, categoryOption{Value: c, Label: categoryLabel(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

// categoryLabel turns a category value like "general_contractor" into
// "General Contractor".
func categoryLabel(value string) string {
	words := strings.Split(value, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func (s *server) cleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	report, err := s.env.Reconciler.Reconcile(r.Context())
	if err != nil {
		s.log.Error("duplicate cleanup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"duplicates_removed": report.Removed,
		"records_updated":    report.RecordsUpdated,
		"message":            fmt.Sprintf("Removed %d duplicates, updated %d records", report.Removed, report.RecordsUpdated),
	})
}

func (s *server) cleanupLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		KeepStates   []string `json:"keep_states"`
		RemoveStates []string `json:"remove_states"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.KeepStates) == 0 && len(req.RemoveStates) == 0 {
		writeError(w, http.StatusBadRequest, "provide keep_states or remove_states")
		return
	}

	var deleted int
	err := s.env.Coord.Write(func() error {
		var err error
		deleted, err = s.env.Store.DeleteContractorsByState(r.Context(), req.RemoveStates, req.KeepStates)
		return err
	})
	if err != nil {
		s.log.Error("location cleanup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"message": fmt.Sprintf("Removed %d contractors", deleted),
	})
}

// resolveLocation maps a request to a search target: a known location
// id, a known location name, or a raw "City, ST" string.
func resolveLocation(id int, name string) (model.Location, error) {
	for _, loc := range model.DefaultLocations {
		if id != 0 && loc.ID == id {
			return loc, nil
		}
		if name != "" && strings.EqualFold(loc.Name, name) {
			return loc, nil
		}
	}
	if name == "" {
		return model.Location{}, fmt.Errorf("location is required")
	}
	city, state, ok := strings.Cut(name, ",")
	if !ok {
		return model.Location{}, fmt.Errorf("location must be a known name or City, ST")
	}
	return model.Location{
		Name:  name,
		City:  strings.TrimSpace(city),
		State: strings.ToUpper(strings.TrimSpace(state)),
	}, nil
}

func (s *server) createJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID  int      `json:"location_id"`
		Location    string   `json:"location"`
		Categories  []string `json:"categories"`
		ThreadCount int      `json:"thread_count"`
		EnrichAfter bool     `json:"enrich_after"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := resolveLocation(req.LocationID, req.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.env.Manager.StartCollection(r.Context(), loc, req.Categories, jobs.CollectOptions{
		Threads:     req.ThreadCount,
		EnrichAfter: req.EnrichAfter,
	})
	if err != nil {
		s.log.Error("job create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job create failed")
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50, 1, 100)
	list, err := s.env.Store.ListJobs(r.Context(), limit)
	if err != nil {
		s.log.Error("jobs query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "jobs query failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.env.Store.GetJob(r.Context(), id)
	if err != nil {
		s.log.Error("job query failed", zap.Int64("job", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job query failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// cancelJob applies the status-dependent delete semantics: running jobs
// are stopped, pending jobs are marked cancelled, finished jobs are
// removed.
func (s *server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.env.Store.GetJob(r.Context(), id)
	if err != nil {
		s.log.Error("job query failed", zap.Int64("job", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job query failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch {
	case job.Status == model.JobStatusRunning:
		s.env.Manager.StopCollection(id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
	case job.Status == model.JobStatusPending:
		status := model.JobStatusCancelled
		err := s.env.Coord.Write(func() error {
			return s.env.Store.UpdateJob(r.Context(), id, store.JobUpdate{Status: &status})
		})
		if err != nil {
			s.log.Error("job cancel failed", zap.Int64("job", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "job cancel failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
	default:
		err := s.env.Coord.Write(func() error {
			_, derr := s.env.Store.DeleteJob(r.Context(), id)
			return derr
		})
		if err != nil {
			s.log.Error("job delete failed", zap.Int64("job", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "job delete failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted"})
	}
}

func (s *server) createEnrichmentJob(w http.ResponseWriter, r *http.Request) {
	req := struct {
		ThreadCount int    `json:"thread_count"`
		OnlyMissing *bool  `json:"only_missing"`
		Category    string `json:"category"`
		State       string `json:"state"`
		Limit       int    `json:"limit"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter := store.EnrichmentFilter{
		OnlyMissing: req.OnlyMissing == nil || *req.OnlyMissing,
		Category:    req.Category,
		State:       req.State,
		Limit:       req.Limit,
	}
	job, err := s.env.Manager.StartEnrichment(r.Context(), filter, jobs.EnrichOptions{
		Threads: req.ThreadCount,
	})
	if err != nil {
		if strings.Contains(err.Error(), "no records need enrichment") {
			writeError(w, http.StatusBadRequest, "no records need enrichment")
			return
		}
		s.log.Error("enrichment job create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enrichment job create failed")
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *server) listEnrichmentJobs(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50, 1, 100)
	list, err := s.env.Store.ListEnrichmentJobs(r.Context(), limit)
	if err != nil {
		s.log.Error("enrichment jobs query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "jobs query failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) getEnrichmentJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.env.Store.GetEnrichmentJob(r.Context(), id)
	if err != nil {
		s.log.Error("enrichment job query failed", zap.Int64("job", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job query failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) cancelEnrichmentJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.env.Store.GetEnrichmentJob(r.Context(), id)
	if err != nil {
		s.log.Error("enrichment job query failed", zap.Int64("job", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job query failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch {
	case job.Status == model.JobStatusRunning:
		s.env.Manager.StopEnrichment(id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
	case job.Status == model.JobStatusPending:
		status := model.JobStatusCancelled
		err := s.env.Coord.Write(func() error {
			return s.env.Store.UpdateEnrichmentJob(r.Context(), id, store.EnrichmentJobUpdate{Status: &status})
		})
		if err != nil {
			s.log.Error("enrichment job cancel failed", zap.Int64("job", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "job cancel failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
	default:
		writeError(w, http.StatusConflict, "job already finished")
	}
}

func (s *server) listContractors(w http.ResponseWriter, r *http.Request) {
	filter := store.ContractorFilter{
		Category: r.URL.Query().Get("category"),
		Location: r.URL.Query().Get("location"),
		Search:   r.URL.Query().Get("search"),
		Page:     intQuery(r, "page", 1, 1, 1<<30),
		PerPage:  intQuery(r, "per_page", 50, 1, 100),
	}
	items, total, err := s.env.Store.ListContractors(r.Context(), filter)
	if err != nil {
		s.log.Error("contractors query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "contractors query failed")
		return
	}
	totalPages := (total + filter.PerPage - 1) / filter.PerPage
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"total":       total,
		"page":        filter.Page,
		"per_page":    filter.PerPage,
		"total_pages": totalPages,
	})
}

func (s *server) getContractor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contractor id")
		return
	}
	c, err := s.env.Store.GetContractor(r.Context(), id)
	if err != nil {
		s.log.Error("contractor query failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "contractor query failed")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "contractor not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) deleteContractor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contractor id")
		return
	}
	var deleted int
	werr := s.env.Coord.Write(func() error {
		var derr error
		deleted, derr = s.env.Store.DeleteContractors(r.Context(), []int64{id})
		return derr
	})
	if werr != nil {
		s.log.Error("contractor delete failed", zap.Int64("id", id), zap.Error(werr))
		writeError(w, http.StatusInternalServerError, "contractor delete failed")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "contractor not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contractor deleted"})
}

func (s *server) importCSV(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()
		src = file
	}

	report, err := s.env.Importer.Import(r.Context(), src)
	if err != nil {
		s.log.Error("csv import failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "csv import failed")
		return
	}

	resp := map[string]any{"report": report}
	if r.URL.Query().Get("enrich_after") == "true" && report.Created+report.Merged > 0 {
		job, err := s.env.Manager.StartEnrichment(r.Context(), store.EnrichmentFilter{OnlyMissing: true}, jobs.EnrichOptions{
			Source: model.EnrichmentSourceCSVImport,
		})
		if err != nil {
			s.log.Warn("follow-up enrichment failed to start", zap.Error(err))
		} else {
			resp["enrichment_job_id"] = job.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) exportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := contractor.ExportFilter{
		Category: q.Get("category"),
		Location: q.Get("location"),
		State:    q.Get("state"),
		City:     q.Get("city"),
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", contractor.ExportFilename(filter)))

	if _, err := contractor.ExportCSV(r.Context(), s.env.Store, filter, w); err != nil {
		s.log.Error("csv export failed", zap.Error(err))
	}
}

func (s *server) streamCollectionProgress(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.env.Store.GetJob(r.Context(), id)
	if err != nil || job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.streamTopic(w, r, jobs.CollectionTopic(id))
}

func (s *server) streamEnrichmentProgress(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.env.Store.GetEnrichmentJob(r.Context(), id)
	if err != nil || job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.streamTopic(w, r, jobs.EnrichmentTopic(id))
}

// streamTopic relays hub events for one topic as server-sent events
// until the job reaches a terminal state or the client disconnects.
func (s *server) streamTopic(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.env.Hub.Subscribe(topic)
	defer s.env.Hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.log.Warn("event marshal failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if terminalEvent(ev) {
				return
			}
		}
	}
}

// terminalEvent reports whether an event ends the stream: a final
// result, or a status transition into a terminal state.
func terminalEvent(ev progress.Event) bool {
	if ev.Kind == progress.KindResult {
		return true
	}
	if ev.Kind != progress.KindStatus {
		return false
	}
	data, ok := ev.Data.(map[string]any)
	if !ok {
		return false
	}
	status, ok := data["status"].(model.JobStatus)
	return ok && status.IsTerminal()
}
