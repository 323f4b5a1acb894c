package jobs

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// EnrichRunner runs one enrichment batch. Implemented by
// enrich.Enricher.
type EnrichRunner interface {
	Run(ctx context.Context, records []model.Contractor, report func(enrich.Progress)) (enrich.Progress, error)
}

// EnrichRunnerFactory builds a runner with the requested worker count.
type EnrichRunnerFactory func(threads int) EnrichRunner

// EnrichOptions tunes one enrichment job.
type EnrichOptions struct {
	Threads int    `json:"threads"`
	Source  string `json:"source"`
}

// StartEnrichment selects candidate records and launches an enrichment
// job over them.
func (m *Manager) StartEnrichment(ctx context.Context, filter store.EnrichmentFilter, opts EnrichOptions) (*model.EnrichmentJob, error) {
	if opts.Source == "" {
		opts.Source = model.EnrichmentSourceDatabase
	}
	threads := clamp(opts.Threads, MinThreads, MaxEnrichThreads)

	records, err := m.store.ContractorsForEnrichment(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: select enrichment candidates")
	}
	if len(records) == 0 {
		return nil, eris.New("jobs: no records need enrichment")
	}

	var job *model.EnrichmentJob
	err = m.coord.Write(func() error {
		var err error
		job, err = m.store.CreateEnrichmentJob(ctx, len(records), opts.Source)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create enrichment job")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	m.enrichment[job.ID] = h
	m.mu.Unlock()

	go m.runEnrichment(runCtx, h, job, records, threads)
	return job, nil
}

func (m *Manager) runEnrichment(ctx context.Context, h *handle, job *model.EnrichmentJob, records []model.Contractor, threads int) {
	defer close(h.done)
	defer m.removeEnrichment(job.ID)

	topic := EnrichmentTopic(job.ID)
	m.setEnrichmentStatus(job.ID, model.JobStatusRunning, "")
	m.hub.Publish(topic, progress.KindStatus, map[string]any{"status": model.JobStatusRunning})

	runner := m.newEnrich(threads)
	final, err := runner.Run(ctx, records, func(p enrich.Progress) {
		update := store.EnrichmentJobUpdate{
			Processed:       &p.Processed,
			Enriched:        &p.Enriched,
			Failed:          &p.Failed,
			CurrentBusiness: &p.CurrentBusiness,
		}
		if werr := m.coord.Write(func() error {
			return m.store.UpdateEnrichmentJob(context.Background(), job.ID, update)
		}); werr != nil {
			m.log.Warn("enrichment progress update failed",
				zap.Int64("job", job.ID), zap.Error(werr))
		}
		m.hub.Publish(topic, progress.KindProgress, p)
	})

	switch {
	case ctx.Err() != nil:
		m.setEnrichmentStatus(job.ID, model.JobStatusCancelled, "")
		m.hub.Publish(topic, progress.KindStatus, map[string]any{"status": model.JobStatusCancelled})
	case err != nil:
		m.setEnrichmentStatus(job.ID, model.JobStatusFailed, err.Error())
		m.hub.Publish(topic, progress.KindStatus, map[string]any{
			"status": model.JobStatusFailed,
			"error":  err.Error(),
		})
	default:
		m.setEnrichmentStatus(job.ID, model.JobStatusCompleted, "")
		m.hub.Publish(topic, progress.KindResult, map[string]any{
			"status":   model.JobStatusCompleted,
			"enriched": final.Enriched,
			"failed":   final.Failed,
		})
		m.log.Info("enrichment job complete",
			zap.Int64("job", job.ID),
			zap.Int("enriched", final.Enriched),
			zap.Int("failed", final.Failed))
	}
}

func (m *Manager) setEnrichmentStatus(id int64, status model.JobStatus, errMsg string) {
	update := store.EnrichmentJobUpdate{Status: &status}
	if errMsg != "" {
		update.ErrorMessage = &errMsg
	}
	if err := m.coord.Write(func() error {
		return m.store.UpdateEnrichmentJob(context.Background(), id, update)
	}); err != nil {
		m.log.Error("enrichment status update failed",
			zap.Int64("job", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (m *Manager) removeEnrichment(id int64) {
	m.mu.Lock()
	delete(m.enrichment, id)
	m.mu.Unlock()
}

// StopEnrichment cancels a running enrichment job.
func (m *Manager) StopEnrichment(id int64) bool {
	m.mu.Lock()
	h, ok := m.enrichment[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// IsEnrichmentRunning reports whether an enrichment job has a live
// handle in this process.
func (m *Manager) IsEnrichmentRunning(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.enrichment[id]
	return ok
}

// WaitEnrichment blocks until the job goroutine exits.
func (m *Manager) WaitEnrichment(id int64) {
	m.mu.Lock()
	h, ok := m.enrichment[id]
	m.mu.Unlock()
	if ok {
		<-h.done
	}
}
