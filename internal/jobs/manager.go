// Package jobs orchestrates background collection and enrichment jobs:
// persistence of job rows, cancellation, progress publishing, and
// recovery of jobs orphaned by a restart.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/scraper"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// Thread clamps. Collection tolerates more parallelism than enrichment
// because page fetches are cheap compared to search-plus-LLM lookups.
const (
	MinThreads        = 1
	MaxCollectThreads = 10
	MaxEnrichThreads  = 5
)

// CollectEngine runs one collection pass. Implemented by
// scraper.Engine.
type CollectEngine interface {
	Collect(ctx context.Context, loc model.Location, categories []string, report func(scraper.Progress)) (int, error)
}

// CollectEngineFactory builds an engine with the requested worker
// count.
type CollectEngineFactory func(threads int) CollectEngine

// CollectOptions tunes one collection job.
type CollectOptions struct {
	Threads     int  `json:"threads"`
	EnrichAfter bool `json:"enrich_after"`
}

// handle tracks one running job.
type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns all background jobs in the process.
type Manager struct {
	store      store.Store
	coord      *store.Coordinator
	hub        *progress.Hub
	newEngine  CollectEngineFactory
	newEnrich  EnrichRunnerFactory
	log        *zap.Logger

	mu         sync.Mutex
	collection map[int64]*handle
	enrichment map[int64]*handle
}

// NewManager creates a Manager.
func NewManager(st store.Store, coord *store.Coordinator, hub *progress.Hub,
	newEngine CollectEngineFactory, newEnrich EnrichRunnerFactory) *Manager {
	return &Manager{
		store:      st,
		coord:      coord,
		hub:        hub,
		newEngine:  newEngine,
		newEnrich:  newEnrich,
		log:        zap.L().With(zap.String("component", "jobs")),
		collection: map[int64]*handle{},
		enrichment: map[int64]*handle{},
	}
}

// CollectionTopic names the progress topic for a collection job.
func CollectionTopic(id int64) string {
	return fmt.Sprintf("jobs/%d", id)
}

// EnrichmentTopic names the progress topic for an enrichment job.
func EnrichmentTopic(id int64) string {
	return fmt.Sprintf("enrichment/%d", id)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// StartCollection creates a collection job row and launches it in the
// background. Empty categories means all of them.
func (m *Manager) StartCollection(ctx context.Context, loc model.Location, categories []string, opts CollectOptions) (*model.Job, error) {
	if len(categories) == 0 {
		categories = model.Categories
	}
	threads := clamp(opts.Threads, MinThreads, MaxCollectThreads)

	var job *model.Job
	err := m.coord.Write(func() error {
		var err error
		job, err = m.store.CreateJob(ctx, loc.SearchString(), categories)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "jobs: create collection job")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	m.collection[job.ID] = h
	m.mu.Unlock()

	go m.runCollection(runCtx, h, job, loc, categories, threads, opts.EnrichAfter)
	return job, nil
}

func (m *Manager) runCollection(ctx context.Context, h *handle, job *model.Job, loc model.Location, categories []string, threads int, enrichAfter bool) {
	defer close(h.done)
	defer m.removeCollection(job.ID)

	topic := CollectionTopic(job.ID)
	m.setJobStatus(ctx, job.ID, model.JobStatusRunning, "")
	m.hub.Publish(topic, progress.KindStatus, map[string]any{"status": model.JobStatusRunning})

	engine := m.newEngine(threads)
	total, err := engine.Collect(ctx, loc, categories, func(p scraper.Progress) {
		update := store.JobUpdate{
			TotalFound:      &p.TotalFound,
			Progress:        &p.CategoriesDone,
			CurrentCategory: &p.Category,
		}
		if werr := m.coord.Write(func() error {
			return m.store.UpdateJob(context.Background(), job.ID, update)
		}); werr != nil {
			m.log.Warn("progress update failed", zap.Int64("job", job.ID), zap.Error(werr))
		}
		m.hub.Publish(topic, progress.KindProgress, p)
	})

	switch {
	case ctx.Err() != nil:
		m.setJobStatus(ctx, job.ID, model.JobStatusCancelled, "")
		m.hub.Publish(topic, progress.KindStatus, map[string]any{"status": model.JobStatusCancelled})
	case err != nil:
		m.setJobStatus(ctx, job.ID, model.JobStatusFailed, err.Error())
		m.hub.Publish(topic, progress.KindStatus, map[string]any{
			"status": model.JobStatusFailed,
			"error":  err.Error(),
		})
	default:
		m.setJobStatus(ctx, job.ID, model.JobStatusCompleted, "")
		m.hub.Publish(topic, progress.KindResult, map[string]any{
			"status":      model.JobStatusCompleted,
			"total_found": total,
		})
		m.log.Info("collection job complete",
			zap.Int64("job", job.ID),
			zap.Int("total_found", total))

		if enrichAfter {
			if _, err := m.StartEnrichment(context.Background(), store.EnrichmentFilter{OnlyMissing: true}, EnrichOptions{
				Source: model.EnrichmentSourceDatabase,
			}); err != nil {
				m.log.Warn("follow-up enrichment failed to start",
					zap.Int64("job", job.ID), zap.Error(err))
			}
		}
	}
}

// setJobStatus persists a status transition. A cancelled run context
// must not block the final write, so the store call uses a fresh
// context.
func (m *Manager) setJobStatus(_ context.Context, id int64, status model.JobStatus, errMsg string) {
	update := store.JobUpdate{Status: &status}
	if errMsg != "" {
		update.ErrorMessage = &errMsg
	}
	if err := m.coord.Write(func() error {
		return m.store.UpdateJob(context.Background(), id, update)
	}); err != nil {
		m.log.Error("status update failed",
			zap.Int64("job", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (m *Manager) removeCollection(id int64) {
	m.mu.Lock()
	delete(m.collection, id)
	m.mu.Unlock()
}

// StopCollection cancels a running collection job. It returns false
// when no live handle exists, even if the job row says running.
func (m *Manager) StopCollection(id int64) bool {
	m.mu.Lock()
	h, ok := m.collection[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// WaitCollection blocks until the job goroutine exits. Test helper and
// shutdown path.
func (m *Manager) WaitCollection(id int64) {
	m.mu.Lock()
	h, ok := m.collection[id]
	m.mu.Unlock()
	if ok {
		<-h.done
	}
}

// IsCollectionRunning reports whether a collection job has a live
// handle in this process.
func (m *Manager) IsCollectionRunning(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collection[id]
	return ok
}

// ActiveCollections returns the ids of jobs with live handles.
func (m *Manager) ActiveCollections() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.collection))
	for id := range m.collection {
		ids = append(ids, id)
	}
	return ids
}

// RecoverOrphans marks jobs left pending or running by an unclean
// shutdown as failed. Called once at startup, before any new job runs.
func (m *Manager) RecoverOrphans(ctx context.Context) (int, error) {
	var n int
	err := m.coord.Write(func() error {
		var err error
		n, err = m.store.RecoverOrphans(ctx)
		return err
	})
	if err != nil {
		return 0, eris.Wrap(err, "jobs: recover orphans")
	}
	if n > 0 {
		m.log.Warn("recovered orphaned jobs", zap.Int("count", n))
	}
	return n, nil
}
