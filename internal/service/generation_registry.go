package service

import (
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// jobEntry guards one job. Only the worker running the job writes to it.
type jobEntry struct {
	mu  sync.Mutex
	job models.GenerationJob
}

func (e *jobEntry) snapshot() models.GenerationJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneJob(e.job)
}

func (e *jobEntry) update(fn func(job *models.GenerationJob)) models.GenerationJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.job)
	return cloneJob(e.job)
}

// jobRegistry is the in-memory job table. Readers never wait on a running solver.
type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*jobEntry)}
}

func (r *jobRegistry) add(job models.GenerationJob) *jobEntry {
	entry := &jobEntry{job: job}
	r.mu.Lock()
	r.jobs[job.ID] = entry
	r.mu.Unlock()
	return entry
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

func (r *jobRegistry) get(id string) (*jobEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.jobs[id]
	return entry, ok
}

// list returns snapshots, newest first.
func (r *jobRegistry) list() []models.GenerationJob {
	r.mu.RLock()
	entries := make([]*jobEntry, 0, len(r.jobs))
	for _, entry := range r.jobs {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	out := make([]models.GenerationJob, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// prune drops terminal jobs that finished before cutoff and returns their ids.
func (r *jobRegistry) prune(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, entry := range r.jobs {
		job := entry.snapshot()
		if !job.Status.Terminal() || job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		delete(r.jobs, id)
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return removed
}

func cloneJob(job models.GenerationJob) models.GenerationJob {
	out := job
	out.Request.CourseIDs = append([]string(nil), job.Request.CourseIDs...)
	if job.Result != nil {
		result := *job.Result
		result.Conflicts = make([]models.ConflictRecord, len(job.Result.Conflicts))
		copy(result.Conflicts, job.Result.Conflicts)
		out.Result = &result
	}
	if job.Error != nil {
		msg := *job.Error
		out.Error = &msg
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		out.StartedAt = &t
	}
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
