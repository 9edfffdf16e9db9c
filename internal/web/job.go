package web

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rcheck/internal/config"
	"rcheck/internal/pipeline"
	"rcheck/internal/recognition"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is one batch check: a set of files crossed with the configured providers.
type Job struct {
	ID          string
	Files       []string
	Config      config.Config
	Status      JobStatus
	Total       int
	Outcomes    []pipeline.Outcome
	Active      map[int]ActiveTask // by task index
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	cancel context.CancelFunc
}

// ActiveTask is a task a worker is currently processing.
type ActiveTask struct {
	Worker   int
	File     string
	Provider recognition.Kind
}

// Progress is the number of finished tasks.
func (j *Job) Progress() int { return len(j.Outcomes) }

func (j *Job) snapshot() *Job {
	c := *j
	c.Files = append([]string(nil), j.Files...)
	c.Outcomes = append([]pipeline.Outcome(nil), j.Outcomes...)
	if j.Active != nil {
		c.Active = make(map[int]ActiveTask, len(j.Active))
		for k, v := range j.Active {
			c.Active[k] = v
		}
	}
	c.cancel = nil
	return &c
}

// setStatus moves the job to s unless it already finished, stamping the
// start and completion times. It reports whether the status changed.
func (j *Job) setStatus(s JobStatus) bool {
	if j.Status.Done() || j.Status == s {
		return false
	}
	now := time.Now()
	j.Status = s
	if s == StatusRunning && j.StartedAt == nil {
		j.StartedAt = &now
	}
	if s.Done() {
		j.CompletedAt = &now
		j.Active = nil
	}
	return true
}

// JobManager keeps check jobs in memory and fans their updates out to
// websocket listeners. Readers only ever see snapshots.
type JobManager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	listeners map[string][]chan *Job
	retention time.Duration
}

const jobRetention = 1 * time.Hour

func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*Job),
		listeners: make(map[string][]chan *Job),
		retention: jobRetention,
	}
}

// StartCleanup starts a background goroutine that removes old finished jobs.
// Stops when ctx is cancelled.
func (jm *JobManager) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				jm.cleanup(time.Now())
			}
		}
	}()
}

func (jm *JobManager) cleanup(now time.Time) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := now.Add(-jm.retention)
	for id, job := range jm.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(jm.jobs, id)
			delete(jm.listeners, id)
		}
	}
}

// CreateJob registers a pending job checking files against total tasks.
func (jm *JobManager) CreateJob(files []string, cfg config.Config, total int) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        "job_" + uuid.NewString(),
		Files:     files,
		Config:    cfg,
		Status:    StatusPending,
		Total:     total,
		CreatedAt: time.Now(),
	}
	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob returns a snapshot of the job.
func (jm *JobManager) GetJob(id string) (*Job, error) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, ok := jm.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job.snapshot(), nil
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
	return jobs
}

// Start marks the job running and stores its cancel function. It returns
// false, after calling cancel, when the job was cancelled before it started.
func (jm *JobManager) Start(id string, cancel context.CancelFunc) bool {
	started := false
	err := jm.update(id, func(j *Job) {
		j.cancel = cancel
		started = j.setStatus(StatusRunning)
	})
	if err != nil || !started {
		cancel()
		return false
	}
	return true
}

// StartTask records that worker picked up t.
func (jm *JobManager) StartTask(id string, worker int, t pipeline.Task) {
	jm.update(id, func(j *Job) {
		if j.Status.Done() {
			return
		}
		if j.Active == nil {
			j.Active = make(map[int]ActiveTask)
		}
		j.Active[t.Index] = ActiveTask{Worker: worker, File: filepath.Base(t.Path), Provider: t.Provider.Kind()}
	})
}

// AddOutcome records a finished task.
func (jm *JobManager) AddOutcome(id string, o pipeline.Outcome) {
	jm.update(id, func(j *Job) {
		delete(j.Active, o.Index)
		j.Outcomes = append(j.Outcomes, o)
	})
}

// Finish moves the job to a terminal status. A job that already finished
// keeps its status.
func (jm *JobManager) Finish(id string, status JobStatus, err error) {
	jm.update(id, func(j *Job) {
		if j.setStatus(status) && err != nil {
			j.Error = err.Error()
		}
	})
}

// Cancel stops a running job and marks it cancelled.
func (jm *JobManager) Cancel(id string) (*Job, error) {
	var snap *Job
	err := jm.update(id, func(j *Job) {
		if j.cancel != nil {
			j.cancel()
		}
		j.setStatus(StatusCancelled)
		snap = j.snapshot()
	})
	return snap, err
}

func (jm *JobManager) update(id string, fn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	fn(job)
	jm.notifyListeners(id, job.snapshot())
	return nil
}

// Subscribe subscribes to job updates
func (jm *JobManager) Subscribe(jobID string) <-chan *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	ch := make(chan *Job, 10)
	jm.listeners[jobID] = append(jm.listeners[jobID], ch)
	return ch
}

// Unsubscribe removes a listener
func (jm *JobManager) Unsubscribe(jobID string, ch <-chan *Job) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	listeners := jm.listeners[jobID]
	for i, listener := range listeners {
		if listener == ch {
			jm.listeners[jobID] = append(listeners[:i], listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners never blocks. A slow listener misses intermediate
// snapshots, but a terminal one evicts the oldest queued snapshot.
func (jm *JobManager) notifyListeners(jobID string, snap *Job) {
	for _, ch := range jm.listeners[jobID] {
		select {
		case ch <- snap:
			continue
		default:
		}
		if !snap.Status.Done() {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
