package web

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rcheck/internal/config"
	"rcheck/internal/pipeline"
	"rcheck/internal/recognition"
)

func newJob(t *testing.T, jm *JobManager) *Job {
	t.Helper()
	return jm.CreateJob([]string{"a.mp3", "b.mp3"}, config.DefaultConfig(), 2)
}

func TestCleanup(t *testing.T) {
	jm := NewJobManager()
	now := time.Now()

	old := newJob(t, jm)
	jm.Finish(old.ID, StatusCompleted, nil)
	// Backdate CompletedAt
	jm.mu.Lock()
	past := now.Add(-2 * time.Hour)
	jm.jobs[old.ID].CompletedAt = &past
	jm.mu.Unlock()

	recent := newJob(t, jm)
	jm.Finish(recent.ID, StatusCompleted, nil)

	// Running jobs are never cleaned
	running := newJob(t, jm)
	jm.Start(running.ID, func() {})

	jm.cleanup(now)

	if _, err := jm.GetJob(old.ID); err == nil {
		t.Error("old completed job should have been cleaned up")
	}
	if _, err := jm.GetJob(recent.ID); err != nil {
		t.Error("recent completed job should NOT have been cleaned up")
	}
	if _, err := jm.GetJob(running.ID); err != nil {
		t.Error("running job should NOT have been cleaned up")
	}
}

func TestCreateJob(t *testing.T) {
	jm := NewJobManager()

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		job := newJob(t, jm)
		if !strings.HasPrefix(job.ID, "job_") {
			t.Fatalf("job ID should start with 'job_', got %q", job.ID)
		}
		if ids[job.ID] {
			t.Fatalf("duplicate job ID: %s", job.ID)
		}
		ids[job.ID] = true
	}

	job := newJob(t, jm)
	if job.Status != StatusPending || job.Total != 2 || job.Progress() != 0 {
		t.Errorf("new job = %+v", job)
	}
}

func TestJobLifecycle(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)

	if !jm.Start(job.ID, func() {}) {
		t.Fatal("Start() = false for a pending job")
	}
	j, _ := jm.GetJob(job.ID)
	if j.Status != StatusRunning || j.StartedAt == nil {
		t.Errorf("after Start: status %s, started %v", j.Status, j.StartedAt)
	}

	jm.AddOutcome(job.ID, pipeline.Outcome{File: "a.mp3", Result: recognition.UnknownResult("AudD")})
	jm.Finish(job.ID, StatusFailed, errors.New("boom"))

	j, _ = jm.GetJob(job.ID)
	if j.Status != StatusFailed || j.Error != "boom" || j.CompletedAt == nil {
		t.Errorf("after Finish: %+v", j)
	}
	if j.Progress() != 1 {
		t.Errorf("progress = %d, want 1", j.Progress())
	}

	// Terminal status sticks
	jm.Finish(job.ID, StatusCompleted, nil)
	j, _ = jm.GetJob(job.ID)
	if j.Status != StatusFailed {
		t.Errorf("status = %s, want failed", j.Status)
	}
}

func TestCancelBeforeStart(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)

	snap, err := jm.Cancel(job.ID)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if snap.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", snap.Status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if jm.Start(job.ID, cancel) {
		t.Error("Start() should refuse a cancelled job")
	}
	if ctx.Err() == nil {
		t.Error("Start() should cancel the context of a refused job")
	}
}

func TestCancelRunningJob(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jm.Start(job.ID, cancel)

	if _, err := jm.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if ctx.Err() == nil {
		t.Error("job context not cancelled")
	}

	if _, err := jm.Cancel("nonexistent"); err == nil {
		t.Error("Cancel should return error for nonexistent job")
	}
}

func TestGetJobReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)
	jm.AddOutcome(job.ID, pipeline.Outcome{File: "a.mp3"})

	snap, _ := jm.GetJob(job.ID)
	snap.Outcomes[0].File = "changed"

	again, _ := jm.GetJob(job.ID)
	if again.Outcomes[0].File != "a.mp3" {
		t.Errorf("snapshot shares outcomes with the job: %q", again.Outcomes[0].File)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)

	ch := jm.Subscribe(job.ID)
	defer jm.Unsubscribe(job.ID, ch)

	jm.Start(job.ID, func() {})

	select {
	case update := <-ch:
		if update.Status != StatusRunning {
			t.Errorf("expected status running, got %s", update.Status)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for update")
	}
}

func TestSubscribeTerminalUpdateNotDropped(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)

	ch := jm.Subscribe(job.ID)
	defer jm.Unsubscribe(job.ID, ch)

	for i := 0; i < 20; i++ {
		jm.AddOutcome(job.ID, pipeline.Outcome{Index: i})
	}
	jm.Finish(job.ID, StatusCompleted, nil)

	var last *Job
	for len(ch) > 0 {
		last = <-ch
	}
	if last == nil || last.Status != StatusCompleted || last.Progress() != 20 {
		t.Errorf("last update = %+v, want completed with 20 outcomes", last)
	}
}

func TestStartTaskTracksActive(t *testing.T) {
	jm := NewJobManager()
	job := newJob(t, jm)
	jm.Start(job.ID, func() {})

	prov := &fakeProvider{kind: recognition.KindAudD}
	jm.StartTask(job.ID, 0, pipeline.Task{Index: 0, Path: "/music/a.mp3", Provider: prov})
	jm.StartTask(job.ID, 1, pipeline.Task{Index: 1, Path: "/music/b.mp3", Provider: prov})

	j, _ := jm.GetJob(job.ID)
	if len(j.Active) != 2 || j.Active[1] != (ActiveTask{Worker: 1, File: "b.mp3", Provider: recognition.KindAudD}) {
		t.Fatalf("active = %+v", j.Active)
	}

	jm.AddOutcome(job.ID, pipeline.Outcome{Index: 0, File: "a.mp3"})
	j, _ = jm.GetJob(job.ID)
	if _, ok := j.Active[0]; ok || len(j.Active) != 1 {
		t.Errorf("finished task still active: %+v", j.Active)
	}

	jm.Finish(job.ID, StatusCompleted, nil)
	j, _ = jm.GetJob(job.ID)
	if len(j.Active) != 0 {
		t.Errorf("completed job has active tasks: %+v", j.Active)
	}
}
