package batch

import (
	"context"
	"testing"
	"time"
)

type fakeAdapter struct {
	submitCount int
	inQueue     map[string]bool
}

func (f *fakeAdapter) NodeShape() (int, int) { return 1, 0 }
func (f *fakeAdapter) WriteJobScript(job *Job, cmd string) error { return nil }
func (f *fakeAdapter) Submit(ctx context.Context, job *Job) (string, error) {
	f.submitCount++
	id := "job-" + job.ID.String()
	if f.inQueue == nil {
		f.inQueue = make(map[string]bool)
	}
	f.inQueue[id] = true
	return id, nil
}
func (f *fakeAdapter) Query(ctx context.Context, ids []string) (map[string]JobStatus, error) {
	out := make(map[string]JobStatus, len(ids))
	for _, id := range ids {
		out[id] = JobStatus{InQueue: f.inQueue[id]}
	}
	return out, nil
}
func (f *fakeAdapter) Cancel(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.inQueue, id)
	}
	return nil
}

func TestManagerSubmitAllTransitionsToSubmitted(t *testing.T) {
	adapter := &fakeAdapter{}
	mgr := NewManager(adapter, time.Second, 5*time.Second, 4)

	job := NewJob([]string{"diamond/A"}, 4, time.Minute)
	mgr.AddJob(job)

	if err := mgr.SubmitAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	todo, submitted, _, _ := mgr.Counts()
	if todo != 0 || submitted != 1 {
		t.Fatalf("expected 0 todo/1 submitted, got %d/%d", todo, submitted)
	}
}

func TestManagerPollOnceTransitionsToStoppedWhenOffQueue(t *testing.T) {
	adapter := &fakeAdapter{}
	mgr := NewManager(adapter, time.Second, 5*time.Second, 4)

	job := NewJob([]string{"diamond/A"}, 4, time.Minute)
	mgr.AddJob(job)
	mgr.SubmitAll(context.Background())

	delete(adapter.inQueue, job.SchedulerJobID)
	job.StartTime = time.Now().Add(-time.Minute) // force past the 30s grace

	if err := mgr.PollOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, submitted, stopped, _ := mgr.Counts()
	if submitted != 0 || stopped != 1 {
		t.Fatalf("expected job to transition to stopped, got submitted=%d stopped=%d", submitted, stopped)
	}
}

func TestManagerMarkAllNotStartedDone(t *testing.T) {
	adapter := &fakeAdapter{}
	mgr := NewManager(adapter, time.Second, 5*time.Second, 4)
	mgr.AddJob(NewJob([]string{"a"}, 1, time.Minute))
	mgr.AddJob(NewJob([]string{"b"}, 1, time.Minute))

	jobs := mgr.MarkAllNotStartedDone()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs marked done, got %d", len(jobs))
	}
	todo, _, _, done := mgr.Counts()
	if todo != 0 || done != 2 {
		t.Fatalf("expected 0 todo/2 done, got %d/%d", todo, done)
	}
}
