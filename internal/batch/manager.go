package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vvtest/pkg/logging"
)

// stoppedGraceSeconds is how long after submission a job absent from the
// scheduler's queue waits before being declared stopped even without its
// output file having been seen, per _check_stopped_job.
const stoppedGraceSeconds = 30 * time.Second

// Manager owns every Job's lifecycle: todo -> submitted -> stopped -> done.
// It mirrors BatchJobHandler's four state maps, replacing Python's
// dict-of-dicts with typed maps under one mutex.
type Manager struct {
	mu sync.Mutex

	adapter       Adapter
	checkInterval time.Duration
	checkTimeout  time.Duration
	maxConcurrent int

	todo      map[string]*Job
	submitted map[string]*Job
	stopped   map[string]*Job
	done      map[string]*Job
}

// NewManager builds a Manager over adapter, polling submitted jobs every
// checkInterval and allowing maxConcurrent simultaneous submit calls in
// SubmitAll (PollOnce issues a single Query call per poll).
func NewManager(adapter Adapter, checkInterval, checkTimeout time.Duration, maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Manager{
		adapter:       adapter,
		checkInterval: checkInterval,
		checkTimeout:  checkTimeout,
		maxConcurrent: maxConcurrent,
		todo:          make(map[string]*Job),
		submitted:     make(map[string]*Job),
		stopped:       make(map[string]*Job),
		done:          make(map[string]*Job),
	}
}

// AddJob registers job in JobTodo.
func (m *Manager) AddJob(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.todo[job.ID.String()] = job
}

// SubmitAll submits every todo job concurrently (bounded by maxConcurrent),
// using errgroup instead of a hand-rolled semaphore + WaitGroup pair.
func (m *Manager) SubmitAll(ctx context.Context) error {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.todo))
	for _, j := range m.todo {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxConcurrent)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			id, err := m.adapter.Submit(ctx, job)
			if err != nil {
				logging.ErrorOnce("BatchManager", err, "submit failed for batch %s", job.ID)
				return nil
			}
			m.markStarted(job, id)
			return nil
		})
	}

	return g.Wait()
}

func (m *Manager) markStarted(job *Job, schedulerJobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.todo, job.ID.String())
	job.SchedulerJobID = schedulerJobID
	job.StartTime = time.Now()
	job.State = JobSubmitted
	job.CheckTime = job.StartTime.Add(maxDuration(time.Second, m.checkInterval/10))
	m.submitted[job.ID.String()] = job
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// PollOnce queries every submitted job's scheduler status and transitions
// any that have left the queue to JobStopped, per _check_stopped_job: a job
// absent from the queue is declared stopped once 30s have elapsed since
// submission, or immediately if its output file has already been seen.
func (m *Manager) PollOnce(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.submitted))
	bySchedulerID := make(map[string]*Job, len(m.submitted))
	for _, j := range m.submitted {
		ids = append(ids, j.SchedulerJobID)
		bySchedulerID[j.SchedulerJobID] = j
	}
	m.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	statuses, err := m.adapter.Query(ctx, ids)
	if err != nil {
		logging.ErrorOnce("BatchManager", err, "query failed")
		return nil
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for schedID, job := range bySchedulerID {
		status, ok := statuses[schedID]
		if ok && status.InQueue {
			continue
		}
		elapsed := now.Sub(job.StartTime)
		if elapsed > stoppedGraceSeconds || job.OutfileSeen() {
			m.transitionToStopped(job, now)
		}
	}
	return nil
}

func (m *Manager) transitionToStopped(job *Job, now time.Time) {
	delete(m.submitted, job.ID.String())
	job.StopTime = now
	job.CheckTime = now
	job.State = JobStopped
	m.stopped[job.ID.String()] = job
}

// MarkDone records result for job, moving it to JobDone.
func (m *Manager) MarkDone(job *Job, result JobResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range []map[string]*Job{m.todo, m.submitted, m.stopped} {
		delete(set, job.ID.String())
	}
	job.Result = result
	job.State = JobDone
	m.done[job.ID.String()] = job
}

// MarkAllNotStartedDone declares every still-todo job notrun, for the case
// where the run is shutting down before submission.
func (m *Manager) MarkAllNotStartedDone() []*Job {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.todo))
	for _, j := range m.todo {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	for _, j := range jobs {
		m.MarkDone(j, ResultNotRun)
	}
	return jobs
}

// CancelSubmitted cancels every job still in the submitted state, used on
// shutdown to avoid leaving orphaned queue entries (stuck job cleanup).
func (m *Manager) CancelSubmitted(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.submitted))
	for _, j := range m.submitted {
		ids = append(ids, j.SchedulerJobID)
	}
	m.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	return m.adapter.Cancel(ctx, ids)
}

// Counts returns the size of each lifecycle bucket, for summary reporting.
func (m *Manager) Counts() (todo, submitted, stopped, done int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.todo), len(m.submitted), len(m.stopped), len(m.done)
}

// Stopped returns every job currently in JobStopped, for the results
// collector to read output from.
func (m *Manager) Stopped() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.stopped))
	for _, j := range m.stopped {
		out = append(out, j)
	}
	return out
}
