// Package batch implements indirect (queue-submitted) test execution,
// replacing direct-mode resource allocation and launch for runs driven by
// an external batch scheduler.
package batch

import (
	"time"

	"github.com/google/uuid"
)

// JobState is a BatchJob's position in the todo -> submitted -> stopped ->
// done lifecycle.
type JobState int

const (
	JobTodo JobState = iota
	JobSubmitted
	JobStopped
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobTodo:
		return "todo"
	case JobSubmitted:
		return "submitted"
	case JobStopped:
		return "stopped"
	case JobDone:
		return "done"
	default:
		return "unknown"
	}
}

// JobResult is the terminal classification Manager.MarkDone (and
// Manager.MarkAllNotStartedDone through it) assigns a finished job.
type JobResult int

const (
	ResultUnknown JobResult = iota
	ResultPass
	ResultNotRun
	ResultNotDone
	ResultFail
)

// Job is one submitted batch of tests: a group sharing one queue
// submission, scheduled and polled as a unit. Mirrors BatchJob/BatchJobHandler
// from the original batching module, minus the language-specific getter
// boilerplate.
type Job struct {
	ID uuid.UUID

	TestIDs   []string
	NumProcs  int
	QueueTime time.Duration

	ScriptPath string
	OutputPath string
	WorkDir    string

	SchedulerJobID string

	State  JobState
	Result JobResult

	StartTime time.Time
	StopTime  time.Time
	CheckTime time.Time

	outfileSeen bool
}

// NewJob creates a batch job in JobTodo for the given test group.
func NewJob(testIDs []string, numProcs int, queueTime time.Duration) *Job {
	return &Job{
		ID:        uuid.New(),
		TestIDs:   testIDs,
		NumProcs:  numProcs,
		QueueTime: queueTime,
		State:     JobTodo,
	}
}

// SetOutfileSeen records that the batch output file has been observed
// (e.g. by the fsnotify watcher in outputwatch.go).
func (j *Job) SetOutfileSeen() { j.outfileSeen = true }

// OutfileSeen reports whether the output file has been observed since
// submission.
func (j *Job) OutfileSeen() bool { return j.outfileSeen }
