package batch

import "context"

// JobStatus is a scheduler's report on whether a submitted job is still
// queued/running.
type JobStatus struct {
	InQueue bool
}

// Adapter is the external batch-scheduler collaborator: submit, query,
// cancel, and script generation, modeled on BatchSLURM's method shape in
// the original Slurm backend.
type Adapter interface {
	// NodeShape returns the scheduler's cores-per-node and devices-per-node,
	// used for node-rounding and ComputeNumNodes.
	NodeShape() (coresPerNode, devicesPerNode int)

	// WriteJobScript renders the submittable script for job into
	// job.ScriptPath, embedding cmd as the body invocation.
	WriteJobScript(job *Job, cmd string) error

	// Submit submits the already-written job script and returns the
	// scheduler's own job id.
	Submit(ctx context.Context, job *Job) (schedulerJobID string, err error)

	// Query reports the queue status of every job id in ids, keyed by id.
	Query(ctx context.Context, ids []string) (map[string]JobStatus, error)

	// Cancel cancels every job id in ids.
	Cancel(ctx context.Context, ids []string) error
}
