package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vvtest/internal/batch"
	"vvtest/internal/executor"
	"vvtest/internal/executor/script"
	"vvtest/internal/journal"
	"vvtest/internal/testcase"
	"vvtest/pkg/logging"
)

// BatchConfig selects and tunes the indirect (queue-submitted) run path:
// every ready test is staged exactly as direct mode stages it, then
// submitted to Adapter as its own single-test Job instead of being forked
// locally by the core-bucketed scheduler.
type BatchConfig struct {
	Adapter       batch.Adapter
	CheckInterval time.Duration
	MaxConcurrent int
}

// batchJob tracks the direct-mode bookkeeping a submitted Job still needs
// once it reaches JobStopped: which TestCase it was, and where to find its
// exit code.
type batchJob struct {
	tc       *testcase.TestCase
	xdir     string
	exitFile string
}

// RunBatch drives the whole active set to completion through bcfg.Adapter
// instead of the local direct-mode scheduler: dependency resolution, status
// bookkeeping, and the journal are unchanged from Start/runLoop, only the
// launch mechanism differs. It blocks until every test reaches a terminal
// status or ctx is cancelled, then returns the same exit-code bitmask Wait
// does.
func (e *Engine) RunBatch(ctx context.Context, bcfg BatchConfig) (int, error) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	defer e.cancel()

	jrnl, err := journal.Create(e.cfg.JournalPath, uuid.New(), time.Now())
	if err != nil {
		return 0, fmt.Errorf("engine: open journal: %w", err)
	}
	e.jrnl = jrnl
	defer func() {
		e.jrnl.WriteFinish(time.Now())
		e.jrnl.Close()
	}()

	if bcfg.CheckInterval <= 0 {
		bcfg.CheckInterval = e.cfg.PollInterval
	}
	mgr := batch.NewManager(bcfg.Adapter, bcfg.CheckInterval, 0, bcfg.MaxConcurrent)

	var mu sync.Mutex
	pending := make(map[string]*batchJob)

	submitReady := func() {
		for _, tc := range e.store.All() {
			if tc.Status() != testcase.StatusReady {
				continue
			}
			job, jc, err := e.stageBatchJob(tc, bcfg)
			if err != nil {
				logging.Error("Engine", err, "failed to stage batch job for %s", tc.ID())
				e.finishOne(tc, testcase.StatusFail)
				continue
			}
			old := tc.Status()
			tc.SetStatus(testcase.StatusRunning)
			e.publish(tc, old, testcase.StatusRunning)

			mu.Lock()
			pending[job.ID.String()] = jc
			mu.Unlock()
			mgr.AddJob(job)
		}
	}

	submitReady()
	if err := mgr.SubmitAll(e.ctx); err != nil {
		logging.ErrorOnce("Engine", err, "batch SubmitAll failed")
	}

	ticker := time.NewTicker(bcfg.CheckInterval)
	defer ticker.Stop()

loop:
	for {
		if e.allTerminal() {
			break
		}
		select {
		case <-e.ctx.Done():
			mgr.CancelSubmitted(context.Background())
			mgr.MarkAllNotStartedDone()
			mu.Lock()
			remaining := make([]*batchJob, 0, len(pending))
			for _, jc := range pending {
				remaining = append(remaining, jc)
			}
			pending = make(map[string]*batchJob)
			mu.Unlock()
			for _, jc := range remaining {
				e.finishOne(jc.tc, testcase.StatusNotDone)
			}
			break loop
		case <-ticker.C:
			if err := mgr.PollOnce(e.ctx); err != nil {
				logging.ErrorOnce("Engine", err, "batch PollOnce failed")
			}
			for _, j := range mgr.Stopped() {
				mu.Lock()
				jc := pending[j.ID.String()]
				delete(pending, j.ID.String())
				mu.Unlock()
				if jc == nil {
					continue
				}
				status := e.collectBatchResult(jc)
				mgr.MarkDone(j, batchResultFromStatus(status))
				e.finishOne(jc.tc, status)
			}
			submitReady()
			if err := mgr.SubmitAll(e.ctx); err != nil {
				logging.ErrorOnce("Engine", err, "batch SubmitAll failed")
			}
		}
	}

	return e.store.ExitCode(), nil
}

// stageBatchJob stages tc's execute directory (identically to direct mode's
// runOne) and renders a single-test Job around it: a job script that
// invokes the test's own executable and records its exit code for
// collectBatchResult to read back once the scheduler reports the job off
// the queue.
func (e *Engine) stageBatchJob(tc *testcase.TestCase, bcfg BatchConfig) (*batch.Job, *batchJob, error) {
	spec := tc.Spec()
	xdir := filepath.Join(e.cfg.ExecuteRoot, tc.Xdir())
	tc.SetRunDir(xdir)
	srcDir := filepath.Join(spec.RootPath, filepath.Dir(spec.FilePath))
	isFirstStage, _ := e.stagePosition(tc)

	execCfg := executor.Config{DiffExitStatus: e.cfg.DiffExitStatus, SkipExitStatus: e.cfg.SkipExitStatus, PreClean: e.cfg.PreClean, PostClean: e.cfg.PostClean}
	if err := executor.StageExecuteDirectory(xdir, srcDir, spec, execCfg, isFirstStage); err != nil {
		return nil, nil, err
	}

	if err := script.WriteFiles(xdir, e.buildScriptData(tc)); err != nil {
		logging.ErrorOnce("Engine", err, "failed to write vvtest_util files for %s", tc.ID())
	}

	np := e.pool.EffectiveCores(spec.NumProcs, spec.NumNodes)
	qtime := batch.ComputeQueueTime([]int{spec.TimeoutSeconds}, 0)

	job := batch.NewJob([]string{string(tc.ID())}, np, qtime)
	job.WorkDir = xdir
	job.ScriptPath = filepath.Join(xdir, "batchjob.sh")
	job.OutputPath = filepath.Join(xdir, "batchjob.log")

	exitFile := filepath.Join(xdir, "batchjob.exitcode")
	cmdPath := filepath.Join(spec.RootPath, spec.FilePath)
	cmd := fmt.Sprintf("%s\necho $? > %s", cmdPath, exitFile)
	if err := bcfg.Adapter.WriteJobScript(job, cmd); err != nil {
		return nil, nil, err
	}

	return job, &batchJob{tc: tc, xdir: xdir, exitFile: exitFile}, nil
}

// collectBatchResult reads the exit code a stopped job's wrapper command
// left behind, classifies it the same way a direct-mode Launch does, and
// applies post-clean. A missing or unparseable exit file means the job's
// process never ran to completion (e.g. the node it landed on died).
func (e *Engine) collectBatchResult(jc *batchJob) testcase.TestStatus {
	data, err := os.ReadFile(jc.exitFile)
	if err != nil {
		logging.ErrorOnce("Engine", err, "missing batch exit code for %s", jc.tc.ID())
		return testcase.StatusNotDone
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		logging.ErrorOnce("Engine", err, "unparseable batch exit code for %s", jc.tc.ID())
		return testcase.StatusNotDone
	}
	status := executor.ClassifyExitStatus(code, e.cfg.DiffExitStatus)

	hasDependents := len(jc.tc.Dependents()) > 0
	_, isLastStage := e.stagePosition(jc.tc)
	execCfg := executor.Config{DiffExitStatus: e.cfg.DiffExitStatus, SkipExitStatus: e.cfg.SkipExitStatus, PreClean: e.cfg.PreClean, PostClean: e.cfg.PostClean}
	if err := executor.FinishExecuteDirectory(jc.xdir, execCfg, status, hasDependents, isLastStage); err != nil {
		logging.ErrorOnce("Engine", err, "post-clean failed for %s", jc.tc.ID())
	}
	return status
}

// batchResultFromStatus maps a TestStatus onto the coarser JobResult the
// Manager's lifecycle bookkeeping tracks.
func batchResultFromStatus(status testcase.TestStatus) batch.JobResult {
	switch status {
	case testcase.StatusPass, testcase.StatusDiff:
		return batch.ResultPass
	case testcase.StatusTimeout, testcase.StatusNotDone:
		return batch.ResultNotDone
	default:
		return batch.ResultFail
	}
}

func (e *Engine) allTerminal() bool {
	for _, tc := range e.store.All() {
		if !tc.Status().IsFinished() {
			return false
		}
	}
	return true
}
