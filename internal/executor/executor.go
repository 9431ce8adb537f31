package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"vvtest/internal/resource"
	"vvtest/internal/testcase"
	"vvtest/pkg/logging"
)

// InterruptToKillTimeout is how long the executor waits after sending
// SIGINT before escalating to SIGTERM.
const InterruptToKillTimeout = 30 * time.Second

// Result is the outcome of a single launched run, decoded from the process's
// wait status.
type Result struct {
	Status     testcase.TestStatus
	ExitStatus int
	TimedOut   bool
	StartTime  time.Time
	StopTime   time.Time
}

// Launch describes one in-flight direct-mode process.
type Launch struct {
	mu sync.Mutex

	cmd       *exec.Cmd
	startTime time.Time
	timeout   time.Duration

	diffExitStatus int

	sentInterrupt bool
	sentTerm      bool
	timedOut      bool
}

// Config carries the run-wide settings the executor needs that don't vary
// per test: the diff/skip exit codes a test script may use, and whether
// pre/post clean are enabled.
type Config struct {
	DiffExitStatus int
	SkipExitStatus int
	PreClean       bool
	PostClean      bool
}

// LaunchProcess starts cmdPath (the test script, wherever it lives) with its
// working directory set to xdir, redirecting stdout+stderr to
// xdir/execute.log, and returns a handle the caller polls with Poll.
func LaunchProcess(xdir, cmdPath string, env ChildEnv, timeout time.Duration, diffExitStatus int) (*Launch, error) {
	logPath := filepath.Join(xdir, "execute.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("executor: open log file %s: %w", logPath, err)
	}

	cmd := exec.Command(cmdPath)
	cmd.Dir = xdir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = env.Build()
	configureProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("executor: launch failed: %w", err)
	}

	go func() {
		cmd.Wait()
		logFile.Close()
	}()

	return &Launch{cmd: cmd, startTime: time.Now(), timeout: timeout, diffExitStatus: diffExitStatus}, nil
}

// Poll checks whether the child has exited and, if not, applies the
// timeout escalation: SIGINT after timeout elapses, SIGTERM after a further
// InterruptToKillTimeout. Returns (result, done).
func (l *Launch) Poll() (Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd.ProcessState != nil {
		return l.buildResult(), true
	}

	elapsed := time.Since(l.startTime)
	if l.timeout > 0 && elapsed > l.timeout {
		l.timedOut = true
		if !l.sentInterrupt {
			l.sentInterrupt = true
			if err := signalProcessGroup(l.cmd.Process.Pid, syscall.SIGINT); err != nil {
				logging.ErrorOnce("Executor", err, "failed to send SIGINT to pid %d", l.cmd.Process.Pid)
			}
		} else if !l.sentTerm && elapsed > l.timeout+InterruptToKillTimeout {
			l.sentTerm = true
			if err := signalProcessGroup(l.cmd.Process.Pid, syscall.SIGTERM); err != nil {
				logging.ErrorOnce("Executor", err, "failed to send SIGTERM to pid %d", l.cmd.Process.Pid)
			}
		}
	}

	return Result{}, false
}

func (l *Launch) buildResult() Result {
	state := l.cmd.ProcessState
	stopTime := time.Now()

	res := Result{StartTime: l.startTime, StopTime: stopTime, TimedOut: l.timedOut}

	if l.timedOut {
		res.Status = testcase.StatusTimeout
		return res
	}

	res.ExitStatus = state.ExitCode()
	res.Status = ClassifyExitStatus(res.ExitStatus, l.diffExitStatus)
	return res
}

// ClassifyExitStatus maps a raw process exit code to a terminal TestStatus:
// 0 is a pass, diffExitStatus is a diff, anything else is a fail. Shared by
// both the direct-mode Launch path and the batch-mode result collector so
// the two execution paths can never disagree on what an exit code means.
func ClassifyExitStatus(exitStatus, diffExitStatus int) testcase.TestStatus {
	switch exitStatus {
	case 0:
		return testcase.StatusPass
	case diffExitStatus:
		return testcase.StatusDiff
	default:
		return testcase.StatusFail
	}
}

// ForwardSignal propagates sig (SIGINT, SIGTERM, or SIGHUP) to the running
// child's process group, for when the engine itself is asked to stop.
func (l *Launch) ForwardSignal(sig syscall.Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd.Process == nil {
		return nil
	}
	return signalProcessGroup(l.cmd.Process.Pid, sig)
}

// StageExecuteDirectory creates the execute directory (if needed), applies
// pre-clean, and stages link/copy files.
func StageExecuteDirectory(xdir, srcDir string, spec *testcase.TestSpec, cfg Config, isFirstStage bool) error {
	if err := os.MkdirAll(xdir, 0o755); err != nil {
		return fmt.Errorf("executor: create execute dir %s: %w", xdir, err)
	}

	if cfg.PreClean && isFirstStage {
		if err := PreClean(xdir); err != nil {
			return err
		}
	}

	if err := LinkFiles(srcDir, xdir, spec.LinkFiles); err != nil {
		return err
	}
	if err := CopyFiles(srcDir, xdir, spec.CopyFiles); err != nil {
		return err
	}
	return nil
}

// FinishExecuteDirectory applies post-clean when the test passed, has no
// dependents, and is at its last stage.
func FinishExecuteDirectory(xdir string, cfg Config, status testcase.TestStatus, hasDependents, isLastStage bool) error {
	if !cfg.PostClean {
		return nil
	}
	if status != testcase.StatusPass || hasDependents || !isLastStage {
		return nil
	}
	return PostClean(xdir)
}

// WriteMachineFile writes a Slurm/MPI-shaped machine file into xdir for the
// cores in h, per the MPI machine-file supplement; it writes nothing when h
// holds no cores. It does not check the node count itself: the engine calls
// it only for multi-node picks.
func WriteMachineFile(xdir string, hostname string, h resource.Handle) error {
	if len(h.CoreIDs) == 0 {
		return nil
	}
	path := filepath.Join(xdir, "machinefile")
	content := fmt.Sprintf("%s slots=%d\n", hostname, len(h.CoreIDs))
	return os.WriteFile(path, []byte(content), 0o644)
}

// RebaselineFiles copies a test's BaselineFiles from the execute directory
// back into the source tree, ported from exechandler.py's
// copyBaselineFiles. No vvtest command calls it.
func RebaselineFiles(xdir, srcDir string, pairs []testcase.FilePair) error {
	for _, pair := range pairs {
		src := filepath.Join(xdir, pair.Source)
		dest := pair.Destination
		if dest == "" {
			dest = pair.Source
		}
		if err := copyFile(filepath.Join(srcDir, dest), src, 0o644); err != nil {
			return fmt.Errorf("executor: rebaseline %s: %w", pair.Source, err)
		}
	}
	return nil
}
