package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"vvtest/internal/batch"
	"vvtest/internal/testcase"
)

// fakeBatchAdapter runs a job's script synchronously on Submit and marks it
// outfile-seen immediately, so PollOnce transitions it to stopped without
// waiting on the Manager's real 30s grace period.
type fakeBatchAdapter struct{}

func (f *fakeBatchAdapter) NodeShape() (int, int) { return 1, 0 }

func (f *fakeBatchAdapter) WriteJobScript(job *batch.Job, cmd string) error {
	return os.WriteFile(job.ScriptPath, []byte("#!/bin/sh\n"+cmd+"\n"), 0o755)
}

func (f *fakeBatchAdapter) Submit(ctx context.Context, job *batch.Job) (string, error) {
	exec.CommandContext(ctx, "/bin/sh", job.ScriptPath).Run()
	job.SetOutfileSeen()
	return "fake-" + job.ID.String(), nil
}

func (f *fakeBatchAdapter) Query(ctx context.Context, ids []string) (map[string]batch.JobStatus, error) {
	out := make(map[string]batch.JobStatus, len(ids))
	for _, id := range ids {
		out[id] = batch.JobStatus{InQueue: false}
	}
	return out, nil
}

func (f *fakeBatchAdapter) Cancel(ctx context.Context, ids []string) error { return nil }

func TestEngineRunBatchDrivesTestThroughAdapter(t *testing.T) {
	root := t.TempDir()
	writeTestScript(t, root, "diamond/A.vvt", "exit 0\n")

	spec := &testcase.TestSpec{Name: "A", RootPath: root, FilePath: "diamond/A.vvt", NumProcs: 1}

	execRoot := t.TempDir()
	eng := New(Config{
		ExecuteRoot:  execRoot,
		TotalCores:   2,
		JournalPath:  filepath.Join(execRoot, "results.journal"),
		PollInterval: 10 * time.Millisecond,
	})

	if err := eng.LoadTests(&fakeDiscovery{specs: []*testcase.TestSpec{spec}}); err != nil {
		t.Fatalf("LoadTests: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	code, err := eng.RunBatch(ctx, BatchConfig{Adapter: &fakeBatchAdapter{}, CheckInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	cases := eng.Store().All()
	if len(cases) != 1 || cases[0].Status() != testcase.StatusPass {
		t.Fatalf("expected single passing case, got %+v", cases)
	}
}

func TestEngineRunBatchMarksFailExitCode(t *testing.T) {
	root := t.TempDir()
	writeTestScript(t, root, "diamond/A.vvt", "exit 1\n")

	spec := &testcase.TestSpec{Name: "A", RootPath: root, FilePath: "diamond/A.vvt", NumProcs: 1}

	execRoot := t.TempDir()
	eng := New(Config{
		ExecuteRoot:  execRoot,
		TotalCores:   2,
		JournalPath:  filepath.Join(execRoot, "results.journal"),
		PollInterval: 10 * time.Millisecond,
	})

	if err := eng.LoadTests(&fakeDiscovery{specs: []*testcase.TestSpec{spec}}); err != nil {
		t.Fatalf("LoadTests: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	code, err := eng.RunBatch(ctx, BatchConfig{Adapter: &fakeBatchAdapter{}, CheckInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if code == 0 {
		t.Fatalf("expected non-zero exit code for a failing test, got %d", code)
	}

	cases := eng.Store().All()
	if len(cases) != 1 || cases[0].Status() != testcase.StatusFail {
		t.Fatalf("expected single failing case, got %+v", cases)
	}
}
