package batch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// SlurmAdapter submits batches to a Slurm queue via sbatch/squeue/scancel,
// ported from BatchSLURM's header/submit/query/cancel method shapes.
type SlurmAdapter struct {
	CoresPerNode   int
	DevicesPerNode int
	Partition      string
	Account        string
	QoS            string
}

func (a *SlurmAdapter) NodeShape() (int, int) {
	cpn := a.CoresPerNode
	if cpn <= 0 {
		cpn = 1
	}
	return cpn, a.DevicesPerNode
}

// WriteJobScript renders the #SBATCH header plus cmd as the job body.
func (a *SlurmAdapter) WriteJobScript(job *Job, cmd string) error {
	cpn, dpn := a.NodeShape()
	nnodes := ComputeNumNodes(job.NumProcs, 0, cpn, dpn)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "#!/bin/sh\n")
	fmt.Fprintf(&buf, "#SBATCH --time=%s\n", hmsFormat(job.QueueTime))
	fmt.Fprintf(&buf, "#SBATCH --nodes=%d\n", nnodes)
	fmt.Fprintf(&buf, "#SBATCH --output=%s\n", job.OutputPath)
	fmt.Fprintf(&buf, "#SBATCH --error=%s\n", job.OutputPath)
	fmt.Fprintf(&buf, "#SBATCH --chdir=%s\n", job.WorkDir)
	if a.QoS != "" {
		fmt.Fprintf(&buf, "#SBATCH --qos=%s\n", a.QoS)
	}
	fmt.Fprintf(&buf, "\n%s\n", cmd)

	return os.WriteFile(job.ScriptPath, buf.Bytes(), 0o755)
}

func hmsFormat(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Submit runs sbatch and parses the numeric job id from its stdout, ported
// from BatchSLURM.submit's "Submitted batch job <id>" parsing.
func (a *SlurmAdapter) Submit(ctx context.Context, job *Job) (string, error) {
	args := []string{}
	if a.Partition != "" {
		args = append(args, "--partition="+a.Partition)
	}
	if a.Account != "" {
		args = append(args, "--account="+a.Account)
	}
	args = append(args, "--output="+job.OutputPath, "--error="+job.OutputPath, "--chdir="+job.WorkDir, job.ScriptPath)

	cmd := exec.CommandContext(ctx, "sbatch", args...)
	cmd.Dir = job.WorkDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("batch: sbatch failed: %w", err)
	}

	const marker = "Submitted batch job"
	idx := strings.Index(string(out), marker)
	if idx < 0 {
		return "", fmt.Errorf("batch: could not parse sbatch output: %s", out)
	}
	fields := strings.Fields(string(out)[idx+len(marker):])
	if len(fields) == 0 {
		return "", fmt.Errorf("batch: sbatch output missing job id: %s", out)
	}
	return fields[0], nil
}

// Query runs squeue and reports which ids are still listed.
func (a *SlurmAdapter) Query(ctx context.Context, ids []string) (map[string]JobStatus, error) {
	result := make(map[string]JobStatus, len(ids))
	for _, id := range ids {
		result[id] = JobStatus{InQueue: false}
	}
	if len(ids) == 0 {
		return result, nil
	}

	cmd := exec.CommandContext(ctx, "squeue", "--noheader", "--format=%i", "--jobs="+strings.Join(ids, ","))
	out, err := cmd.Output()
	if err != nil {
		// squeue returns non-zero when no jobs match; treat as empty result.
		return result, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if _, ok := result[id]; ok {
			result[id] = JobStatus{InQueue: true}
		}
	}
	return result, nil
}

// Cancel runs scancel on every id.
func (a *SlurmAdapter) Cancel(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]string{}, ids...)
	return exec.CommandContext(ctx, "scancel", args...).Run()
}
