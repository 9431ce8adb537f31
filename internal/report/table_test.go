package report

import (
	"strings"
	"testing"

	"vvtest/internal/testcase"
)

func newCase(t *testing.T, name string, status testcase.TestStatus) *testcase.TestCase {
	t.Helper()
	spec := &testcase.TestSpec{Name: name, RootPath: "/root", FilePath: name + ".vvt"}
	id := testcase.NewTestID(spec)
	tc := testcase.NewTestCase(id, spec)
	tc.SetStatus(status)
	return tc
}

func TestFormatListIncludesEveryCaseAndSummary(t *testing.T) {
	cases := []*testcase.TestCase{
		newCase(t, "diamond/A", testcase.StatusPass),
		newCase(t, "diamond/B", testcase.StatusFail),
	}

	out := FormatList(cases)
	if !strings.Contains(out, "diamond/A") || !strings.Contains(out, "diamond/B") {
		t.Fatalf("expected both test ids in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Total:") {
		t.Fatalf("expected summary line, got:\n%s", out)
	}
}

func TestFormatListHandlesEmptySet(t *testing.T) {
	out := FormatList(nil)
	if !strings.Contains(out, "no tests found") {
		t.Fatalf("expected empty-set message, got:\n%s", out)
	}
}

func TestFormatSummaryIncludesExitCode(t *testing.T) {
	cases := []*testcase.TestCase{
		newCase(t, "diamond/A", testcase.StatusPass),
		newCase(t, "diamond/B", testcase.StatusDiff),
	}
	out := FormatSummary(cases, 2)
	if !strings.Contains(out, "exit 2") {
		t.Fatalf("expected exit code in summary, got: %s", out)
	}
	if !strings.Contains(out, "pass=1") || !strings.Contains(out, "diff=1") {
		t.Fatalf("expected per-status counts, got: %s", out)
	}
}
