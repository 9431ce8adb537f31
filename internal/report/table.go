// Package report renders TestCase state as tables for the CLI: rounded
// borders, status-colored cells, a trailing summary row.
package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vvtest/internal/testcase"
	strutil "vvtest/pkg/strings"
)

// testIDMaxLen bounds the TEST column so a long execute-directory path
// doesn't blow out the table width; strutil.TruncateDescription keeps it
// single-line and rune-safe.
const testIDMaxLen = 72

func createTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func statusColor(status testcase.TestStatus) text.Colors {
	switch status {
	case testcase.StatusPass:
		return text.Colors{text.FgGreen}
	case testcase.StatusDiff:
		return text.Colors{text.FgYellow}
	case testcase.StatusFail, testcase.StatusTimeout, testcase.StatusNotDone:
		return text.Colors{text.FgRed}
	case testcase.StatusRunning:
		return text.Colors{text.FgCyan}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

// FormatList renders one row per test case: id, status, elapsed, resources,
// with a header row and a trailing "Total: N" summary line.
func FormatList(cases []*testcase.TestCase) string {
	if len(cases) == 0 {
		return fmt.Sprintf("%s %s\n", text.FgYellow.Sprint("-"), text.FgYellow.Sprint("no tests found"))
	}

	t := createTable()
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("NP"),
		text.FgHiCyan.Sprint("ELAPSED"),
	})

	counts := make(map[testcase.TestStatus]int)
	for _, tc := range cases {
		status := tc.Status()
		counts[status]++
		np, _, _ := tc.Allocation()
		elapsed := "-"
		if e := tc.Elapsed(); e > 0 {
			elapsed = e.Round(1e9 / 10).String()
		}
		t.AppendRow(table.Row{
			strutil.TruncateDescription(string(tc.ID()), testIDMaxLen),
			statusColor(status).Sprint(status.String()),
			np,
			elapsed,
		})
	}

	var result strings.Builder
	t.SetOutputMirror(&result)
	t.Render()

	result.WriteString(fmt.Sprintf("\n%s %s %s", text.FgHiBlue.Sprint("Total:"), text.FgHiWhite.Sprint(len(cases)), text.FgHiBlue.Sprint("tests")))
	for _, st := range []testcase.TestStatus{testcase.StatusPass, testcase.StatusDiff, testcase.StatusFail, testcase.StatusTimeout, testcase.StatusNotDone} {
		if n := counts[st]; n > 0 {
			result.WriteString(fmt.Sprintf("  %s=%d", st.String(), n))
		}
	}
	result.WriteString("\n")

	return result.String()
}

// FormatSummary renders the single-line exit-code summary a run prints at
// completion.
func FormatSummary(cases []*testcase.TestCase, exitCode int) string {
	counts := make(map[testcase.TestStatus]int)
	for _, tc := range cases {
		counts[tc.Status()]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d tests:", len(cases))
	for _, st := range []testcase.TestStatus{testcase.StatusPass, testcase.StatusDiff, testcase.StatusFail, testcase.StatusTimeout, testcase.StatusNotDone, testcase.StatusNotRun} {
		if n := counts[st]; n > 0 {
			fmt.Fprintf(&b, " %s=%d", st.String(), n)
		}
	}
	fmt.Fprintf(&b, " (exit %d)", exitCode)
	return b.String()
}
