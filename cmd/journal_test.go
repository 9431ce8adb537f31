package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"vvtest/internal/journal"
)

func writeJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.journal")
	w, err := journal.Create(path, uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteTest("diamond/A", "pass", map[string]string{"elapsed": "1s"}); err != nil {
		t.Fatalf("WriteTest: %v", err)
	}
	if err := w.WriteFinish(time.Now()); err != nil {
		t.Fatalf("WriteFinish: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestNewJournalCmdHasSubcommands(t *testing.T) {
	journalCmd := newJournalCmd()
	names := make(map[string]bool)
	for _, c := range journalCmd.Commands() {
		names[c.Name()] = true
	}
	if !names["tail"] || !names["shell"] {
		t.Fatalf("expected tail and shell subcommands, got %v", names)
	}
}

func TestJournalTailPrintsRecords(t *testing.T) {
	path := writeJournal(t)

	tailCmd := newJournalTailCmd()
	var buf bytes.Buffer
	tailCmd.SetOut(&buf)
	tailCmd.SetArgs([]string{path})

	if err := tailCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "diamond/A") || !strings.Contains(out, "pass") {
		t.Fatalf("expected test record in output, got: %s", out)
	}
	if !strings.Contains(out, "start") || !strings.Contains(out, "finish") {
		t.Fatalf("expected start/finish records in output, got: %s", out)
	}
}

func TestRunJournalShellCommandList(t *testing.T) {
	latest := map[string]journal.Record{
		"diamond/A": {Kind: journal.KindTest, TestID: "diamond/A", Status: "pass"},
		"diamond/B": {Kind: journal.KindTest, TestID: "diamond/B", Status: "fail"},
	}

	shellCmd := newJournalShellCmd()
	var buf bytes.Buffer
	shellCmd.SetOut(&buf)

	runJournalShellCommand(shellCmd, latest, "status diamond/A")
	if !strings.Contains(buf.String(), "diamond/A: pass") {
		t.Fatalf("expected status output, got: %s", buf.String())
	}
}

func TestRunJournalShellCommandFind(t *testing.T) {
	latest := map[string]journal.Record{
		"diamond/A": {Kind: journal.KindTest, TestID: "diamond/A", Status: "pass"},
		"other/C":   {Kind: journal.KindTest, TestID: "other/C", Status: "pass"},
	}

	shellCmd := newJournalShellCmd()
	var buf bytes.Buffer
	shellCmd.SetOut(&buf)

	runJournalShellCommand(shellCmd, latest, "find diamond/*")
	out := buf.String()
	if !strings.Contains(out, "diamond/A") {
		t.Fatalf("expected diamond/A in find output, got: %s", out)
	}
	if strings.Contains(out, "other/C") {
		t.Fatalf("did not expect other/C in find output, got: %s", out)
	}
}
