package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewListCmd(t *testing.T) {
	listCmd := newListCmd()
	if listCmd.Use != "list [test-root]" {
		t.Errorf("unexpected Use: %s", listCmd.Use)
	}
	if listCmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestRunListPrintsDiscoveredTests(t *testing.T) {
	root := t.TempDir()
	writeScript(t, filepath.Join(root, "diamond", "A.vvt"))
	writeScript(t, filepath.Join(root, "diamond", "B.vvt"))

	listCmd := newListCmd()
	var buf bytes.Buffer
	listCmd.SetOut(&buf)
	listCmd.SetArgs([]string{root})

	if err := listCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := buf.String()
	if len(out) == 0 {
		t.Fatal("expected non-empty output")
	}
}
