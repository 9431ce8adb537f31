package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestInitForCLIWritesFormattedOutput(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Info("Scheduler", "picked test %s", "diamond/A")
	Error("Executor", errors.New("boom"), "launch failed for %s", "diamond/A")

	out := buf.String()
	if !strings.Contains(out, "picked test diamond/A") {
		t.Fatalf("expected info message in output, got: %s", out)
	}
	if !strings.Contains(out, "boom") {
		t.Fatalf("expected wrapped error in output, got: %s", out)
	}
}

func TestInitForLiveFeedsChannel(t *testing.T) {
	ch := InitForLive(4)
	defer func() { isLiveMode = false }()

	Warn("Batch", "job %d stopped without finish marker", 7)

	select {
	case entry := <-ch:
		if entry.Subsystem != "Batch" || entry.Level != LevelWarn {
			t.Fatalf("unexpected entry: %+v", entry)
		}
	default:
		t.Fatal("expected a log entry on the live channel")
	}
}

func TestErrorOnceDeduplicates(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)
	seenErrors = make(map[string]bool)

	err := errors.New("adapter unreachable")
	ErrorOnce("BatchAdapter", err, "query failed")
	ErrorOnce("BatchAdapter", err, "query failed")

	count := strings.Count(buf.String(), "adapter unreachable")
	if count != 1 {
		t.Fatalf("expected exactly one logged occurrence, got %d", count)
	}
}

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		LogLevel(99): "UNKNOWN",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}
