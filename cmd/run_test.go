package cmd

import "testing"

func TestNewRunCmd(t *testing.T) {
	runCmd := newRunCmd()
	if runCmd.Use != "run [test-root]" {
		t.Errorf("unexpected Use: %s", runCmd.Use)
	}
	if runCmd.RunE == nil {
		t.Error("expected RunE to be set")
	}

	for _, name := range []string{"config", "execute-root", "quiet"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q to be registered", name)
		}
	}
}
