package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vvtest/internal/discovery"
	"vvtest/internal/report"
	"vvtest/internal/testcase"
)

// newListCmd creates the Cobra command that discovers tests rooted at the
// given directory and prints them in a table without running anything.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [test-root]",
		Short: "List discovered tests without running them",
		Long: `list walks the given directory for test scripts and prints each one
in a table alongside its current status (always notrun for a fresh list,
since nothing has executed yet).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	disc := &discovery.WalkDiscovery{Root: root}
	specs, err := disc.ActiveSpecs()
	if err != nil {
		return fmt.Errorf("discovering tests: %w", err)
	}

	store := testcase.NewStore()
	for _, spec := range specs {
		if _, err := store.Register(spec); err != nil {
			return fmt.Errorf("registering %s: %w", spec.Name, err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.FormatList(store.All()))
	return nil
}
