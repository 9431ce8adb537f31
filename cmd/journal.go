package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vvtest/internal/journal"
)

// newJournalCmd creates the `vvtest journal` command group: tail and shell.
func newJournalCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "journal",
		Short: "Inspect a results journal",
	}
	c.AddCommand(newJournalTailCmd())
	c.AddCommand(newJournalShellCmd())
	return c
}

func newJournalTailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail <journal-file>",
		Short: "Print every record in a results journal, inlining any included child journals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := journal.Read(args[0])
			if err != nil {
				return fmt.Errorf("reading journal: %w", err)
			}
			for _, rec := range records {
				printRecord(cmd, rec)
			}
			return nil
		},
	}
}

func printRecord(cmd *cobra.Command, rec journal.Record) {
	out := cmd.OutOrStdout()
	switch rec.Kind {
	case journal.KindStart:
		fmt.Fprintf(out, "start\trun=%s\tdate=%s\n", rec.RunID, rec.RunDate.Format("2006-01-02T15:04:05Z07:00"))
	case journal.KindTest:
		fmt.Fprintf(out, "test\t%s\t%s", rec.TestID, rec.Status)
		for k, v := range rec.Attrs {
			fmt.Fprintf(out, "\t%s=%s", k, v)
		}
		fmt.Fprintln(out)
	case journal.KindFinish:
		fmt.Fprintf(out, "finish\t%s\n", rec.FinishTime.Format("2006-01-02T15:04:05Z07:00"))
	case journal.KindInclude:
		fmt.Fprintf(out, "include\t%s\n", rec.IncludePath)
	}
}
