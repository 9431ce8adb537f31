package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"vvtest/internal/journal"
)

// newJournalShellCmd creates the interactive read-only console for querying
// a journal file: readline-backed history, tab completion over a small
// fixed command set, graceful Ctrl-C/Ctrl-D handling.
func newJournalShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <journal-file>",
		Short: "Open an interactive console over a results journal",
		Long: `shell loads a journal file and lets you query it interactively:
  list            print every test record
  status <id>     print one test's most recent status
  find <glob>     list test ids matching a shell glob
  exit            leave the shell`,
		Args: cobra.ExactArgs(1),
		RunE: runJournalShell,
	}
}

func runJournalShell(cmd *cobra.Command, args []string) error {
	path := args[0]
	records, err := journal.Read(path)
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}

	latest := make(map[string]journal.Record)
	for _, rec := range records {
		if rec.Kind == journal.KindTest {
			latest[rec.TestID] = rec
		}
	}

	historyFile := filepath.Join(os.TempDir(), ".vvtest_journal_shell_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vvtest journal> ",
		HistoryFile:     historyFile,
		AutoComplete:    journalShellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%d test record(s) loaded from %s. Type 'exit' to quit.\n", len(latest), path)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		runJournalShellCommand(cmd, latest, input)
	}
}

func runJournalShellCommand(cmd *cobra.Command, latest map[string]journal.Record, input string) {
	out := cmd.OutOrStdout()
	fields := strings.Fields(input)
	switch fields[0] {
	case "list":
		for id, rec := range latest {
			fmt.Fprintf(out, "%s\t%s\n", id, rec.Status)
		}
	case "status":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: status <id>")
			return
		}
		rec, ok := latest[fields[1]]
		if !ok {
			fmt.Fprintf(out, "no record for %s\n", fields[1])
			return
		}
		fmt.Fprintf(out, "%s: %s\n", rec.TestID, rec.Status)
	case "find":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: find <glob>")
			return
		}
		for id, rec := range latest {
			if ok, _ := filepath.Match(fields[1], id); ok {
				fmt.Fprintf(out, "%s\t%s\n", id, rec.Status)
			}
		}
	default:
		fmt.Fprintf(out, "unknown command %q (try: list, status, find, exit)\n", fields[0])
	}
}

func journalShellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("status"),
		readline.PcItem("find"),
		readline.PcItem("exit"),
	)
}
