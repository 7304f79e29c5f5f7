package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the operation journal",
	Long: `Show recent store operations recorded in .confidant/journal.db:
environment and version changes, config edits and key migrations,
including failed attempts.

Examples:
  confidant history
  confidant history --limit 50`,
	RunE: runHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	if p.journal == nil {
		return fmt.Errorf("journal unavailable at %s", p.cfg.JournalPath)
	}

	entries, err := p.journal.Entries(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No operations recorded yet")
		return nil
	}

	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()

	tbl := table.New("Time", "Action", "Environment", "Version", "Result")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	tbl.WithWriter(os.Stdout)

	for _, e := range entries {
		result := success("ok")
		if !e.Success {
			result = color.RedString("failed: %s", e.ErrorMessage)
		}
		tbl.AddRow(e.Timestamp.Local().Format(time.RFC3339), e.Action, e.Environment, e.Version, result)
	}
	tbl.Print()
	return nil
}
