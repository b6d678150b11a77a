package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/journal"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest run recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return errors.New("the run journal is disabled")
			}

			j, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			run, err := j.LatestRun(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, run, func(w io.Writer) error { return printRunSummary(w, run) })
		},
	}
}

func printRunSummary(w io.Writer, run *journal.RunSummary) error {
	finished := "running"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(time.RFC3339)
	}
	if _, err := fmt.Fprintf(w, "run %s started %s, finished %s (dry run: %t)\n%d tables, %d loaded, %d failed\n\n",
		run.ID, run.StartedAt.Format(time.RFC3339), finished, run.DryRun, run.Total, run.Loaded, run.Failed); err != nil {
		return err
	}
	rows := make([][]string, len(run.Tables))
	for i, t := range run.Tables {
		n := "-"
		if t.Rows != nil {
			n = strconv.FormatInt(*t.Rows, 10)
		}
		rows[i] = []string{t.Schema, t.Name, t.State, n, t.Error}
	}
	return printTable(w, []string{"schema", "table", "state", "rows", "error"}, rows)
}
