package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/app"
	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

type outcomeView struct {
	Schema   string   `json:"schema" yaml:"schema"`
	Table    string   `json:"table" yaml:"table"`
	State    string   `json:"state" yaml:"state"`
	Target   string   `json:"target,omitempty" yaml:"target,omitempty"`
	Rows     *int64   `json:"rows,omitempty" yaml:"rows,omitempty"`
	Location string   `json:"location,omitempty" yaml:"location,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
	DDLError string   `json:"ddl_error,omitempty" yaml:"ddl_error,omitempty"`
	Warnings []string `json:"duplicate_columns,omitempty" yaml:"duplicate_columns,omitempty"`
}

type reportView struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	DryRun     bool          `json:"dry_run" yaml:"dry_run"`
	Loaded     int           `json:"tables_loaded" yaml:"tables_loaded"`
	Failed     int           `json:"tables_failed" yaml:"tables_failed"`
	DDLFailed  int           `json:"ddl_failed" yaml:"ddl_failed"`
	Tables     []outcomeView `json:"tables" yaml:"tables"`
}

func newReportView(r *domain.RunReport) reportView {
	v := reportView{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DryRun:     r.DryRun,
		Loaded:     r.Count(domain.TableStateLoaded),
		Failed:     r.Failed(),
		DDLFailed:  r.DDLFailed(),
		Tables:     make([]outcomeView, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		ov := outcomeView{
			Schema:   o.Table.Schema,
			Table:    o.Table.Name,
			State:    string(o.State),
			Target:   o.TargetTable,
			Warnings: o.Warnings(),
		}
		if o.File != nil {
			rows := o.File.Rows
			ov.Rows = &rows
		}
		if o.Staged != nil {
			ov.Location = o.Staged.Location()
		}
		if o.Err != nil {
			ov.Error = o.Err.Error()
		}
		if o.DDLError != nil {
			ov.DDLError = o.DDLError.Error()
		}
		v.Tables = append(v.Tables, ov)
	}
	return v
}

func printReportTable(w io.Writer, v reportView) error {
	rows := make([][]string, len(v.Tables))
	for i, t := range v.Tables {
		n := "-"
		if t.Rows != nil {
			n = strconv.FormatInt(*t.Rows, 10)
		}
		msg := t.Error
		if msg == "" {
			msg = t.DDLError
		}
		rows[i] = []string{t.Schema, t.Table, t.State, n, t.Target, msg}
	}
	if err := printTable(w, []string{"schema", "table", "state", "rows", "target", "error"}, rows); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\nrun %s: %d tables, %d loaded, %d failed", v.RunID, len(v.Tables), v.Loaded, v.Failed); err != nil {
		return err
	}
	if v.DDLFailed > 0 {
		if _, err := fmt.Fprintf(w, ", %d DDL errors", v.DDLFailed); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// runMigration loads the configuration, wires the application and runs it.
// A dry run needs only the source settings.
func runMigration(cmd *cobra.Command, opts app.Options) (*domain.RunReport, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		err = cfg.ValidateSource()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg, opts, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close connections", "error", err)
		}
	}()

	return a.Service.Run(cmd.Context())
}

func newMigrateCmd() *cobra.Command {
	var (
		opts   app.Options
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Export, create and load every source table",
		Long: `Discovers every base table in the source database, exports each one to a
Parquet file, creates its staging table in Snowflake and bulk-loads the file.
Per-table failures are reported and do not stop the run; --strict turns them
into a non-zero exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := runMigration(cmd, opts)
			if report != nil {
				v := newReportView(report)
				if perr := render(cmd, v, func(w io.Writer) error { return printReportTable(w, v) }); perr != nil && err == nil {
					err = perr
				}
			}
			if err != nil {
				return err
			}
			if strict && report.Failed() > 0 {
				return fmt.Errorf("%d of %d tables failed", report.Failed(), len(report.Outcomes))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Translate only: no export, DDL or load")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any table fails")
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "Only migrate tables matching these schema.table globs")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "Skip tables matching these schema.table globs")
	return cmd
}
