package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/app"
	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

type planView struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	DDL    string `json:"ddl,omitempty" yaml:"ddl,omitempty"`
	Query  string `json:"query,omitempty" yaml:"query,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newPlanViews(r *domain.RunReport) []planView {
	views := make([]planView, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		p := planView{
			Schema: o.Table.Schema,
			Table:  o.Table.Name,
			Target: o.TargetTable,
			DDL:    o.DDL,
			Query:  o.Query,
		}
		if o.Err != nil {
			p.Error = o.Err.Error()
		}
		views = append(views, p)
	}
	return views
}

func printPlan(w io.Writer, plans []planView) error {
	for _, p := range plans {
		if _, err := fmt.Fprintf(w, "-- %s.%s\n", p.Schema, p.Table); err != nil {
			return err
		}
		if p.Error != "" {
			if _, err := fmt.Fprintf(w, "-- error: %s\n\n", p.Error); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n\n", p.DDL, p.Query); err != nil {
			return err
		}
	}
	return nil
}

func newPlanCmd() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the staging DDL and export query for every source table",
		Long: `Connects to the source only, discovers tables and columns, and prints the
Snowflake CREATE OR REPLACE TABLE statement and the SQL Server projection
query that migrate would use. Nothing is exported, created or loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.DryRun = true
			report, err := runMigration(cmd, opts)
			if err != nil {
				return err
			}
			plans := newPlanViews(report)
			return render(cmd, plans, func(w io.Writer) error { return printPlan(w, plans) })
		},
	}
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "Only plan tables matching these schema.table globs")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "Skip tables matching these schema.table globs")
	return cmd
}
