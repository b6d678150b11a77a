package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/app"
	"github.com/cuderbk/adw-elt-pipeline/internal/source/mssql"
	"github.com/cuderbk/adw-elt-pipeline/internal/warehouse/snowflake"
)

type checkView struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Target   string `json:"target" yaml:"target"`
	Status   string `json:"status" yaml:"status"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and connect to both endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			srcOpts := app.SourceOptions(cfg)
			src, err := mssql.Open(ctx, srcOpts)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()
			tables, err := src.ListTables(ctx)
			if err != nil {
				return fmt.Errorf("list source tables: %w", err)
			}

			whOpts := app.WarehouseOptions(cfg)
			wh, err := snowflake.Open(ctx, whOpts, logger)
			if err != nil {
				return err
			}
			defer func() { _ = wh.Close() }()

			checks := []checkView{
				{Endpoint: "source", Target: srcOpts.Redacted(), Status: "ok", Detail: fmt.Sprintf("%d base tables", len(tables))},
				{Endpoint: "destination", Target: fmt.Sprintf("%s/%s.%s", whOpts.Account, whOpts.Database, whOpts.Schema), Status: "ok"},
			}
			return render(cmd, checks, func(w io.Writer) error {
				rows := make([][]string, len(checks))
				for i, c := range checks {
					rows[i] = []string{c.Endpoint, c.Target, c.Status, c.Detail}
				}
				return printTable(w, []string{"endpoint", "target", "status", "detail"}, rows)
			})
		},
	}
}
