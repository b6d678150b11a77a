package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/inspect"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Show the schema and row count of an exported Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inspect.New()
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			info, err := in.File(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, info, func(w io.Writer) error {
				if _, err := fmt.Fprintf(w, "%s: %d rows, %d row groups, %s\n\n",
					info.Path, info.Rows, info.RowGroups, info.Compression); err != nil {
					return err
				}
				rows := make([][]string, len(info.Columns))
				for i, c := range info.Columns {
					rows[i] = []string{c.Name, c.Type}
				}
				return printTable(w, []string{"column", "type"}, rows)
			})
		},
	}
}
