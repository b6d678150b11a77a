// Package cli implements the adw-elt command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd, os.Stdout, os.Stderr, err)
		return 1
	}
	return 0
}

// printError writes err as a JSON object on stdout when JSON output is
// selected, and as "Error: ..." on stderr otherwise.
func printError(rootCmd *cobra.Command, stdout, stderr io.Writer, err error) {
	if getOutputFormat(rootCmd) == "json" {
		_ = printJSON(stdout, map[string]any{"error": err.Error()})
		return
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "adw-elt",
		Short:         "Stage SQL Server tables into Snowflake",
		Long:          "Exports every base table of a SQL Server database to Parquet, creates a typed staging table in Snowflake for each one and bulk-loads the files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOutputFormat(getOutputFormat(cmd))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("output", "o", "", "Output format (table, json, yaml); defaults to table on a terminal, json otherwise")
	config.RegisterFlags(flags)

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
