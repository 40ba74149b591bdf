// Command ingest is the operator CLI for the ingestion pipeline. It runs
// imports synchronously in-process and inspects repository status and
// index integrity without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ahmednasr/firstcommit/internal/app"
	"github.com/ahmednasr/firstcommit/internal/config"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Import GitHub repositories into the vector index and inspect them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().Bool("json", false, "Output machine-readable JSON")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(importCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(integrityCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(deleteCmd())

	if err := root.Execute(); err != nil {
		red.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// services loads configuration and wires the pipeline.
func services(ctx context.Context, opts app.Options) (*app.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg.LogLevel, "console")
	return app.Build(ctx, cfg, opts)
}

// writeOutput prints v as JSON when --json is set, otherwise runs human.
func writeOutput(cmd *cobra.Command, v any, human func()) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		human()
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func label(name string) string {
	return cyan.Sprintf("%-14s", name+":")
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
