package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/firstcommit/internal/app"
	"github.com/ahmednasr/firstcommit/internal/models"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <repository-id>",
		Short: "Show the import status of a repository",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := services(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Imports.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return writeOutput(cmd, report, func() { printStatus(cmd, report) })
}

func printStatus(cmd *cobra.Command, r models.StatusReport) {
	printf(cmd, "%s\n\n", bold.Sprintf("Repository %s", r.ID))

	status := string(r.Status)
	switch r.Status {
	case models.StatusReady:
		status = green.Sprint(status)
	case models.StatusError:
		status = red.Sprint(status)
	default:
		status = yellow.Sprint(status)
	}
	printf(cmd, "  %s %s\n", label("Status"), status)
	printf(cmd, "  %s %s\n", label("Stage"), r.CurrentStage)
	if r.ErrorMessage != "" {
		printf(cmd, "  %s %s\n", label("Error"), red.Sprint(r.ErrorMessage))
	}
	if r.LastAnalyzed != nil {
		printf(cmd, "  %s %s\n", label("Last analyzed"), r.LastAnalyzed.Format(time.RFC3339))
	}
}
