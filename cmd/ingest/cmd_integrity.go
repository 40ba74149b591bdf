package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/firstcommit/internal/app"
	"github.com/ahmednasr/firstcommit/internal/models"
)

// errNotIntact makes the command exit non-zero so it can gate scripts.
var errNotIntact = errors.New("index integrity check failed")

func integrityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrity <repository-id>",
		Short: "Compare metadata rows with the vector collections",
		Args:  cobra.ExactArgs(1),
		RunE:  runIntegrity,
	}
}

func runIntegrity(cmd *cobra.Command, args []string) error {
	svc, err := services(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.Imports.Status(cmd.Context(), args[0]); err != nil {
		return err
	}
	report := svc.Integrity.Check(cmd.Context(), args[0])
	if err := writeOutput(cmd, report, func() { printIntegrity(cmd, report) }); err != nil {
		return err
	}
	if !report.OverallIntegrity {
		return errNotIntact
	}
	return nil
}

func printIntegrity(cmd *cobra.Command, r models.IntegrityReport) {
	printf(cmd, "%s\n\n", bold.Sprintf("Integrity of %s (%s)", r.RepositoryID, r.Timestamp.Format(time.RFC3339)))
	printCollection(cmd, "Code", r.Code)
	printCollection(cmd, "Discussions", r.Discussions)

	if r.OverallIntegrity {
		printf(cmd, "\n  %s\n", green.Sprint("✓ intact"))
	} else {
		printf(cmd, "\n  %s\n", red.Sprint("✗ drift detected"))
	}
}

func printCollection(cmd *cobra.Command, name string, c models.CollectionIntegrity) {
	if !c.CollectionExists {
		printf(cmd, "  %s %s (metadata rows: %d)\n", label(name), yellow.Sprint("collection missing"), c.MetadataCount)
		return
	}
	mark := green.Sprint("ok")
	if !c.IsIntact {
		mark = red.Sprint("mismatch")
	}
	printf(cmd, "  %s %d rows, %d unique paths, %d vectors  %s\n",
		label(name), c.MetadataCount, c.UniqueVectorPathCount, c.VectorCount, mark)
}
