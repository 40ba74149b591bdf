package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/firstcommit/internal/app"
	"github.com/ahmednasr/firstcommit/internal/models"
	"github.com/ahmednasr/firstcommit/internal/service"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <github-url>",
		Short: "Import a repository and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	cmd.Flags().String("user", "operator", "User id the repository is linked to")
	cmd.Flags().String("token", "", "GitHub token (default $GITHUB_TOKEN)")
	cmd.Flags().Bool("in-memory", false, "Use an in-process metadata store instead of MongoDB")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	user, _ := cmd.Flags().GetString("user")
	token, _ := cmd.Flags().GetString("token")
	inMemory, _ := cmd.Flags().GetBool("in-memory")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return errors.New("a GitHub token is required (--token or GITHUB_TOKEN)")
	}

	svc, err := services(ctx, app.Options{InMemory: inMemory})
	if err != nil {
		return err
	}
	defer svc.Close()

	repo, err := svc.Imports.Import(ctx, service.ImportRequest{
		RepoURL: args[0],
		Token:   token,
		UserID:  user,
		Mode:    service.ModeSync,
	})
	if err != nil {
		return err
	}

	out := struct {
		Repository *models.Repository      `json:"repository"`
		Integrity  *models.IntegrityReport `json:"integrity,omitempty"`
	}{Repository: repo}
	if inMemory {
		// nothing survives the process, so report integrity now
		report := svc.Integrity.Check(ctx, repo.ID)
		out.Integrity = &report
	}

	return writeOutput(cmd, out, func() {
		printStatus(cmd, repo.StatusReport())
		printf(cmd, "  %s %s\n", label("Repository"), repo.FullName)
		if out.Integrity != nil {
			printf(cmd, "\n")
			printIntegrity(cmd, *out.Integrity)
		}
	})
}
