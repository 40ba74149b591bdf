package main

import (
	"github.com/spf13/cobra"

	"github.com/ahmednasr/firstcommit/internal/app"
)

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <repository-id>",
		Short: "Delete a repository with its metadata and vector collections",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	cmd.Flags().String("user", "operator", "User id linked to the repository")
	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")

	svc, err := services(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Imports.Delete(cmd.Context(), user, args[0]); err != nil {
		return err
	}
	return writeOutput(cmd, map[string]any{"deleted": args[0]}, func() {
		printf(cmd, "%s %s\n", green.Sprint("✓ deleted"), args[0])
	})
}
