package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/firstcommit/internal/app"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <repository-id> <query>",
		Short: "Query the code and discussions of a repository",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSearch,
	}
	cmd.Flags().IntP("top-k", "k", 0, "Hits per collection (default CHROMA_RESULTS_NUMBER)")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")

	svc, err := services(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Search.QueryRepository(cmd.Context(), args[0], strings.Join(args[1:], " "), topK)
	if err != nil {
		return err
	}
	return writeOutput(cmd, results, func() {
		if len(results) == 0 {
			printf(cmd, "%s\n", yellow.Sprint("No results."))
			return
		}
		for i, r := range results {
			printf(cmd, "%s %s %s\n", bold.Sprintf("%2d.", i+1), cyan.Sprint(r.Path()), dim.Sprintf("[%s %.3f]", r.Type, r.Distance))
			printf(cmd, "    %s\n", preview(r.Content, 160))
		}
	})
}

// preview flattens content onto one line and truncates it to n runes.
func preview(content string, n int) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "…"
}
