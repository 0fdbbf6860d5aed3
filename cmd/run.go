package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-cli/internal/config"
)

var (
	runSearch     string
	runLocation   string
	runMaxResults int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape a places search and append new leads to the sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runSearch != "" {
			cfg.Search.Term = runSearch
		}
		if runLocation != "" {
			cfg.Search.Location = runLocation
		}
		if runMaxResults > 0 {
			cfg.Search.MaxResults = runMaxResults
		}

		env, err := initWorkflow(ctx, config.ModeRun)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Workflow.RunFullWorkflow(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSearch, "search", "", "search term (default from config)")
	runCmd.Flags().StringVar(&runLocation, "location", "", "search location (default from config)")
	runCmd.Flags().IntVar(&runMaxResults, "max-results", 0, "max places to scrape (default from config)")
	rootCmd.AddCommand(runCmd)
}
