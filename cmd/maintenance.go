package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/pipeline"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove rows whose name repeats an earlier row",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initWorkflow(ctx, config.ModeDedupe)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Workflow.Deduplicate(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("dedupe finished",
			zap.Int("removed", report.Removed),
			zap.Int("remaining", report.RowsAfter),
		)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Clear Instagram and Facebook links that do not resolve to a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initWorkflow(ctx, config.ModeVerify)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Workflow.VerifyLinks(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("verification finished",
			zap.Int("checked", report.Checked),
			zap.Int("cleared", report.Cleared),
			zap.Int("unavailable", report.Unavailable),
		)
		return nil
	},
}

var (
	emailsNoDomainCheck bool
	emailsFormat        string
)

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "List the sheet's distinct emails split into valid and invalid",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initWorkflow(ctx, config.ModeEmails)
		if err != nil {
			return err
		}
		defer env.Close()

		checkDomain := cfg.Email.CheckDomain && !emailsNoDomainCheck
		report, err := env.Workflow.ListValidatedEmails(ctx, checkDomain)
		if err != nil {
			return err
		}
		return writeEmailReport(os.Stdout, report, emailsFormat)
	},
}

func writeEmailReport(out io.Writer, report *pipeline.EmailReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(report)
	case "text", "":
		formatEmailReport(out, report)
		return nil
	default:
		return eris.Errorf("unknown format %q (text, json, yaml)", format)
	}
}

// formatEmailReport prints the banner layout: valid addresses always, invalid
// ones only when there are any.
func formatEmailReport(out io.Writer, report *pipeline.EmailReport) {
	rule := strings.Repeat("=", 60)

	_, _ = fmt.Fprintf(out, "\n%s\n", rule)
	_, _ = fmt.Fprintf(out, "VALIDATED UNIQUE EMAILS (%d total)\n", len(report.Valid))
	_, _ = fmt.Fprintln(out, rule)
	for _, e := range report.Valid {
		_, _ = fmt.Fprintln(out, e)
	}

	if len(report.Invalid) > 0 {
		_, _ = fmt.Fprintf(out, "\n%s\n", rule)
		_, _ = fmt.Fprintf(out, "INVALID EMAILS (%d total)\n", len(report.Invalid))
		_, _ = fmt.Fprintln(out, rule)
		for _, e := range report.Invalid {
			_, _ = fmt.Fprintln(out, e)
		}
	}

	_, _ = fmt.Fprintf(out, "\n%s\n", rule)
}

func init() {
	emailsCmd.Flags().BoolVar(&emailsNoDomainCheck, "no-domain-check", false, "skip the MX lookup and check the format only")
	emailsCmd.Flags().StringVar(&emailsFormat, "format", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(emailsCmd)
}
