package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/monitoring"
	"github.com/sells-group/lead-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect run history",
	Long:  "Commands for listing and viewing workflow and maintenance runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Kind:   model.RunKind(kind),
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeRun(os.Stdout, run, format)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetDuration("since")
		hours := int(since.Hours())
		if hours < 1 {
			hours = 1
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		formatRunStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")
	runsCmd.AddCommand(runsStatsCmd)

	runsListCmd.Flags().String("kind", "", "filter by run kind (workflow, dedupe, verify, emails)")
	runsListCmd.Flags().String("status", "", "filter by run status (queued, polling, complete, failed, ...)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().String("format", "json", "output format (json, yaml)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func writeRun(out io.Writer, run *model.Run, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(run)
	default:
		return eris.Errorf("unknown format %q (json, yaml)", format)
	}
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tSUMMARY\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Kind,
			r.Status,
			summarize(r),
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// summarize returns the headline counter for the run's kind.
func summarize(r model.Run) string {
	res := r.Result
	if res == nil {
		return ""
	}
	if res.Error != "" {
		msg := res.Error
		if len(msg) > 40 {
			msg = msg[:37] + "..."
		}
		return msg
	}
	switch r.Kind {
	case model.RunKindWorkflow:
		return fmt.Sprintf("%d scraped, %d appended", res.Scraped, res.Appended)
	case model.RunKindDedupe:
		return fmt.Sprintf("%d removed", res.RowsRemoved)
	case model.RunKindVerify:
		return fmt.Sprintf("%d cleared", res.LinksCleared)
	case model.RunKindEmails:
		return fmt.Sprintf("%d valid", res.ValidEmails)
	}
	return ""
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Workflow runs:\t%d\n", s.WorkflowTotal)
	_, _ = fmt.Fprintf(w, "  Complete:\t%d\n", s.WorkflowComplete)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.WorkflowFailed)
	_, _ = fmt.Fprintf(w, "  In progress:\t%d\n", s.WorkflowRunning)
	_, _ = fmt.Fprintf(w, "Leads scraped:\t%d\n", s.LeadsScraped)
	_, _ = fmt.Fprintf(w, "Leads appended:\t%d\n", s.LeadsAppended)
	_, _ = fmt.Fprintf(w, "Maintenance runs:\t%d\n", s.MaintenanceTotal)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.MaintenanceFailed)
	_, _ = fmt.Fprintf(w, "Rows removed:\t%d\n", s.RowsRemoved)
	_, _ = fmt.Fprintf(w, "Links cleared:\t%d\n", s.LinksCleared)
	if s.AvgWorkflowSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg workflow duration:\t%.1fs\n", s.AvgWorkflowSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
