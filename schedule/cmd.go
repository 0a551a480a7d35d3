// Package schedule exposes the backend's recurring research jobs on the
// command line.
package schedule

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/siralabs/sira/internal/api"
	"github.com/siralabs/sira/internal/cli"
	"github.com/siralabs/sira/internal/configuration"
)

// NewCmd instantiates and returns the schedule command.
func NewCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled research jobs",
		Long:  "Manage scheduled research jobs",
	}
	cmd.AddCommand(newAddCmd(client, config))
	cmd.AddCommand(newListCmd(client))
	cmd.AddCommand(newCancelCmd(client))
	cmd.AddCommand(newHistoryCmd(client, config))
	return cmd
}

// newAddCmd instantiates and returns the schedule add command.
func newAddCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	var opts struct {
		IntervalSeconds int
	}

	cmd := &cobra.Command{
		Use:   "add [topic]",
		Short: "Start a recurring research job",
		Long:  "Start a recurring research job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			jobID, err := client.StartScheduledJob(cmd.Context(), args[0], config.API.UserID, opts.IntervalSeconds)
			cobra.CheckErr(err)
			cli.AIOutput("scheduled job %s for %q every %ds\n", jobID, args[0], opts.IntervalSeconds)
		},
	}

	cmd.Flags().IntVarP(&opts.IntervalSeconds, "interval", "i", 3600, "Interval in seconds between runs")
	return cmd
}

// newListCmd instantiates and returns the schedule list command.
func newListCmd(client *api.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled research jobs",
		Long:  "List scheduled research jobs",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, err := client.ListScheduledJobs(cmd.Context())
			cobra.CheckErr(err)

			cli.Title("SIRA SCHEDULED JOBS")
			if len(jobs) == 0 {
				cli.Notice("no scheduled jobs")
				return
			}
			for _, job := range jobs {
				next := "unknown"
				if job.NextRun != nil {
					next = job.NextRun.Format(time.RFC3339)
				}
				cli.AIOutput("%s  %q  every %ds  next run %s\n", job.ID, job.Topic, job.IntervalSeconds, next)
			}
		},
	}
}

// newCancelCmd instantiates and returns the schedule cancel command.
func newCancelCmd(client *api.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [job-id]",
		Short: "Cancel a scheduled research job",
		Long:  "Cancel a scheduled research job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := client.CancelScheduledJob(cmd.Context(), args[0])
			cobra.CheckErr(err)
			cli.AIOutput("cancelled job %s\n", args[0])
		},
	}
}

// newHistoryCmd instantiates and returns the schedule history command.
func newHistoryCmd(client *api.Client, config *configuration.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past scheduled job runs",
		Long:  "Show past scheduled job runs",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			raw, err := client.ScheduleHistory(cmd.Context(), config.API.UserID)
			cobra.CheckErr(err)

			var pretty json.RawMessage = raw
			indented, err := json.MarshalIndent(pretty, "", "  ")
			if err == nil {
				raw = indented
			}
			cli.Title("SIRA SCHEDULE HISTORY")
			cli.AIOutput("%s\n", string(raw))
		},
	}
}
