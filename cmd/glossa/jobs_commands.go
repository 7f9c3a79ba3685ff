package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"glossa/internal/api"
	"glossa/internal/ipc"
	"glossa/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage translation history",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List translation jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var wantStatus jobs.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				parsed, ok := jobs.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of submitted, streaming, completed, failed)", trimmed)
				}
				wantStatus = parsed
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList(limit)
				if err != nil {
					return err
				}
				items := filterJobsByStatus(resp.Jobs, wantStatus)
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Service", "Status", "Progress", "Created"},
					buildJobListRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show jobs in the given state")
	return cmd
}

func filterJobsByStatus(items []api.JobItem, want jobs.Status) []api.JobItem {
	if want == "" {
		return items
	}
	filtered := make([]api.JobItem, 0, len(items))
	for _, item := range items {
		if parsed, ok := jobs.ParseStatus(item.Status); ok && parsed == want {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for one translation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobDescribe(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Job)
				}

				stdout := cmd.OutOrStdout()
				job := resp.Job
				fmt.Fprintf(stdout, "Job:      %s\n", job.ID)
				fmt.Fprintf(stdout, "File:     %s\n", job.SourceFilename)
				fmt.Fprintf(stdout, "Source:   %s\n", job.SourcePath)
				fmt.Fprintf(stdout, "Service:  %s (threads %d, %s -> %s)\n", job.Service, job.Threads, job.LangIn, job.LangOut)
				fmt.Fprintf(stdout, "Status:   %s\n", job.Status)
				if !jobs.Status(job.Status).Terminal() || job.Progress.Percent > 0 {
					fmt.Fprintf(stdout, "Progress: %.1f%% %s\n", job.Progress.Percent, progressDetail(job.Progress))
				}
				if job.OutputFile != "" {
					fmt.Fprintf(stdout, "Output:   %s\n", job.OutputFile)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(stdout, "Error:    %s\n", job.ErrorMessage)
				}
				fmt.Fprintf(stdout, "Created:  %s\n", job.CreatedAt)
				if job.CompletedAt != "" {
					fmt.Fprintf(stdout, "Finished: %s\n", job.CompletedAt)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobsClear(all)
				if err != nil {
					return err
				}
				if all {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", resp.Removed)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d finished jobs\n", resp.Removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove jobs that have not finished")
	return cmd
}

func buildJobListRows(items []api.JobItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.SourceFilename,
			item.Service,
			item.Status,
			fmt.Sprintf("%.0f%%", item.Progress.Percent),
			item.CreatedAt,
		})
	}
	return rows
}

func progressDetail(progress api.JobProgress) string {
	stage := strings.TrimSpace(progress.Stage)
	message := strings.TrimSpace(progress.Message)
	switch {
	case stage != "" && message != "":
		return fmt.Sprintf("(%s: %s)", stage, message)
	case stage != "":
		return fmt.Sprintf("(%s)", stage)
	case message != "":
		return fmt.Sprintf("(%s)", message)
	default:
		return ""
	}
}
