package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelcut/internal/jobstore"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a batch job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.fetchJob(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, jobstore.ErrNotFound) {
					return fmt.Errorf("job %s not found", args[0])
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, job)
			}
			printJob(cmd.OutOrStdout(), job)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job record as JSON")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List batch jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.listJobs(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{"jobs": jobs})
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.JobID,
					string(job.Status),
					strconv.Itoa(len(job.Items)),
					job.Message,
					formatLocalTime(job.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Status", "Files", "Message", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job list as JSON")
	return cmd
}

func printJob(out io.Writer, job *jobstore.Job) {
	colorize := shouldColorize(out)
	status := string(job.Status)
	if colorize {
		status = statusColor(job.Status) + status + ansiReset
	}
	fmt.Fprintf(out, "Job %s: %s", job.JobID, status)
	if job.Message != "" {
		fmt.Fprintf(out, " (%s)", job.Message)
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(job.Items))
	for _, item := range job.Items {
		rows = append(rows, []string{
			shortID(item.FileID),
			item.Filename,
			string(item.Status),
			item.Message,
			formatLocalTime(item.UpdatedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Name", "Status", "Message", "Updated"},
		rows,
		nil,
	))
}

func statusColor(status jobstore.Status) string {
	switch status {
	case jobstore.StatusCompleted:
		return ansiGreen
	case jobstore.StatusFailed:
		return ansiRed
	case jobstore.StatusProcessing:
		return ansiYellow
	default:
		return ansiBlue
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatLocalTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func writeJSON(cmd *cobra.Command, payload any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
