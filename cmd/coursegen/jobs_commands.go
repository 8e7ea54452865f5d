package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coursegen/internal/course"
	"coursegen/internal/jobs"
	"coursegen/internal/services"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the generation job journal",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatusFilter(statuses)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *jobs.Store) error {
				entries, err := store.List(commandCtx(cmd), limit)
				if err != nil {
					return err
				}
				entries = filterEntries(entries, filter)
				if jsonOutput {
					if entries == nil {
						entries = []jobs.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.ID,
						string(e.Status),
						strconv.Itoa(e.Progress) + "%",
						e.SourceName,
						formatTimestamp(&e.CreatedAt),
						summarizeJobOutcome(e.Job),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Progress", "Source", "Created", "Outcome"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show (0 = all)")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show jobs with these statuses")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}

type jobDetail struct {
	jobs.Entry
	Course *course.Course `json:"course,omitempty"`
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job and its course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *jobs.Store) error {
				entry, err := store.Get(commandCtx(cmd), id)
				if err != nil {
					return err
				}
				detail := jobDetail{Entry: entry}
				if entry.Status == jobs.StatusCompleted {
					c, err := store.Course(commandCtx(cmd), id)
					if err != nil && !errors.Is(err, services.ErrNotFound) {
						return err
					}
					detail.Course = c
				}
				if jsonOutput {
					return writeJSON(cmd, detail)
				}
				printJobDetail(cmd, detail)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job as JSON")
	return cmd
}

func printJobDetail(cmd *cobra.Command, detail jobDetail) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:       %s\n", detail.ID)
	fmt.Fprintf(out, "Source:    %s\n", detail.SourceName)
	fmt.Fprintf(out, "Status:    %s (%d%%)\n", detail.Status, detail.Progress)
	fmt.Fprintf(out, "Created:   %s\n", formatTimestamp(&detail.CreatedAt))
	fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(detail.StartedAt))
	fmt.Fprintf(out, "Finished:  %s\n", formatTimestamp(detail.CompletedAt))
	if detail.CourseRef != "" {
		fmt.Fprintf(out, "Course:    %s\n", detail.CourseRef)
	}
	if detail.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", detail.Error)
	}
	if c := detail.Course; c != nil {
		fmt.Fprintf(out, "Title:     %s\n", c.Title)
		fmt.Fprintf(out, "Duration:  %s\n", formatClock(c.Metadata.TotalDuration))
		rows := make([][]string, 0, len(c.Lessons))
		for _, l := range c.Lessons {
			rows = append(rows, []string{
				strconv.Itoa(l.Order + 1),
				l.Title,
				formatClock(l.Duration),
				yesNo(l.VideoRef != ""),
				yesNo(len(l.Subtitles) > 0),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Lesson", "Duration", "Video", "Subtitles"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
		))
	}
	printLessonErrors(out, detail.LessonErrors)
}

func parseStatusFilter(values []string) (map[jobs.Status]struct{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	filter := make(map[jobs.Status]struct{}, len(values))
	for _, v := range values {
		status, ok := jobs.ParseStatus(strings.ToLower(strings.TrimSpace(v)))
		if !ok {
			return nil, fmt.Errorf("unknown status %q (want queued, running, completed or failed)", v)
		}
		filter[status] = struct{}{}
	}
	return filter, nil
}

func filterEntries(entries []jobs.Entry, filter map[jobs.Status]struct{}) []jobs.Entry {
	if len(filter) == 0 {
		return entries
	}
	var out []jobs.Entry
	for _, e := range entries {
		if _, ok := filter[e.Status]; ok {
			out = append(out, e)
		}
	}
	return out
}

func summarizeJobOutcome(job jobs.Job) string {
	switch job.Status {
	case jobs.StatusCompleted:
		if n := len(job.LessonErrors); n > 0 {
			return fmt.Sprintf("%s (%d skipped)", job.CourseRef, n)
		}
		return job.CourseRef
	case jobs.StatusFailed:
		return job.Error
	default:
		return "-"
	}
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
