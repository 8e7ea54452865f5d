package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"coursegen/internal/logs"
)

const followWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		jobID     string
		component string
		level     string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the coursegen log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			if path == "" {
				return errors.New("file logging is disabled (paths.log_dir is empty)")
			}
			filter := logs.Filter{
				JobID:     strings.TrimSpace(jobID),
				Component: strings.TrimSpace(component),
				MinLevel:  logs.ParseLevel(level),
			}
			if strings.TrimSpace(level) == "" {
				filter.MinLevel = logs.ParseLevel("debug")
			}
			out := cmd.OutOrStdout()

			c, stop := signal.NotifyContext(commandCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := logs.Tail(c, path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			printLogLines(out, result.Lines, filter, raw)
			offset := result.Offset
			for follow {
				result, err := logs.Tail(c, path, logs.TailOptions{Offset: offset, Follow: true, Wait: followWait})
				if c.Err() != nil {
					return nil
				}
				if err != nil {
					return err
				}
				printLogLines(out, result.Lines, filter, raw)
				offset = result.Offset
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show records of this job")
	cmd.Flags().StringVar(&component, "component", "", "Only show records of this component (pipeline, lesson, speech, assembly, ...)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn or error")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print matching JSON lines unchanged")
	return cmd
}

func printLogLines(out io.Writer, lines []string, filter logs.Filter, raw bool) {
	for _, line := range lines {
		rec, ok := logs.ParseRecord(line)
		if !ok || !filter.Match(rec) {
			continue
		}
		if raw {
			fmt.Fprintln(out, line)
			continue
		}
		fmt.Fprintln(out, logs.Format(rec))
	}
}
