package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"coursegen/internal/jobs"
	"coursegen/internal/staging"
	"coursegen/internal/textutil"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var orphaned bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove intermediate work files and interrupted publications",
		Long: `Clean removes job work directories older than --older-than and course
directories left half-published by an interrupted run. With --orphaned it
also removes work directories of jobs missing from the journal.

Clean refuses to run while a generation holds the work directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if olderThan < 0 {
				return fmt.Errorf("invalid --older-than %s", olderThan)
			}
			out := cmd.OutOrStdout()

			if dryRun {
				return printCleanCandidates(out, cfg.Paths.WorkDir, olderThan)
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire work lock: %w", err)
			}
			if !ok {
				return errors.New("a generation is running; retry when it finishes")
			}
			defer lock.Unlock() //nolint:errcheck

			logger, err := ctx.logger(cmd)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c := commandCtx(cmd)

			results := []staging.CleanResult{
				staging.CleanStale(c, cfg.Paths.WorkDir, olderThan, logger),
				staging.CleanPartialPublications(c, cfg.Paths.OutputDir, logger),
			}
			if orphaned {
				keep := make(map[string]struct{})
				err := ctx.withStore(func(store *jobs.Store) error {
					entries, err := store.List(c, 0)
					if err != nil {
						return err
					}
					for _, e := range entries {
						keep[textutil.SanitizeToken(e.ID)] = struct{}{}
					}
					return nil
				})
				if err != nil {
					return err
				}
				results = append(results, staging.CleanOrphaned(c, cfg.Paths.WorkDir, keep, logger))
			}

			removed, failed := 0, 0
			for _, r := range results {
				for _, path := range r.Removed {
					fmt.Fprintf(out, "removed %s\n", path)
				}
				for _, e := range r.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %s: %v\n", e.Path, e.Error)
				}
				removed += len(r.Removed)
				failed += len(r.Errors)
			}
			fmt.Fprintf(out, "Removed %d director%s\n", removed, plural(removed, "y", "ies"))
			if failed > 0 {
				return fmt.Errorf("%d director%s could not be removed", failed, plural(failed, "y", "ies"))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Remove work directories not modified within this duration")
	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "Also remove work directories of jobs missing from the journal")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List work directories and their age without removing anything")
	return cmd
}

func printCleanCandidates(out io.Writer, workDir string, olderThan time.Duration) error {
	dirs, err := staging.ListDirectories(workDir)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		fmt.Fprintln(out, "Work directory is empty")
		return nil
	}
	now := time.Now()
	rows := make([][]string, 0, len(dirs))
	for _, d := range dirs {
		age := now.Sub(d.ModTime)
		rows = append(rows, []string{
			d.Name,
			age.Round(time.Second).String(),
			strconv.FormatInt(d.Size, 10),
			yesNo(age > olderThan),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Directory", "Age", "Bytes", "Stale"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
