package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"coursegen/internal/jobs"
)

const progressInterval = 250 * time.Millisecond

// progressReporter prints job progress while a generation runs. Terminals
// get a single rewritten line with a bar; other writers get one line per
// change.
type progressReporter struct {
	out  io.Writer
	live bool
	last int
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out, live: isTerminal(out), last: -1}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// watch polls the tracker until done closes or ctx ends.
func (p *progressReporter) watch(ctx context.Context, tracker *jobs.Tracker, jobID string, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		if job, err := tracker.Get(jobID); err == nil {
			p.report(job)
		}
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *progressReporter) report(job jobs.Job) {
	if job.Progress == p.last {
		return
	}
	p.last = job.Progress
	if p.live {
		fmt.Fprintf(p.out, "\r%s %3d%% %s", progressBar(job.Progress, 30), job.Progress, job.Status)
		return
	}
	fmt.Fprintf(p.out, "progress: %d%% (%s)\n", job.Progress, job.Status)
}

// finish ends a live line so later output starts on a fresh row.
func (p *progressReporter) finish(job jobs.Job) {
	p.report(job)
	if p.live {
		fmt.Fprintln(p.out)
	}
}

func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
