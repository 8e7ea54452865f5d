package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary coursegen runs.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status is a Requirement after resolution against PATH.
type Status struct {
	Requirement
	// Path is the resolved executable; empty when the binary was not found.
	Path string
	// Version is the tool's self-reported version, when probed.
	Version string
	Problem string
}

func (s Status) Available() bool { return s.Path != "" }

// Satisfied reports whether the requirement does not block generation.
func (s Status) Satisfied() bool { return s.Available() || s.Optional }

// Resolve looks every requirement up on PATH. Commands may be bare names or
// absolute paths.
func Resolve(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		st := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			st.Problem = "command not configured"
		case err != nil:
			st.Problem = fmt.Sprintf("binary %q not found", req.Command)
		default:
			st.Path = path
		}
		out[i] = st
	}
	return out
}

// Unsatisfied returns the statuses that block generation.
func Unsatisfied(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Satisfied() {
			out = append(out, s)
		}
	}
	return out
}

// Annotate fills in Version for every available binary. Probe failures leave
// Version empty; a binary that cannot report its version still ran.
func (p *VersionProbe) Annotate(ctx context.Context, statuses []Status) {
	for i := range statuses {
		if !statuses[i].Available() {
			continue
		}
		if v, err := p.Version(ctx, statuses[i].Path); err == nil {
			statuses[i].Version = v
		}
	}
}
